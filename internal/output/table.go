package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/virtup/virtup/internal/vm"
)

// TableFormatter formats VM listings as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatVM formats a single VM as a table row.
func (f *TableFormatter) FormatVM(info vm.Info) (string, error) {
	return f.FormatVMList([]vm.Info{info})
}

// FormatVMList formats a list of VMs as a table.
func (f *TableFormatter) FormatVMList(vms []vm.Info) (string, error) {
	if len(vms) == 0 {
		return "No VMs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSTATE\tDISTRO\tIP\tVCPUs\tMEMORY\tAGE")
	}

	for _, info := range vms {
		distroName := info.Distro
		if distroName == "" {
			distroName = "-"
		}

		ip := "-"
		if len(info.IPs) > 0 {
			ip = strings.Join(info.IPs, ",")
		}

		age := "-"
		if !info.CreatedAt.IsZero() {
			age = formatAge(time.Since(info.CreatedAt))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d MiB\t%s\n",
			info.Name, info.State, distroName, ip, info.VCPUs, info.MemoryMB, age)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// formatAge formats a duration as a short age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}

	weeks := days / 7
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}

	years := days / 365
	if years > 0 {
		return fmt.Sprintf("%dy", years)
	}

	return fmt.Sprintf("%dd", days)
}
