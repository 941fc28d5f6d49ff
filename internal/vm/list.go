package vm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/digitalocean/go-libvirt"

	virtuplibvirt "github.com/virtup/virtup/internal/libvirt"
	"github.com/virtup/virtup/internal/metadata"
)

// Info describes one virtup-managed VM for display.
type Info struct {
	Name      string    `json:"name" yaml:"name"`
	State     string    `json:"state" yaml:"state"`
	Distro    string    `json:"distro,omitempty" yaml:"distro,omitempty"`
	IPs       []string  `json:"ips,omitempty" yaml:"ips,omitempty"`
	VCPUs     uint16    `json:"vcpus" yaml:"vcpus"`
	MemoryMB  uint64    `json:"memoryMB" yaml:"memoryMB"`
	LoginUser string    `json:"loginUser,omitempty" yaml:"loginUser,omitempty"`
	Autostart bool      `json:"autostart" yaml:"autostart"`
	CreatedAt time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// List returns all virtup-managed VMs on the host. Domains without a
// virtup creation record are skipped; this tool does not manage VMs it
// did not create.
func List(ctx context.Context, socketPath string) ([]Info, error) {
	client, err := virtuplibvirt.ConnectWithContext(ctx, socketPath, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("Warning: failed to close libvirt connection: %v", err)
		}
	}()

	return listWithDeps(ctx, client.Libvirt())
}

// listWithDeps lists VMs with an injected client.
func listWithDeps(_ context.Context, lv libvirtClient) ([]Info, error) {
	// Flags 0 means all domains, active and inactive.
	domains, _, err := lv.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	vms := make([]Info, 0, len(domains))
	for _, domain := range domains {
		if !metadata.Exists(lv, domain) {
			continue
		}

		info, err := domainInfo(lv, domain)
		if err != nil {
			log.Printf("Warning: failed to get info for domain %s: %v", domain.Name, err)
			continue
		}
		vms = append(vms, info)
	}

	return vms, nil
}

// domainInfo collects the display info for a single domain.
func domainInfo(lv libvirtClient, domain libvirt.Domain) (Info, error) {
	state, _, memoryKiB, nrVirtCPU, _, err := lv.DomainGetInfo(domain)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get domain info: %w", err)
	}

	autostart, err := lv.DomainGetAutostart(domain)
	if err != nil {
		log.Printf("Warning: failed to get autostart for %s: %v", domain.Name, err)
		autostart = 0
	}

	info := Info{
		Name:      domain.Name,
		State:     stateToString(int32(state)),
		VCPUs:     nrVirtCPU,
		MemoryMB:  memoryKiB / 1024,
		Autostart: autostart != 0,
		IPs:       domainIPs(lv, domain),
	}

	// The creation record fills in what libvirt doesn't track.
	if record, err := metadata.Load(lv, domain); err == nil {
		info.Distro = record.Distro
		info.LoginUser = record.LoginUser
		info.CreatedAt = record.CreatedAt
	}

	return info, nil
}

// stateToString converts a libvirt domain state to a readable string.
func stateToString(state int32) string {
	switch state {
	case 0:
		return "no state"
	case 1:
		return "running"
	case 2:
		return "blocked"
	case 3:
		return "paused"
	case 4:
		return "shutdown"
	case 5:
		return "shutoff"
	case 6:
		return "crashed"
	case 7:
		return "pmsuspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}
