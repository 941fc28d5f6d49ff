package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/virtup/virtup/internal/distro"
)

var distroCmd = &cobra.Command{
	Use:   "distro",
	Short: "Show supported distributions",
}

var distroListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported distributions",
	Long: `List the distributions virtup can install, with the cloud image each
one boots from and its default login user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "KEY\tNAME\tLOGIN USER\tMIN DISK\tIMAGE")

		for _, d := range distro.All() {
			key := d.Key
			if key == distro.DefaultKey {
				key += " (default)"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d GiB\t%s\n",
				key, d.Name, d.LoginUser, d.MinDiskGB, d.ImageName)
		}

		return w.Flush()
	},
}

func init() {
	distroCmd.AddCommand(distroListCmd)
}
