package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/virtup/virtup/internal/output"
	"github.com/virtup/virtup/internal/vm"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List VMs",
	Long: `List all virtup-managed virtual machines.

Shows each VM's state, distribution, IP addresses, and resources.
Domains on the host that virtup did not create are not shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		if err := output.ValidateFormat(format); err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		vms, err := vm.List(context.Background(), socketPath)
		if err != nil {
			return fmt.Errorf("failed to list VMs: %w", err)
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(format),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		out, err := formatter.FormatVMList(vms)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(out)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("output", "o", string(output.FormatTable), "output format: table, yaml, or json")
	listCmd.Flags().Bool("no-headers", false, "omit the header row in table output")
}
