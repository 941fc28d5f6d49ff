package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/virtup/virtup/internal/config"
	"github.com/virtup/virtup/internal/distro"
	"github.com/virtup/virtup/internal/libvirt"
	"github.com/virtup/virtup/internal/vm"
)

var (
	version = "dev"
	commit  = "unknown"
)

// socketPath is the --socket persistent flag value.
var socketPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "virtup",
	Short: "Virtup - local KVM VMs from cloud images",
	Long: `Virtup creates and destroys local KVM virtual machines built from
distribution cloud images.

A VM is provisioned from command-line flags alone: virtup downloads the
distro's cloud image, builds a cloud-init seed ISO with your SSH key,
and boots the machine on a host bridge. When the VM has a DHCP lease,
virtup prints the address to log in to.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "libvirt UNIX socket path (default "+libvirt.DefaultSocketPath+")")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(distroCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(testConnCmd)

	createFlags(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a VM",
	Long: `Create a new virtual machine from a distribution cloud image.

The distro's base image is downloaded on first use and cached; later
VMs of the same distro boot from a copy-on-write clone, so creation is
fast and the image is stored once.

Examples:
  virtup create web1
  virtup create web1 --distro debian12 --cpus 2 --memory 2048 --disk 20
  virtup create web1 --bridge br0 --mac 52:54:00:12:34:56 --no-wait`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		if err := vm.Create(context.Background(), cfg, socketPath); err != nil {
			return fmt.Errorf("failed to create VM: %w", err)
		}

		fmt.Printf("✓ VM %s created\n", cfg.Name)
		return nil
	},
}

// createFlags registers the creation flags on cmd.
func createFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("distro", "d", distro.DefaultKey, "distribution to install (see 'virtup distro list')")
	f.IntP("cpus", "c", config.DefaultVCPUs, "number of virtual CPUs")
	f.IntP("memory", "m", config.DefaultMemoryMB, "memory in MiB")
	f.Int("disk", config.DefaultDiskGB, "boot disk size in GiB")
	f.StringP("bridge", "b", config.DefaultBridge, "host bridge to attach the VM to")
	f.String("mac", "", "MAC address (default: random with QEMU OUI)")
	f.StringP("image", "i", "", "base image override: a volume name or a local file to import")
	f.String("timezone", config.DefaultTimezone, "guest timezone")
	f.StringP("user", "u", "", "login user (default: the distro's cloud user)")
	f.StringP("ssh-key", "k", config.DefaultSSHKeyPath(), "SSH public key file installed for the login user")
	f.String("domain", "", "DNS domain appended to the hostname")
	f.Bool("autostart", false, "start the VM on host boot")
	f.Bool("replace", false, "tear down an existing VM of the same name first")
	f.Bool("no-wait", false, "do not wait for a DHCP lease")
	f.Duration("wait-timeout", config.DefaultWaitTimeout, "how long to wait for a DHCP lease")
}

// configFromFlags assembles and validates a VMConfig from the create
// command's flags.
func configFromFlags(cmd *cobra.Command, name string) (*config.VMConfig, error) {
	f := cmd.Flags()

	distroKey, _ := f.GetString("distro")
	d, err := distro.Lookup(distroKey)
	if err != nil {
		return nil, err
	}

	cfg := &config.VMConfig{
		Name:   name,
		Distro: d,
	}
	cfg.VCPUs, _ = f.GetInt("cpus")
	cfg.MemoryMB, _ = f.GetInt("memory")
	cfg.DiskGB, _ = f.GetInt("disk")
	cfg.Bridge, _ = f.GetString("bridge")
	cfg.MAC, _ = f.GetString("mac")
	cfg.Image, _ = f.GetString("image")
	cfg.Timezone, _ = f.GetString("timezone")
	cfg.LoginUser, _ = f.GetString("user")
	cfg.DNSDomain, _ = f.GetString("domain")
	cfg.SSHKeyPath, _ = f.GetString("ssh-key")
	cfg.Autostart, _ = f.GetBool("autostart")
	cfg.Replace, _ = f.GetBool("replace")
	cfg.NoWait, _ = f.GetBool("no-wait")
	cfg.WaitTimeout, _ = f.GetDuration("wait-timeout")

	cfg.Normalize()

	if err := cfg.LoadSSHKey(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var destroyCmd = &cobra.Command{
	Use:   "destroy <name>",
	Short: "Destroy a VM",
	Long: `Destroy a virtual machine by name.

This will:
- Stop the VM (gracefully, then by force)
- Undefine the domain
- Delete the VM's boot disk and cloud-init seed volume

The shared base image stays in the virtup-images pool.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vmName := args[0]

		if err := vm.Destroy(context.Background(), vmName, socketPath); err != nil {
			return fmt.Errorf("failed to destroy VM: %w", err)
		}

		fmt.Printf("✓ VM %s destroyed\n", vmName)
		return nil
	},
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long:  `Test connectivity to the libvirt daemon and display version information.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Testing libvirt connection...")

		client, err := libvirt.Connect(socketPath, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		fmt.Println("✓ Connected to libvirt daemon")

		if err := client.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		// libvirt returns the version as an integer like 8006000 for 8.6.0.
		libVersion, err := client.Libvirt().ConnectGetLibVersion()
		if err != nil {
			return fmt.Errorf("failed to get libvirt version: %w", err)
		}

		major := libVersion / 1000000
		minor := (libVersion % 1000000) / 1000
		patch := libVersion % 1000
		fmt.Printf("✓ Libvirt version: %d.%d.%d\n", major, minor, patch)

		hostname, err := client.Libvirt().ConnectGetHostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		fmt.Printf("✓ Hypervisor hostname: %s\n", hostname)

		uri, err := client.Libvirt().ConnectGetUri()
		if err != nil {
			return fmt.Errorf("failed to get connection URI: %w", err)
		}
		fmt.Printf("✓ Connection URI: %s\n", uri)

		fmt.Println("\nConnection test successful!")
		return nil
	},
}
