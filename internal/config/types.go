// Package config holds the transient VM configuration assembled from
// command-line flags and its validation rules.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/virtup/virtup/internal/distro"
	"github.com/virtup/virtup/internal/naming"
)

// Defaults for VM sizing and placement.
const (
	DefaultVCPUs       = 1
	DefaultMemoryMB    = 1024
	DefaultDiskGB      = 10
	DefaultBridge      = "virbr0"
	DefaultTimezone    = "UTC"
	DefaultWaitTimeout = 3 * time.Minute
)

// VMConfig is the complete configuration for a single VM creation,
// assembled from flags. Nothing here outlives the invocation; the
// durable state is what libvirt ends up holding.
type VMConfig struct {
	Name     string
	Distro   distro.Distro
	VCPUs    int
	MemoryMB int
	DiskGB   int

	Bridge string
	MAC    string // canonical form; generated when not supplied

	// Image overrides the distro's base image volume name. It may name an
	// existing volume in the virtup-images pool or a local file path to
	// import.
	Image string

	Timezone  string
	LoginUser string // defaults to the distro's login user
	DNSDomain string

	SSHKeyPath string
	SSHKey     string // authorized_keys line loaded from SSHKeyPath

	Autostart   bool
	Replace     bool
	NoWait      bool
	WaitTimeout time.Duration
}

// FQDN returns the VM's fully qualified name: name + DNS domain when a
// domain was given, otherwise just the name.
func (c *VMConfig) FQDN() string {
	if c.DNSDomain == "" {
		return c.Name
	}
	return c.Name + "." + c.DNSDomain
}

// User returns the cloud-init login user, falling back to the distro default.
func (c *VMConfig) User() string {
	if c.LoginUser != "" {
		return c.LoginUser
	}
	return c.Distro.LoginUser
}

// BaseImageName returns the name of the base image volume the boot disk
// is backed by.
func (c *VMConfig) BaseImageName() string {
	if c.Image != "" {
		return filepath.Base(c.Image)
	}
	return c.Distro.ImageName
}

// BootVolumeName returns the boot disk volume name.
func (c *VMConfig) BootVolumeName() string {
	return naming.VolumeNameBoot(c.Name)
}

// CloudInitVolumeName returns the seed ISO volume name.
func (c *VMConfig) CloudInitVolumeName() string {
	return naming.VolumeNameCloudInit(c.Name)
}

// namePattern matches libvirt-safe VM names: start and end alphanumeric,
// hyphens allowed in between. Single-character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Normalize sanitizes user input to consistent formats. Called before
// Validate.
func (c *VMConfig) Normalize() {
	c.Name = strings.ToLower(strings.TrimSpace(c.Name))
	c.DNSDomain = strings.ToLower(strings.TrimSpace(c.DNSDomain))
	c.DNSDomain = strings.Trim(c.DNSDomain, ".")
	// Bridge names are not normalized; they must match host config exactly.
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
}

// Validate checks the configuration for errors. It validates config
// structure only; hypervisor-side checks (existing domains, bridges)
// happen during creation.
func (c *VMConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !namePattern.MatchString(c.Name) {
		return fmt.Errorf("name must start and end with alphanumeric characters and contain only alphanumerics or hyphens, got %q", c.Name)
	}

	if c.VCPUs <= 0 {
		return fmt.Errorf("cpus must be > 0, got %d", c.VCPUs)
	}
	if c.MemoryMB <= 0 {
		return fmt.Errorf("memory must be > 0 MiB, got %d", c.MemoryMB)
	}
	if c.DiskGB <= 0 {
		return fmt.Errorf("disk must be > 0 GiB, got %d", c.DiskGB)
	}
	if c.DiskGB < c.Distro.MinDiskGB {
		return fmt.Errorf("disk size %d GiB is smaller than the %s image's %d GiB", c.DiskGB, c.Distro.Name, c.Distro.MinDiskGB)
	}

	if c.Bridge == "" {
		return fmt.Errorf("bridge is required")
	}

	if c.MAC != "" {
		mac, err := naming.ValidateMAC(c.MAC)
		if err != nil {
			return err
		}
		c.MAC = mac
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if c.SSHKey != "" {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(c.SSHKey)); err != nil {
			return fmt.Errorf("ssh key is not a valid SSH public key: %w", err)
		}
	}

	return nil
}

// LoadSSHKey reads the public key at SSHKeyPath into SSHKey. A missing
// key file is an error: without it the VM would be unreachable.
func (c *VMConfig) LoadSSHKey() error {
	if c.SSHKeyPath == "" {
		return fmt.Errorf("ssh public key path is required")
	}

	data, err := os.ReadFile(c.SSHKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read SSH public key %s: %w", c.SSHKeyPath, err)
	}

	key := strings.TrimSpace(string(data))
	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
		return fmt.Errorf("%s is not a valid SSH public key: %w", c.SSHKeyPath, err)
	}

	c.SSHKey = key
	return nil
}

// DefaultSSHKeyPath returns the conventional public key location for the
// invoking user.
func DefaultSSHKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "id_rsa.pub")
}
