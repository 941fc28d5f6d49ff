// Package naming provides infrastructure-level naming conventions for
// libvirt resources: volume naming patterns and MAC address generation.
//
// Volume names carry the owning VM name as a prefix so teardown can find
// every volume that belongs to a VM with a single prefix match.
package naming

import (
	"crypto/rand"
	"fmt"
	"net"
	"strings"
)

// qemuOUI is the locally administered OUI conventionally used for
// KVM/QEMU guest interfaces.
const qemuOUI = "52:54:00"

// RandomMAC generates a random MAC address with the 52:54:00 QEMU prefix.
func RandomMAC() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return fmt.Sprintf("%s:%02x:%02x:%02x", qemuOUI, buf[0], buf[1], buf[2]), nil
}

// ValidateMAC checks that a user-supplied MAC address is well formed.
// Returns the address in canonical lowercase colon-separated form.
func ValidateMAC(mac string) (string, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return "", fmt.Errorf("invalid MAC address %q: %w", mac, err)
	}
	if len(hw) != 6 {
		return "", fmt.Errorf("invalid MAC address %q: must be 48-bit", mac)
	}
	return strings.ToLower(hw.String()), nil
}

// VolumeNameBoot returns the volume name for a VM's boot disk.
// Format: {vmName}_boot.qcow2
func VolumeNameBoot(vmName string) string {
	return fmt.Sprintf("%s_boot.qcow2", vmName)
}

// VolumeNameCloudInit returns the volume name for a VM's cloud-init seed ISO.
// Format: {vmName}_cidata.iso
func VolumeNameCloudInit(vmName string) string {
	return fmt.Sprintf("%s_cidata.iso", vmName)
}

// VolumePrefix returns the prefix shared by all of a VM's volumes.
func VolumePrefix(vmName string) string {
	return vmName + "_"
}
