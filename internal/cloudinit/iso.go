package cloudinit

import (
	"bytes"
	"fmt"

	"github.com/kdomanski/iso9660"

	"github.com/virtup/virtup/internal/config"
)

// GenerateISO creates a cloud-init NoCloud seed ISO from the VM configuration.
//
// The generated ISO contains two files in the root directory:
//   - user-data: cloud-config YAML with hostname, login user, SSH key, timezone
//   - meta-data: instance metadata (instance-id, local-hostname)
//
// The ISO volume label is "CIDATA" as required by the NoCloud datasource.
//
// Returns the ISO image as a byte slice, ready to be uploaded to libvirt
// storage.
func GenerateISO(cfg *config.VMConfig) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("VM configuration cannot be nil")
	}

	userData, err := GenerateUserData(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user-data: %w", err)
	}

	metaData, err := GenerateMetaData(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meta-data: %w", err)
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		// Cleanup removes the writer's scratch files. The ISO already
		// lives in the buffer at this point, so errors are ignored.
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader([]byte(userData)), "user-data"); err != nil {
		return nil, fmt.Errorf("failed to add user-data: %w", err)
	}

	if err := writer.AddFile(bytes.NewReader([]byte(metaData)), "meta-data"); err != nil {
		return nil, fmt.Errorf("failed to add meta-data: %w", err)
	}

	var buf bytes.Buffer
	// The volume identifier must be the uppercase string CIDATA for the
	// NoCloud datasource to find the seed.
	if err := writer.WriteTo(&buf, "CIDATA"); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}
