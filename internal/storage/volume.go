package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	libvirtxml "libvirt.org/go/libvirtxml"
)

// CreateVolume creates a new volume in the specified pool.
func (m *Manager) CreateVolume(ctx context.Context, poolName string, spec VolumeSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid volume spec: %w", err)
	}

	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return fmt.Errorf("pool not found: %w", err)
	}

	volumeXML, err := m.generateVolumeXML(ctx, poolName, spec)
	if err != nil {
		return fmt.Errorf("failed to generate volume XML: %w", err)
	}

	if _, err := m.client.StorageVolCreateXML(pool, volumeXML, 0); err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}

	return nil
}

// DeleteVolume deletes a volume from the specified pool.
func (m *Manager) DeleteVolume(ctx context.Context, poolName, volumeName string) error {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return fmt.Errorf("pool not found: %w", err)
	}

	vol, err := m.client.StorageVolLookupByName(pool, volumeName)
	if err != nil {
		return fmt.Errorf("volume not found: %w", err)
	}

	if err := m.client.StorageVolDelete(vol, 0); err != nil {
		return fmt.Errorf("failed to delete volume: %w", err)
	}

	return nil
}

// ListVolumes lists all volumes in the specified pool.
func (m *Manager) ListVolumes(ctx context.Context, poolName string) ([]VolumeInfo, error) {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return nil, fmt.Errorf("pool not found: %w", err)
	}

	volumes, _, err := m.client.StoragePoolListAllVolumes(pool, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}

	var volumeInfos []VolumeInfo
	for _, vol := range volumes {
		path, err := m.client.StorageVolGetPath(vol)
		if err != nil {
			// Skip volumes we can't inspect.
			continue
		}

		_, capacity, allocation, err := m.client.StorageVolGetInfo(vol)
		if err != nil {
			continue
		}

		volumeInfos = append(volumeInfos, VolumeInfo{
			Name:       vol.Name,
			Path:       path,
			Pool:       poolName,
			Capacity:   capacity,
			Allocation: allocation,
		})
	}

	return volumeInfos, nil
}

// ListVolumesWithPrefix lists the volumes in a pool whose names begin
// with prefix. Used to find every volume belonging to one VM.
func (m *Manager) ListVolumesWithPrefix(ctx context.Context, poolName, prefix string) ([]VolumeInfo, error) {
	volumes, err := m.ListVolumes(ctx, poolName)
	if err != nil {
		return nil, err
	}

	var matched []VolumeInfo
	for _, vol := range volumes {
		if strings.HasPrefix(vol.Name, prefix) {
			matched = append(matched, vol)
		}
	}
	return matched, nil
}

// GetVolumePath gets the full filesystem path for a volume.
func (m *Manager) GetVolumePath(ctx context.Context, poolName, volumeName string) (string, error) {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return "", fmt.Errorf("pool not found: %w", err)
	}

	vol, err := m.client.StorageVolLookupByName(pool, volumeName)
	if err != nil {
		return "", fmt.Errorf("volume not found: %w", err)
	}

	path, err := m.client.StorageVolGetPath(vol)
	if err != nil {
		return "", fmt.Errorf("failed to get volume path: %w", err)
	}

	return path, nil
}

// GetVolumeFormat reports the on-disk format of a volume as recorded in
// its libvirt definition.
func (m *Manager) GetVolumeFormat(ctx context.Context, poolName, volumeName string) (VolumeFormat, error) {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return "", fmt.Errorf("pool not found: %w", err)
	}

	vol, err := m.client.StorageVolLookupByName(pool, volumeName)
	if err != nil {
		return "", fmt.Errorf("volume not found: %w", err)
	}

	desc, err := m.client.StorageVolGetXMLDesc(vol, 0)
	if err != nil {
		return "", fmt.Errorf("failed to get volume XML: %w", err)
	}

	var volXML libvirtxml.StorageVolume
	if err := volXML.Unmarshal(desc); err != nil {
		return "", fmt.Errorf("failed to parse volume XML: %w", err)
	}

	// libvirt treats a volume without an explicit format as raw.
	if volXML.Target == nil || volXML.Target.Format == nil || volXML.Target.Format.Type == "" {
		return VolumeFormatRaw, nil
	}
	return VolumeFormat(volXML.Target.Format.Type), nil
}

// VolumeExists checks whether a volume exists in a pool.
func (m *Manager) VolumeExists(ctx context.Context, poolName, volumeName string) (bool, error) {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return false, fmt.Errorf("pool not found: %w", err)
	}

	if _, err := m.client.StorageVolLookupByName(pool, volumeName); err != nil {
		// Lookup failure means the volume is absent.
		return false, nil
	}

	return true, nil
}

// WriteVolumeData uploads data to a volume (used for seed ISOs and
// imported images).
func (m *Manager) WriteVolumeData(ctx context.Context, poolName, volumeName string, data []byte) error {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return fmt.Errorf("pool not found: %w", err)
	}

	vol, err := m.client.StorageVolLookupByName(pool, volumeName)
	if err != nil {
		return fmt.Errorf("volume not found: %w", err)
	}

	reader := bytes.NewReader(data)
	if err := m.client.StorageVolUpload(vol, reader, 0, uint64(len(data)), 0); err != nil {
		return fmt.Errorf("failed to upload data to volume: %w", err)
	}

	return nil
}

// generateVolumeXML generates XML for a storage volume.
func (m *Manager) generateVolumeXML(ctx context.Context, poolName string, spec VolumeSpec) (string, error) {
	uid, gid, _ := GetQEMUUserGroup()

	format := spec.Format
	if format == VolumeFormatISO {
		// libvirt has no iso volume format; seed ISOs are stored raw.
		format = VolumeFormatRaw
	}

	vol := &libvirtxml.StorageVolume{
		Type: "file",
		Name: spec.Name,
		Capacity: &libvirtxml.StorageVolumeSize{
			Value: spec.CapacityBytes,
			Unit:  "B",
		},
		Target: &libvirtxml.StorageVolumeTarget{
			Format: &libvirtxml.StorageVolumeTargetFormat{
				Type: string(format),
			},
			Permissions: &libvirtxml.StorageVolumeTargetPermissions{
				Owner: uid,
				Group: gid,
				Mode:  "0644",
			},
		},
	}

	if spec.BackingVolume != "" {
		backingPool := spec.BackingPool
		if backingPool == "" {
			backingPool = poolName
		}
		backingPath, err := m.GetVolumePath(ctx, backingPool, spec.BackingVolume)
		if err != nil {
			return "", fmt.Errorf("failed to get backing volume path: %w", err)
		}

		backingFormat := spec.BackingFormat
		if backingFormat == "" {
			backingFormat = VolumeFormatQCOW2
		}

		vol.BackingStore = &libvirtxml.StorageVolumeBackingStore{
			Path: backingPath,
			Format: &libvirtxml.StorageVolumeTargetFormat{
				Type: string(backingFormat),
			},
		}
	}

	xmlBytes, err := vol.Marshal()
	if err != nil {
		return "", err
	}

	xml := strings.TrimPrefix(string(xmlBytes), "<?xml version=\"1.0\" encoding=\"UTF-8\"?>")
	return strings.TrimSpace(xml), nil
}
