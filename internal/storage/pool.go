package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalocean/go-libvirt"
	libvirtxml "libvirt.org/go/libvirtxml"
)

// EnsurePool ensures a directory storage pool exists, creating it if
// necessary. If the pool already exists this is a no-op.
func (m *Manager) EnsurePool(ctx context.Context, name, path string) error {
	_, err := m.client.StoragePoolLookupByName(name)
	if err == nil {
		return nil
	}

	return m.CreatePool(ctx, name, path)
}

// CreatePool defines, builds, starts, and autostarts a directory pool.
// Returns an error if the pool already exists.
func (m *Manager) CreatePool(ctx context.Context, name, path string) error {
	poolXML, err := generateDirPoolXML(name, path)
	if err != nil {
		return fmt.Errorf("failed to generate pool XML: %w", err)
	}

	pool, err := m.client.StoragePoolDefineXML(poolXML, 0)
	if err != nil {
		return fmt.Errorf("failed to define pool: %w", err)
	}

	// Build creates the backing directory.
	if err := m.client.StoragePoolBuild(pool, 0); err != nil {
		_ = m.client.StoragePoolUndefine(pool)
		return fmt.Errorf("failed to build pool: %w", err)
	}

	if err := m.client.StoragePoolCreate(pool, 0); err != nil {
		_ = m.client.StoragePoolUndefine(pool)
		return fmt.Errorf("failed to start pool: %w", err)
	}

	if err := m.client.StoragePoolSetAutostart(pool, 1); err != nil {
		return fmt.Errorf("pool created but failed to set autostart: %w", err)
	}

	return nil
}

// DeletePool stops and undefines a storage pool. If force is true, all
// volumes in the pool are deleted first. The default virtup pools cannot
// be deleted.
func (m *Manager) DeletePool(ctx context.Context, name string, force bool) error {
	if name == DefaultImagesPool || name == DefaultVMsPool {
		return fmt.Errorf("cannot delete default pool: %s", name)
	}

	pool, err := m.client.StoragePoolLookupByName(name)
	if err != nil {
		return fmt.Errorf("pool not found: %w", err)
	}

	if force {
		volumes, _, err := m.client.StoragePoolListAllVolumes(pool, 1, 0)
		if err != nil {
			return fmt.Errorf("failed to list volumes: %w", err)
		}

		for _, vol := range volumes {
			if err := m.client.StorageVolDelete(vol, 0); err != nil {
				// Keep deleting the rest.
				continue
			}
		}
	}

	poolState, _, _, _, err := m.client.StoragePoolGetInfo(pool)
	if err != nil {
		return fmt.Errorf("failed to get pool info: %w", err)
	}

	if libvirt.StoragePoolState(poolState) == libvirt.StoragePoolRunning {
		if err := m.client.StoragePoolDestroy(pool); err != nil {
			return fmt.Errorf("failed to stop pool: %w", err)
		}
	}

	if err := m.client.StoragePoolUndefine(pool); err != nil {
		return fmt.Errorf("failed to undefine pool: %w", err)
	}

	return nil
}

// GetPoolInfo gets detailed information about a storage pool.
func (m *Manager) GetPoolInfo(ctx context.Context, name string) (*PoolInfo, error) {
	pool, err := m.client.StoragePoolLookupByName(name)
	if err != nil {
		return nil, fmt.Errorf("pool not found: %w", err)
	}

	poolState, capacity, allocation, available, err := m.client.StoragePoolGetInfo(pool)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool info: %w", err)
	}

	xmlDesc, err := m.client.StoragePoolGetXMLDesc(pool, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool XML: %w", err)
	}

	var poolDef libvirtxml.StoragePool
	if err := poolDef.Unmarshal(xmlDesc); err != nil {
		return nil, fmt.Errorf("failed to parse pool XML: %w", err)
	}

	poolType := PoolTypeOther
	poolPath := ""
	switch poolDef.Type {
	case "dir":
		poolType = PoolTypeDir
	case "lvm":
		poolType = PoolTypeLVM
	case "netfs":
		poolType = PoolTypeNFS
	}
	if poolDef.Target != nil {
		poolPath = poolDef.Target.Path
	}

	stateStr := "unknown"
	switch libvirt.StoragePoolState(poolState) {
	case libvirt.StoragePoolInactive:
		stateStr = "inactive"
	case libvirt.StoragePoolBuilding:
		stateStr = "building"
	case libvirt.StoragePoolRunning:
		stateStr = "running"
	case libvirt.StoragePoolDegraded:
		stateStr = "degraded"
	case libvirt.StoragePoolInaccessible:
		stateStr = "inaccessible"
	}

	return &PoolInfo{
		Name:       pool.Name,
		Type:       poolType,
		Path:       poolPath,
		UUID:       formatUUID(pool.UUID),
		State:      stateStr,
		Capacity:   capacity,
		Allocation: allocation,
		Available:  available,
	}, nil
}

// RefreshPool rescans a storage pool so libvirt notices volumes created
// or removed behind its back.
func (m *Manager) RefreshPool(ctx context.Context, name string) error {
	pool, err := m.client.StoragePoolLookupByName(name)
	if err != nil {
		return fmt.Errorf("pool not found: %w", err)
	}

	if err := m.client.StoragePoolRefresh(pool, 0); err != nil {
		return fmt.Errorf("failed to refresh pool: %w", err)
	}

	return nil
}

// generateDirPoolXML generates XML for a directory-based storage pool.
func generateDirPoolXML(name, path string) (string, error) {
	uid, gid, _ := GetQEMUUserGroup()

	pool := &libvirtxml.StoragePool{
		Type: "dir",
		Name: name,
		Target: &libvirtxml.StoragePoolTarget{
			Path: path,
			Permissions: &libvirtxml.StoragePoolTargetPermissions{
				Owner: uid,
				Group: gid,
				Mode:  "0755",
			},
		},
	}

	xmlBytes, err := pool.Marshal()
	if err != nil {
		return "", err
	}

	xml := strings.TrimPrefix(string(xmlBytes), "<?xml version=\"1.0\" encoding=\"UTF-8\"?>")
	return strings.TrimSpace(xml), nil
}

// formatUUID renders a libvirt UUID in the canonical 8-4-4-4-12 hex form.
func formatUUID(uuid libvirt.UUID) string {
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		uuid[0], uuid[1], uuid[2], uuid[3],
		uuid[4], uuid[5],
		uuid[6], uuid[7],
		uuid[8], uuid[9],
		uuid[10], uuid[11], uuid[12], uuid[13], uuid[14], uuid[15])
}
