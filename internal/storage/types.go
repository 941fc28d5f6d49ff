package storage

import "fmt"

// PoolType represents the type of storage pool backend. Only directory
// pools are created by virtup today; the type exists so pool inspection
// can report what it finds.
type PoolType string

const (
	PoolTypeDir   PoolType = "dir"   // Directory-based storage
	PoolTypeLVM   PoolType = "lvm"   // LVM volume group
	PoolTypeNFS   PoolType = "netfs" // NFS mount
	PoolTypeOther PoolType = "other" // Anything virtup does not manage
)

// VolumeFormat represents the disk format.
type VolumeFormat string

const (
	VolumeFormatQCOW2 VolumeFormat = "qcow2"
	VolumeFormatRaw   VolumeFormat = "raw"
	VolumeFormatISO   VolumeFormat = "iso" // stored as raw, named for clarity
)

// VolumeSpec specifies how to create a storage volume.
type VolumeSpec struct {
	// Name is the volume name (e.g. "web1_boot.qcow2").
	Name string
	// Format is the on-disk format.
	Format VolumeFormat
	// CapacityBytes is the volume's virtual size. For seed ISOs this is
	// the exact byte size of the image being uploaded.
	CapacityBytes uint64
	// BackingVolume optionally names a volume in BackingPool that the new
	// qcow2 volume is backed by.
	BackingVolume string
	// BackingPool is the pool the backing volume lives in. Defaults to
	// the pool the volume is created in.
	BackingPool string
	// BackingFormat is the backing volume's format. Defaults to qcow2,
	// which is what cloud images ship as.
	BackingFormat VolumeFormat
}

// Validate checks if the volume spec is valid.
func (v *VolumeSpec) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("volume name is required")
	}
	if v.Format == "" {
		return fmt.Errorf("volume format is required")
	}
	if v.CapacityBytes == 0 {
		return fmt.Errorf("volume capacity must be greater than 0")
	}
	if v.BackingVolume != "" && v.Format != VolumeFormatQCOW2 {
		return fmt.Errorf("backing volumes are only supported for qcow2 format")
	}
	return nil
}

// PoolInfo contains information about a storage pool.
type PoolInfo struct {
	Name       string
	Type       PoolType
	Path       string // pool path for dir-based pools
	UUID       string
	State      string
	Capacity   uint64 // bytes
	Allocation uint64 // bytes
	Available  uint64 // bytes
}

// CapacityGB returns the pool capacity in GiB.
func (p *PoolInfo) CapacityGB() float64 {
	return float64(p.Capacity) / (1024 * 1024 * 1024)
}

// AvailableGB returns the pool available space in GiB.
func (p *PoolInfo) AvailableGB() float64 {
	return float64(p.Available) / (1024 * 1024 * 1024)
}

// VolumeInfo contains information about a storage volume.
type VolumeInfo struct {
	Name       string
	Pool       string
	Path       string
	Capacity   uint64 // bytes
	Allocation uint64 // bytes
}

// CapacityGB returns the volume capacity in GiB.
func (v *VolumeInfo) CapacityGB() float64 {
	return float64(v.Capacity) / (1024 * 1024 * 1024)
}

// AllocationGB returns the volume allocation in GiB.
func (v *VolumeInfo) AllocationGB() float64 {
	return float64(v.Allocation) / (1024 * 1024 * 1024)
}

// Default pool configuration.
const (
	// DefaultImagesPool is the pool name for downloaded base images.
	DefaultImagesPool = "virtup-images"
	// DefaultVMsPool is the pool name for per-VM volumes.
	DefaultVMsPool = "virtup-vms"
	// DefaultImagesPath is the default path for base images.
	DefaultImagesPath = "/var/lib/libvirt/images/virtup/images"
	// DefaultVMsPath is the default path for VM volumes.
	DefaultVMsPath = "/var/lib/libvirt/images/virtup/vms"
)

// GBToBytes converts a size in GiB to bytes.
func GBToBytes(gb int) uint64 {
	return uint64(gb) * 1024 * 1024 * 1024
}
