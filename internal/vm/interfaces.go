package vm

import (
	"context"

	"github.com/digitalocean/go-libvirt"

	"github.com/virtup/virtup/internal/storage"
)

// libvirtClient defines the libvirt domain operations needed for VM
// management. In production this is satisfied by *libvirt.Libvirt; in
// tests by mock implementations.
type libvirtClient interface {
	DomainLookupByName(Name string) (libvirt.Domain, error)
	DomainDefineXML(XML string) (libvirt.Domain, error)
	DomainSetAutostart(Dom libvirt.Domain, Autostart int32) error
	DomainCreate(Dom libvirt.Domain) error
	DomainGetState(Dom libvirt.Domain, Flags uint32) (rState int32, rReason int32, err error)
	DomainGetInfo(Dom libvirt.Domain) (rState uint8, rMaxMem uint64, rMemory uint64, rNrVirtCPU uint16, rCPUTime uint64, err error)
	DomainGetAutostart(Dom libvirt.Domain) (int32, error)
	DomainShutdown(Dom libvirt.Domain) error
	DomainDestroy(Dom libvirt.Domain) error
	DomainUndefineFlags(Dom libvirt.Domain, Flags libvirt.DomainUndefineFlagsValues) error
	DomainInterfaceAddresses(Dom libvirt.Domain, Source uint32, Flags uint32) ([]libvirt.DomainInterface, error)
	DomainSetMetadata(Dom libvirt.Domain, Type int32, Metadata libvirt.OptString, Key libvirt.OptString, Uri libvirt.OptString, Flags libvirt.DomainModificationImpact) error
	DomainGetMetadata(Dom libvirt.Domain, Type int32, Uri libvirt.OptString, Flags libvirt.DomainModificationImpact) (string, error)
	ConnectListAllDomains(NeedResults int32, Flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
}

// storageManager defines the storage operations needed for VM
// management. Satisfied by *storage.Manager.
type storageManager interface {
	EnsureDefaultPools(ctx context.Context) error
	CreateVolume(ctx context.Context, poolName string, spec storage.VolumeSpec) error
	DeleteVolume(ctx context.Context, poolName, volumeName string) error
	WriteVolumeData(ctx context.Context, poolName, volumeName string, data []byte) error
	ListVolumesWithPrefix(ctx context.Context, poolName, prefix string) ([]storage.VolumeInfo, error)
	ImageExists(ctx context.Context, imageName string) (bool, error)
	ImportImage(ctx context.Context, filePath, imageName string) error
	GetImageFormat(ctx context.Context, imageName string) (storage.VolumeFormat, error)
}

// imageFetcher downloads distro cloud images into the local cache.
// Satisfied by *image.Fetcher.
type imageFetcher interface {
	Fetch(ctx context.Context, url, filename string) (string, error)
}
