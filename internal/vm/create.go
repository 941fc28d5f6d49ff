package vm

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/digitalocean/go-libvirt"

	"github.com/virtup/virtup/internal/cloudinit"
	"github.com/virtup/virtup/internal/config"
	"github.com/virtup/virtup/internal/image"
	virtuplibvirt "github.com/virtup/virtup/internal/libvirt"
	"github.com/virtup/virtup/internal/metadata"
	"github.com/virtup/virtup/internal/naming"
	"github.com/virtup/virtup/internal/storage"
)

// Create provisions a VM from the given configuration.
//
// This orchestrates the entire creation process:
//  1. Check the domain name is free (or tear down the old VM with Replace)
//  2. Ensure the virtup storage pools exist
//  3. Ensure the distro base image is present, downloading if needed
//  4. Create the boot disk backed by the base image
//  5. Generate the cloud-init seed ISO and upload it
//  6. Define and start the domain
//  7. Wait for a DHCP lease unless NoWait is set
//
// On any failure, attempts to clean up partially created resources.
func Create(ctx context.Context, cfg *config.VMConfig, socketPath string) error {
	log.Printf("Connecting to libvirt...")
	client, err := virtuplibvirt.ConnectWithContext(ctx, socketPath, 0)
	if err != nil {
		return fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("Warning: failed to close libvirt connection: %v", err)
		}
	}()

	fetcher, err := image.NewFetcher("")
	if err != nil {
		return fmt.Errorf("failed to create image fetcher: %w", err)
	}

	storageMgr := storage.NewManager(client.Libvirt())

	return createWithDeps(ctx, cfg, client.Libvirt(), storageMgr, fetcher)
}

// createWithDeps creates a VM with injected dependencies so tests can
// substitute mocks.
func createWithDeps(ctx context.Context, cfg *config.VMConfig, lv libvirtClient, sm storageManager, f imageFetcher) error {
	var (
		domainDefined  bool
		createdVolumes []string
	)

	var createErr error
	defer func() {
		if createErr != nil {
			cleanupWithDeps(ctx, cfg.Name, lv, sm, domainDefined, createdVolumes)
		}
	}()

	// Step 1: the name must be free.
	log.Printf("Checking if VM '%s' already exists...", cfg.Name)
	if _, err := lv.DomainLookupByName(cfg.Name); err == nil {
		if !cfg.Replace {
			createErr = fmt.Errorf("VM '%s' already exists (use --replace to tear it down first)", cfg.Name)
			return createErr
		}
		log.Printf("VM '%s' already exists, replacing...", cfg.Name)
		if createErr = destroyWithDeps(ctx, cfg.Name, lv, sm); createErr != nil {
			return fmt.Errorf("failed to replace existing VM: %w", createErr)
		}
	}

	// Step 2: storage pools.
	log.Printf("Ensuring storage pools exist...")
	if createErr = sm.EnsureDefaultPools(ctx); createErr != nil {
		return fmt.Errorf("failed to ensure storage pools: %w", createErr)
	}

	// Step 3: pick a MAC when none was given.
	if cfg.MAC == "" {
		var err error
		cfg.MAC, err = naming.RandomMAC()
		if err != nil {
			createErr = err
			return fmt.Errorf("failed to generate MAC address: %w", err)
		}
	}
	log.Printf("Using MAC address %s", cfg.MAC)

	// Step 4: base image.
	if createErr = ensureBaseImage(ctx, cfg, sm, f); createErr != nil {
		return createErr
	}

	// Step 5: boot disk backed by the base image. The backing store
	// must declare the base image's real format; a raw image declared
	// as qcow2 makes qemu misread the disk.
	baseFormat, err := sm.GetImageFormat(ctx, cfg.BaseImageName())
	if err != nil {
		createErr = err
		return fmt.Errorf("failed to determine base image format: %w", err)
	}

	log.Printf("Creating boot disk (%d GiB)...", cfg.DiskGB)
	bootSpec := storage.VolumeSpec{
		Name:          cfg.BootVolumeName(),
		Format:        storage.VolumeFormatQCOW2,
		CapacityBytes: storage.GBToBytes(cfg.DiskGB),
		BackingVolume: cfg.BaseImageName(),
		BackingPool:   storage.DefaultImagesPool,
		BackingFormat: baseFormat,
	}
	if createErr = sm.CreateVolume(ctx, storage.DefaultVMsPool, bootSpec); createErr != nil {
		return fmt.Errorf("failed to create boot disk: %w", createErr)
	}
	createdVolumes = append(createdVolumes, cfg.BootVolumeName())

	// Step 6: cloud-init seed ISO.
	log.Printf("Generating cloud-init seed ISO...")
	isoData, err := cloudinit.GenerateISO(cfg)
	if err != nil {
		createErr = err
		return fmt.Errorf("failed to generate cloud-init ISO: %w", err)
	}

	isoSpec := storage.VolumeSpec{
		Name:          cfg.CloudInitVolumeName(),
		Format:        storage.VolumeFormatISO,
		CapacityBytes: uint64(len(isoData)),
	}
	if createErr = sm.CreateVolume(ctx, storage.DefaultVMsPool, isoSpec); createErr != nil {
		return fmt.Errorf("failed to create cloud-init volume: %w", createErr)
	}
	createdVolumes = append(createdVolumes, cfg.CloudInitVolumeName())

	if createErr = sm.WriteVolumeData(ctx, storage.DefaultVMsPool, cfg.CloudInitVolumeName(), isoData); createErr != nil {
		return fmt.Errorf("failed to upload cloud-init ISO: %w", createErr)
	}

	// Step 7: define the domain.
	log.Printf("Defining domain...")
	domainXML, err := virtuplibvirt.GenerateDomainXML(cfg)
	if err != nil {
		createErr = err
		return fmt.Errorf("failed to generate domain XML: %w", err)
	}

	domain, err := lv.DomainDefineXML(domainXML)
	if err != nil {
		createErr = err
		return fmt.Errorf("failed to define domain: %w", err)
	}
	domainDefined = true

	if cfg.Autostart {
		log.Printf("Enabling autostart...")
		if createErr = lv.DomainSetAutostart(domain, 1); createErr != nil {
			return fmt.Errorf("failed to set autostart: %w", createErr)
		}
	}

	// Step 8: start it.
	log.Printf("Starting VM...")
	if createErr = lv.DomainCreate(domain); createErr != nil {
		return fmt.Errorf("failed to start domain: %w", createErr)
	}

	// Record how the VM was built in the domain metadata.
	record := &metadata.Record{
		Name:      cfg.Name,
		Distro:    cfg.Distro.Key,
		ImageName: cfg.BaseImageName(),
		LoginUser: cfg.User(),
		VCPUs:     cfg.VCPUs,
		MemoryMB:  cfg.MemoryMB,
		DiskGB:    cfg.DiskGB,
		Bridge:    cfg.Bridge,
		MAC:       cfg.MAC,
		CreatedAt: time.Now().UTC(),
	}
	if err := metadata.Store(lv, domain, record); err != nil {
		// The VM is already running; a missing record only degrades
		// listing output.
		log.Printf("Warning: failed to store creation record: %v", err)
	}

	log.Printf("VM '%s' created", cfg.Name)

	// Step 9: wait for the DHCP lease.
	if cfg.NoWait {
		log.Printf("Not waiting for an IP address (--no-wait)")
		return nil
	}

	log.Printf("Waiting up to %v for an IP address...", cfg.WaitTimeout)
	ip, err := WaitForIP(ctx, lv, domain, cfg.WaitTimeout)
	if err != nil {
		log.Printf("Warning: %v", err)
		log.Printf("The VM is running; check its IP later with 'virtup list'")
		return nil
	}

	log.Printf("VM '%s' is reachable at %s (login: %s)", cfg.Name, ip, cfg.User())
	return nil
}

// ensureBaseImage makes sure the backing image for cfg is present in the
// images pool, importing a local file or downloading the distro image as
// needed.
func ensureBaseImage(ctx context.Context, cfg *config.VMConfig, sm storageManager, f imageFetcher) error {
	imageName := cfg.BaseImageName()

	exists, err := sm.ImageExists(ctx, imageName)
	if err != nil {
		return fmt.Errorf("failed to check for base image: %w", err)
	}
	if exists {
		log.Printf("Base image %s already present", imageName)
		return nil
	}

	// An explicit --image pointing at a local file is imported directly.
	if cfg.Image != "" {
		if _, statErr := os.Stat(cfg.Image); statErr == nil {
			log.Printf("Importing image %s...", cfg.Image)
			if err := sm.ImportImage(ctx, cfg.Image, imageName); err != nil {
				return fmt.Errorf("failed to import image: %w", err)
			}
			return nil
		}
		return fmt.Errorf("image %q is neither a volume in the %s pool nor a local file", cfg.Image, storage.DefaultImagesPool)
	}

	log.Printf("Fetching %s base image...", cfg.Distro.Name)
	path, err := f.Fetch(ctx, cfg.Distro.URL, imageName)
	if err != nil {
		return fmt.Errorf("failed to download base image: %w", err)
	}

	log.Printf("Importing %s into the %s pool...", imageName, storage.DefaultImagesPool)
	if err := sm.ImportImage(ctx, path, imageName); err != nil {
		return fmt.Errorf("failed to import base image: %w", err)
	}

	return nil
}

// cleanupWithDeps removes partially created resources after a failed
// creation. Best-effort: errors are logged, never returned.
func cleanupWithDeps(ctx context.Context, vmName string, lv libvirtClient, sm storageManager, domainDefined bool, createdVolumes []string) {
	log.Printf("Cleaning up after failed VM creation...")

	if domainDefined && lv != nil {
		domain, err := lv.DomainLookupByName(vmName)
		if err != nil {
			log.Printf("Warning: failed to look up domain for cleanup: %v", err)
		} else {
			// Destroy fails when the domain never started. That is fine.
			if err := lv.DomainDestroy(domain); err != nil {
				log.Printf("Note: domain was not running: %v", err)
			}
			if err := lv.DomainUndefineFlags(domain, libvirt.DomainUndefineNvram); err != nil {
				log.Printf("Warning: failed to undefine domain: %v", err)
			}
		}
	}

	for _, volName := range createdVolumes {
		if err := sm.DeleteVolume(ctx, storage.DefaultVMsPool, volName); err != nil {
			log.Printf("Warning: failed to delete volume %s: %v", volName, err)
		}
	}

	log.Printf("Cleanup complete")
}
