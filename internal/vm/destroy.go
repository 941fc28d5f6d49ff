package vm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/digitalocean/go-libvirt"

	virtuplibvirt "github.com/virtup/virtup/internal/libvirt"
	"github.com/virtup/virtup/internal/naming"
	"github.com/virtup/virtup/internal/storage"
)

const (
	// shutdownTimeout is how long to wait for graceful shutdown before
	// forcing the domain off.
	shutdownTimeout = 5 * time.Second

	// Domain states from libvirt VIR_DOMAIN_* constants.
	domainStateRunning = 1
	domainStateShutoff = 5
)

// Destroy tears down a VM by name.
//
// The process:
//  1. Look up the domain
//  2. Graceful shutdown if running, force destroy after a short wait
//  3. Undefine the domain (with NVRAM cleanup)
//  4. Delete all volumes belonging to the VM
//
// Volume cleanup is best-effort; failures are logged and the operation
// continues. Returns an error if the VM doesn't exist or a libvirt
// operation fails.
func Destroy(ctx context.Context, vmName, socketPath string) error {
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

	storageMgr := storage.NewManager(client.Libvirt())

	return destroyWithDeps(ctx, vmName, client.Libvirt(), storageMgr)
}

// destroyWithDeps destroys a VM with injected dependencies.
func destroyWithDeps(ctx context.Context, vmName string, lv libvirtClient, sm storageManager) error {
	// VMs are created with trimmed, lowercased names; match lookups the
	// same way so 'destroy Web1' finds web1.
	vmName = strings.ToLower(strings.TrimSpace(vmName))

	log.Printf("Looking up VM '%s'...", vmName)
	domain, err := lv.DomainLookupByName(vmName)
	if err != nil {
		return fmt.Errorf("VM '%s' not found: %w", vmName, err)
	}

	state, _, err := lv.DomainGetState(domain, 0)
	if err != nil {
		return fmt.Errorf("failed to get VM state: %w", err)
	}

	needsForceDestroy := false
	switch {
	case state == domainStateRunning:
		log.Printf("VM is running, attempting graceful shutdown...")
		if err := lv.DomainShutdown(domain); err != nil {
			log.Printf("Warning: graceful shutdown failed: %v", err)
			needsForceDestroy = true
		} else {
			needsForceDestroy = !waitForShutoff(ctx, lv, domain)
		}
	case state != domainStateShutoff:
		// A paused or blocked guest cannot process an ACPI shutdown
		// request, so skip straight to destroying it.
		log.Printf("VM is active but not running (state %d), forcing off...", state)
		needsForceDestroy = true
	}

	if needsForceDestroy {
		currentState, _, err := lv.DomainGetState(domain, 0)
		if err != nil {
			log.Printf("Warning: failed to check state before destroy: %v", err)
		}
		if err == nil && currentState != domainStateShutoff {
			log.Printf("Force destroying VM...")
			if err := lv.DomainDestroy(domain); err != nil {
				log.Printf("Warning: force destroy failed: %v", err)
			}
		}
	}

	log.Printf("Undefining domain...")
	if err := lv.DomainUndefineFlags(domain, libvirt.DomainUndefineNvram); err != nil {
		return fmt.Errorf("failed to undefine domain: %w", err)
	}

	// Delete every volume carrying the VM's name prefix. Base images in
	// the images pool are shared and stay.
	log.Printf("Cleaning up storage volumes...")
	deletedCount := 0
	volumes, err := sm.ListVolumesWithPrefix(ctx, storage.DefaultVMsPool, naming.VolumePrefix(vmName))
	if err != nil {
		log.Printf("Warning: failed to list volumes: %v", err)
	} else {
		for _, vol := range volumes {
			log.Printf("Deleting volume %s...", vol.Name)
			if err := sm.DeleteVolume(ctx, storage.DefaultVMsPool, vol.Name); err != nil {
				log.Printf("Warning: failed to delete volume %s: %v", vol.Name, err)
			} else {
				deletedCount++
			}
		}
	}

	log.Printf("VM '%s' destroyed (%d volumes deleted)", vmName, deletedCount)
	return nil
}

// waitForShutoff polls the domain state until it reaches shutoff or the
// shutdown timeout passes. Reports whether the domain shut down.
func waitForShutoff(ctx context.Context, lv libvirtClient, domain libvirt.Domain) bool {
	log.Printf("Waiting up to %v for graceful shutdown...", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-shutdownCtx.Done():
			log.Printf("Graceful shutdown timed out")
			return false
		case <-ticker.C:
			state, _, err := lv.DomainGetState(domain, 0)
			if err != nil {
				log.Printf("Warning: failed to check shutdown state: %v", err)
				return false
			}
			if state == domainStateShutoff {
				log.Printf("VM shut down gracefully")
				return true
			}
		}
	}
}
