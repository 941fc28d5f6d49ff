// Package storage manages libvirt storage pools and volumes for virtup.
//
// Two directory pools hold everything the tool creates:
//
//   - virtup-images: downloaded distribution cloud images, used as backing
//     files for VM boot disks
//   - virtup-vms: per-VM volumes (boot disk and cloud-init seed ISO)
//
// Boot disks are qcow2 volumes backed by a base image volume, so creating
// a VM never copies the image; the volume's capacity is simply set to the
// requested disk size and the guest filesystem grows into it on first boot.
//
// The Manager type coordinates all operations through a consumer-side
// LibvirtClient interface satisfied by *libvirt.Libvirt, which keeps the
// package testable with in-memory mocks.
package storage
