// Package vm provides high-level VM lifecycle operations.
//
// This package orchestrates the lower-level components (config, image,
// cloudinit, storage, libvirt) into the operations the CLI exposes:
//
//   - Create: provision a VM from a distro image and cloud-init seed
//   - Destroy: shut down a VM and remove its domain and volumes
//   - List: enumerate virtup-managed VMs and their state
//   - WaitForIP: poll the DHCP lease table until the VM has an address
//
// Error Handling:
//
// Creation uses best-effort cleanup on failure: partially created
// resources (volumes, the defined domain) are removed, and cleanup
// errors are logged rather than returned.
//
// All operations accept a context.Context for cancellation.
package vm
