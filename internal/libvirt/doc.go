// Package libvirt provides a client wrapper for interacting with libvirt.
//
// This package wraps github.com/digitalocean/go-libvirt to provide:
//   - Connection management (connect, disconnect, ping)
//   - Domain XML generation from VM configurations
//
// The Client type manages the connection lifecycle while exposing the
// underlying *libvirt.Libvirt for packages that need direct access to the
// libvirt API.
//
// Consumer-Side Interfaces:
//
// This package does not define interfaces. Instead, consumers
// (internal/vm, internal/storage, internal/metadata) define their own
// client interfaces specifying only the operations they need. The
// *libvirt.Libvirt type satisfies these interfaces implicitly, enabling
// clean dependency injection and mock-based testing.
package libvirt
