package vm

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
)

// ipPollInterval is how often the DHCP lease table is checked while
// waiting for a VM's address.
const ipPollInterval = 2 * time.Second

// WaitForIP polls the domain's DHCP leases until an IPv4 address shows
// up or the timeout passes. Returns the first address found.
func WaitForIP(ctx context.Context, lv libvirtClient, domain libvirt.Domain, timeout time.Duration) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(ipPollInterval)
	defer ticker.Stop()

	for {
		if ips := domainIPs(lv, domain); len(ips) > 0 {
			return ips[0], nil
		}

		select {
		case <-waitCtx.Done():
			return "", fmt.Errorf("no IP address for '%s' after %v: %w", domain.Name, timeout, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// domainIPs returns the IPv4 addresses the domain holds DHCP leases for.
// An error (typically: domain not running yet, or no lease recorded)
// yields an empty slice.
func domainIPs(lv libvirtClient, domain libvirt.Domain) []string {
	ifaces, err := lv.DomainInterfaceAddresses(domain, uint32(libvirt.DomainInterfaceAddressesSrcLease), 0)
	if err != nil {
		return nil
	}

	var ips []string
	for _, iface := range ifaces {
		for _, addr := range iface.Addrs {
			if addr.Type == int32(libvirt.IPAddrTypeIpv4) {
				ips = append(ips, addr.Addr)
			}
		}
	}
	return ips
}
