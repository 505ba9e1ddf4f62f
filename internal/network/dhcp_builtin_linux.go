//go:build linux

package network

import (
	"context"
	"fmt"
	"net"

	"github.com/insomniacslk/dhcp/dhcpv4/nclient4"
)

// builtinLease performs a one-shot DHCPv4 DORA exchange on the interface and
// binds the leased address. Used when the agent is configured with the
// builtin client instead of an external binary; renewal is the caller's
// problem, matching the fire-and-observe contract of the external path.
func (m *Manager) builtinLease(iface string) error {
	m.log.Debug("starting builtin dhcp exchange", "iface", iface)

	client, err := nclient4.New(iface)
	if err != nil {
		return fmt.Errorf("failed to create dhcp client for %s: %w", iface, err)
	}
	defer client.Close()

	lease, err := client.Request(context.Background())
	if err != nil {
		return fmt.Errorf("dhcp handshake failed on %s: %w", iface, err)
	}

	ip := lease.ACK.YourIPAddr
	mask := lease.ACK.SubnetMask()
	if mask == nil {
		mask = ip.DefaultMask()
	}
	prefixLen, _ := net.IPMask(mask).Size()
	m.log.Info("dhcp lease acquired", "iface", iface, "ip", ip, "prefix", prefixLen)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addAddress(iface, ip, prefixLen)
}
