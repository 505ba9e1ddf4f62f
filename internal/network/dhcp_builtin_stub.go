//go:build !linux

package network

import "fmt"

func (m *Manager) builtinLease(iface string) error {
	return fmt.Errorf("builtin dhcp client not supported on this platform")
}
