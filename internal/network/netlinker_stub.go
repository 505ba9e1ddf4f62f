//go:build !linux

package network

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/netns"
)

// RealNetlinker is a stub implementation of Netlinker.
type RealNetlinker struct{}

// NewNetlinker is only supported on Linux.
func NewNetlinker(joined *netns.Joined) (*RealNetlinker, error) {
	return nil, fmt.Errorf("network: netlink not supported on this platform")
}

func (r *RealNetlinker) Close() {}

func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return nil, fmt.Errorf("LinkByName not supported on this platform")
}

func (r *RealNetlinker) LinkList() ([]netlink.Link, error) {
	return nil, nil
}

func (r *RealNetlinker) LinkAdd(link netlink.Link) error {
	return nil
}

func (r *RealNetlinker) LinkDel(link netlink.Link) error {
	return nil
}

func (r *RealNetlinker) LinkSetUp(link netlink.Link) error {
	return nil
}

func (r *RealNetlinker) LinkSetDown(link netlink.Link) error {
	return nil
}

func (r *RealNetlinker) LinkSetMaster(slave, master netlink.Link) error {
	return nil
}

func (r *RealNetlinker) LinkSetNoMaster(link netlink.Link) error {
	return nil
}

func (r *RealNetlinker) LinkSetName(link netlink.Link, name string) error {
	return nil
}

func (r *RealNetlinker) LinkSetHardwareAddr(link netlink.Link, hwaddr net.HardwareAddr) error {
	return nil
}

func (r *RealNetlinker) LinkSetNsPid(link netlink.Link, pid int) error {
	return nil
}

func (r *RealNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return nil, nil
}

func (r *RealNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	return nil
}

func (r *RealNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	return nil
}
