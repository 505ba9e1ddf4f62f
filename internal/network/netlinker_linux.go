//go:build linux

package network

import (
	"errors"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/netns"
)

// RealNetlinker is the production Netlinker. It wraps a single netlink
// handle whose socket is bound to the network namespace the process joined
// at bootstrap; the handle is opened once and owned by the manager for the
// process lifetime.
type RealNetlinker struct {
	handle *netlink.Handle
}

// NewNetlinker opens the kernel control channel. It requires the namespace
// join token so a handle can never be created before the bootstrap ran.
func NewNetlinker(joined *netns.Joined) (*RealNetlinker, error) {
	if joined == nil {
		return nil, fmt.Errorf("network: refusing to open netlink handle before namespace join")
	}
	handle, err := netlink.NewHandle()
	if err != nil {
		return nil, fmt.Errorf("network: failed to open netlink handle: %w", err)
	}
	return &RealNetlinker{handle: handle}, nil
}

// Close releases the netlink socket.
func (r *RealNetlinker) Close() {
	if r.handle != nil {
		r.handle.Close()
	}
}

func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	link, err := r.handle.LinkByName(name)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("link %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return link, nil
}

func (r *RealNetlinker) LinkList() ([]netlink.Link, error) {
	return r.handle.LinkList()
}

func (r *RealNetlinker) LinkAdd(link netlink.Link) error {
	return r.handle.LinkAdd(link)
}

func (r *RealNetlinker) LinkDel(link netlink.Link) error {
	return r.handle.LinkDel(link)
}

func (r *RealNetlinker) LinkSetUp(link netlink.Link) error {
	return r.handle.LinkSetUp(link)
}

func (r *RealNetlinker) LinkSetDown(link netlink.Link) error {
	return r.handle.LinkSetDown(link)
}

func (r *RealNetlinker) LinkSetMaster(slave, master netlink.Link) error {
	return r.handle.LinkSetMaster(slave, master)
}

func (r *RealNetlinker) LinkSetNoMaster(link netlink.Link) error {
	return r.handle.LinkSetNoMaster(link)
}

func (r *RealNetlinker) LinkSetName(link netlink.Link, name string) error {
	return r.handle.LinkSetName(link, name)
}

func (r *RealNetlinker) LinkSetHardwareAddr(link netlink.Link, hwaddr net.HardwareAddr) error {
	return r.handle.LinkSetHardwareAddr(link, hwaddr)
}

func (r *RealNetlinker) LinkSetNsPid(link netlink.Link, pid int) error {
	return r.handle.LinkSetNsPid(link, pid)
}

func (r *RealNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return r.handle.AddrList(link, family)
}

func (r *RealNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	return r.handle.AddrAdd(link, addr)
}

func (r *RealNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	return r.handle.AddrDel(link, addr)
}
