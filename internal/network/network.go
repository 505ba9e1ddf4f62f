package network

import (
	"errors"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// ErrNotFound reports that a named link, master, or address was absent at
// resolution time. It is a normal failure result surfaced to the caller,
// never an internal crash.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is an absence result.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Family tags an address as IPv4 or IPv6.
type Family int

const (
	FamilyV4 Family = 4
	FamilyV6 Family = 6
)

func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "inet"
	case FamilyV6:
		return "inet6"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Address is an IP address bound to a link.
type Address struct {
	IP        net.IP
	PrefixLen int
	Family    Family
}

func (a Address) String() string {
	return fmt.Sprintf("%s/%d", a.IP, a.PrefixLen)
}

// addressFromNetlink flattens a kernel address entry into an Address.
// Entries that are neither 4 nor 16 bytes (link-layer and friends) are
// reported as not ok and skipped by callers.
func addressFromNetlink(a netlink.Addr) (Address, bool) {
	if a.IPNet == nil || a.IPNet.IP == nil {
		return Address{}, false
	}
	prefix, _ := a.IPNet.Mask.Size()
	if ip4 := a.IPNet.IP.To4(); ip4 != nil {
		return Address{IP: ip4, PrefixLen: prefix, Family: FamilyV4}, true
	}
	if ip16 := a.IPNet.IP.To16(); ip16 != nil {
		return Address{IP: ip16, PrefixLen: prefix, Family: FamilyV6}, true
	}
	return Address{}, false
}

// Netlinker is an interface that abstracts netlink interactions.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
	LinkAdd(link netlink.Link) error
	LinkDel(link netlink.Link) error
	LinkSetUp(link netlink.Link) error
	LinkSetDown(link netlink.Link) error
	LinkSetMaster(slave, master netlink.Link) error
	LinkSetNoMaster(link netlink.Link) error
	LinkSetName(link netlink.Link, name string) error
	LinkSetHardwareAddr(link netlink.Link, hwaddr net.HardwareAddr) error
	LinkSetNsPid(link netlink.Link, pid int) error

	AddrList(link netlink.Link, family int) ([]netlink.Addr, error)
	AddrAdd(link netlink.Link, addr *netlink.Addr) error
	AddrDel(link netlink.Link, addr *netlink.Addr) error
}
