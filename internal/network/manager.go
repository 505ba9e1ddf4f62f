package network

import (
	"fmt"
	"net"
	"os/exec"
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/logging"
)

// DHCPBuiltin selects the in-process DHCPv4 client instead of an external
// binary.
const DHCPBuiltin = "builtin"

// Manager executes virtual network operations against the kernel control
// channel. All operations, including read-only ones, serialize on the mutex:
// the netlink handle is a single owned resource and is not assumed safe for
// concurrent callers.
type Manager struct {
	mu sync.Mutex
	nl Netlinker

	log        *logging.Logger
	dhcpClient string

	// runDHCP acquires a lease for an interface. Field for testability.
	runDHCP func(iface string) error
}

// NewManager creates a manager owning the given kernel control channel.
// dhcpClient is the external DHCP client binary, or [DHCPBuiltin].
func NewManager(nl Netlinker, dhcpClient string) *Manager {
	m := &Manager{
		nl:         nl,
		log:        logging.WithComponent("network"),
		dhcpClient: dhcpClient,
	}
	m.runDHCP = m.acquireLease
	return m
}

// resolve looks a link up by name against live kernel state. Callers hold
// the lock; the returned link is only valid for the current operation.
func (m *Manager) resolve(name string) (netlink.Link, error) {
	return m.nl.LinkByName(name)
}

// CreateBridge creates a bridge link, left administratively down.
func (m *Manager) CreateBridge(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBridge(name)
}

func (m *Manager) createBridge(name string) error {
	m.log.Debug("create bridge", "name", name)
	bridge := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := m.nl.LinkAdd(bridge); err != nil {
		return fmt.Errorf("failed to create bridge %s: %w", name, err)
	}
	return nil
}

// CreateVeth creates a linked veth pair.
func (m *Manager) CreateVeth(inside, outside string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createVeth(inside, outside)
}

func (m *Manager) createVeth(inside, outside string) error {
	m.log.Debug("create veth", "inside", inside, "outside", outside)
	veth := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: inside},
		PeerName:  outside,
	}
	if err := m.nl.LinkAdd(veth); err != nil {
		return fmt.Errorf("failed to create veth pair %s/%s: %w", inside, outside, err)
	}
	return nil
}

// CreateVLAN creates an 802.1Q VLAN sub-interface on an existing parent.
func (m *Manager) CreateVLAN(name, parent string, tag uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createVLAN(name, parent, tag)
}

func (m *Manager) createVLAN(name, parent string, tag uint16) error {
	m.log.Debug("create vlan", "name", name, "parent", parent, "tag", tag)
	parentLink, err := m.resolve(parent)
	if err != nil {
		return err
	}
	vlan := &netlink.Vlan{
		LinkAttrs: netlink.LinkAttrs{
			Name:        name,
			ParentIndex: parentLink.Attrs().Index,
		},
		VlanId:       int(tag),
		VlanProtocol: netlink.VLAN_PROTOCOL_8021Q,
	}
	if err := m.nl.LinkAdd(vlan); err != nil {
		return fmt.Errorf("failed to create vlan %s on %s: %w", name, parent, err)
	}
	return nil
}

// CreateMcastVXLAN creates a VXLAN device using a multicast overlay.
func (m *Manager) CreateMcastVXLAN(name, parent string, vni uint32, group net.IP, port uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createMcastVXLAN(name, parent, vni, group, port)
}

func (m *Manager) createMcastVXLAN(name, parent string, vni uint32, group net.IP, port uint16) error {
	m.log.Debug("create mcast vxlan", "name", name, "parent", parent, "vni", vni, "group", group, "port", port)
	parentLink, err := m.resolve(parent)
	if err != nil {
		return err
	}
	vxlan := &netlink.Vxlan{
		LinkAttrs:    netlink.LinkAttrs{Name: name},
		VxlanId:      int(vni),
		VtepDevIndex: parentLink.Attrs().Index,
		Group:        group,
		Port:         int(port),
	}
	if err := m.nl.LinkAdd(vxlan); err != nil {
		return fmt.Errorf("failed to create vxlan %s on %s: %w", name, parent, err)
	}
	return nil
}

// CreatePtpVXLAN creates a VXLAN device with unicast tunnel endpoints.
// Mixed-family endpoints are rejected before any kernel call is attempted.
func (m *Manager) CreatePtpVXLAN(name, parent string, vni uint32, local, remote net.IP, port uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createPtpVXLAN(name, parent, vni, local, remote, port)
}

func (m *Manager) createPtpVXLAN(name, parent string, vni uint32, local, remote net.IP, port uint16) error {
	m.log.Debug("create ptp vxlan", "name", name, "parent", parent, "vni", vni,
		"local", local, "remote", remote, "port", port)
	if (local.To4() == nil) != (remote.To4() == nil) {
		return fmt.Errorf("vxlan %s: local %s and remote %s must be the same address family", name, local, remote)
	}
	parentLink, err := m.resolve(parent)
	if err != nil {
		return err
	}
	vxlan := &netlink.Vxlan{
		LinkAttrs:    netlink.LinkAttrs{Name: name},
		VxlanId:      int(vni),
		VtepDevIndex: parentLink.Attrs().Index,
		SrcAddr:      local,
		Group:        remote,
		Port:         int(port),
	}
	if err := m.nl.LinkAdd(vxlan); err != nil {
		return fmt.Errorf("failed to create vxlan %s on %s: %w", name, parent, err)
	}
	return nil
}

// DeleteLink removes a link by name.
func (m *Manager) DeleteLink(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("delete link", "name", name)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.nl.LinkDel(link); err != nil {
		return fmt.Errorf("failed to delete link %s: %w", name, err)
	}
	return nil
}

// SetMaster enslaves a link under a master link (e.g. bridge membership).
func (m *Manager) SetMaster(name, master string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("set master", "name", name, "master", master)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	masterLink, err := m.resolve(master)
	if err != nil {
		return err
	}
	if err := m.nl.LinkSetMaster(link, masterLink); err != nil {
		return fmt.Errorf("failed to set master %s on %s: %w", master, name, err)
	}
	return nil
}

// ClearMaster removes a link's enslavement.
func (m *Manager) ClearMaster(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("clear master", "name", name)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.nl.LinkSetNoMaster(link); err != nil {
		return fmt.Errorf("failed to clear master on %s: %w", name, err)
	}
	return nil
}

// AddAddress binds an address to a link.
func (m *Manager) AddAddress(name string, ip net.IP, prefixLen int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addAddress(name, ip, prefixLen)
}

func (m *Manager) addAddress(name string, ip net.IP, prefixLen int) error {
	m.log.Debug("add address", "name", name, "ip", ip, "prefix", prefixLen)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	bits := 8 * net.IPv6len
	if ip.To4() != nil {
		bits = 8 * net.IPv4len
	}
	addr := &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: net.CIDRMask(prefixLen, bits)}}
	if err := m.nl.AddrAdd(link, addr); err != nil {
		return fmt.Errorf("failed to add address %s to %s: %w", addr.IPNet, name, err)
	}
	return nil
}

// RemoveAddress removes the exactly matching address from a link. A link or
// address that is absent yields ErrNotFound.
func (m *Manager) RemoveAddress(name string, ip net.IP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("remove address", "name", name, "ip", ip)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	addrs, err := m.nl.AddrList(link, unix.AF_UNSPEC)
	if err != nil {
		return fmt.Errorf("failed to list addresses on %s: %w", name, err)
	}
	for i := range addrs {
		if addrs[i].IPNet != nil && addrs[i].IPNet.IP.Equal(ip) {
			if err := m.nl.AddrDel(link, &addrs[i]); err != nil {
				return fmt.Errorf("failed to remove address %s from %s: %w", ip, name, err)
			}
			return nil
		}
	}
	return fmt.Errorf("address %s on %s: %w", ip, name, ErrNotFound)
}

// Addresses returns all v4/v6 addresses bound to a link. Kernel entries of
// other families are ignored.
func (m *Manager) Addresses(name string) ([]Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addresses(name)
}

func (m *Manager) addresses(name string) ([]Address, error) {
	link, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	raw, err := m.nl.AddrList(link, unix.AF_UNSPEC)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses on %s: %w", name, err)
	}
	out := make([]Address, 0, len(raw))
	for _, a := range raw {
		if addr, ok := addressFromNetlink(a); ok {
			out = append(out, addr)
		}
	}
	return out, nil
}

// Rename changes a link's name.
func (m *Manager) Rename(name, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("rename link", "name", name, "new", newName)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.nl.LinkSetName(link, newName); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", name, newName, err)
	}
	return nil
}

// SetMAC updates a link's hardware address.
func (m *Manager) SetMAC(name string, hwaddr net.HardwareAddr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("set mac", "name", name, "mac", hwaddr)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.nl.LinkSetHardwareAddr(link, hwaddr); err != nil {
		return fmt.Errorf("failed to set mac on %s: %w", name, err)
	}
	return nil
}

// MoveToDefaultNamespace reassigns a link to the namespace of pid 1.
func (m *Manager) MoveToDefaultNamespace(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("move link to default namespace", "name", name)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.nl.LinkSetNsPid(link, 1); err != nil {
		return fmt.Errorf("failed to move %s to default namespace: %w", name, err)
	}
	return nil
}

// SetUp brings a link administratively up.
func (m *Manager) SetUp(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setUp(name)
}

func (m *Manager) setUp(name string) error {
	m.log.Debug("set link up", "name", name)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.nl.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring up %s: %w", name, err)
	}
	return nil
}

// SetDown brings a link administratively down.
func (m *Manager) SetDown(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug("set link down", "name", name)
	link, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.nl.LinkSetDown(link); err != nil {
		return fmt.Errorf("failed to bring down %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a link with the given name is present. Absence is
// not an error.
func (m *Manager) Exists(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.resolve(name)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Links returns the names of all links visible in the joined namespace.
func (m *Manager) Links() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	links, err := m.nl.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Attrs().Name)
	}
	return names, nil
}

// Composite operations. Each holds the lock across the full sequence so no
// concurrent caller can observe or interleave with a half-applied composite.
// Steps fail fast; already-applied steps are not rolled back.

// AddBridge creates a bridge and brings it up.
func (m *Manager) AddBridge(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.createBridge(name); err != nil {
		return err
	}
	return m.setUp(name)
}

// AddVeth creates a veth pair and brings both ends up.
func (m *Manager) AddVeth(inside, outside string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.createVeth(inside, outside); err != nil {
		return err
	}
	if err := m.setUp(inside); err != nil {
		return err
	}
	return m.setUp(outside)
}

// AddVLAN creates a VLAN sub-interface and brings it up.
func (m *Manager) AddVLAN(name, parent string, tag uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.createVLAN(name, parent, tag); err != nil {
		return err
	}
	return m.setUp(name)
}

// AddMcastVXLAN creates a multicast VXLAN device and brings it up.
func (m *Manager) AddMcastVXLAN(name, parent string, vni uint32, group net.IP, port uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.createMcastVXLAN(name, parent, vni, group, port); err != nil {
		return err
	}
	return m.setUp(name)
}

// AddPtpVXLAN creates a point-to-point VXLAN device. The device is left in
// its initial administrative state.
func (m *Manager) AddPtpVXLAN(name, parent string, vni uint32, local, remote net.IP, port uint16) error {
	return m.CreatePtpVXLAN(name, parent, vni, local, remote, port)
}

// EnsureAddress assigns an address to a link and returns the full set of
// addresses bound afterwards. With a nil addr the DHCP path runs instead: a
// DHCP client is driven to completion for the interface and the resulting
// kernel state is re-queried.
func (m *Manager) EnsureAddress(name string, addr *Address) ([]Address, error) {
	if addr != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if err := m.addAddress(name, addr.IP, addr.PrefixLen); err != nil {
			return nil, err
		}
		return m.addresses(name)
	}

	// The lease exchange itself runs outside the channel lock: it talks to
	// the network, not to netlink, and can block for a long time.
	if err := m.runDHCP(name); err != nil {
		return nil, err
	}
	return m.Addresses(name)
}

// acquireLease runs the configured DHCP client for an interface and waits
// for it to finish. The client's own retry and lease behavior is its
// business; only the exit outcome is interpreted.
func (m *Manager) acquireLease(iface string) error {
	if m.dhcpClient == DHCPBuiltin {
		return m.builtinLease(iface)
	}

	m.log.Debug("spawning dhcp client", "client", m.dhcpClient, "iface", iface)
	cmd := exec.Command(m.dhcpClient, "-i", iface)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("dhcp client %s on %s: %w", m.dhcpClient, iface, err)
	}
	m.log.Debug("dhcp client finished", "client", m.dhcpClient, "iface", iface)
	return nil
}
