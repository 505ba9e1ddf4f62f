package network

import (
	"errors"
	"net"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

func newTestManager(nl Netlinker) *Manager {
	return NewManager(nl, "dhclient")
}

func devLink(name string, index int) *netlink.Device {
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name, Index: index}}
}

func TestCreateBridge(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	mockNetlink.On("LinkAdd", mock.MatchedBy(func(l *netlink.Bridge) bool {
		return l.Attrs().Name == "br0"
	})).Return(nil).Once()

	err := m.CreateBridge("br0")
	assert.NoError(t, err)
	// CreateBridge leaves the link down
	mockNetlink.AssertNotCalled(t, "LinkSetUp", mock.Anything)
	mockNetlink.AssertExpectations(t)

	// Transport error surfaces wrapped
	mockNetlink = new(MockNetlinker)
	m = newTestManager(mockNetlink)
	mockNetlink.On("LinkAdd", mock.Anything).Return(errors.New("permission denied")).Once()
	err = m.CreateBridge("br0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create bridge br0")
}

func TestAddBridgeComposite(t *testing.T) {
	t.Run("CreateThenUp", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)

		br := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: "br0", Index: 4}}
		mockNetlink.On("LinkAdd", mock.AnythingOfType("*netlink.Bridge")).Return(nil).Once()
		mockNetlink.On("LinkByName", "br0").Return(netlink.Link(br), nil).Once()
		mockNetlink.On("LinkSetUp", netlink.Link(br)).Return(nil).Once()

		assert.NoError(t, m.AddBridge("br0"))
		mockNetlink.AssertExpectations(t)
	})

	t.Run("UpFailureDoesNotRollBack", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)

		br := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: "br0", Index: 4}}
		mockNetlink.On("LinkAdd", mock.AnythingOfType("*netlink.Bridge")).Return(nil).Once()
		mockNetlink.On("LinkByName", "br0").Return(netlink.Link(br), nil)
		mockNetlink.On("LinkSetUp", netlink.Link(br)).Return(errors.New("transport error")).Once()

		err := m.AddBridge("br0")
		require.Error(t, err)

		// The half-applied bridge is still there and visible.
		mockNetlink.AssertNotCalled(t, "LinkDel", mock.Anything)
		exists, err := m.Exists("br0")
		assert.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestAddVeth(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	inside := devLink("veth-i", 10)
	outside := devLink("veth-e", 11)

	mockNetlink.On("LinkAdd", mock.MatchedBy(func(l *netlink.Veth) bool {
		return l.Attrs().Name == "veth-i" && l.PeerName == "veth-e"
	})).Return(nil).Once()
	mockNetlink.On("LinkByName", "veth-i").Return(netlink.Link(inside), nil).Once()
	mockNetlink.On("LinkSetUp", netlink.Link(inside)).Return(nil).Once()
	mockNetlink.On("LinkByName", "veth-e").Return(netlink.Link(outside), nil).Once()
	mockNetlink.On("LinkSetUp", netlink.Link(outside)).Return(nil).Once()

	assert.NoError(t, m.AddVeth("veth-i", "veth-e"))
	mockNetlink.AssertExpectations(t)
}

func TestCreateVLAN(t *testing.T) {
	t.Run("ParentExists", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)

		parent := devLink("eth0", 2)
		mockNetlink.On("LinkByName", "eth0").Return(netlink.Link(parent), nil).Once()
		mockNetlink.On("LinkAdd", mock.MatchedBy(func(l *netlink.Vlan) bool {
			return l.Attrs().Name == "eth0.100" &&
				l.Attrs().ParentIndex == 2 &&
				l.VlanId == 100 &&
				l.VlanProtocol == netlink.VLAN_PROTOCOL_8021Q
		})).Return(nil).Once()

		assert.NoError(t, m.CreateVLAN("eth0.100", "eth0", 100))
		mockNetlink.AssertExpectations(t)
	})

	t.Run("ParentMissing", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)

		mockNetlink.On("LinkByName", "eth0").Return(nil, ErrNotFound).Once()

		err := m.CreateVLAN("eth0.100", "eth0", 100)
		assert.True(t, IsNotFound(err), "missing parent must be NotFound, got %v", err)
		// Absence of the parent is a lookup failure, never a silent create.
		mockNetlink.AssertNotCalled(t, "LinkAdd", mock.Anything)
	})
}

func TestCreateMcastVXLAN(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	parent := devLink("eth0", 2)
	group := net.ParseIP("239.1.1.1")
	mockNetlink.On("LinkByName", "eth0").Return(netlink.Link(parent), nil).Once()
	mockNetlink.On("LinkAdd", mock.MatchedBy(func(l *netlink.Vxlan) bool {
		return l.Attrs().Name == "vx0" &&
			l.VxlanId == 42 &&
			l.VtepDevIndex == 2 &&
			l.Group.Equal(group) &&
			l.Port == 4789
	})).Return(nil).Once()

	assert.NoError(t, m.CreateMcastVXLAN("vx0", "eth0", 42, group, 4789))
	mockNetlink.AssertExpectations(t)

	// Missing parent
	mockNetlink = new(MockNetlinker)
	m = newTestManager(mockNetlink)
	mockNetlink.On("LinkByName", "eth0").Return(nil, ErrNotFound).Once()
	err := m.CreateMcastVXLAN("vx0", "eth0", 42, group, 4789)
	assert.True(t, IsNotFound(err))
}

func TestCreatePtpVXLAN(t *testing.T) {
	t.Run("SameFamily", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)

		parent := devLink("eth0", 2)
		local := net.ParseIP("10.0.0.1")
		remote := net.ParseIP("10.0.0.2")
		mockNetlink.On("LinkByName", "eth0").Return(netlink.Link(parent), nil).Once()
		mockNetlink.On("LinkAdd", mock.MatchedBy(func(l *netlink.Vxlan) bool {
			return l.SrcAddr.Equal(local) && l.Group.Equal(remote) && l.VxlanId == 42
		})).Return(nil).Once()

		assert.NoError(t, m.CreatePtpVXLAN("vx0", "eth0", 42, local, remote, 4789))
		mockNetlink.AssertExpectations(t)
	})

	t.Run("MixedFamilyRejectedEagerly", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)

		err := m.CreatePtpVXLAN("vx0", "eth0", 42,
			net.ParseIP("10.0.0.1"), net.ParseIP("2001:db8::2"), 4789)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "same address family")
		// Rejected before any kernel interaction.
		mockNetlink.AssertNotCalled(t, "LinkByName", mock.Anything)
		mockNetlink.AssertNotCalled(t, "LinkAdd", mock.Anything)
	})
}

func TestDeleteLink(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	link := devLink("vx0", 5)
	mockNetlink.On("LinkByName", "vx0").Return(netlink.Link(link), nil).Once()
	mockNetlink.On("LinkDel", netlink.Link(link)).Return(nil).Once()
	assert.NoError(t, m.DeleteLink("vx0"))
	mockNetlink.AssertExpectations(t)

	mockNetlink = new(MockNetlinker)
	m = newTestManager(mockNetlink)
	mockNetlink.On("LinkByName", "vx0").Return(nil, ErrNotFound).Once()
	assert.True(t, IsNotFound(m.DeleteLink("vx0")))
}

func TestResolutionFreshness(t *testing.T) {
	// The same operation on the same name resolves fresh every time: once
	// the link disappears, the next call observes NotFound.
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	link := devLink("tmp0", 9)
	mockNetlink.On("LinkByName", "tmp0").Return(netlink.Link(link), nil).Once()
	mockNetlink.On("LinkSetUp", netlink.Link(link)).Return(nil).Once()
	assert.NoError(t, m.SetUp("tmp0"))

	mockNetlink.On("LinkByName", "tmp0").Return(nil, ErrNotFound).Once()
	assert.True(t, IsNotFound(m.SetUp("tmp0")))
	mockNetlink.AssertExpectations(t)
}

func TestSetMaster(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	link := devLink("veth0", 3)
	br := devLink("br0", 4)
	mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil).Once()
	mockNetlink.On("LinkByName", "br0").Return(netlink.Link(br), nil).Once()
	mockNetlink.On("LinkSetMaster", netlink.Link(link), netlink.Link(br)).Return(nil).Once()
	assert.NoError(t, m.SetMaster("veth0", "br0"))
	mockNetlink.AssertExpectations(t)

	// Master missing
	mockNetlink = new(MockNetlinker)
	m = newTestManager(mockNetlink)
	mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil).Once()
	mockNetlink.On("LinkByName", "br0").Return(nil, ErrNotFound).Once()
	err := m.SetMaster("veth0", "br0")
	assert.True(t, IsNotFound(err))
	mockNetlink.AssertNotCalled(t, "LinkSetMaster", mock.Anything, mock.Anything)
}

func TestClearMaster(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	link := devLink("veth0", 3)
	mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil).Once()
	mockNetlink.On("LinkSetNoMaster", netlink.Link(link)).Return(nil).Once()
	assert.NoError(t, m.ClearMaster("veth0"))
	mockNetlink.AssertExpectations(t)
}

func TestAddressRoundTrip(t *testing.T) {
	link := devLink("veth0", 3)
	ip := net.ParseIP("192.0.2.1").To4()
	bound := netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: net.CIDRMask(24, 32)}}

	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	// Add
	mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil)
	mockNetlink.On("AddrAdd", netlink.Link(link), mock.MatchedBy(func(a *netlink.Addr) bool {
		ones, bits := a.IPNet.Mask.Size()
		return a.IPNet.IP.Equal(ip) && ones == 24 && bits == 32
	})).Return(nil).Once()
	require.NoError(t, m.AddAddress("veth0", ip, 24))

	// List includes exactly that address
	mockNetlink.On("AddrList", netlink.Link(link), unix.AF_UNSPEC).Return([]netlink.Addr{bound}, nil).Once()
	addrs, err := m.Addresses("veth0")
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, FamilyV4, addrs[0].Family)
	assert.True(t, addrs[0].IP.Equal(ip))
	assert.Equal(t, 24, addrs[0].PrefixLen)

	// Remove deletes the exact match
	mockNetlink.On("AddrList", netlink.Link(link), unix.AF_UNSPEC).Return([]netlink.Addr{bound}, nil).Once()
	mockNetlink.On("AddrDel", netlink.Link(link), mock.MatchedBy(func(a *netlink.Addr) bool {
		return a.IPNet.IP.Equal(ip)
	})).Return(nil).Once()
	require.NoError(t, m.RemoveAddress("veth0", ip))

	// Gone afterwards
	mockNetlink.On("AddrList", netlink.Link(link), unix.AF_UNSPEC).Return([]netlink.Addr{}, nil).Once()
	addrs, err = m.Addresses("veth0")
	require.NoError(t, err)
	assert.Empty(t, addrs)

	// Removing a non-present address is NotFound
	mockNetlink.On("AddrList", netlink.Link(link), unix.AF_UNSPEC).Return([]netlink.Addr{}, nil).Once()
	err = m.RemoveAddress("veth0", ip)
	assert.True(t, IsNotFound(err), "expected NotFound, got %v", err)
	mockNetlink.AssertExpectations(t)
}

func TestAddressesFlattening(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	link := devLink("eth0", 2)
	v4 := netlink.Addr{IPNet: &net.IPNet{IP: net.ParseIP("192.0.2.1").To4(), Mask: net.CIDRMask(24, 32)}}
	v6 := netlink.Addr{IPNet: &net.IPNet{IP: net.ParseIP("2001:db8::1"), Mask: net.CIDRMask(64, 128)}}
	junk := netlink.Addr{} // entries the model does not cover are skipped

	mockNetlink.On("LinkByName", "eth0").Return(netlink.Link(link), nil).Once()
	mockNetlink.On("AddrList", netlink.Link(link), unix.AF_UNSPEC).
		Return([]netlink.Addr{v4, junk, v6}, nil).Once()

	addrs, err := m.Addresses("eth0")
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, FamilyV4, addrs[0].Family)
	assert.Equal(t, "192.0.2.1/24", addrs[0].String())
	assert.Equal(t, FamilyV6, addrs[1].Family)
	assert.Equal(t, "2001:db8::1/64", addrs[1].String())
}

func TestAttributeMutation(t *testing.T) {
	link := devLink("veth0", 3)

	t.Run("Rename", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)
		mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil).Once()
		mockNetlink.On("LinkSetName", netlink.Link(link), "eth1").Return(nil).Once()
		assert.NoError(t, m.Rename("veth0", "eth1"))
		mockNetlink.AssertExpectations(t)
	})

	t.Run("SetMAC", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)
		mac := net.HardwareAddr{0x02, 0x00, 0x00, 0xaa, 0xbb, 0xcc}
		mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil).Once()
		mockNetlink.On("LinkSetHardwareAddr", netlink.Link(link), mac).Return(nil).Once()
		assert.NoError(t, m.SetMAC("veth0", mac))
		mockNetlink.AssertExpectations(t)
	})

	t.Run("MoveToDefaultNamespace", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)
		mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil).Once()
		mockNetlink.On("LinkSetNsPid", netlink.Link(link), 1).Return(nil).Once()
		assert.NoError(t, m.MoveToDefaultNamespace("veth0"))
		mockNetlink.AssertExpectations(t)
	})

	t.Run("SetDown", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)
		mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil).Once()
		mockNetlink.On("LinkSetDown", netlink.Link(link)).Return(nil).Once()
		assert.NoError(t, m.SetDown("veth0"))
		mockNetlink.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)
		mockNetlink.On("LinkByName", "veth0").Return(nil, ErrNotFound)
		assert.True(t, IsNotFound(m.Rename("veth0", "x")))
		assert.True(t, IsNotFound(m.SetMAC("veth0", net.HardwareAddr{1, 2, 3, 4, 5, 6})))
		assert.True(t, IsNotFound(m.MoveToDefaultNamespace("veth0")))
		assert.True(t, IsNotFound(m.SetDown("veth0")))
	})
}

func TestExists(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	link := devLink("br0", 4)
	mockNetlink.On("LinkByName", "br0").Return(netlink.Link(link), nil).Once()
	exists, err := m.Exists("br0")
	assert.NoError(t, err)
	assert.True(t, exists)

	// Absence is a false result, not an error.
	mockNetlink.On("LinkByName", "br0").Return(nil, ErrNotFound).Once()
	exists, err = m.Exists("br0")
	assert.NoError(t, err)
	assert.False(t, exists)

	// A genuine transport failure still surfaces.
	mockNetlink.On("LinkByName", "br0").Return(nil, errors.New("netlink receive: EPERM")).Once()
	_, err = m.Exists("br0")
	assert.Error(t, err)
}

func TestLinks(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	m := newTestManager(mockNetlink)

	mockNetlink.On("LinkList").Return([]netlink.Link{
		devLink("a", 1),
		devLink("c", 3),
	}, nil).Once()

	names, err := m.Links()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, names)
	assert.NotContains(t, names, "b")
}

func TestEnsureAddress(t *testing.T) {
	t.Run("Static", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)

		link := devLink("veth0", 3)
		ip := net.ParseIP("192.0.2.1").To4()
		bound := netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: net.CIDRMask(24, 32)}}

		mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil)
		mockNetlink.On("AddrAdd", netlink.Link(link), mock.Anything).Return(nil).Once()
		mockNetlink.On("AddrList", netlink.Link(link), unix.AF_UNSPEC).Return([]netlink.Addr{bound}, nil).Once()

		addrs, err := m.EnsureAddress("veth0", &Address{IP: ip, PrefixLen: 24, Family: FamilyV4})
		require.NoError(t, err)
		require.Len(t, addrs, 1)
		assert.True(t, addrs[0].IP.Equal(ip))
	})

	t.Run("DHCP", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)

		var leased string
		m.runDHCP = func(iface string) error {
			leased = iface
			return nil
		}

		link := devLink("veth0", 3)
		bound := netlink.Addr{IPNet: &net.IPNet{IP: net.ParseIP("198.51.100.7").To4(), Mask: net.CIDRMask(24, 32)}}
		mockNetlink.On("LinkByName", "veth0").Return(netlink.Link(link), nil).Once()
		mockNetlink.On("AddrList", netlink.Link(link), unix.AF_UNSPEC).Return([]netlink.Addr{bound}, nil).Once()

		addrs, err := m.EnsureAddress("veth0", nil)
		require.NoError(t, err)
		assert.Equal(t, "veth0", leased)
		require.Len(t, addrs, 1)
		assert.Equal(t, "198.51.100.7/24", addrs[0].String())
	})

	t.Run("DHCPFailure", func(t *testing.T) {
		mockNetlink := new(MockNetlinker)
		m := newTestManager(mockNetlink)
		m.runDHCP = func(iface string) error {
			return errors.New("dhcp client exited with status 1")
		}

		_, err := m.EnsureAddress("veth0", nil)
		require.Error(t, err)
		mockNetlink.AssertNotCalled(t, "AddrList", mock.Anything, mock.Anything)
	})
}

// overlapNetlinker trips if two kernel calls are ever in flight at once.
type overlapNetlinker struct {
	inflight atomic.Int32
	overlap  atomic.Bool
}

func (f *overlapNetlinker) enter() {
	if f.inflight.Add(1) != 1 {
		f.overlap.Store(true)
	}
}

func (f *overlapNetlinker) exit() { f.inflight.Add(-1) }

func (f *overlapNetlinker) LinkByName(name string) (netlink.Link, error) {
	f.enter()
	defer f.exit()
	runtime.Gosched()
	return devLink(name, 1), nil
}

func (f *overlapNetlinker) LinkList() ([]netlink.Link, error) {
	f.enter()
	defer f.exit()
	return nil, nil
}

func (f *overlapNetlinker) LinkAdd(link netlink.Link) error {
	f.enter()
	defer f.exit()
	runtime.Gosched()
	return nil
}

func (f *overlapNetlinker) LinkDel(link netlink.Link) error {
	f.enter()
	defer f.exit()
	runtime.Gosched()
	return nil
}

func (f *overlapNetlinker) LinkSetUp(link netlink.Link) error {
	f.enter()
	defer f.exit()
	runtime.Gosched()
	return nil
}

func (f *overlapNetlinker) LinkSetDown(link netlink.Link) error {
	f.enter()
	defer f.exit()
	return nil
}

func (f *overlapNetlinker) LinkSetMaster(slave, master netlink.Link) error {
	f.enter()
	defer f.exit()
	return nil
}

func (f *overlapNetlinker) LinkSetNoMaster(link netlink.Link) error {
	f.enter()
	defer f.exit()
	return nil
}

func (f *overlapNetlinker) LinkSetName(link netlink.Link, name string) error {
	f.enter()
	defer f.exit()
	return nil
}

func (f *overlapNetlinker) LinkSetHardwareAddr(link netlink.Link, hwaddr net.HardwareAddr) error {
	f.enter()
	defer f.exit()
	return nil
}

func (f *overlapNetlinker) LinkSetNsPid(link netlink.Link, pid int) error {
	f.enter()
	defer f.exit()
	return nil
}

func (f *overlapNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	f.enter()
	defer f.exit()
	return nil, nil
}

func (f *overlapNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	f.enter()
	defer f.exit()
	return nil
}

func (f *overlapNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	f.enter()
	defer f.exit()
	return nil
}

func TestKernelChannelSerialized(t *testing.T) {
	fake := &overlapNetlinker{}
	m := newTestManager(fake)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		name := "link" + strconv.Itoa(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.AddBridge(name)
			_ = m.SetUp(name)
			_ = m.DeleteLink(name)
		}()
	}
	wg.Wait()

	assert.False(t, fake.overlap.Load(), "concurrent kernel calls observed")
}

func TestAcquireLeaseExternal(t *testing.T) {
	mockNetlink := new(MockNetlinker)

	// "true" ignores its arguments and exits 0, standing in for a
	// well-behaved external client.
	m := NewManager(mockNetlink, "true")
	assert.NoError(t, m.acquireLease("veth0"))

	m = NewManager(mockNetlink, "no-such-dhcp-client-binary")
	err := m.acquireLease("veth0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-dhcp-client-binary")
}
