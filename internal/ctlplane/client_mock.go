package ctlplane

import (
	"net"

	"github.com/stretchr/testify/mock"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/network"
)

// MockControlPlaneClient is a mock implementation of ControlPlaneClient for
// testing.
type MockControlPlaneClient struct {
	mock.Mock
}

func (m *MockControlPlaneClient) Close() error {
	return m.Called().Error(0)
}

func (m *MockControlPlaneClient) Status() (*StatusReply, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StatusReply), args.Error(1)
}

func (m *MockControlPlaneClient) AddBridge(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockControlPlaneClient) AddVeth(inside, outside string) error {
	return m.Called(inside, outside).Error(0)
}

func (m *MockControlPlaneClient) AddVLAN(name, parent string, tag uint16) error {
	return m.Called(name, parent, tag).Error(0)
}

func (m *MockControlPlaneClient) AddMcastVXLAN(name, parent string, vni uint32, group net.IP, port uint16) error {
	return m.Called(name, parent, vni, group, port).Error(0)
}

func (m *MockControlPlaneClient) AddPtpVXLAN(name, parent string, vni uint32, local, remote net.IP, port uint16) error {
	return m.Called(name, parent, vni, local, remote, port).Error(0)
}

func (m *MockControlPlaneClient) DeleteLink(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockControlPlaneClient) SetMaster(name, master string) error {
	return m.Called(name, master).Error(0)
}

func (m *MockControlPlaneClient) ClearMaster(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockControlPlaneClient) MoveToDefault(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockControlPlaneClient) AddAddress(name string, ip net.IP, prefixLen int) error {
	return m.Called(name, ip, prefixLen).Error(0)
}

func (m *MockControlPlaneClient) RemoveAddress(name string, ip net.IP) error {
	return m.Called(name, ip).Error(0)
}

func (m *MockControlPlaneClient) ListAddresses(name string) ([]network.Address, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]network.Address), args.Error(1)
}

func (m *MockControlPlaneClient) EnsureAddress(name string, addr *network.Address) ([]network.Address, error) {
	args := m.Called(name, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]network.Address), args.Error(1)
}

func (m *MockControlPlaneClient) RenameLink(name, newName string) error {
	return m.Called(name, newName).Error(0)
}

func (m *MockControlPlaneClient) SetMAC(name string, mac net.HardwareAddr) error {
	return m.Called(name, mac).Error(0)
}

func (m *MockControlPlaneClient) SetUp(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockControlPlaneClient) SetDown(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockControlPlaneClient) Exists(name string) (bool, error) {
	args := m.Called(name)
	return args.Bool(0), args.Error(1)
}

func (m *MockControlPlaneClient) ListLinks() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
