package ctlplane

import (
	"net"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/network"
)

// ControlPlaneClient defines the interface for communicating with the agent.
// This interface enables mocking in unit tests.
type ControlPlaneClient interface {
	Close() error

	// --- Status ---
	Status() (*StatusReply, error)

	// --- Link creation ---
	AddBridge(name string) error
	AddVeth(inside, outside string) error
	AddVLAN(name, parent string, tag uint16) error
	AddMcastVXLAN(name, parent string, vni uint32, group net.IP, port uint16) error
	AddPtpVXLAN(name, parent string, vni uint32, local, remote net.IP, port uint16) error
	DeleteLink(name string) error

	// --- Link topology ---
	SetMaster(name, master string) error
	ClearMaster(name string) error
	MoveToDefault(name string) error

	// --- Addressing ---
	AddAddress(name string, ip net.IP, prefixLen int) error
	RemoveAddress(name string, ip net.IP) error
	ListAddresses(name string) ([]network.Address, error)
	EnsureAddress(name string, addr *network.Address) ([]network.Address, error)

	// --- Link attributes ---
	RenameLink(name, newName string) error
	SetMAC(name string, mac net.HardwareAddr) error
	SetUp(name string) error
	SetDown(name string) error

	// --- Queries ---
	Exists(name string) (bool, error)
	ListLinks() ([]string, error)
}

// Client satisfies ControlPlaneClient.
var _ ControlPlaneClient = (*Client)(nil)
