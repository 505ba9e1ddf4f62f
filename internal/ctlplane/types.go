package ctlplane

import (
	"net"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/network"
)

// Empty is the argument type for methods that take no input.
type Empty struct{}

// Result carries the outcome of an operation across the RPC boundary. The
// server methods themselves return nil so that gob delivers the reply body
// intact; a non-empty Error means the operation failed, and NotFound marks
// the failure as a missing link or address rather than a transport fault.
type Result struct {
	Error    string
	NotFound bool
}

func (r *Result) set(err error) {
	if err == nil {
		return
	}
	r.Error = err.Error()
	r.NotFound = network.IsNotFound(err)
}

// OpReply is the reply type for mutation methods that return no payload.
type OpReply struct {
	Result
}

// State is a lifecycle phase of the agent.
type State string

const (
	StateBootstrapped State = "bootstrapped"
	StateServing      State = "serving"
	StateDraining     State = "draining"
	StateTerminated   State = "terminated"
)

// StatusReply describes the running agent.
type StatusReply struct {
	PID        int
	InstanceID string
	Namespace  string
	State      State
	Uptime     string
	Result
}

type AddBridgeArgs struct {
	Name string
}

type AddVethArgs struct {
	Inside  string
	Outside string
}

type AddVLANArgs struct {
	Name   string
	Parent string
	Tag    uint16
}

type AddMcastVXLANArgs struct {
	Name   string
	Parent string
	VNI    uint32
	Group  net.IP
	Port   uint16
}

type AddPtpVXLANArgs struct {
	Name   string
	Parent string
	VNI    uint32
	Local  net.IP
	Remote net.IP
	Port   uint16
}

type DeleteLinkArgs struct {
	Name string
}

type SetMasterArgs struct {
	Name   string
	Master string
}

type ClearMasterArgs struct {
	Name string
}

type AddAddressArgs struct {
	Name      string
	IP        net.IP
	PrefixLen int
}

type RemoveAddressArgs struct {
	Name string
	IP   net.IP
}

type ListAddressesArgs struct {
	Name string
}

type ListAddressesReply struct {
	Addresses []network.Address
	Result
}

// EnsureAddressArgs assigns an address to a link. A nil Address requests a
// DHCP lease for the interface instead of a static binding.
type EnsureAddressArgs struct {
	Name    string
	Address *network.Address
}

type EnsureAddressReply struct {
	Addresses []network.Address
	Result
}

type RenameLinkArgs struct {
	Name    string
	NewName string
}

type SetMACArgs struct {
	Name string
	MAC  net.HardwareAddr
}

type MoveToDefaultArgs struct {
	Name string
}

type SetUpArgs struct {
	Name string
}

type SetDownArgs struct {
	Name string
}

type ExistsArgs struct {
	Name string
}

type ExistsReply struct {
	Exists bool
	Result
}

type ListLinksReply struct {
	Names []string
	Result
}
