package ctlplane

import (
	"fmt"
	"net"
	"net/rpc"
	"strings"
	"sync"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/network"
)

// Client is the RPC client for talking to a running agent.
type Client struct {
	socketPath string
	client     *rpc.Client
	mu         sync.RWMutex
}

// NewClient connects to the agent's Unix socket.
func NewClient(socketPath string) (*Client, error) {
	conn, err := rpc.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to agent at %s: %w", socketPath, err)
	}
	return &Client{socketPath: socketPath, client: conn}, nil
}

// Close closes the RPC connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// call wraps the RPC call with reconnection on a dead socket.
func (c *Client) call(serviceMethod string, args any, reply any) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	err := client.Call(serviceMethod, args, reply)
	if err == nil {
		return nil
	}

	if err == rpc.ErrShutdown || isNetworkError(err) {
		if recErr := c.reconnect(client); recErr != nil {
			return fmt.Errorf("RPC call failed (%v) and reconnection failed: %w", err, recErr)
		}
		c.mu.RLock()
		client = c.client
		c.mu.RUnlock()
		return client.Call(serviceMethod, args, reply)
	}
	return err
}

// reconnect establishes a new connection unless another caller already did.
func (c *Client) reconnect(oldClient *rpc.Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != oldClient && c.client != nil {
		return nil
	}
	if c.client != nil {
		c.client.Close()
	}

	conn, err := rpc.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to reconnect to agent: %w", err)
	}
	c.client = conn
	return nil
}

func isNetworkError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection is shut down") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "bad file descriptor") ||
		strings.Contains(msg, "unexpected EOF") ||
		strings.Contains(msg, "use of closed network connection")
}

// remoteError reconstructs a server-side operation failure on the client,
// preserving the NotFound distinction for errors.Is checks.
type remoteError struct {
	msg      string
	notFound bool
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Is(target error) bool {
	return e.notFound && target == network.ErrNotFound
}

func resultErr(r Result) error {
	if r.Error == "" {
		return nil
	}
	return &remoteError{msg: r.Error, notFound: r.NotFound}
}

// Status returns the agent's identity and lifecycle state.
func (c *Client) Status() (*StatusReply, error) {
	var reply StatusReply
	if err := c.call("Server.Status", &Empty{}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// AddBridge creates a bridge and brings it up.
func (c *Client) AddBridge(name string) error {
	var reply OpReply
	if err := c.call("Server.AddBridge", &AddBridgeArgs{Name: name}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// AddVeth creates a veth pair and brings both ends up.
func (c *Client) AddVeth(inside, outside string) error {
	var reply OpReply
	if err := c.call("Server.AddVeth", &AddVethArgs{Inside: inside, Outside: outside}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// AddVLAN creates an 802.1Q sub-interface and brings it up.
func (c *Client) AddVLAN(name, parent string, tag uint16) error {
	var reply OpReply
	if err := c.call("Server.AddVLAN", &AddVLANArgs{Name: name, Parent: parent, Tag: tag}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// AddMcastVXLAN creates a multicast VXLAN device and brings it up.
func (c *Client) AddMcastVXLAN(name, parent string, vni uint32, group net.IP, port uint16) error {
	args := &AddMcastVXLANArgs{Name: name, Parent: parent, VNI: vni, Group: group, Port: port}
	var reply OpReply
	if err := c.call("Server.AddMcastVXLAN", args, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// AddPtpVXLAN creates a point-to-point VXLAN device.
func (c *Client) AddPtpVXLAN(name, parent string, vni uint32, local, remote net.IP, port uint16) error {
	args := &AddPtpVXLANArgs{Name: name, Parent: parent, VNI: vni, Local: local, Remote: remote, Port: port}
	var reply OpReply
	if err := c.call("Server.AddPtpVXLAN", args, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// DeleteLink removes a link by name.
func (c *Client) DeleteLink(name string) error {
	var reply OpReply
	if err := c.call("Server.DeleteLink", &DeleteLinkArgs{Name: name}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// SetMaster enslaves a link under a master link.
func (c *Client) SetMaster(name, master string) error {
	var reply OpReply
	if err := c.call("Server.SetMaster", &SetMasterArgs{Name: name, Master: master}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// ClearMaster removes a link's enslavement.
func (c *Client) ClearMaster(name string) error {
	var reply OpReply
	if err := c.call("Server.ClearMaster", &ClearMasterArgs{Name: name}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// AddAddress binds a static address to a link.
func (c *Client) AddAddress(name string, ip net.IP, prefixLen int) error {
	args := &AddAddressArgs{Name: name, IP: ip, PrefixLen: prefixLen}
	var reply OpReply
	if err := c.call("Server.AddAddress", args, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// RemoveAddress removes the exactly matching address from a link.
func (c *Client) RemoveAddress(name string, ip net.IP) error {
	var reply OpReply
	if err := c.call("Server.RemoveAddress", &RemoveAddressArgs{Name: name, IP: ip}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// ListAddresses returns all addresses bound to a link.
func (c *Client) ListAddresses(name string) ([]network.Address, error) {
	var reply ListAddressesReply
	if err := c.call("Server.ListAddresses", &ListAddressesArgs{Name: name}, &reply); err != nil {
		return nil, err
	}
	return reply.Addresses, resultErr(reply.Result)
}

// EnsureAddress assigns an address to a link, statically or via DHCP when
// addr is nil, and returns the resulting address set.
func (c *Client) EnsureAddress(name string, addr *network.Address) ([]network.Address, error) {
	var reply EnsureAddressReply
	if err := c.call("Server.EnsureAddress", &EnsureAddressArgs{Name: name, Address: addr}, &reply); err != nil {
		return nil, err
	}
	return reply.Addresses, resultErr(reply.Result)
}

// RenameLink changes a link's name.
func (c *Client) RenameLink(name, newName string) error {
	var reply OpReply
	if err := c.call("Server.RenameLink", &RenameLinkArgs{Name: name, NewName: newName}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// SetMAC updates a link's hardware address.
func (c *Client) SetMAC(name string, mac net.HardwareAddr) error {
	var reply OpReply
	if err := c.call("Server.SetMAC", &SetMACArgs{Name: name, MAC: mac}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// MoveToDefault reassigns a link to the default network namespace.
func (c *Client) MoveToDefault(name string) error {
	var reply OpReply
	if err := c.call("Server.MoveToDefault", &MoveToDefaultArgs{Name: name}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// SetUp brings a link administratively up.
func (c *Client) SetUp(name string) error {
	var reply OpReply
	if err := c.call("Server.SetUp", &SetUpArgs{Name: name}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// SetDown brings a link administratively down.
func (c *Client) SetDown(name string) error {
	var reply OpReply
	if err := c.call("Server.SetDown", &SetDownArgs{Name: name}, &reply); err != nil {
		return err
	}
	return resultErr(reply.Result)
}

// Exists reports whether a link is present in the namespace.
func (c *Client) Exists(name string) (bool, error) {
	var reply ExistsReply
	if err := c.call("Server.Exists", &ExistsArgs{Name: name}, &reply); err != nil {
		return false, err
	}
	return reply.Exists, resultErr(reply.Result)
}

// ListLinks returns the names of all links in the namespace.
func (c *Client) ListLinks() ([]string, error) {
	var reply ListLinksReply
	if err := c.call("Server.ListLinks", &Empty{}, &reply); err != nil {
		return nil, err
	}
	return reply.Names, resultErr(reply.Result)
}
