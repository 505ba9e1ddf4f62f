package cmd

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/ctlplane"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/network"
)

func dial(socketPath string) (*ctlplane.Client, error) {
	client, err := ctlplane.NewClient(socketPath)
	if err != nil {
		return nil, fmt.Errorf("is the agent running? %w", err)
	}
	return client, nil
}

// RunStatus prints the agent's identity and lifecycle state.
func RunStatus(socketPath string) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return err
	}
	fmt.Printf("instance:  %s\n", status.InstanceID)
	fmt.Printf("namespace: %s\n", status.Namespace)
	fmt.Printf("pid:       %d\n", status.PID)
	fmt.Printf("state:     %s\n", status.State)
	fmt.Printf("uptime:    %s\n", status.Uptime)
	return nil
}

// RunLinks lists all links in the agent's namespace.
func RunLinks(socketPath string) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	names, err := client.ListLinks()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// RunAddrs lists the addresses bound to a link.
func RunAddrs(socketPath, name string) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	addrs, err := client.ListAddresses(name)
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		fmt.Printf("%s %s\n", addr.Family, addr)
	}
	return nil
}

// RunExists reports whether a link is present. The process exit code carries
// the answer for scripting: 0 when present, 1 when absent.
func RunExists(socketPath, name string) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	exists, err := client.Exists(name)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Printf("%s: not found\n", name)
		os.Exit(1)
	}
	fmt.Printf("%s: present\n", name)
	return nil
}

// RunSetLink brings a link up or down.
func RunSetLink(socketPath, name string, up bool) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	if up {
		return client.SetUp(name)
	}
	return client.SetDown(name)
}

// RunAddBridge creates a bridge and brings it up.
func RunAddBridge(socketPath, name string) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.AddBridge(name)
}

// RunAddVeth creates a veth pair and brings both ends up.
func RunAddVeth(socketPath, inside, outside string) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.AddVeth(inside, outside)
}

// RunDelete removes a link.
func RunDelete(socketPath, name string) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.DeleteLink(name)
}

// RunAssign assigns an address to a link. spec is either "dhcp" or CIDR
// notation like 192.0.2.1/24. Prints the resulting address set.
func RunAssign(socketPath, name, spec string) error {
	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	var addr *network.Address
	if spec != "dhcp" {
		ip, ipNet, err := net.ParseCIDR(spec)
		if err != nil {
			return fmt.Errorf("address must be CIDR notation or \"dhcp\": %w", err)
		}
		prefixLen, _ := ipNet.Mask.Size()
		family := network.FamilyV6
		if ip.To4() != nil {
			family = network.FamilyV4
		}
		addr = &network.Address{IP: ip, PrefixLen: prefixLen, Family: family}
	}

	addrs, err := client.EnsureAddress(name, addr)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		fmt.Printf("%s %s\n", a.Family, a)
	}
	return nil
}

// RunAddVLAN creates an 802.1Q sub-interface and brings it up.
func RunAddVLAN(socketPath, name, parent, tagStr string) error {
	tag, err := strconv.ParseUint(tagStr, 10, 16)
	if err != nil || tag == 0 || tag > 4094 {
		return fmt.Errorf("invalid vlan tag %q: must be 1..4094", tagStr)
	}

	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.AddVLAN(name, parent, uint16(tag))
}

// RunAddVXLAN creates a multicast VXLAN device and brings it up.
func RunAddVXLAN(socketPath, name, parent, vniStr, groupStr string) error {
	vni, err := parseVNI(vniStr)
	if err != nil {
		return err
	}
	group := net.ParseIP(groupStr)
	if group == nil {
		return fmt.Errorf("invalid multicast group %q", groupStr)
	}

	client, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.AddMcastVXLAN(name, parent, vni, group, defaultVXLANPort)
}

// defaultVXLANPort is the IANA-assigned VXLAN UDP port.
const defaultVXLANPort = 4789

func parseVNI(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v >= 1<<24 {
		return 0, fmt.Errorf("invalid vni %q: must be 0..16777215", s)
	}
	return uint32(v), nil
}
