// Package config holds the agent configuration and its validation rules.
//
// Configuration comes from command line flags, optionally merged with an HCL
// file. Flags always win over file values. Everything is validated before the
// namespace bootstrap runs, because bootstrap failures are fatal and cheap
// mistakes (a typoed namespace name, a malformed UUID) should be caught first.
package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// DefaultSocketPath is where the control socket lives unless overridden.
const DefaultSocketPath = "/run/netns-manager/ctl.sock"

// DefaultDHCPClient is the external DHCP client binary spawned when an
// address assignment request carries no static address.
const DefaultDHCPClient = "dhclient"

// Config is the full agent configuration.
type Config struct {
	// NetNS is the name of the network namespace to join, resolved under
	// /run/netns. Required.
	NetNS string `hcl:"netns,optional"`

	// SocketPath is the unix socket the RPC service listens on.
	SocketPath string `hcl:"socket,optional"`

	// InstanceID identifies this manager instance. Generated when empty.
	InstanceID string `hcl:"id,optional"`

	// DHCPClient is either the path/name of an external DHCP client binary
	// (invoked as "<client> -i <iface>") or the literal "builtin" for the
	// in-process DHCPv4 client.
	DHCPClient string `hcl:"dhcp_client,optional"`

	// MetricsAddr, when set, enables the Prometheus listener.
	MetricsAddr string `hcl:"metrics_addr,optional"`

	LogLevel string `hcl:"log_level,optional"`
	LogJSON  bool   `hcl:"log_json,optional"`
}

// Default returns the baseline configuration before flags and files apply.
func Default() Config {
	return Config{
		SocketPath: DefaultSocketPath,
		DHCPClient: DefaultDHCPClient,
		LogLevel:   "info",
	}
}

// LoadFile loads configuration from an HCL file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for problems that would otherwise only
// surface after the irreversible namespace join.
func (c *Config) Validate() error {
	if c.NetNS == "" {
		return fmt.Errorf("config: netns name is required")
	}
	if strings.ContainsAny(c.NetNS, "/\x00") || c.NetNS == "." || c.NetNS == ".." {
		return fmt.Errorf("config: invalid netns name %q", c.NetNS)
	}
	if c.SocketPath == "" {
		return fmt.Errorf("config: socket path is required")
	}
	if c.DHCPClient == "" {
		return fmt.Errorf("config: dhcp_client must not be empty")
	}
	if c.InstanceID != "" {
		if _, err := uuid.Parse(c.InstanceID); err != nil {
			return fmt.Errorf("config: invalid instance id %q: %w", c.InstanceID, err)
		}
	}
	return nil
}

// UUID returns the instance identifier, generating a random one when the
// configuration did not carry an explicit id. Call Validate first.
func (c *Config) UUID() uuid.UUID {
	if c.InstanceID == "" {
		return uuid.New()
	}
	return uuid.MustParse(c.InstanceID)
}
