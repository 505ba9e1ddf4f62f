package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHCL(t *testing.T) {
	hclContent := `
netns        = "blue"
socket       = "/run/test/ctl.sock"
id           = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
dhcp_client  = "builtin"
metrics_addr = "127.0.0.1:9100"
log_level    = "debug"
log_json     = true
`
	cfg := Default()
	err := hclsimple.Decode("test.hcl", []byte(hclContent), nil, &cfg)
	require.NoError(t, err)

	assert.Equal(t, "blue", cfg.NetNS)
	assert.Equal(t, "/run/test/ctl.sock", cfg.SocketPath)
	assert.Equal(t, "builtin", cfg.DHCPClient)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), cfg.UUID())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`netns = "green"`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "green", cfg.NetNS)
	// Defaults survive partial files
	assert.Equal(t, DefaultSocketPath, cfg.SocketPath)
	assert.Equal(t, DefaultDHCPClient, cfg.DHCPClient)

	_, err = LoadFile(filepath.Join(dir, "missing.hcl"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing netns", func(c *Config) { c.NetNS = "" }, "netns name is required"},
		{"netns with slash", func(c *Config) { c.NetNS = "../etc" }, "invalid netns name"},
		{"netns dotdot", func(c *Config) { c.NetNS = ".." }, "invalid netns name"},
		{"missing socket", func(c *Config) { c.SocketPath = "" }, "socket path is required"},
		{"empty dhcp client", func(c *Config) { c.DHCPClient = "" }, "dhcp_client must not be empty"},
		{"bad uuid", func(c *Config) { c.InstanceID = "not-a-uuid" }, "invalid instance id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.NetNS = "blue"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestUUIDGenerated(t *testing.T) {
	cfg := Default()
	cfg.NetNS = "blue"
	require.NoError(t, cfg.Validate())

	id := cfg.UUID()
	assert.NotEqual(t, uuid.Nil, id)
	// A fresh id each call when none is pinned
	assert.NotEqual(t, id, cfg.UUID())
}
