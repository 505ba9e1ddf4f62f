// Package cmd implements the CLI entry points.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/config"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/ctlplane"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/logging"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/metrics"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/netns"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/network"
)

// ServeOptions are command-line overrides applied on top of the config file.
type ServeOptions struct {
	ConfigFile  string
	NetNS       string
	SocketPath  string
	InstanceID  string
	DHCPClient  string
	MetricsAddr string
	LogLevel    string
}

// RunServe is the agent daemon. It joins the target namespace, opens the
// kernel control channel and serves RPC until a termination signal arrives.
func RunServe(opts ServeOptions) error {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		loaded, err := config.LoadFile(opts.ConfigFile)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if opts.NetNS != "" {
		cfg.NetNS = opts.NetNS
	}
	if opts.SocketPath != "" {
		cfg.SocketPath = opts.SocketPath
	}
	if opts.InstanceID != "" {
		cfg.InstanceID = opts.InstanceID
	}
	if opts.DHCPClient != "" {
		cfg.DHCPClient = opts.DHCPClient
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault(logging.New(logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	}))
	log := logging.WithComponent("serve")

	instanceID := cfg.UUID()
	log.Info("starting namespace agent",
		"netns", cfg.NetNS, "socket", cfg.SocketPath, "instance", instanceID)

	// Point of no return: after Join this process lives inside the target
	// namespace until it exits.
	joined, err := netns.Join(cfg.NetNS)
	if err != nil {
		return fmt.Errorf("failed to join namespace %s: %w", cfg.NetNS, err)
	}

	nl, err := network.NewNetlinker(joined)
	if err != nil {
		return fmt.Errorf("failed to open kernel control channel: %w", err)
	}
	defer nl.Close()

	manager := network.NewManager(nl, cfg.DHCPClient)
	server := ctlplane.NewServer(manager, cfg.NetNS, cfg.SocketPath, instanceID)
	if err := server.Start(); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Warn("metrics endpoint failed", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigCh
	log.Info("received signal, shutting down", "signal", sig)

	if err := server.Stop(); err != nil {
		log.Warn("control plane stop failed", "error", err)
	}
	if err := joined.Teardown(); err != nil {
		log.Warn("namespace teardown incomplete", "error", err)
	}
	log.Info("agent stopped")
	return nil
}
