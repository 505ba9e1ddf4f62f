package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/cmd"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
		configFile := serveFlags.String("config", "", "Configuration file (HCL)")
		serveFlags.StringVar(configFile, "c", "", "Configuration file (short)")
		netnsName := serveFlags.String("netns", "", "Network namespace to join")
		socketPath := serveFlags.String("socket", "", "Control socket path")
		instanceID := serveFlags.String("id", "", "Instance UUID (random when omitted)")
		dhcpClient := serveFlags.String("dhcp-client", "", "DHCP client binary, or \"builtin\"")
		metricsAddr := serveFlags.String("metrics-addr", "", "Prometheus listen address")
		logLevel := serveFlags.String("log-level", "", "Log level (debug, info, warn, error)")
		serveFlags.Parse(os.Args[2:])

		err := cmd.RunServe(cmd.ServeOptions{
			ConfigFile:  *configFile,
			NetNS:       *netnsName,
			SocketPath:  *socketPath,
			InstanceID:  *instanceID,
			DHCPClient:  *dhcpClient,
			MetricsAddr: *metricsAddr,
			LogLevel:    *logLevel,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "serve failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		socketPath := clientSocket("status", os.Args[2:], 0)
		fail(cmd.RunStatus(socketPath))

	case "links":
		socketPath := clientSocket("links", os.Args[2:], 0)
		fail(cmd.RunLinks(socketPath))

	case "addrs":
		socketPath, args := clientSocketArgs("addrs", os.Args[2:], 1, "<link>")
		fail(cmd.RunAddrs(socketPath, args[0]))

	case "exists":
		socketPath, args := clientSocketArgs("exists", os.Args[2:], 1, "<link>")
		fail(cmd.RunExists(socketPath, args[0]))

	case "up":
		socketPath, args := clientSocketArgs("up", os.Args[2:], 1, "<link>")
		fail(cmd.RunSetLink(socketPath, args[0], true))

	case "down":
		socketPath, args := clientSocketArgs("down", os.Args[2:], 1, "<link>")
		fail(cmd.RunSetLink(socketPath, args[0], false))

	case "add-bridge":
		socketPath, args := clientSocketArgs("add-bridge", os.Args[2:], 1, "<name>")
		fail(cmd.RunAddBridge(socketPath, args[0]))

	case "add-veth":
		socketPath, args := clientSocketArgs("add-veth", os.Args[2:], 2, "<inside> <outside>")
		fail(cmd.RunAddVeth(socketPath, args[0], args[1]))

	case "add-vlan":
		socketPath, args := clientSocketArgs("add-vlan", os.Args[2:], 3, "<name> <parent> <tag>")
		fail(cmd.RunAddVLAN(socketPath, args[0], args[1], args[2]))

	case "add-vxlan":
		socketPath, args := clientSocketArgs("add-vxlan", os.Args[2:], 4, "<name> <parent> <vni> <group>")
		fail(cmd.RunAddVXLAN(socketPath, args[0], args[1], args[2], args[3]))

	case "delete":
		socketPath, args := clientSocketArgs("delete", os.Args[2:], 1, "<link>")
		fail(cmd.RunDelete(socketPath, args[0]))

	case "assign":
		socketPath, args := clientSocketArgs("assign", os.Args[2:], 2, "<link> <cidr|dhcp>")
		fail(cmd.RunAssign(socketPath, args[0], args[1]))

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// clientSocket parses client subcommand flags that take no positional args.
func clientSocket(name string, argv []string, nargs int) string {
	socketPath, _ := parseClient(name, argv, nargs, "")
	return socketPath
}

// clientSocketArgs parses client subcommand flags plus positional args.
func clientSocketArgs(name string, argv []string, nargs int, usage string) (string, []string) {
	return parseClient(name, argv, nargs, usage)
}

func parseClient(name string, argv []string, nargs int, usage string) (string, []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	socketPath := fs.String("socket", config.DefaultSocketPath, "Control socket path")
	fs.Parse(argv)
	if len(fs.Args()) != nargs {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-socket path] %s\n", os.Args[0], name, usage)
		os.Exit(2)
	}
	return *socketPath, fs.Args()
}

func fail(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`netns-manager - network namespace agent

Usage:
  %[1]s serve [-config file] [-netns name] [-socket path] [-log-level level]
      Join the namespace and serve the control socket.

  %[1]s status|links [-socket path]
  %[1]s addrs|exists|up|down|delete [-socket path] <link>
  %[1]s add-bridge [-socket path] <name>
  %[1]s add-veth [-socket path] <inside> <outside>
  %[1]s add-vlan [-socket path] <name> <parent> <tag>
  %[1]s add-vxlan [-socket path] <name> <parent> <vni> <group>
  %[1]s assign [-socket path] <link> <cidr|dhcp>
`, os.Args[0])
}
