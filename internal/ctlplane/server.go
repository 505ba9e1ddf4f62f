package ctlplane

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/logging"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/metrics"
	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/network"
)

// Server is the agent's RPC endpoint. One server serves one joined namespace.
type Server struct {
	manager    *network.Manager
	log        *logging.Logger
	instanceID uuid.UUID
	namespace  string
	socketPath string
	started    time.Time

	rpcServer *rpc.Server
	listener  net.Listener

	mu    sync.Mutex
	state State
	open  map[net.Conn]struct{}

	stopOnce sync.Once
	stopErr  error
	done     chan struct{}
	conns    sync.WaitGroup
}

// NewServer creates a server in the bootstrapped state. It does not listen
// until Start is called.
func NewServer(manager *network.Manager, namespace, socketPath string, instanceID uuid.UUID) *Server {
	return &Server{
		manager:    manager,
		log:        logging.WithComponent("ctlplane"),
		instanceID: instanceID,
		namespace:  namespace,
		socketPath: socketPath,
		state:      StateBootstrapped,
		open:       make(map[net.Conn]struct{}),
		done:       make(chan struct{}),
	}
}

func (s *Server) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// CurrentState returns the lifecycle state.
func (s *Server) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start listens on the configured Unix socket and begins serving.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o660); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return s.StartWithListener(listener)
}

// StartWithListener begins serving RPC on an existing listener. A dedicated
// rpc.Server is used per instance so multiple servers can coexist in one
// process.
func (s *Server) StartWithListener(listener net.Listener) error {
	s.rpcServer = rpc.NewServer()
	if err := s.rpcServer.RegisterName("Server", s); err != nil {
		return fmt.Errorf("failed to register RPC service: %w", err)
	}

	s.listener = listener
	s.started = time.Now()
	s.setState(StateServing)
	s.log.Info("control plane listening",
		"addr", listener.Addr(), "namespace", s.namespace, "instance", s.instanceID)

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Get().Uptime.Set(time.Since(s.started).Seconds())
			}
		}
	}()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.log.Error("accept failed", "error", err)
				return
			}
			// A conn handed out by Accept just before the listener closed
			// can arrive after the drain already swept s.open; re-check
			// the state under the same lock and half-close it ourselves.
			s.mu.Lock()
			s.open[conn] = struct{}{}
			draining := s.state != StateServing
			s.mu.Unlock()
			if draining {
				halfClose(conn)
			}
			s.conns.Add(1)
			go func() {
				defer s.conns.Done()
				defer func() {
					s.mu.Lock()
					delete(s.open, conn)
					s.mu.Unlock()
					if r := recover(); r != nil {
						s.log.Error("rpc connection handler panicked", "panic", r)
					}
				}()
				s.rpcServer.ServeConn(conn)
			}()
		}
	}()

	return nil
}

// Stop closes the listener, waits for in-flight calls to drain and removes
// the socket. Safe to call more than once and from multiple goroutines; every
// call returns the outcome of the first.
//
// Connections are half-closed rather than closed: shutting the read side
// makes ServeConn stop accepting requests, finish the calls already in
// flight and deliver their responses before returning.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.setState(StateDraining)
		s.log.Info("draining control plane")

		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.stopErr = err
			}
		}

		s.mu.Lock()
		for conn := range s.open {
			halfClose(conn)
		}
		s.mu.Unlock()
		s.conns.Wait()
		os.Remove(s.socketPath)

		s.setState(StateTerminated)
		close(s.done)
		s.log.Info("control plane terminated")
	})
	return s.stopErr
}

// Wait blocks until the server has terminated.
func (s *Server) Wait() {
	<-s.done
}

// halfClose shuts the read side of a connection so ServeConn finishes its
// in-flight calls and returns. Connections without a read side to shut are
// fully closed.
func halfClose(conn net.Conn) {
	if uc, ok := conn.(*net.UnixConn); ok {
		uc.CloseRead()
	} else {
		conn.Close()
	}
}

// begin returns the completion hook recording the outcome of one RPC call.
func (s *Server) begin(method string, r *Result) func() {
	start := time.Now()
	return func() {
		outcome := "ok"
		switch {
		case r.NotFound:
			outcome = "not_found"
		case r.Error != "":
			outcome = "error"
		}
		metrics.Get().ObserveRPC(method, outcome, time.Since(start))
		if r.Error != "" {
			s.log.Warn("operation failed", "method", method, "error", r.Error)
		}
	}
}

// Status reports the agent's identity and lifecycle state.
func (s *Server) Status(args *Empty, reply *StatusReply) error {
	reply.PID = os.Getpid()
	reply.InstanceID = s.instanceID.String()
	reply.Namespace = s.namespace
	reply.State = s.CurrentState()
	reply.Uptime = time.Since(s.started).Round(time.Second).String()
	return nil
}

// AddBridge creates a bridge and brings it up.
func (s *Server) AddBridge(args *AddBridgeArgs, reply *OpReply) error {
	defer s.begin("AddBridge", &reply.Result)()
	reply.set(s.manager.AddBridge(args.Name))
	if reply.Error == "" {
		metrics.Get().LinksCreated.WithLabelValues("bridge").Inc()
	}
	return nil
}

// AddVeth creates a veth pair and brings both ends up.
func (s *Server) AddVeth(args *AddVethArgs, reply *OpReply) error {
	defer s.begin("AddVeth", &reply.Result)()
	reply.set(s.manager.AddVeth(args.Inside, args.Outside))
	if reply.Error == "" {
		metrics.Get().LinksCreated.WithLabelValues("veth").Inc()
	}
	return nil
}

// AddVLAN creates an 802.1Q sub-interface and brings it up.
func (s *Server) AddVLAN(args *AddVLANArgs, reply *OpReply) error {
	defer s.begin("AddVLAN", &reply.Result)()
	reply.set(s.manager.AddVLAN(args.Name, args.Parent, args.Tag))
	if reply.Error == "" {
		metrics.Get().LinksCreated.WithLabelValues("vlan").Inc()
	}
	return nil
}

// AddMcastVXLAN creates a multicast VXLAN device and brings it up.
func (s *Server) AddMcastVXLAN(args *AddMcastVXLANArgs, reply *OpReply) error {
	defer s.begin("AddMcastVXLAN", &reply.Result)()
	reply.set(s.manager.AddMcastVXLAN(args.Name, args.Parent, args.VNI, args.Group, args.Port))
	if reply.Error == "" {
		metrics.Get().LinksCreated.WithLabelValues("vxlan").Inc()
	}
	return nil
}

// AddPtpVXLAN creates a point-to-point VXLAN device.
func (s *Server) AddPtpVXLAN(args *AddPtpVXLANArgs, reply *OpReply) error {
	defer s.begin("AddPtpVXLAN", &reply.Result)()
	reply.set(s.manager.AddPtpVXLAN(args.Name, args.Parent, args.VNI, args.Local, args.Remote, args.Port))
	if reply.Error == "" {
		metrics.Get().LinksCreated.WithLabelValues("vxlan").Inc()
	}
	return nil
}

// DeleteLink removes a link by name.
func (s *Server) DeleteLink(args *DeleteLinkArgs, reply *OpReply) error {
	defer s.begin("DeleteLink", &reply.Result)()
	reply.set(s.manager.DeleteLink(args.Name))
	if reply.Error == "" {
		metrics.Get().LinksDeleted.Inc()
	}
	return nil
}

// SetMaster enslaves a link under a master link.
func (s *Server) SetMaster(args *SetMasterArgs, reply *OpReply) error {
	defer s.begin("SetMaster", &reply.Result)()
	reply.set(s.manager.SetMaster(args.Name, args.Master))
	return nil
}

// ClearMaster removes a link's enslavement.
func (s *Server) ClearMaster(args *ClearMasterArgs, reply *OpReply) error {
	defer s.begin("ClearMaster", &reply.Result)()
	reply.set(s.manager.ClearMaster(args.Name))
	return nil
}

// AddAddress binds a static address to a link.
func (s *Server) AddAddress(args *AddAddressArgs, reply *OpReply) error {
	defer s.begin("AddAddress", &reply.Result)()
	reply.set(s.manager.AddAddress(args.Name, args.IP, args.PrefixLen))
	return nil
}

// RemoveAddress removes the exactly matching address from a link.
func (s *Server) RemoveAddress(args *RemoveAddressArgs, reply *OpReply) error {
	defer s.begin("RemoveAddress", &reply.Result)()
	reply.set(s.manager.RemoveAddress(args.Name, args.IP))
	return nil
}

// ListAddresses returns all addresses bound to a link.
func (s *Server) ListAddresses(args *ListAddressesArgs, reply *ListAddressesReply) error {
	defer s.begin("ListAddresses", &reply.Result)()
	addrs, err := s.manager.Addresses(args.Name)
	reply.Addresses = addrs
	reply.set(err)
	return nil
}

// EnsureAddress assigns an address to a link, statically or via DHCP, and
// returns the resulting address set.
func (s *Server) EnsureAddress(args *EnsureAddressArgs, reply *EnsureAddressReply) error {
	defer s.begin("EnsureAddress", &reply.Result)()
	addrs, err := s.manager.EnsureAddress(args.Name, args.Address)
	reply.Addresses = addrs
	reply.set(err)
	if args.Address == nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.Get().DHCPRuns.WithLabelValues(outcome).Inc()
	}
	return nil
}

// RenameLink changes a link's name.
func (s *Server) RenameLink(args *RenameLinkArgs, reply *OpReply) error {
	defer s.begin("RenameLink", &reply.Result)()
	reply.set(s.manager.Rename(args.Name, args.NewName))
	return nil
}

// SetMAC updates a link's hardware address.
func (s *Server) SetMAC(args *SetMACArgs, reply *OpReply) error {
	defer s.begin("SetMAC", &reply.Result)()
	reply.set(s.manager.SetMAC(args.Name, args.MAC))
	return nil
}

// MoveToDefault reassigns a link to the default network namespace.
func (s *Server) MoveToDefault(args *MoveToDefaultArgs, reply *OpReply) error {
	defer s.begin("MoveToDefault", &reply.Result)()
	reply.set(s.manager.MoveToDefaultNamespace(args.Name))
	return nil
}

// SetUp brings a link administratively up.
func (s *Server) SetUp(args *SetUpArgs, reply *OpReply) error {
	defer s.begin("SetUp", &reply.Result)()
	reply.set(s.manager.SetUp(args.Name))
	return nil
}

// SetDown brings a link administratively down.
func (s *Server) SetDown(args *SetDownArgs, reply *OpReply) error {
	defer s.begin("SetDown", &reply.Result)()
	reply.set(s.manager.SetDown(args.Name))
	return nil
}

// Exists reports whether a link is present in the namespace.
func (s *Server) Exists(args *ExistsArgs, reply *ExistsReply) error {
	defer s.begin("Exists", &reply.Result)()
	exists, err := s.manager.Exists(args.Name)
	reply.Exists = exists
	reply.set(err)
	return nil
}

// ListLinks returns the names of all links in the namespace.
func (s *Server) ListLinks(args *Empty, reply *ListLinksReply) error {
	defer s.begin("ListLinks", &reply.Result)()
	names, err := s.manager.Links()
	reply.Names = names
	reply.set(err)
	return nil
}
