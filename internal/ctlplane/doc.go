// Package ctlplane provides the RPC interface between the namespace agent and
// its callers on the node.
//
// The server listens on a Unix socket inside the host filesystem and serves
// one RPC connection per caller over net/rpc with gob encoding. All methods
// delegate to the network manager, which owns the kernel control channel for
// the joined namespace.
//
// # RPC Naming Convention
//
// All RPC types follow the pattern:
//   - Request: {MethodName}Args
//   - Response: {MethodName}Reply
//
// Empty is used for methods with no arguments. Every reply embeds [Result];
// operation failures travel in Result.Error rather than the RPC error return
// so that the NotFound distinction survives the wire.
//
// # Lifecycle
//
// A server moves through four states: bootstrapped (constructed, not yet
// listening), serving, draining (listener closed, in-flight calls finishing)
// and terminated. Stop is idempotent and safe to call from any goroutine;
// the first call drives the drain, later calls return the same outcome.
package ctlplane
