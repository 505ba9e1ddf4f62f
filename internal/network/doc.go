// Package network implements the virtual network operations of the agent:
// bridges, veth pairs, VLANs, VXLAN tunnels, addresses and link attribute
// mutation inside the joined network namespace.
//
// # Architecture
//
//   - [Netlinker]: interface abstracting netlink interactions, so the
//     manager logic is testable without a kernel. The real implementation
//     wraps a single netlink handle opened once after the namespace
//     bootstrap; [MockNetlinker] backs the tests.
//   - [Manager]: owns the Netlinker behind a mutex. Every operation takes
//     the lock, resolves link names against live kernel state, mutates, and
//     releases. At most one netlink operation is in flight at any time.
//
// # Name resolution
//
// Link names are the only identifiers callers use. Kernel indices are
// resolved fresh at the start of every operation and never outlive it, so a
// link deleted between two calls is reliably reported as [ErrNotFound] by
// the second. Absence of a named link is a normal outcome, not a crash.
//
// # Composites
//
// Operations like AddBridge (create, then bring up) hold the lock for the
// whole sequence and surface the first failure without rolling back steps
// that already applied. A bridge whose up-step failed exists and is down;
// the caller sees the failure and decides.
package network
