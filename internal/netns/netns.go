// Package netns performs the one-shot process-level bootstrap that binds the
// agent to a named network namespace.
//
// The bootstrap is irrevocable: it joins the target network namespace,
// detaches the mount namespace, and replaces /sys with a sysfs instance that
// reflects the joined namespace. There is no way back short of process exit,
// which is why Join returns a capability token ([Joined]) that the rest of
// the agent requires before it will touch the kernel.
//
// Join must run before any other goroutines are started: namespace and mount
// changes are thread-level state and must not race with the scheduler moving
// goroutines across OS threads.
package netns

import "path/filepath"

// RunDir is the well-known iproute2 namespace registry.
const RunDir = "/run/netns"

// Joined is the proof that the process has been bound to a network
// namespace. Exactly one is ever created per process; constructors that need
// namespace-local kernel state take it as an argument.
type Joined struct {
	// Name of the joined namespace.
	Name string
}

// HandlePath returns the namespace handle location for a namespace name.
func HandlePath(name string) string {
	return filepath.Join(RunDir, name)
}
