//go:build linux

package netns

import (
	"errors"
	"fmt"
	"runtime"

	vnetns "github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/logging"
)

const sysMount = "/sys"

// Join binds the calling process to the named network namespace and gives it
// a private /sys view of that namespace.
//
// Sequence, every step fatal on failure (no rollback is possible once the
// process state has been mutated):
//  1. open the namespace handle under /run/netns, read-only close-on-exec
//  2. setns(CLONE_NEWNET), then close the handle
//  3. unshare(CLONE_NEWNS) so mount changes stay process-local
//  4. remount / as a recursive slave mount
//  5. detach the inherited /sys
//  6. mount a fresh sysfs tagged with the namespace name
//
// The calling OS thread is locked and never unlocked; namespace and mount
// membership are per-thread state on Linux.
func Join(name string) (*Joined, error) {
	runtime.LockOSThread()

	log := logging.WithComponent("netns")
	log.Debug("joining network namespace", "name", name)

	handle, err := vnetns.GetFromName(name)
	if err != nil {
		return nil, fmt.Errorf("netns: failed to open handle %s: %w", HandlePath(name), err)
	}
	if err := vnetns.Set(handle); err != nil {
		handle.Close()
		return nil, fmt.Errorf("netns: setns into %q failed: %w", name, err)
	}
	if err := handle.Close(); err != nil {
		log.Warn("failed to close namespace handle", "name", name, "error", err)
	}

	if err := unix.Unshare(unix.CLONE_NEWNS); err != nil {
		return nil, fmt.Errorf("netns: unshare mount namespace: %w", err)
	}
	if err := unix.Mount("", "/", "none", unix.MS_REC|unix.MS_SLAVE, ""); err != nil {
		return nil, fmt.Errorf("netns: remount / as recursive slave: %w", err)
	}
	if err := unix.Unmount(sysMount, unix.MNT_DETACH); err != nil {
		return nil, fmt.Errorf("netns: detach inherited /sys: %w", err)
	}
	// Source-tag the fresh sysfs with the namespace name so mount listings
	// show which namespace this /sys belongs to.
	if err := unix.Mount(name, sysMount, "sysfs", 0, ""); err != nil {
		return nil, fmt.Errorf("netns: mount sysfs for %q: %w", name, err)
	}

	log.Info("joined network namespace", "name", name)
	return &Joined{Name: name}, nil
}

// Teardown reverses the mount side of the bootstrap in inverse order:
// the namespace-local /sys first, then the namespace registry mount.
// Best-effort; the namespace join itself cannot be undone.
func (j *Joined) Teardown() error {
	log := logging.WithComponent("netns")

	var errs []error
	if err := unix.Unmount(sysMount, unix.MNT_DETACH); err != nil {
		log.Warn("failed to unmount /sys", "error", err)
		errs = append(errs, fmt.Errorf("netns: unmount /sys: %w", err))
	}
	if err := unix.Unmount(RunDir, unix.MNT_DETACH); err != nil {
		log.Warn("failed to unmount namespace registry", "path", RunDir, "error", err)
		errs = append(errs, fmt.Errorf("netns: unmount %s: %w", RunDir, err))
	}
	return errors.Join(errs...)
}
