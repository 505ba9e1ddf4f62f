//go:build !linux

package netns

import "fmt"

// Join is only supported on Linux.
func Join(name string) (*Joined, error) {
	return nil, fmt.Errorf("netns: namespace join not supported on this platform")
}

// Teardown is a no-op on non-Linux platforms.
func (j *Joined) Teardown() error {
	return nil
}
