//go:build !linux

package watchdog

import (
	"errors"
	"time"
)

// DefaultPath is the kernel watchdog device.
const DefaultPath = "/dev/watchdog"

// Device is unavailable on this platform.
type Device struct{}

// OpenDevice always fails on non-Linux platforms.
func OpenDevice(path string, timeout time.Duration) (*Device, error) {
	return nil, errors.New("watchdog not supported on this platform")
}

func (d *Device) Refresh() {}
func (d *Device) Disarm() error { return nil }
