//go:build linux

package watchdog

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultPath is the kernel watchdog device.
const DefaultPath = "/dev/watchdog"

// Device drives a Linux watchdog device. The kernel resets the board when
// no keepalive arrives within the timeout.
type Device struct {
	mu       sync.Mutex
	f        *os.File
	throttle throttle
}

// OpenDevice opens path and programs the timeout. Keepalives are written at
// most every timeout/4 regardless of how often Refresh is called.
func OpenDevice(path string, timeout time.Duration) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog %s: %w", path, err)
	}
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		// Some drivers fix the timeout; keep going with theirs.
		log.Printf("watchdog: set timeout %ds: %v", secs, err)
	}
	d := &Device{f: f}
	d.throttle.interval = time.Duration(secs) * time.Second / 4
	return d, nil
}

// Refresh writes a keepalive if the throttle interval has passed.
func (d *Device) Refresh() {
	if !d.throttle.allow(time.Now()) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return
	}
	if _, err := d.f.Write([]byte{0}); err != nil {
		log.Printf("watchdog: keepalive: %v", err)
	}
}

// Disarm writes the magic close character and closes the device, stopping
// the watchdog on drivers that support it.
func (d *Device) Disarm() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	_, werr := d.f.Write([]byte{'V'})
	cerr := d.f.Close()
	d.f = nil
	if werr != nil {
		return fmt.Errorf("disarm watchdog: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("close watchdog: %w", cerr)
	}
	return nil
}
