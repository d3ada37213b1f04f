// Package watchdog keeps a hardware watchdog fed from the coarse tick.
package watchdog

import (
	"sync/atomic"
	"time"
)

// Watchdog is refreshed periodically while the device runs. Disarm stops it
// before an intentional halt.
type Watchdog interface {
	Refresh()
	Disarm() error
}

// Nop is a watchdog that does nothing. Used when no device is configured.
type Nop struct {
	refreshes atomic.Int64
}

func (n *Nop) Refresh() { n.refreshes.Add(1) }
func (n *Nop) Disarm() error { return nil }

// Refreshes returns how many times Refresh was called.
func (n *Nop) Refreshes() int64 { return n.refreshes.Load() }

// throttle lets at most one action through per interval.
type throttle struct {
	interval time.Duration
	last     atomic.Int64
}

func (t *throttle) allow(now time.Time) bool {
	n := now.UnixNano()
	last := t.last.Load()
	if last != 0 && n-last < int64(t.interval) {
		return false
	}
	return t.last.CompareAndSwap(last, n)
}
