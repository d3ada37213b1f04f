// Package sched provides the cooperative loop that runs all device logic and
// the tick sources that feed it. Tick sources only touch atomic flags, the
// wake channel and the watchdog; everything else happens on the loop
// goroutine.
package sched

import (
	"context"
	"time"
)

// Coarse tick dividers.
const (
	SelfTestDivider  = 100 // self-test update every 100 ms
	BroadcastDivider = 500 // state broadcast every 500 ms
)

// Default tick periods.
const (
	DefaultFinePeriod   = 100 * time.Microsecond
	DefaultCoarsePeriod = time.Millisecond
)

// Refresher is kept alive from the coarse tick.
type Refresher interface {
	Refresh()
}

// Ticks holds the work signalled by the tick sources.
type Ticks struct {
	fine      Counter
	coarse    Counter
	selfTest  Flag
	broadcast Flag

	coarseCount uint32 // owned by the coarse tick source
	watchdog    Refresher
	wake        chan struct{}
}

// NewTicks creates the tick state. wd may be nil.
func NewTicks(wd Refresher) *Ticks {
	return &Ticks{
		watchdog: wd,
		wake:     make(chan struct{}, 1),
	}
}

// Fine records one fine (debounce) tick.
func (t *Ticks) Fine() {
	t.fine.Add()
	t.signal()
}

// Coarse records one coarse (1 ms) tick, raises the divided flags and
// refreshes the watchdog.
func (t *Ticks) Coarse() {
	t.coarse.Add()
	t.coarseCount++
	if t.coarseCount%SelfTestDivider == 0 {
		t.selfTest.Set()
	}
	if t.coarseCount%BroadcastDivider == 0 {
		t.broadcast.Set()
		t.coarseCount = 0
	}
	if t.watchdog != nil {
		t.watchdog.Refresh()
	}
	t.signal()
}

// Wake returns the channel signalled whenever new work is recorded.
func (t *Ticks) Wake() <-chan struct{} {
	return t.wake
}

func (t *Ticks) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Source calls fn every period until ctx is cancelled.
func Source(ctx context.Context, period time.Duration, fn func()) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
