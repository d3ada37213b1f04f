package sched

import "context"

// Steps are the loop's handlers, dispatched in this order on every pass:
// debounce, indicators, self-test, pending self-test start, host transport,
// publish.
type Steps interface {
	Debounce()
	Tick1ms()
	SelfTestTick()
	PendingStart()
	HostTransport(broadcast bool)
	Publish()
}

// Loop dispatches tick work to Steps.
type Loop struct {
	ticks *Ticks
	steps Steps
}

// NewLoop creates a loop over ticks.
func NewLoop(ticks *Ticks, steps Steps) *Loop {
	return &Loop{ticks: ticks, steps: steps}
}

// Iterate runs one pass. A flag is cleared only after its handler returns.
func (l *Loop) Iterate() {
	for n := l.ticks.fine.Take(); n > 0; n-- {
		l.steps.Debounce()
	}
	for n := l.ticks.coarse.Take(); n > 0; n-- {
		l.steps.Tick1ms()
	}
	if l.ticks.selfTest.IsSet() {
		l.steps.SelfTestTick()
		l.ticks.selfTest.Clear()
	}
	l.steps.PendingStart()

	broadcast := l.ticks.broadcast.IsSet()
	l.steps.HostTransport(broadcast)
	if broadcast {
		l.ticks.broadcast.Clear()
	}
	l.steps.Publish()
}

// Run iterates whenever a tick source signals, until ctx is cancelled.
// extra, when non-nil, also wakes the loop (inbound host frames).
func (l *Loop) Run(ctx context.Context, extra <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.ticks.wake:
		case <-extra:
		}
		l.Iterate()
	}
}
