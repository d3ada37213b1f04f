package selftest

import "log"

// Engine runs the BRT sequence. It is driven by Update on the self-test tick
// and by explicit Start/Interrupt calls, all from the loop goroutine.
type Engine struct {
	sides    Sides
	relays   Relays
	listener Listener

	step    Step
	state   State
	err     Error
	ticks   uint32
	warning bool
}

// New creates an engine in Stopped/NotYetRun.
func New(sides Sides, relays Relays, listener Listener) *Engine {
	return &Engine{
		sides:    sides,
		relays:   relays,
		listener: listener,
	}
}

// Ready reports whether a run could start now.
func (e *Engine) Ready() bool {
	return e.state != StateInProgress && e.atLeastOne()
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.state == StateInProgress
}

// Start begins a new run. Both relays are opened first.
func (e *Engine) Start() error {
	if e.state == StateInProgress {
		return ErrInProgress
	}
	if !e.atLeastOne() {
		return ErrNoActivity
	}

	e.err = ErrorNone
	e.warning = false
	e.ticks = 0
	e.step = StepInitTurnoff
	e.relays.SetRelays(false, false)
	log.Printf("selftest: started")
	e.setState(StateInProgress)
	return nil
}

// Interrupt abandons a running test. It is a no-op otherwise.
func (e *Engine) Interrupt() {
	if e.state != StateInProgress {
		return
	}
	log.Printf("selftest: interrupted at %s", e.step)
	e.setState(StateInterrupted)
}

// Update advances the running test by one self-test tick.
func (e *Engine) Update() {
	if e.state != StateInProgress {
		return
	}

	// Losing the signal on both sides is an external disconnection, not a
	// wiring defect.
	if !e.atLeastOne() {
		log.Printf("selftest: dcc lost at %s", e.step)
		e.setState(StateInterrupted)
		return
	}

	if e.advance() {
		return
	}

	e.ticks++
	if e.ticks >= StepTimeout {
		if e.waitsForBoth() {
			e.err = ErrorDCCNotAppeared
		} else {
			e.err = ErrorDCCNotDisappeared
		}
		log.Printf("selftest: step %s timed out: %s", e.step, e.err)
		e.setState(StateFail)
		return
	}
	if e.ticks == WarningTimeout && !e.warning {
		e.warning = true
		log.Printf("selftest: step %s slow", e.step)
		e.notifyChanged()
	}
}

// advance evaluates the current step's guard and moves on when it holds.
func (e *Engine) advance() bool {
	switch e.step {
	case StepInitTurnoff:
		e.setStep(StepWaitForSingleSide)
	case StepWaitForSingleSide:
		if !e.justSingle() {
			return false
		}
		e.relays.SetRelays(true, true)
		e.setStep(StepBothOnWait)
	case StepBothOnWait:
		if !e.both() {
			return false
		}
		e.relays.SetRelays(false, true)
		e.setStep(StepR1OffWait)
	case StepR1OffWait:
		if !e.justSingle() {
			return false
		}
		e.relays.SetRelays(true, true)
		e.setStep(StepR1OnWait)
	case StepR1OnWait:
		if !e.both() {
			return false
		}
		e.relays.SetRelays(true, false)
		e.setStep(StepR2OffWait)
	case StepR2OffWait:
		if !e.justSingle() {
			return false
		}
		e.relays.SetRelays(true, true)
		e.setStep(StepR2OnWait)
	case StepR2OnWait:
		if !e.both() {
			return false
		}
		e.step = StepFinished
		e.ticks = 0
		log.Printf("selftest: finished")
		e.setState(StateFinished)
	default:
		return false
	}
	return true
}

func (e *Engine) waitsForBoth() bool {
	switch e.step {
	case StepBothOnWait, StepR1OnWait, StepR2OnWait:
		return true
	}
	return false
}

func (e *Engine) setStep(s Step) {
	if s == e.step {
		return
	}
	e.step = s
	e.ticks = 0
	e.notifyChanged()
}

func (e *Engine) setState(s State) {
	if s == e.state {
		return
	}
	e.state = s
	e.notifyChanged()

	if e.listener == nil {
		return
	}
	switch s {
	case StateFail:
		e.listener.SelfTestFailed()
	case StateFinished:
		e.listener.SelfTestFinished()
	}
}

func (e *Engine) notifyChanged() {
	if e.listener != nil {
		e.listener.SelfTestChanged()
	}
}

func (e *Engine) atLeastOne() bool {
	s1, s2 := e.sides.Sides()
	return s1 || s2
}

func (e *Engine) justSingle() bool {
	s1, s2 := e.sides.Sides()
	return s1 != s2
}

func (e *Engine) both() bool {
	s1, s2 := e.sides.Sides()
	return s1 && s2
}

// State returns the run-state.
func (e *Engine) State() State { return e.state }

// Step returns the current or last step.
func (e *Engine) Step() Step { return e.step }

// Error returns the failure reason of the last run.
func (e *Engine) Error() Error { return e.err }

// Warning reports whether the current run has had a slow step.
func (e *Engine) Warning() bool { return e.warning }

// Snapshot returns a copy of the test state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		State:   e.state,
		Step:    e.step,
		Error:   e.err,
		Warning: e.warning,
		Ticks:   e.ticks,
	}
}
