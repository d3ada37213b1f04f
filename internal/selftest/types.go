// Package selftest implements the Big Relay Test (BRT): a self-administered
// isolation test proving that opening either relay separates the two DCC
// sides and closing both joins them, whichever side carries the signal.
package selftest

import "errors"

// Step is the position inside a running test. It is kept after the run ends
// as a diagnostic marker and reset only when a new run starts.
type Step uint8

const (
	StepStopped Step = iota
	StepInitTurnoff
	StepWaitForSingleSide
	StepBothOnWait
	StepR1OffWait
	StepR1OnWait
	StepR2OffWait
	StepR2OnWait
	StepFinished
)

var stepNames = [...]string{
	"STOPPED", "INIT_TURNOFF", "WAIT_SINGLE_SIDE", "BOTH_ON_WAIT",
	"R1_OFF_WAIT", "R1_ON_WAIT", "R2_OFF_WAIT", "R2_ON_WAIT", "FINISHED",
}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return "UNKNOWN"
}

// State is the run-state of the test.
type State uint8

const (
	StateNotYetRun State = iota
	StateInProgress
	StateFinished
	StateFail
	StateInterrupted
)

var stateNames = [...]string{"NOT_YET_RUN", "IN_PROGRESS", "FINISHED", "FAIL", "INTERRUPTED"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Error describes why a run failed.
type Error uint8

const (
	ErrorNone Error = iota
	ErrorDCCNotAppeared
	ErrorDCCNotDisappeared
)

var errorNames = [...]string{"NONE", "DCC_NOT_APPEARED", "DCC_NOT_DISAPPEARED"}

func (e Error) String() string {
	if int(e) < len(errorNames) {
		return errorNames[e]
	}
	return "UNKNOWN"
}

// Timeouts in self-test ticks (100 ms).
const (
	WarningTimeout = 2
	StepTimeout    = 10
)

// Start rejection reasons.
var (
	ErrInProgress = errors.New("selftest: already in progress")
	ErrNoActivity = errors.New("selftest: no dcc activity on either side")
)

// Sides reports debounced DCC activity on both circuit segments.
type Sides interface {
	Sides() (side1, side2 bool)
}

// Relays is the narrow relay mutator the test drives.
type Relays interface {
	SetRelays(relay1, relay2 bool)
}

// Listener is notified of test progress. Changed is called on every step or
// state change; Finished and Failed additionally on those terminal states.
type Listener interface {
	SelfTestChanged()
	SelfTestFinished()
	SelfTestFailed()
}

// Snapshot is a point-in-time copy of the test state.
type Snapshot struct {
	State   State
	Step    Step
	Error   Error
	Warning bool
	Ticks   uint32
}
