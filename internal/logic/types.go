// Package logic contains the DC-01 mode controller: device mode, relay
// authority, button handling, host liveness and self-test orchestration.
// This package has NO hardware or OS dependencies; time advances only
// through tick calls, so behaviour is deterministic under tick injection.
package logic

import (
	"github.com/sweeney/dc01-interlock/internal/gpio"
	"github.com/sweeney/dc01-interlock/internal/selftest"
)

// Mode is the device operating mode. Values are part of the host protocol.
type Mode uint8

const (
	ModeInitializing Mode = 0
	ModeNormalOp     Mode = 1
	ModeBigRelayTest Mode = 2
	ModeOverride     Mode = 3
	ModeFailure      Mode = 4
)

var modeNames = [...]string{"INITIALIZING", "NORMAL_OP", "BIG_RELAY_TEST", "OVERRIDE", "FAILURE"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "UNKNOWN"
}

// FailureCode is reported to the host alongside the mode.
type FailureCode uint8

const (
	FailureNone       FailureCode = 0
	FailureBRT        FailureCode = 1
	FailureContinuity FailureCode = 2
)

func (f FailureCode) String() string {
	switch f {
	case FailureNone:
		return "NONE"
	case FailureBRT:
		return "BRT"
	case FailureContinuity:
		return "CONTINUITY"
	}
	return "UNKNOWN"
}

// Warning bits reported to the host.
const (
	WarningHostLiveness uint8 = 1 << 0
	WarningSelfTestSlow uint8 = 1 << 1
)

// Timing defaults, in coarse ticks (1 ms).
const (
	DefaultHostWarningMs = 500
	DefaultHostTimeoutMs = 1000
	DefaultNoTestMaxMs   = 10000
	DefaultAlertMs       = 3000
	HostWarningBlinkMs   = 250
	SelfTestBlinkMs      = 100
)

// Config holds controller timing.
type Config struct {
	HostWarningMs uint32
	HostTimeoutMs uint32
	NoTestMaxMs   uint32
	AlertMs       uint32
	SettleTicks   uint32 // fine ticks before leaving Initializing
}

// DefaultConfig returns the reference timing.
func DefaultConfig() Config {
	return Config{
		HostWarningMs: DefaultHostWarningMs,
		HostTimeoutMs: DefaultHostTimeoutMs,
		NoTestMaxMs:   DefaultNoTestMaxMs,
		AlertMs:       DefaultAlertMs,
		SettleTicks:   100,
	}
}

// EventType names a reportable controller event.
type EventType string

const (
	EventModeChanged         EventType = "MODE_CHANGED"
	EventConnected           EventType = "CONNECTED"
	EventDisconnected        EventType = "DISCONNECTED"
	EventSelfTestPassed      EventType = "BRT_PASSED"
	EventSelfTestFailed      EventType = "BRT_FAILED"
	EventSelfTestInterrupted EventType = "BRT_INTERRUPTED"
	EventHostWarning         EventType = "HOST_WARNING"
	EventHostTimeout         EventType = "HOST_TIMEOUT"
)

// Event is a state change worth publishing. It carries the controller state
// right after the change; the caller stamps the time.
type Event struct {
	Type      EventType
	Mode      Mode
	Connected bool
	Failure   FailureCode
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	ModeChanges          int
	Connects             int
	Disconnects          int
	SelfTestsPassed      int
	SelfTestsFailed      int
	SelfTestsInterrupted int
	HostWarnings         int
	HostTimeouts         int
}

func (c *EventCounts) add(t EventType) {
	switch t {
	case EventModeChanged:
		c.ModeChanges++
	case EventConnected:
		c.Connects++
	case EventDisconnected:
		c.Disconnects++
	case EventSelfTestPassed:
		c.SelfTestsPassed++
	case EventSelfTestFailed:
		c.SelfTestsFailed++
	case EventSelfTestInterrupted:
		c.SelfTestsInterrupted++
	case EventHostWarning:
		c.HostWarnings++
	case EventHostTimeout:
		c.HostTimeouts++
	}
}

// Inputs exposes debounced levels. Inputs are active-low.
type Inputs interface {
	State(pin gpio.Pin) bool
}

// Indicators drives the LEDs and signalling outputs.
type Indicators interface {
	Set(pin gpio.Pin, on bool)
	Blink(pin gpio.Pin, periodMs uint32)
	Pulse(pin gpio.Pin, durationMs uint32)
	Update1ms()
}

// SelfTest is the subset of the BRT engine the controller drives.
type SelfTest interface {
	Start() error
	Interrupt()
	Running() bool
	Warning() bool
	State() selftest.State
}

// Notifier collects pending host notices.
type Notifier interface {
	MarkState()
	MarkSelfTest()
}

// Status is a point-in-time copy of controller state.
type Status struct {
	Mode            Mode
	Relay1          bool
	Relay2          bool
	Connected       bool
	Side1           bool
	Side2           bool
	GoHeld          bool
	StopHeld        bool
	OverrideHeld    bool
	Failure         FailureCode
	Warnings        uint8
	HostCounterMs   uint32
	HostAlive       bool
	CooldownMs      uint32
	SelfTestPending bool
	Counts          EventCounts
}
