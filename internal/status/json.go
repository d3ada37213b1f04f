package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dc01-interlock/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Mode          string       `json:"mode"`
	Failure       string       `json:"failure"`
	Ready         bool         `json:"ready"`
	Relays        RelaysJSON   `json:"relays"`
	DCC           DCCJSON      `json:"dcc"`
	Buttons       ButtonsJSON  `json:"buttons"`
	SelfTest      SelfTestJSON `json:"selftest"`
	Host          HostJSON     `json:"host"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Config        ConfigJSON   `json:"config"`
}

// RelaysJSON reports the relay pair.
type RelaysJSON struct {
	Relay1    bool `json:"relay1"`
	Relay2    bool `json:"relay2"`
	Connected bool `json:"connected"`
}

// DCCJSON reports debounced DCC presence per side.
type DCCJSON struct {
	Side1  bool `json:"side1"`
	Side2  bool `json:"side2"`
	Active bool `json:"active"`
}

// ButtonsJSON reports which buttons are held.
type ButtonsJSON struct {
	Go       bool `json:"go"`
	Stop     bool `json:"stop"`
	Override bool `json:"override"`
}

// SelfTestJSON reports the relay self-test.
type SelfTestJSON struct {
	State      string `json:"state"`
	Step       string `json:"step"`
	Error      string `json:"error"`
	Warning    bool   `json:"warning"`
	Pending    bool   `json:"pending"`
	CooldownMs uint32 `json:"cooldown_ms"`
}

// HostJSON reports host liveness and link traffic.
type HostJSON struct {
	Alive     bool   `json:"alive"`
	SilentMs  uint32 `json:"silent_ms"`
	Warning   bool   `json:"warning"`
	Listening bool   `json:"listening"`
	FramesIn  int    `json:"frames_in"`
	FramesOut int    `json:"frames_out"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ModeChanges          int `json:"mode_changes"`
	Connects             int `json:"connects"`
	Disconnects          int `json:"disconnects"`
	SelfTestsPassed      int `json:"selftests_passed"`
	SelfTestsFailed      int `json:"selftests_failed"`
	SelfTestsInterrupted int `json:"selftests_interrupted"`
	HostWarnings         int `json:"host_warnings"`
	HostTimeouts         int `json:"host_timeouts"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip          string `json:"chip"`
	SerialPort    string `json:"serial_port"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	Watchdog      string `json:"watchdog"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	HostTimeoutMs uint32 `json:"host_timeout_ms"`
	NoTestMaxMs   uint32 `json:"no_test_max_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	d := snap.Device
	c := d.Counts
	return StatusInner{
		Mode:    d.Mode.String(),
		Failure: d.Failure.String(),
		Ready:   d.Mode != logic.ModeInitializing,
		Relays:  RelaysJSON{Relay1: d.Relay1, Relay2: d.Relay2, Connected: d.Connected},
		DCC:     DCCJSON{Side1: d.Side1, Side2: d.Side2, Active: d.Side1 || d.Side2},
		Buttons: ButtonsJSON{Go: d.GoHeld, Stop: d.StopHeld, Override: d.OverrideHeld},
		SelfTest: SelfTestJSON{
			State:      snap.SelfTest.State.String(),
			Step:       snap.SelfTest.Step.String(),
			Error:      snap.SelfTest.Error.String(),
			Warning:    snap.SelfTest.Warning,
			Pending:    d.SelfTestPending,
			CooldownMs: d.CooldownMs,
		},
		Host: HostJSON{
			Alive:     d.HostAlive,
			SilentMs:  d.HostCounterMs,
			Warning:   d.Warnings&logic.WarningHostLiveness != 0,
			Listening: snap.Host.Ready,
			FramesIn:  snap.Host.FramesIn,
			FramesOut: snap.Host.FramesOut,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			ModeChanges:          c.ModeChanges,
			Connects:             c.Connects,
			Disconnects:          c.Disconnects,
			SelfTestsPassed:      c.SelfTestsPassed,
			SelfTestsFailed:      c.SelfTestsFailed,
			SelfTestsInterrupted: c.SelfTestsInterrupted,
			HostWarnings:         c.HostWarnings,
			HostTimeouts:         c.HostTimeouts,
		},
		Config: ConfigJSON{
			Chip:          snap.Config.Chip,
			SerialPort:    snap.Config.SerialPort,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			Watchdog:      snap.Config.Watchdog,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			HostTimeoutMs: snap.Config.HostTimeoutMs,
			NoTestMaxMs:   snap.Config.NoTestMaxMs,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
