// Package status provides a thread-safe status tracker for the dc01d daemon.
// The loop goroutine writes it; HTTP handlers and MQTT system events read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dc01-interlock/internal/hostlink"
	"github.com/sweeney/dc01-interlock/internal/logic"
	"github.com/sweeney/dc01-interlock/internal/selftest"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip          string
	SerialPort    string
	Broker        string
	HTTPAddr      string
	Watchdog      string
	HeartbeatMs   int64
	HostTimeoutMs uint32
	NoTestMaxMs   uint32
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Device        logic.Status
	SelfTest      selftest.Snapshot
	Host          hostlink.Stats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the device, self-test and host link state.
func (t *Tracker) Update(dev logic.Status, st selftest.Snapshot, host hostlink.Stats) {
	t.mu.Lock()
	t.snap.Device = dev
	t.snap.SelfTest = st
	t.snap.Host = host
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
