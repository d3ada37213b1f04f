package web

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/dc01-interlock/internal/status"
)

const namespace = "dc01"

// Collector exports a tracker snapshot as Prometheus metrics on every scrape.
type Collector struct {
	tracker *status.Tracker

	mode          *prometheus.Desc
	relay         *prometheus.Desc
	connected     *prometheus.Desc
	dccSide       *prometheus.Desc
	failure       *prometheus.Desc
	hostAlive     *prometheus.Desc
	hostSilent    *prometheus.Desc
	selfTestState *prometheus.Desc
	selfTestStep  *prometheus.Desc
	events        *prometheus.Desc
	frames        *prometheus.Desc
	mqttConnected *prometheus.Desc
	uptime        *prometheus.Desc
}

// NewCollector creates a collector over tracker.
func NewCollector(tracker *status.Tracker) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		tracker:       tracker,
		mode:          desc("mode", "Current device mode (0 initializing, 1 normal, 2 relay test, 3 override, 4 failure)."),
		relay:         desc("relay_closed", "Whether a relay is closed.", "relay"),
		connected:     desc("connected", "Whether both relays are closed."),
		dccSide:       desc("dcc_active", "Whether DCC is present on a side.", "side"),
		failure:       desc("failure_code", "Current failure code."),
		hostAlive:     desc("host_alive", "Whether the host reported recently and wants the output connected."),
		hostSilent:    desc("host_silent_ms", "Milliseconds since the last host report, capped at the timeout."),
		selfTestState: desc("selftest_state", "Relay self-test run state."),
		selfTestStep:  desc("selftest_step", "Relay self-test step."),
		events:        desc("events_total", "Controller events since startup.", "type"),
		frames:        desc("host_frames_total", "Host link frames.", "direction"),
		mqttConnected: desc("mqtt_connected", "Whether the MQTT broker connection is up."),
		uptime:        desc("uptime_seconds", "Seconds since the daemon started."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.mode, c.relay, c.connected, c.dccSide, c.failure, c.hostAlive, c.hostSilent,
		c.selfTestState, c.selfTestStep, c.events, c.frames, c.mqttConnected, c.uptime,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.tracker.Snapshot()
	d := snap.Device
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}
	counter := func(desc *prometheus.Desc, v int, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}

	gauge(c.mode, float64(d.Mode))
	gauge(c.relay, boolValue(d.Relay1), "1")
	gauge(c.relay, boolValue(d.Relay2), "2")
	gauge(c.connected, boolValue(d.Connected))
	gauge(c.dccSide, boolValue(d.Side1), "1")
	gauge(c.dccSide, boolValue(d.Side2), "2")
	gauge(c.failure, float64(d.Failure))
	gauge(c.hostAlive, boolValue(d.HostAlive))
	gauge(c.hostSilent, float64(d.HostCounterMs))
	gauge(c.selfTestState, float64(snap.SelfTest.State))
	gauge(c.selfTestStep, float64(snap.SelfTest.Step))
	gauge(c.mqttConnected, boolValue(snap.MQTTConnected))
	gauge(c.uptime, snap.Uptime().Seconds())

	counter(c.events, d.Counts.ModeChanges, "mode_changed")
	counter(c.events, d.Counts.Connects, "connected")
	counter(c.events, d.Counts.Disconnects, "disconnected")
	counter(c.events, d.Counts.SelfTestsPassed, "selftest_passed")
	counter(c.events, d.Counts.SelfTestsFailed, "selftest_failed")
	counter(c.events, d.Counts.SelfTestsInterrupted, "selftest_interrupted")
	counter(c.events, d.Counts.HostWarnings, "host_warning")
	counter(c.events, d.Counts.HostTimeouts, "host_timeout")
	counter(c.frames, snap.Host.FramesIn, "in")
	counter(c.frames, snap.Host.FramesOut, "out")
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
