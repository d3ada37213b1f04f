// Package interlock assembles the DC-01 device: debounced inputs, the mode
// controller, the relay self-test, indicators and the host link, driven by
// the tick loop.
package interlock

import (
	"log"
	"time"

	"github.com/sweeney/dc01-interlock/internal/debounce"
	"github.com/sweeney/dc01-interlock/internal/gpio"
	"github.com/sweeney/dc01-interlock/internal/hostlink"
	"github.com/sweeney/dc01-interlock/internal/leds"
	"github.com/sweeney/dc01-interlock/internal/logic"
	"github.com/sweeney/dc01-interlock/internal/mqtt"
	"github.com/sweeney/dc01-interlock/internal/selftest"
	"github.com/sweeney/dc01-interlock/internal/status"
)

// Options configures a Device. Zero values select the defaults; Publisher,
// MQTTStatus and Tracker are optional.
type Options struct {
	Logic      logic.Config
	Debounce   *debounce.Table
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Tracker    *status.Tracker
	Now        func() time.Time
}

// Device owns every component of the interlock. It implements sched.Steps;
// all of its methods run on the loop goroutine.
type Device struct {
	pins gpio.Pins
	deb  *debounce.Engine
	ind  *leds.Indicators
	ctl  *logic.Controller
	brt  *selftest.Engine
	link *hostlink.Link

	pub     mqtt.Publisher
	mqttSt  mqtt.ConnectionStatus
	tracker *status.Tracker
	now     func() time.Time

	dirty bool
}

// New wires a device over pins and the host transport.
func New(pins gpio.Pins, tr hostlink.Transport, opts Options) *Device {
	table := debounce.DefaultTable()
	if opts.Debounce != nil {
		table = *opts.Debounce
	}
	cfg := opts.Logic
	if cfg == (logic.Config{}) {
		cfg = logic.DefaultConfig()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	d := &Device{
		pins:    pins,
		pub:     opts.Publisher,
		mqttSt:  opts.MQTTStatus,
		tracker: opts.Tracker,
		now:     now,
		dirty:   true,
	}
	d.deb = debounce.New(pins, table)
	cfg.SettleTicks = d.deb.SettleTicks()
	d.ind = leds.New(pins)
	d.ctl = logic.New(cfg, pins, d.ind, d.deb, d)
	d.brt = selftest.New(d.ctl, d.ctl, d.ctl)
	d.ctl.AttachSelfTest(d.brt)
	d.deb.SetHandler(d.ctl)
	d.link = hostlink.NewLink(tr, d, d)
	return d
}

// Controller returns the mode controller.
func (d *Device) Controller() *logic.Controller { return d.ctl }

// SelfTest returns the relay self-test engine.
func (d *Device) SelfTest() *selftest.Engine { return d.brt }

// Link returns the host link.
func (d *Device) Link() *hostlink.Link { return d.link }

// Debounce samples every input once and advances the settle counter.
func (d *Device) Debounce() {
	d.deb.Update()
	d.ctl.FineTick()
}

// Tick1ms advances the millisecond timers.
func (d *Device) Tick1ms() {
	d.ctl.Tick1ms()
	d.dirty = true
}

// SelfTestTick advances a running self-test by one step.
func (d *Device) SelfTestTick() {
	d.brt.Update()
}

// PendingStart starts a requested self-test if the engine accepts it.
func (d *Device) PendingStart() {
	d.ctl.PollPendingStart()
}

// HostTransport runs one host link pass.
func (d *Device) HostTransport(broadcast bool) {
	d.link.Poll(broadcast)
}

// Publish forwards drained controller events and refreshes the tracker.
func (d *Device) Publish() {
	events := d.ctl.DrainEvents()
	if len(events) > 0 {
		t := d.now()
		for _, ev := range events {
			log.Printf("event: %s (mode=%s connected=%t failure=%s)", ev.Type, ev.Mode, ev.Connected, ev.Failure)
			if d.pub == nil {
				continue
			}
			if err := d.pub.Publish(mqtt.Event{Timestamp: t, Event: ev}); err != nil {
				log.Printf("publish error: %v", err)
			}
		}
		d.dirty = true
	}
	if d.dirty {
		d.UpdateTracker()
	}
}

// UpdateTracker copies the current state into the tracker.
func (d *Device) UpdateTracker() {
	d.dirty = false
	if d.tracker == nil {
		return
	}
	d.tracker.Update(d.ctl.Status(), d.brt.Snapshot(), d.link.Stats())
	if d.mqttSt != nil {
		d.tracker.SetMQTTConnected(d.mqttSt.IsConnected())
	}
}

// MarkState implements logic.Notifier. The controller may notify before the
// link exists; the link starts with a state notice pending anyway.
func (d *Device) MarkState() {
	if d.link != nil {
		d.link.MarkState()
	}
}

// MarkSelfTest implements logic.Notifier.
func (d *Device) MarkSelfTest() {
	if d.link != nil {
		d.link.MarkSelfTest()
	}
}

// HostSetConnection implements hostlink.Handler.
func (d *Device) HostSetConnection(connect bool) {
	d.ctl.HostSetConnection(connect)
}

// HostStartSelfTest implements hostlink.Handler.
func (d *Device) HostStartSelfTest() {
	d.ctl.HostStartSelfTest()
}

// StateReport implements hostlink.Reporter.
func (d *Device) StateReport() hostlink.StateReport {
	s := d.ctl.Status()
	return hostlink.StateReport{
		Mode:      uint8(s.Mode),
		Connected: s.Connected,
		DCCActive: d.ctl.DCCActive(),
		Failure:   uint8(s.Failure),
		Warnings:  s.Warnings,
	}
}

// SelfTestReport implements hostlink.Reporter.
func (d *Device) SelfTestReport() hostlink.SelfTestReport {
	snap := d.brt.Snapshot()
	return hostlink.SelfTestReport{
		State: uint8(snap.State),
		Step:  uint8(snap.Step),
		Error: uint8(snap.Error),
	}
}
