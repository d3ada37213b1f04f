package logic

import (
	"log"

	"github.com/sweeney/dc01-interlock/internal/gpio"
)

// Controller owns the device mode and is the single authority over the relay
// pair. All methods must be called from the loop goroutine.
type Controller struct {
	cfg    Config
	pins   gpio.Pins
	leds   Indicators
	inputs Inputs
	notify Notifier
	brt    SelfTest

	mode      Mode
	relay1    bool
	relay2    bool
	failure   FailureCode
	switching bool

	hostCounter uint32
	hostWants   bool
	hostWarned  bool

	cooldown   uint32
	pending    bool
	lastReject error
	fineTicks  uint32
	dccActive  bool

	events []Event
	counts EventCounts
}

// New creates a controller in Initializing with the relays open. The host is
// considered silent and the relays unproven until told otherwise.
func New(cfg Config, pins gpio.Pins, leds Indicators, inputs Inputs, notify Notifier) *Controller {
	c := &Controller{
		cfg:         cfg,
		pins:        pins,
		leds:        leds,
		inputs:      inputs,
		notify:      notify,
		mode:        ModeInitializing,
		hostCounter: cfg.HostTimeoutMs,
		cooldown:    cfg.NoTestMaxMs,
	}
	c.writeRelays(false, false)
	c.leds.Set(gpio.PinLedGo, false)
	c.leds.Set(gpio.PinLedStop, true)
	c.enterInitializing()
	return c
}

// AttachSelfTest wires the BRT engine. It must be called before the first tick.
func (c *Controller) AttachSelfTest(brt SelfTest) {
	c.brt = brt
}

// Mode returns the current device mode.
func (c *Controller) Mode() Mode { return c.mode }

// Connected reports whether both relays are closed.
func (c *Controller) Connected() bool { return c.relay1 && c.relay2 }

// Failure returns the current failure code.
func (c *Controller) Failure() FailureCode { return c.failure }

// SetMode switches the device mode and applies its entry effects.
// Re-entering the current mode is a no-op.
func (c *Controller) SetMode(m Mode) {
	if m == c.mode {
		return
	}
	prev := c.mode
	c.mode = m
	c.notify.MarkState()
	log.Printf("mode: %s -> %s", prev, m)
	c.emit(EventModeChanged)

	c.abandonSelfTest()

	switch m {
	case ModeInitializing:
		c.enterInitializing()
	case ModeNormalOp:
		c.enterOperational()
		c.resumeNormal()
	case ModeOverride:
		c.pending = false
		c.enterOperational()
	case ModeBigRelayTest:
		c.leds.Set(gpio.PinLedRed, false)
		c.leds.Set(gpio.PinLedGreen, false)
		c.leds.Set(gpio.PinLedYellow, true)
		if err := c.brt.Start(); err != nil {
			log.Printf("mode: self-test rejected: %v", err)
			c.failure = FailureBRT
			c.SetMode(ModeFailure)
		}
	case ModeFailure:
		c.pending = false
		c.leds.Set(gpio.PinLedRed, true)
		c.leds.Set(gpio.PinLedGreen, false)
		c.leds.Pulse(gpio.PinOutAlert, c.cfg.AlertMs)
		c.SetRelays(false, false)
	}
}

// abandonSelfTest interrupts a running test on behalf of the caller. The
// interruption callback must not start a mode switch of its own.
func (c *Controller) abandonSelfTest() {
	c.switching = true
	c.brt.Interrupt()
	c.switching = false
}

func (c *Controller) enterInitializing() {
	c.leds.Set(gpio.PinLedRed, true)
	c.leds.Set(gpio.PinLedYellow, true)
}

// enterOperational applies the indicator state shared by NormalOp and Override.
func (c *Controller) enterOperational() {
	c.leds.Set(gpio.PinLedRed, false)
	c.leds.Set(gpio.PinLedGreen, true)
	c.updateSelfTestLED()
}

// SetRelays is the only relay mutator. The host is told only when the
// combined connected state changes.
func (c *Controller) SetRelays(relay1, relay2 bool) {
	was := c.Connected()
	c.writeRelays(relay1, relay2)
	now := c.Connected()

	c.leds.Set(gpio.PinLedGo, now)
	c.leds.Set(gpio.PinLedStop, !now)
	c.leds.Set(gpio.PinOutOn, now)

	inTest := c.brt != nil && c.brt.Running()
	// Relays closed by a running test are not yet proven.
	if now && !inTest {
		c.cooldown = 0
	}
	if was == now {
		return
	}
	c.notify.MarkState()
	if inTest {
		return
	}
	if now {
		log.Printf("relays: connected")
		c.emit(EventConnected)
	} else {
		log.Printf("relays: disconnected")
		c.emit(EventDisconnected)
	}
}

func (c *Controller) writeRelays(relay1, relay2 bool) {
	c.relay1, c.relay2 = relay1, relay2
	c.pins.Write(gpio.PinRelay1, relay1)
	c.pins.Write(gpio.PinRelay2, relay2)
}

// resumeNormal arms or opens the relays in NormalOp according to host
// liveness, test state and cooldown.
func (c *Controller) resumeNormal() {
	if !c.hostPermits() {
		c.dropHost()
		return
	}
	if c.Connected() || c.pending || c.brt.Running() {
		return
	}
	if c.cooldownElapsed() {
		c.requestSelfTest()
		return
	}
	c.SetRelays(true, true)
}

// dropHost opens the relays after the host went silent or asked to
// disconnect. A running test owns the relays, so it is interrupted instead.
func (c *Controller) dropHost() {
	c.pending = false
	if c.brt.Running() {
		c.abandonSelfTest()
		return
	}
	c.SetRelays(false, false)
}

// HostAlive reports whether the host endpoint has reported recently.
func (c *Controller) HostAlive() bool {
	return c.hostCounter < c.cfg.HostTimeoutMs
}

func (c *Controller) hostPermits() bool {
	return c.HostAlive() && c.hostWants
}

func (c *Controller) cooldownElapsed() bool {
	return c.cooldown >= c.cfg.NoTestMaxMs
}

func (c *Controller) requestSelfTest() {
	if !c.pending {
		log.Printf("selftest: requested")
	}
	c.pending = true
}

// Sides reports debounced DCC activity on side 1 and side 2.
func (c *Controller) Sides() (bool, bool) {
	return !c.inputs.State(gpio.PinDCC1), !c.inputs.State(gpio.PinDCC2)
}

// DCCActive reports whether at least one side carries DCC.
func (c *Controller) DCCActive() bool {
	s1, s2 := c.Sides()
	return s1 || s2
}

func (c *Controller) held(pin gpio.Pin) bool {
	return !c.inputs.State(pin)
}

func (c *Controller) emit(t EventType) {
	c.counts.add(t)
	c.events = append(c.events, Event{
		Type:      t,
		Mode:      c.mode,
		Connected: c.Connected(),
		Failure:   c.failure,
	})
}

// DrainEvents returns and clears the events recorded since the last call.
func (c *Controller) DrainEvents() []Event {
	ev := c.events
	c.events = nil
	return ev
}

// Warnings returns the warning bits reported to the host.
func (c *Controller) Warnings() uint8 {
	var w uint8
	if c.hostWarned {
		w |= WarningHostLiveness
	}
	if c.brt != nil && c.brt.Running() && c.brt.Warning() {
		w |= WarningSelfTestSlow
	}
	return w
}

// Status returns a copy of the controller state.
func (c *Controller) Status() Status {
	s1, s2 := c.Sides()
	return Status{
		Mode:            c.mode,
		Relay1:          c.relay1,
		Relay2:          c.relay2,
		Connected:       c.Connected(),
		Side1:           s1,
		Side2:           s2,
		GoHeld:          c.held(gpio.PinBtnGo),
		StopHeld:        c.held(gpio.PinBtnStop),
		OverrideHeld:    c.held(gpio.PinBtnOverride),
		Failure:         c.failure,
		Warnings:        c.Warnings(),
		HostCounterMs:   c.hostCounter,
		HostAlive:       c.hostPermits(),
		CooldownMs:      c.cooldown,
		SelfTestPending: c.pending,
		Counts:          c.counts,
	}
}
