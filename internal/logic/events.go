package logic

import (
	"log"

	"github.com/sweeney/dc01-interlock/internal/gpio"
)

// OnFall handles a debounced high-to-low edge: a button pressed or DCC
// appearing on a side.
func (c *Controller) OnFall(pin gpio.Pin) {
	switch pin {
	case gpio.PinBtnGo:
		if c.mode != ModeOverride || !c.held(gpio.PinBtnOverride) {
			return
		}
		if c.cooldownElapsed() {
			c.requestSelfTest()
			return
		}
		c.SetRelays(true, true)
	case gpio.PinBtnStop:
		if !c.Connected() && !c.brt.Running() && !c.pending {
			return
		}
		log.Printf("button: stop")
		c.abandonSelfTest()
		c.pending = false
		c.SetMode(ModeOverride)
		c.SetRelays(false, false)
	case gpio.PinBtnOverride:
		c.SetMode(ModeOverride)
	case gpio.PinDCC1, gpio.PinDCC2:
		c.checkDCC()
	}
}

// OnRaise handles a debounced low-to-high edge: a button released or DCC
// disappearing from a side.
func (c *Controller) OnRaise(pin gpio.Pin) {
	switch pin {
	case gpio.PinBtnOverride:
		if !c.Connected() && !c.brt.Running() && c.cooldownElapsed() && c.hostPermits() {
			c.requestSelfTest()
		}
		c.SetMode(ModeNormalOp)
	case gpio.PinDCC1, gpio.PinDCC2:
		c.checkDCC()
	}
}

func (c *Controller) checkDCC() {
	active := c.DCCActive()
	if active == c.dccActive {
		return
	}
	c.dccActive = active
	c.notify.MarkState()
}

// FineTick counts debounce ticks while initializing. Once every input has
// settled the device leaves Initializing.
func (c *Controller) FineTick() {
	if c.mode != ModeInitializing {
		return
	}
	c.fineTicks++
	if c.fineTicks >= c.cfg.SettleTicks {
		log.Printf("mode: inputs settled")
		c.SetMode(ModeNormalOp)
	}
}

// Tick1ms advances indicator timers, host liveness and the test cooldown.
func (c *Controller) Tick1ms() {
	c.leds.Update1ms()

	if !c.Connected() && c.cooldown < c.cfg.NoTestMaxMs {
		c.cooldown++
	}

	if c.hostCounter >= c.cfg.HostTimeoutMs {
		return
	}
	c.hostCounter++

	if c.hostCounter == c.cfg.HostWarningMs && c.mode == ModeNormalOp && !c.hostWarned {
		c.hostWarned = true
		log.Printf("host: no report for %d ms", c.hostCounter)
		c.leds.Blink(gpio.PinLedBlue, HostWarningBlinkMs)
		c.notify.MarkState()
		c.emit(EventHostWarning)
	}
	if c.hostCounter == c.cfg.HostTimeoutMs && c.mode == ModeNormalOp {
		log.Printf("host: timed out, opening relays")
		c.dropHost()
		c.emit(EventHostTimeout)
	}
}

// HostSetConnection handles a host liveness report carrying the desired
// connection state.
func (c *Controller) HostSetConnection(connect bool) {
	c.hostCounter = 0
	c.hostWants = connect
	if c.hostWarned {
		c.hostWarned = false
		c.leds.Set(gpio.PinLedBlue, false)
		c.notify.MarkState()
	}
	if c.mode == ModeNormalOp {
		c.resumeNormal()
	}
}

// HostStartSelfTest handles an explicit host request to run the BRT. Leaving
// Failure takes the operator.
func (c *Controller) HostStartSelfTest() {
	switch c.mode {
	case ModeOverride, ModeInitializing, ModeFailure:
		log.Printf("selftest: host request ignored in %s", c.mode)
		return
	}
	c.SetMode(ModeBigRelayTest)
}

// PollPendingStart starts a requested self-test once the engine accepts it.
// A rejected start stays pending and is retried on the next loop iteration.
func (c *Controller) PollPendingStart() {
	if !c.pending || c.brt.Running() {
		return
	}
	if c.mode == ModeNormalOp && !c.hostPermits() {
		log.Printf("selftest: host gone, dropping request")
		c.pending = false
		return
	}
	err := c.brt.Start()
	if err != nil {
		if err != c.lastReject {
			log.Printf("selftest: waiting: %v", err)
		}
		c.lastReject = err
		return
	}
	c.lastReject = nil
}
