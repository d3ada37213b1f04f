package logic

import (
	"log"

	"github.com/sweeney/dc01-interlock/internal/gpio"
	"github.com/sweeney/dc01-interlock/internal/selftest"
)

// SelfTestChanged marks the host notice and tracks interruptions.
func (c *Controller) SelfTestChanged() {
	c.notify.MarkSelfTest()
	c.updateSelfTestLED()

	if c.brt.State() != selftest.StateInterrupted {
		return
	}
	// Relays may be left mid-sequence; open them before anything else.
	c.emit(EventSelfTestInterrupted)
	c.SetRelays(false, false)
	if !c.switching && c.mode == ModeBigRelayTest {
		c.SetMode(ModeNormalOp)
	}
}

// SelfTestFinished re-arms the relays according to the current mode.
func (c *Controller) SelfTestFinished() {
	log.Printf("selftest: passed")
	c.pending = false
	c.cooldown = 0
	c.failure = FailureNone
	c.emit(EventSelfTestPassed)

	switch c.mode {
	case ModeNormalOp:
		c.resumeNormal()
	case ModeOverride:
		c.SetRelays(true, true)
	case ModeBigRelayTest:
		c.SetMode(ModeNormalOp)
	default:
		c.SetRelays(false, false)
	}
}

// SelfTestFailed drives the device into Failure. The relays count as unproven
// until a later run passes.
func (c *Controller) SelfTestFailed() {
	log.Printf("selftest: failed")
	c.pending = false
	c.failure = FailureBRT
	c.cooldown = c.cfg.NoTestMaxMs
	c.emit(EventSelfTestFailed)
	c.SetMode(ModeFailure)
}

func (c *Controller) updateSelfTestLED() {
	if c.brt != nil && c.brt.Running() {
		c.leds.Blink(gpio.PinLedYellow, SelfTestBlinkMs)
		return
	}
	switch c.mode {
	case ModeInitializing, ModeBigRelayTest:
		c.leds.Set(gpio.PinLedYellow, true)
	default:
		c.leds.Set(gpio.PinLedYellow, false)
	}
}
