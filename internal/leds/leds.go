// Package leds drives indicator outputs: steady, blinking and timed pulses.
// Blink and pulse timing advance in Update1ms, called once per coarse tick.
package leds

import "github.com/sweeney/dc01-interlock/internal/gpio"

type mode uint8

const (
	modeSteady mode = iota
	modeBlink
	modePulse
)

type indicator struct {
	mode    mode
	on      bool
	period  uint32
	counter uint32
}

// Indicators owns the output state of every indicator pin.
type Indicators struct {
	pins gpio.Pins
	ind  [gpio.PinCount]indicator
}

// New creates Indicators with every output off.
func New(pins gpio.Pins) *Indicators {
	return &Indicators{pins: pins}
}

// Set switches pin steadily on or off. Setting the current steady level does
// not touch the pin.
func (i *Indicators) Set(pin gpio.Pin, on bool) {
	in := &i.ind[pin]
	if in.mode == modeSteady && in.on == on {
		return
	}
	*in = indicator{mode: modeSteady, on: on}
	i.pins.Write(pin, on)
}

// Blink toggles pin every periodMs milliseconds, starting with the LED on.
// Re-issuing the same blink keeps the current phase.
func (i *Indicators) Blink(pin gpio.Pin, periodMs uint32) {
	if periodMs == 0 {
		i.Set(pin, true)
		return
	}
	in := &i.ind[pin]
	if in.mode == modeBlink && in.period == periodMs {
		return
	}
	*in = indicator{mode: modeBlink, on: true, period: periodMs}
	i.pins.Write(pin, true)
}

// Pulse turns pin on for durationMs milliseconds, then off.
func (i *Indicators) Pulse(pin gpio.Pin, durationMs uint32) {
	if durationMs == 0 {
		return
	}
	i.ind[pin] = indicator{mode: modePulse, on: true, period: durationMs}
	i.pins.Write(pin, true)
}

// On reports the current level of pin.
func (i *Indicators) On(pin gpio.Pin) bool {
	return i.ind[pin].on
}

// Blinking reports whether pin is in blink mode.
func (i *Indicators) Blinking(pin gpio.Pin) bool {
	return i.ind[pin].mode == modeBlink
}

// Update1ms advances blink and pulse timers by one millisecond.
func (i *Indicators) Update1ms() {
	for p := range i.ind {
		in := &i.ind[p]
		switch in.mode {
		case modeBlink:
			in.counter++
			if in.counter >= in.period {
				in.counter = 0
				in.on = !in.on
				i.pins.Toggle(gpio.Pin(p))
			}
		case modePulse:
			in.counter++
			if in.counter >= in.period {
				*in = indicator{}
				i.pins.Write(gpio.Pin(p), false)
			}
		}
	}
}
