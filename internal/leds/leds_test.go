package leds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweeney/dc01-interlock/internal/gpio"
)

func tick(i *Indicators, n int) {
	for k := 0; k < n; k++ {
		i.Update1ms()
	}
}

func TestSetIsIdempotent(t *testing.T) {
	pins := gpio.NewFakePins()
	ind := New(pins)

	ind.Set(gpio.PinLedRed, true)
	ind.Set(gpio.PinLedRed, true)
	ind.Set(gpio.PinLedGreen, false)

	assert.Equal(t, []bool{true}, pins.WritesTo(gpio.PinLedRed))
	assert.Empty(t, pins.WritesTo(gpio.PinLedGreen), "already off")
	assert.True(t, ind.On(gpio.PinLedRed))
}

func TestBlinkTogglesAtPeriod(t *testing.T) {
	pins := gpio.NewFakePins()
	ind := New(pins)

	ind.Blink(gpio.PinLedBlue, 250)
	assert.True(t, pins.Level(gpio.PinLedBlue))

	tick(ind, 249)
	assert.True(t, pins.Level(gpio.PinLedBlue))
	tick(ind, 1)
	assert.False(t, pins.Level(gpio.PinLedBlue))
	tick(ind, 250)
	assert.True(t, pins.Level(gpio.PinLedBlue))
	assert.True(t, ind.Blinking(gpio.PinLedBlue))

	ind.Blink(gpio.PinLedBlue, 250)
	assert.Len(t, pins.WritesTo(gpio.PinLedBlue), 3, "same blink keeps phase")
}

func TestSetStopsBlink(t *testing.T) {
	pins := gpio.NewFakePins()
	ind := New(pins)
	ind.Blink(gpio.PinLedYellow, 100)
	tick(ind, 100)

	ind.Set(gpio.PinLedYellow, false)
	pins.ResetWrites()
	tick(ind, 500)

	assert.Empty(t, pins.Writes)
	assert.False(t, ind.Blinking(gpio.PinLedYellow))
}

func TestPulseEndsOff(t *testing.T) {
	pins := gpio.NewFakePins()
	ind := New(pins)

	ind.Pulse(gpio.PinOutAlert, 3000)
	tick(ind, 2999)
	assert.True(t, pins.Level(gpio.PinOutAlert))
	tick(ind, 1)
	assert.False(t, pins.Level(gpio.PinOutAlert))
	assert.False(t, ind.On(gpio.PinOutAlert))

	pins.ResetWrites()
	tick(ind, 5000)
	assert.Empty(t, pins.Writes)
}

func TestZeroDurations(t *testing.T) {
	pins := gpio.NewFakePins()
	ind := New(pins)

	ind.Pulse(gpio.PinOutAlert, 0)
	assert.Empty(t, pins.Writes)

	ind.Blink(gpio.PinLedBlue, 0)
	assert.True(t, ind.On(gpio.PinLedBlue))
	assert.False(t, ind.Blinking(gpio.PinLedBlue))
}
