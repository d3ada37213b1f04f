// Package debounce turns noisy raw pin reads into stable levels and edge
// events using saturating counters with per-pin hysteresis thresholds.
package debounce

import "github.com/sweeney/dc01-interlock/internal/gpio"

// Count is the number of debounced inputs.
const Count = 5

// Default thresholds, in fine ticks (100 µs).
const (
	ButtonThreshold = 100 // 10 ms
	DCCThreshold    = 10  // 1 ms
	DCCLimit        = 20  // 2 ms
)

// Input is one entry of the debounce table.
type Input struct {
	Pin           gpio.Pin
	RiseThreshold uint32
	FallThreshold uint32
	Limit         uint32

	counter uint32
	state   bool
}

// Counter returns the current saturating counter value.
func (in Input) Counter() uint32 { return in.counter }

// State returns the stable (debounced) level.
func (in Input) State() bool { return in.state }

// Table is the fixed set of debounced inputs, processed in order.
type Table [Count]Input

// DefaultTable returns the DC-01 input table: three buttons, then both DCC sides.
func DefaultTable() Table {
	return Table{
		{Pin: gpio.PinBtnGo, RiseThreshold: ButtonThreshold, FallThreshold: 0, Limit: ButtonThreshold},
		{Pin: gpio.PinBtnStop, RiseThreshold: ButtonThreshold, FallThreshold: 0, Limit: ButtonThreshold},
		{Pin: gpio.PinBtnOverride, RiseThreshold: ButtonThreshold, FallThreshold: 0, Limit: ButtonThreshold},
		{Pin: gpio.PinDCC1, RiseThreshold: DCCThreshold, FallThreshold: 0, Limit: DCCLimit},
		{Pin: gpio.PinDCC2, RiseThreshold: DCCThreshold, FallThreshold: 0, Limit: DCCLimit},
	}
}

// Handler receives edge events. Calls happen synchronously inside Update.
type Handler interface {
	OnRaise(pin gpio.Pin)
	OnFall(pin gpio.Pin)
}

// Engine owns the debounce table.
type Engine struct {
	pins    gpio.Pins
	table   Table
	handler Handler
}

// New creates an Engine. Every input starts saturated high (pulled-up idle).
func New(pins gpio.Pins, table Table) *Engine {
	e := &Engine{pins: pins, table: table}
	for i := range e.table {
		e.table[i].counter = e.table[i].Limit
		e.table[i].state = true
	}
	return e
}

// SetHandler installs the edge event receiver.
func (e *Engine) SetHandler(h Handler) {
	e.handler = h
}

// Update samples every input once. Call it on each fine tick.
func (e *Engine) Update() {
	for i := range e.table {
		in := &e.table[i]
		if e.pins.Read(in.Pin) {
			if in.counter >= in.Limit {
				continue
			}
			in.counter++
			if in.counter == in.RiseThreshold && !in.state {
				in.state = true
				if e.handler != nil {
					e.handler.OnRaise(in.Pin)
				}
			}
		} else {
			if in.counter == 0 {
				continue
			}
			in.counter--
			if in.counter == in.FallThreshold && in.state {
				in.state = false
				if e.handler != nil {
					e.handler.OnFall(in.Pin)
				}
			}
		}
	}
}

// State returns the stable level of pin. Unknown pins read as idle (true).
func (e *Engine) State(pin gpio.Pin) bool {
	for i := range e.table {
		if e.table[i].Pin == pin {
			return e.table[i].state
		}
	}
	return true
}

// Inputs returns a copy of the table for inspection.
func (e *Engine) Inputs() Table {
	return e.table
}

// SettleTicks is the number of fine ticks after which every input has had
// time to reach its stable level from boot.
func (e *Engine) SettleTicks() uint32 {
	var max uint32
	for _, in := range e.table {
		if in.Limit > max {
			max = in.Limit
		}
	}
	return max
}
