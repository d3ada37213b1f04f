//go:build linux

package gpio

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// RealPins drives DC-01 signals through the Linux GPIO character device.
type RealPins struct {
	chip   *gpiocdev.Chip
	lines  [PinCount]*gpiocdev.Line
	levels [PinCount]bool
	failed [PinCount]bool
}

// NewRealPins requests every mapped line on the named chip.
// Inputs are pulled up; outputs start low (relays open, LEDs off).
func NewRealPins(chipName string, lines Lines) (*RealPins, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	r := &RealPins{chip: chip}
	for p := Pin(0); p < PinCount; p++ {
		offset, ok := lines[p]
		if !ok {
			r.Close()
			return nil, fmt.Errorf("no line configured for %s", p)
		}

		var l *gpiocdev.Line
		if p.IsInput() {
			l, err = chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
			r.levels[p] = true
		} else {
			l, err = chip.RequestLine(offset, gpiocdev.AsOutput(0))
		}
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %s line %d: %w", p, offset, err)
		}
		r.lines[p] = l
	}
	return r, nil
}

// Read returns the raw level of pin. A failing read keeps the last known
// level so a transient error cannot fabricate an edge.
func (r *RealPins) Read(pin Pin) bool {
	v, err := r.lines[pin].Value()
	if err != nil {
		r.logOnce(pin, "read", err)
		return r.levels[pin]
	}
	r.failed[pin] = false
	r.levels[pin] = v != 0
	return r.levels[pin]
}

// Write drives pin to value.
func (r *RealPins) Write(pin Pin, value bool) {
	v := 0
	if value {
		v = 1
	}
	if err := r.lines[pin].SetValue(v); err != nil {
		r.logOnce(pin, "write", err)
		return
	}
	r.failed[pin] = false
	r.levels[pin] = value
}

// Toggle inverts the last level written to pin.
func (r *RealPins) Toggle(pin Pin) {
	r.Write(pin, !r.levels[pin])
}

func (r *RealPins) logOnce(pin Pin, op string, err error) {
	if r.failed[pin] {
		return
	}
	r.failed[pin] = true
	log.Printf("gpio: %s %s: %v", op, pin, err)
}

// Close drives outputs low, reconfigures every line as a pulled-up input and
// releases the chip, leaving the relays open across restarts.
func (r *RealPins) Close() error {
	var errs []error

	for p, l := range r.lines {
		if l == nil {
			continue
		}
		if !Pin(p).IsInput() {
			if err := l.SetValue(0); err != nil {
				errs = append(errs, fmt.Errorf("drive %s low: %w", Pin(p), err))
			}
		}
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s: %w", Pin(p), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", Pin(p), err))
		}
		r.lines[p] = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
