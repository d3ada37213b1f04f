//go:build !linux

package gpio

import "errors"

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(chipName string, lines Lines) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealPins) Read(pin Pin) bool { return true }

// Write is not implemented on non-Linux platforms.
func (r *RealPins) Write(pin Pin, value bool) {}

// Toggle is not implemented on non-Linux platforms.
func (r *RealPins) Toggle(pin Pin) {}

// Close is not implemented on non-Linux platforms.
func (r *RealPins) Close() error {
	return nil
}
