package gpio

// Write records a single output change made through FakePins.
type Write struct {
	Pin   Pin
	Value bool
}

// FakePins is a test double holding pin levels in memory.
// Inputs start high (pulled up, idle); outputs start low.
type FakePins struct {
	levels [PinCount]bool

	// Writes contains every Write and Toggle in call order.
	Writes []Write

	// Reads counts Read calls per pin.
	Reads [PinCount]int
}

// NewFakePins creates FakePins with all inputs idle.
func NewFakePins() *FakePins {
	f := &FakePins{}
	for p := Pin(0); p < PinCount; p++ {
		f.levels[p] = p.IsInput()
	}
	return f
}

// Read returns the current level of pin.
func (f *FakePins) Read(pin Pin) bool {
	f.Reads[pin]++
	return f.levels[pin]
}

// Write sets pin to value and records it.
func (f *FakePins) Write(pin Pin, value bool) {
	f.levels[pin] = value
	f.Writes = append(f.Writes, Write{Pin: pin, Value: value})
}

// Toggle inverts pin and records the resulting level.
func (f *FakePins) Toggle(pin Pin) {
	f.Write(pin, !f.levels[pin])
}

// Set drives an input level from the test, without recording a write.
func (f *FakePins) Set(pin Pin, level bool) {
	f.levels[pin] = level
}

// Level returns the current level of pin without counting a read.
func (f *FakePins) Level(pin Pin) bool {
	return f.levels[pin]
}

// WritesTo returns the recorded writes for a single pin.
func (f *FakePins) WritesTo(pin Pin) []bool {
	var out []bool
	for _, w := range f.Writes {
		if w.Pin == pin {
			out = append(out, w.Value)
		}
	}
	return out
}

// ResetWrites clears the write log.
func (f *FakePins) ResetWrites() {
	f.Writes = nil
}
