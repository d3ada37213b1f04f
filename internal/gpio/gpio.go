// Package gpio provides pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Pin identifies a logical DC-01 signal, independent of its hardware line.
type Pin uint8

const (
	PinBtnGo Pin = iota
	PinBtnStop
	PinBtnOverride
	PinDCC1
	PinDCC2
	PinRelay1
	PinRelay2
	PinLedRed
	PinLedGreen
	PinLedYellow
	PinLedBlue
	PinLedGo
	PinLedStop
	PinOutAlert
	PinOutOn

	PinCount
)

var pinNames = [PinCount]string{
	PinBtnGo:       "btn_go",
	PinBtnStop:     "btn_stop",
	PinBtnOverride: "btn_override",
	PinDCC1:        "dcc1",
	PinDCC2:        "dcc2",
	PinRelay1:      "relay1",
	PinRelay2:      "relay2",
	PinLedRed:      "led_red",
	PinLedGreen:    "led_green",
	PinLedYellow:   "led_yellow",
	PinLedBlue:     "led_blue",
	PinLedGo:       "led_go",
	PinLedStop:     "led_stop",
	PinOutAlert:    "out_alert",
	PinOutOn:       "out_on",
}

func (p Pin) String() string {
	if p < PinCount {
		return pinNames[p]
	}
	return "unknown"
}

// IsInput reports whether the pin is sampled rather than driven.
func (p Pin) IsInput() bool {
	return p <= PinDCC2
}

// PinByName looks up a pin by its configuration name.
func PinByName(name string) (Pin, bool) {
	for i, n := range pinNames {
		if n == name {
			return Pin(i), true
		}
	}
	return 0, false
}

// Pins is the synchronous pin collaborator used by the controller.
// Inputs are pulled up: an idle button or a quiet DCC side reads high.
type Pins interface {
	Read(pin Pin) bool
	Write(pin Pin, value bool)
	Toggle(pin Pin)
}

// Lines maps logical pins to line offsets on a GPIO chip.
type Lines map[Pin]int

// DefaultLines is the BCM wiring of the reference board.
func DefaultLines() Lines {
	return Lines{
		PinBtnGo:       5,
		PinBtnStop:     6,
		PinBtnOverride: 13,
		PinDCC1:        19,
		PinDCC2:        26,
		PinRelay1:      20,
		PinRelay2:      21,
		PinLedRed:      17,
		PinLedGreen:    27,
		PinLedYellow:   22,
		PinLedBlue:     23,
		PinLedGo:       24,
		PinLedStop:     25,
		PinOutAlert:    12,
		PinOutOn:       16,
	}
}
