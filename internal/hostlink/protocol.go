// Package hostlink implements the DC-01 host protocol: framing, outbound
// report encoding, inbound command routing and the serial transport.
package hostlink

import (
	"errors"
	"fmt"
	"time"
)

// Frame magic bytes, in both directions.
const (
	Magic1 = 0x37
	Magic2 = 0xE2
)

// MaxPayload is the largest payload a frame can carry.
const MaxPayload = 124

// headerLen covers the magic bytes and the size byte.
const headerLen = 3

// Host to device commands.
const (
	CmdPing        byte = 0x02
	CmdInfoRequest byte = 0x10
	CmdSetState    byte = 0x11
	CmdRunSelfTest byte = 0x12
)

// Device to host messages.
const (
	MsgInfo     byte = 0x10
	MsgState    byte = 0x11
	MsgSelfTest byte = 0x12
)

// Firmware version reported in MsgInfo.
const (
	VersionMajor = 1
	VersionMinor = 0
)

// DefaultGap discards a partial frame after this much inbound silence.
const DefaultGap = 150 * time.Millisecond

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrShortPayload    = errors.New("payload too short")
)

// Frame is one decoded message.
type Frame struct {
	Code    byte
	Payload []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("0x%02x % x", f.Code, f.Payload)
}

// Encode builds the wire form of a frame.
func Encode(code byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("encode 0x%02x: %w (%d bytes)", code, ErrPayloadTooLarge, len(payload))
	}
	b := make([]byte, 0, headerLen+1+len(payload))
	b = append(b, Magic1, Magic2, byte(1+len(payload)), code)
	return append(b, payload...), nil
}

// Decoder reassembles frames from a byte stream. Bytes before the magic are
// dropped; a partial frame is discarded when the next chunk arrives after
// more than Gap of silence.
type Decoder struct {
	Gap time.Duration

	buf     []byte
	last    time.Time
	Dropped int // bytes discarded while resynchronising
}

// NewDecoder creates a decoder with the given inter-byte gap.
func NewDecoder(gap time.Duration) *Decoder {
	return &Decoder{Gap: gap}
}

// Feed appends data received at now and returns every complete frame.
func (d *Decoder) Feed(data []byte, now time.Time) []Frame {
	if len(data) == 0 {
		return nil
	}
	if len(d.buf) > 0 && d.Gap > 0 && now.Sub(d.last) > d.Gap {
		d.Dropped += len(d.buf)
		d.buf = d.buf[:0]
	}
	d.last = now
	d.buf = append(d.buf, data...)

	var frames []Frame
	for {
		d.resync()
		if len(d.buf) < headerLen {
			break
		}
		size := int(d.buf[2])
		if size == 0 || size > MaxPayload+1 {
			// Not a valid header; skip this magic and look for the next.
			d.Dropped++
			d.buf = d.buf[1:]
			continue
		}
		if len(d.buf) < headerLen+size {
			break
		}
		payload := make([]byte, size-1)
		copy(payload, d.buf[headerLen+1:headerLen+size])
		frames = append(frames, Frame{Code: d.buf[headerLen], Payload: payload})
		d.buf = d.buf[headerLen+size:]
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return frames
}

// Pending returns the number of buffered bytes of an incomplete frame.
func (d *Decoder) Pending() int { return len(d.buf) }

func (d *Decoder) resync() {
	for len(d.buf) >= 2 && (d.buf[0] != Magic1 || d.buf[1] != Magic2) {
		d.Dropped++
		d.buf = d.buf[1:]
	}
	if len(d.buf) == 1 && d.buf[0] != Magic1 {
		d.Dropped++
		d.buf = d.buf[:0]
	}
}
