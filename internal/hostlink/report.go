package hostlink

import "fmt"

// StateReport is the payload of MsgState.
type StateReport struct {
	Mode      uint8
	Connected bool
	DCCActive bool
	Failure   uint8
	Warnings  uint8
}

// Bytes encodes the report: mode in the high nibble of byte 0, connected in
// bit 0 and DCC activity in bit 1; then failure code and warning bits.
func (r StateReport) Bytes() []byte {
	b0 := (r.Mode & 0x07) << 4
	if r.Connected {
		b0 |= 1
	}
	if r.DCCActive {
		b0 |= 1 << 1
	}
	return []byte{b0, r.Failure, r.Warnings}
}

// ParseState decodes a MsgState payload. The warnings byte is optional.
func ParseState(p []byte) (StateReport, error) {
	if len(p) < 2 {
		return StateReport{}, fmt.Errorf("state: %w (%d bytes)", ErrShortPayload, len(p))
	}
	r := StateReport{
		Mode:      p[0] >> 4,
		Connected: p[0]&1 != 0,
		DCCActive: p[0]&(1<<1) != 0,
		Failure:   p[1],
	}
	if len(p) > 2 {
		r.Warnings = p[2]
	}
	return r, nil
}

// SelfTestReport is the payload of MsgSelfTest.
type SelfTestReport struct {
	State uint8
	Step  uint8
	Error uint8
}

// Bytes encodes the report.
func (r SelfTestReport) Bytes() []byte {
	return []byte{r.State, r.Step, r.Error}
}

// ParseSelfTest decodes a MsgSelfTest payload.
func ParseSelfTest(p []byte) (SelfTestReport, error) {
	if len(p) < 3 {
		return SelfTestReport{}, fmt.Errorf("selftest: %w (%d bytes)", ErrShortPayload, len(p))
	}
	return SelfTestReport{State: p[0], Step: p[1], Error: p[2]}, nil
}

// Info is the payload of MsgInfo.
type Info struct {
	Major uint8
	Minor uint8
}

func (i Info) String() string {
	return fmt.Sprintf("%d.%d", i.Major, i.Minor)
}

// ParseInfo decodes a MsgInfo payload.
func ParseInfo(p []byte) (Info, error) {
	if len(p) < 2 {
		return Info{}, fmt.Errorf("info: %w (%d bytes)", ErrShortPayload, len(p))
	}
	return Info{Major: p[0], Minor: p[1]}, nil
}
