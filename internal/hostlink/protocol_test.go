package hostlink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	b, err := Encode(MsgState, []byte{0x13, 0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x37, 0xE2, 0x04, 0x11, 0x13, 0x00, 0x01}, b)

	b, err = Encode(CmdInfoRequest, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x37, 0xE2, 0x01, 0x10}, b)
}

func TestEncodeRejectsLargePayload(t *testing.T) {
	_, err := Encode(MsgState, make([]byte, MaxPayload))
	assert.NoError(t, err)

	_, err = Encode(MsgState, make([]byte, MaxPayload+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecoderSingleFrame(t *testing.T) {
	d := NewDecoder(DefaultGap)
	now := time.Unix(0, 0)

	frames := d.Feed([]byte{0x37, 0xE2, 0x02, 0x11, 0x01}, now)

	require.Len(t, frames, 1)
	assert.Equal(t, CmdSetState, frames[0].Code)
	assert.Equal(t, []byte{0x01}, frames[0].Payload)
	assert.Zero(t, d.Pending())
}

func TestDecoderSplitAcrossChunks(t *testing.T) {
	d := NewDecoder(DefaultGap)
	now := time.Unix(0, 0)

	assert.Empty(t, d.Feed([]byte{0x37}, now))
	assert.Empty(t, d.Feed([]byte{0xE2, 0x02}, now.Add(time.Millisecond)))
	frames := d.Feed([]byte{0x11, 0x00}, now.Add(2*time.Millisecond))

	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x00}, frames[0].Payload)
}

func TestDecoderDropsGarbageBeforeMagic(t *testing.T) {
	d := NewDecoder(DefaultGap)

	frames := d.Feed([]byte{0x00, 0x37, 0x99, 0xE2, 0x37, 0xE2, 0x01, 0x02}, time.Unix(0, 0))

	require.Len(t, frames, 1)
	assert.Equal(t, CmdPing, frames[0].Code)
	assert.Empty(t, frames[0].Payload)
	assert.Equal(t, 4, d.Dropped)
}

func TestDecoderMultipleFrames(t *testing.T) {
	d := NewDecoder(DefaultGap)
	var stream []byte
	for _, c := range []byte{CmdPing, CmdInfoRequest, CmdRunSelfTest} {
		b, err := Encode(c, nil)
		require.NoError(t, err)
		stream = append(stream, b...)
	}

	frames := d.Feed(stream, time.Unix(0, 0))

	require.Len(t, frames, 3)
	assert.Equal(t, CmdRunSelfTest, frames[2].Code)
}

func TestDecoderDiscardsPartialAfterGap(t *testing.T) {
	d := NewDecoder(10 * time.Millisecond)
	now := time.Unix(0, 0)

	d.Feed([]byte{0x37, 0xE2, 0x02, 0x11}, now)
	require.Equal(t, 4, d.Pending())

	frames := d.Feed([]byte{0x37, 0xE2, 0x01, 0x02}, now.Add(50*time.Millisecond))

	require.Len(t, frames, 1)
	assert.Equal(t, CmdPing, frames[0].Code)
}

func TestDecoderSkipsInvalidSize(t *testing.T) {
	d := NewDecoder(DefaultGap)

	frames := d.Feed([]byte{0x37, 0xE2, 0x00, 0x37, 0xE2, 0x01, 0x10}, time.Unix(0, 0))

	require.Len(t, frames, 1)
	assert.Equal(t, CmdInfoRequest, frames[0].Code)
}

func TestStateReportBytes(t *testing.T) {
	tests := []struct {
		name string
		r    StateReport
		want []byte
	}{
		{"idle", StateReport{Mode: 1}, []byte{0x10, 0, 0}},
		{"connected", StateReport{Mode: 1, Connected: true, DCCActive: true}, []byte{0x13, 0, 0}},
		{"failure", StateReport{Mode: 4, DCCActive: true, Failure: 1}, []byte{0x42, 1, 0}},
		{"warning", StateReport{Mode: 1, Connected: true, Warnings: 1}, []byte{0x11, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Bytes()
			assert.Equal(t, tt.want, got)

			back, err := ParseState(got)
			require.NoError(t, err)
			assert.Equal(t, tt.r, back)
		})
	}
}

func TestParseStateWithoutWarnings(t *testing.T) {
	r, err := ParseState([]byte{0x33, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint8(3), r.Mode)
	assert.True(t, r.Connected)
	assert.True(t, r.DCCActive)
	assert.Zero(t, r.Warnings)

	_, err = ParseState([]byte{0x10})
	assert.ErrorIs(t, err, ErrShortPayload)
}

func TestParseSelfTestAndInfo(t *testing.T) {
	st, err := ParseSelfTest(SelfTestReport{State: 3, Step: 4, Error: 2}.Bytes())
	require.NoError(t, err)
	assert.Equal(t, SelfTestReport{State: 3, Step: 4, Error: 2}, st)

	_, err = ParseSelfTest([]byte{1, 2})
	assert.ErrorIs(t, err, ErrShortPayload)

	info, err := ParseInfo([]byte{1, 0})
	require.NoError(t, err)
	assert.Equal(t, "1.0", info.String())
}

func TestMatchProduct(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyACM0", Product: "DC-01", IsUSB: true},
		{Name: "/dev/ttyACM1", Product: "Other", IsUSB: true},
		{Name: "/dev/ttyS0"},
	}
	assert.Equal(t, []string{"/dev/ttyACM0"}, MatchProduct(ports, ProductName))
	assert.Empty(t, MatchProduct(ports[1:], ProductName))
}
