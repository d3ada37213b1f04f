package hostlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	connects  []bool
	selfTests int
	state     StateReport
	brt       SelfTestReport
}

func (d *fakeDevice) HostSetConnection(c bool) { d.connects = append(d.connects, c) }
func (d *fakeDevice) HostStartSelfTest() { d.selfTests++ }
func (d *fakeDevice) StateReport() StateReport { return d.state }
func (d *fakeDevice) SelfTestReport() SelfTestReport { return d.brt }

func newTestLink() (*Link, *FakeTransport, *fakeDevice) {
	tr := NewFakeTransport()
	dev := &fakeDevice{}
	return NewLink(tr, dev, dev), tr, dev
}

func TestLinkRoutesCommands(t *testing.T) {
	l, tr, dev := newTestLink()
	tr.Inject(CmdSetState, 0x01)
	tr.Inject(CmdSetState, 0x00)
	tr.Inject(CmdSetState, 0xFE)
	tr.Inject(CmdRunSelfTest)
	tr.Inject(0x7F)
	tr.Inject(CmdSetState)

	l.Poll(false)

	assert.Equal(t, []bool{true, false, false}, dev.connects)
	assert.Equal(t, 1, dev.selfTests)
	assert.Equal(t, 6, l.Stats().FramesIn)
	assert.Equal(t, 1, l.Stats().Unknown)
}

func TestLinkSendsOneNoticePerPollInOrder(t *testing.T) {
	l, tr, dev := newTestLink()
	dev.state = StateReport{Mode: 1, Connected: true}
	dev.brt = SelfTestReport{State: 2, Step: 8}
	l.MarkSelfTest()

	l.Poll(false)
	l.Poll(false)
	l.Poll(false)
	l.Poll(false)

	assert.Equal(t, []byte{MsgInfo, MsgState, MsgSelfTest}, tr.Codes())
	assert.Equal(t, []byte{VersionMajor, VersionMinor}, tr.Sent[0].Payload)
	assert.Equal(t, []byte{0x11, 0, 0}, tr.Sent[1].Payload)
	assert.Equal(t, []byte{2, 8, 0}, tr.Sent[2].Payload)
	assert.Equal(t, 3, l.Stats().FramesOut)
}

func TestLinkDropsNoticesWhenNotReady(t *testing.T) {
	l, tr, _ := newTestLink()
	tr.ListenerReady = false
	l.MarkSelfTest()

	l.Poll(true)

	info, state, selfTest := l.Pending()
	assert.False(t, info || state || selfTest)
	assert.Empty(t, tr.Sent)

	tr.ListenerReady = true
	l.Poll(false)
	assert.Empty(t, tr.Sent, "dropped notices stay dropped")
}

func TestLinkRetriesWhenBusy(t *testing.T) {
	l, tr, _ := newTestLink()
	l.info = false
	tr.Busy = true

	l.Poll(false)
	_, state, _ := l.Pending()
	assert.True(t, state)

	tr.Busy = false
	tr.Refuse = true
	l.Poll(false)
	_, state, _ = l.Pending()
	assert.True(t, state, "kept until the transport accepts it")

	tr.Refuse = false
	l.Poll(false)
	_, state, _ = l.Pending()
	assert.False(t, state)
	require.Len(t, tr.Sent, 1)
}

func TestLinkPingAndBroadcastSendState(t *testing.T) {
	l, tr, _ := newTestLink()
	l.info, l.state = false, false

	tr.Inject(CmdPing)
	l.Poll(false)
	l.Poll(true)
	l.Poll(false)

	assert.Equal(t, []byte{MsgState, MsgState}, tr.Codes())
}

func TestLinkInfoRequest(t *testing.T) {
	l, tr, _ := newTestLink()
	l.info, l.state = false, false

	tr.Inject(CmdInfoRequest)
	l.Poll(false)

	assert.Equal(t, []byte{MsgInfo}, tr.Codes())
}
