package hostlink

import "log"

// maxFramesPerPoll bounds inbound processing in one loop pass.
const maxFramesPerPoll = 16

// Transport is the non-blocking host channel.
type Transport interface {
	// Ready reports whether the host is listening.
	Ready() bool
	// CanSend reports whether Send would accept a frame now.
	CanSend() bool
	// Send queues a frame. It returns false when the frame was not taken.
	Send(code byte, payload []byte) bool
	// Recv returns the next inbound frame, if any.
	Recv() (Frame, bool)
}

// Handler receives host commands that affect the device.
type Handler interface {
	HostSetConnection(connect bool)
	HostStartSelfTest()
}

// Reporter supplies the current outbound reports.
type Reporter interface {
	StateReport() StateReport
	SelfTestReport() SelfTestReport
}

// Stats counts link traffic.
type Stats struct {
	Ready     bool
	FramesIn  int
	FramesOut int
	Unknown   int
	Dropped   int // notices discarded while the host was not listening
}

// Link routes inbound commands and flushes pending notices. All methods are
// called from the loop goroutine.
type Link struct {
	tr       Transport
	handler  Handler
	reporter Reporter

	info     bool
	state    bool
	selfTest bool

	stats Stats
}

// NewLink creates a link. Info is pending from the start so a listening host
// learns the firmware version.
func NewLink(tr Transport, handler Handler, reporter Reporter) *Link {
	return &Link{
		tr:       tr,
		handler:  handler,
		reporter: reporter,
		info:     true,
		state:    true,
	}
}

// MarkInfo requests an info message.
func (l *Link) MarkInfo() { l.info = true }

// MarkState requests a state message.
func (l *Link) MarkState() { l.state = true }

// MarkSelfTest requests a self-test state message.
func (l *Link) MarkSelfTest() { l.selfTest = true }

// Pending reports the outstanding notices.
func (l *Link) Pending() (info, state, selfTest bool) {
	return l.info, l.state, l.selfTest
}

// Received routes one inbound frame.
func (l *Link) Received(f Frame) {
	l.stats.FramesIn++
	switch f.Code {
	case CmdInfoRequest:
		l.MarkInfo()
	case CmdSetState:
		if len(f.Payload) < 1 {
			log.Printf("hostlink: set-state without payload")
			return
		}
		l.handler.HostSetConnection(f.Payload[0]&1 != 0)
	case CmdPing:
		l.MarkState()
	case CmdRunSelfTest:
		l.handler.HostStartSelfTest()
	default:
		l.stats.Unknown++
		log.Printf("hostlink: unknown command %s", f)
	}
}

// Poll runs one transport pass: an optional periodic broadcast request, then
// inbound commands, then at most one pending notice in the order info,
// state, self-test. A notice is cleared only once the transport accepts it;
// all notices are dropped while the host is not listening.
func (l *Link) Poll(broadcast bool) {
	if broadcast {
		l.MarkState()
	}
	for i := 0; i < maxFramesPerPoll; i++ {
		f, ok := l.tr.Recv()
		if !ok {
			break
		}
		l.Received(f)
	}

	l.stats.Ready = l.tr.Ready()
	if !l.stats.Ready {
		if l.info || l.state || l.selfTest {
			l.stats.Dropped++
		}
		l.info, l.state, l.selfTest = false, false, false
		return
	}
	if !l.tr.CanSend() {
		return
	}

	switch {
	case l.info:
		if l.send(MsgInfo, []byte{VersionMajor, VersionMinor}) {
			l.info = false
		}
	case l.state:
		if l.send(MsgState, l.reporter.StateReport().Bytes()) {
			l.state = false
		}
	case l.selfTest:
		if l.send(MsgSelfTest, l.reporter.SelfTestReport().Bytes()) {
			l.selfTest = false
		}
	}
}

func (l *Link) send(code byte, payload []byte) bool {
	if !l.tr.Send(code, payload) {
		return false
	}
	l.stats.FramesOut++
	return true
}

// Stats returns a copy of the traffic counters.
func (l *Link) Stats() Stats { return l.stats }
