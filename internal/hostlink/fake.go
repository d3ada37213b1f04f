package hostlink

// FakeTransport is an in-memory Transport for tests.
type FakeTransport struct {
	ListenerReady bool
	Busy          bool
	Refuse        bool // Send reports failure

	Sent    []Frame
	inbound []Frame
}

// NewFakeTransport returns a ready, idle transport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{ListenerReady: true}
}

func (f *FakeTransport) Ready() bool { return f.ListenerReady }
func (f *FakeTransport) CanSend() bool { return !f.Busy }

func (f *FakeTransport) Send(code byte, payload []byte) bool {
	if f.Busy || f.Refuse {
		return false
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	f.Sent = append(f.Sent, Frame{Code: code, Payload: p})
	return true
}

func (f *FakeTransport) Recv() (Frame, bool) {
	if len(f.inbound) == 0 {
		return Frame{}, false
	}
	fr := f.inbound[0]
	f.inbound = f.inbound[1:]
	return fr, true
}

// Inject queues an inbound frame.
func (f *FakeTransport) Inject(code byte, payload ...byte) {
	f.inbound = append(f.inbound, Frame{Code: code, Payload: payload})
}

// Codes returns the codes of every sent frame.
func (f *FakeTransport) Codes() []byte {
	var c []byte
	for _, fr := range f.Sent {
		c = append(c, fr.Code)
	}
	return c
}
