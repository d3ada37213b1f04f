package mqtt

import "log"

// message is a serialized publish kept for replay after reconnection.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds messages while the broker is unreachable, keeping the
// newest when full. Callers synchronize.
type ringBuffer struct {
	msgs    []message
	next    int
	count   int
	dropped int // total messages overwritten
	warned  bool
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]message, capacity)}
}

// push stores m and reports whether an older message was overwritten.
func (r *ringBuffer) push(m message) bool {
	full := r.count == len(r.msgs)
	r.msgs[r.next] = m
	r.next = (r.next + 1) % len(r.msgs)
	if !full {
		r.count++
		return false
	}
	r.dropped++
	if !r.warned {
		log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", len(r.msgs))
		r.warned = true
	}
	return true
}

// drain returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drain() []message {
	if r.count == 0 {
		return nil
	}
	out := make([]message, 0, r.count)
	first := (r.next - r.count + len(r.msgs)) % len(r.msgs)
	for i := 0; i < r.count; i++ {
		out = append(out, r.msgs[(first+i)%len(r.msgs)])
	}
	r.next, r.count, r.warned = 0, 0, false
	return out
}

func (r *ringBuffer) len() int { return r.count }
