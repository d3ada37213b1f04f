package mqtt

import (
	"context"
	"log"
	"sync/atomic"
)

// DefaultQueueSize bounds the number of events waiting for the publisher.
const DefaultQueueSize = 64

// Queue hands events to a Publisher on its own goroutine so the caller never
// waits on the network. Events are dropped when the queue is full.
type Queue struct {
	pub     Publisher
	ch      chan func() error
	dropped atomic.Int64
}

// NewQueue creates a queue in front of pub.
func NewQueue(pub Publisher, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{pub: pub, ch: make(chan func() error, size)}
}

// Publish enqueues an interlock event.
func (q *Queue) Publish(event Event) error {
	q.enqueue(func() error { return q.pub.Publish(event) }, string(event.Type))
	return nil
}

// PublishSystem enqueues a system event.
func (q *Queue) PublishSystem(event SystemEvent) error {
	q.enqueue(func() error { return q.pub.PublishSystem(event) }, event.Event)
	return nil
}

func (q *Queue) enqueue(fn func() error, name string) {
	select {
	case q.ch <- fn:
	default:
		q.dropped.Add(1)
		log.Printf("mqtt: queue full, dropping %s", name)
	}
}

// Dropped returns the number of events lost to a full queue.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Run publishes queued events until ctx is cancelled, then flushes what is
// left.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.flush()
			return nil
		case fn := <-q.ch:
			if err := fn(); err != nil {
				log.Printf("publish error: %v", err)
			}
		}
	}
}

func (q *Queue) flush() {
	for {
		select {
		case fn := <-q.ch:
			if err := fn(); err != nil {
				log.Printf("publish error: %v", err)
			}
		default:
			return
		}
	}
}

// Close closes the underlying publisher. Call it after Run has returned.
func (q *Queue) Close() error {
	return q.pub.Close()
}
