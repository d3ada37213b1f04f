package mqtt

import (
	"context"
	"testing"
	"time"
)

func TestQueuePublishesInOrder(t *testing.T) {
	f := NewFakePublisher()
	q := NewQueue(f, 8)

	q.PublishSystem(SystemEvent{Event: "STARTUP"})
	q.Publish(connectedEvent(time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for {
		if len(f.EventTypes()) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("event not published")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := f.SystemEventNames(); len(got) != 1 || got[0] != "STARTUP" {
		t.Errorf("system events: got %v", got)
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	f := NewFakePublisher()
	q := NewQueue(f, 2)

	for i := 0; i < 5; i++ {
		q.Publish(connectedEvent(time.Now()))
	}

	if q.Dropped() != 3 {
		t.Errorf("expected 3 dropped, got %d", q.Dropped())
	}
}

func TestQueueFlushesOnCancel(t *testing.T) {
	f := NewFakePublisher()
	q := NewQueue(f, 8)
	q.PublishSystem(SystemEvent{Event: "SHUTDOWN", Reason: "SIGTERM"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Run(ctx)

	if got := f.SystemEventNames(); len(got) != 1 || got[0] != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN flushed, got %v", got)
	}
	if err := q.Close(); err != nil || !f.Closed {
		t.Errorf("Close: err=%v closed=%v", err, f.Closed)
	}
}
