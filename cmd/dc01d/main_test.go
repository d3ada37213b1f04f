package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/dc01-interlock/internal/hostlink"
	"github.com/sweeney/dc01-interlock/internal/logic"
	"github.com/sweeney/dc01-interlock/internal/mqtt"
	"github.com/sweeney/dc01-interlock/internal/selftest"
	"github.com/sweeney/dc01-interlock/internal/status"
)

func newTracker() *status.Tracker {
	tr := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{
		Broker: "tcp://localhost:1883",
	})
	return tr
}

func runSupervise(t *testing.T, pub *mqtt.FakePublisher, tr *status.Tracker, sig <-chan os.Signal, hb <-chan time.Time) bool {
	t.Helper()
	done := make(chan bool, 1)
	go func() { done <- supervise(context.Background(), pub, pub, tr, sig, hb) }()
	select {
	case clean := <-done:
		return clean
	case <-time.After(5 * time.Second):
		t.Fatal("supervise did not return")
		return false
	}
}

func TestSuperviseShutdownSIGTERM(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tr := newTracker()
	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM

	if !runSupervise(t, pub, tr, sig, nil) {
		t.Fatal("expected clean shutdown")
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	ev := pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" {
		t.Errorf("got %s/%s, want SHUTDOWN/SIGTERM", ev.Event, ev.Reason)
	}
	if !ev.Retained {
		t.Error("shutdown event should be retained")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("payload event: got %s/%s", sj.Status.Event, sj.Status.Reason)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected in shutdown payload")
	}
}

func TestSuperviseShutdownSIGINT(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGINT

	runSupervise(t, pub, newTracker(), sig, nil)

	if names := pub.SystemEventNames(); len(names) != 1 || names[0] != "SHUTDOWN" {
		t.Fatalf("system events: got %v", names)
	}
	if pub.SystemEvents[0].Reason != "SIGINT" {
		t.Errorf("reason: got %q, want SIGINT", pub.SystemEvents[0].Reason)
	}
}

func TestSuperviseHeartbeat(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	tr := newTracker()
	tr.Update(logic.Status{Mode: logic.ModeNormalOp, Connected: true}, selftest.Snapshot{}, hostlink.Stats{})

	sig := make(chan os.Signal, 1)
	hb := make(chan time.Time, 2)
	hb <- time.Now()
	hb <- time.Now()

	done := make(chan bool, 1)
	go func() { done <- supervise(context.Background(), pub, pub, tr, sig, hb) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(pub.SystemEventNames()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	sig <- syscall.SIGTERM
	<-done

	names := pub.SystemEventNames()
	want := []string{"HEARTBEAT", "HEARTBEAT", "SHUTDOWN"}
	if len(names) != len(want) {
		t.Fatalf("system events: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, names[i], want[i])
		}
	}
	if pub.SystemEvents[0].Retained {
		t.Error("heartbeat should not be retained")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if sj.Status.Mode != "NORMAL_OP" || !sj.Status.Relays.Connected {
		t.Errorf("heartbeat payload: mode=%s connected=%t", sj.Status.Mode, sj.Status.Relays.Connected)
	}
}

func TestSuperviseContextCancel(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if supervise(ctx, pub, pub, newTracker(), nil, nil) {
		t.Error("cancelled context is not a clean shutdown")
	}
	if len(pub.SystemEvents) != 0 {
		t.Errorf("expected no system events, got %v", pub.SystemEventNames())
	}
}

func TestPublishSystemError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("broker down")

	publishSystem(pub, newTracker(), "STARTUP", "")

	if len(pub.SystemEvents) != 0 {
		t.Errorf("expected nothing recorded, got %d", len(pub.SystemEvents))
	}
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v): got %q, want %q", tt.sig, got, tt.want)
		}
	}
}
