package hostlink

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// Serial defaults.
const (
	DefaultBaudRate    = 115200
	DefaultReadyWindow = 3 * time.Second
	inboundQueue       = 32
	readChunk          = 128
)

// SerialConfig configures a SerialTransport.
type SerialConfig struct {
	Port        string
	BaudRate    int
	Gap         time.Duration // partial frame discard gap
	ReadyWindow time.Duration // host counts as listening this long after inbound data
}

// SerialTransport carries frames over a serial port. A reader goroutine
// decodes inbound frames into a bounded queue; a writer goroutine drains a
// single-slot outbound queue, so Send never blocks the loop.
type SerialTransport struct {
	cfg  SerialConfig
	port serial.Port

	inbound  chan Frame
	outbound chan []byte
	wake     chan struct{}

	lastRx  atomic.Int64 // unix nanos of the last inbound byte
	closed  atomic.Bool
	dropped atomic.Int64
}

// OpenSerial opens the port.
func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Gap == 0 {
		cfg.Gap = DefaultGap
	}
	if cfg.ReadyWindow == 0 {
		cfg.ReadyWindow = DefaultReadyWindow
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	// Reads return periodically so the reader can notice shutdown.
	if err := port.SetReadTimeout(cfg.Gap); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}
	return newSerialTransport(cfg, port), nil
}

func newSerialTransport(cfg SerialConfig, port serial.Port) *SerialTransport {
	return &SerialTransport{
		cfg:      cfg,
		port:     port,
		inbound:  make(chan Frame, inboundQueue),
		outbound: make(chan []byte, 1),
		wake:     make(chan struct{}, 1),
	}
}

// Wake is signalled whenever an inbound frame is queued.
func (s *SerialTransport) Wake() <-chan struct{} { return s.wake }

// Run starts the reader and writer and blocks until ctx is cancelled or
// the port fails.
func (s *SerialTransport) Run(ctx context.Context) error {
	errc := make(chan error, 2)
	go func() { errc <- s.readLoop(ctx) }()
	go func() { errc <- s.writeLoop(ctx) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

func (s *SerialTransport) readLoop(ctx context.Context) error {
	dec := NewDecoder(s.cfg.Gap)
	buf := make([]byte, readChunk)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := s.port.Read(buf)
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			continue
		}
		now := time.Now()
		s.lastRx.Store(now.UnixNano())
		for _, f := range dec.Feed(buf[:n], now) {
			select {
			case s.inbound <- f:
			default:
				s.dropped.Add(1)
				log.Printf("hostlink: inbound queue full, dropping %s", f)
			}
		}
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *SerialTransport) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-s.outbound:
			if _, err := s.port.Write(b); err != nil {
				if s.closed.Load() {
					return nil
				}
				return fmt.Errorf("serial write: %w", err)
			}
		}
	}
}

// Ready reports whether the host has sent anything within the ready window,
// or holds DSR asserted.
func (s *SerialTransport) Ready() bool {
	if s.closed.Load() {
		return false
	}
	last := s.lastRx.Load()
	if last != 0 && time.Since(time.Unix(0, last)) < s.cfg.ReadyWindow {
		return true
	}
	bits, err := s.port.GetModemStatusBits()
	return err == nil && bits.DSR
}

// CanSend reports whether the outbound slot is free.
func (s *SerialTransport) CanSend() bool {
	return !s.closed.Load() && len(s.outbound) == 0
}

// Send queues a frame without blocking.
func (s *SerialTransport) Send(code byte, payload []byte) bool {
	b, err := Encode(code, payload)
	if err != nil {
		log.Printf("hostlink: %v", err)
		return false
	}
	select {
	case s.outbound <- b:
		return true
	default:
		return false
	}
}

// Recv returns the next inbound frame without blocking.
func (s *SerialTransport) Recv() (Frame, bool) {
	select {
	case f := <-s.inbound:
		return f, true
	default:
		return Frame{}, false
	}
}

// Dropped returns the number of inbound frames lost to a full queue.
func (s *SerialTransport) Dropped() int64 { return s.dropped.Load() }

// Close closes the port. The reader and writer exit on their next call.
func (s *SerialTransport) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("close serial port: %w", err)
	}
	return nil
}
