package hjop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.bug.st/serial"

	"github.com/sweeney/dc01-interlock/internal/hostlink"
)

// Timing of the watchdog loop.
const (
	RefreshPeriod  = 250 * time.Millisecond
	ReadTimeout    = RefreshPeriod / 5
	ReconnectDelay = 3 * time.Second
)

// ErrNoDevice and ErrMultipleDevices are returned by FindPort.
var (
	ErrNoDevice        = errors.New("no DC-01 found")
	ErrMultipleDevices = errors.New("multiple DC-01s found")
)

// Oracle decides whether the layout may be powered.
type Oracle interface {
	OK(ctx context.Context) bool
}

// Always is an Oracle that always permits the output.
type Always struct{}

// OK implements Oracle.
func (Always) OK(context.Context) bool { return true }

// FindPort returns the only serial port whose USB product is the DC-01, or
// explicit when it is set.
func FindPort(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	ports, err := hostlink.ListPorts()
	if err != nil {
		return "", err
	}
	names := hostlink.MatchProduct(ports, hostlink.ProductName)
	switch len(names) {
	case 0:
		return "", ErrNoDevice
	case 1:
		return names[0], nil
	}
	return "", fmt.Errorf("%w: %v", ErrMultipleDevices, names)
}

// OpenPort opens the DC-01 serial port with a short read timeout so the
// reader notices cancellation.
func OpenPort(name string) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: hostlink.DefaultBaudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return port, nil
}

// Watcher drives one connected DC-01.
type Watcher struct {
	port   io.ReadWriter
	oracle Oracle
	log    *slog.Logger
	period time.Duration
	now    func() time.Time
}

// NewWatcher creates a watcher over an open port.
func NewWatcher(port io.ReadWriter, oracle Oracle, logger *slog.Logger) *Watcher {
	return &Watcher{
		port:   port,
		oracle: oracle,
		log:    logger,
		period: RefreshPeriod,
		now:    time.Now,
	}
}

// Run asks the device for its info, then reports the host alive every
// refresh period while the oracle permits it. It returns nil when ctx ends
// and an error when the port fails.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan hostlink.Frame, 16)
	errc := make(chan error, 1)
	go func() { errc <- w.read(ctx, frames) }()

	if err := w.send(hostlink.CmdInfoRequest, nil); err != nil {
		return err
	}
	if err := w.refresh(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case f := <-frames:
			LogFrame(w.log, f)
		case <-ticker.C:
			if err := w.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) error {
	if !w.oracle.OK(ctx) {
		return nil
	}
	return w.send(hostlink.CmdSetState, []byte{1})
}

func (w *Watcher) send(code byte, payload []byte) error {
	b, err := hostlink.Encode(code, payload)
	if err != nil {
		return err
	}
	w.log.Debug("Send", "bytes", b)
	if _, err := w.port.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (w *Watcher) read(ctx context.Context, out chan<- hostlink.Frame) error {
	dec := hostlink.NewDecoder(hostlink.DefaultGap)
	buf := make([]byte, 256)
	for {
		n, err := w.port.Read(buf)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			continue
		}
		w.log.Debug("Received", "bytes", buf[:n])
		for _, f := range dec.Feed(buf[:n], w.now()) {
			select {
			case out <- f:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
