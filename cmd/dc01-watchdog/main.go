// Command dc01-watchdog runs next to the hJOP server and keeps a DC-01
// connected while the server reports no emergency stop.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/dc01-interlock/internal/hjop"
)

const appVersion = "1.0"

type options struct {
	server   string
	port     int
	device   string
	level    string
	mock     bool
	resume   bool
	logDir   string
	timeout  time.Duration
	reconnect time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("dc01-watchdog: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{
		timeout:  hjop.RefreshPeriod,
		reconnect: hjop.ReconnectDelay,
	}
	cmd := &cobra.Command{
		Use:           "dc01-watchdog",
		Short:         "Keep a DC-01 connected while hJOPserver is healthy",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := newLogger(opts.level, opts.logDir, cmd.OutOrStdout(), time.Now())
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatchdog(ctx, opts, logger)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.server, "server", "s", hjop.DefaultServer, "hJOPserver address")
	f.IntVarP(&opts.port, "port", "p", hjop.DefaultPort, "hJOPserver PT server port")
	f.StringVarP(&opts.device, "com", "c", "", "DC-01 serial port (default: find by USB product)")
	f.StringVarP(&opts.level, "loglevel", "l", "info", "Log level (debug, info, warn, error)")
	f.BoolVarP(&opts.mock, "mock", "m", false, "Mock server: keep the output always on")
	f.BoolVarP(&opts.resume, "resume", "r", false, "Always try to resume operations, never exit on device errors")
	f.StringVarP(&opts.logDir, "logdir", "d", "", "Also log to a daily file in this directory")
	return cmd
}

// newLogger builds a text logger writing to out and, when dir is set, to
// dir/YYYY-MM-DD.log.
func newLogger(level, dir string, out io.Writer, now time.Time) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", level, err)
	}

	var closer io.Closer = io.NopCloser(nil)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		name := filepath.Join(dir, now.Format("2006-01-02")+".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closer = f
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})), closer, nil
}

func runWatchdog(ctx context.Context, opts *options, logger *slog.Logger) error {
	var oracle hjop.Oracle = hjop.NewClient(opts.server, opts.port, opts.timeout, logger)
	if opts.mock {
		oracle = hjop.Always{}
	}

	for {
		if opts.device == "" {
			logger.Info("Looking for DC-01...")
		}
		name, err := hjop.FindPort(opts.device)
		if err != nil {
			logger.Error("DC-01 not available", "err", err)
		} else if err := watchPort(ctx, name, oracle, logger); err != nil {
			if !opts.resume {
				return err
			}
			logger.Error("DC-01 connection lost", "port", name, "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.reconnect):
		}
	}
}

func watchPort(ctx context.Context, name string, oracle hjop.Oracle, logger *slog.Logger) error {
	logger.Info("Connecting", "port", name)
	port, err := hjop.OpenPort(name)
	if err != nil {
		return err
	}
	defer port.Close()
	return hjop.NewWatcher(port, oracle, logger.With("port", name)).Run(ctx)
}
