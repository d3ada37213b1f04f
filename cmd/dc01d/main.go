// Command dc01d runs the DC-01 relay interlock: it debounces the buttons and
// DCC sense inputs, drives the relay pair, talks to the host over the serial
// gadget and publishes events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/dc01-interlock/internal/config"
	"github.com/sweeney/dc01-interlock/internal/gpio"
	"github.com/sweeney/dc01-interlock/internal/hostlink"
	"github.com/sweeney/dc01-interlock/internal/interlock"
	"github.com/sweeney/dc01-interlock/internal/mqtt"
	"github.com/sweeney/dc01-interlock/internal/sched"
	"github.com/sweeney/dc01-interlock/internal/status"
	"github.com/sweeney/dc01-interlock/internal/watchdog"
	"github.com/sweeney/dc01-interlock/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML configuration file")
	printState := flag.Bool("print-state", false, "Print raw input levels and exit")

	flag.Parse()

	if err := run(*configPath, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath string, printState bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	lines, err := cfg.PinLines()
	if err != nil {
		return err
	}

	pins, err := gpio.NewRealPins(cfg.GPIO.Chip, lines)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	if printState {
		printInputs(pins)
		return nil
	}

	serialCfg := cfg.SerialTransportConfig()
	host, err := hostlink.OpenSerial(serialCfg)
	if err != nil {
		return fmt.Errorf("open host link: %w", err)
	}
	defer host.Close()

	// The watchdog must be the last init step that can fail.
	var wd watchdog.Watchdog = &watchdog.Nop{}
	if cfg.Watchdog.Device != "" {
		dev, err := watchdog.OpenDevice(cfg.Watchdog.Device, cfg.Watchdog.Timeout)
		if err != nil {
			return fmt.Errorf("open watchdog: %w", err)
		}
		wd = dev
	}

	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker)
	queue := mqtt.NewQueue(publisher, mqtt.DefaultQueueSize)
	defer queue.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:          cfg.GPIO.Chip,
		SerialPort:    serialCfg.Port,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		Watchdog:      cfg.Watchdog.Device,
		HeartbeatMs:   cfg.MQTT.Heartbeat.Milliseconds(),
		HostTimeoutMs: cfg.Timing.HostTimeoutMs,
		NoTestMaxMs:   cfg.Timing.NoTestMaxMs,
	})

	table := cfg.DebounceTable()
	dev := interlock.New(pins, host, interlock.Options{
		Logic:      cfg.LogicConfig(0),
		Debounce:   &table,
		Publisher:  queue,
		MQTTStatus: publisher,
		Tracker:    tracker,
	})
	dev.UpdateTracker()

	// Publish startup event with full status snapshot
	publishSystem(queue, tracker, "STARTUP", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	ticks := sched.NewTicks(wd)
	loop := sched.NewLoop(ticks, dev)

	g.Go(func() error { return sched.Source(gctx, cfg.Timing.FinePeriod, ticks.Fine) })
	g.Go(func() error { return sched.Source(gctx, cfg.Timing.CoarsePeriod, ticks.Coarse) })
	g.Go(func() error { return loop.Run(gctx, host.Wake()) })
	g.Go(func() error { return host.Run(gctx) })
	g.Go(func() error { return queue.Run(gctx) })

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var heartbeat <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 {
		t := time.NewTicker(cfg.MQTT.Heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	g.Go(func() error {
		clean := supervise(gctx, queue, publisher, tracker, sigCh, heartbeat)
		if clean {
			cancel()
		}
		return nil
	})

	log.Printf("started: chip=%s serial=%s broker=%s heartbeat=%v",
		cfg.GPIO.Chip, serialCfg.Port, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	err = g.Wait()

	// The loop has stopped; nothing else touches the relays now.
	dev.Controller().SetRelays(false, false)

	if err != nil {
		// Leave the watchdog armed so the board resets.
		return err
	}
	if derr := wd.Disarm(); derr != nil {
		log.Printf("watchdog disarm: %v", derr)
	}
	return nil
}

// supervise publishes heartbeats until a signal arrives or ctx ends. It
// reports whether shutdown was requested by a signal.
func supervise(ctx context.Context, pub mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, sig <-chan os.Signal, heartbeat <-chan time.Time) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
			publishSystem(pub, tracker, "SHUTDOWN", signalName(s))
			return true

		case <-heartbeat:
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
			snap := tracker.Snapshot()
			c := snap.Device.Counts
			log.Printf("heartbeat: uptime=%v mode=%s connected=%t tests=%d/%d",
				snap.Uptime().Truncate(time.Second), snap.Device.Mode, snap.Device.Connected,
				c.SelfTestsPassed, c.SelfTestsFailed)
			publishSystem(pub, tracker, "HEARTBEAT", "")
		}
	}
}

func publishSystem(pub mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	snap := tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := pub.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func printInputs(pins gpio.Pins) {
	for p := gpio.Pin(0); p < gpio.PinCount; p++ {
		if !p.IsInput() {
			continue
		}
		level := "idle"
		if !pins.Read(p) {
			level = "ACTIVE"
		}
		fmt.Printf("%s: %s\n", p, level)
	}
}
