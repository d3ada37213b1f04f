// Package config loads the dc01d YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/dc01-interlock/internal/debounce"
	"github.com/sweeney/dc01-interlock/internal/gpio"
	"github.com/sweeney/dc01-interlock/internal/hostlink"
	"github.com/sweeney/dc01-interlock/internal/logic"
	"github.com/sweeney/dc01-interlock/internal/sched"
)

// DefaultPath is where dc01d looks for its configuration.
const DefaultPath = "/etc/dc01d.yaml"

// Config represents the daemon configuration.
type Config struct {
	GPIO     GPIOConfig     `yaml:"gpio"`
	Debounce DebounceConfig `yaml:"debounce"`
	Timing   TimingConfig   `yaml:"timing"`
	Serial   SerialConfig   `yaml:"serial"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// GPIOConfig selects the chip and the line offset of every signal.
type GPIOConfig struct {
	Chip  string         `yaml:"chip"`
	Lines map[string]int `yaml:"lines"` // keyed by pin name, e.g. "relay1"
}

// DebounceConfig holds thresholds in fine ticks.
type DebounceConfig struct {
	ButtonThreshold uint32 `yaml:"button_threshold"`
	DCCThreshold    uint32 `yaml:"dcc_threshold"`
	DCCLimit        uint32 `yaml:"dcc_limit"`
}

// TimingConfig holds tick periods and controller timeouts.
type TimingConfig struct {
	FinePeriod    time.Duration `yaml:"fine_period"`
	CoarsePeriod  time.Duration `yaml:"coarse_period"`
	HostWarningMs uint32        `yaml:"host_warning_ms"`
	HostTimeoutMs uint32        `yaml:"host_timeout_ms"`
	NoTestMaxMs   uint32        `yaml:"no_test_max_ms"` // cooldown before a new self-test is required
	AlertMs       uint32        `yaml:"alert_ms"`
}

// SerialConfig configures the host link. An empty port disables it.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	Gap         time.Duration `yaml:"gap"`
	ReadyWindow time.Duration `yaml:"ready_window"`
}

// MQTTConfig configures event publishing. An empty broker disables it.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables heartbeats
}

// HTTPConfig configures the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WatchdogConfig configures the hardware watchdog. An empty device disables it.
type WatchdogConfig struct {
	Device  string        `yaml:"device"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the reference board configuration.
func Default() *Config {
	lines := make(map[string]int)
	for pin, off := range gpio.DefaultLines() {
		lines[pin.String()] = off
	}
	lc := logic.DefaultConfig()
	return &Config{
		GPIO: GPIOConfig{
			Chip:  "gpiochip0",
			Lines: lines,
		},
		Debounce: DebounceConfig{
			ButtonThreshold: debounce.ButtonThreshold,
			DCCThreshold:    debounce.DCCThreshold,
			DCCLimit:        debounce.DCCLimit,
		},
		Timing: TimingConfig{
			FinePeriod:    sched.DefaultFinePeriod,
			CoarsePeriod:  sched.DefaultCoarsePeriod,
			HostWarningMs: lc.HostWarningMs,
			HostTimeoutMs: lc.HostTimeoutMs,
			NoTestMaxMs:   lc.NoTestMaxMs,
			AlertMs:       lc.AlertMs,
		},
		Serial: SerialConfig{
			Port:        "/dev/ttyGS0",
			BaudRate:    hostlink.DefaultBaudRate,
			Gap:         hostlink.DefaultGap,
			ReadyWindow: hostlink.DefaultReadyWindow,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://localhost:1883",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Watchdog: WatchdogConfig{
			Device:  "/dev/watchdog",
			Timeout: 15 * time.Second,
		},
	}
}

// Load reads a YAML file. A missing file yields the defaults; missing
// fields are filled from the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Lines are replaced wholesale by the file, then completed below.
	cfg.GPIO.Lines = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) ensureDefaults() {
	def := Default()

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.GPIO.Lines == nil {
		c.GPIO.Lines = make(map[string]int)
	}
	for name, off := range def.GPIO.Lines {
		if _, ok := c.GPIO.Lines[name]; !ok {
			c.GPIO.Lines[name] = off
		}
	}

	if c.Debounce.ButtonThreshold == 0 {
		c.Debounce.ButtonThreshold = def.Debounce.ButtonThreshold
	}
	if c.Debounce.DCCThreshold == 0 {
		c.Debounce.DCCThreshold = def.Debounce.DCCThreshold
	}
	if c.Debounce.DCCLimit == 0 {
		c.Debounce.DCCLimit = def.Debounce.DCCLimit
	}

	if c.Timing.FinePeriod == 0 {
		c.Timing.FinePeriod = def.Timing.FinePeriod
	}
	if c.Timing.CoarsePeriod == 0 {
		c.Timing.CoarsePeriod = def.Timing.CoarsePeriod
	}
	if c.Timing.HostWarningMs == 0 {
		c.Timing.HostWarningMs = def.Timing.HostWarningMs
	}
	if c.Timing.HostTimeoutMs == 0 {
		c.Timing.HostTimeoutMs = def.Timing.HostTimeoutMs
	}
	if c.Timing.NoTestMaxMs == 0 {
		c.Timing.NoTestMaxMs = def.Timing.NoTestMaxMs
	}
	if c.Timing.AlertMs == 0 {
		c.Timing.AlertMs = def.Timing.AlertMs
	}

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.Gap == 0 {
		c.Serial.Gap = def.Serial.Gap
	}
	if c.Serial.ReadyWindow == 0 {
		c.Serial.ReadyWindow = def.Serial.ReadyWindow
	}

	if c.Watchdog.Timeout == 0 {
		c.Watchdog.Timeout = def.Watchdog.Timeout
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.PinLines(); err != nil {
		errs = append(errs, err)
	}
	if c.Debounce.DCCThreshold > c.Debounce.DCCLimit {
		errs = append(errs, fmt.Errorf("debounce: dcc_threshold %d exceeds dcc_limit %d",
			c.Debounce.DCCThreshold, c.Debounce.DCCLimit))
	}
	if c.Timing.HostWarningMs >= c.Timing.HostTimeoutMs {
		errs = append(errs, fmt.Errorf("timing: host_warning_ms %d must be below host_timeout_ms %d",
			c.Timing.HostWarningMs, c.Timing.HostTimeoutMs))
	}
	if c.Timing.FinePeriod <= 0 || c.Timing.CoarsePeriod <= 0 {
		errs = append(errs, errors.New("timing: tick periods must be positive"))
	}
	if c.Timing.FinePeriod > c.Timing.CoarsePeriod {
		errs = append(errs, errors.New("timing: fine_period exceeds coarse_period"))
	}
	if c.Serial.BaudRate < 0 {
		errs = append(errs, fmt.Errorf("serial: bad baud_rate %d", c.Serial.BaudRate))
	}
	return errors.Join(errs...)
}

// PinLines resolves the named line map. Every pin must be present and no two
// pins may share a line.
func (c *Config) PinLines() (gpio.Lines, error) {
	lines := make(gpio.Lines, len(c.GPIO.Lines))
	used := make(map[int]string)
	for name, off := range c.GPIO.Lines {
		pin, ok := gpio.PinByName(name)
		if !ok {
			return nil, fmt.Errorf("gpio: unknown pin %q", name)
		}
		if off < 0 {
			return nil, fmt.Errorf("gpio: %s has negative line %d", name, off)
		}
		if other, dup := used[off]; dup {
			return nil, fmt.Errorf("gpio: line %d used by both %s and %s", off, other, name)
		}
		used[off] = name
		lines[pin] = off
	}
	for p := gpio.Pin(0); p < gpio.PinCount; p++ {
		if _, ok := lines[p]; !ok {
			return nil, fmt.Errorf("gpio: no line for %s", p)
		}
	}
	return lines, nil
}

// DebounceTable builds the input table from the thresholds.
func (c *Config) DebounceTable() debounce.Table {
	t := debounce.DefaultTable()
	for i := range t {
		if t[i].Pin == gpio.PinDCC1 || t[i].Pin == gpio.PinDCC2 {
			t[i].RiseThreshold = c.Debounce.DCCThreshold
			t[i].Limit = c.Debounce.DCCLimit
			continue
		}
		t[i].RiseThreshold = c.Debounce.ButtonThreshold
		t[i].Limit = c.Debounce.ButtonThreshold
	}
	return t
}

// LogicConfig returns the controller timing. settleTicks comes from the
// debounce engine built from DebounceTable.
func (c *Config) LogicConfig(settleTicks uint32) logic.Config {
	return logic.Config{
		HostWarningMs: c.Timing.HostWarningMs,
		HostTimeoutMs: c.Timing.HostTimeoutMs,
		NoTestMaxMs:   c.Timing.NoTestMaxMs,
		AlertMs:       c.Timing.AlertMs,
		SettleTicks:   settleTicks,
	}
}

// SerialTransportConfig returns the host link settings.
func (c *Config) SerialTransportConfig() hostlink.SerialConfig {
	return hostlink.SerialConfig{
		Port:        c.Serial.Port,
		BaudRate:    c.Serial.BaudRate,
		Gap:         c.Serial.Gap,
		ReadyWindow: c.Serial.ReadyWindow,
	}
}
