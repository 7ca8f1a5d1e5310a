// Package config loads and validates the nearwatch configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Logging LoggingConfig `yaml:"logging"`
	Tracker TrackerConfig `yaml:"tracker"`
	Sensor  SensorConfig  `yaml:"sensor"`
	History HistoryConfig `yaml:"history"`
	Overlay OverlayConfig `yaml:"overlay"`
	Server  ServerConfig  `yaml:"server"`
	Events  EventsConfig  `yaml:"events"`
}

// LoggingConfig controls the slog default handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// TrackerConfig controls the usage-time accumulator.
type TrackerConfig struct {
	// TickInterval is the accumulation period. One tick adds one second of
	// usage regardless of the interval, so anything other than 1s is only
	// useful in tests.
	TickInterval time.Duration `yaml:"tick_interval"`
	// PersistEveryTicks bounds crash loss of the running total.
	PersistEveryTicks int `yaml:"persist_every_ticks"`
}

// SensorConfig controls the distance sampler and the projection model.
type SensorConfig struct {
	Enabled bool `yaml:"enabled"`
	// MinSampleInterval is the throttle gate: frames arriving earlier than
	// this since the last accepted frame began processing are dropped
	// without invoking detection.
	MinSampleInterval time.Duration `yaml:"min_sample_interval"`
	FocalLengthPx     float64       `yaml:"focal_length_px"`
	InterocularCm     float64       `yaml:"interocular_cm"`
	// StalePolicy decides what happens on a no-detection sample:
	// "immediate" writes unavailable at once, "hold" keeps the previous
	// reading for HoldSamples consecutive misses first.
	StalePolicy string `yaml:"stale_policy"`
	HoldSamples int    `yaml:"hold_samples"`
}

// HistoryConfig controls rollup bucketing.
type HistoryConfig struct {
	WeekStartsOn string `yaml:"week_starts_on"` // monday|sunday|...
}

// OverlayConfig controls indicator geometry. Appearance (tint, shape,
// transparency) lives in the live state, not here.
type OverlayConfig struct {
	Enabled       bool    `yaml:"enabled"`
	DragThreshold float64 `yaml:"drag_threshold"` // device-independent px
	DockAnchorX   float64 `yaml:"dock_anchor_x"`
	DockAnchorY   float64 `yaml:"dock_anchor_y"`
	MinWidth      float64 `yaml:"min_width"`
	MaxWidth      float64 `yaml:"max_width"`
	MinHeight     float64 `yaml:"min_height"`
	MaxHeight     float64 `yaml:"max_height"`
	SizeFraction  float64 `yaml:"size_fraction"` // 0..1 between min and max
}

// ServerConfig controls the local status/metrics HTTP endpoint.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// EventsConfig controls optional NATS publishing of rollover summaries.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Load reads, defaults and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables so secrets (NATS URL) can stay in .env.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a fully defaulted configuration without touching disk.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./nearwatch-data"
	}
	c.Logging.Level = string(NormalizeLogLevel(c.Logging.Level))
	c.Logging.Format = string(NormalizeLogFormat(c.Logging.Format))

	if c.Tracker.TickInterval <= 0 {
		c.Tracker.TickInterval = time.Second
	}
	if c.Tracker.PersistEveryTicks <= 0 {
		c.Tracker.PersistEveryTicks = 5
	}

	if c.Sensor.MinSampleInterval <= 0 {
		c.Sensor.MinSampleInterval = 2 * time.Second
	}
	if c.Sensor.FocalLengthPx == 0 {
		c.Sensor.FocalLengthPx = 550
	}
	if c.Sensor.InterocularCm == 0 {
		c.Sensor.InterocularCm = 6.3
	}
	c.Sensor.StalePolicy = string(NormalizeStalePolicy(c.Sensor.StalePolicy))
	if c.Sensor.HoldSamples <= 0 {
		c.Sensor.HoldSamples = 3
	}

	c.History.WeekStartsOn = string(NormalizeWeekStart(c.History.WeekStartsOn))

	if c.Overlay.DragThreshold == 0 {
		c.Overlay.DragThreshold = 10
	}
	if c.Overlay.MinWidth == 0 {
		c.Overlay.MinWidth = 120
	}
	if c.Overlay.MaxWidth == 0 {
		c.Overlay.MaxWidth = 360
	}
	if c.Overlay.MinHeight == 0 {
		c.Overlay.MinHeight = 50
	}
	if c.Overlay.MaxHeight == 0 {
		c.Overlay.MaxHeight = 150
	}
	if c.Overlay.SizeFraction == 0 {
		c.Overlay.SizeFraction = 0.5
	}
	if c.Overlay.DockAnchorY == 0 {
		c.Overlay.DockAnchorY = 40
	}

	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:9180"
	}

	if c.Events.Subject == "" {
		c.Events.Subject = "nearwatch.rollover"
	}
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Sensor.MinSampleInterval < 100*time.Millisecond {
		return fmt.Errorf("sensor.min_sample_interval %s is below 100ms", c.Sensor.MinSampleInterval)
	}
	if c.Sensor.FocalLengthPx <= 0 {
		return fmt.Errorf("sensor.focal_length_px must be positive, got %v", c.Sensor.FocalLengthPx)
	}
	if c.Sensor.InterocularCm <= 0 {
		return fmt.Errorf("sensor.interocular_cm must be positive, got %v", c.Sensor.InterocularCm)
	}
	if c.Overlay.DragThreshold < 0 {
		return fmt.Errorf("overlay.drag_threshold must not be negative, got %v", c.Overlay.DragThreshold)
	}
	if c.Overlay.MinWidth > c.Overlay.MaxWidth {
		return fmt.Errorf("overlay.min_width %v exceeds overlay.max_width %v", c.Overlay.MinWidth, c.Overlay.MaxWidth)
	}
	if c.Overlay.MinHeight > c.Overlay.MaxHeight {
		return fmt.Errorf("overlay.min_height %v exceeds overlay.max_height %v", c.Overlay.MinHeight, c.Overlay.MaxHeight)
	}
	if c.Overlay.SizeFraction < 0 || c.Overlay.SizeFraction > 1 {
		return fmt.Errorf("overlay.size_fraction must be in [0,1], got %v", c.Overlay.SizeFraction)
	}
	if c.Events.Enabled && c.Events.NATSURL == "" {
		return fmt.Errorf("events.enabled requires events.nats_url")
	}
	return nil
}

// Init writes a commented default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	content := `# nearwatch configuration
data_dir: ./nearwatch-data

logging:
  level: info
  format: text

tracker:
  persist_every_ticks: 5

sensor:
  enabled: true
  min_sample_interval: 2s
  focal_length_px: 550
  interocular_cm: 6.3
  stale_policy: immediate

history:
  week_starts_on: monday

overlay:
  enabled: true
  drag_threshold: 10
  dock_anchor_x: 0
  dock_anchor_y: 40

server:
  enabled: true
  listen: 127.0.0.1:9180

events:
  enabled: false
  nats_url: ${NEARWATCH_NATS_URL}
  subject: nearwatch.rollover
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
