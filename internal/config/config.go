// Package config loads the receiver's YAML configuration file, following
// the same load/validate/default pattern as the teacher's top-level
// config.go: yaml.Unmarshal into a plain struct tree, then a separate
// Validate pass and default-filling for fields the zero value doesn't
// already suit.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level receiver configuration.
type Config struct {
	Tuner    TunerConfig    `yaml:"tuner"`
	Ensemble EnsembleConfig `yaml:"ensemble"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// TunerConfig selects the SDR front end and its sample source.
type TunerConfig struct {
	Device       string  `yaml:"device"`        // e.g. "rtlsdr", "file", "udp"
	FrequencyHz  uint64  `yaml:"frequency_hz"`  // ensemble centre frequency
	SampleRateHz float64 `yaml:"sample_rate_hz"`
	GainDB       float64 `yaml:"gain_db"`
	InputPath    string  `yaml:"input_path,omitempty"` // file/udp source
}

// EnsembleConfig selects which transmission mode to demodulate and which
// service to present as the default audio output.
type EnsembleConfig struct {
	Mode           int    `yaml:"mode"` // 1-4, ETSI transmission mode
	DefaultService uint32 `yaml:"default_service,omitempty"`
}

// ServerConfig controls the receiver's network-facing control/status
// surface.
type ServerConfig struct {
	Listen           string `yaml:"listen"`
	MaxSubscribers   int    `yaml:"max_subscribers"`
	AudioBufferSize  int    `yaml:"audio_buffer_size"`
}

// LoggingConfig controls internal/dablog's verbosity and destination.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file,omitempty"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// Load reads and parses filename, then validates and defaults it.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ensemble.Mode == 0 {
		c.Ensemble.Mode = 1
	}
	if c.Server.MaxSubscribers == 0 {
		c.Server.MaxSubscribers = 50
	}
	if c.Server.AudioBufferSize == 0 {
		c.Server.AudioBufferSize = 4096
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Tuner.SampleRateHz == 0 {
		c.Tuner.SampleRateHz = 2_048_000
	}
}

// Validate rejects configurations the receiver cannot run with.
func (c *Config) Validate() error {
	if c.Tuner.Device == "" {
		return &Error{Field: "tuner.device", Msg: "is required"}
	}
	if c.Ensemble.Mode < 1 || c.Ensemble.Mode > 4 {
		return &Error{Field: "ensemble.mode", Msg: "must be between 1 and 4"}
	}
	if c.Server.Listen == "" {
		return &Error{Field: "server.listen", Msg: "is required"}
	}
	if c.Server.MaxSubscribers < 1 {
		return &Error{Field: "server.max_subscribers", Msg: "must be at least 1"}
	}
	if c.Tuner.SampleRateHz <= 0 {
		return &Error{Field: "tuner.sample_rate_hz", Msg: "must be positive"}
	}
	return nil
}

// Error is a typed configuration error identifying the offending field,
// so callers can distinguish config problems from I/O or parse failures
// without string-matching an error message.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Msg)
}
