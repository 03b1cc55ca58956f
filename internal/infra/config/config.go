// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Output device types.
const (
	OutputSpeaker = "speaker"
	OutputClock   = "clock"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Control ControlConfig `yaml:"control"`
	Backend BackendConfig `yaml:"backend"`
	Player  PlayerConfig  `yaml:"player"`
	Output  OutputConfig  `yaml:"output"`
	Probe   ProbeConfig   `yaml:"probe"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8090"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ControlConfig protects the control API.
type ControlConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// BackendConfig represents the REST backend the audio comes from.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url" default:"http://localhost:8080/api/v1" validate:"required,url"`
	Token      string `yaml:"token"`
	TimeoutSec int    `yaml:"timeout_sec" default:"30" validate:"gte=1,lte=600"`
}

// Timeout returns the request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSec) * time.Second
}

// PlayerConfig represents playback engine configuration.
type PlayerConfig struct {
	InitialVolume float64 `yaml:"initial_volume" default:"1" validate:"gte=0,lte=1"`
	EventBuffer   int     `yaml:"event_buffer" default:"64" validate:"gte=8,lte=4096"`
}

// OutputConfig selects the output device. Settings are decoded per type.
type OutputConfig struct {
	Type     string         `yaml:"type" default:"clock" validate:"oneof=speaker clock"`
	Settings map[string]any `yaml:"settings"`
}

// ProbeConfig represents duration probe configuration.
type ProbeConfig struct {
	TimeoutMs  int     `yaml:"timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
	RatePerSec float64 `yaml:"rate_per_sec" default:"4" validate:"gte=0"`
	Burst      int     `yaml:"burst" default:"2" validate:"gte=1"`
	// WarmQueue probes durations of queued tracks in the background.
	WarmQueue  bool    `yaml:"warm_queue"`
}

// Timeout returns the probe timeout.
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// CacheConfig represents duration cache configuration.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" validate:"gte=0"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses YAML configuration, applies environment overrides and
// defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("MAXIFY_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("MAXIFY_API_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("MAXIFY_OUTPUT"); v != "" {
		c.Output.Type = v
	}
	if v := os.Getenv("MAXIFY_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid MAXIFY_CACHE_MAX_ENTRIES %q", v)
		}
		c.Cache.MaxEntries = n
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
