// Package config loads SysScope settings. Environment variables override the
// YAML file, which overrides defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sysscope/internal/utils"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	envAddr             = "SYSSCOPE_ADDR"
	envDataDir          = "SYSSCOPE_DATA_DIR"
	envDBPath           = "SYSSCOPE_DB_PATH"
	envLogFile          = "SYSSCOPE_LOG_FILE"
	envInterval         = "SYSSCOPE_INTERVAL"
	envProbeAddress     = "SYSSCOPE_PROBE_ADDRESS"
	envProbeTimeout     = "SYSSCOPE_PROBE_TIMEOUT"
	envSubscriberBuffer = "SYSSCOPE_SUBSCRIBER_BUFFER"
	envUseTLS           = "SYSSCOPE_USE_TLS"
	envTLSCert          = "SYSSCOPE_TLS_CERT"
	envTLSKey           = "SYSSCOPE_TLS_KEY"
)

const (
	DefaultAddr             = ":8000"
	DefaultDataDir          = "."
	DefaultInterval         = time.Second
	DefaultProbeAddress     = "8.8.8.8:53"
	DefaultProbeTimeout     = time.Second
	DefaultSubscriberBuffer = 16
	DefaultHistoryLimit     = 100
	DefaultMaxHistoryLimit  = 1000
	DefaultRatePerMinute    = 600
	DefaultRateBurst        = 50
)

var validate = validator.New()

// Config is the full runtime configuration.
type Config struct {
	Addr    string `yaml:"addr" validate:"required,hostname_port"`
	DataDir string `yaml:"data_dir" validate:"required"`
	DBPath  string `yaml:"db_path"`
	LogFile string `yaml:"log_file"`

	Interval     time.Duration `yaml:"interval" validate:"gt=0"`
	ProbeAddress string        `yaml:"probe_address" validate:"required,hostname_port"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" validate:"gt=0"`

	SubscriberBuffer int `yaml:"subscriber_buffer" validate:"gte=1,lte=4096"`
	HistoryLimit     int `yaml:"history_limit" validate:"gte=1"`
	MaxHistoryLimit  int `yaml:"max_history_limit" validate:"gtefield=HistoryLimit"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute" validate:"gte=1"`
	RateLimitBurst     int `yaml:"rate_limit_burst" validate:"gte=1"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig enables HTTPS when Enabled is set.
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert" validate:"required_if=Enabled true"`
	Key     string `yaml:"key" validate:"required_if=Enabled true"`
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (when non-empty and present), applies environment overrides
// and defaults, then validates.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(envDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(envLogFile); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(envProbeAddress); v != "" {
		c.ProbeAddress = v
	}
	if v := os.Getenv(envTLSCert); v != "" {
		c.TLS.Cert = v
	}
	if v := os.Getenv(envTLSKey); v != "" {
		c.TLS.Key = v
	}
	if envBool(envUseTLS) {
		c.TLS.Enabled = true
	}

	var err error
	if c.Interval, err = envDuration(envInterval, c.Interval); err != nil {
		return err
	}
	if c.ProbeTimeout, err = envDuration(envProbeTimeout, c.ProbeTimeout); err != nil {
		return err
	}
	if v := os.Getenv(envSubscriberBuffer); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envSubscriberBuffer, err)
		}
		c.SubscriberBuffer = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.ProbeAddress == "" {
		c.ProbeAddress = DefaultProbeAddress
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.SubscriberBuffer == 0 {
		c.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.MaxHistoryLimit == 0 {
		c.MaxHistoryLimit = DefaultMaxHistoryLimit
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = DefaultRatePerMinute
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = DefaultRateBurst
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatabasePath returns DBPath, or system_health.db under DataDir/data.
func (c *Config) DatabasePath() string {
	if strings.TrimSpace(c.DBPath) != "" {
		return c.DBPath
	}
	return utils.NewPaths(c.DataDir).DatabaseFile()
}

// LogPath returns LogFile, or sysscope.log under DataDir/logs.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.LogFile) != "" {
		return c.LogFile
	}
	return utils.NewPaths(c.DataDir).LogFile()
}

func envBool(key string) bool {
	val := os.Getenv(key)
	if val == "" {
		return false
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
