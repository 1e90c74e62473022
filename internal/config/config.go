// Package config loads monitor settings: built-in defaults, then an optional
// YAML file, then .env and environment variables, then command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/agent-protocol/asearcher-monitor/internal/logging"
	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
	"github.com/agent-protocol/asearcher-monitor/pkg/monitor"
)

const (
	DefaultServerURL      = "http://localhost:8080"
	DefaultRequestTimeout = 300 * time.Second
	DefaultMockAddr       = "127.0.0.1:8080"
	// DefaultQuery is the demo question used when no query is given.
	DefaultQuery = "B站Up主HOPICO对方大同的专访视频获得了第多少期的每周必看？"
)

// MockConfig configures the mock-server command.
type MockConfig struct {
	Addr         string   `yaml:"addr"`
	ScenarioPath string   `yaml:"scenario"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// Config is the full monitor configuration.
type Config struct {
	ServerURL      string                 `yaml:"server_url"`
	RequestTimeout time.Duration          `yaml:"request_timeout"`
	PollInterval   time.Duration          `yaml:"poll_interval"`
	PollTimeout    time.Duration          `yaml:"poll_timeout"`
	Strict         bool                   `yaml:"strict"`
	Query          asearcher.QueryRequest `yaml:"query"`
	Log            logging.Config         `yaml:"log"`
	Mock           MockConfig             `yaml:"mock"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerURL:      DefaultServerURL,
		RequestTimeout: DefaultRequestTimeout,
		PollInterval:   monitor.DefaultPollInterval,
		PollTimeout:    monitor.DefaultPollTimeout,
		Query:          *asearcher.DefaultQueryRequest(DefaultQuery),
		Log: logging.Config{
			Level:  "warn",
			Format: "console",
		},
		Mock: MockConfig{
			Addr: DefaultMockAddr,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks settings the client itself depends on. Query fields are
// left to the service.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

// MonitorConfig returns the polling settings
func (c *Config) MonitorConfig() monitor.Config {
	return monitor.Config{
		PollInterval: c.PollInterval,
		PollTimeout:  c.PollTimeout,
	}
}
