package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the main configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gateway GatewayConfig `yaml:"gateway"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Admin   AdminConfig   `yaml:"admin"`
}

// ServerConfig contains HTTP server specific configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	EnableH2C    bool          `yaml:"enable_h2c"`
}

// GatewayConfig contains the routing table and outbound transport settings
type GatewayConfig struct {
	// Services maps a path's first segment to the owning backend's base URL.
	// The mapping is loaded once at startup and immutable afterwards.
	Services  map[string]string `yaml:"services"`
	Upstream  UpstreamConfig    `yaml:"upstream"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

// UpstreamConfig contains the shared outbound connection pool settings
type UpstreamConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// MetricsConfig contains metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AdminConfig contains admin endpoint configuration
type AdminConfig struct {
	AuthEnabled bool   `yaml:"auth_enabled"`
	AuthSecret  string `yaml:"auth_secret"`
}

// DefaultConfig returns a configuration with sensible defaults. The default
// routing table matches the reference deployment of the inventory system.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Gateway: GatewayConfig{
			Services: map[string]string{
				"equipment":   "http://equipment-service:8001",
				"providers":   "http://provider-service:8002",
				"maintenance": "http://maintenance-service:8003",
				"reports":     "http://report-service:8004",
			},
			Upstream: UpstreamConfig{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Admin: AdminConfig{
			AuthEnabled: false,
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if len(c.Gateway.Services) == 0 {
		return fmt.Errorf("at least one service must be configured")
	}

	for name, addr := range c.Gateway.Services {
		if name == "" {
			return fmt.Errorf("service name cannot be empty")
		}
		if strings.Contains(name, "/") {
			return fmt.Errorf("service %q: name must be a single path segment", name)
		}

		u, err := url.Parse(addr)
		if err != nil {
			return fmt.Errorf("service %q: invalid base URL %q: %w", name, addr, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("service %q: base URL must use http or https, got %q", name, addr)
		}
		if u.Host == "" {
			return fmt.Errorf("service %q: base URL %q has no host", name, addr)
		}
	}

	if c.Gateway.RateLimit.Enabled {
		if c.Gateway.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive")
		}
		if c.Gateway.RateLimit.BurstSize <= 0 {
			return fmt.Errorf("rate_limit.burst_size must be positive")
		}
	}

	if c.Admin.AuthEnabled && c.Admin.AuthSecret == "" {
		return fmt.Errorf("admin.auth_secret is required when admin auth is enabled")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return nil
}
