package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnvironment loads configuration overrides from environment variables
func LoadFromEnvironment(config *Config) *Config {
	if port := getEnv("GW_PORT", ""); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p <= 65535 {
			config.Server.Port = p
		}
	}

	if timeout := getEnv("GW_READ_TIMEOUT", ""); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = t
		}
	}

	if timeout := getEnv("GW_WRITE_TIMEOUT", ""); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = t
		}
	}

	if h2c := getEnv("GW_ENABLE_H2C", ""); h2c != "" {
		config.Server.EnableH2C = strings.ToLower(h2c) == "true"
	}

	// Routing table from environment replaces the configured table completely
	if services := getEnv("GW_SERVICES", ""); services != "" {
		if parsed := parseServicesFromEnv(services); len(parsed) > 0 {
			config.Gateway.Services = parsed
		}
	}

	if enabled := getEnv("GW_RATE_LIMIT_ENABLED", ""); enabled != "" {
		config.Gateway.RateLimit.Enabled = strings.ToLower(enabled) == "true"
	}

	if rps := getEnv("GW_RATE_LIMIT_RPS", ""); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil && r > 0 {
			config.Gateway.RateLimit.RequestsPerSecond = r
		}
	}

	if burst := getEnv("GW_RATE_LIMIT_BURST", ""); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil && b > 0 {
			config.Gateway.RateLimit.BurstSize = b
		}
	}

	if enabled := getEnv("GW_ADMIN_AUTH_ENABLED", ""); enabled != "" {
		config.Admin.AuthEnabled = strings.ToLower(enabled) == "true"
	}

	if secret := getEnv("GW_ADMIN_AUTH_SECRET", ""); secret != "" {
		config.Admin.AuthSecret = secret
	}

	if level := getEnv("GW_LOG_LEVEL", ""); level != "" {
		config.Logging.Level = level
	}

	if format := getEnv("GW_LOG_FORMAT", ""); format != "" {
		config.Logging.Format = format
	}

	if output := getEnv("GW_LOG_OUTPUT", ""); output != "" {
		config.Logging.Output = output
	}

	if file := getEnv("GW_LOG_FILE", ""); file != "" {
		config.Logging.File = file
	}

	return config
}

// parseServicesFromEnv parses the routing table from an environment variable.
// Format: "name1=url1,name2=url2"
// Example: "equipment=http://equipment-service:8001,reports=http://report-service:8004"
func parseServicesFromEnv(services string) map[string]string {
	parsed := make(map[string]string)

	for _, spec := range strings.Split(services, ",") {
		parts := strings.SplitN(strings.TrimSpace(spec), "=", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			parsed[parts[0]] = parts[1]
		}
	}

	return parsed
}

// getEnv gets environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// LoadConfig loads configuration with priority: env vars > config file > defaults
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	configFile := getEnv("CONFIG_FILE", "config.yaml")
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	config = LoadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
