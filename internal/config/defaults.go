package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://127.0.0.1:10000",
			Prefix:    "/api",
			Timeout:   "30s",
			RateLimit: 20,
			Burst:     5,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8000",
			ReadTimeout:  "15s",
			WriteTimeout: "60s",
			IdleTimeout:  "60s",
		},
		UI: UIConfig{
			PageSize:    20,
			RecentLimit: 5,
			NoticeTTL:   "3s",
		},
		Session: SessionConfig{
			DBPath: "vulntriage.db",
			TTL:    "12h",
		},
		Telemetry: TelemetryConfig{
			Metrics:     true,
			ServiceName: "vulntriage",
		},
	}
}

// WriteDefault writes a default configuration to the specified path
func WriteDefault(path string) error {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
