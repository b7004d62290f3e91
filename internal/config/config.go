package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// VULNTRIAGE_API_BASE_URL overrides api.base_url.
const EnvPrefix = "VULNTRIAGE"

// Config represents the application configuration
type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	UI        UIConfig        `mapstructure:"ui" yaml:"ui"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Notify    NotifyConfig    `mapstructure:"notify" yaml:"notify"`
}

// APIConfig describes the REST backend the dashboard talks to
type APIConfig struct {
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`
	Prefix    string  `mapstructure:"prefix" yaml:"prefix"`
	Timeout   string  `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

// ServerConfig configures the web dashboard listener
type ServerConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  string `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// UIConfig holds presentation constants shared by every front end
type UIConfig struct {
	PageSize    int    `mapstructure:"page_size" yaml:"page_size"`
	RecentLimit int    `mapstructure:"recent_limit" yaml:"recent_limit"`
	NoticeTTL   string `mapstructure:"notice_ttl" yaml:"notice_ttl"`
}

// SessionConfig configures the view-state store
type SessionConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
	TTL    string `mapstructure:"ttl" yaml:"ttl"`
}

// TelemetryConfig toggles metrics and tracing
type TelemetryConfig struct {
	Metrics      bool   `mapstructure:"metrics" yaml:"metrics"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure" yaml:"insecure"`
	ServiceName  string `mapstructure:"service_name" yaml:"service_name"`
}

// NotifyConfig configures the optional outgoing webhook
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// Load reads configuration from a YAML file, layered over the defaults and
// under VULNTRIAGE_* environment overrides.
// If path is empty, searches for vulntriage.yaml in the current directory,
// ./configs and ~/.config/vulntriage/; finding none is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vulntriage")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "vulntriage"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default key so that environment overrides
// apply even when the file omits the key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.prefix", d.API.Prefix)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.rate_limit", d.API.RateLimit)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("ui.page_size", d.UI.PageSize)
	v.SetDefault("ui.recent_limit", d.UI.RecentLimit)
	v.SetDefault("ui.notice_ttl", d.UI.NoticeTTL)
	v.SetDefault("session.db_path", d.Session.DBPath)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("telemetry.metrics", d.Telemetry.Metrics)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		errs = append(errs, err)
	}

	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit cannot be negative"))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr cannot be empty"))
	}

	if c.UI.PageSize <= 0 {
		errs = append(errs, errors.New("ui.page_size must be positive"))
	}

	if c.UI.RecentLimit <= 0 {
		errs = append(errs, errors.New("ui.recent_limit must be positive"))
	}

	if c.Session.DBPath == "" {
		errs = append(errs, errors.New("session.db_path cannot be empty"))
	}

	durations := map[string]string{
		"api.timeout":          c.API.Timeout,
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"server.idle_timeout":  c.Server.IdleTimeout,
		"ui.notice_ttl":        c.UI.NoticeTTL,
		"session.ttl":          c.Session.TTL,
	}
	for _, key := range sortedKeys(durations) {
		if _, err := time.ParseDuration(durations[key]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if c.Notify.WebhookURL != "" {
		if err := validateHTTPURL("notify.webhook_url", c.Notify.WebhookURL); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateHTTPURL requires an absolute http(s) URL with a host.
func validateHTTPURL(key, raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", key)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// APITimeout returns api.timeout as a duration.
func (c *Config) APITimeout() time.Duration { return mustDuration(c.API.Timeout, 30*time.Second) }

// ReadTimeout returns server.read_timeout as a duration.
func (c *Config) ReadTimeout() time.Duration { return mustDuration(c.Server.ReadTimeout, 15*time.Second) }

// WriteTimeout returns server.write_timeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return mustDuration(c.Server.WriteTimeout, 60*time.Second)
}

// IdleTimeout returns server.idle_timeout as a duration.
func (c *Config) IdleTimeout() time.Duration { return mustDuration(c.Server.IdleTimeout, 60*time.Second) }

// NoticeTTL returns ui.notice_ttl as a duration.
func (c *Config) NoticeTTL() time.Duration { return mustDuration(c.UI.NoticeTTL, 3*time.Second) }

// SessionTTL returns session.ttl as a duration.
func (c *Config) SessionTTL() time.Duration { return mustDuration(c.Session.TTL, 12*time.Hour) }

// mustDuration parses raw, falling back when it is empty or invalid.
// Validate has already rejected invalid values for loaded configs.
func mustDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
