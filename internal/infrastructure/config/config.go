package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"goveeremote/internal/device"
)

// Config is the root configuration structure for the Govee remote driver.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Govee     GoveeConfig     `yaml:"govee"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Pages     PagesConfig     `yaml:"pages"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GoveeConfig contains Govee cloud API settings.
type GoveeConfig struct {
	// APIKey authenticates against the Govee cloud. Required.
	// Prefer setting it via the GOVEE_API_KEY environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the cloud endpoint. Empty uses production.
	BaseURL string `yaml:"base_url"`

	// RequestTimeout bounds a single cloud HTTP call, in seconds.
	RequestTimeout int `yaml:"request_timeout"`
}

// GatewayConfig contains cloud rate limiting and retry settings.
type GatewayConfig struct {
	// GlobalMinIntervalMs is the minimum spacing between any two cloud
	// calls, in milliseconds.
	GlobalMinIntervalMs int `yaml:"global_min_interval_ms"`

	// DeviceMinIntervalMs is the minimum spacing between calls to the
	// same device, in milliseconds.
	DeviceMinIntervalMs int `yaml:"device_min_interval_ms"`

	// WindowLimit caps calls per rolling window.
	WindowLimit int `yaml:"window_limit"`

	// WindowSeconds is the rolling window length.
	WindowSeconds int `yaml:"window_seconds"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig contains retry backoff settings for transient cloud failures.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialDelayMs int     `yaml:"initial_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
}

// DiscoveryConfig contains setup and device enumeration settings.
type DiscoveryConfig struct {
	// VerifyAttempts is how many times key verification retries
	// transient failures during setup.
	VerifyAttempts int `yaml:"verify_attempts"`

	// VerifyDelaySeconds is the pause between verification attempts.
	VerifyDelaySeconds int `yaml:"verify_delay_seconds"`

	// SyncStates pulls live device state through the gateway after
	// discovery so toggles start from real positions.
	SyncStates bool `yaml:"sync_states"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`

	// Token guards mutating endpoints. Empty disables auth; only do
	// that on a trusted network.
	Token string `yaml:"token"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// PagesConfig contains UI page synthesis settings.
type PagesConfig struct {
	// ButtonPriority orders device types for physical button assignment
	// and page ordering; listed types come first. Values are device type
	// names (light, kettle, humidifier, ...). Empty keeps the built-in
	// order.
	ButtonPriority []string `yaml:"button_priority"`
}

// MQTTConfig contains the optional MQTT state publisher settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// TelemetryConfig contains the optional InfluxDB command telemetry settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GOVEEREMOTE_SECTION_KEY
// (e.g. GOVEEREMOTE_DATABASE_PATH, GOVEEREMOTE_API_PORT). The API key
// also honours the plain GOVEE_API_KEY variable.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults. The gateway
// defaults track the cloud's published 10-requests-per-minute ceiling.
func defaultConfig() *Config {
	return &Config{
		Govee: GoveeConfig{
			RequestTimeout: 30,
		},
		Gateway: GatewayConfig{
			GlobalMinIntervalMs: 100,
			DeviceMinIntervalMs: 300,
			WindowLimit:         10,
			WindowSeconds:       60,
			Retry: RetryConfig{
				MaxAttempts:    3,
				InitialDelayMs: 1000,
				MaxDelayMs:     30000,
				Multiplier:     2.0,
			},
		},
		Discovery: DiscoveryConfig{
			VerifyAttempts:     3,
			VerifyDelaySeconds: 2,
			SyncStates:         true,
		},
		Database: DatabaseConfig{
			Path:        "./data/goveeremote.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8093,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "goveeremote",
			},
			QoS:         1,
			TopicPrefix: "goveeremote",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Govee cloud
	if v := os.Getenv("GOVEE_API_KEY"); v != "" {
		cfg.Govee.APIKey = v
	}
	if v := os.Getenv("GOVEEREMOTE_GOVEE_API_KEY"); v != "" {
		cfg.Govee.APIKey = v
	}
	if v := os.Getenv("GOVEEREMOTE_GOVEE_BASE_URL"); v != "" {
		cfg.Govee.BaseURL = v
	}

	// Database
	if v := os.Getenv("GOVEEREMOTE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("GOVEEREMOTE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GOVEEREMOTE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("GOVEEREMOTE_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}

	// MQTT
	if v := os.Getenv("GOVEEREMOTE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GOVEEREMOTE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GOVEEREMOTE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Telemetry
	if v := os.Getenv("GOVEEREMOTE_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Govee.APIKey == "" {
		errs = append(errs, "govee.api_key is required (set GOVEE_API_KEY environment variable)")
	}
	if c.Govee.RequestTimeout < 1 {
		errs = append(errs, "govee.request_timeout must be at least 1 second")
	}

	if c.Gateway.WindowLimit < 1 {
		errs = append(errs, "gateway.window_limit must be at least 1")
	}
	if c.Gateway.WindowSeconds < 1 {
		errs = append(errs, "gateway.window_seconds must be at least 1")
	}
	if c.Gateway.Retry.MaxAttempts < 1 {
		errs = append(errs, "gateway.retry.max_attempts must be at least 1")
	}
	if c.Gateway.Retry.Multiplier < 1 {
		errs = append(errs, "gateway.retry.multiplier must be at least 1")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	for _, t := range c.Pages.ButtonPriority {
		if err := device.ValidateDeviceType(device.DeviceType(t)); err != nil {
			errs = append(errs, fmt.Sprintf("pages.button_priority: unknown device type %q", t))
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Token == "" {
			errs = append(errs, "telemetry.token is required when telemetry is enabled (set GOVEEREMOTE_TELEMETRY_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GatewayGlobalInterval returns the global spacing as a Duration.
func (c *Config) GatewayGlobalInterval() time.Duration {
	return time.Duration(c.Gateway.GlobalMinIntervalMs) * time.Millisecond
}

// GatewayDeviceInterval returns the per-device spacing as a Duration.
func (c *Config) GatewayDeviceInterval() time.Duration {
	return time.Duration(c.Gateway.DeviceMinIntervalMs) * time.Millisecond
}

// GatewayWindow returns the rolling window length as a Duration.
func (c *Config) GatewayWindow() time.Duration {
	return time.Duration(c.Gateway.WindowSeconds) * time.Second
}

// PageButtonPriority returns the configured button priority as device
// types, or nil when the config leaves it empty.
func (c *Config) PageButtonPriority() []device.DeviceType {
	if len(c.Pages.ButtonPriority) == 0 {
		return nil
	}
	types := make([]device.DeviceType, 0, len(c.Pages.ButtonPriority))
	for _, t := range c.Pages.ButtonPriority {
		types = append(types, device.DeviceType(t))
	}
	return types
}
