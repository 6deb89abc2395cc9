package lifo

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one device and the daemon that serves it.
type Config struct {
	Name             string     `yaml:"name"`
	Capacity         int        `yaml:"capacity"`          // fixed for the lifetime of the device (default: 10)
	Socket           string     `yaml:"socket"`            // unix socket served by lifod
	HTTPAddr         string     `yaml:"http_addr"`         // status endpoint, empty disables it
	LogLevel         string     `yaml:"log_level"`         // debug, info, warn, error
	SubscriberBuffer int        `yaml:"subscriber_buffer"` // event buffer per remote subscriber (default: 16)
	MQTT             MQTTConfig `yaml:"mqtt"`

	// Logger is used by the device. Not loaded from YAML; nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// MQTTConfig enables publishing data-available events to a broker. An empty
// Broker disables it.
type MQTTConfig struct {
	Broker          string `yaml:"broker"` // tcp://host:1883
	Topic           string `yaml:"topic"`
	ClientID        string `yaml:"client_id"`
	ConnectTimeoutS int    `yaml:"connect_timeout_s"` // default: 5
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

func (m MQTTConfig) connectTimeout() time.Duration {
	if m.ConnectTimeoutS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(m.ConnectTimeoutS) * time.Second
}

// DefaultConfig returns the configuration of a stock device.
func DefaultConfig() Config {
	return Config{
		Name:             "lifo",
		Capacity:         DefaultCapacity,
		Socket:           "/tmp/lifo.sock",
		LogLevel:         "info",
		SubscriberBuffer: 16,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and fills in MQTT defaults.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("subscriber_buffer must be positive, got %d", c.SubscriberBuffer)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MQTT.Enabled() {
		if c.MQTT.Topic == "" {
			c.MQTT.Topic = "lifo/" + c.Name + "/events"
		}
		if c.MQTT.ClientID == "" {
			c.MQTT.ClientID = c.Name
		}
	}
	return nil
}

// ParseLogLevel maps a config level name to a slog.Level. The empty string
// means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
