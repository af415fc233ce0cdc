package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the root configuration structure
type Config struct {
	App        AppConfig        `json:"app"`
	Network    NetworkConfig    `json:"network"`
	Uart       UartConfig       `json:"uart"`
	Power      PowerConfig      `json:"power"`
	NATS       NATSConfig       `json:"nats"`
	Logging    LoggingConfig    `json:"logging"`
	Monitoring MonitoringConfig `json:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name       string `json:"name"`
	InstanceID string `json:"instance_id"`
}

// NetworkConfig contains the client-facing TCP listener settings
type NetworkConfig struct {
	Port int `json:"port"` // Listener port, bound on all interfaces
}

// UartConfig contains the serial link to the rig
type UartConfig struct {
	Device   string `json:"device"`    // e.g., "/dev/ttyO1"
	BaudRate int    `json:"baud_rate"` // Control head runs at 19200
}

// PowerConfig contains the PWK line and the bridge timing parameters
type PowerConfig struct {
	GPIOChip       string `json:"gpio_chip"`        // e.g., "gpiochip0"
	GPIOLine       int    `json:"gpio_line"`        // Line offset of the PWK output
	KeepaliveMS    int    `json:"keepalive_ms"`     // Keepalive period while the rig is on
	PulseWidthMS   int    `json:"pulse_width_ms"`   // How long PWK stays asserted
	PollIntervalMS int    `json:"poll_interval_ms"` // Upper bound on timer servicing latency
	WriteTimeoutMS int    `json:"write_timeout_ms"` // Bound on client socket writes
}

// NATSConfig contains optional NATS settings for event publishing.
// An empty URL disables the NATS leg entirely.
type NATSConfig struct {
	URL               string `json:"url"`
	SubjectPrefix     string `json:"subject_prefix"`      // Prefix for subjects (e.g., "rig")
	MaxReconnects     int    `json:"max_reconnects"`      // Max reconnection attempts
	HealthIntervalSec int    `json:"health_interval_sec"` // Heartbeat period
}

// LoggingConfig contains logging and log rotation settings
type LoggingConfig struct {
	BasePath   string `json:"base_path"`   // Base directory for log files; empty = stdout
	MaxSizeMB  int    `json:"max_size_mb"` // Max size before rotation
	MaxBackups int    `json:"max_backups"` // Max number of old log files
	Compress   bool   `json:"compress"`    // Compress rotated logs
	Level      string `json:"level"`       // Log level: debug, info, warn, error
}

// MonitoringConfig contains HTTP monitoring server settings
type MonitoringConfig struct {
	Port int `json:"port"` // HTTP port for status endpoints; 0 = disabled
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default filled in, for
// running without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills in default values for optional fields
func (c *Config) SetDefaults() {
	// App defaults
	if c.App.Name == "" {
		c.App.Name = "RigBridge"
	}
	if c.App.InstanceID == "" {
		c.App.InstanceID = "default"
	}

	// Network defaults
	if c.Network.Port == 0 {
		c.Network.Port = 42000
	}

	// Uart defaults
	if c.Uart.Device == "" {
		c.Uart.Device = "/dev/ttyO1"
	}
	if c.Uart.BaudRate == 0 {
		c.Uart.BaudRate = 19200
	}

	// Power defaults
	if c.Power.GPIOChip == "" {
		c.Power.GPIOChip = "gpiochip0"
	}
	if c.Power.GPIOLine == 0 {
		c.Power.GPIOLine = 20
	}
	if c.Power.KeepaliveMS == 0 {
		c.Power.KeepaliveMS = 150
	}
	if c.Power.PulseWidthMS == 0 {
		c.Power.PulseWidthMS = 500
	}
	if c.Power.PollIntervalMS == 0 {
		c.Power.PollIntervalMS = 50
	}
	if c.Power.WriteTimeoutMS == 0 {
		c.Power.WriteTimeoutMS = 1000
	}

	// NATS defaults; URL stays empty unless configured
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "rig"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.HealthIntervalSec == 0 {
		c.NATS.HealthIntervalSec = 60
	}

	// Logging defaults; BasePath stays empty (stdout) unless configured
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Helper methods for time conversions
func (p *PowerConfig) KeepaliveInterval() time.Duration {
	return time.Duration(p.KeepaliveMS) * time.Millisecond
}

func (p *PowerConfig) PulseWidth() time.Duration {
	return time.Duration(p.PulseWidthMS) * time.Millisecond
}

func (p *PowerConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMS) * time.Millisecond
}

func (p *PowerConfig) WriteTimeout() time.Duration {
	return time.Duration(p.WriteTimeoutMS) * time.Millisecond
}

func (n *NATSConfig) HealthInterval() time.Duration {
	return time.Duration(n.HealthIntervalSec) * time.Second
}
