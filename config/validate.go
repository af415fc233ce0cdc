package config

import (
	"fmt"
	"strings"
)

var (
	// Valid baud rates
	validBaudRates = map[int]bool{
		300:    true,
		1200:   true,
		2400:   true,
		4800:   true,
		9600:   true,
		19200:  true,
		38400:  true,
		57600:  true,
		115200: true,
	}

	// Valid log levels
	validLogLevels = map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
)

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.validateApp(); err != nil {
		return fmt.Errorf("app config: %w", err)
	}

	if err := c.validateNetwork(); err != nil {
		return fmt.Errorf("network config: %w", err)
	}

	if err := c.validateUart(); err != nil {
		return fmt.Errorf("uart config: %w", err)
	}

	if err := c.validatePower(); err != nil {
		return fmt.Errorf("power config: %w", err)
	}

	if err := c.validateNATS(); err != nil {
		return fmt.Errorf("nats config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.validateMonitoring(); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}

	return nil
}

func (c *Config) validateApp() error {
	if c.App.Name == "" {
		return fmt.Errorf("name is required")
	}

	if c.App.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}

	return nil
}

func (c *Config) validateNetwork() error {
	if c.Network.Port < 1 || c.Network.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got: %d", c.Network.Port)
	}

	return nil
}

func (c *Config) validateUart() error {
	if c.Uart.Device == "" {
		return fmt.Errorf("device is required")
	}

	if !strings.HasPrefix(c.Uart.Device, "/dev/") {
		return fmt.Errorf("device must be a /dev path, got: %s", c.Uart.Device)
	}

	if !validBaudRates[c.Uart.BaudRate] {
		return fmt.Errorf("invalid baud rate: %d", c.Uart.BaudRate)
	}

	return nil
}

func (c *Config) validatePower() error {
	if c.Power.GPIOChip == "" {
		return fmt.Errorf("gpio_chip is required")
	}

	if c.Power.GPIOLine < 0 {
		return fmt.Errorf("gpio_line must be non-negative, got: %d", c.Power.GPIOLine)
	}

	if c.Power.KeepaliveMS <= 0 {
		return fmt.Errorf("keepalive_ms must be positive, got: %d", c.Power.KeepaliveMS)
	}

	if c.Power.PulseWidthMS <= 0 {
		return fmt.Errorf("pulse_width_ms must be positive, got: %d", c.Power.PulseWidthMS)
	}

	if c.Power.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got: %d", c.Power.PollIntervalMS)
	}

	// Timers are serviced at most one poll interval late; a poll
	// period longer than the keepalive period cannot honor it.
	if c.Power.PollIntervalMS > c.Power.KeepaliveMS {
		return fmt.Errorf("poll_interval_ms (%d) must not exceed keepalive_ms (%d)",
			c.Power.PollIntervalMS, c.Power.KeepaliveMS)
	}

	if c.Power.WriteTimeoutMS <= 0 {
		return fmt.Errorf("write_timeout_ms must be positive, got: %d", c.Power.WriteTimeoutMS)
	}

	return nil
}

func (c *Config) validateNATS() error {
	if c.NATS.URL == "" {
		return nil // NATS leg disabled
	}

	if !strings.HasPrefix(c.NATS.URL, "nats://") && !strings.HasPrefix(c.NATS.URL, "tls://") {
		return fmt.Errorf("url must start with nats:// or tls://, got: %s", c.NATS.URL)
	}

	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("subject_prefix is required")
	}

	if c.NATS.HealthIntervalSec <= 0 {
		return fmt.Errorf("health_interval_sec must be positive, got: %d", c.NATS.HealthIntervalSec)
	}

	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be positive, got: %d", c.Logging.MaxSizeMB)
	}

	if c.Logging.MaxBackups < 0 {
		return fmt.Errorf("max_backups must be non-negative, got: %d", c.Logging.MaxBackups)
	}

	return nil
}

func (c *Config) validateMonitoring() error {
	if c.Monitoring.Port < 0 || c.Monitoring.Port > 65535 {
		return fmt.Errorf("port must be 0-65535, got: %d", c.Monitoring.Port)
	}

	if c.Monitoring.Port != 0 && c.Monitoring.Port == c.Network.Port {
		return fmt.Errorf("monitoring port %d collides with network port", c.Monitoring.Port)
	}

	return nil
}
