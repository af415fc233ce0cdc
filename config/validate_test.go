package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return Default()
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: "app config",
		},
		{
			name:    "empty instance id",
			mutate:  func(c *Config) { c.App.InstanceID = "" },
			wantErr: "app config",
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Network.Port = 0 },
			wantErr: "network config",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Network.Port = 70000 },
			wantErr: "network config",
		},
		{
			name:    "empty device",
			mutate:  func(c *Config) { c.Uart.Device = "" },
			wantErr: "uart config",
		},
		{
			name:    "device not under /dev",
			mutate:  func(c *Config) { c.Uart.Device = "ttyO1" },
			wantErr: "uart config",
		},
		{
			name:    "bogus baud rate",
			mutate:  func(c *Config) { c.Uart.BaudRate = 12345 },
			wantErr: "uart config",
		},
		{
			name:    "empty gpio chip",
			mutate:  func(c *Config) { c.Power.GPIOChip = "" },
			wantErr: "power config",
		},
		{
			name:    "negative gpio line",
			mutate:  func(c *Config) { c.Power.GPIOLine = -1 },
			wantErr: "power config",
		},
		{
			name:    "zero keepalive",
			mutate:  func(c *Config) { c.Power.KeepaliveMS = -1 },
			wantErr: "power config",
		},
		{
			name:    "zero pulse width",
			mutate:  func(c *Config) { c.Power.PulseWidthMS = -1 },
			wantErr: "power config",
		},
		{
			name: "poll slower than keepalive",
			mutate: func(c *Config) {
				c.Power.PollIntervalMS = 200
				c.Power.KeepaliveMS = 150
			},
			wantErr: "power config",
		},
		{
			name:    "bad nats scheme",
			mutate:  func(c *Config) { c.NATS.URL = "http://localhost:4222" },
			wantErr: "nats config",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging config",
		},
		{
			name:    "negative monitoring port",
			mutate:  func(c *Config) { c.Monitoring.Port = -1 },
			wantErr: "monitoring config",
		},
		{
			name: "monitoring port collides with network port",
			mutate: func(c *Config) {
				c.Monitoring.Port = 42000
				c.Network.Port = 42000
			},
			wantErr: "monitoring config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should have failed")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:   "nats disabled",
			mutate: func(c *Config) { c.NATS.URL = "" },
		},
		{
			name:   "nats enabled",
			mutate: func(c *Config) { c.NATS.URL = "nats://localhost:4222" },
		},
		{
			name:   "tls nats",
			mutate: func(c *Config) { c.NATS.URL = "tls://nats.example.com:4222" },
		},
		{
			name:   "monitoring enabled",
			mutate: func(c *Config) { c.Monitoring.Port = 8080 },
		},
		{
			name:   "gpio line zero",
			mutate: func(c *Config) { c.Power.GPIOLine = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
