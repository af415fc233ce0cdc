package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rigbridge/bridge"
	"rigbridge/config"
	"rigbridge/gpio"
	"rigbridge/monitoring"
	"rigbridge/output"
	"rigbridge/serial"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	appName    = "RigBridge"
	appVersion = "1.0.0"
)

func main() {
	// Parse command-line flags
	port := flag.Int("p", 0, "Network port number (default is 42000)")
	uartDevice := flag.String("u", "", "UART port (default is /dev/ttyO1)")
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	version := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Handle version flag
	if *version {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	// Load configuration; flags override the file
	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Network.Port = *port
	}
	if *uartDevice != "" {
		cfg.Uart.Device = *uartDevice
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging
	logger := setupLogging(cfg, *debug)
	logger.Info("Starting RigBridge",
		"version", appVersion,
		"instance", cfg.App.InstanceID,
		"port", cfg.Network.Port,
		"uart", cfg.Uart.Device)

	if err := run(cfg, logger); err != nil {
		logger.Error("Fatal error", "error", err)
		os.Exit(1)
	}

	logger.Info("RigBridge stopped")
}

// run acquires every resource, runs the bridge until a shutdown signal
// and tears down in order. Any setup failure releases what was already
// acquired and surfaces as a process failure.
func run(cfg *config.Config, logger *slog.Logger) error {
	// Open and configure the serial interface
	uart, err := serial.Open(cfg.Uart.Device, cfg.Uart.BaudRate)
	if err != nil {
		return fmt.Errorf("opening UART: %w", err)
	}

	// PWK signal to the radio
	pwk, err := gpio.OpenOutput(cfg.Power.GPIOChip, cfg.Power.GPIOLine)
	if err != nil {
		uart.Close()
		return fmt.Errorf("configuring PWK GPIO: %w", err)
	}

	// Client-facing listener, bound on all interfaces
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Network.Port))
	if err != nil {
		pwk.Close()
		uart.Close()
		return fmt.Errorf("listening on port %d: %w", cfg.Network.Port, err)
	}

	// Optional NATS leg for events and health heartbeats
	var natsConn *output.NATSConnection
	var events *output.EventPublisher
	var health *output.HealthPublisher
	if cfg.NATS.URL != "" {
		natsConn, err = output.NewNATSConnection(cfg.NATS.URL, cfg.NATS.MaxReconnects, logger)
		if err != nil {
			ln.Close()
			pwk.Close()
			uart.Close()
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer natsConn.Close()

		events = output.NewEventPublisher(&output.EventPublisherConfig{
			Conn:       natsConn,
			Subject:    output.BuildEventSubject(cfg.NATS.SubjectPrefix, cfg.App.InstanceID),
			InstanceID: cfg.App.InstanceID,
			Logger:     logger,
		})
	}

	b := bridge.New(cfg, uart, pwk, ln, events, logger)

	if natsConn != nil {
		health = output.NewHealthPublisher(&output.HealthPublisherConfig{
			Conn:       natsConn,
			Subject:    output.BuildHealthSubject(cfg.NATS.SubjectPrefix, cfg.App.InstanceID),
			InstanceID: cfg.App.InstanceID,
			Interval:   cfg.NATS.HealthInterval(),
			Logger:     logger,
			StatsFunc: func() output.HealthStats {
				s := b.Snapshot()
				return output.HealthStats{
					RigOn:        s.RigOn,
					Connected:    s.Connected,
					ClientAddr:   s.ClientAddr,
					ValidUart:    s.Uart.ValidPackets,
					ValidNet:     s.Net.ValidPackets,
					InvalidUart:  s.Uart.InvalidPackets,
					InvalidNet:   s.Net.InvalidPackets,
					WriteErrUart: s.Uart.WriteErrors,
					WriteErrNet:  s.Net.WriteErrors,
				}
			},
		})
		health.Start()
		defer health.Stop()
	}

	// Optional HTTP status server
	monServer := monitoring.NewServer(&cfg.Monitoring, b, logger)
	if err := monServer.Start(); err != nil {
		ln.Close()
		pwk.Close()
		uart.Close()
		return fmt.Errorf("starting monitoring server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := monServer.Stop(shutdownCtx); err != nil {
			logger.Warn("Error stopping monitoring server", "error", err)
		}
	}()

	// The bridge owns its handles from here; it closes them on exit.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return b.Run(ctx)
}

// setupLogging configures logging with optional file rotation
func setupLogging(cfg *config.Config, debug bool) *slog.Logger {
	// Determine log level
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler

	// If log base path is configured, write to rotating log file
	if cfg.Logging.BasePath != "" {
		// Create log directory if it doesn't exist
		if err := os.MkdirAll(cfg.Logging.BasePath, 0755); err != nil {
			log.Printf("Warning: failed to create log directory: %v", err)
			handler = slog.NewTextHandler(os.Stderr, opts)
		} else {
			logPath := filepath.Join(cfg.Logging.BasePath, "rigbridge.log")
			writer := &lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				Compress:   cfg.Logging.Compress,
			}
			handler = slog.NewJSONHandler(writer, opts)
		}
	} else {
		// Log to stderr, leaving stdout quiet
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
