package output

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// HealthPublisher publishes periodic health heartbeats to NATS so a
// fleet of bridges can be monitored without polling each one's HTTP
// endpoint.
type HealthPublisher struct {
	conn       *NATSConnection
	subject    string
	instanceID string
	startTime  time.Time
	interval   time.Duration
	logger     *slog.Logger

	statsFunc func() HealthStats // Callback to get current stats

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// HealthStats contains the data needed for health messages, provided
// by the bridge via callback.
type HealthStats struct {
	RigOn        bool   `json:"rig_on"`
	Connected    bool   `json:"connected"`
	ClientAddr   string `json:"client_addr,omitempty"`
	ValidUart    uint64 `json:"valid_uart"`
	ValidNet     uint64 `json:"valid_net"`
	InvalidUart  uint64 `json:"invalid_uart"`
	InvalidNet   uint64 `json:"invalid_net"`
	WriteErrUart uint64 `json:"write_err_uart"`
	WriteErrNet  uint64 `json:"write_err_net"`
}

// HealthMessage is the JSON payload published to NATS
type HealthMessage struct {
	Version       int         `json:"v"`
	Timestamp     string      `json:"ts"`
	InstanceID    string      `json:"instance_id"`
	UptimeSec     int64       `json:"uptime_sec"`
	NATSConnected bool        `json:"nats_connected"`
	Bridge        HealthStats `json:"bridge"`
}

// HealthPublisherConfig contains configuration for HealthPublisher
type HealthPublisherConfig struct {
	Conn       *NATSConnection
	Subject    string        // e.g., "rig.health.shack-01"
	InstanceID string        // e.g., "shack-01"
	Interval   time.Duration // How often to publish (default 60s)
	Logger     *slog.Logger
	StatsFunc  func() HealthStats // Callback to get current stats
}

// NewHealthPublisher creates a new HealthPublisher.
// Returns nil if conn is nil (disabled mode).
func NewHealthPublisher(cfg *HealthPublisherConfig) *HealthPublisher {
	if cfg == nil || cfg.Conn == nil {
		return nil
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 60 * time.Second
	}

	return &HealthPublisher{
		conn:       cfg.Conn,
		subject:    cfg.Subject,
		instanceID: cfg.InstanceID,
		startTime:  time.Now(),
		interval:   interval,
		logger:     cfg.Logger,
		statsFunc:  cfg.StatsFunc,
		stopCh:     make(chan struct{}),
	}
}

// Start begins publishing health heartbeats
func (h *HealthPublisher) Start() {
	if h == nil {
		return
	}

	h.wg.Add(1)
	go h.publishLoop()
	h.logger.Info("Health publisher started",
		"subject", h.subject,
		"interval", h.interval)
}

// Stop stops the health publisher
func (h *HealthPublisher) Stop() {
	if h == nil {
		return
	}

	close(h.stopCh)
	h.wg.Wait()
	h.logger.Info("Health publisher stopped")
}

func (h *HealthPublisher) publishLoop() {
	defer h.wg.Done()

	// Publish immediately on start
	h.publish()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			// Publish final message before stopping
			h.publish()
			return
		case <-ticker.C:
			h.publish()
		}
	}
}

func (h *HealthPublisher) publish() {
	if !h.conn.IsConnected() {
		h.logger.Debug("Skipping health publish - NATS not connected")
		return
	}

	msg := HealthMessage{
		Version:       1,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		InstanceID:    h.instanceID,
		UptimeSec:     int64(time.Since(h.startTime).Seconds()),
		NATSConnected: true,
		Bridge:        h.statsFunc(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal health message", "error", err)
		return
	}

	if err := h.conn.Publish(h.subject, data); err != nil {
		h.logger.Warn("Failed to publish health message", "error", err)
		return
	}

	h.logger.Debug("Published health heartbeat",
		"subject", h.subject,
		"uptime_sec", msg.UptimeSec)
}

// BuildHealthSubject constructs the health subject from the configured
// prefix and instance ID. Format: {prefix}.health.{instance}
func BuildHealthSubject(subjectPrefix, instanceID string) string {
	return subjectPrefix + ".health." + instanceID
}
