package output

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Event types - these are the discrete events we publish
const (
	EventServiceStart     = "service_start"
	EventServiceStop      = "service_stop"
	EventClientConnect    = "client_connect"
	EventClientReconnect  = "client_reconnect"
	EventClientRefused    = "client_refused"
	EventClientDisconnect = "client_disconnect"
	EventRigPowerOn       = "rig_power_on"
	EventRigPowerOff      = "rig_power_off"
	EventPowerToggle      = "power_toggle"
)

// Event is the base structure for all events published to NATS.
// Keep it simple and flat for easy querying.
type Event struct {
	Timestamp  time.Time      `json:"ts"`
	Type       string         `json:"type"`
	InstanceID string         `json:"instance"`
	Peer       string         `json:"peer,omitempty"`    // Client IP, when relevant
	Details    map[string]any `json:"details,omitempty"` // Optional extra data
}

// EventPublisher publishes discrete bridge events to NATS. It is
// optional: a nil *EventPublisher silently drops everything, so the
// bridge never has to check whether the NATS leg is configured.
type EventPublisher struct {
	conn       *NATSConnection
	subject    string
	instanceID string
	logger     *slog.Logger
}

// EventPublisherConfig contains configuration for EventPublisher
type EventPublisherConfig struct {
	Conn       *NATSConnection
	Subject    string // e.g., "rig.events.shack-01"
	InstanceID string
	Logger     *slog.Logger
}

// NewEventPublisher creates a new EventPublisher.
// Returns nil if conn is nil (disabled mode).
func NewEventPublisher(cfg *EventPublisherConfig) *EventPublisher {
	if cfg == nil || cfg.Conn == nil {
		return nil
	}

	return &EventPublisher{
		conn:       cfg.Conn,
		subject:    cfg.Subject,
		instanceID: cfg.InstanceID,
		logger:     cfg.Logger,
	}
}

// Publish sends one event. Failures are logged, never surfaced; event
// publishing must not affect the bridge.
func (p *EventPublisher) Publish(eventType, peer string, details map[string]any) {
	if p == nil {
		return
	}

	event := Event{
		Timestamp:  time.Now().UTC(),
		Type:       eventType,
		InstanceID: p.instanceID,
		Peer:       peer,
		Details:    details,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", "type", eventType, "error", err)
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Warn("Failed to publish event", "type", eventType, "error", err)
		return
	}

	p.logger.Debug("Published event", "type", eventType, "subject", p.subject)
}

// BuildEventSubject constructs the event subject from the configured
// prefix and instance ID. Format: {prefix}.events.{instance}
func BuildEventSubject(subjectPrefix, instanceID string) string {
	return subjectPrefix + ".events." + instanceID
}
