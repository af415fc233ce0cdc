package output

import "testing"

func TestBuildSubjects(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string, string) string
		prefix string
		id     string
		want   string
	}{
		{"events", BuildEventSubject, "rig", "shack-01", "rig.events.shack-01"},
		{"health", BuildHealthSubject, "rig", "shack-01", "rig.health.shack-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.prefix, tt.id); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNilPublishersAreSafe(t *testing.T) {
	// The bridge calls these without checking whether the NATS leg is
	// configured; nil must be a no-op, not a panic.
	var events *EventPublisher
	events.Publish(EventRigPowerOn, "", nil)

	var health *HealthPublisher
	health.Start()
	health.Stop()
}

func TestNewEventPublisherDisabled(t *testing.T) {
	if p := NewEventPublisher(nil); p != nil {
		t.Error("NewEventPublisher(nil) should return nil")
	}
	if p := NewEventPublisher(&EventPublisherConfig{}); p != nil {
		t.Error("NewEventPublisher without a connection should return nil")
	}
}

func TestNewHealthPublisherDisabled(t *testing.T) {
	if p := NewHealthPublisher(nil); p != nil {
		t.Error("NewHealthPublisher(nil) should return nil")
	}
	if p := NewHealthPublisher(&HealthPublisherConfig{}); p != nil {
		t.Error("NewHealthPublisher without a connection should return nil")
	}
}
