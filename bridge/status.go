package bridge

import "time"

// ChannelStatus is the externally visible copy of one direction's
// counters.
type ChannelStatus struct {
	ValidPackets   uint64 `json:"valid_packets"`
	InvalidPackets uint64 `json:"invalid_packets"`
	WriteErrors    uint64 `json:"write_errors"`
}

// Status is a point-in-time snapshot of the bridge for the monitoring
// server and the health publisher.
type Status struct {
	RigOn        bool          `json:"rig_on"`
	Connected    bool          `json:"connected"`
	ClientAddr   string        `json:"client_addr,omitempty"`
	PulsePending bool          `json:"pulse_pending"`
	UptimeSec    int64         `json:"uptime_sec"`
	Uart         ChannelStatus `json:"uart"`
	Net          ChannelStatus `json:"net"`
}

// publishStatus copies the loop-owned state into the shared snapshot.
// Called by the loop goroutine after anything observable changes.
func (b *Bridge) publishStatus() {
	us := b.uartChan.Stats()
	ns := b.netChan.Stats()

	b.statusMu.Lock()
	b.status = Status{
		RigOn:        b.rigOn,
		Connected:    b.client != nil,
		ClientAddr:   b.clientAddr,
		PulsePending: b.pulsePending,
		Uart:         ChannelStatus(us),
		Net:          ChannelStatus(ns),
	}
	b.statusMu.Unlock()
}

// Snapshot returns the last published status. Safe to call from any
// goroutine.
func (b *Bridge) Snapshot() Status {
	b.statusMu.RLock()
	s := b.status
	b.statusMu.RUnlock()
	s.UptimeSec = int64(time.Since(b.startTime).Seconds())
	return s
}
