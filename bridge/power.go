package bridge

import (
	"time"

	"rigbridge/output"
	"rigbridge/protocol"
)

// serviceTimers runs the two deadline checks: the periodic keepalive
// toward the rig and the release of a pending PWK pulse. It is called
// on every tick and before every I/O dispatch, so neither deadline can
// slip by more than one poll interval.
func (b *Bridge) serviceTimers(now time.Time) {
	if b.rigOn && now.Sub(b.lastKeepalive) > b.cfg.Power.KeepaliveInterval() {
		b.sendKeepalive(now)
	}

	if b.pulsePending && now.Sub(b.pulseAt) > b.cfg.Power.PulseWidth() {
		if err := b.pwk.Set(0); err != nil {
			b.log.Warn("Failed to release PWK line", "error", err)
		}
		b.pulsePending = false
		b.log.Debug("PWK released")
		b.publishStatus()
	}
}

// rigBootComplete handles an Init2 frame from the UART: the rig is up,
// so the keepalive stream starts immediately.
func (b *Bridge) rigBootComplete(now time.Time) {
	if !b.rigOn {
		b.log.Info("Rig is on")
		b.events.Publish(output.EventRigPowerOn, "", nil)
	}
	b.rigOn = true
	b.sendKeepalive(now)
}

// rigSessionEnded handles an end-of-session frame from the UART: the
// rig is powering down and keepalives stop.
func (b *Bridge) rigSessionEnded() {
	if b.rigOn {
		b.log.Info("Rig is off")
		b.events.Publish(output.EventRigPowerOff, "", nil)
	}
	b.rigOn = false
}

// requestPowerToggle handles a power on/off request from the client.
// The PWK line is only pulsed when the requested state differs from
// the current one, and never while a pulse is already in flight; the
// loop releases the line one pulse width after assertion.
func (b *Bridge) requestPowerToggle(requestedOn bool) {
	b.log.Info("Power request",
		"requested_on", requestedOn,
		"rig_on", b.rigOn)
	b.events.Publish(output.EventPowerToggle, "", map[string]any{
		"requested_on": requestedOn,
		"rig_on":       b.rigOn,
	})

	if requestedOn == b.rigOn {
		return
	}
	if b.pulsePending {
		// At most one pulse in flight; extra requests are dropped.
		return
	}

	if err := b.pwk.Set(1); err != nil {
		b.log.Error("Failed to assert PWK line", "error", err)
		return
	}
	b.pulsePending = true
	b.pulseAt = time.Now()
	b.log.Debug("PWK asserted")
	b.publishStatus()
}

// sendKeepalive writes one keepalive frame to the UART. Write failures
// land in the UART direction's error counter and the timer is reset
// either way so a wedged UART does not turn into a tight loop.
func (b *Bridge) sendKeepalive(now time.Time) {
	if _, err := b.uart.Write(protocol.KeepaliveFrame()); err != nil {
		b.uartChan.CountWriteError()
		b.log.Warn("Keepalive write failed", "error", err)
	}
	b.lastKeepalive = now
}
