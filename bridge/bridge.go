// Package bridge relays the rig's serial control-head protocol to a
// single remote client and emulates the front-panel power button on a
// GPIO line.
//
// All bridge state is owned by the one goroutine running the event
// loop in Run. The I/O goroutines (UART reader, accept loop, client
// reader) only perform blocking reads and deliver their results over
// channels; they never touch bridge state.
package bridge

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"rigbridge/config"
	"rigbridge/gpio"
	"rigbridge/output"
	"rigbridge/protocol"
	"rigbridge/serial"
)

// readBufferSize is the size of the per-handle read buffers. The
// control head protocol never produces frames anywhere near this big.
const readBufferSize = 512

// netChunk carries bytes read from a client socket. The conn field
// lets the loop discard chunks from a socket that no longer occupies
// the client slot.
type netChunk struct {
	conn net.Conn
	data []byte
}

// Bridge is the event-driven relay between the UART and the network.
type Bridge struct {
	cfg    *config.Config
	log    *slog.Logger
	uart   serial.Port
	pwk    gpio.Output
	ln     net.Listener
	events *output.EventPublisher // may be nil

	// Per-direction transfer state (counters, frame reassembly).
	uartChan *protocol.Channel
	netChan  *protocol.Channel

	// Client slot. At most one client at a time; clientAddr is the
	// peer IP used to recognize a same-origin reconnect.
	client     net.Conn
	clientAddr string

	// Rig power state machine.
	rigOn         bool
	lastKeepalive time.Time

	// PWK pulse state.
	pulsePending bool
	pulseAt      time.Time

	// Messages from the I/O goroutines into the loop.
	uartRx  chan []byte
	accepts chan net.Conn
	netRx   chan netChunk
	netEOFs chan net.Conn

	startTime time.Time

	// Published copy of the bridge state for the monitoring server
	// and health publisher. Everything else in this struct is touched
	// only by the loop goroutine.
	statusMu sync.RWMutex
	status   Status
}

// New creates a Bridge over an already-opened UART, PWK line and
// listener. The events publisher may be nil.
func New(cfg *config.Config, uart serial.Port, pwk gpio.Output, ln net.Listener, events *output.EventPublisher, logger *slog.Logger) *Bridge {
	return &Bridge{
		cfg:       cfg,
		log:       logger,
		uart:      uart,
		pwk:       pwk,
		ln:        ln,
		events:    events,
		uartChan:  protocol.NewChannel("uart"),
		netChan:   protocol.NewChannel("net"),
		uartRx:    make(chan []byte, 8),
		accepts:   make(chan net.Conn, 1),
		netRx:     make(chan netChunk, 8),
		netEOFs:   make(chan net.Conn, 1),
		startTime: time.Now(),
	}
}

// Run executes the event loop until ctx is cancelled, then closes
// every handle the bridge owns and reports the final counters. The
// returned error is always nil; runtime I/O failures are absorbed and
// counted per direction.
func (b *Bridge) Run(ctx context.Context) error {
	b.log.Info("Bridge running",
		"uart", b.uart.Device(),
		"listen", b.ln.Addr().String())
	b.events.Publish(output.EventServiceStart, "", nil)
	b.publishStatus()

	go b.readUART(ctx)
	go b.acceptLoop(ctx)

	// The ticker bounds how late the keepalive and pulse deadlines
	// can be serviced when no I/O arrives.
	ticker := time.NewTicker(b.cfg.Power.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return nil

		case now := <-ticker.C:
			b.serviceTimers(now)

		case data := <-b.uartRx:
			b.serviceTimers(time.Now())
			b.handleUARTData(data)

		case m := <-b.netRx:
			b.serviceTimers(time.Now())
			b.handleClientData(m)

		case conn := <-b.netEOFs:
			b.handleClientEOF(conn)

		case conn := <-b.accepts:
			b.handleAccept(ctx, conn)
		}
	}
}

// handleUARTData forwards rig bytes to the client and dispatches the
// frames that completed with them.
func (b *Bridge) handleUARTData(data []byte) {
	for _, pkt := range b.uartChan.Transfer(data, b.clientWriter()) {
		b.handleUARTPacket(pkt)
	}
	b.publishStatus()
}

// handleUARTPacket drives the rig power state machine. Only frames
// observed on the UART side may transition it.
func (b *Bridge) handleUARTPacket(pkt protocol.Packet) {
	switch pkt.Class {
	case protocol.ClassInit2:
		b.rigBootComplete(time.Now())
	case protocol.ClassEndOfSession:
		b.rigSessionEnded()
	case protocol.ClassPowerToggle, protocol.ClassDisplayUpdate,
		protocol.ClassKeepalive, protocol.ClassOther:
		// Forwarded transparently, no state effect.
	}
}

// handleClientData forwards client bytes to the rig and dispatches the
// frames that completed with them. Chunks from a socket that has been
// replaced or torn down are dropped.
func (b *Bridge) handleClientData(m netChunk) {
	if m.conn != b.client {
		return
	}
	for _, pkt := range b.netChan.Transfer(m.data, b.uart) {
		b.handleClientPacket(pkt)
	}
	b.publishStatus()
}

// handleClientPacket reacts to frames from the network side. The only
// one with a side effect is the power on/off request; the rig state
// itself never changes from here.
func (b *Bridge) handleClientPacket(pkt protocol.Packet) {
	switch pkt.Class {
	case protocol.ClassPowerToggle:
		b.requestPowerToggle(pkt.PowerOn)
	case protocol.ClassInit2, protocol.ClassEndOfSession,
		protocol.ClassDisplayUpdate, protocol.ClassKeepalive,
		protocol.ClassOther:
		// Forwarded transparently, no state effect.
	}
}

// clientWriter returns the destination for UART bytes: the client
// socket with a bounded write deadline, or nil when no client is
// connected so a slow or absent peer cannot stall the loop.
func (b *Bridge) clientWriter() io.Writer {
	if b.client == nil {
		return nil
	}
	b.client.SetWriteDeadline(time.Now().Add(b.cfg.Power.WriteTimeout()))
	return b.client
}

// readUART delivers UART bytes to the loop. Read timeouts surface as
// (0, nil) and just spin the loop; real errors are logged and retried.
func (b *Bridge) readUART(ctx context.Context) {
	buf := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := b.uart.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case b.uartRx <- data:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Warn("UART read error", "error", err)
			select {
			case <-time.After(b.cfg.Power.PollInterval()):
			case <-ctx.Done():
				return
			}
		}
	}
}

// acceptLoop delivers new connections to the loop.
func (b *Bridge) acceptLoop(ctx context.Context) {
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				b.log.Warn("Accept error", "error", err)
			}
			return
		}
		select {
		case b.accepts <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// readClient delivers client bytes to the loop until the socket
// reports an error or end of stream.
func (b *Bridge) readClient(ctx context.Context, conn net.Conn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case b.netRx <- netChunk{conn: conn, data: data}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			select {
			case b.netEOFs <- conn:
			case <-ctx.Done():
			}
			return
		}
	}
}

// shutdown runs the orderly cleanup: release the PWK line, close every
// handle and report the final per-direction counters.
func (b *Bridge) shutdown() {
	b.log.Info("Shutting down bridge")
	b.events.Publish(output.EventServiceStop, "", nil)

	if b.pulsePending {
		b.pwk.Set(0)
		b.pulsePending = false
	}

	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
	b.ln.Close()
	b.uart.Close()
	b.pwk.Close()

	us := b.uartChan.Stats()
	ns := b.netChan.Stats()
	b.log.Info("Final transfer counters",
		"uart_valid", us.ValidPackets,
		"net_valid", ns.ValidPackets,
		"uart_invalid", us.InvalidPackets,
		"net_invalid", ns.InvalidPackets,
		"uart_write_errors", us.WriteErrors,
		"net_write_errors", ns.WriteErrors)
}
