package bridge

import (
	"context"
	"testing"
)

func TestAcceptIntoEmptySlot(t *testing.T) {
	b, _, _ := newTestBridge()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newFakeConn("192.168.1.10:51000")
	b.handleAccept(ctx, conn)

	if b.client != conn {
		t.Error("new connection did not occupy the empty slot")
	}
	if b.clientAddr != "192.168.1.10" {
		t.Errorf("clientAddr = %q, want %q", b.clientAddr, "192.168.1.10")
	}
}

func TestReconnectFromSameAddressReplacesSocket(t *testing.T) {
	b, _, _ := newTestBridge()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newFakeConn("192.168.1.10:51000")
	b.handleAccept(ctx, first)

	// Rig state must survive the reconnect.
	b.rigOn = true
	b.pulsePending = true

	second := newFakeConn("192.168.1.10:51234")
	b.handleAccept(ctx, second)

	if !first.Closed() {
		t.Error("previous socket was not closed on reconnect")
	}
	if b.client != second {
		t.Error("reconnecting socket did not take over the slot")
	}
	if b.clientAddr != "192.168.1.10" {
		t.Errorf("clientAddr = %q, want %q", b.clientAddr, "192.168.1.10")
	}
	if !b.rigOn || !b.pulsePending {
		t.Error("rig or pulse state changed on reconnect")
	}
}

func TestForeignClientRefused(t *testing.T) {
	b, _, _ := newTestBridge()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	occupant := newFakeConn("192.168.1.10:51000")
	b.handleAccept(ctx, occupant)

	intruder := newFakeConn("10.0.0.99:40000")
	b.handleAccept(ctx, intruder)

	if !intruder.Closed() {
		t.Error("foreign connection was not closed")
	}
	if occupant.Closed() {
		t.Error("existing session was disturbed by the refusal")
	}
	if b.client != occupant || b.clientAddr != "192.168.1.10" {
		t.Error("slot changed while refusing a foreign client")
	}
}

func TestClientEOFClearsSlot(t *testing.T) {
	b, _, _ := newTestBridge()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newFakeConn("192.168.1.10:51000")
	b.handleAccept(ctx, conn)
	b.rigOn = true

	b.handleClientEOF(conn)

	if b.client != nil {
		t.Error("slot still occupied after EOF")
	}
	if b.clientAddr != "" {
		t.Errorf("clientAddr = %q, want empty", b.clientAddr)
	}
	if !conn.Closed() {
		t.Error("socket not closed on EOF")
	}
	if !b.rigOn {
		t.Error("rig state was reset by a client disconnect")
	}
}

func TestStaleEOFIgnored(t *testing.T) {
	b, _, _ := newTestBridge()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newFakeConn("192.168.1.10:51000")
	b.handleAccept(ctx, first)
	second := newFakeConn("192.168.1.10:51234")
	b.handleAccept(ctx, second)

	// The replaced socket's reader eventually reports EOF; that must
	// not tear down the new session.
	b.handleClientEOF(first)

	if b.client != second {
		t.Error("stale EOF cleared the active slot")
	}
	if b.clientAddr != "192.168.1.10" {
		t.Error("stale EOF cleared the recorded address")
	}
}

func TestStaleDataDropped(t *testing.T) {
	b, port, _ := newTestBridge()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newFakeConn("192.168.1.10:51000")
	b.handleAccept(ctx, first)
	second := newFakeConn("192.168.1.10:51234")
	b.handleAccept(ctx, second)

	b.handleClientData(netChunk{conn: first, data: []byte{0x01, 0x02}})

	if got := port.Written(); len(got) != 0 {
		t.Errorf("bytes from a replaced socket were forwarded: %x", got)
	}
}

func TestPeerHost(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.168.1.10:51000", "192.168.1.10"},
		{"[::1]:51000", "::1"},
		{"bogus", "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			conn := newFakeConn(tt.addr)
			if got := peerHost(conn); got != tt.want {
				t.Errorf("peerHost(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}
