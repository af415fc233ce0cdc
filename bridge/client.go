package bridge

import (
	"context"
	"net"

	"rigbridge/output"
)

// handleAccept is the only entry point into the client slot. A new
// connection either takes an empty slot, replaces the slot's socket
// when it comes from the same peer IP (a reconnect after the client
// disappeared without a proper disconnect), or is refused.
func (b *Bridge) handleAccept(ctx context.Context, conn net.Conn) {
	peer := peerHost(conn)
	b.log.Info("New connection", "peer", peer)

	switch {
	case b.client == nil:
		b.log.Info("Connection accepted", "peer", peer)
		b.adopt(ctx, conn, peer)
		b.events.Publish(output.EventClientConnect, peer, nil)

	case peer == b.clientAddr:
		// Same client reconnecting; the serial session is untouched.
		b.log.Info("Client already connected, reconnecting", "peer", peer)
		b.client.Close()
		b.adopt(ctx, conn, peer)
		b.events.Publish(output.EventClientReconnect, peer, nil)

	default:
		b.log.Warn("Connection refused", "peer", peer, "client", b.clientAddr)
		conn.Close()
		b.events.Publish(output.EventClientRefused, peer, nil)
	}

	b.publishStatus()
}

// handleClientEOF is the only exit point from the client slot. EOF
// notifications from a socket that was already replaced are ignored.
func (b *Bridge) handleClientEOF(conn net.Conn) {
	if conn != b.client {
		return
	}

	b.log.Info("Connection closed", "peer", b.clientAddr)
	b.client.Close()
	b.client = nil
	b.clientAddr = ""
	b.events.Publish(output.EventClientDisconnect, "", nil)
	b.publishStatus()
}

// adopt installs conn in the client slot and starts its reader.
func (b *Bridge) adopt(ctx context.Context, conn net.Conn, peer string) {
	b.client = conn
	b.clientAddr = peer
	go b.readClient(ctx, conn)
}

// peerHost extracts the peer IP from a connection. Reconnects are
// matched on IP alone: the same client comes back on a fresh ephemeral
// port.
func peerHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
