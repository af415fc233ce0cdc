package protocol

import "io"

// BufferSize is the capacity of a channel's reassembly buffer. No
// legal frame comes close to this; filling it without completing a
// frame means the stream is garbage and the buffer is reset.
const BufferSize = 1024

// ChannelStats tracks per-direction transfer counters.
type ChannelStats struct {
	ValidPackets   uint64
	InvalidPackets uint64
	WriteErrors    uint64
}

// Channel holds the transfer state for one direction of the bridge
// (UART to network, or network to UART). It reassembles frames across
// read boundaries and keeps the direction's counters. A Channel is
// owned by a single goroutine and is not safe for concurrent use.
type Channel struct {
	name  string
	buf   [BufferSize]byte
	w     int
	stats ChannelStats
}

// NewChannel creates a channel for one transfer direction. The name
// ("uart", "net") only appears in logs and stats.
func NewChannel(name string) *Channel {
	return &Channel{name: name}
}

// Name returns the direction name the channel was created with.
func (c *Channel) Name() string {
	return c.name
}

// Stats returns a copy of the channel's counters.
func (c *Channel) Stats() ChannelStats {
	return c.stats
}

// CountWriteError records a write failure performed outside Transfer,
// such as a failed keepalive send.
func (c *Channel) CountWriteError() {
	c.stats.WriteErrors++
}

// Transfer forwards chunk to dst unmodified and classifies any frames
// that complete with it. Forwarding is transparent: every byte read
// from the source is written to dst whether or not it belongs to a
// well-formed frame. A nil dst (no client connected) skips forwarding
// without affecting classification. A short or failed write counts one
// write error and decoding continues.
func (c *Channel) Transfer(chunk []byte, dst io.Writer) []Packet {
	if len(chunk) == 0 {
		return nil
	}

	if dst != nil {
		if _, err := dst.Write(chunk); err != nil {
			c.stats.WriteErrors++
		}
	}

	// Append to the reassembly buffer, resetting if the stream has
	// produced more unframed data than any frame could need.
	if c.w+len(chunk) > BufferSize {
		c.stats.InvalidPackets++
		c.w = 0
		if len(chunk) > BufferSize {
			chunk = chunk[len(chunk)-BufferSize:]
		}
	}
	copy(c.buf[c.w:], chunk)
	c.w += len(chunk)

	return c.extract()
}

// extract pulls every complete frame out of the buffer, resyncing past
// malformed framing.
func (c *Channel) extract() []Packet {
	var pkts []Packet

	for {
		// Drop leading garbage up to the next sync byte.
		start := 0
		for start < c.w && c.buf[start] != SyncByte {
			start++
		}
		if start > 0 {
			c.stats.InvalidPackets++
			c.compact(start)
		}

		if c.w < frameOverhead {
			return pkts
		}

		typ := c.buf[1]
		plen := int(c.buf[2])
		total := plen + frameOverhead
		if c.w < total {
			return pkts
		}

		payload := c.buf[3 : 3+plen]
		sum := typ ^ byte(plen)
		for _, b := range payload {
			sum ^= b
		}

		if sum != c.buf[3+plen] {
			// Bad checksum. Skip the sync byte and rescan; the real
			// frame boundary may be inside what we just rejected.
			c.stats.InvalidPackets++
			c.compact(1)
			continue
		}

		c.stats.ValidPackets++
		pkts = append(pkts, classify(typ, payload))
		c.compact(total)
	}
}

// compact discards the first n buffered bytes.
func (c *Channel) compact(n int) {
	copy(c.buf[:], c.buf[n:c.w])
	c.w -= n
}
