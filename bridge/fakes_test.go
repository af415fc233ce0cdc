package bridge

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"rigbridge/config"
)

// testConfig returns a config with short timing so tests run fast.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Power.KeepaliveMS = 30
	cfg.Power.PulseWidthMS = 80
	cfg.Power.PollIntervalMS = 10
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePort is an in-memory serial.Port. The test feeds rig bytes
// through the feed side; bytes the bridge writes to the rig accumulate
// in written.
type fakePort struct {
	r    *io.PipeReader
	feed *io.PipeWriter

	mu       sync.Mutex
	written  bytes.Buffer
	writeErr error
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, feed: w}
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	return p.r.Close()
}

func (p *fakePort) Device() string {
	return "/dev/ttyFake"
}

// Written returns a copy of everything the bridge wrote to the rig.
func (p *fakePort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func (p *fakePort) SetWriteErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// fakeGPIO records every value driven onto the PWK line.
type fakeGPIO struct {
	mu     sync.Mutex
	value  int
	sets   []int
	closed bool
}

func (g *fakeGPIO) Set(v int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
	g.sets = append(g.sets, v)
	return nil
}

func (g *fakeGPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *fakeGPIO) Value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func (g *fakeGPIO) Sets() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.sets...)
}

// fakeAddr lets fakeConn report an arbitrary peer address.
type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

// fakeConn is a net.Conn whose Read blocks until the conn is closed.
// Writes accumulate so tests can check what was forwarded.
type fakeConn struct {
	remote string

	mu      sync.Mutex
	written bytes.Buffer
	closed  bool
	done    chan struct{}
}

func newFakeConn(remote string) *fakeConn {
	return &fakeConn{remote: remote, done: make(chan struct{})}
}

func (c *fakeConn) Read(b []byte) (int, error) {
	<-c.done
	return 0, io.EOF
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	return c.written.Write(b)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) LocalAddr() net.Addr                { return fakeAddr("127.0.0.1:42000") }
func (c *fakeConn) RemoteAddr() net.Addr               { return fakeAddr(c.remote) }
func (c *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

// newTestBridge builds a bridge around fakes without starting Run.
func newTestBridge() (*Bridge, *fakePort, *fakeGPIO) {
	port := newFakePort()
	pwk := &fakeGPIO{}
	b := New(testConfig(), port, pwk, nil, nil, testLogger())
	return b, port, pwk
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
