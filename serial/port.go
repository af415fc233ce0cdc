package serial

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// ReadTimeout bounds a single blocking read so the UART reader
// goroutine can observe port closure and shutdown.
const ReadTimeout = 100 * time.Millisecond

// Port is the bridge's view of the UART: raw reads and writes plus
// teardown. Tests substitute an in-memory implementation.
type Port interface {
	io.ReadWriteCloser
	Device() string
}

// RealPort implements Port using go.bug.st/serial.
type RealPort struct {
	device string
	port   serial.Port
}

// Open opens and configures the serial device. The control head runs a
// fixed line discipline: 8 data bits, no parity, one stop bit.
func Open(device string, baudRate int) (*RealPort, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &RealPort{device: device, port: port}, nil
}

// Read implements io.Reader. A timeout expiry returns n = 0 with a nil
// error; callers treat that as "no data yet".
func (p *RealPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write implements io.Writer.
func (p *RealPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close implements io.Closer.
func (p *RealPort) Close() error {
	return p.port.Close()
}

// Device returns the device path.
func (p *RealPort) Device() string {
	return p.device
}
