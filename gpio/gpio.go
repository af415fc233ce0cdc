// Package gpio drives the PWK output line that emulates the rig's
// front-panel power button.
package gpio

import (
	"fmt"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// Output is a single digital output line. Tests substitute a fake.
type Output interface {
	Set(value int) error
	Close() error
}

// Line implements Output on a Linux GPIO character device.
type Line struct {
	chip *gpiod.Chip
	line *gpiod.Line
}

// OpenOutput requests the given line on the given chip as an output
// driven low.
func OpenOutput(chipName string, offset int) (*Line, error) {
	chip, err := gpiod.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiod.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request GPIO %s:%d as output: %w", chipName, offset, err)
	}

	return &Line{chip: chip, line: line}, nil
}

// Set drives the line to the given value (0 or 1).
func (l *Line) Set(value int) error {
	return l.line.SetValue(value)
}

// Close drives the line low and releases it.
func (l *Line) Close() error {
	l.line.SetValue(0)
	err := l.line.Close()
	if cerr := l.chip.Close(); err == nil {
		err = cerr
	}
	return err
}
