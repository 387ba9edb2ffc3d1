//go:build !linux

package gpio

import (
	"errors"
	"log/slog"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealStepper is not available on non-Linux platforms.
type RealStepper struct{}

// NewRealStepper returns an error on non-Linux platforms.
func NewRealStepper(Pins) (*RealStepper, error) {
	return nil, errUnsupported
}

func (s *RealStepper) Energize([4]bool) error { return errUnsupported }
func (s *RealStepper) Release() error         { return errUnsupported }
func (s *RealStepper) Close() error           { return nil }

// RealButtons is not available on non-Linux platforms.
type RealButtons struct{}

// NewRealButtons returns an error on non-Linux platforms.
func NewRealButtons(Pins, EventSink) (*RealButtons, error) {
	return nil, errUnsupported
}

func (b *RealButtons) LimitClear() (bool, error) { return false, errUnsupported }
func (b *RealButtons) Close() error              { return nil }

// RealWaveform is not available on non-Linux platforms.
type RealWaveform struct{}

// NewRealWaveform returns an error on non-Linux platforms.
func NewRealWaveform(Pins, *slog.Logger) (*RealWaveform, error) {
	return nil, errUnsupported
}

func (w *RealWaveform) Start(int) error { return errUnsupported }
func (w *RealWaveform) Stop() error     { return errUnsupported }
func (w *RealWaveform) Close() error    { return nil }
