package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
)

// FakeStepper records energized phases for test assertions.
type FakeStepper struct {
	mu sync.Mutex

	// Phases contains every pattern passed to Energize, in order.
	Phases [][4]bool

	// Releases counts calls to Release.
	Releases int

	// Err, if set, will be returned by Energize and Release.
	Err error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeStepper creates a FakeStepper.
func NewFakeStepper() *FakeStepper {
	return &FakeStepper{}
}

// Energize records the phase.
func (f *FakeStepper) Energize(phase [4]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Phases = append(f.Phases, phase)
	return nil
}

// Release records a release.
func (f *FakeStepper) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Releases++
	return nil
}

// Close marks the stepper as closed.
func (f *FakeStepper) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Steps returns the number of phases energized so far.
func (f *FakeStepper) Steps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Phases)
}

// ReleaseCount returns the number of Release calls so far.
func (f *FakeStepper) ReleaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Releases
}

// FakeButtons is a test double that forwards scripted edges to a sink.
type FakeButtons struct {
	mu    sync.Mutex
	sink  EventSink
	clear bool

	// ReadError, if set, will be returned by LimitClear.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeButtons creates FakeButtons delivering to sink. The limit line
// starts clear.
func NewFakeButtons(sink EventSink) *FakeButtons {
	return &FakeButtons{sink: sink, clear: true}
}

// SetLimitClear sets the level returned by LimitClear.
func (f *FakeButtons) SetLimitClear(clear bool) {
	f.mu.Lock()
	f.clear = clear
	f.mu.Unlock()
}

// Press delivers an edge from src at t.
func (f *FakeButtons) Press(src logic.Source, edge logic.Edge, t time.Time) {
	f.sink(logic.ButtonEvent{Source: src, Edge: edge, Time: t})
}

// LimitClear returns the scripted limit level.
func (f *FakeButtons) LimitClear() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.clear, nil
}

// Close marks the buttons as closed.
func (f *FakeButtons) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeWaveform records tone commands as "start:<hz>" and "stop".
type FakeWaveform struct {
	mu      sync.Mutex
	calls   []string
	playing int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeWaveform creates a FakeWaveform.
func NewFakeWaveform() *FakeWaveform {
	return &FakeWaveform{}
}

// Start records a tone.
func (f *FakeWaveform) Start(hz int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("start:%d", hz))
	f.playing = hz
	return nil
}

// Stop records silence.
func (f *FakeWaveform) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
	f.playing = 0
	return nil
}

// Close marks the waveform as closed.
func (f *FakeWaveform) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Calls returns a copy of the recorded commands.
func (f *FakeWaveform) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Playing returns the current tone in Hz, 0 when silent.
func (f *FakeWaveform) Playing() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// Reset clears recorded commands.
func (f *FakeWaveform) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

var (
	_ Stepper  = (*FakeStepper)(nil)
	_ Buttons  = (*FakeButtons)(nil)
	_ Waveform = (*FakeWaveform)(nil)
)
