// Package gpio provides the feeder's hardware lines with abstraction for testing.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
)

// EventSink receives edges captured from the input lines. It is called from
// the line watcher goroutine and must not block.
type EventSink func(logic.ButtonEvent)

// Stepper drives the four phase lines of the bucket wheel motor.
type Stepper interface {
	// Energize drives lines 1..4 to the given levels.
	Energize(phase [4]bool) error

	// Release de-energizes all lines.
	Release() error

	// Close releases GPIO resources.
	Close() error
}

// Buttons watches the extend, retract and limit inputs.
type Buttons interface {
	// LimitClear reports whether the limit line reads high (switch not
	// triggered).
	LimitClear() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Waveform is a monophonic tone emitter.
type Waveform interface {
	// Start emits a continuous tone until changed.
	Start(hz int) error

	// Stop silences the output.
	Stop() error

	// Close releases GPIO resources.
	Close() error
}

// Pins holds line offsets on a GPIO chip.
type Pins struct {
	Chip    string
	Step    [4]int
	Extend  int
	Retract int
	Limit   int
	Buzzer  int
}

// Pin definitions (BCM numbering)
const (
	DefaultPinStep1   = 5
	DefaultPinStep2   = 6
	DefaultPinStep3   = 13
	DefaultPinStep4   = 19
	DefaultPinExtend  = 26
	DefaultPinRetract = 16
	DefaultPinLimit   = 20
	DefaultPinBuzzer  = 18
)

// DefaultPins returns the wiring of the reference board.
func DefaultPins() Pins {
	return Pins{
		Chip:    "gpiochip0",
		Step:    [4]int{DefaultPinStep1, DefaultPinStep2, DefaultPinStep3, DefaultPinStep4},
		Extend:  DefaultPinExtend,
		Retract: DefaultPinRetract,
		Limit:   DefaultPinLimit,
		Buzzer:  DefaultPinBuzzer,
	}
}

// squareWave flips the line level through set on every tick until done is
// closed. It stops at the first error from set and returns it.
func squareWave(done <-chan struct{}, tick <-chan time.Time, set func(int) error) error {
	level := 0
	for {
		select {
		case <-done:
			return nil
		case <-tick:
			level ^= 1
			if err := set(level); err != nil {
				return err
			}
		}
	}
}
