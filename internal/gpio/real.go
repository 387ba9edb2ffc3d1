//go:build linux

package gpio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/fish-feeder/internal/logic"
)

const consumer = "fish-feeder"

// RealStepper drives the stepper through the Linux GPIO character device.
type RealStepper struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealStepper requests the four phase lines as outputs, all low.
func NewRealStepper(pins Pins) (*RealStepper, error) {
	chip, err := gpiocdev.NewChip(pins.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, errors.Wrap(err, "open gpio chip")
	}

	lines, err := chip.RequestLines(pins.Step[:], gpiocdev.AsOutput(0, 0, 0, 0))
	if err != nil {
		chip.Close()
		return nil, errors.Wrapf(err, "request step pins %v", pins.Step)
	}

	return &RealStepper{chip: chip, lines: lines}, nil
}

// Energize drives the phase lines.
func (s *RealStepper) Energize(phase [4]bool) error {
	values := make([]int, len(phase))
	for i, on := range phase {
		if on {
			values[i] = 1
		}
	}
	if err := s.lines.SetValues(values); err != nil {
		return fmt.Errorf("set step pins: %w", err)
	}
	return nil
}

// Release drives all phase lines low.
func (s *RealStepper) Release() error {
	if err := s.lines.SetValues([]int{0, 0, 0, 0}); err != nil {
		return fmt.Errorf("release step pins: %w", err)
	}
	return nil
}

// Close releases the coils and reconfigures the lines as inputs with pull-down
// (matching Pi boot defaults) before closing.
func (s *RealStepper) Close() error {
	var errs []error
	if s.lines != nil {
		if err := s.lines.SetValues([]int{0, 0, 0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("release step pins: %w", err))
		}
		if err := s.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure step pins: %w", err))
		}
		if err := s.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close step pins: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealButtons watches the button and limit lines for edges.
type RealButtons struct {
	chip    *gpiocdev.Chip
	buttons *gpiocdev.Lines
	limit   *gpiocdev.Line
}

// NewRealButtons requests the input lines with pull-ups. Rising edges on the
// extend and retract lines and falling edges on the limit line are delivered
// to sink.
func NewRealButtons(pins Pins, sink EventSink) (*RealButtons, error) {
	chip, err := gpiocdev.NewChip(pins.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, errors.Wrap(err, "open gpio chip")
	}

	sources := map[int]logic.Source{
		pins.Extend:  logic.SourceExtend,
		pins.Retract: logic.SourceRetract,
		pins.Limit:   logic.SourceLimit,
	}
	handler := func(evt gpiocdev.LineEvent) {
		src, ok := sources[evt.Offset]
		if !ok {
			return
		}
		edge := logic.EdgeRising
		if evt.Type == gpiocdev.LineEventFallingEdge {
			edge = logic.EdgeFalling
		}
		sink(logic.ButtonEvent{Source: src, Edge: edge, Time: time.Now()})
	}

	buttons, err := chip.RequestLines([]int{pins.Extend, pins.Retract},
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(handler))
	if err != nil {
		chip.Close()
		return nil, errors.Wrapf(err, "request button pins %d,%d", pins.Extend, pins.Retract)
	}

	limit, err := chip.RequestLine(pins.Limit,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(handler))
	if err != nil {
		buttons.Close()
		chip.Close()
		return nil, errors.Wrapf(err, "request limit pin %d", pins.Limit)
	}

	return &RealButtons{chip: chip, buttons: buttons, limit: limit}, nil
}

// LimitClear reports whether the limit line reads high.
func (b *RealButtons) LimitClear() (bool, error) {
	v, err := b.limit.Value()
	if err != nil {
		return false, fmt.Errorf("read limit pin: %w", err)
	}
	return v == 1, nil
}

// Close stops edge watching and releases the lines.
func (b *RealButtons) Close() error {
	var errs []error
	if b.buttons != nil {
		if err := b.buttons.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pins: %w", err))
		}
	}
	if b.limit != nil {
		if err := b.limit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close limit pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealWaveform bit-bangs a square wave on a buzzer line.
type RealWaveform struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	logger *slog.Logger

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// NewRealWaveform requests the buzzer line as an output, low. A line write
// failure while a tone plays is logged to logger and ends that tone.
func NewRealWaveform(pins Pins, logger *slog.Logger) (*RealWaveform, error) {
	chip, err := gpiocdev.NewChip(pins.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, errors.Wrap(err, "open gpio chip")
	}
	line, err := chip.RequestLine(pins.Buzzer, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, errors.Wrapf(err, "request buzzer pin %d", pins.Buzzer)
	}
	return &RealWaveform{chip: chip, line: line, logger: logger}, nil
}

// Start retunes the square wave to hz.
func (w *RealWaveform) Start(hz int) error {
	if hz <= 0 {
		return w.Stop()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()

	done := make(chan struct{})
	w.done = done
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(time.Second / time.Duration(2*hz))
		defer ticker.Stop()
		if err := squareWave(done, ticker.C, w.line.SetValue); err != nil {
			w.logger.Error("drive buzzer pin", "hz", hz, "error", err)
		}
	}()
	return nil
}

// Stop silences the buzzer and drives the line low.
func (w *RealWaveform) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	if err := w.line.SetValue(0); err != nil {
		return fmt.Errorf("silence buzzer pin: %w", err)
	}
	return nil
}

func (w *RealWaveform) stopLocked() {
	if w.done == nil {
		return
	}
	close(w.done)
	w.wg.Wait()
	w.done = nil
}

// Close silences the buzzer and releases the line.
func (w *RealWaveform) Close() error {
	var errs []error
	if err := w.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := w.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
	}
	if err := w.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
