package feeder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sweeney/fish-feeder/internal/gpio"
	"github.com/sweeney/fish-feeder/internal/input"
	"github.com/sweeney/fish-feeder/internal/logic"
)

var testGeometry = logic.Geometry{BucketCount: 2, StepsPerBucket: 4, FirstBucketSteps: 6}

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	ctrl    *Controller
	stepper *gpio.FakeStepper
	buttons *gpio.FakeButtons
	events  chan logic.Event
	tick    chan time.Time
	cancel  context.CancelFunc
	done    chan error
}

func newHarness(t *testing.T, eventCap int) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := input.NewQueue(8, logger)
	h := &harness{
		stepper: gpio.NewFakeStepper(),
		events:  make(chan logic.Event, eventCap),
		tick:    make(chan time.Time),
		done:    make(chan error, 1),
	}
	h.buttons = gpio.NewFakeButtons(queue.Push)
	dispatcher := input.NewDispatcher(250*time.Millisecond, h.buttons, true, logger)
	h.ctrl = New(testGeometry, h.stepper, queue, dispatcher, h.events, func() time.Time { return testNow }, logger)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.ctrl.Run(ctx, h.tick) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

// ticks sends n ticks and waits until the last one has been applied.
func (h *harness) ticks(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.tick <- testNow
	}
	if _, err := h.ctrl.Snapshot(context.Background()); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func nextEvent(t *testing.T, ch <-chan logic.Event) logic.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return logic.Event{}
	}
}

func TestFeedExtendsAndSteps(t *testing.T) {
	h := newHarness(t, 8)

	if err := h.ctrl.Feed(context.Background()); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	ev := nextEvent(t, h.events)
	if ev.Type != logic.EventFeed {
		t.Errorf("event type: got %s, want FEED", ev.Type)
	}
	if ev.Target != 6 || ev.Buckets != 1 {
		t.Errorf("event: target=%d buckets=%d, want 6/1", ev.Target, ev.Buckets)
	}
	if ev.ID == "" {
		t.Error("expected event ID")
	}

	h.ticks(t, 6)
	if got := h.stepper.Steps(); got != 6 {
		t.Errorf("steps: got %d, want 6", got)
	}
	if h.stepper.ReleaseCount() != 0 {
		t.Errorf("releases while moving: got %d", h.stepper.ReleaseCount())
	}

	h.ticks(t, 3)
	if got := h.stepper.ReleaseCount(); got != 1 {
		t.Errorf("releases at rest: got %d, want 1", got)
	}
	s := h.ctrl.State()
	if s.Position != 6 || s.Mode != logic.ModeIdle {
		t.Errorf("state: %+v", s)
	}
}

func TestFeedWhilePendingIsNoop(t *testing.T) {
	h := newHarness(t, 8)
	ctx := context.Background()

	h.ctrl.Feed(ctx)
	h.ticks(t, 2)
	h.ctrl.Feed(ctx)

	s, err := h.ctrl.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.Target != 6 {
		t.Errorf("target: got %d, want 6", s.Target)
	}
	if len(h.events) != 1 {
		t.Errorf("expected 1 event, got %d", len(h.events))
	}
}

func TestButtonCalibrationFlow(t *testing.T) {
	h := newHarness(t, 8)

	h.buttons.Press(logic.SourceRetract, logic.EdgeRising, testNow)
	waitFor(t, "calibration start", func() bool { return h.ctrl.State().Calibrating })
	if ev := nextEvent(t, h.events); ev.Type != logic.EventCalibrationStart {
		t.Errorf("event: got %s, want CALIBRATION_START", ev.Type)
	}

	h.ticks(t, 3)
	if got := h.ctrl.State().Position; got != -3 {
		t.Errorf("position while homing: got %d, want -3", got)
	}

	h.buttons.Press(logic.SourceLimit, logic.EdgeFalling, testNow.Add(20*time.Millisecond))
	waitFor(t, "calibration end", func() bool { return !h.ctrl.State().Calibrating })
	if ev := nextEvent(t, h.events); ev.Type != logic.EventCalibrationDone {
		t.Errorf("event: got %s, want CALIBRATION_DONE", ev.Type)
	}

	s := h.ctrl.State()
	if s.Position != 0 || s.Target != 0 {
		t.Errorf("after calibration: position=%d target=%d", s.Position, s.Target)
	}
	if !s.HasCalibrated {
		t.Error("expected HasCalibrated")
	}
}

func TestExtendButtonDebounced(t *testing.T) {
	h := newHarness(t, 8)

	for i := 0; i < 4; i++ {
		h.buttons.Press(logic.SourceExtend, logic.EdgeRising, testNow.Add(time.Duration(i)*10*time.Millisecond))
	}
	waitFor(t, "extend", func() bool { return h.ctrl.State().Target == 6 })
	h.ticks(t, 1)

	if len(h.events) != 1 {
		t.Errorf("expected 1 event, got %d", len(h.events))
	}
}

func TestEventsDroppedWhenFull(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	h.ctrl.Feed(ctx)
	h.ticks(t, 7)
	// Second feed must not block on the full event channel.
	if err := h.ctrl.Feed(ctx); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got := h.ctrl.State().Target; got != 8 {
		t.Errorf("target: got %d, want 8", got)
	}
	if len(h.events) != 1 {
		t.Errorf("expected 1 buffered event, got %d", len(h.events))
	}
}

func TestStepperErrorsDoNotStopTask(t *testing.T) {
	h := newHarness(t, 8)
	h.stepper.Err = errors.New("simulated error")

	h.ctrl.Feed(context.Background())
	h.ticks(t, 3)
	if got := h.ctrl.State().Position; got != 3 {
		t.Errorf("position: got %d, want 3", got)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	h := newHarness(t, 8)
	h.cancel()

	select {
	case err := <-h.done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if h.stepper.ReleaseCount() != 1 {
		t.Errorf("expected stepper released on exit, got %d", h.stepper.ReleaseCount())
	}
}

func TestFeedCanceledContext(t *testing.T) {
	h := newHarness(t, 8)
	h.cancel()
	<-h.done
	h.done <- nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.ctrl.Feed(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
