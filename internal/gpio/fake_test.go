package gpio

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
)

func TestFakeStepperRecords(t *testing.T) {
	f := NewFakeStepper()

	if err := f.Energize(logic.Phases[1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Steps() != 1 {
		t.Errorf("expected 1 step, got %d", f.Steps())
	}
	if f.Phases[0] != logic.Phases[1] {
		t.Errorf("unexpected phase: %v", f.Phases[0])
	}
	if f.ReleaseCount() != 1 {
		t.Errorf("expected 1 release, got %d", f.ReleaseCount())
	}
}

func TestFakeStepperError(t *testing.T) {
	f := NewFakeStepper()
	f.Err = errors.New("simulated error")

	if err := f.Energize(logic.Phases[0]); err == nil {
		t.Error("expected error to be returned")
	}
	if f.Steps() != 0 {
		t.Errorf("failed energize should not be recorded")
	}
}

func TestFakeButtonsPress(t *testing.T) {
	var got []logic.ButtonEvent
	f := NewFakeButtons(func(ev logic.ButtonEvent) { got = append(got, ev) })

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.Press(logic.SourceRetract, logic.EdgeRising, now)

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Source != logic.SourceRetract || got[0].Edge != logic.EdgeRising || !got[0].Time.Equal(now) {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestFakeButtonsLimit(t *testing.T) {
	f := NewFakeButtons(func(logic.ButtonEvent) {})

	clear, err := f.LimitClear()
	if err != nil || !clear {
		t.Errorf("expected limit clear initially, got %v/%v", clear, err)
	}

	f.SetLimitClear(false)
	if clear, _ := f.LimitClear(); clear {
		t.Error("expected limit triggered")
	}

	f.ReadError = errors.New("simulated error")
	if _, err := f.LimitClear(); err == nil {
		t.Error("expected read error")
	}
}

func TestFakeWaveformCalls(t *testing.T) {
	f := NewFakeWaveform()
	f.Start(440)
	if f.Playing() != 440 {
		t.Errorf("Playing: got %d, want 440", f.Playing())
	}
	f.Stop()

	calls := f.Calls()
	want := []string{"start:440", "stop"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: got %q, want %q", i, calls[i], want[i])
		}
	}
	if f.Playing() != 0 {
		t.Error("expected silence after stop")
	}

	f.Reset()
	if len(f.Calls()) != 0 {
		t.Error("expected no calls after reset")
	}
}

func TestFakeClose(t *testing.T) {
	s := NewFakeStepper()
	b := NewFakeButtons(func(logic.ButtonEvent) {})
	w := NewFakeWaveform()
	s.Close()
	b.Close()
	w.Close()
	if !s.Closed || !b.Closed || !w.Closed {
		t.Error("expected all fakes closed")
	}
}
