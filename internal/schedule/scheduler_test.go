package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
)

type fakeFeeder struct {
	mu    sync.Mutex
	feeds int
	err   error
}

func (f *fakeFeeder) Feed(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.feeds++
	return nil
}

func (f *fakeFeeder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feeds
}

type fakePlayer struct {
	mu     sync.Mutex
	played []*logic.Pattern
}

func (f *fakePlayer) PlayPattern(p *logic.Pattern) {
	f.mu.Lock()
	f.played = append(f.played, p)
	f.mu.Unlock()
}

var alert = &logic.Pattern{Name: "alert", Frames: []logic.Keyframe{{FrequencyHz: 440, Duration: time.Second}}}

type harness struct {
	sched  *Scheduler
	clock  *FakeClock
	feeder *fakeFeeder
	player *fakePlayer
	events chan logic.Event
	mono   time.Time
}

func newHarness(t *testing.T, civil time.Time) *harness {
	t.Helper()
	h := &harness{
		clock:  NewFakeClock(civil),
		feeder: &fakeFeeder{},
		player: &fakePlayer{},
		events: make(chan logic.Event, 4),
		mono:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	cfg := Config{FeedingMinute: 720, ResyncCooldown: time.Hour, Alert: alert}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.sched = New(cfg, h.clock, h.feeder, h.player, func() time.Time { return h.mono }, h.events, logger)
	return h
}

func (h *harness) tick(t *testing.T, d time.Duration) {
	t.Helper()
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	h.clock.Advance(d)
	h.mono = h.mono.Add(d)
}

func TestFeedOnCrossing(t *testing.T) {
	h := newHarness(t, time.Date(2026, 1, 1, 11, 59, 0, 0, time.UTC))

	h.tick(t, time.Minute) // 11:59, sentinel
	if h.feeder.count() != 0 {
		t.Fatal("first tick must not feed")
	}
	h.tick(t, time.Minute) // 12:00
	if h.feeder.count() != 1 {
		t.Fatalf("expected feed at 12:00, got %d", h.feeder.count())
	}
	if len(h.player.played) != 1 || h.player.played[0] != alert {
		t.Errorf("expected alert played once, got %v", h.player.played)
	}
	h.tick(t, time.Minute) // 12:01
	h.tick(t, time.Minute) // 12:02

	if h.feeder.count() != 1 {
		t.Errorf("expected exactly 1 feed, got %d", h.feeder.count())
	}
	st := h.sched.Status()
	if st.LastFeed.Hour() != 12 || st.LastFeed.Minute() != 0 {
		t.Errorf("LastFeed: got %v", st.LastFeed)
	}
	if st.FeedingTime != "12:00" {
		t.Errorf("FeedingTime: got %q", st.FeedingTime)
	}
}

func TestNoFeedAfterBootPastFeedingTime(t *testing.T) {
	h := newHarness(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	for i := 0; i < 5; i++ {
		h.tick(t, time.Minute)
	}
	if h.feeder.count() != 0 {
		t.Errorf("expected no feed after booting at feeding time, got %d", h.feeder.count())
	}
}

func TestFeedNextDay(t *testing.T) {
	h := newHarness(t, time.Date(2026, 1, 1, 11, 58, 0, 0, time.UTC))
	h.tick(t, time.Minute)
	h.tick(t, time.Minute)
	h.tick(t, 24*time.Hour-time.Minute) // 12:00 fires, then 11:59 next day
	h.tick(t, time.Minute)
	h.tick(t, time.Minute) // 12:00 fires again

	if h.feeder.count() != 2 {
		t.Errorf("expected 2 feeds over two days, got %d", h.feeder.count())
	}
}

func TestResyncCooldown(t *testing.T) {
	h := newHarness(t, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))

	h.tick(t, 30*time.Minute)
	if h.clock.ResyncCount() != 1 {
		t.Fatalf("expected resync on first tick, got %d", h.clock.ResyncCount())
	}
	h.tick(t, 31*time.Minute)
	if h.clock.ResyncCount() != 1 {
		t.Errorf("expected no resync within cooldown, got %d", h.clock.ResyncCount())
	}
	h.tick(t, time.Minute)
	if h.clock.ResyncCount() != 2 {
		t.Errorf("expected resync after cooldown, got %d", h.clock.ResyncCount())
	}
	if !h.sched.Status().ResyncOK {
		t.Error("expected ResyncOK")
	}
}

func TestResyncFailureNonFatal(t *testing.T) {
	h := newHarness(t, time.Date(2026, 1, 1, 11, 59, 0, 0, time.UTC))
	h.clock.ResyncError = errors.New("network down")

	h.tick(t, time.Minute)
	h.tick(t, time.Minute)

	if h.feeder.count() != 1 {
		t.Errorf("feed should still fire on the existing clock, got %d", h.feeder.count())
	}
	if h.clock.ResyncCount() != 1 {
		t.Errorf("failed resync must not be retried before the cooldown, got %d", h.clock.ResyncCount())
	}
	if h.sched.Status().ResyncOK {
		t.Error("expected ResyncOK=false")
	}
	select {
	case ev := <-h.events:
		if ev.Type != logic.EventResyncFailed {
			t.Errorf("event: got %s, want RESYNC_FAILED", ev.Type)
		}
	default:
		t.Error("expected RESYNC_FAILED event")
	}
}

func TestFeedErrorStopsTick(t *testing.T) {
	h := newHarness(t, time.Date(2026, 1, 1, 11, 59, 0, 0, time.UTC))
	h.tick(t, time.Minute)
	h.feeder.err = context.Canceled

	if err := h.sched.Tick(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected feed error, got %v", err)
	}
	if len(h.player.played) != 0 {
		t.Error("alert must not play when the feed could not be posted")
	}
}

func TestRunTicksUntilCanceled(t *testing.T) {
	h := newHarness(t, time.Date(2026, 1, 1, 11, 59, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- h.sched.Run(ctx, tick) }()

	// Each send completes only once the previous evaluation has finished.
	tick <- time.Now()
	tick <- time.Now()
	h.clock.Set(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	tick <- time.Now()
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if h.feeder.count() != 1 {
		t.Errorf("expected 1 feed, got %d", h.feeder.count())
	}
}
