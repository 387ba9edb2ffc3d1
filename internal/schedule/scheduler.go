// Package schedule fires the daily feed and keeps the clock synchronized.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/fish-feeder/internal/logic"
)

// Defaults for the schedule loop.
const (
	DefaultPeriod         = time.Minute
	DefaultResyncCooldown = 60 * time.Minute
)

// Feeder extends the next bucket.
type Feeder interface {
	Feed(ctx context.Context) error
}

// Player plays a tone pattern.
type Player interface {
	PlayPattern(p *logic.Pattern)
}

// Status is a point-in-time view of the schedule.
type Status struct {
	FeedingTime string
	LastMinute  int
	Observed    bool
	LastResync  time.Time
	ResyncOK    bool
	LastFeed    time.Time
}

// Scheduler polls the time source and triggers the feed.
type Scheduler struct {
	trigger *logic.Trigger
	clock   TimeSource
	feeder  Feeder
	player  Player
	alert   *logic.Pattern
	elapsed func() time.Time
	events  chan<- logic.Event
	logger  *slog.Logger

	mu     sync.RWMutex
	status Status
}

// Config holds the scheduler settings.
type Config struct {
	FeedingMinute  int
	ResyncCooldown time.Duration
	Alert          *logic.Pattern
}

// New creates a scheduler. elapsed measures the resync cooldown and should be
// monotonic (time.Now). events receives RESYNC_FAILED; sends never block.
func New(cfg Config, clock TimeSource, feeder Feeder, player Player, elapsed func() time.Time, events chan<- logic.Event, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		trigger: logic.NewTrigger(cfg.FeedingMinute, cfg.ResyncCooldown),
		clock:   clock,
		feeder:  feeder,
		player:  player,
		alert:   cfg.Alert,
		elapsed: elapsed,
		events:  events,
		logger:  logger,
		status:  Status{FeedingTime: logic.FormatClock(cfg.FeedingMinute)},
	}
}

// Run evaluates the schedule immediately and then on every tick until ctx is
// done.
func (s *Scheduler) Run(ctx context.Context, tick <-chan time.Time) error {
	s.logger.Debug("started schedule loop", "feeding_time", s.Status().FeedingTime)
	for {
		if err := s.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

// Tick runs one schedule evaluation. It only returns an error when ctx ends.
func (s *Scheduler) Tick(ctx context.Context) error {
	mono := s.elapsed()
	if s.trigger.ResyncDue(mono) {
		s.trigger.MarkResync(mono)
		s.resync(ctx, mono)
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	now := s.clock.Now()
	minute := logic.MinuteOfDay(now)
	s.logger.Info("updating for time", "time", logic.FormatClock(minute))

	fire := s.trigger.Observe(minute)
	s.mu.Lock()
	s.status.LastMinute = minute
	s.status.Observed = true
	s.mu.Unlock()
	if !fire {
		return nil
	}

	s.logger.Info("feeding time reached", "time", logic.FormatClock(minute))
	if err := s.feeder.Feed(ctx); err != nil {
		return err
	}
	if s.alert != nil {
		s.player.PlayPattern(s.alert)
	}
	s.mu.Lock()
	s.status.LastFeed = now
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) resync(ctx context.Context, mono time.Time) {
	err := s.clock.Resync(ctx)

	s.mu.Lock()
	s.status.LastResync = mono
	s.status.ResyncOK = err == nil
	s.mu.Unlock()

	if err == nil {
		s.logger.Debug("successfully updated clock")
		return
	}
	if ctx.Err() != nil {
		return
	}
	s.logger.Error("failed to update time", "error", err)
	if s.events == nil {
		return
	}
	select {
	case s.events <- logic.Event{ID: uuid.NewString(), Timestamp: s.clock.Now(), Type: logic.EventResyncFailed}:
	default:
	}
}

// Status returns the current schedule status.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
