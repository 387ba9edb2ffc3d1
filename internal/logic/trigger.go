package logic

import (
	"fmt"
	"time"
)

// MinutesPerDay is the length of the minute-of-day range.
const MinutesPerDay = 24 * 60

// unsetMinute marks that no minute has been observed yet.
const unsetMinute = -1

// Trigger edge-detects the crossing of the feeding time between two
// consecutive observations.
type Trigger struct {
	feedingMinute int
	lastMinute    int

	resyncCooldown time.Duration
	lastResync     time.Time
	resynced       bool
}

// NewTrigger creates a trigger for the given minute of day.
func NewTrigger(feedingMinute int, resyncCooldown time.Duration) *Trigger {
	return &Trigger{
		feedingMinute:  feedingMinute,
		lastMinute:     unsetMinute,
		resyncCooldown: resyncCooldown,
	}
}

// FeedingMinute returns the configured feeding time as minutes since midnight.
func (t *Trigger) FeedingMinute() int {
	return t.feedingMinute
}

// LastMinute returns the last observed minute of day and whether one exists.
func (t *Trigger) LastMinute() (int, bool) {
	return t.lastMinute, t.lastMinute != unsetMinute
}

// Observe records minute and reports whether the feeding time was crossed
// since the previous observation. The first observation never fires.
func (t *Trigger) Observe(minute int) bool {
	last := t.lastMinute
	t.lastMinute = minute
	if last == unsetMinute {
		return false
	}
	if minute < last {
		// Midnight passed between observations.
		return t.feedingMinute > last || t.feedingMinute <= minute
	}
	return last < t.feedingMinute && t.feedingMinute <= minute
}

// ResyncDue reports whether the clock should be resynchronized at now.
// Before the first attempt it is always due.
func (t *Trigger) ResyncDue(now time.Time) bool {
	return !t.resynced || now.Sub(t.lastResync) > t.resyncCooldown
}

// MarkResync records a resync attempt at now, successful or not, so the next
// attempt waits a full cooldown.
func (t *Trigger) MarkResync(now time.Time) {
	t.lastResync = now
	t.resynced = true
}

// MinuteOfDay returns the minutes since midnight of ts in its own location.
func MinuteOfDay(ts time.Time) int {
	return ts.Hour()*60 + ts.Minute()
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes since midnight into "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
