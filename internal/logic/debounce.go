package logic

import "time"

// Debouncer applies an independent cooldown to each button source.
// Limit events are never debounced.
type Debouncer struct {
	cooldown time.Duration
	last     map[Source]time.Time
}

// NewDebouncer creates a debouncer with the given cooldown window.
func NewDebouncer(cooldown time.Duration) *Debouncer {
	return &Debouncer{
		cooldown: cooldown,
		last:     make(map[Source]time.Time),
	}
}

// Accept reports whether ev should be acted on. The window is measured from
// the last accepted event of the same source; rejected events do not extend it.
func (d *Debouncer) Accept(ev ButtonEvent) bool {
	if ev.Source == SourceLimit {
		return true
	}
	if last, ok := d.last[ev.Source]; ok && ev.Time.Sub(last) < d.cooldown {
		return false
	}
	d.last[ev.Source] = ev.Time
	return true
}
