package logic

import "time"

// Keyframe is one segment of a tone pattern. FrequencyHz 0 is a rest.
type Keyframe struct {
	FrequencyHz int
	Duration    time.Duration
}

// Rest reports whether the keyframe is silent.
func (k Keyframe) Rest() bool {
	return k.FrequencyHz <= 0
}

// Pattern is an immutable tone sequence. Share it by pointer; never modify
// Frames after construction.
type Pattern struct {
	Name     string
	Frames   []Keyframe
	Loop     bool
	Waveform string
}

// Cursor tracks playback of a pattern. The zero value is silent.
type Cursor struct {
	pattern  *Pattern
	index    int
	deadline time.Time
}

// Active reports whether a pattern is playing.
func (c *Cursor) Active() bool {
	return c.pattern != nil
}

// Pattern returns the playing pattern, or nil when silent.
func (c *Cursor) Pattern() *Pattern {
	return c.pattern
}

// Index returns the current keyframe index.
func (c *Cursor) Index() int {
	return c.index
}

// Deadline returns when the current keyframe ends.
func (c *Cursor) Deadline() time.Time {
	return c.deadline
}

// Current returns the active keyframe. ok is false when silent.
func (c *Cursor) Current() (kf Keyframe, ok bool) {
	if c.pattern == nil {
		return Keyframe{}, false
	}
	return c.pattern.Frames[c.index], true
}

// Reset loads keyframe 0 of p. An empty or nil pattern clears the cursor.
func (c *Cursor) Reset(p *Pattern, now time.Time) {
	if p == nil || len(p.Frames) == 0 {
		c.Clear()
		return
	}
	c.pattern = p
	c.index = 0
	c.deadline = now.Add(p.Frames[0].Duration)
}

// Clear stops playback.
func (c *Cursor) Clear() {
	c.pattern = nil
	c.index = 0
	c.deadline = time.Time{}
}

// Advance moves to the next keyframe once the deadline has passed. It
// returns true when the active keyframe changed, including when a terminal
// pattern ended and the cursor cleared.
func (c *Cursor) Advance(now time.Time) bool {
	if c.pattern == nil || now.Before(c.deadline) {
		return false
	}
	c.index++
	if c.index >= len(c.pattern.Frames) {
		if !c.pattern.Loop {
			c.Clear()
			return true
		}
		c.index = 0
	}
	c.deadline = now.Add(c.pattern.Frames[c.index].Duration)
	return true
}
