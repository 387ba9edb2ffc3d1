package schedule

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a test double with a settable time and scripted resync results.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time

	// ResyncError, if set, will be returned by Resync.
	ResyncError error

	// Resyncs counts calls to Resync.
	Resyncs int
}

// NewFakeClock creates a FakeClock at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Resync records the call.
func (f *FakeClock) Resync(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resyncs++
	return f.ResyncError
}

// Now returns the scripted time.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// ResyncCount returns the number of Resync calls.
func (f *FakeClock) ResyncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Resyncs
}

var _ TimeSource = (*FakeClock)(nil)
var _ TimeSource = (*NTPClock)(nil)
