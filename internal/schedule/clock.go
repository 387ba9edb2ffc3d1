package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// TimeSource provides civil time and can be resynchronized.
type TimeSource interface {
	// Resync corrects the clock. It may block, but never longer than the
	// implementation's own timeout budget.
	Resync(ctx context.Context) error

	// Now returns the current civil time.
	Now() time.Time
}

// NTP defaults.
const (
	DefaultNTPServer   = "pool.ntp.org"
	DefaultNTPTimeout  = 5 * time.Second
	DefaultNTPAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// offsetFunc measures the local clock offset against server.
type offsetFunc func(server string, timeout time.Duration) (time.Duration, error)

func ntpOffset(server string, timeout time.Duration) (time.Duration, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("invalid response: %w", err)
	}
	return resp.ClockOffset, nil
}

// NTPClock is system time corrected by the offset measured from an NTP
// server. It does not set the system clock.
type NTPClock struct {
	server     string
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	loc        *time.Location
	query      offsetFunc

	mu     sync.RWMutex
	offset time.Duration
}

// NewNTPClock creates a clock reporting time in loc.
func NewNTPClock(server string, timeout time.Duration, attempts int, loc *time.Location) *NTPClock {
	if server == "" {
		server = DefaultNTPServer
	}
	if timeout <= 0 {
		timeout = DefaultNTPTimeout
	}
	if attempts <= 0 {
		attempts = DefaultNTPAttempts
	}
	if loc == nil {
		loc = time.Local
	}
	return &NTPClock{
		server:     server,
		timeout:    timeout,
		attempts:   attempts,
		retryDelay: defaultRetryDelay,
		loc:        loc,
		query:      ntpOffset,
	}
}

// Resync queries the server up to the configured number of attempts.
func (c *NTPClock) Resync(ctx context.Context) error {
	var lastErr error
	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		offset, err := c.query(c.server, c.timeout)
		if err == nil {
			c.mu.Lock()
			c.offset = offset
			c.mu.Unlock()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("ntp %s: %d attempts failed: %w", c.server, c.attempts, lastErr)
}

// Offset returns the last measured correction.
func (c *NTPClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Now returns corrected time in the clock's location.
func (c *NTPClock) Now() time.Time {
	return time.Now().Add(c.Offset()).In(c.loc)
}
