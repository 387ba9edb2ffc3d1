package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNTPClockResync(t *testing.T) {
	c := NewNTPClock("", 0, 0, time.UTC)
	c.retryDelay = 0
	c.query = func(server string, timeout time.Duration) (time.Duration, error) {
		if server != DefaultNTPServer {
			t.Errorf("server: got %q", server)
		}
		if timeout != DefaultNTPTimeout {
			t.Errorf("timeout: got %v", timeout)
		}
		return time.Hour, nil
	}

	if err := c.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if c.Offset() != time.Hour {
		t.Errorf("offset: got %v, want 1h", c.Offset())
	}
	if d := c.Now().Sub(time.Now()); d < 59*time.Minute || d > 61*time.Minute {
		t.Errorf("Now not corrected by offset: %v", d)
	}
	if c.Now().Location() != time.UTC {
		t.Errorf("location: got %v", c.Now().Location())
	}
}

func TestNTPClockRetriesThenFails(t *testing.T) {
	c := NewNTPClock("time.example", time.Second, 3, time.UTC)
	c.retryDelay = 0
	calls := 0
	c.query = func(string, time.Duration) (time.Duration, error) {
		calls++
		return 0, errors.New("timeout")
	}

	err := c.Resync(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("attempts: got %d, want 3", calls)
	}
	if c.Offset() != 0 {
		t.Errorf("offset should be unchanged, got %v", c.Offset())
	}
}

func TestNTPClockRecoversOnRetry(t *testing.T) {
	c := NewNTPClock("time.example", time.Second, 3, time.UTC)
	c.retryDelay = 0
	calls := 0
	c.query = func(string, time.Duration) (time.Duration, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("timeout")
		}
		return -time.Second, nil
	}

	if err := c.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if c.Offset() != -time.Second {
		t.Errorf("offset: got %v", c.Offset())
	}
}

func TestNTPClockCanceledDuringRetry(t *testing.T) {
	c := NewNTPClock("time.example", time.Second, 5, time.UTC)
	c.retryDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	c.query = func(string, time.Duration) (time.Duration, error) {
		cancel()
		return 0, errors.New("timeout")
	}

	if err := c.Resync(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
