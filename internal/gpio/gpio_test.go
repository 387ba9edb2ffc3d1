package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestSquareWaveAlternatesUntilDone(t *testing.T) {
	done := make(chan struct{})
	tick := make(chan time.Time)
	var levels []int
	result := make(chan error, 1)
	go func() {
		result <- squareWave(done, tick, func(l int) error {
			levels = append(levels, l)
			return nil
		})
	}()

	for i := 0; i < 4; i++ {
		tick <- time.Time{}
	}
	close(done)
	if err := <-result; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{1, 0, 1, 0}
	if len(levels) != len(want) {
		t.Fatalf("levels: got %v, want %v", levels, want)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Errorf("level %d: got %d, want %d", i, levels[i], want[i])
		}
	}
}

func TestSquareWaveStopsOnWriteError(t *testing.T) {
	lineErr := errors.New("line released")
	done := make(chan struct{})
	defer close(done)
	tick := make(chan time.Time, 3)
	tick <- time.Time{}
	tick <- time.Time{}
	tick <- time.Time{}

	calls := 0
	err := squareWave(done, tick, func(int) error {
		calls++
		return lineErr
	})
	if !errors.Is(err, lineErr) {
		t.Fatalf("got %v, want %v", err, lineErr)
	}
	if calls != 1 {
		t.Errorf("writes after failure: got %d calls, want 1", calls)
	}
}
