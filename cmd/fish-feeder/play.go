package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/fish-feeder/internal/gpio"
	"github.com/sweeney/fish-feeder/internal/logic"
	"github.com/sweeney/fish-feeder/internal/tone"
)

var playCmd = &cobra.Command{
	Use:   "play [melody]",
	Short: "Play a melody on the buzzer (the feed alert by default)",
	Long: `Play a melody on the buzzer and exit when it ends.

A melody is a list of NOTE[:ms] tokens, e.g. "C5:150 E5 G5 R:100 C6:400".
NOTE is a note name with optional # or b and an octave, R for a rest, or a
frequency in Hz.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		melody := cfg.FeedAlert
		if len(args) == 1 {
			melody = args[0]
		}
		pattern, err := logic.ParseMelody("cli", melody, tone.DefaultNoteLength, false)
		if err != nil {
			return err
		}

		waveform, err := gpio.NewRealWaveform(cfg.GPIOPins(), logger)
		if err != nil {
			return fmt.Errorf("init buzzer: %w", err)
		}
		defer waveform.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Playing %s\n", strings.Join(strings.Fields(melody), " "))
		return play(cmd.Context(), waveform, pattern, cfg.Timing.TonePoll.D())
	},
}

// play runs a tone engine until p has finished.
func play(ctx context.Context, out gpio.Waveform, p *logic.Pattern, poll time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, patternLength(p)+time.Second)
	defer cancel()

	engine := tone.New(out, time.Now, logger.With("component", "tone"))
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx, ticker.C) }()

	engine.PlayPattern(p)
	started := false
	for {
		select {
		case <-ctx.Done():
			<-done
			// The deadline covers the whole pattern, so hitting it means the
			// end was missed between polls.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return ctx.Err()
		case <-time.After(poll):
		}
		playing := engine.State().Playing
		if playing {
			started = true
		}
		if started && !playing {
			cancel()
			<-done
			return nil
		}
	}
}

func patternLength(p *logic.Pattern) time.Duration {
	var d time.Duration
	for _, f := range p.Frames {
		d += f.Duration
	}
	return d
}
