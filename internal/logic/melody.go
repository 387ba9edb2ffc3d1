package logic

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var noteOffsets = map[byte]int{
	'C': -9, 'D': -7, 'E': -5, 'F': -4, 'G': -2, 'A': 0, 'B': 2,
}

// ParseMelody compiles a whitespace separated melody into a Pattern.
//
// Each token is NOTE[:ms]. NOTE is a note name with optional '#' or 'b' and
// an octave ("C5", "F#4", "Bb3"), "R" for a rest, or a frequency in Hz
// ("880"). Tokens without a duration use def.
func ParseMelody(name, melody string, def time.Duration, loop bool) (*Pattern, error) {
	tokens := strings.Fields(melody)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("melody %q: no notes", name)
	}

	frames := make([]Keyframe, 0, len(tokens))
	for _, tok := range tokens {
		note, dur := tok, def
		if i := strings.IndexByte(tok, ':'); i >= 0 {
			note = tok[:i]
			ms, err := strconv.Atoi(tok[i+1:])
			if err != nil || ms <= 0 {
				return nil, fmt.Errorf("melody %q: bad duration in %q", name, tok)
			}
			dur = time.Duration(ms) * time.Millisecond
		}
		if dur <= 0 {
			return nil, fmt.Errorf("melody %q: no duration for %q", name, tok)
		}

		hz, err := noteFrequency(note)
		if err != nil {
			return nil, fmt.Errorf("melody %q: %w", name, err)
		}
		frames = append(frames, Keyframe{FrequencyHz: hz, Duration: dur})
	}

	return &Pattern{Name: name, Frames: frames, Loop: loop, Waveform: "square"}, nil
}

// noteFrequency returns the equal-tempered frequency of note, rounded to Hz.
func noteFrequency(note string) (int, error) {
	if note == "" {
		return 0, fmt.Errorf("empty note")
	}
	if note == "R" || note == "r" {
		return 0, nil
	}
	if hz, err := strconv.Atoi(note); err == nil {
		if hz < 0 {
			return 0, fmt.Errorf("negative frequency %q", note)
		}
		return hz, nil
	}

	offset, ok := noteOffsets[note[0]&^0x20]
	if !ok {
		return 0, fmt.Errorf("unknown note %q", note)
	}
	rest := note[1:]
	if strings.HasPrefix(rest, "#") {
		offset++
		rest = rest[1:]
	} else if strings.HasPrefix(rest, "b") {
		offset--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil || octave < 0 || octave > 8 {
		return 0, fmt.Errorf("bad octave in note %q", note)
	}

	semitones := offset + (octave-4)*12
	return int(math.Round(440 * math.Pow(2, float64(semitones)/12))), nil
}
