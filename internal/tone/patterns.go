package tone

import (
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
)

// DefaultFeedAlert is played on every scheduled feed.
const DefaultFeedAlert = "C5:150 E5:150 G5:150 R:100 C6:400"

// DefaultNoteLength is used for melody notes without an explicit duration.
const DefaultNoteLength = 150 * time.Millisecond

// Startup is a short chirp played once the daemon is running.
var Startup = &logic.Pattern{
	Name: "startup",
	Frames: []logic.Keyframe{
		{FrequencyHz: 1760, Duration: 60 * time.Millisecond},
		{FrequencyHz: 0, Duration: 40 * time.Millisecond},
		{FrequencyHz: 2093, Duration: 60 * time.Millisecond},
	},
	Waveform: "square",
}

// FeedAlert compiles melody into the feed alert pattern, falling back to
// DefaultFeedAlert when melody is empty.
func FeedAlert(melody string) (*logic.Pattern, error) {
	if melody == "" {
		melody = DefaultFeedAlert
	}
	return logic.ParseMelody("feed-alert", melody, DefaultNoteLength, false)
}
