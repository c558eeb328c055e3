package rivi

import (
	"time"

	"github.com/askorpi/rivi/internal/sequencer"
)

// Meta is the optional header persisted alongside a pattern. None of it is
// required for playback.
type Meta struct {
	Title       string  `json:",omitempty"`
	BPM         float64 `json:",omitempty"`
	RowsPerBeat int     `json:",omitempty"`
	CreatedUtc  time.Time
	ModifiedUtc time.Time
}

// Song pairs a pattern with its metadata, matching the persisted form.
type Song struct {
	Meta    Meta
	Pattern *Pattern
}

// Default pattern shape for new songs.
const (
	DefaultRows     = 16
	DefaultChannels = 4
)

// NewSong returns a song with a fresh pattern of the given shape and
// creation time set to now.
func NewSong(rows, channels int) *Song {
	now := time.Now().UTC()
	return &Song{
		Meta:    Meta{RowsPerBeat: int(1 / sequencer.StepFraction), CreatedUtc: now, ModifiedUtc: now},
		Pattern: NewPattern(rows, channels),
	}
}
