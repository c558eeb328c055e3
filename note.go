package rivi

import (
	"fmt"
	"math"
)

// Note is one cell's pitch content: silence, an explicit cut, or a
// sounding pitch with the instrument that should voice it.
type Note struct {
	kind       noteKind
	midi       int
	instrument int
}

type noteKind int

const (
	noteEmpty noteKind = iota
	noteOff
	noteSounding
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// EmptyNote returns the no-op note. The zero Note is equivalent.
func EmptyNote() Note { return Note{kind: noteEmpty} }

// NoteOff returns the cut note that silences a channel's voice.
func NoteOff() Note { return Note{kind: noteOff} }

// NewNote returns a sounding note. The midi pitch is clamped to [0, 127].
func NewNote(midi, instrument int) Note {
	return Note{kind: noteSounding, midi: clampInt(midi, 0, 127), instrument: instrument}
}

func (n Note) IsEmpty() bool    { return n.kind == noteEmpty }
func (n Note) IsOff() bool      { return n.kind == noteOff }
func (n Note) IsSounding() bool { return n.kind == noteSounding }

// Midi returns the pitch of a sounding note; false otherwise.
func (n Note) Midi() (int, bool) {
	if n.kind != noteSounding {
		return 0, false
	}
	return n.midi, true
}

// Instrument returns the instrument index of a sounding note; false otherwise.
func (n Note) Instrument() (int, bool) {
	if n.kind != noteSounding {
		return 0, false
	}
	return n.instrument, true
}

// Frequency returns the equal-tempered frequency in Hz, with A4 (midi 69)
// at 440 Hz. Empty and note-off cells have no pitch and yield 0.
func (n Note) Frequency() float64 {
	if n.kind != noteSounding {
		return 0
	}
	return 440 * math.Pow(2, float64(n.midi-69)/12)
}

// String renders the cell for a pattern view: "---" for empty, "===" for a
// note cut, otherwise pitch class plus octave ("C4", "A#3"). Octave -1
// starts at midi 0.
func (n Note) String() string {
	switch n.kind {
	case noteEmpty:
		return "---"
	case noteOff:
		return "==="
	}
	return fmt.Sprintf("%s%d", noteNames[n.midi%12], n.midi/12-1)
}

// MidiForOctave converts a pitch-class offset within the given octave to a
// midi number, so offset 0 at octave 4 is middle C (60).
func MidiForOctave(octave, offset int) int {
	return clampInt((octave+1)*12+offset, 0, 127)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
