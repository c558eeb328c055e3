package rivi

import "fmt"

// Effect command nibbles the player interprets. Anything else is carried
// through storage untouched and plays as a plain note.
const (
	EffectDetune  = 0x3
	EffectRelease = 0x4
)

const detuneMidpoint = 8

// Effect is an optional per-step modifier packed into one byte: command in
// the high nibble, parameter in the low nibble.
type Effect struct {
	Enabled bool
	Value   byte
}

// EffectFromByte returns an enabled effect carrying the given byte.
func EffectFromByte(b byte) Effect { return Effect{Enabled: true, Value: b} }

func (e Effect) Command() byte { return e.Value >> 4 }
func (e Effect) Param() byte   { return e.Value & 0x0f }

// WithNibble returns a copy with the high or low nibble replaced. Setting
// a nibble enables the effect.
func (e Effect) WithNibble(high bool, nibble byte) Effect {
	nibble &= 0x0f
	v := e.Value
	if high {
		v = nibble<<4 | v&0x0f
	} else {
		v = v&0xf0 | nibble
	}
	return Effect{Enabled: true, Value: v}
}

// DetuneSemitones returns the fractional semitone shift of a detune
// effect. The parameter nibble is read as a signed offset around 8, scaled
// so the full nibble range spans roughly one semitone either way.
func (e Effect) DetuneSemitones() float64 {
	if !e.Enabled || e.Command() != EffectDetune {
		return 0
	}
	return float64(int(e.Param())-detuneMidpoint) / float64(detuneMidpoint)
}

// ReleaseScale returns the per-note release multiplier of a release
// effect: parameter 0..15 maps linearly onto [0.25, 3.0]. Steps without a
// release effect scale by 1.
func (e Effect) ReleaseScale() float64 {
	if !e.Enabled || e.Command() != EffectRelease {
		return 1
	}
	return 0.25 + (3.0-0.25)*float64(e.Param())/15
}

// String renders the effect for a pattern view: "..." when disabled, a
// detune tag with the raw byte, a release tag with the parameter nibble,
// or the raw byte in hex for commands the player does not interpret.
func (e Effect) String() string {
	if !e.Enabled {
		return "..."
	}
	switch e.Command() {
	case EffectDetune:
		return fmt.Sprintf("D%02X", e.Value)
	case EffectRelease:
		return fmt.Sprintf("R%X", e.Param())
	}
	return fmt.Sprintf("%02X", e.Value)
}
