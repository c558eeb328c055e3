package rivi

// Wave names an oscillator shape for an instrument profile.
type Wave string

const (
	WaveSine     Wave = "sine"
	WaveSquare   Wave = "square"
	WaveTriangle Wave = "triangle"
	WaveSaw      Wave = "saw"
	WaveNoise    Wave = "noise"
)

// Instrument is one synthesis profile: an oscillator shape and the
// envelope parameters applied to every note it voices. Release is a
// multiplier over the resolved per-note release time, not seconds.
type Instrument struct {
	Name      string
	Wave      Wave
	Attack    float64
	Decay     float64
	Sustain   float64
	Release   float64
	Amplitude float64
}

// DefaultInstruments returns the built-in instrument table. Four entries
// by convention, but the table is an open set and hosts may extend it.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Name: "square lead", Wave: WaveSquare, Attack: 0.005, Decay: 0.05, Sustain: 0.7, Release: 1.0, Amplitude: 0.8},
		{Name: "triangle bass", Wave: WaveTriangle, Attack: 0.003, Decay: 0.08, Sustain: 0.8, Release: 0.8, Amplitude: 0.9},
		{Name: "saw pad", Wave: WaveSaw, Attack: 0.02, Decay: 0.1, Sustain: 0.6, Release: 1.5, Amplitude: 0.7},
		{Name: "noise tap", Wave: WaveNoise, Attack: 0.001, Decay: 0.03, Sustain: 0.2, Release: 0.5, Amplitude: 0.6},
	}
}
