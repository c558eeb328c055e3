// Package synth renders short stereo note clips from a wave shape and an
// ADSR envelope. It knows nothing about patterns or scheduling; callers
// hand it fully resolved parameters.
package synth

import (
	"math"
	"math/rand"
)

// Wave names an oscillator shape.
type Wave string

const (
	WaveSine     Wave = "sine"
	WaveSquare   Wave = "square"
	WaveTriangle Wave = "triangle"
	WaveSaw      Wave = "saw"
	WaveNoise    Wave = "noise"
)

// Params fully describes one clip. SustainSec is the note-on time
// (attack and decay play inside it); ReleaseSec is the tail after it.
type Params struct {
	SampleRate   int
	Wave         Wave
	Frequency    float64
	Amplitude    float64
	Attack       float64
	Decay        float64
	SustainLevel float64
	SustainSec   float64
	ReleaseSec   float64
}

// Render generates the clip as interleaved stereo float32 samples. The
// clip is exactly ceil((SustainSec+ReleaseSec)*rate) frames long and the
// envelope reaches zero at the end.
func Render(p Params) []float32 {
	rate := float64(p.SampleRate)
	total := p.SustainSec + p.ReleaseSec
	frames := int(math.Ceil(total * rate))
	if frames < 1 {
		frames = 1
	}
	out := make([]float32, frames*2)

	rng := rand.New(rand.NewSource(1))
	releaseFrom := p.envelopeAt(p.SustainSec)
	phase := 0.0
	for i := 0; i < frames; i++ {
		t := float64(i) / rate
		var env float64
		if t < p.SustainSec {
			env = p.envelopeAt(t)
		} else if p.ReleaseSec > 0 {
			env = releaseFrom * (1 - (t-p.SustainSec)/p.ReleaseSec)
		}
		if env < 0 {
			env = 0
		}
		s := oscillate(p.Wave, phase, rng) * env * p.Amplitude
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i*2] = float32(s)
		out[i*2+1] = float32(s)

		phase += p.Frequency / rate
		phase -= math.Floor(phase)
	}
	return out
}

// envelopeAt evaluates the attack/decay/sustain stages at note-on time t.
func (p Params) envelopeAt(t float64) float64 {
	if t < p.Attack {
		if p.Attack <= 0 {
			return 1
		}
		return t / p.Attack
	}
	t -= p.Attack
	if t < p.Decay {
		return 1 - (1-p.SustainLevel)*(t/p.Decay)
	}
	return p.SustainLevel
}

func oscillate(w Wave, phase float64, rng *rand.Rand) float64 {
	switch w {
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveTriangle:
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return 4*phase - 4
		}
	case WaveSaw:
		return 2*phase - 1
	case WaveNoise:
		return rng.Float64()*2 - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
