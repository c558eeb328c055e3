// Package meter measures audio levels for render reports and UI meters.
package meter

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// silenceDB is the floor reported for empty or all-zero buffers.
const silenceDB = -96

// Levels is one peak/RMS measurement, in linear full scale.
type Levels struct {
	Peak float32
	RMS  float32
}

// Measure computes the levels of a sample buffer. Interleaving does not
// matter; every sample participates.
func Measure(samples []float32) Levels {
	if len(samples) == 0 {
		return Levels{}
	}
	peak := vek32.Max(vek32.Abs(samples))
	rms := float32(math.Sqrt(float64(vek32.Mean(vek32.Mul(samples, samples)))))
	return Levels{Peak: peak, RMS: rms}
}

// Channels de-interleaves the buffer and measures each channel on its own.
func Channels(samples []float32, channels int) []Levels {
	if channels < 1 {
		channels = 1
	}
	out := make([]Levels, channels)
	if len(samples) == 0 {
		return out
	}
	frames := len(samples) / channels
	lane := make([]float32, frames)
	for c := 0; c < channels; c++ {
		for f := 0; f < frames; f++ {
			lane[f] = samples[f*channels+c]
		}
		out[c] = Measure(lane)
	}
	return out
}

// PeakDB returns the peak in decibels full scale, floored at -96.
func (l Levels) PeakDB() float64 { return db(l.Peak) }

// RMSDB returns the RMS level in decibels full scale, floored at -96.
func (l Levels) RMSDB() float64 { return db(l.RMS) }

func db(v float32) float64 {
	if v <= 0 {
		return silenceDB
	}
	d := 20 * math.Log10(float64(v))
	if d < silenceDB {
		return silenceDB
	}
	return d
}
