package sequencer

import (
	"math"

	"github.com/askorpi/rivi/internal/audio"
	"github.com/askorpi/rivi/internal/synth"
)

const (
	// minSustainSec floors inferred note lengths so no clip degenerates.
	minSustainSec = 0.005
	// releaseFraction scales release against sustain before the bounds
	// apply; the bounds keep generated clips short enough to stay cheap
	// while leaving an audible tail.
	releaseFraction = 0.75
	minReleaseSec   = 0.9
	maxReleaseSec   = 2.0
)

// resolved is the full outcome of resolving one note: what to remember
// for later reissue, the cache key, and the generator parameters.
type resolved struct {
	note   lastNote
	key    audio.ClipKey
	params synth.Params
}

// resolve works out the parameter tuple for a note triggered at
// (row, channel): sustain from the grid scan, frequency with detune
// folded in, and the per-note release scale carried along for release
// resolution.
func (e *Engine) resolve(row, channel int, st Step) resolved {
	return e.resolveNote(channel, lastNote{
		instrument:   st.Instrument,
		frequency:    st.Frequency * math.Pow(2, st.Detune/12),
		sustainSec:   e.sustainSeconds(row, channel),
		releaseScale: st.ReleaseScale,
	})
}

// resolveNote finishes resolution from a remembered note, so a live
// reissue takes exactly the path a fresh trigger does. Amplitude is
// filled from the instrument on first resolution and kept afterwards.
func (e *Engine) resolveNote(channel int, n lastNote) resolved {
	inst := e.cfg.Instrument(n.instrument)
	if n.amplitude <= 0 {
		n.amplitude = inst.Amplitude
		if n.amplitude <= 0 {
			n.amplitude = 1
		}
	}
	release := e.releaseSeconds(channel, n, inst)
	total := n.sustainSec + release
	return resolved{
		note: n,
		key: audio.ClipKey{
			Instrument:    n.instrument,
			Midi:          nearestMidi(n.frequency),
			ClipMillis:    int(math.Round(total * 1000)),
			ReleaseMillis: int(math.Round(release * 1000)),
		},
		params: synth.Params{
			SampleRate:   e.opts.SampleRate,
			Wave:         inst.Wave,
			Frequency:    n.frequency,
			Amplitude:    n.amplitude,
			Attack:       inst.Attack,
			Decay:        inst.Decay,
			SustainLevel: inst.Sustain,
			SustainSec:   n.sustainSec,
			ReleaseSec:   release,
		},
	}
}

// releaseSeconds combines every release influence on the note: the global
// scale, the cell's own scale, the channel scale, and the instrument's
// release shape, all against a fraction of the sustain, then bounded.
func (e *Engine) releaseSeconds(channel int, n lastNote, inst Instrument) float64 {
	rel := n.sustainSec * releaseFraction * e.cfg.GlobalRelease() * n.releaseScale * e.cfg.ChannelRelease(channel)
	if inst.Release > 0 {
		rel *= inst.Release
	}
	return clampFloat(rel, minReleaseSec, maxReleaseSec)
}

// nearestMidi recovers the closest integer pitch for a frequency, which
// keys the clip cache: float drift and sub-semitone detunes land on the
// same entry, whole-semitone differences get their own.
func nearestMidi(freq float64) int {
	if freq <= 0 {
		return 0
	}
	return int(math.Round(69 + 12*math.Log2(freq/440)))
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
