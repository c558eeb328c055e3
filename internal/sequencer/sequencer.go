// Package sequencer advances a pattern grid in musical time and turns the
// steps it passes over into synthesis requests. It owns the playback
// clock, the per-channel voice bookkeeping, and the resolution of note
// parameters; reading grid cells and actually producing sound are behind
// small interfaces supplied by the caller.
package sequencer

import (
	"github.com/askorpi/rivi/internal/audio"
	"github.com/askorpi/rivi/internal/synth"
)

// DefaultSampleRate is used when the host does not choose a rate.
const DefaultSampleRate = 44100

// StepFraction is the musical length of one row as a fraction of a beat:
// four rows per beat, sixteenth notes at the usual reading.
const StepFraction = 0.25

// StepSeconds returns the wall-clock length of one row at the given tempo.
func StepSeconds(bpm float64) float64 {
	return 60 / bpm * StepFraction
}

// StepKind says what a grid cell asks of its channel when triggered.
type StepKind int

const (
	StepEmpty StepKind = iota // hold whatever is sounding
	StepOff                   // cut the sounding voice
	StepNote                  // start a new voice
)

// Step is the trigger-relevant content of one grid cell. Frequency is the
// equal-tempered pitch in Hz before detune; Detune is a fractional
// semitone shift; ReleaseScale is the per-note release multiplier, 1 when
// the cell carries none.
type Step struct {
	Kind         StepKind
	Frequency    float64
	Instrument   int
	Detune       float64
	ReleaseScale float64
}

// Grid is the pattern surface the engine reads. Row and channel counts
// are fixed for the lifetime of the engine. SustainSteps reports how many
// rows a note triggered at (row, channel) holds for, the trigger row
// included.
type Grid interface {
	NumRows() int
	NumChannels() int
	Step(row, channel int) Step
	SustainSteps(row, channel int) int
}

// Config is the mutable playback configuration, read fresh on every use
// so edits take effect on the next step.
type Config interface {
	BPM() float64
	GlobalRelease() float64
	ChannelMuted(channel int) bool
	ChannelRelease(channel int) float64
	Instrument(index int) Instrument
}

// Instrument is the synthesis profile behind an instrument index. Release
// scales the resolved release time; Amplitude 0 means full scale.
type Instrument struct {
	Wave      synth.Wave
	Attack    float64
	Decay     float64
	Sustain   float64
	Release   float64
	Amplitude float64
}

// Player realizes a resolved note into a playing voice, building the clip
// through the supplied generator when the key has not been seen before.
// The audio package provides the production implementation.
type Player interface {
	Start(key audio.ClipKey, build func() []float32) (audio.Handle, error)
}

// Options tune an Engine. The zero value is usable.
type Options struct {
	SampleRate int
	// VoiceLimit caps simultaneously sounding voices; when a new voice
	// would exceed it the oldest one is stolen. 0 means one per channel.
	VoiceLimit int
	// OnRow is called after every triggered row.
	OnRow func(row int)
	// OnError is called when realizing a voice fails. The failure is
	// contained to that one note; playback continues.
	OnError func(channel int, err error)
}

// Engine is the playback core: a two-state transport (stopped, playing)
// over an accumulator clock, plus one voice slot per channel and a queue
// of synthesis requests drained once per update tick.
type Engine struct {
	grid   Grid
	cfg    Config
	player Player
	opts   Options

	playing   bool
	acc       float64
	nextRow   int
	activeRow int

	channels []channelState
	queue    []request
	seq      uint64
}

func New(grid Grid, cfg Config, player Player, opts Options) *Engine {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.VoiceLimit <= 0 {
		opts.VoiceLimit = grid.NumChannels()
	}
	if opts.OnRow == nil {
		opts.OnRow = func(int) {}
	}
	if opts.OnError == nil {
		opts.OnError = func(int, error) {}
	}
	return &Engine{
		grid:      grid,
		cfg:       cfg,
		player:    player,
		opts:      opts,
		activeRow: -1,
		channels:  make([]channelState, grid.NumChannels()),
	}
}

// Playing reports whether the transport is running.
func (e *Engine) Playing() bool { return e.playing }

// ActiveRow is the row most recently triggered, -1 before the first
// trigger. It is distinct from any edit cursor the host keeps.
func (e *Engine) ActiveRow() int { return e.activeRow }

// NextRow is the row the clock will trigger next.
func (e *Engine) NextRow() int { return e.nextRow }

// Play starts the transport from the top: the accumulator is cleared and
// row 0 is triggered right away, so playback starts on the downbeat
// instead of one silent step later.
func (e *Engine) Play() {
	e.playing = true
	e.acc = 0
	e.nextRow = 0
	e.triggerRow(0)
	e.nextRow = 1 % e.grid.NumRows()
}

// Stop halts the transport, leaving the next-row pointer on the host's
// cursor row. Every queued request is withdrawn and every sounding voice
// is cut.
func (e *Engine) Stop(cursorRow int) {
	e.playing = false
	e.acc = 0
	e.nextRow = cursorRow
	e.queue = e.queue[:0]
	for c := range e.channels {
		e.stopVoice(c)
	}
}

// Update advances the clock by dt seconds. Each whole step the
// accumulator covers triggers one row; the loop keeps going until the
// remainder is shorter than a step, so a coarse caller tick never drops
// rows. The request queue is drained once at the end even when the
// transport is stopped, which is how a retrigger issued between ticks
// becomes audible.
func (e *Engine) Update(dt float64) {
	e.reap()
	if e.playing {
		e.acc += dt
		for step := e.stepSeconds(); e.acc >= step; step = e.stepSeconds() {
			e.acc -= step
			e.triggerRow(e.nextRow)
			e.nextRow = (e.nextRow + 1) % e.grid.NumRows()
		}
	}
	e.drain()
}

// triggerRow applies one row across all channels: muted channels are
// skipped (and any stale queued request for them withdrawn), note cuts
// silence the channel, and sounding notes replace whatever the channel
// was doing.
func (e *Engine) triggerRow(row int) {
	e.activeRow = row
	for c := 0; c < e.grid.NumChannels(); c++ {
		if e.cfg.ChannelMuted(c) {
			e.purge(c)
			continue
		}
		st := e.grid.Step(row, c)
		switch st.Kind {
		case StepOff:
			e.stopVoice(c)
		case StepNote:
			e.stopVoice(c)
			r := e.resolve(row, c, st)
			ch := &e.channels[c]
			ch.last = r.note
			ch.hasLast = true
			e.queue = append(e.queue, request{channel: c, key: r.key, params: r.params})
		}
	}
	e.opts.OnRow(row)
}

func (e *Engine) stepSeconds() float64 {
	return StepSeconds(e.cfg.BPM())
}

// sustainSeconds converts the grid scan into wall-clock time at the
// current tempo, floored so every clip has audible length.
func (e *Engine) sustainSeconds(row, channel int) float64 {
	sec := float64(e.grid.SustainSteps(row, channel)) * e.stepSeconds()
	if sec < minSustainSec {
		sec = minSustainSec
	}
	return sec
}
