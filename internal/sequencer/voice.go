package sequencer

import (
	"github.com/askorpi/rivi/internal/audio"
	"github.com/askorpi/rivi/internal/synth"
)

// channelState is the single record kept per channel: the sounding voice,
// its age for steal ordering, and the last-triggered note so release
// edits can reissue it.
type channelState struct {
	handle  audio.Handle
	seq     uint64
	last    lastNote
	hasLast bool
}

// lastNote is everything needed to issue a note again later. Frequency
// already includes detune; releaseScale is the per-note multiplier the
// cell carried.
type lastNote struct {
	instrument   int
	frequency    float64
	sustainSec   float64
	amplitude    float64
	releaseScale float64
}

// request is one queued ask for a voice. Requests wait in the queue until
// the next update tick; until then they can be withdrawn by channel.
type request struct {
	channel int
	key     audio.ClipKey
	params  synth.Params
}

// stopVoice silences a channel: its queued request is withdrawn and its
// sounding voice, if any, is cut.
func (e *Engine) stopVoice(channel int) {
	e.purge(channel)
	ch := &e.channels[channel]
	if ch.handle != nil {
		ch.handle.Stop()
		ch.handle = nil
	}
}

// purge removes every queued request for the channel, compacting in
// place.
func (e *Engine) purge(channel int) {
	kept := e.queue[:0]
	for _, req := range e.queue {
		if req.channel != channel {
			kept = append(kept, req)
		}
	}
	e.queue = kept
}

// drain realizes the queued requests into voices. Called once per update
// tick; a request that fails is reported and dropped without touching the
// rest of the queue.
func (e *Engine) drain() {
	if len(e.queue) == 0 {
		return
	}
	pending := e.queue
	e.queue = e.queue[:0]
	for _, req := range pending {
		e.realize(req)
	}
}

func (e *Engine) realize(req request) {
	if e.liveVoices() >= e.opts.VoiceLimit {
		e.stealOldest()
	}
	handle, err := e.player.Start(req.key, func() []float32 { return synth.Render(req.params) })
	if err != nil {
		e.opts.OnError(req.channel, err)
		return
	}
	e.seq++
	ch := &e.channels[req.channel]
	ch.handle = handle
	ch.seq = e.seq
}

// reap clears handles whose voices finished on their own, so they no
// longer count against the voice limit.
func (e *Engine) reap() {
	for c := range e.channels {
		if h := e.channels[c].handle; h != nil && !h.IsPlaying() {
			e.channels[c].handle = nil
		}
	}
}

func (e *Engine) liveVoices() int {
	n := 0
	for c := range e.channels {
		if h := e.channels[c].handle; h != nil && h.IsPlaying() {
			n++
		}
	}
	return n
}

func (e *Engine) stealOldest() {
	oldest := -1
	for c := range e.channels {
		if h := e.channels[c].handle; h == nil || !h.IsPlaying() {
			continue
		}
		if oldest < 0 || e.channels[c].seq < e.channels[oldest].seq {
			oldest = c
		}
	}
	if oldest >= 0 {
		e.channels[oldest].handle.Stop()
		e.channels[oldest].handle = nil
	}
}

// MuteChannel silences a channel that was just muted: the queued request
// is withdrawn and the sounding voice is cut, not merely left to decay.
func (e *Engine) MuteChannel(channel int) {
	e.stopVoice(channel)
}

// Retrigger stops and reissues the channel's remembered note with a
// freshly resolved release, so a release edit is heard immediately
// instead of on the next scheduled trigger. Channels with no remembered
// note, and muted channels, are left alone.
func (e *Engine) Retrigger(channel int) {
	ch := &e.channels[channel]
	if !ch.hasLast || e.cfg.ChannelMuted(channel) {
		return
	}
	e.stopVoice(channel)
	r := e.resolveNote(channel, ch.last)
	ch.last = r.note
	e.queue = append(e.queue, request{channel: channel, key: r.key, params: r.params})
}

// RetriggerAll reissues every channel's remembered note. Called after an
// edit that shifts release timing globally.
func (e *Engine) RetriggerAll() {
	for c := range e.channels {
		e.Retrigger(c)
	}
}

// ActiveVoices counts the channels with a sounding voice.
func (e *Engine) ActiveVoices() int {
	return e.liveVoices()
}

// ChannelActive reports whether the channel has a sounding voice.
func (e *Engine) ChannelActive(channel int) bool {
	h := e.channels[channel].handle
	return h != nil && h.IsPlaying()
}

// ChannelLevel is the amplitude of the channel's sounding voice, 0 when
// silent. Hosts drive their level meters from it.
func (e *Engine) ChannelLevel(channel int) float64 {
	if !e.ChannelActive(channel) {
		return 0
	}
	return e.channels[channel].last.amplitude
}
