package rivi

import (
	"github.com/askorpi/rivi/internal/audio"
	"github.com/askorpi/rivi/internal/sequencer"
)

// RenderSong bounces the song offline: the pattern is played through the
// same trigger path live playback uses, for the given number of loops,
// onto a virtual timeline. The result is interleaved stereo at the
// session sample rate and runs long enough for the final release tails
// to finish. The tempo comes from the song metadata, falling back to the
// default.
func RenderSong(song *Song, loops int, opts ...SessionOption) []float32 {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if song == nil {
		song = NewSong(DefaultRows, DefaultChannels)
	}
	if loops < 1 {
		loops = 1
	}

	mix := audio.NewMixSink(cfg.sampleRate)
	s := NewSession(song, append(opts, withSink(mix))...)
	stepSec := sequencer.StepSeconds(s.BPM())
	steps := loops * song.Pattern.NumRows()

	s.Play()
	s.Update(0)
	for k := 1; k < steps; k++ {
		mix.SetNow(float64(k) * stepSec)
		s.Update(stepSec)
	}
	return mix.Mix()
}

// RenderWAV bounces the song and wraps it in a float WAV container.
func RenderWAV(song *Song, loops int, opts ...SessionOption) []byte {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return audio.EncodeWAVFloat32(RenderSong(song, loops, opts...), cfg.sampleRate, 2)
}
