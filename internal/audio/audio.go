// Package audio turns precomputed sample clips into playing voices and
// memoizes the clips themselves. Two interchangeable backends are
// provided, one on the ebiten audio context and one directly on oto.
package audio

// Handle controls one playing voice.
type Handle interface {
	Stop()
	IsPlaying() bool
}

// Sink starts playback of interleaved stereo float32 clips.
type Sink interface {
	Play(clip []float32) (Handle, error)
	Close() error
}

// DiscardSink swallows every clip. It stands in for a real backend on
// hosts with no audio device and in tests.
type DiscardSink struct{}

func (DiscardSink) Play(clip []float32) (Handle, error) { return discardVoice{}, nil }
func (DiscardSink) Close() error                        { return nil }

type discardVoice struct{}

func (discardVoice) Stop()           {}
func (discardVoice) IsPlaying() bool { return false }
