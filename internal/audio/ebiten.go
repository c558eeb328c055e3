package audio

import (
	"fmt"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	ebitenContextOnce sync.Once
	ebitenContext     *ebitaudio.Context
	ebitenSampleRate  int
)

// The ebiten audio context is process-wide and carries one sample rate
// for its whole lifetime, so it is created once and later sinks must ask
// for the same rate.
func sharedEbitenContext(sampleRate int) (*ebitaudio.Context, error) {
	ebitenContextOnce.Do(func() {
		ebitenSampleRate = sampleRate
		ebitenContext = ebitaudio.NewContext(sampleRate)
	})
	if ebitenSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", ebitenSampleRate, sampleRate)
	}
	return ebitenContext, nil
}

// EbitenSink plays clips through the shared ebiten audio context. It is
// the natural backend when the host is itself an ebiten program.
type EbitenSink struct {
	sampleRate int
}

func NewEbitenSink(sampleRate int) *EbitenSink {
	return &EbitenSink{sampleRate: sampleRate}
}

func (s *EbitenSink) Play(clip []float32) (Handle, error) {
	ctx, err := sharedEbitenContext(s.sampleRate)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(newClipReader(clip))
	if err != nil {
		return nil, err
	}
	pl.Play()
	return &ebitenVoice{player: pl}, nil
}

// Close is a no-op: the shared context outlives any one sink.
func (s *EbitenSink) Close() error { return nil }

type ebitenVoice struct {
	mu      sync.Mutex
	player  *ebitaudio.Player
	stopped bool
}

func (v *ebitenVoice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return
	}
	v.stopped = true
	v.player.Pause()
	v.player.Close()
}

func (v *ebitenVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return false
	}
	return v.player.IsPlaying()
}
