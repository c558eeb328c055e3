package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoSampleRate  int
)

func sharedOtoContext(sampleRate int) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoContextErr = err
			return
		}
		<-ready
		otoContext = ctx
		otoSampleRate = sampleRate
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

// OtoSink plays clips straight through oto, for hosts that have no ebiten
// loop of their own (the command line player and the terminal editor).
type OtoSink struct {
	sampleRate int
}

func NewOtoSink(sampleRate int) *OtoSink {
	return &OtoSink{sampleRate: sampleRate}
}

func (s *OtoSink) Play(clip []float32) (Handle, error) {
	ctx, err := sharedOtoContext(s.sampleRate)
	if err != nil {
		return nil, err
	}
	pl := ctx.NewPlayer(newClipReader(clip))
	pl.Play()
	return &otoVoice{player: pl}, nil
}

// Close is a no-op: the shared context outlives any one sink.
func (s *OtoSink) Close() error { return nil }

type otoVoice struct {
	mu      sync.Mutex
	player  *oto.Player
	stopped bool
}

func (v *otoVoice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return
	}
	v.stopped = true
	v.player.Pause()
	v.player.Close()
}

func (v *otoVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return false
	}
	return v.player.IsPlaying()
}
