package audio

import "math"

// MixSink collects clips on a virtual timeline instead of playing them,
// for offline bounces. The caller moves the clock with SetNow between
// scheduling ticks; clips started at different ticks land at different
// offsets, a voice stopped early is truncated at the stop point, and
// Mix folds everything into one buffer at the end.
type MixSink struct {
	rate   int
	now    float64
	voices []*mixVoice
}

type mixVoice struct {
	sink       *MixSink
	startFrame int
	clip       []float32
	cutFrame   int // -1 while uncut
}

func NewMixSink(sampleRate int) *MixSink {
	return &MixSink{rate: sampleRate}
}

// SetNow moves the virtual clock to t seconds.
func (s *MixSink) SetNow(t float64) { s.now = t }

func (s *MixSink) frame() int {
	return int(math.Round(s.now * float64(s.rate)))
}

func (s *MixSink) Play(clip []float32) (Handle, error) {
	v := &mixVoice{sink: s, startFrame: s.frame(), clip: clip, cutFrame: -1}
	s.voices = append(s.voices, v)
	return v, nil
}

func (s *MixSink) Close() error { return nil }

// Mix sums every placed clip into one interleaved stereo buffer, long
// enough for the last tail to finish, clamped to full scale.
func (s *MixSink) Mix() []float32 {
	end := 0
	for _, v := range s.voices {
		if last := v.startFrame + v.frames(); last > end {
			end = last
		}
	}
	out := make([]float32, end*2)
	for _, v := range s.voices {
		base := v.startFrame * 2
		n := v.frames() * 2
		for i := 0; i < n; i++ {
			sum := out[base+i] + v.clip[i]
			if sum > 1 {
				sum = 1
			} else if sum < -1 {
				sum = -1
			}
			out[base+i] = sum
		}
	}
	return out
}

func (v *mixVoice) frames() int {
	frames := len(v.clip) / 2
	if v.cutFrame >= 0 && v.cutFrame-v.startFrame < frames {
		frames = v.cutFrame - v.startFrame
		if frames < 0 {
			frames = 0
		}
	}
	return frames
}

func (v *mixVoice) Stop() {
	if v.cutFrame < 0 {
		v.cutFrame = v.sink.frame()
	}
}

func (v *mixVoice) IsPlaying() bool {
	if v.cutFrame >= 0 {
		return false
	}
	return v.sink.frame() < v.startFrame+len(v.clip)/2
}
