package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

// clipReader streams a finite float32 clip as little-endian bytes and
// returns io.EOF once the clip is exhausted, which lets the backends
// detect a naturally finished voice.
type clipReader struct {
	mu   sync.Mutex
	clip []float32
	pos  int
}

func newClipReader(clip []float32) *clipReader {
	return &clipReader{clip: clip}
}

func (r *clipReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := len(r.clip) - r.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	samples := len(p) / 4
	if samples > remaining {
		samples = remaining
	}
	if samples == 0 {
		return 0, nil
	}
	for i := 0; i < samples; i++ {
		u := math.Float32bits(r.clip[r.pos+i])
		binary.LittleEndian.PutUint32(p[i*4:], u)
	}
	r.pos += samples
	n := samples * 4
	if r.pos >= len(r.clip) {
		return n, io.EOF
	}
	return n, nil
}

func (r *clipReader) Close() error { return nil }
