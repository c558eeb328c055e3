package audio

import "sync"

// ClipKey identifies one generated clip. Lengths and multipliers are
// stored in rounded milli-units so float drift between resolutions of the
// same note still lands on the same entry.
type ClipKey struct {
	Instrument    int
	Midi          int
	ClipMillis    int
	ReleaseMillis int
}

// ClipCache memoizes generated clips by key: the first request for a key
// runs the builder, later requests share the stored samples. Stored clips
// are read-only by convention; every player wraps them in its own reader.
type ClipCache struct {
	mu    sync.Mutex
	clips map[ClipKey][]float32
}

func NewClipCache() *ClipCache {
	return &ClipCache{clips: make(map[ClipKey][]float32)}
}

// Get returns the clip for key, building it on first use.
func (c *ClipCache) Get(key ClipKey, build func() []float32) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if clip, ok := c.clips[key]; ok {
		return clip
	}
	clip := build()
	c.clips[key] = clip
	return clip
}

// Len reports how many distinct clips have been generated.
func (c *ClipCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clips)
}

// Reset drops every cached clip.
func (c *ClipCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clips = make(map[ClipKey][]float32)
}
