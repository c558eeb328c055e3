package audio

// ClipPlayer resolves a clip key to samples, generating them at most once
// per key, and hands the result to its sink. It is the bridge between
// the scheduling side, which only decides what should sound, and the
// backend that makes it sound.
type ClipPlayer struct {
	cache *ClipCache
	sink  Sink
}

func NewClipPlayer(cache *ClipCache, sink Sink) *ClipPlayer {
	if cache == nil {
		cache = NewClipCache()
	}
	return &ClipPlayer{cache: cache, sink: sink}
}

// Start plays the clip for key, building it through build when the key
// has not been seen before.
func (p *ClipPlayer) Start(key ClipKey, build func() []float32) (Handle, error) {
	return p.sink.Play(p.cache.Get(key, build))
}

// Cache exposes the player's clip cache so hosts can drop stale entries
// after an instrument profile edit.
func (p *ClipPlayer) Cache() *ClipCache { return p.cache }
