package rivi

// Tuning bounds for the mutable playback settings.
const (
	MinBPM = 40
	MaxBPM = 300

	MinReleaseScale = 0.1
	MaxReleaseScale = 5.0

	minOctave = 0
	maxOctave = 8
)

// ChannelSettings is the per-channel mixer state.
type ChannelSettings struct {
	Muted   bool
	Release float64
}

// Settings is the session-scoped playback configuration. It is mutated
// only by explicit edit commands, never by the playback clock.
type Settings struct {
	BPM           float64
	GlobalRelease float64
	Octave        int
	Instrument    int
	Channels      []ChannelSettings
}

// NewSettings returns defaults for the given channel count: 120 BPM,
// unity release everywhere, octave 4.
func NewSettings(channels int) Settings {
	cs := make([]ChannelSettings, channels)
	for i := range cs {
		cs[i].Release = 1
	}
	return Settings{
		BPM:           120,
		GlobalRelease: 1,
		Octave:        4,
		Channels:      cs,
	}
}

// SetBPM clamps into [MinBPM, MaxBPM].
func (s *Settings) SetBPM(bpm float64) {
	s.BPM = clampFloat(bpm, MinBPM, MaxBPM)
}

// SetGlobalRelease clamps into [MinReleaseScale, MaxReleaseScale].
func (s *Settings) SetGlobalRelease(scale float64) {
	s.GlobalRelease = clampFloat(scale, MinReleaseScale, MaxReleaseScale)
}

// SetChannelRelease clamps into [MinReleaseScale, MaxReleaseScale].
func (s *Settings) SetChannelRelease(channel int, scale float64) {
	s.Channels[channel].Release = clampFloat(scale, MinReleaseScale, MaxReleaseScale)
}

// SetOctave clamps the note-entry octave to the displayable range.
func (s *Settings) SetOctave(octave int) {
	s.Octave = clampInt(octave, minOctave, maxOctave)
}
