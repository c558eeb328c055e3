// Package rivi is a grid tracker core: a fixed-size pattern of notes and
// effects, a clock that fires pattern rows at musical subdivisions, and
// the bookkeeping that turns triggered cells into short synthesized
// clips. A Session ties one pattern to playback and editing; the binaries
// under cmd put terminal and windowed front ends on it.
package rivi

import (
	"io"
	"log"
	"sync"

	"github.com/askorpi/rivi/internal/audio"
	"github.com/askorpi/rivi/internal/sequencer"
	"github.com/askorpi/rivi/internal/synth"
)

// AudioBackend names how a session turns clips into sound.
type AudioBackend string

const (
	// BackendOto writes to the sound device directly. The default, and
	// the right choice for terminal hosts.
	BackendOto AudioBackend = "oto"
	// BackendEbiten plays through the shared ebiten audio context, for
	// hosts that are themselves ebiten programs.
	BackendEbiten AudioBackend = "ebiten"
	// BackendDiscard produces no sound.
	BackendDiscard AudioBackend = "discard"
)

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	sampleRate  int
	backend     AudioBackend
	sink        audio.Sink
	instruments []Instrument
	logger      *log.Logger
	voiceLimit  int
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		sampleRate: sequencer.DefaultSampleRate,
		backend:    BackendOto,
	}
}

func WithSampleRate(rate int) SessionOption {
	return func(cfg *sessionConfig) {
		if rate > 0 {
			cfg.sampleRate = rate
		}
	}
}

func WithAudioBackend(backend AudioBackend) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.backend = backend
	}
}

// WithInstruments replaces the built-in instrument table.
func WithInstruments(instruments []Instrument) SessionOption {
	return func(cfg *sessionConfig) {
		if len(instruments) > 0 {
			cfg.instruments = instruments
		}
	}
}

// WithLogger routes per-note synthesis failures somewhere visible. The
// default logger is silent.
func WithLogger(logger *log.Logger) SessionOption {
	return func(cfg *sessionConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithVoiceLimit caps simultaneously sounding voices. 0 keeps the
// default of one voice per channel.
func WithVoiceLimit(limit int) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.voiceLimit = limit
	}
}

// withSink substitutes the audio sink outright, for offline rendering
// and tests.
func withSink(sink audio.Sink) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.sink = sink
	}
}

// Session owns a song and everything needed to edit and play it: the
// mutable settings, the instrument table, the playback engine, and the
// audio backend. All methods are safe for one host loop; the mutex keeps
// an edit from landing in the middle of a clock tick.
type Session struct {
	mu sync.Mutex

	song        *Song
	settings    Settings
	instruments []Instrument
	logger      *log.Logger

	engine *sequencer.Engine
	player *audio.ClipPlayer
	sink   audio.Sink

	cursorRow     int
	cursorChannel int
}

// NewSession wires a session around the given song. A nil song starts a
// fresh default-size pattern.
func NewSession(song *Song, opts ...SessionOption) *Session {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if song == nil {
		song = NewSong(DefaultRows, DefaultChannels)
	}
	if cfg.instruments == nil {
		cfg.instruments = DefaultInstruments()
	}
	if cfg.logger == nil {
		cfg.logger = log.New(io.Discard, "", 0)
	}

	if cfg.sink == nil {
		cfg.sink = newSink(cfg.backend, cfg.sampleRate)
	}

	s := &Session{
		song:        song,
		settings:    NewSettings(song.Pattern.NumChannels()),
		instruments: cfg.instruments,
		logger:      cfg.logger,
		sink:        cfg.sink,
	}
	if song.Meta.BPM > 0 {
		s.settings.SetBPM(song.Meta.BPM)
	}
	s.player = audio.NewClipPlayer(nil, s.sink)
	s.engine = sequencer.New(gridAdapter{song.Pattern}, configAdapter{s}, s.player, sequencer.Options{
		SampleRate: cfg.sampleRate,
		VoiceLimit: cfg.voiceLimit,
		OnError: func(channel int, err error) {
			cfg.logger.Printf("channel %d: synthesis failed: %v", channel, err)
		},
	})
	return s
}

func newSink(backend AudioBackend, sampleRate int) audio.Sink {
	switch backend {
	case BackendEbiten:
		return audio.NewEbitenSink(sampleRate)
	case BackendDiscard:
		return audio.DiscardSink{}
	default:
		return audio.NewOtoSink(sampleRate)
	}
}

// Close stops playback and releases the audio backend.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Stop(s.cursorRow)
	return s.sink.Close()
}

// gridAdapter exposes the pattern to the engine in trigger terms.
type gridAdapter struct {
	p *Pattern
}

func (g gridAdapter) NumRows() int                      { return g.p.NumRows() }
func (g gridAdapter) NumChannels() int                  { return g.p.NumChannels() }
func (g gridAdapter) SustainSteps(row, channel int) int { return g.p.SustainSteps(row, channel) }

func (g gridAdapter) Step(row, channel int) sequencer.Step {
	st := g.p.At(row, channel)
	out := sequencer.Step{ReleaseScale: st.Effect.ReleaseScale()}
	switch {
	case st.Note.IsOff():
		out.Kind = sequencer.StepOff
	case st.Note.IsSounding():
		out.Kind = sequencer.StepNote
		out.Frequency = st.Note.Frequency()
		out.Instrument, _ = st.Note.Instrument()
		out.Detune = st.Effect.DetuneSemitones()
	}
	return out
}

// configAdapter exposes the live settings to the engine, so edits take
// effect on the next step without any replay plumbing.
type configAdapter struct {
	s *Session
}

func (c configAdapter) BPM() float64                  { return c.s.settings.BPM }
func (c configAdapter) GlobalRelease() float64        { return c.s.settings.GlobalRelease }
func (c configAdapter) ChannelMuted(ch int) bool      { return c.s.settings.Channels[ch].Muted }
func (c configAdapter) ChannelRelease(ch int) float64 { return c.s.settings.Channels[ch].Release }

func (c configAdapter) Instrument(index int) sequencer.Instrument {
	insts := c.s.instruments
	inst := insts[((index%len(insts))+len(insts))%len(insts)]
	return sequencer.Instrument{
		Wave:      synth.Wave(inst.Wave),
		Attack:    inst.Attack,
		Decay:     inst.Decay,
		Sustain:   inst.Sustain,
		Release:   inst.Release,
		Amplitude: inst.Amplitude,
	}
}

// Update advances playback by dt seconds. Hosts call it once per frame.
func (s *Session) Update(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Update(dt)
}

// Play starts playback from row 0 regardless of where the cursor is.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Play()
}

// Stop halts playback, parks the clock on the cursor row, and silences
// every channel.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Stop(s.cursorRow)
}

// TogglePlay flips between playing and stopped.
func (s *Session) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine.Playing() {
		s.engine.Stop(s.cursorRow)
	} else {
		s.engine.Play()
	}
}

func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Playing()
}

// ActiveRow is the row playback most recently triggered, -1 before any.
func (s *Session) ActiveRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ActiveRow()
}

// MoveCursor shifts the edit cursor, wrapping at the pattern edges.
func (s *Session) MoveCursor(dRow, dChannel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.song.Pattern
	s.cursorRow = wrap(s.cursorRow+dRow, p.NumRows())
	s.cursorChannel = wrap(s.cursorChannel+dChannel, p.NumChannels())
}

// SetCursor places the edit cursor, clamping into the grid.
func (s *Session) SetCursor(row, channel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.song.Pattern
	s.cursorRow = clampInt(row, 0, p.NumRows()-1)
	s.cursorChannel = clampInt(channel, 0, p.NumChannels()-1)
}

// Cursor reports the edit cursor position.
func (s *Session) Cursor() (row, channel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursorRow, s.cursorChannel
}

// InsertNote writes a sounding note at the cursor: the pitch is the given
// offset into the current octave, the instrument is the current
// selection.
func (s *Session) InsertNote(pitchOffset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	midi := MidiForOctave(s.settings.Octave, pitchOffset)
	s.song.Pattern.SetNote(s.cursorRow, s.cursorChannel, NewNote(midi, s.settings.Instrument))
}

// InsertNoteOff writes a note cut at the cursor.
func (s *Session) InsertNoteOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.song.Pattern.SetNote(s.cursorRow, s.cursorChannel, NoteOff())
}

// ClearCell empties the cell under the cursor.
func (s *Session) ClearCell() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.song.Pattern.ClearCell(s.cursorRow, s.cursorChannel)
}

// ClearRow empties the cursor's whole row.
func (s *Session) ClearRow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.song.Pattern.ClearRow(s.cursorRow)
}

// ClearRowEffects drops the effects on the cursor's row, keeping notes.
func (s *Session) ClearRowEffects() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.song.Pattern.ClearRowEffects(s.cursorRow)
}

// ClearCellEffect disables the effect under the cursor, keeping the note.
func (s *Session) ClearCellEffect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.song.Pattern.SetEffect(s.cursorRow, s.cursorChannel, Effect{})
}

// SetEffectNibble writes one hex digit of the cursor cell's effect byte,
// enabling the effect.
func (s *Session) SetEffectNibble(high bool, nibble byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.song.Pattern.At(s.cursorRow, s.cursorChannel)
	s.song.Pattern.SetEffect(s.cursorRow, s.cursorChannel, st.Effect.WithNibble(high, nibble))
}

// ToggleMute flips a channel's mute flag. Muting silences the channel at
// once: its sounding voice is cut and any queued note withdrawn.
func (s *Session) ToggleMute(channel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := &s.settings.Channels[channel]
	ch.Muted = !ch.Muted
	if ch.Muted {
		s.engine.MuteChannel(channel)
	}
}

// SetBPM changes the tempo, clamped; the next step already runs at the
// new rate.
func (s *Session) SetBPM(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.SetBPM(bpm)
}

// SetOctave changes the note-entry octave, clamped.
func (s *Session) SetOctave(octave int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.SetOctave(octave)
}

// SelectInstrument picks the instrument new notes are entered with.
func (s *Session) SelectInstrument(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Instrument = clampInt(index, 0, len(s.instruments)-1)
}

// SetChannelRelease rescales a channel's release and reissues its
// remembered note so the change is heard immediately.
func (s *Session) SetChannelRelease(channel int, scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.SetChannelRelease(channel, scale)
	s.engine.Retrigger(channel)
}

// SetGlobalRelease rescales every channel's release and reissues all
// remembered notes.
func (s *Session) SetGlobalRelease(scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.SetGlobalRelease(scale)
	s.engine.RetriggerAll()
}

// SetInstrumentProfile replaces one instrument table entry. Cached clips
// are invalidated, since they bake in the old envelope, and remembered
// notes are reissued with the new shape.
func (s *Session) SetInstrumentProfile(index int, inst Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.instruments) {
		return
	}
	s.instruments[index] = inst
	s.player.Cache().Reset()
	s.engine.RetriggerAll()
}

// SetInstruments replaces the whole instrument table, as a preset load
// does. Cached clips are invalidated and remembered notes reissued.
func (s *Session) SetInstruments(instruments []Instrument) {
	if len(instruments) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments = append([]Instrument(nil), instruments...)
	if s.settings.Instrument >= len(s.instruments) {
		s.settings.Instrument = len(s.instruments) - 1
	}
	s.player.Cache().Reset()
	s.engine.RetriggerAll()
}

// Song hands back the underlying song for saving and export. The caller
// must not mutate it while playback runs.
func (s *Session) Song() *Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.song
}

// Save writes the song to path, carrying the session's tempo into the
// metadata.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.song.Meta.BPM = s.settings.BPM
	return SaveSong(path, s.song)
}

// NumRows and NumChannels report the pattern shape.
func (s *Session) NumRows() int     { return s.song.Pattern.NumRows() }
func (s *Session) NumChannels() int { return s.song.Pattern.NumChannels() }

// RowSteps returns a copy of one row for display; mutating it never
// reaches the pattern.
func (s *Session) RowSteps(row int) []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.song.Pattern.Row(row)
}

func (s *Session) BPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.BPM
}

func (s *Session) Octave() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Octave
}

// CurrentInstrument is the instrument index new notes are entered with.
func (s *Session) CurrentInstrument() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Instrument
}

// Instruments returns a copy of the instrument table.
func (s *Session) Instruments() []Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Instrument(nil), s.instruments...)
}

func (s *Session) GlobalRelease() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.GlobalRelease
}

func (s *Session) ChannelMuted(channel int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Channels[channel].Muted
}

func (s *Session) ChannelRelease(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Channels[channel].Release
}

// ChannelLevel is the sounding amplitude of a channel, 0 when silent.
// Front ends drive their meters from it.
func (s *Session) ChannelLevel(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ChannelLevel(channel)
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
