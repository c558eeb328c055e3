package rivi

import (
	"path/filepath"
	"testing"

	"github.com/askorpi/rivi/internal/audio"
)

type testSink struct {
	clips   [][]float32
	handles []*testHandle
}

type testHandle struct {
	stopped bool
}

func (h *testHandle) Stop()           { h.stopped = true }
func (h *testHandle) IsPlaying() bool { return !h.stopped }

func (s *testSink) Play(clip []float32) (audio.Handle, error) {
	s.clips = append(s.clips, clip)
	h := &testHandle{}
	s.handles = append(s.handles, h)
	return h, nil
}

func (s *testSink) Close() error { return nil }

func newTestSession(rows, channels int) (*Session, *testSink) {
	sink := &testSink{}
	s := NewSession(NewSong(rows, channels), withSink(sink), WithSampleRate(8000))
	return s, sink
}

func TestCursorWrapsAtEdges(t *testing.T) {
	s, _ := newTestSession(4, 2)
	s.MoveCursor(-1, -1)
	if r, c := s.Cursor(); r != 3 || c != 1 {
		t.Fatalf("cursor = (%d,%d), want (3,1)", r, c)
	}
	s.MoveCursor(1, 1)
	if r, c := s.Cursor(); r != 0 || c != 0 {
		t.Fatalf("cursor = (%d,%d), want (0,0)", r, c)
	}
}

func TestInsertNoteUsesOctaveAndInstrument(t *testing.T) {
	s, _ := newTestSession(4, 2)
	s.SetOctave(5)
	s.SelectInstrument(2)
	s.InsertNote(0)
	st := s.RowSteps(0)[0]
	midi, _ := st.Note.Midi()
	inst, _ := st.Note.Instrument()
	if midi != 72 || inst != 2 {
		t.Fatalf("inserted note = midi %d instrument %d, want 72 and 2", midi, inst)
	}
}

func TestEffectNibbleEditing(t *testing.T) {
	s, _ := newTestSession(4, 2)
	s.SetEffectNibble(true, EffectRelease)
	s.SetEffectNibble(false, 3)
	e := s.RowSteps(0)[0].Effect
	if !e.Enabled || e.Value != 0x43 {
		t.Fatalf("effect = %+v, want enabled 0x43", e)
	}
	if got := e.String(); got != "R3" {
		t.Fatalf("effect display = %q, want R3", got)
	}
}

func TestPlayStartsOnRowZeroAndSounds(t *testing.T) {
	s, sink := newTestSession(4, 2)
	s.InsertNote(0)
	s.SetCursor(2, 0) // cursor elsewhere must not matter
	s.Play()
	s.Update(0)
	if got := s.ActiveRow(); got != 0 {
		t.Fatalf("active row = %d, want 0", got)
	}
	if len(sink.clips) != 1 {
		t.Fatalf("expected one sounding clip, got %d", len(sink.clips))
	}
}

func TestToggleMuteSilencesChannel(t *testing.T) {
	s, sink := newTestSession(4, 2)
	s.InsertNote(0)
	s.Play()
	s.Update(0)
	s.ToggleMute(0)
	if !s.ChannelMuted(0) {
		t.Fatalf("expected channel 0 muted")
	}
	if !sink.handles[0].stopped {
		t.Fatalf("expected the sounding voice cut on mute")
	}
	s.ToggleMute(0)
	if s.ChannelMuted(0) {
		t.Fatalf("expected channel 0 unmuted after second toggle")
	}
}

func TestChannelReleaseEditIsHeardImmediately(t *testing.T) {
	s, sink := newTestSession(4, 1)
	s.SetBPM(40) // long steps keep the release away from its bounds
	s.InsertNote(0)
	s.Play()
	s.Update(0)
	if len(sink.clips) != 1 {
		t.Fatalf("expected one clip before the edit, got %d", len(sink.clips))
	}
	s.SetChannelRelease(0, 1.5)
	s.Update(0)
	if len(sink.clips) != 2 {
		t.Fatalf("expected a reissued clip, got %d", len(sink.clips))
	}
	if !sink.handles[0].stopped {
		t.Fatalf("expected the old voice stopped")
	}
	if len(sink.clips[1]) <= len(sink.clips[0]) {
		t.Fatalf("expected a longer tail, got %d then %d samples", len(sink.clips[0]), len(sink.clips[1]))
	}
}

func TestStopParksClockOnCursor(t *testing.T) {
	s, sink := newTestSession(8, 1)
	s.InsertNote(0)
	s.Play()
	s.Update(0)
	s.SetCursor(5, 0)
	s.Stop()
	if s.Playing() {
		t.Fatalf("expected transport stopped")
	}
	if !sink.handles[0].stopped {
		t.Fatalf("expected voices silenced on stop")
	}
}

func TestSongMetaBPMAppliesToSession(t *testing.T) {
	song := NewSong(4, 2)
	song.Meta.BPM = 90
	s := NewSession(song, withSink(&testSink{}))
	if got := s.BPM(); got != 90 {
		t.Fatalf("session BPM = %v, want 90 from metadata", got)
	}
}

func TestSettingsClampToTheirBounds(t *testing.T) {
	s, _ := newTestSession(4, 2)
	s.SetBPM(10)
	if got := s.BPM(); got != MinBPM {
		t.Fatalf("BPM = %v, want floor %v", got, MinBPM)
	}
	s.SetBPM(1000)
	if got := s.BPM(); got != MaxBPM {
		t.Fatalf("BPM = %v, want ceiling %v", got, MaxBPM)
	}
	s.SetGlobalRelease(0)
	if got := s.GlobalRelease(); got != MinReleaseScale {
		t.Fatalf("global release = %v, want floor %v", got, MinReleaseScale)
	}
	s.SetChannelRelease(1, 99)
	if got := s.ChannelRelease(1); got != MaxReleaseScale {
		t.Fatalf("channel release = %v, want ceiling %v", got, MaxReleaseScale)
	}
	s.SetOctave(-3)
	if got := s.Octave(); got != 0 {
		t.Fatalf("octave = %d, want floor 0", got)
	}
	s.SetOctave(42)
	if got := s.Octave(); got != 8 {
		t.Fatalf("octave = %d, want ceiling 8", got)
	}
}

func TestSaveCarriesSessionTempo(t *testing.T) {
	s, _ := newTestSession(4, 2)
	s.SetOctave(3)
	s.InsertNote(7)
	s.SetBPM(150)
	path := filepath.Join(t.TempDir(), "song.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadSong(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Meta.BPM != 150 {
		t.Fatalf("loaded BPM = %v, want 150", loaded.Meta.BPM)
	}
	midi, _ := loaded.Pattern.At(0, 0).Note.Midi()
	if midi != 55 {
		t.Fatalf("loaded note midi = %d, want 55", midi)
	}
}

func TestInstrumentEditInvalidatesCacheAndRetriggers(t *testing.T) {
	s, sink := newTestSession(4, 1)
	s.SetBPM(40)
	s.InsertNote(0)
	s.Play()
	s.Update(0)
	insts := s.Instruments()
	edited := insts[0]
	edited.Release = 2.5
	s.SetInstrumentProfile(0, edited)
	s.Update(0)
	if len(sink.clips) != 2 {
		t.Fatalf("expected the edited instrument reissued, got %d clips", len(sink.clips))
	}
	if len(sink.clips[1]) <= len(sink.clips[0]) {
		t.Fatalf("expected the new release shape audible, got %d then %d samples",
			len(sink.clips[0]), len(sink.clips[1]))
	}
}
