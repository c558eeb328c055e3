package export

import (
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/askorpi/rivi"
)

type notedEvent struct {
	tick uint32
	on   bool
	key  uint8
}

func noteEvents(t *testing.T, track smf.Track) []notedEvent {
	t.Helper()
	var out []notedEvent
	var tick uint32
	for _, ev := range track {
		tick += ev.Delta
		var channel, key, velocity uint8
		if ev.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0 {
			out = append(out, notedEvent{tick, true, key})
		} else if ev.Message.GetNoteOff(&channel, &key, &velocity) {
			out = append(out, notedEvent{tick, false, key})
		}
	}
	return out
}

func TestConvertWritesReadableSMF(t *testing.T) {
	song := rivi.NewSong(8, 2)
	song.Meta.Title = "demo"
	song.Pattern.SetNote(0, 0, rivi.NewNote(60, 0))
	song.Pattern.SetNote(4, 0, rivi.NoteOff())
	song.Pattern.SetNote(2, 1, rivi.NewNote(67, 1))

	path := filepath.Join(t.TempDir(), "demo.mid")
	if err := WriteFile(path, song, Options{BPM: 150}); err != nil {
		t.Fatalf("write: %v", err)
	}

	rd, err := smf.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rd.Tracks) != 3 {
		t.Fatalf("track count = %d, want tempo track plus 2 channels", len(rd.Tracks))
	}
	tempos := rd.TempoChanges()
	if len(tempos) == 0 || tempos[0].BPM != 150 {
		t.Fatalf("tempo changes = %+v, want 150 BPM", tempos)
	}

	got := noteEvents(t, rd.Tracks[1])
	want := []notedEvent{{0, true, 60}, {960, false, 60}}
	if len(got) != len(want) {
		t.Fatalf("channel 0 events = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("channel 0 event %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// The lone note on channel 1 holds until the end of the single loop.
	got = noteEvents(t, rd.Tracks[2])
	want = []notedEvent{{480, true, 67}, {1920, false, 67}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("channel 1 event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestConvertEmitsPitchBendForDetune(t *testing.T) {
	song := rivi.NewSong(4, 1)
	song.Pattern.SetStep(0, 0, rivi.Step{
		Note:   rivi.NewNote(69, 0),
		Effect: rivi.EffectFromByte(0x30), // a full semitone down
	})
	// The second note carries the same detune, so the wheel is already in
	// place and no second bend should be written.
	song.Pattern.SetStep(2, 0, rivi.Step{
		Note:   rivi.NewNote(71, 0),
		Effect: rivi.EffectFromByte(0x30),
	})
	sm, err := Convert(song, Options{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	var bends int
	var tick uint32
	for _, ev := range sm.Tracks[1] {
		tick += ev.Delta
		var channel uint8
		var rel int16
		var abs uint16
		if ev.Message.GetPitchBend(&channel, &rel, &abs) {
			bends++
			if tick != 0 {
				t.Fatalf("bend at tick %d, want 0 alongside the first note-on", tick)
			}
			if rel != -4096 {
				t.Fatalf("bend value = %d, want -4096 for one semitone down", rel)
			}
		}
	}
	if bends != 1 {
		t.Fatalf("pitch bends = %d, want 1 for an unmoved wheel", bends)
	}
}

func TestBendReturnsToCenterForPlainNotes(t *testing.T) {
	song := rivi.NewSong(4, 1)
	song.Pattern.SetStep(0, 0, rivi.Step{
		Note:   rivi.NewNote(69, 0),
		Effect: rivi.EffectFromByte(0x30),
	})
	song.Pattern.SetNote(1, 0, rivi.NoteOff())
	song.Pattern.SetNote(2, 0, rivi.NewNote(60, 0))
	sm, err := Convert(song, Options{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	// Replay the track keeping the wheel state a receiver would hold, and
	// record where the wheel sits as each note starts.
	wheelAt := map[uint8]int16{}
	var wheel int16
	for _, ev := range sm.Tracks[1] {
		var channel, key, velocity uint8
		var rel int16
		var abs uint16
		switch {
		case ev.Message.GetPitchBend(&channel, &rel, &abs):
			wheel = rel
		case ev.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
			wheelAt[key] = wheel
		}
	}
	if got, ok := wheelAt[69]; !ok || got != -4096 {
		t.Fatalf("detuned note plays with wheel at %d, want -4096", got)
	}
	if got, ok := wheelAt[60]; !ok || got != 0 {
		t.Fatalf("plain note plays with wheel at %d, want center", got)
	}
}

func TestConvertLoopsRepeatThePattern(t *testing.T) {
	song := rivi.NewSong(4, 1)
	song.Pattern.SetNote(0, 0, rivi.NewNote(60, 0))
	song.Pattern.SetNote(1, 0, rivi.NoteOff())
	sm, err := Convert(song, Options{Loops: 2})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	got := noteEvents(t, sm.Tracks[1])
	want := []notedEvent{
		{0, true, 60}, {240, false, 60},
		{960, true, 60}, {1200, false, 60},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
