package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/askorpi/rivi"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	session := rivi.NewSession(rivi.NewSong(4, 2), rivi.WithAudioBackend(rivi.BackendDiscard))
	return New(session, "song.json")
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("update returned %T", next)
	}
	return out
}

func TestViewShowsGridAndState(t *testing.T) {
	m := newTestModel(t)
	m.session.InsertNote(0)
	out := m.View()
	for _, want := range []string{"C4", "bpm 120", "octave 4", "ch1", "stopped", "---"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}

func TestPianoKeysInsertNotes(t *testing.T) {
	m := newTestModel(t)
	update(t, m, keyMsg("z"))
	midi, _ := m.session.RowSteps(0)[0].Note.Midi()
	if midi != 60 {
		t.Fatalf("z inserted midi %d, want 60", midi)
	}
	update(t, m, keyMsg("q"))
	midi, _ = m.session.RowSteps(0)[0].Note.Midi()
	if midi != 72 {
		t.Fatalf("q inserted midi %d, want 72 one octave up", midi)
	}
}

func TestSpaceTogglesTransport(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg(" "))
	if !m.session.Playing() {
		t.Fatalf("space did not start playback")
	}
	m = update(t, m, keyMsg(" "))
	if m.session.Playing() {
		t.Fatalf("second space did not stop playback")
	}
}

func TestTickPumpsClockAndReschedules(t *testing.T) {
	m := newTestModel(t)
	m.session.InsertNote(0)
	m = update(t, m, keyMsg(" "))
	next, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatalf("tick did not schedule the next tick")
	}
	m = next.(Model)
	if got := m.session.ActiveRow(); got != 0 {
		t.Fatalf("active row after first tick = %d, want 0", got)
	}
}

func TestMuteKeyTogglesChannel(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg("!"))
	if !m.session.ChannelMuted(0) {
		t.Fatalf("shift+1 did not mute channel 0")
	}
	m = update(t, m, keyMsg("@"))
	if !m.session.ChannelMuted(1) {
		t.Fatalf("shift+2 did not mute channel 1")
	}
}

func TestEffectCommandCycle(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg("/"))
	e := m.session.RowSteps(0)[0].Effect
	if !e.Enabled || e.Command() != rivi.EffectDetune || e.Param() != 8 {
		t.Fatalf("first cycle = %+v, want centered detune", e)
	}
	m = update(t, m, keyMsg("/"))
	e = m.session.RowSteps(0)[0].Effect
	if e.Command() != rivi.EffectRelease {
		t.Fatalf("second cycle = %+v, want release", e)
	}
	m = update(t, m, keyMsg("/"))
	e = m.session.RowSteps(0)[0].Effect
	if e.Enabled {
		t.Fatalf("third cycle = %+v, want cleared", e)
	}
}

func TestDetuneKeysNudgeParam(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg("9"))
	e := m.session.RowSteps(0)[0].Effect
	if e.Command() != rivi.EffectDetune || e.Param() != 7 {
		t.Fatalf("first nudge = %+v, want detune one tick flat", e)
	}
	m = update(t, m, keyMsg("0"))
	m = update(t, m, keyMsg("0"))
	e = m.session.RowSteps(0)[0].Effect
	if e.Param() != 9 {
		t.Fatalf("param = %d, want 9", e.Param())
	}
}

func TestOctaveKeys(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg("["))
	if got := m.session.Octave(); got != 3 {
		t.Fatalf("octave = %d, want 3", got)
	}
	m = update(t, m, keyMsg("]"))
	m = update(t, m, keyMsg("]"))
	if got := m.session.Octave(); got != 5 {
		t.Fatalf("octave = %d, want 5", got)
	}
}

func TestInstrumentKeyWrapsAroundTheTable(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg("i"))
	if got := m.session.CurrentInstrument(); got != 1 {
		t.Fatalf("instrument after i = %d, want 1", got)
	}
	for i := 0; i < len(m.session.Instruments())-1; i++ {
		m = update(t, m, keyMsg("i"))
	}
	if got := m.session.CurrentInstrument(); got != 0 {
		t.Fatalf("instrument after a full cycle = %d, want 0", got)
	}
}
