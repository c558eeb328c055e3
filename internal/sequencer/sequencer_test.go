package sequencer

import (
	"errors"
	"math"
	"testing"

	"github.com/askorpi/rivi/internal/audio"
	"github.com/askorpi/rivi/internal/synth"
)

type fakeGrid struct {
	rows     int
	channels int
	steps    map[[2]int]Step
}

func (g *fakeGrid) NumRows() int     { return g.rows }
func (g *fakeGrid) NumChannels() int { return g.channels }

func (g *fakeGrid) Step(row, channel int) Step {
	return g.steps[[2]int{row, channel}]
}

func (g *fakeGrid) SustainSteps(row, channel int) int {
	steps := 1
	for r := (row + 1) % g.rows; r != row; r = (r + 1) % g.rows {
		if g.Step(r, channel).Kind != StepEmpty {
			break
		}
		steps++
	}
	return steps
}

func (g *fakeGrid) set(row, channel int, st Step) {
	if g.steps == nil {
		g.steps = make(map[[2]int]Step)
	}
	g.steps[[2]int{row, channel}] = st
}

type fakeConfig struct {
	bpm     float64
	global  float64
	muted   []bool
	release []float64
	inst    Instrument
}

func newFakeConfig(channels int) *fakeConfig {
	release := make([]float64, channels)
	for i := range release {
		release[i] = 1
	}
	return &fakeConfig{
		bpm:     120,
		global:  1,
		muted:   make([]bool, channels),
		release: release,
		inst: Instrument{
			Wave:      synth.WaveSquare,
			Attack:    0.005,
			Decay:     0.05,
			Sustain:   0.7,
			Release:   1,
			Amplitude: 0.8,
		},
	}
}

func (c *fakeConfig) BPM() float64                  { return c.bpm }
func (c *fakeConfig) GlobalRelease() float64        { return c.global }
func (c *fakeConfig) ChannelMuted(ch int) bool      { return c.muted[ch] }
func (c *fakeConfig) ChannelRelease(ch int) float64 { return c.release[ch] }
func (c *fakeConfig) Instrument(int) Instrument     { return c.inst }

type fakeHandle struct {
	stopped bool
	done    bool
}

func (h *fakeHandle) Stop()           { h.stopped = true }
func (h *fakeHandle) IsPlaying() bool { return !h.stopped && !h.done }

type fakePlayer struct {
	calls   int
	keys    []audio.ClipKey
	handles []*fakeHandle
	failAt  int // 1-based call number that errs, 0 for never
}

func (p *fakePlayer) Start(key audio.ClipKey, build func() []float32) (audio.Handle, error) {
	p.calls++
	if p.calls == p.failAt {
		return nil, errors.New("generator fault")
	}
	p.keys = append(p.keys, key)
	h := &fakeHandle{}
	p.handles = append(p.handles, h)
	return h, nil
}

func noteStep(midi int) Step {
	return Step{
		Kind:         StepNote,
		Frequency:    440 * math.Pow(2, float64(midi-69)/12),
		ReleaseScale: 1,
	}
}

func TestStepSecondsAtTempo(t *testing.T) {
	if got := StepSeconds(140); math.Abs(got-0.1071) > 0.0001 {
		t.Fatalf("expected ~0.1071s per step at 140 BPM, got %v", got)
	}
	if got := StepSeconds(120); math.Abs(got-0.125) > 1e-9 {
		t.Fatalf("expected 0.125s per step at 120 BPM, got %v", got)
	}
}

func TestPlayTriggersRowZeroImmediately(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 1}
	grid.set(0, 0, noteStep(69))
	player := &fakePlayer{}
	var rows []int
	eng := New(grid, newFakeConfig(1), player, Options{OnRow: func(r int) { rows = append(rows, r) }})

	eng.Play()
	if len(rows) != 1 || rows[0] != 0 {
		t.Fatalf("expected row 0 triggered on play, got %v", rows)
	}
	if eng.ActiveRow() != 0 {
		t.Fatalf("expected active row 0, got %d", eng.ActiveRow())
	}
	// The request waits in the queue until the next tick.
	if player.calls != 0 {
		t.Fatalf("expected no voice before the first tick, got %d", player.calls)
	}
	eng.Update(0)
	if player.calls != 1 {
		t.Fatalf("expected 1 voice after the first tick, got %d", player.calls)
	}
}

func TestUpdateCatchesUpAndWraps(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 1}
	player := &fakePlayer{}
	var rows []int
	eng := New(grid, newFakeConfig(1), player, Options{OnRow: func(r int) { rows = append(rows, r) }})

	eng.Play()
	// Half a second at 120 BPM covers four whole steps in one tick.
	eng.Update(0.5)
	want := []int{0, 1, 2, 3, 0}
	if len(rows) != len(want) {
		t.Fatalf("expected rows %v, got %v", want, rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("expected rows %v, got %v", want, rows)
		}
	}
}

func TestTempoChangeTakesEffectNextStep(t *testing.T) {
	grid := &fakeGrid{rows: 8, channels: 1}
	cfg := newFakeConfig(1)
	var rows []int
	eng := New(grid, cfg, &fakePlayer{}, Options{OnRow: func(r int) { rows = append(rows, r) }})

	eng.Play()
	eng.Update(0.125)
	cfg.bpm = 240
	eng.Update(0.0625)
	want := []int{0, 1, 2}
	if len(rows) != len(want) || rows[1] != 1 || rows[2] != 2 {
		t.Fatalf("expected rows %v, got %v", want, rows)
	}
}

func TestInferredSustainSpansEmptyRows(t *testing.T) {
	grid := &fakeGrid{rows: 8, channels: 1}
	grid.set(0, 0, noteStep(69))
	grid.set(4, 0, noteStep(72))
	cfg := newFakeConfig(1)
	cfg.bpm = 140
	player := &fakePlayer{}
	eng := New(grid, cfg, player, Options{})

	eng.Play()
	eng.Update(0)
	if len(player.keys) == 0 {
		t.Fatalf("expected a realized voice")
	}
	// Three empty rows follow row 0, so the note holds for four steps;
	// the next note's own row is not part of it.
	sustain := 4 * StepSeconds(140)
	wantClip := int(math.Round((sustain + 0.9) * 1000))
	key := player.keys[0]
	if key.ReleaseMillis != 900 {
		t.Fatalf("expected release floored at 900ms, got %d", key.ReleaseMillis)
	}
	if key.ClipMillis != wantClip {
		t.Fatalf("expected clip length %dms, got %dms", wantClip, key.ClipMillis)
	}
}

func TestNoteOffCutsVoice(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 1}
	grid.set(0, 0, noteStep(69))
	grid.set(2, 0, Step{Kind: StepOff})
	player := &fakePlayer{}
	eng := New(grid, newFakeConfig(1), player, Options{})

	eng.Play()
	eng.Update(0)
	if player.calls != 1 || player.handles[0].stopped {
		t.Fatalf("expected one sounding voice, calls=%d", player.calls)
	}
	eng.Update(2 * 0.125)
	if !player.handles[0].stopped {
		t.Fatalf("expected the cut row to stop the voice")
	}
	if player.calls != 1 {
		t.Fatalf("expected no new voice from the cut, got %d calls", player.calls)
	}
}

func TestMuteWithdrawsQueuedRequest(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 2}
	grid.set(0, 0, noteStep(69))
	grid.set(0, 1, noteStep(81))
	player := &fakePlayer{}
	eng := New(grid, newFakeConfig(2), player, Options{})

	eng.Play()
	// Both requests are still queued; muting now must withdraw channel
	// 1's before it ever becomes a voice.
	eng.MuteChannel(1)
	eng.Update(0)
	if player.calls != 1 {
		t.Fatalf("expected only channel 0 realized, got %d calls", player.calls)
	}
	if player.keys[0].Midi != 69 {
		t.Fatalf("expected channel 0's note, got midi %d", player.keys[0].Midi)
	}
}

func TestMutedChannelSkippedAtTrigger(t *testing.T) {
	grid := &fakeGrid{rows: 2, channels: 2}
	grid.set(0, 0, noteStep(69))
	grid.set(0, 1, noteStep(81))
	cfg := newFakeConfig(2)
	cfg.muted[1] = true
	player := &fakePlayer{}
	eng := New(grid, cfg, player, Options{})

	eng.Play()
	eng.Update(0.5) // wraps past row 0 twice more
	for _, key := range player.keys {
		if key.Midi == 81 {
			t.Fatalf("expected no voice for the muted channel")
		}
	}
}

func TestMuteStopsSoundingVoice(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 1}
	grid.set(0, 0, noteStep(69))
	player := &fakePlayer{}
	eng := New(grid, newFakeConfig(1), player, Options{})

	eng.Play()
	eng.Update(0)
	if !eng.ChannelActive(0) {
		t.Fatalf("expected a sounding voice before mute")
	}
	eng.MuteChannel(0)
	if !player.handles[0].stopped {
		t.Fatalf("expected mute to cut the sounding voice")
	}
	if eng.ChannelActive(0) {
		t.Fatalf("expected channel silent after mute")
	}
}

func TestReleaseEditRetriggersRememberedNote(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 1}
	grid.set(0, 0, noteStep(69))
	cfg := newFakeConfig(1)
	cfg.bpm = 40 // long steps keep the release inside its bounds
	player := &fakePlayer{}
	eng := New(grid, cfg, player, Options{})

	eng.Play()
	eng.Update(0)
	first := player.keys[0]

	cfg.release[0] = 1.5
	eng.Retrigger(0)
	if !player.handles[0].stopped {
		t.Fatalf("expected the old voice stopped on retrigger")
	}
	eng.Update(0)
	if player.calls != 2 {
		t.Fatalf("expected a reissued voice, got %d calls", player.calls)
	}
	second := player.keys[1]
	if second.Midi != first.Midi || second.Instrument != first.Instrument {
		t.Fatalf("expected the remembered pitch and instrument, got %+v vs %+v", second, first)
	}
	if second.ReleaseMillis <= first.ReleaseMillis {
		t.Fatalf("expected a longer release, got %d then %d", first.ReleaseMillis, second.ReleaseMillis)
	}
	sustainBefore := first.ClipMillis - first.ReleaseMillis
	sustainAfter := second.ClipMillis - second.ReleaseMillis
	if diff := sustainAfter - sustainBefore; diff < -1 || diff > 1 {
		t.Fatalf("expected the remembered sustain, got %dms then %dms", sustainBefore, sustainAfter)
	}
}

func TestGlobalReleaseRetriggersAllChannels(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 2}
	grid.set(0, 0, noteStep(69))
	grid.set(0, 1, noteStep(76))
	cfg := newFakeConfig(2)
	cfg.bpm = 40
	player := &fakePlayer{}
	eng := New(grid, cfg, player, Options{})

	eng.Play()
	eng.Update(0)
	cfg.global = 1.4
	eng.RetriggerAll()
	eng.Update(0)
	if player.calls != 4 {
		t.Fatalf("expected both channels reissued, got %d calls", player.calls)
	}
}

func TestRetriggerSkipsMutedAndUntouchedChannels(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 2}
	grid.set(0, 0, noteStep(69))
	cfg := newFakeConfig(2)
	player := &fakePlayer{}
	eng := New(grid, cfg, player, Options{})

	eng.Play()
	eng.Update(0)
	eng.Retrigger(1) // never played anything
	cfg.muted[0] = true
	eng.Retrigger(0)
	eng.Update(0)
	if player.calls != 1 {
		t.Fatalf("expected no reissues, got %d calls", player.calls)
	}
}

func TestStopFreezesCursorRowAndSilences(t *testing.T) {
	grid := &fakeGrid{rows: 8, channels: 1}
	grid.set(0, 0, noteStep(69))
	player := &fakePlayer{}
	eng := New(grid, newFakeConfig(1), player, Options{})

	eng.Play()
	eng.Update(0)
	eng.Stop(5)
	if eng.Playing() {
		t.Fatalf("expected transport stopped")
	}
	if eng.NextRow() != 5 {
		t.Fatalf("expected next row frozen at the cursor, got %d", eng.NextRow())
	}
	if !player.handles[0].stopped {
		t.Fatalf("expected all voices stopped")
	}
	eng.Update(10)
	if player.calls != 1 {
		t.Fatalf("expected no triggers while stopped, got %d calls", player.calls)
	}
}

func TestRetriggerWhileStoppedStillSounds(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 1}
	grid.set(0, 0, noteStep(69))
	cfg := newFakeConfig(1)
	cfg.bpm = 40
	player := &fakePlayer{}
	eng := New(grid, cfg, player, Options{})

	eng.Play()
	eng.Update(0)
	eng.Stop(0)
	cfg.release[0] = 2
	eng.Retrigger(0)
	eng.Update(0)
	if player.calls != 2 {
		t.Fatalf("expected the release edit audible while stopped, got %d calls", player.calls)
	}
	if eng.Playing() {
		t.Fatalf("expected transport still stopped")
	}
}

func TestVoiceLimitStealsOldest(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 2}
	grid.set(0, 0, noteStep(69))
	grid.set(0, 1, noteStep(76))
	player := &fakePlayer{}
	eng := New(grid, newFakeConfig(2), player, Options{VoiceLimit: 1})

	eng.Play()
	eng.Update(0)
	if player.calls != 2 {
		t.Fatalf("expected both requests realized, got %d", player.calls)
	}
	if !player.handles[0].stopped {
		t.Fatalf("expected the oldest voice stolen")
	}
	if player.handles[1].stopped {
		t.Fatalf("expected the newest voice kept")
	}
	if eng.ActiveVoices() != 1 {
		t.Fatalf("expected 1 active voice, got %d", eng.ActiveVoices())
	}
}

func TestSynthesisFailureIsContained(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 2}
	grid.set(0, 0, noteStep(69))
	grid.set(0, 1, noteStep(76))
	player := &fakePlayer{failAt: 1}
	var failures []int
	eng := New(grid, newFakeConfig(2), player, Options{
		OnError: func(ch int, err error) { failures = append(failures, ch) },
	})

	eng.Play()
	eng.Update(0)
	if len(failures) != 1 || failures[0] != 0 {
		t.Fatalf("expected one reported failure on channel 0, got %v", failures)
	}
	if len(player.handles) != 1 || player.handles[0].stopped {
		t.Fatalf("expected the other channel's voice unharmed")
	}
	if !eng.Playing() {
		t.Fatalf("expected playback to continue past the failure")
	}
}

func TestDetuneMovesCacheKeyByWholeSemitonesOnly(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 2}
	down := noteStep(69)
	down.Detune = -1
	near := noteStep(69)
	near.Detune = 0.25
	grid.set(0, 0, down)
	grid.set(0, 1, near)
	player := &fakePlayer{}
	eng := New(grid, newFakeConfig(2), player, Options{})

	eng.Play()
	eng.Update(0)
	if player.keys[0].Midi != 68 {
		t.Fatalf("expected a full semitone down to key on 68, got %d", player.keys[0].Midi)
	}
	if player.keys[1].Midi != 69 {
		t.Fatalf("expected a quarter-tone shift to share the 69 key, got %d", player.keys[1].Midi)
	}
}

func TestFinishedVoicesAreReaped(t *testing.T) {
	grid := &fakeGrid{rows: 4, channels: 1}
	grid.set(0, 0, noteStep(69))
	player := &fakePlayer{}
	eng := New(grid, newFakeConfig(1), player, Options{})

	eng.Play()
	eng.Update(0)
	if eng.ActiveVoices() != 1 {
		t.Fatalf("expected 1 active voice, got %d", eng.ActiveVoices())
	}
	player.handles[0].done = true
	eng.Update(0)
	if eng.ActiveVoices() != 0 {
		t.Fatalf("expected the finished voice reaped, got %d", eng.ActiveVoices())
	}
	if eng.ChannelLevel(0) != 0 {
		t.Fatalf("expected a silent channel to meter at 0")
	}
}
