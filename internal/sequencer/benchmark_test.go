package sequencer

import "testing"

func BenchmarkUpdateSixteenSteps(b *testing.B) {
	grid := &fakeGrid{rows: 16, channels: 4}
	for r := 0; r < 16; r += 2 {
		for c := 0; c < 4; c++ {
			grid.set(r, c, noteStep(48+r+c*5))
		}
	}
	cfg := newFakeConfig(4)
	step := StepSeconds(cfg.bpm)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng := New(grid, cfg, &fakePlayer{}, Options{})
		eng.Play()
		for s := 0; s < 16; s++ {
			eng.Update(step)
		}
	}
}
