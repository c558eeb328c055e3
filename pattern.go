package rivi

import "iter"

// Step is the content of one grid cell.
type Step struct {
	Note   Note
	Effect Effect
}

// Pattern is a fixed-size Rows x Channels grid of steps. The shape is set
// at construction; playback indices wrap modulo the bounds so the grid
// loops. Callers supply in-range indices for direct cell access.
type Pattern struct {
	rows     int
	channels int
	steps    []Step
}

// NewPattern returns a pattern of the given shape with every cell set to
// an empty note and a disabled effect.
func NewPattern(rows, channels int) *Pattern {
	if rows < 1 {
		rows = 1
	}
	if channels < 1 {
		channels = 1
	}
	return &Pattern{
		rows:     rows,
		channels: channels,
		steps:    make([]Step, rows*channels),
	}
}

func (p *Pattern) NumRows() int     { return p.rows }
func (p *Pattern) NumChannels() int { return p.channels }

// At returns the step at (row, channel).
func (p *Pattern) At(row, channel int) Step {
	return p.steps[row*p.channels+channel]
}

// SetStep overwrites the cell at (row, channel).
func (p *Pattern) SetStep(row, channel int, s Step) {
	p.steps[row*p.channels+channel] = s
}

// SetNote replaces the cell's note, keeping its effect.
func (p *Pattern) SetNote(row, channel int, n Note) {
	p.steps[row*p.channels+channel].Note = n
}

// SetEffect replaces the cell's effect, keeping its note.
func (p *Pattern) SetEffect(row, channel int, e Effect) {
	p.steps[row*p.channels+channel].Effect = e
}

// ClearCell resets one cell to empty.
func (p *Pattern) ClearCell(row, channel int) {
	p.steps[row*p.channels+channel] = Step{}
}

// ClearRow resets every cell in a row.
func (p *Pattern) ClearRow(row int) {
	for c := 0; c < p.channels; c++ {
		p.steps[row*p.channels+c] = Step{}
	}
}

// ClearRowEffects disables the effects in a row, keeping the notes.
func (p *Pattern) ClearRowEffects(row int) {
	for c := 0; c < p.channels; c++ {
		p.steps[row*p.channels+c].Effect = Effect{}
	}
}

// ClearAll resets the whole grid.
func (p *Pattern) ClearAll() {
	for i := range p.steps {
		p.steps[i] = Step{}
	}
}

// FillRow writes the same note across every channel of a row.
func (p *Pattern) FillRow(row int, n Note) {
	for c := 0; c < p.channels; c++ {
		p.steps[row*p.channels+c].Note = n
	}
}

// NextRow advances a row index by one, wrapping at the bottom.
func (p *Pattern) NextRow(row int) int { return (row + 1) % p.rows }

// NextChannel advances a channel index by one, wrapping at the edge.
func (p *Pattern) NextChannel(channel int) int { return (channel + 1) % p.channels }

// Row returns a copy of one row's steps. Mutating the copy never touches
// the grid.
func (p *Pattern) Row(row int) []Step {
	out := make([]Step, p.channels)
	copy(out, p.steps[row*p.channels:(row+1)*p.channels])
	return out
}

// Rows yields (row index, row snapshot) pairs in order. The sequence is
// lazy and restartable; each snapshot is an independent copy.
func (p *Pattern) Rows() iter.Seq2[int, []Step] {
	return func(yield func(int, []Step) bool) {
		for r := 0; r < p.rows; r++ {
			if !yield(r, p.Row(r)) {
				return
			}
		}
	}
}

// SustainSteps reports how many steps a note triggered at (row, channel)
// sounds for: the trigger row itself plus every following empty row on the
// channel, stopping short of a note cut or the next sounding note. If the
// scan wraps all the way around, the note holds for the whole pattern.
func (p *Pattern) SustainSteps(row, channel int) int {
	steps := 1
	for r := p.NextRow(row); r != row; r = p.NextRow(r) {
		n := p.At(r, channel).Note
		if n.IsOff() || n.IsSounding() {
			break
		}
		steps++
	}
	return steps
}

// Copy returns a deep copy of the pattern.
func (p *Pattern) Copy() *Pattern {
	steps := make([]Step, len(p.steps))
	copy(steps, p.steps)
	return &Pattern{rows: p.rows, channels: p.channels, steps: steps}
}
