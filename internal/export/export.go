// Package export converts a pattern into a standard MIDI file so songs
// can move into DAWs and hardware sequencers. Note lengths come from the
// same forward scan the player uses, so what the DAW sees is what the
// player sounds.
package export

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/askorpi/rivi"
	"github.com/askorpi/rivi/internal/sequencer"
)

const (
	ticksPerQuarter = 960

	// Pitch bends assume the common receiver default of a two semitone
	// range either way.
	bendRangeSemitones = 2

	defaultVelocity = 100
)

// Options control the conversion.
type Options struct {
	BPM      float64 // falls back to the song metadata, then 120
	Loops    int     // pattern repetitions, minimum 1
	Velocity uint8   // note-on velocity, default 100
}

func (o Options) normalized(song *rivi.Song) Options {
	if o.BPM <= 0 {
		o.BPM = song.Meta.BPM
	}
	if o.BPM <= 0 {
		o.BPM = 120
	}
	if o.Loops < 1 {
		o.Loops = 1
	}
	if o.Velocity == 0 || o.Velocity > 127 {
		o.Velocity = defaultVelocity
	}
	return o
}

// event is one timed message before delta encoding. The order field
// settles ties at the same tick: offs land before bends, bends before
// ons, so a retrigger never swallows its own note-on.
type event struct {
	tick  uint32
	order int
	msg   midi.Message
}

// Convert renders the song as a type-1 SMF: a tempo track followed by
// one track per pattern channel.
func Convert(song *rivi.Song, opts Options) (*smf.SMF, error) {
	opts = opts.normalized(song)
	p := song.Pattern
	ticksPerStep := uint32(float64(ticksPerQuarter) * sequencer.StepFraction)
	totalTicks := uint32(opts.Loops*p.NumRows()) * ticksPerStep

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var track0 smf.Track
	if song.Meta.Title != "" {
		track0.Add(0, smf.MetaTrackSequenceName(song.Meta.Title))
	}
	track0.Add(0, smf.MetaMeter(4, 4))
	track0.Add(0, smf.MetaTempo(opts.BPM))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, fmt.Errorf("add tempo track: %w", err)
	}

	for c := 0; c < p.NumChannels(); c++ {
		ch := uint8(c % 16)
		var events []event
		// The receiver's wheel stays where the last bend put it, so every
		// note states its target position and only the changes are written.
		var bend int16
		for loop := 0; loop < opts.Loops; loop++ {
			base := uint32(loop*p.NumRows()) * ticksPerStep
			for r := 0; r < p.NumRows(); r++ {
				st := p.At(r, c)
				key, ok := st.Note.Midi()
				if !ok {
					continue
				}
				on := base + uint32(r)*ticksPerStep
				off := on + uint32(p.SustainSteps(r, c))*ticksPerStep
				if off > totalTicks {
					off = totalTicks
				}
				if b := bendValue(st.Effect.DetuneSemitones()); b != bend {
					events = append(events, event{on, 1, midi.Pitchbend(ch, b)})
					bend = b
				}
				events = append(events, event{on, 2, midi.NoteOn(ch, uint8(key), opts.Velocity)})
				events = append(events, event{off, 0, midi.NoteOff(ch, uint8(key))})
			}
		}
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].tick != events[j].tick {
				return events[i].tick < events[j].tick
			}
			return events[i].order < events[j].order
		})

		var track smf.Track
		var last uint32
		for _, ev := range events {
			track.Add(ev.tick-last, ev.msg)
			last = ev.tick
		}
		track.Close(totalTicks - last)
		if err := sm.Add(track); err != nil {
			return nil, fmt.Errorf("add channel %d track: %w", c, err)
		}
	}
	return sm, nil
}

// WriteFile converts and writes the song to path.
func WriteFile(path string, song *rivi.Song, opts Options) error {
	sm, err := Convert(song, opts)
	if err != nil {
		return err
	}
	return sm.WriteFile(path)
}

func bendValue(semitones float64) int16 {
	v := int(semitones / bendRangeSemitones * 8192)
	if v > 8191 {
		v = 8191
	} else if v < -8192 {
		v = -8192
	}
	return int16(v)
}
