package rivi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Sentinel pitch values used in the persisted cell form.
const (
	midiEmpty = -1
	midiOff   = -2
)

// FormatError reports a persisted song that could not be decoded. The
// caller's in-memory state is untouched when one is returned.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode song: %v", e.Err)
	}
	return fmt.Sprintf("decode song %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SaveError reports a failed write. The previous file content, if any, is
// left in place.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string { return fmt.Sprintf("save song %s: %v", e.Path, e.Err) }
func (e *SaveError) Unwrap() error { return e.Err }

type cellFile struct {
	Midi          int
	Instrument    int
	EffectEnabled bool
	EffectValue   int
}

type patternFile struct {
	Rows     int
	Channels int
	Grid     [][]cellFile
}

type songFile struct {
	Meta    *Meta
	Pattern *patternFile
}

func encodePattern(p *Pattern) *patternFile {
	pf := &patternFile{
		Rows:     p.NumRows(),
		Channels: p.NumChannels(),
		Grid:     make([][]cellFile, p.NumRows()),
	}
	for r, row := range p.Rows() {
		cells := make([]cellFile, len(row))
		for c, st := range row {
			cell := cellFile{Midi: midiEmpty}
			switch {
			case st.Note.IsOff():
				cell.Midi = midiOff
			case st.Note.IsSounding():
				cell.Midi, _ = st.Note.Midi()
				cell.Instrument, _ = st.Note.Instrument()
			}
			cell.EffectEnabled = st.Effect.Enabled
			cell.EffectValue = int(st.Effect.Value)
			cells[c] = cell
		}
		pf.Grid[r] = cells
	}
	return pf
}

func decodePattern(pf *patternFile) (*Pattern, error) {
	if pf.Rows < 1 || pf.Channels < 1 {
		return nil, fmt.Errorf("grid shape %dx%d is empty", pf.Rows, pf.Channels)
	}
	if len(pf.Grid) != pf.Rows {
		return nil, fmt.Errorf("grid has %d rows, header says %d", len(pf.Grid), pf.Rows)
	}
	p := NewPattern(pf.Rows, pf.Channels)
	for r, cells := range pf.Grid {
		if len(cells) != pf.Channels {
			return nil, fmt.Errorf("row %d has %d channels, header says %d", r, len(cells), pf.Channels)
		}
		for c, cell := range cells {
			var n Note
			switch {
			case cell.Midi == midiEmpty:
				n = EmptyNote()
			case cell.Midi == midiOff:
				n = NoteOff()
			case cell.Midi >= 0:
				n = NewNote(cell.Midi, cell.Instrument)
			default:
				return nil, fmt.Errorf("row %d channel %d: pitch %d is not a valid value", r, c, cell.Midi)
			}
			if cell.EffectValue < 0 || cell.EffectValue > 255 {
				return nil, fmt.Errorf("row %d channel %d: effect value %d out of byte range", r, c, cell.EffectValue)
			}
			p.SetStep(r, c, Step{
				Note:   n,
				Effect: Effect{Enabled: cell.EffectEnabled, Value: byte(cell.EffectValue)},
			})
		}
	}
	return p, nil
}

// EncodeSong marshals the wrapped envelope form.
func EncodeSong(s *Song) ([]byte, error) {
	meta := s.Meta
	env := songFile{Meta: &meta, Pattern: encodePattern(s.Pattern)}
	return json.MarshalIndent(&env, "", "  ")
}

// DecodeSong parses either the wrapped envelope form or the bare legacy
// grid form. The choice is made by checking for a top-level Pattern field,
// so a malformed envelope is a real error rather than a silent fallback to
// the legacy path.
func DecodeSong(data []byte) (*Song, error) {
	var probe struct {
		Pattern json.RawMessage
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &FormatError{Err: err}
	}
	if len(probe.Pattern) == 0 {
		// Legacy files store the grid object at the top level with no
		// metadata around it.
		var pf patternFile
		if err := json.Unmarshal(data, &pf); err != nil {
			return nil, &FormatError{Err: err}
		}
		p, err := decodePattern(&pf)
		if err != nil {
			return nil, &FormatError{Err: err}
		}
		return &Song{Pattern: p}, nil
	}
	var env songFile
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &FormatError{Err: err}
	}
	if env.Pattern == nil {
		return nil, &FormatError{Err: fmt.Errorf("song has a null pattern")}
	}
	p, err := decodePattern(env.Pattern)
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	song := &Song{Pattern: p}
	if env.Meta != nil {
		song.Meta = *env.Meta
	}
	return song, nil
}

// LoadSong reads and decodes a song file.
func LoadSong(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	song, err := DecodeSong(data)
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Path = path
			return nil, fe
		}
		return nil, err
	}
	return song, nil
}

// SaveSong encodes the song in the wrapped form and writes it atomically:
// the data lands in a temp file first and replaces the target with a
// rename, so a failed write never leaves a partial file behind. Timestamps
// are refreshed on the way out.
func SaveSong(path string, s *Song) error {
	now := time.Now().UTC()
	if s.Meta.CreatedUtc.IsZero() {
		s.Meta.CreatedUtc = now
	}
	s.Meta.ModifiedUtc = now

	data, err := EncodeSong(s)
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &SaveError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &SaveError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &SaveError{Path: path, Err: err}
	}
	return nil
}
