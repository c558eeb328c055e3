// Package tui is the terminal grid editor: a bubbletea program wrapped
// around a session, with the same edit operations the GUI offers.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/askorpi/rivi"
)

const (
	framesPerSecond = 30
	meterWidth      = 12
)

// tickMsg pumps the playback clock and the meter animation.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/framesPerSecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Two keyboard rows of piano keys, tracker style: z is C at the current
// octave, q is C one octave up.
var pianoKeys = map[string]int{
	"z": 0, "s": 1, "x": 2, "d": 3, "c": 4, "v": 5,
	"g": 6, "b": 7, "h": 8, "n": 9, "j": 10, "m": 11,
	"q": 12, "2": 13, "w": 14, "3": 15, "e": 16, "r": 17,
	"5": 18, "t": 19, "6": 20, "y": 21, "7": 22, "u": 23,
}

var muteKeys = map[string]int{
	"f1": 0, "f2": 1, "f3": 2, "f4": 3, "f5": 4, "f6": 5, "f7": 6, "f8": 7,
	"!": 0, "@": 1, "#": 2, "$": 3, "%": 4, "^": 5, "&": 6, "*": 7,
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.Color("#C9A227")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8A8A8A"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5F5F5F")).
			Strikethrough(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.Color("#C9A227"))

	playRowStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2E3440"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D8DEE9"))

	restStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4C566A"))

	meterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A3BE8C"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EBCB8B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#616161"))
)

// Model is the bubbletea model around one session.
type Model struct {
	session *rivi.Session
	path    string

	spring     harmonica.Spring
	levels     []float64
	velocities []float64

	lastTick time.Time
	status   string
	width    int
	height   int
}

// New wraps a session for terminal editing. Edits save to path.
func New(session *rivi.Session, path string) Model {
	channels := session.NumChannels()
	return Model{
		session:    session,
		path:       path,
		spring:     harmonica.NewSpring(harmonica.FPS(framesPerSecond), 6.0, 0.6),
		levels:     make([]float64, channels),
		velocities: make([]float64, channels),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		dt := time.Second / framesPerSecond
		if !m.lastTick.IsZero() {
			dt = now.Sub(m.lastTick)
		}
		m.lastTick = now
		m.session.Update(dt.Seconds())
		for c := range m.levels {
			target := m.session.ChannelLevel(c)
			m.levels[c], m.velocities[c] = m.spring.Update(m.levels[c], m.velocities[c], target)
		}
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if offset, ok := pianoKeys[key]; ok {
		m.session.InsertNote(offset)
		return m, nil
	}
	if channel, ok := muteKeys[key]; ok && channel < m.session.NumChannels() {
		m.session.ToggleMute(channel)
		return m, nil
	}

	switch key {
	case "ctrl+c", "esc":
		m.session.Stop()
		return m, tea.Quit
	case "up":
		m.session.MoveCursor(-1, 0)
	case "down":
		m.session.MoveCursor(1, 0)
	case "left":
		m.session.MoveCursor(0, -1)
	case "right", "tab":
		m.session.MoveCursor(0, 1)
	case " ":
		m.session.TogglePlay()
	case "a":
		m.session.InsertNoteOff()
	case "backspace", "delete":
		m.session.ClearCell()
	case "ctrl+r":
		m.session.ClearRow()
	case "[":
		m.session.SetOctave(m.session.Octave() - 1)
	case "]":
		m.session.SetOctave(m.session.Octave() + 1)
	case "-", "_":
		m.session.SetBPM(m.session.BPM() - 5)
	case "+", "=":
		m.session.SetBPM(m.session.BPM() + 5)
	case "i":
		next := (m.session.CurrentInstrument() + 1) % len(m.session.Instruments())
		m.session.SelectInstrument(next)
	case ",":
		m.bumpEffectParam(-1)
	case ".":
		m.bumpEffectParam(1)
	case "/":
		m.cycleEffectCommand()
	case "9":
		m.retune(-1)
	case "0":
		m.retune(1)
	case "ctrl+s":
		if err := m.session.Save(m.path); err != nil {
			m.status = err.Error()
		} else {
			m.status = "saved " + m.path
		}
	}
	return m, nil
}

// bumpEffectParam nudges the cursor cell's effect parameter, seeding a
// release effect when the cell has none yet.
func (m *Model) bumpEffectParam(delta int) {
	e := m.cursorEffect()
	if !e.Enabled {
		m.session.SetEffectNibble(true, rivi.EffectRelease)
		e = m.cursorEffect()
	}
	m.session.SetEffectNibble(false, byte((int(e.Param())+delta+16)%16))
}

// cycleEffectCommand steps the cursor cell through no effect, detune, and
// release.
func (m *Model) cycleEffectCommand() {
	e := m.cursorEffect()
	switch {
	case !e.Enabled:
		m.session.SetEffectNibble(true, rivi.EffectDetune)
		m.session.SetEffectNibble(false, 8) // midpoint, no shift yet
	case e.Command() == rivi.EffectDetune:
		m.session.SetEffectNibble(true, rivi.EffectRelease)
	default:
		m.session.ClearCellEffect()
	}
}

// retune adjusts a detune effect on the cursor cell one sixteenth of a
// semitone at a time.
func (m *Model) retune(delta int) {
	e := m.cursorEffect()
	if !e.Enabled || e.Command() != rivi.EffectDetune {
		m.session.SetEffectNibble(true, rivi.EffectDetune)
		m.session.SetEffectNibble(false, 8)
		e = m.cursorEffect()
	}
	p := int(e.Param()) + delta
	if p < 0 {
		p = 0
	} else if p > 15 {
		p = 15
	}
	m.session.SetEffectNibble(false, byte(p))
}

func (m *Model) cursorEffect() rivi.Effect {
	row, channel := m.session.Cursor()
	return m.session.RowSteps(row)[channel].Effect
}

func (m Model) View() string {
	var b strings.Builder
	s := m.session

	b.WriteString(titleStyle.Render("rivi") + "  " + m.path + "\n")
	transport := "stopped"
	if s.Playing() {
		transport = fmt.Sprintf("playing row %02d", s.ActiveRow())
	}
	insts := s.Instruments()
	instName := fmt.Sprintf("%d", s.CurrentInstrument())
	if i := s.CurrentInstrument(); i < len(insts) && insts[i].Name != "" {
		instName = insts[i].Name
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf(
		"bpm %.0f  octave %d  instrument %s  %s\n\n",
		s.BPM(), s.Octave(), instName, transport)))

	b.WriteString(m.viewGrid())
	b.WriteString("\n")
	b.WriteString(m.viewMeters())

	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(
		"arrows: move  space: play  z..m/q..u: notes  a: off  bksp: clear  "+
			"[ ]: octave  +/-: bpm  i: instrument  /: effect  , .: param  9 0: detune  "+
			"f1..f8: mute  ctrl+s: save  esc: quit"))
	return b.String()
}

func (m Model) viewGrid() string {
	var b strings.Builder
	s := m.session
	cursorRow, cursorChannel := s.Cursor()
	activeRow := s.ActiveRow()

	b.WriteString("     ")
	for c := 0; c < s.NumChannels(); c++ {
		label := fmt.Sprintf(" ch%d      ", c+1)
		if s.ChannelMuted(c) {
			b.WriteString(mutedStyle.Render(label))
		} else {
			b.WriteString(headerStyle.Render(label))
		}
	}
	b.WriteString("\n")

	for r := 0; r < s.NumRows(); r++ {
		rowStyle := lipgloss.NewStyle()
		if s.Playing() && r == activeRow {
			rowStyle = playRowStyle
		}
		b.WriteString(rowStyle.Render(fmt.Sprintf(" %02d  ", r)))
		steps := s.RowSteps(r)
		for c, st := range steps {
			cell := renderCell(st)
			style := rowStyle.Inherit(restStyle)
			if st.Note.IsSounding() || st.Note.IsOff() {
				style = rowStyle.Inherit(noteStyle)
			}
			if r == cursorRow && c == cursorChannel {
				style = cursorStyle
			}
			b.WriteString(style.Render(cell) + " ")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderCell(st rivi.Step) string {
	inst := "·"
	if i, ok := st.Note.Instrument(); ok {
		inst = fmt.Sprintf("%X", i%16)
	}
	return fmt.Sprintf("%-3s %s %-3s", st.Note.String(), inst, st.Effect.String())
}

func (m Model) viewMeters() string {
	var b strings.Builder
	for c, level := range m.levels {
		if level < 0 {
			level = 0
		} else if level > 1 {
			level = 1
		}
		filled := int(level*meterWidth + 0.5)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", meterWidth-filled)
		label := fmt.Sprintf("ch%d ", c+1)
		if m.session.ChannelMuted(c) {
			b.WriteString(mutedStyle.Render(label+bar) + "  ")
		} else {
			b.WriteString(meterStyle.Render(label+bar) + "  ")
		}
	}
	b.WriteString("\n")
	return b.String()
}
