// Command rivi_ui is a desktop front end for the rivi tracker: the
// pattern grid, transport, and mixer controls drawn with ebiten, with
// playback running through the shared ebiten audio context.
package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/askorpi/rivi"
	"github.com/askorpi/rivi/internal/preset"
)

const (
	windowW      = 1100
	windowH      = 720
	minWindowW   = 980
	minWindowH   = 680
	uiSampleRate = 48000

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	// One grid cell: note (3 chars), instrument digit, effect (3 chars).
	cellChars = 9
	cellW     = cellChars*charW + 10
	rowLabelW = 2*charW + 16
)

var (
	bgColor     = color.RGBA{192, 192, 192, 255}
	panelColor  = color.RGBA{192, 192, 192, 255}
	borderColor = color.RGBA{128, 128, 128, 255}

	// 3D bevel colors for old-school embossed look.
	bevelLight  = color.RGBA{255, 255, 255, 255}
	bevelDarker = color.RGBA{64, 64, 64, 255}

	// Sunken panel / grid interior.
	sunkenBgColor = color.RGBA{24, 24, 32, 255}

	highlightColor  = color.RGBA{0, 0, 128, 255}
	sliderFillColor = color.RGBA{0, 0, 128, 255}
	playRowColor    = color.RGBA{0, 80, 32, 255}
	meterColor      = color.RGBA{0, 160, 64, 255}
	mutedScrim      = color.RGBA{24, 24, 32, 150}
)

// drag targets for handleMouse.
const (
	dragNone = iota
	dragBPM
	dragOctave
	dragRelease
)

type game struct {
	session *rivi.Session
	path    string

	// Per-channel meter levels: instant attack, exponential release.
	levels []float64

	dragging   int
	gridScroll int

	status    string
	statusErr bool

	frameTick int
	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(session *rivi.Session, path string) *game {
	return &game{
		session:   session,
		path:      path,
		levels:    make([]float64, session.NumChannels()),
		status:    "editing " + filepath.Base(path),
		textCache: make(map[string]*ebiten.Image, 1024),
		viewW:     windowW,
		viewH:     windowH,
	}
}

func (g *game) Update() error {
	g.frameTick++

	tps := ebiten.TPS()
	if tps <= 0 {
		tps = 60
	}
	g.session.Update(1.0 / float64(tps))

	for c := range g.levels {
		v := g.session.ChannelLevel(c)
		if v > g.levels[c] {
			g.levels[c] = v
		} else {
			g.levels[c] *= 0.90
		}
	}

	g.pollKeys()
	g.handleMouse()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	l := g.layoutRects()

	panel(screen, l.instruments, true)
	panel(screen, l.help, false)
	panel(screen, l.channels, false)
	panel(screen, l.grid, true)
	g.button(screen, l.play, g.playButtonLabel(), false)
	g.button(screen, l.save, "Save", false)
	g.drawSlider(screen, l.bpm, fmt.Sprintf("BPM %.0f", g.session.BPM()), g.bpmFrac(), false)
	g.drawSlider(screen, l.octave, fmt.Sprintf("Oct %d", g.session.Octave()), g.octaveFrac(), true)
	g.drawSlider(screen, l.release, fmt.Sprintf("Rel %.2f", g.session.GlobalRelease()), g.releaseFrac(), false)
	panel(screen, l.status, true)

	g.drawInstruments(screen, l.instruments)
	g.drawHelp(screen, l.help)
	g.drawChannelStrip(screen, l.channels)
	g.drawGrid(screen, l.grid)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	if outsideW < minWindowW {
		outsideW = minWindowW
	}
	if outsideH < minWindowH {
		outsideH = minWindowH
	}
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

func (g *game) Close() { _ = g.session.Close() }

// pianoKeys maps two rows of the keyboard onto two octaves, offsets
// relative to the session's base octave.
var pianoKeys = map[ebiten.Key]int{
	ebiten.KeyZ: 0, ebiten.KeyS: 1, ebiten.KeyX: 2, ebiten.KeyD: 3,
	ebiten.KeyC: 4, ebiten.KeyV: 5, ebiten.KeyG: 6, ebiten.KeyB: 7,
	ebiten.KeyH: 8, ebiten.KeyN: 9, ebiten.KeyJ: 10, ebiten.KeyM: 11,
	ebiten.KeyQ: 12, ebiten.KeyDigit2: 13, ebiten.KeyW: 14, ebiten.KeyDigit3: 15,
	ebiten.KeyE: 16, ebiten.KeyR: 17, ebiten.KeyDigit5: 18, ebiten.KeyT: 19,
	ebiten.KeyDigit6: 20, ebiten.KeyY: 21, ebiten.KeyDigit7: 22, ebiten.KeyU: 23,
}

var muteKeys = []ebiten.Key{
	ebiten.KeyF1, ebiten.KeyF2, ebiten.KeyF3, ebiten.KeyF4,
	ebiten.KeyF5, ebiten.KeyF6, ebiten.KeyF7, ebiten.KeyF8,
}

// keyRepeat reports a fresh press, then repeats while the key is held.
func keyRepeat(key ebiten.Key) bool {
	d := inpututil.KeyPressDuration(key)
	return d == 1 || (d >= 20 && (d-20)%4 == 0)
}

func (g *game) pollKeys() {
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		if inpututil.IsKeyJustPressed(ebiten.KeyS) {
			g.saveSong()
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyR) {
			g.session.ClearRow()
			g.setStatus("row cleared")
		}
		return
	}

	for key, offset := range pianoKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.session.InsertNote(offset)
		}
	}
	for channel, key := range muteKeys {
		if channel >= g.session.NumChannels() {
			break
		}
		if inpututil.IsKeyJustPressed(key) {
			g.toggleMute(channel)
		}
	}

	switch {
	case keyRepeat(ebiten.KeyArrowUp):
		g.session.MoveCursor(-1, 0)
		g.scrollCursorIntoView()
	case keyRepeat(ebiten.KeyArrowDown):
		g.session.MoveCursor(1, 0)
		g.scrollCursorIntoView()
	case keyRepeat(ebiten.KeyArrowLeft):
		g.session.MoveCursor(0, -1)
	case keyRepeat(ebiten.KeyArrowRight) || inpututil.IsKeyJustPressed(ebiten.KeyTab):
		g.session.MoveCursor(0, 1)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.togglePlay()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.session.Stop()
		g.setStatus("stopped")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		g.session.InsertNoteOff()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) || inpututil.IsKeyJustPressed(ebiten.KeyDelete) {
		g.session.ClearCell()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
		g.session.SetOctave(g.session.Octave() - 1)
		g.setStatus(fmt.Sprintf("octave %d", g.session.Octave()))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
		g.session.SetOctave(g.session.Octave() + 1)
		g.setStatus(fmt.Sprintf("octave %d", g.session.Octave()))
	}
	if keyRepeat(ebiten.KeyMinus) {
		g.session.SetBPM(g.session.BPM() - 5)
		g.setStatus(fmt.Sprintf("bpm %.0f", g.session.BPM()))
	}
	if keyRepeat(ebiten.KeyEqual) {
		g.session.SetBPM(g.session.BPM() + 5)
		g.setStatus(fmt.Sprintf("bpm %.0f", g.session.BPM()))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyI) {
		g.selectInstrument((g.session.CurrentInstrument() + 1) % len(g.session.Instruments()))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyComma) {
		g.bumpEffectParam(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPeriod) {
		g.bumpEffectParam(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySlash) {
		g.cycleEffectCommand()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit9) {
		g.retune(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit0) {
		g.retune(1)
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.play):
			g.togglePlay()
			return
		case pointInRect(mx, my, l.save):
			g.saveSong()
			return
		case pointInRect(mx, my, l.bpm):
			g.dragging = dragBPM
			g.updateBPMFromMouse(mx, l.bpm)
			return
		case pointInRect(mx, my, l.octave):
			g.dragging = dragOctave
			g.updateOctaveFromMouse(mx, l.octave)
			return
		case pointInRect(mx, my, l.release):
			g.dragging = dragRelease
			g.updateReleaseFromMouse(mx, l.release)
			return
		case pointInRect(mx, my, l.channels):
			g.clickChannelStrip(mx, my, l.channels)
			return
		case pointInRect(mx, my, l.grid):
			g.clickGrid(mx, my, l.grid, false)
			return
		case pointInRect(mx, my, l.instruments):
			g.clickInstruments(my, l.instruments)
			return
		}
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) && pointInRect(mx, my, l.grid) {
		g.clickGrid(mx, my, l.grid, true)
	}

	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = dragNone
	}
	switch g.dragging {
	case dragBPM:
		g.updateBPMFromMouse(mx, l.bpm)
	case dragOctave:
		g.updateOctaveFromMouse(mx, l.octave)
	case dragRelease:
		g.updateReleaseFromMouse(mx, l.release)
	}

	_, wy := ebiten.Wheel()
	if wy == 0 {
		return
	}
	if pointInRect(mx, my, l.grid) {
		g.gridScroll -= int(wy * 2)
		g.clampGridScroll(l.grid)
	}
}

type uiLayout struct {
	instruments, help image.Rectangle
	channels, grid    image.Rectangle
	play, save, bpm   image.Rectangle
	octave, release   image.Rectangle
	status            image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := g.viewW
	h := g.viewH
	if w < minWindowW {
		w = minWindowW
	}
	if h < minWindowH {
		h = minWindowH
	}

	pad := 20
	rowH := 44
	statusH := 40

	// Bottom: status row, then controls row above it.
	statusTop := h - pad - statusH
	controlsTop := statusTop - 8 - rowH

	// Left column: instrument list + key help.
	sideW := 280
	helpH := 8 + 8*lineH + 8
	sideBottom := controlsTop - 12
	helpTop := sideBottom - helpH
	instRect := image.Rect(pad, pad, pad+sideW, helpTop-8)
	helpRect := image.Rect(pad, helpTop, pad+sideW, sideBottom)

	// Right column: channel strip over the pattern grid.
	rightX := instRect.Max.X + 12
	rightW := w - rightX - pad
	if rightW < 320 {
		rightW = 320
	}
	stripH := 8 + 30 + 6 + 10 + 8
	chanRect := image.Rect(rightX, pad, rightX+rightW, pad+stripH)
	gridRect := image.Rect(rightX, chanRect.Max.Y+8, rightX+rightW, controlsTop-12)

	// Controls row: transport buttons, then three sliders.
	x := pad
	playRect := image.Rect(x, controlsTop, x+110, controlsTop+rowH)
	x = playRect.Max.X + 8
	saveRect := image.Rect(x, controlsTop, x+110, controlsTop+rowH)
	x = saveRect.Max.X + 8
	sliderW := (w - pad - x - 16) / 3
	bpmRect := image.Rect(x, controlsTop, x+sliderW, controlsTop+rowH)
	x = bpmRect.Max.X + 8
	octRect := image.Rect(x, controlsTop, x+sliderW, controlsTop+rowH)
	x = octRect.Max.X + 8
	relRect := image.Rect(x, controlsTop, w-pad, controlsTop+rowH)

	statusRect := image.Rect(pad, statusTop, w-pad, statusTop+statusH)

	return uiLayout{
		instruments: instRect,
		help:        helpRect,
		channels:    chanRect,
		grid:        gridRect,
		play:        playRect,
		save:        saveRect,
		bpm:         bpmRect,
		octave:      octRect,
		release:     relRect,
		status:      statusRect,
	}
}

// cellX is the left edge of a channel's column, shared by the grid and
// the channel strip so the two panels line up.
func cellX(rect image.Rectangle, channel int) int {
	return rect.Min.X + 8 + rowLabelW + channel*cellW
}

func (g *game) gridRowsVisible(rect image.Rectangle) int {
	n := (rect.Dy() - 16) / lineH
	if n < 1 {
		n = 1
	}
	return n
}

func (g *game) clampGridScroll(rect image.Rectangle) {
	limit := g.session.NumRows() - g.gridRowsVisible(rect)
	if g.gridScroll > limit {
		g.gridScroll = limit
	}
	if g.gridScroll < 0 {
		g.gridScroll = 0
	}
}

func (g *game) scrollCursorIntoView() {
	rect := g.layoutRects().grid
	visible := g.gridRowsVisible(rect)
	row, _ := g.session.Cursor()
	if row < g.gridScroll {
		g.gridScroll = row
	}
	if row >= g.gridScroll+visible {
		g.gridScroll = row - visible + 1
	}
	g.clampGridScroll(rect)
}

func (g *game) drawGrid(screen *ebiten.Image, rect image.Rectangle) {
	g.clampGridScroll(rect)

	rows := g.session.NumRows()
	channels := g.session.NumChannels()
	visible := g.gridRowsVisible(rect)
	cursorRow, cursorChannel := g.session.Cursor()
	playing := g.session.Playing()
	activeRow := g.session.ActiveRow()

	for i := 0; i < visible; i++ {
		r := g.gridScroll + i
		if r >= rows {
			break
		}
		y := rect.Min.Y + 8 + i*lineH

		if playing && r == activeRow {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+4), float64(y-2), float64(rect.Dx()-8), float64(lineH), playRowColor)
		}
		if r == cursorRow {
			x := cellX(rect, cursorChannel)
			if x+cellW-6 <= rect.Max.X-4 {
				ebitenutil.DrawRect(screen, float64(x-4), float64(y-2), float64(cellW-2), float64(lineH), highlightColor)
			}
		}

		g.drawText(screen, fmt.Sprintf("%02d", r), rect.Min.X+8, y)

		steps := g.session.RowSteps(r)
		for c := 0; c < channels; c++ {
			x := cellX(rect, c)
			if x+cellW-6 > rect.Max.X-4 {
				break
			}
			g.drawText(screen, cellText(steps[c]), x, y)
		}
	}

	// Dim muted channels after their text is down.
	drawn := rows - g.gridScroll
	if drawn > visible {
		drawn = visible
	}
	top := rect.Min.Y + 4
	bottom := rect.Min.Y + 8 + drawn*lineH
	for c := 0; c < channels; c++ {
		if !g.session.ChannelMuted(c) {
			continue
		}
		x := cellX(rect, c)
		if x+cellW-6 > rect.Max.X-4 {
			break
		}
		ebitenutil.DrawRect(screen, float64(x-4), float64(top), float64(cellW-2), float64(bottom-top), mutedScrim)
	}
}

func cellText(st rivi.Step) string {
	inst := "."
	if idx, ok := st.Note.Instrument(); ok {
		inst = fmt.Sprintf("%x", idx)
	}
	return fmt.Sprintf("%-3s %s %-3s", st.Note, inst, st.Effect)
}

func (g *game) clickGrid(mx, my int, rect image.Rectangle, clear bool) {
	row := g.gridScroll + (my-rect.Min.Y-8)/lineH
	if row < g.gridScroll || row >= g.session.NumRows() {
		return
	}
	dx := mx - cellX(rect, 0)
	if dx < 0 {
		return
	}
	channel := dx / cellW
	if channel >= g.session.NumChannels() {
		return
	}
	g.session.SetCursor(row, channel)
	if clear {
		g.session.ClearCell()
	}
}

func (g *game) drawChannelStrip(screen *ebiten.Image, rect image.Rectangle) {
	channels := g.session.NumChannels()
	for c := 0; c < channels; c++ {
		x := cellX(rect, c)
		w := cellW - 16
		if x+w > rect.Max.X-8 {
			break
		}

		btn := image.Rect(x, rect.Min.Y+8, x+w, rect.Min.Y+8+30)
		g.button(screen, btn, fmt.Sprintf("ch%d", c+1), g.session.ChannelMuted(c))

		// Level meter groove under the mute button.
		trackY := btn.Max.Y + 6
		ebitenutil.DrawRect(screen, float64(x), float64(trackY), float64(w), 10, bevelDarker)
		ebitenutil.DrawRect(screen, float64(x), float64(trackY), float64(w-1), 1, borderColor)
		ebitenutil.DrawRect(screen, float64(x), float64(trackY), 1, 9, borderColor)
		fillW := int(clamp(g.levels[c], 0, 1) * float64(w-2))
		if fillW > 0 {
			ebitenutil.DrawRect(screen, float64(x+1), float64(trackY+1), float64(fillW), 8, meterColor)
		}
	}
}

func (g *game) clickChannelStrip(mx, my int, rect image.Rectangle) {
	channels := g.session.NumChannels()
	for c := 0; c < channels; c++ {
		x := cellX(rect, c)
		w := cellW - 16
		if x+w > rect.Max.X-8 {
			break
		}
		btn := image.Rect(x, rect.Min.Y+8, x+w, rect.Min.Y+8+30)
		if pointInRect(mx, my, btn) {
			g.toggleMute(c)
			return
		}
	}
}

func (g *game) toggleMute(channel int) {
	g.session.ToggleMute(channel)
	if g.session.ChannelMuted(channel) {
		g.setStatus(fmt.Sprintf("ch%d muted", channel+1))
	} else {
		g.setStatus(fmt.Sprintf("ch%d live", channel+1))
	}
}

func (g *game) drawInstruments(screen *ebiten.Image, rect image.Rectangle) {
	g.drawText(screen, "Instruments", rect.Min.X+8, rect.Min.Y+8)

	instruments := g.session.Instruments()
	current := g.session.CurrentInstrument()
	y := rect.Min.Y + 8 + lineH + 6
	for i, inst := range instruments {
		if y+lineH > rect.Max.Y-4 {
			break
		}
		if i == current {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+6), float64(y-2), float64(rect.Dx()-12), float64(lineH), highlightColor)
		}
		label := fmt.Sprintf("%x %-11s %s", i, shortenEnd(inst.Name, 11), inst.Wave)
		g.drawText(screen, label, rect.Min.X+8, y)
		y += lineH
	}
}

func (g *game) clickInstruments(my int, rect image.Rectangle) {
	top := rect.Min.Y + 8 + lineH + 6
	if my < top {
		return
	}
	i := (my - top) / lineH
	if i >= len(g.session.Instruments()) {
		return
	}
	g.selectInstrument(i)
}

func (g *game) selectInstrument(index int) {
	g.session.SelectInstrument(index)
	i := g.session.CurrentInstrument()
	g.setStatus(fmt.Sprintf("instrument %x %s", i, g.session.Instruments()[i].Name))
}

var helpLines = []string{
	"space  play / stop",
	"z..m q2w3..  notes",
	"a  note off",
	"del  clear cell",
	"[ ]  octave   - =  bpm",
	"/  effect   , .  value",
	"9 0  detune   i  instr",
	"f1..f8  mute   ^s save",
}

func (g *game) drawHelp(screen *ebiten.Image, rect image.Rectangle) {
	y := rect.Min.Y + 8
	for _, line := range helpLines {
		if y+lineH > rect.Max.Y-4 {
			break
		}
		g.drawText(screen, line, rect.Min.X+8, y)
		y += lineH
	}
}

func (g *game) togglePlay() {
	g.session.TogglePlay()
	if g.session.Playing() {
		g.setStatus("playing")
	} else {
		g.setStatus("stopped")
	}
}

func (g *game) playButtonLabel() string {
	if g.session.Playing() {
		return "Stop"
	}
	return "Play"
}

func (g *game) saveSong() {
	if err := g.session.Save(g.path); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("saved " + g.path)
}

func (g *game) bpmFrac() float64 {
	return (g.session.BPM() - rivi.MinBPM) / (rivi.MaxBPM - rivi.MinBPM)
}

func (g *game) updateBPMFromMouse(mx int, rect image.Rectangle) {
	frac, ok := sliderFrac(mx, rect)
	if !ok {
		return
	}
	g.session.SetBPM(math.Round(rivi.MinBPM + frac*(rivi.MaxBPM-rivi.MinBPM)))
	g.setStatus(fmt.Sprintf("bpm %.0f", g.session.BPM()))
}

const (
	octaveMin = 0
	octaveMax = 8
)

func (g *game) octaveFrac() float64 {
	return float64(g.session.Octave()-octaveMin) / float64(octaveMax-octaveMin)
}

func (g *game) updateOctaveFromMouse(mx int, rect image.Rectangle) {
	frac, ok := sliderFrac(mx, rect)
	if !ok {
		return
	}
	oct := int(math.Round(frac*float64(octaveMax-octaveMin))) + octaveMin
	if oct != g.session.Octave() {
		g.session.SetOctave(oct)
	}
	g.setStatus(fmt.Sprintf("octave %d", g.session.Octave()))
}

func (g *game) releaseFrac() float64 {
	return (g.session.GlobalRelease() - rivi.MinReleaseScale) / (rivi.MaxReleaseScale - rivi.MinReleaseScale)
}

func (g *game) updateReleaseFromMouse(mx int, rect image.Rectangle) {
	frac, ok := sliderFrac(mx, rect)
	if !ok {
		return
	}
	v := rivi.MinReleaseScale + frac*(rivi.MaxReleaseScale-rivi.MinReleaseScale)
	v = math.Round(v*20) / 20
	if v != g.session.GlobalRelease() {
		g.session.SetGlobalRelease(v)
	}
	g.setStatus(fmt.Sprintf("release %.2fx", g.session.GlobalRelease()))
}

// Slider geometry: the label sits in the first 130px, the track takes
// the rest of the panel.
func sliderTrack(rect image.Rectangle) (trackX, trackW int) {
	return rect.Min.X + 130, rect.Dx() - 146
}

func sliderFrac(mx int, rect image.Rectangle) (float64, bool) {
	trackX, trackW := sliderTrack(rect)
	if trackW <= 0 {
		return 0, false
	}
	return clamp(float64(mx-trackX)/float64(trackW), 0, 1), true
}

func (g *game) drawSlider(screen *ebiten.Image, rect image.Rectangle, label string, frac float64, centerMark bool) {
	panel(screen, rect, false)
	g.drawText(screen, label, rect.Min.X+8, rect.Min.Y+8)

	trackX, trackW := sliderTrack(rect)
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	// Sunken track groove.
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), 1, 7, borderColor)

	if centerMark {
		centerX := trackX + trackW/2
		ebitenutil.DrawRect(screen, float64(centerX)-1, float64(trackY-2), 2, 12, borderColor)
	} else {
		fillW := int(frac * float64(trackW-2))
		if fillW > 0 {
			ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW), 6, sliderFillColor)
		}
	}

	knobX := trackX + int(frac*float64(trackW)) - 5
	if knobX < trackX-5 {
		knobX = trackX - 5
	}
	if knobX > trackX+trackW-5 {
		knobX = trackX + trackW - 5
	}
	panel(screen, image.Rect(knobX, trackY-4, knobX+10, trackY+12), false)
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := g.status
	if g.statusErr {
		msg = "error: " + msg
	}

	transport := fmt.Sprintf("row %02d  %s", g.session.ActiveRow(), g.playStateWord())
	tx := rect.Max.X - 8 - len(transport)*charW

	avail := (tx - rect.Min.X - 16) / charW
	g.drawText(screen, shortenMiddle(msg, avail), rect.Min.X+8, rect.Min.Y+8)
	g.drawText(screen, transport, tx, rect.Min.Y+8)
}

func (g *game) playStateWord() string {
	if g.session.Playing() {
		return "playing"
	}
	return "stopped"
}

func (g *game) cursorEffect() rivi.Effect {
	row, channel := g.session.Cursor()
	return g.session.RowSteps(row)[channel].Effect
}

// bumpEffectParam nudges the cursor cell's effect parameter, seeding a
// release effect when the cell has none yet.
func (g *game) bumpEffectParam(delta int) {
	e := g.cursorEffect()
	if !e.Enabled {
		g.session.SetEffectNibble(true, rivi.EffectRelease)
		e = g.cursorEffect()
	}
	g.session.SetEffectNibble(false, byte((int(e.Param())+delta+16)%16))
}

// cycleEffectCommand steps the cursor cell through no effect, detune,
// and release.
func (g *game) cycleEffectCommand() {
	e := g.cursorEffect()
	switch {
	case !e.Enabled:
		g.session.SetEffectNibble(true, rivi.EffectDetune)
		g.session.SetEffectNibble(false, 8) // midpoint, no shift yet
	case e.Command() == rivi.EffectDetune:
		g.session.SetEffectNibble(true, rivi.EffectRelease)
	default:
		g.session.ClearCellEffect()
	}
}

// retune adjusts a detune effect on the cursor cell one sixteenth of a
// semitone at a time.
func (g *game) retune(delta int) {
	e := g.cursorEffect()
	if !e.Enabled || e.Command() != rivi.EffectDetune {
		g.session.SetEffectNibble(true, rivi.EffectDetune)
		g.session.SetEffectNibble(false, 8)
		e = g.cursorEffect()
	}
	p := int(e.Param()) + delta
	if p < 0 {
		p = 0
	} else if p > 15 {
		p = 15
	}
	g.session.SetEffectNibble(false, byte(p))
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

// panel fills rect and bevels its edge. Raised panels sit on the chrome
// color; sunken ones invert the bevel and drop to the dark interior.
func panel(screen *ebiten.Image, rect image.Rectangle, sunken bool) {
	fill := panelColor
	if sunken {
		fill = sunkenBgColor
	}
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), fill)
	bevel(screen, rect, sunken)
}

// button is a panel with a centered label. Pressed buttons render sunken,
// which is how the mute toggles show their state.
func (g *game) button(screen *ebiten.Image, rect image.Rectangle, label string, pressed bool) {
	panel(screen, rect, pressed)
	labelW := len([]rune(label)) * charW
	g.drawText(screen, label, rect.Min.X+(rect.Dx()-labelW)/2, rect.Min.Y+(rect.Dy()-lineH)/2)
}

// bevel draws the two-tone 3D edge, lit from the top left when raised
// and from the bottom right when sunken. A second inset line deepens
// the shadowed corner.
func bevel(screen *ebiten.Image, rect image.Rectangle, sunken bool) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	top, bottom := bevelLight, bevelDarker
	if sunken {
		top, bottom = borderColor, bevelLight
	}
	ebitenutil.DrawRect(screen, x, y, w-1, 1, top)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, top)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bottom)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bottom)
	if sunken {
		ebitenutil.DrawRect(screen, x+1, y+1, w-3, 1, bevelDarker)
		ebitenutil.DrawRect(screen, x+1, y+2, 1, h-4, bevelDarker)
	} else {
		ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
		ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
	}
}

// textImage renders msg through the debug font once and memoizes it.
// The cache is dropped wholesale when the changing labels (bpm, status,
// transport) push it past a few thousand entries.
func (g *game) textImage(msg string) *ebiten.Image {
	if img := g.textCache[msg]; img != nil {
		return img
	}
	img := ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
	ebitenutil.DebugPrintAt(img, msg, 0, 0)
	if len(g.textCache) > 3000 {
		g.textCache = make(map[string]*ebiten.Image, 1024)
	}
	g.textCache[msg] = img
	return img
}

func (g *game) drawText(screen *ebiten.Image, msg string, x, y int) {
	if msg == "" {
		return
	}
	img := g.textImage(msg)
	shadow := &ebiten.DrawImageOptions{}
	shadow.GeoM.Scale(textScale, textScale)
	shadow.GeoM.Translate(float64(x+2), float64(y+2))
	shadow.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, shadow)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	switch {
	case len(r) <= maxChars:
		return s
	case maxChars <= 3:
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func shortenMiddle(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 7 {
		return shortenEnd(s, maxChars)
	}
	left := (maxChars - 3) / 2
	right := maxChars - 3 - left
	return string(r[:left]) + "..." + string(r[len(r)-right:])
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return image.Pt(x, y).In(rect)
}

func uiInstruments() []rivi.Instrument {
	presets := preset.Load()
	if len(presets) == 0 {
		return rivi.DefaultInstruments()
	}
	return preset.Instruments(presets)
}

func main() {
	path := "song.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	song, err := rivi.LoadSong(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("load %q: %v", path, err)
		}
		song = rivi.NewSong(rivi.DefaultRows, rivi.DefaultChannels)
	}

	session := rivi.NewSession(song,
		rivi.WithAudioBackend(rivi.BackendEbiten),
		rivi.WithSampleRate(uiSampleRate),
		rivi.WithInstruments(uiInstruments()),
	)
	g := newGame(session, path)
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("rivi - " + filepath.Base(path))
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
