package main

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/richardwooding/armemu/internal/console"
	"github.com/richardwooding/armemu/internal/emulator"
)

// Grid geometry: one column per line, one row per register.
const (
	gridCols   = 32
	gridRows   = 2
	cellWidth  = 12
	cellHeight = 24
	gridTop    = 40

	screenWidth  = gridCols * cellWidth
	screenHeight = gridTop + gridRows*cellHeight + 40
)

var (
	maskedColor  = color.RGBA{0x34, 0x34, 0x40, 0xFF}
	enabledColor = color.RGBA{0x88, 0xC0, 0x70, 0xFF}
	idleColor    = color.RGBA{0x18, 0x18, 0x20, 0xFF}
	pendingColor = color.RGBA{0xE0, 0x50, 0x40, 0xFF}
)

// MonitorCmd shows the interrupt registers in a window.
type MonitorCmd struct {
	Scale int      `help:"Window scale factor (1-10)." default:"2"`
	Lines []uint32 `help:"Extra lines to request."`
}

// Run executes the monitor command.
func (c *MonitorCmd) Run(g *Globals) error {
	if c.Scale < 1 || c.Scale > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidScale, c.Scale)
	}

	m := &Monitor{}
	emu, err := g.emulator(emulator.Callbacks{
		OnLineFired: func(hw uint32) { m.lastFired = int(hw) },
	}, c.Lines)
	if err != nil {
		return err
	}
	m.init(emu)

	ebiten.SetWindowTitle("armemu - interrupt monitor")
	ebiten.SetWindowSize(screenWidth*c.Scale, screenHeight*c.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	if err := ebiten.RunGame(m); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("monitor error: %w", err)
	}
	return nil
}

// Monitor implements the Ebiten game interface for the register view.
type Monitor struct {
	emu  *emulator.Emulator
	keys *console.Keypad

	grid   *ebiten.Image
	pixels []byte // Pre-allocated pixel buffer to avoid GC pressure

	stepsPerFrame uint32
	lastFired     int
}

func (m *Monitor) init(emu *emulator.Emulator) {
	m.emu = emu
	m.keys = console.NewKeypad(emu.Machine().Raise)
	m.grid = ebiten.NewImage(gridCols, gridRows)
	m.pixels = make([]byte, gridCols*gridRows*4) // RGBA format
	m.lastFired = -1

	// Keep the counter in step with its clock rate at 60 frames per second
	rate := emu.ClockEvent().Rate()
	m.stepsPerFrame = max(rate/60, 1)
}

// Update advances the hardware one frame.
func (m *Monitor) Update() error {
	if m.handleInput() {
		return ebiten.Termination
	}
	m.emu.Step(m.stepsPerFrame)
	return nil
}

// handleInput raises lines for newly pressed keys. It reports whether the
// user asked to quit.
func (m *Monitor) handleInput() bool {
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if k == ebiten.KeyEscape || k == ebiten.KeyX {
			return true
		}
		if r, ok := keyRune(k); ok {
			m.keys.Press(r)
		}
	}
	return false
}

// keyRune maps an Ebiten key to the console keypad rune.
func keyRune(k ebiten.Key) (rune, bool) {
	name := k.String()
	switch {
	case len(name) == 1:
		return rune(strings.ToLower(name)[0]), true
	case len(name) == 6 && strings.HasPrefix(name, "Digit"):
		return rune(name[5]), true
	}
	return 0, false
}

// Draw renders the mask row above the pending row, line 0 leftmost.
func (m *Monitor) Draw(screen *ebiten.Image) {
	s := m.emu.Snapshot()

	for hw := 0; hw < gridCols; hw++ {
		bit := uint32(1) << hw

		c := enabledColor
		if s.Mask&bit != 0 {
			c = maskedColor
		}
		setPixel(m.pixels, hw, c)

		c = idleColor
		if s.Pending&bit != 0 {
			c = pendingColor
		}
		setPixel(m.pixels, gridCols+hw, c)
	}
	m.grid.WritePixels(m.pixels)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(cellWidth, cellHeight)
	op.GeoM.Translate(0, gridTop)
	screen.DrawImage(m.grid, op)

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("counter %d  %s  ticks %d", s.Counter, s.Mode, s.Ticks), 4, 4)
	ebitenutil.DebugPrintAt(screen, "mask / pending   keys 0-9 a-v raise, x quits", 4, 20)

	last := "-"
	if m.lastFired >= 0 {
		last = fmt.Sprintf("%d", m.lastFired)
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("entries %d  last line %s", s.Entries, last), 4, gridTop+gridRows*cellHeight+8)
}

func setPixel(pixels []byte, i int, c color.RGBA) {
	offset := i * 4
	pixels[offset] = c.R
	pixels[offset+1] = c.G
	pixels[offset+2] = c.B
	pixels[offset+3] = c.A
}

// Layout returns the logical screen size.
func (m *Monitor) Layout(_, _ int) (int, int) {
	return screenWidth, screenHeight
}
