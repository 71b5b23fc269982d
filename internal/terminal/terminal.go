// Package terminal implements a text mode frontend for the interpreter based
// on tcell. It renders the frame buffer with half block characters, maps the
// keyboard to the hexadecimal keypad and shows a sound indicator.
package terminal

import (
	"fmt"
	"time"
	"unicode"

	"github.com/gdamore/tcell"
	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/host"
	"github.com/retroenv/retrochip8/internal/keypad"
)

// KeyHold is the duration a key counts as pressed after its last key event.
// Terminals do not report key releases, held keys repeat instead.
const KeyHold = 150 * time.Millisecond

// keyMap maps the left hand side of a QWERTY keyboard to the COSMAC VIP
// keypad layout:
//
//	1 2 3 4      1 2 3 C
//	Q W E R  ->  4 5 6 D
//	A S D F      7 8 9 E
//	Z X C V      A 0 B F
var keyMap = map[rune]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

var (
	_ host.Renderer      = (*Terminal)(nil)
	_ host.Input         = (*Terminal)(nil)
	_ host.Buzzer        = (*Terminal)(nil)
	_ host.StatusDisplay = (*Terminal)(nil)
)

var (
	borderStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	pixelStyle  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	titleStyle  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	soundStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	helpStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	haltStyle   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// Terminal renders the display and collects keyboard input.
type Terminal struct {
	screen tcell.Screen
	title  string
	now    func() time.Time

	events chan tcell.Event
	done   chan struct{}

	held  [keypad.Keys]time.Time // time of the last event per pressed key
	frame  display.Frame
	sound  bool
	status string
}

// New initializes the terminal screen. Close has to be called to restore the
// terminal state.
func New(title string) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	return newWithScreen(screen, title)
}

func newWithScreen(screen tcell.Screen, title string) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}
	screen.HideCursor()
	screen.Clear()

	t := &Terminal{
		screen: screen,
		title:  title,
		now:    time.Now,
		events: make(chan tcell.Event, 64),
		done:   make(chan struct{}),
	}
	go t.pollEvents()
	return t, nil
}

// Close restores the terminal.
func (t *Terminal) Close() {
	close(t.done)
	t.screen.Fini()
}

// pollEvents forwards the blocking screen events to the event channel until
// the screen is finalized.
func (t *Terminal) pollEvents() {
	for {
		event := t.screen.PollEvent()
		if event == nil {
			return
		}
		select {
		case t.events <- event:
		case <-t.done:
			return
		}
	}
}

// Poll processes all pending terminal events, updates the keypad state and
// returns the last requested command.
func (t *Terminal) Poll(keys *keypad.Keypad) (host.Command, error) {
	command := host.CommandNone
	for {
		select {
		case event := <-t.events:
			cmd, err := t.handleEvent(event, keys)
			if err != nil {
				return host.CommandNone, err
			}
			if cmd != host.CommandNone {
				command = cmd
			}

		default:
			return command, t.releaseKeys(keys)
		}
	}
}

// handleEvent processes a single terminal event.
func (t *Terminal) handleEvent(event tcell.Event, keys *keypad.Keypad) (host.Command, error) {
	switch ev := event.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return host.CommandQuit, nil
		case tcell.KeyF5:
			return host.CommandReload, nil
		case tcell.KeyRune:
			key, ok := keyMap[unicode.ToLower(ev.Rune())]
			if !ok {
				return host.CommandNone, nil
			}
			if err := keys.SetKey(key, true); err != nil {
				return host.CommandNone, fmt.Errorf("pressing key: %w", err)
			}
			t.held[key] = t.now()
		}

	case *tcell.EventResize:
		t.screen.Sync()
		t.draw()
	}
	return host.CommandNone, nil
}

// releaseKeys releases all keys that received no event within the hold duration.
func (t *Terminal) releaseKeys(keys *keypad.Keypad) error {
	now := t.now()
	for key, last := range t.held {
		if last.IsZero() || now.Sub(last) < KeyHold {
			continue
		}
		if err := keys.SetKey(uint8(key), false); err != nil {
			return fmt.Errorf("releasing key: %w", err)
		}
		t.held[key] = time.Time{}
	}
	return nil
}

// Render draws the frame and presents it.
func (t *Terminal) Render(frame display.Frame) error {
	t.frame = frame
	t.draw()
	return nil
}

// SetSound updates the sound indicator and rings the terminal bell when the
// tone starts.
func (t *Terminal) SetSound(active bool) {
	if active == t.sound {
		return
	}
	t.sound = active
	if active {
		_ = t.screen.Beep()
	}
	t.drawStatus()
	t.screen.Show()
}

// SetStatus shows a message below the display, an empty message clears it.
func (t *Terminal) SetStatus(message string) {
	if runes := []rune(message); len(runes) > display.Width {
		message = string(runes[:display.Width])
	}
	t.status = message
	t.drawStatus()
	t.screen.Show()
}

// draw redraws the whole screen. Two display rows share one character cell.
func (t *Terminal) draw() {
	drawBox(t.screen, 0, 0, display.Width+1, display.Height/2+1)
	drawString(t.screen, 2, 0, titleStyle, " "+t.title+" ")

	for row := 0; row < display.Height; row += 2 {
		for x := range display.Width {
			upper := t.frame.Pixel(x, row)
			lower := t.frame.Pixel(x, row+1)
			t.screen.SetContent(x+1, row/2+1, halfBlock(upper, lower), nil, pixelStyle)
		}
	}

	t.drawStatus()
	t.screen.Show()
}

// drawStatus draws the line below the display.
func (t *Terminal) drawStatus() {
	y := display.Height/2 + 2
	drawString(t.screen, 1, y, helpStyle, "Esc quit  F5 reload")

	indicator := "     "
	if t.sound {
		indicator = "SOUND"
	}
	drawString(t.screen, display.Width-4, y, soundStyle, indicator)

	drawString(t.screen, 1, y+1, haltStyle, fmt.Sprintf("%-*s", display.Width, t.status))
}

func halfBlock(upper, lower bool) rune {
	switch {
	case upper && lower:
		return '█'
	case upper:
		return '▀'
	case lower:
		return '▄'
	default:
		return ' '
	}
}

func drawString(s tcell.Screen, x, y int, style tcell.Style, str string) {
	for _, c := range str {
		s.SetContent(x, y, c, nil, style)
		x++
	}
}

func drawBox(s tcell.Screen, x, y, w, h int) {
	s.SetContent(x, y, tcell.RuneULCorner, nil, borderStyle)
	s.SetContent(x+w, y, tcell.RuneURCorner, nil, borderStyle)
	s.SetContent(x, y+h, tcell.RuneLLCorner, nil, borderStyle)
	s.SetContent(x+w, y+h, tcell.RuneLRCorner, nil, borderStyle)
	for col := x + 1; col < x+w; col++ {
		s.SetContent(col, y, tcell.RuneHLine, nil, borderStyle)
		s.SetContent(col, y+h, tcell.RuneHLine, nil, borderStyle)
	}
	for row := y + 1; row < y+h; row++ {
		s.SetContent(x, row, tcell.RuneVLine, nil, borderStyle)
		s.SetContent(x+w, row, tcell.RuneVLine, nil, borderStyle)
	}
}
