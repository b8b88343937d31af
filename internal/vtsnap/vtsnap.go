// Package vtsnap feeds the bytes a playback session emits into a headless
// terminal emulator (charmbracelet/x/vt) so a browser viewer that connects
// mid-session (spec §4.N, serve mode) can be caught up with a single ANSI
// snapshot instead of replaying the whole recording from the start.
package vtsnap

import (
	"fmt"
	"strings"
	"sync"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/vt"
)

// scrollbackCap bounds how many scrolled-off lines are kept for the
// snapshot; a ttyrec session replayed at high speed can scroll far more
// than a live shell ever would, so this is generous but still bounded.
const scrollbackCap = 20000

// Emulator mirrors a playback session's screen state. All methods are
// safe for concurrent use; Feed is called from the playback loop's
// goroutine while Snapshot is called from serving viewer goroutines.
type Emulator struct {
	mu   sync.Mutex
	emu  *vt.Emulator
	cols int
	rows int

	scrollback []string
	head       int
	count      int

	altScreen    bool
	cursorHidden bool
}

// New creates an Emulator sized to an initial terminal geometry.
func New(cols, rows int) *Emulator {
	e := &Emulator{
		emu:        vt.NewEmulator(cols, rows),
		cols:       cols,
		rows:       rows,
		scrollback: make([]string, scrollbackCap),
	}
	e.emu.SetCallbacks(vt.Callbacks{
		ScrollOut:        e.onScrollOut,
		ScrollbackClear:  e.onScrollbackClear,
		AltScreen:        func(on bool) { e.altScreen = on },
		CursorVisibility: func(visible bool) { e.cursorHidden = !visible },
	})
	return e
}

// onScrollOut and onScrollbackClear run with mu already held, since they
// only ever fire from inside Feed.
func (e *Emulator) onScrollOut(lines []uv.Line) {
	if e.altScreen {
		return
	}
	for _, line := range lines {
		rendered := line.Render()
		if e.count == len(e.scrollback) {
			e.scrollback[e.head] = ""
		}
		e.scrollback[e.head] = rendered
		e.head = (e.head + 1) % len(e.scrollback)
		if e.count < len(e.scrollback) {
			e.count++
		}
	}
}

func (e *Emulator) onScrollbackClear() {
	for i := range e.scrollback {
		e.scrollback[i] = ""
	}
	e.count = 0
	e.head = 0
}

// Feed replays one emitted payload into the emulator, exactly as the
// terminal a live viewer was attached to would have seen it.
func (e *Emulator) Feed(payload []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emu.Write(payload)
}

// Resize updates the emulator's geometry, e.g. on a serve-mode client
// reporting a new viewport size.
func (e *Emulator) Resize(cols, rows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emu.Resize(cols, rows)
	e.cols, e.rows = cols, rows
}

// Snapshot renders scrollback plus the current grid as one ANSI blob any
// terminal (or xterm.js instance) can consume directly to catch up.
func (e *Emulator) Snapshot() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	var buf strings.Builder

	lines := e.scrollbackLines()
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}
	if len(lines) > 0 {
		for i := 0; i < e.rows-1; i++ {
			buf.WriteByte('\n')
		}
	}

	buf.WriteString("\x1b[m\x1b[H")
	buf.WriteString(e.emu.Render())

	pos := e.emu.CursorPosition()
	fmt.Fprintf(&buf, "\x1b[%d;%dH", pos.Y+1, pos.X+1)

	if e.cursorHidden {
		buf.WriteString("\x1b[?25l")
	} else {
		buf.WriteString("\x1b[?25h")
	}

	return []byte(buf.String())
}

// Close releases the underlying emulator.
func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emu.Close()
}

// scrollbackLines returns all stored scrollback lines oldest-first. Must be
// called with mu held.
func (e *Emulator) scrollbackLines() []string {
	if e.count == 0 {
		return nil
	}
	lines := make([]string, e.count)
	start := (e.head - e.count + len(e.scrollback)) % len(e.scrollback)
	for i := 0; i < e.count; i++ {
		lines[i] = e.scrollback[(start+i)%len(e.scrollback)]
	}
	return lines
}
