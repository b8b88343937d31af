// Package termio puts the controlling terminal into single-byte raw mode
// for the duration of playback and guarantees its restoration, the way
// cmd/wt's egg attach path drives golang.org/x/term around a PTY session.
package termio

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Charset selects the terminal character-set escape written at startup.
type Charset int

const (
	// CharsetNone leaves the terminal's current character set untouched.
	CharsetNone Charset = iota
	CharsetUTF8
	Charset8Bit
)

var (
	utf8Select  = []byte("\x1b%G")
	eightSelect = []byte("\x1b%@")
)

// Adapter owns the saved terminal state for one playback session.
type Adapter struct {
	fd       int
	saved    *term.State
	isTerm   bool
	charset  Charset
}

// New prepares an Adapter for fd without yet touching terminal mode.
func New(fd int, charset Charset) *Adapter {
	return &Adapter{fd: fd, isTerm: term.IsTerminal(fd), charset: charset}
}

// Enable switches the terminal into raw mode (no canonical mode, no local
// echo, no newline translation, one byte at a time — VMIN=1/VTIME=0 on
// unix) and writes the configured character-set selector, if any. It is a
// no-op if fd is not a terminal (e.g. output is redirected to a file).
func (a *Adapter) Enable(out io.Writer) error {
	if !a.isTerm {
		return nil
	}
	saved, err := term.MakeRaw(a.fd)
	if err != nil {
		return fmt.Errorf("termio: enable raw mode: %w", err)
	}
	a.saved = saved

	switch a.charset {
	case CharsetUTF8:
		_, _ = out.Write(utf8Select)
	case Charset8Bit:
		_, _ = out.Write(eightSelect)
	}
	return nil
}

// Restore puts the terminal back exactly as Enable found it. Safe to call
// multiple times and safe to call even if Enable was never called or failed
// (e.g. from a deferred cleanup on every exit path, including signal-driven
// ones).
func (a *Adapter) Restore() error {
	if !a.isTerm || a.saved == nil {
		return nil
	}
	err := term.Restore(a.fd, a.saved)
	a.saved = nil
	return err
}

// Size returns the terminal's current columns/rows, or (0, 0, err) if fd is
// not a terminal.
func (a *Adapter) Size() (cols, rows int, err error) {
	if !a.isTerm {
		return 0, 0, fmt.Errorf("termio: fd %d is not a terminal", a.fd)
	}
	return term.GetSize(a.fd)
}

// IsTerminal reports whether fd refers to a terminal.
func (a *Adapter) IsTerminal() bool {
	return a.isTerm
}

// StdinFD is a small convenience for the common case.
func StdinFD() int {
	return int(os.Stdin.Fd())
}
