// Package player implements the interactive playback loop (spec §4.G):
// timing discipline with drift correction, speed/pause, key dispatch, and
// seek/jump execution against an index built by internal/index.
package player

import (
	"time"

	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

// Speed is a tagged Running/Paused variant — the source overloads the sign
// of a single float for this; here pausing and the resume value are kept
// as distinct fields so no comparison ever has to remember the convention.
type Speed struct {
	value  float64 // always > 0
	paused bool
}

// NewSpeed returns a running Speed at the given (positive) multiplier.
func NewSpeed(value float64) Speed {
	if value <= 0 {
		value = 1.0
	}
	return Speed{value: value}
}

// Effective returns the multiplier actually applied to waits: the running
// value, or 0 when paused (the wait then blocks indefinitely).
func (s Speed) Effective() float64 {
	if s.paused {
		return 0
	}
	return s.value
}

// Paused reports whether playback is currently paused.
func (s Speed) Paused() bool { return s.paused }

// TogglePause flips running/paused, preserving the resume value either way.
func (s Speed) TogglePause() Speed {
	s.paused = !s.paused
	return s
}

// Double, Halve, and Reset mutate the underlying value; they're no-ops on
// the running/paused flag, matching spec §4.F ('+'/'-'/'1' all act on the
// value regardless of pause state).
func (s Speed) Double() Speed { s.value *= 2; return s }
func (s Speed) Halve() Speed  { s.value /= 2; return s }
func (s Speed) Reset() Speed  { s.value = 1.0; return s }

// State is the single process-wide, mutable player state (spec §3). It is
// threaded explicitly through the loop and its helpers rather than kept in
// a package-level global.
type State struct {
	CurrentFileIdx  int
	CurrentClearIdx int // -1 before the first clear-screen entry
	StreamPosition  int64
	Elapsed         ttime.Time
	PendingSeek     float64 // signed seconds; 0 means none outstanding
	Speed           Speed
	Drift           time.Duration // signed; reset to 0 on input-interrupted waits
}

// NewState returns the initial state for a fresh playback session at the
// given starting speed.
func NewState(speed float64) *State {
	return &State{CurrentClearIdx: -1, Speed: NewSpeed(speed)}
}
