package player

import (
	"time"

	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

// KeyReader continuously reads single bytes from an input source on its own
// goroutine and makes them available on a channel, so the playback loop's
// timed wait can multiplex over "time elapsed" and "key pressed" without
// platform-specific poll/select machinery.
type KeyReader struct {
	ch chan byte
}

// StartKeyReader launches the background read loop. readByte is called
// repeatedly; a real caller passes a function that blocks on os.Stdin.Read
// for exactly one byte (the terminal adapter configures VMIN=1/VTIME=0 so
// that call returns promptly on the next keystroke).
func StartKeyReader(readByte func() (byte, error)) *KeyReader {
	kr := &KeyReader{ch: make(chan byte)}
	go func() {
		for {
			b, err := readByte()
			if err != nil {
				return
			}
			kr.ch <- b
		}
	}()
	return kr
}

// Chan exposes the stream of bytes read so far.
func (k *KeyReader) Chan() <-chan byte {
	return k.ch
}

// WaitResult reports what interrupted (or didn't interrupt) a timed wait.
type WaitResult struct {
	Interrupted bool
	Key         byte
}

// Wait blocks for delta real-time seconds, scaled by the current speed, or
// until a key becomes available — matching spec §5's suspension contract.
// When paused, it blocks indefinitely on the key channel. Drift correction
// (spec §5) is applied and updated on state: each call subtracts the prior
// drift from the requested duration (never going negative), measures actual
// wall-clock time spent, and records the new drift. An input-interrupted
// wait resets drift to zero, since the time spent waiting for that key was
// not playback time.
func Wait(state *State, keys <-chan byte, delta ttime.Time) WaitResult {
	if state.Speed.Paused() {
		b := <-keys
		state.Drift = 0
		return WaitResult{Interrupted: true, Key: b}
	}

	requested := scaledDuration(delta, state.Speed.Effective())
	requested -= state.Drift
	if requested < 0 {
		requested = 0
	}

	timer := time.NewTimer(requested)
	defer timer.Stop()

	start := time.Now()
	select {
	case b := <-keys:
		state.Drift = 0
		return WaitResult{Interrupted: true, Key: b}
	case <-timer.C:
		actual := time.Since(start)
		state.Drift = requested - actual
		return WaitResult{}
	}
}

func scaledDuration(delta ttime.Time, speed float64) time.Duration {
	if speed <= 0 {
		return 0
	}
	scaled := ttime.DivideBy(delta, speed)
	return time.Duration(scaled.Sec)*time.Second + time.Duration(scaled.Usec)*time.Microsecond
}
