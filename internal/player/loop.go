package player

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/ehrlich-b/ttyplay/internal/index"
	"github.com/ehrlich-b/ttyplay/internal/input"
	"github.com/ehrlich-b/ttyplay/internal/metrics"
	"github.com/ehrlich-b/ttyplay/internal/record"
	"github.com/ehrlich-b/ttyplay/internal/seek"
	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

// ErrQuit is returned by Run when playback ended because the user pressed
// the quit key, as opposed to reaching the natural end of the recording.
var ErrQuit = errors.New("player: quit requested")

// Loop drives one playback session end to end (spec §4.G): it owns the
// open file, the decoder, the seek engine, and the mutable State, and
// repeatedly reads a record, waits for it to become due, dispatches any key
// pressed during the wait, executes pending seeks/jumps, and emits the
// payload.
type Loop struct {
	ix    *index.Index
	seek  *seek.Engine
	state *State
	out   io.Writer
	keys  <-chan byte
	dec   *input.Decoder
	log   *slog.Logger

	// NoWait skips real timing entirely (every record is due immediately),
	// used by the batch/test-only path and by -n/--no-wait.
	NoWait bool

	// OnFileChange, if set, is called whenever playback starts reading a
	// new current file (including the very first one), with its filename.
	OnFileChange func(name string)

	// Metrics, if set, receives seek counts and the current elapsed/speed/
	// drift gauges as the loop runs. A nil Metrics (the zero value) is the
	// default and every call into it is a no-op.
	Metrics *metrics.Metrics
}

// NewLoop builds a Loop over an already-built index (or nil for a
// non-seekable single stdin stream). out receives emitted payloads; keys
// delivers raw bytes read from the controlling terminal (see
// StartKeyReader); log receives non-fatal diagnostics.
func NewLoop(ix *index.Index, state *State, out io.Writer, keys <-chan byte, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		ix:    ix,
		seek:  seek.New(ix),
		state: state,
		out:   out,
		keys:  keys,
		dec:   input.NewDecoder(),
		log:   log,
	}
}

// Run plays from the beginning of the session (or, for a non-seekable
// stream, from r) until the recording ends, the user quits, or ctx is
// canceled. For an indexed session r is ignored; the Loop opens its indexed
// files itself.
func (l *Loop) Run(ctx context.Context, r io.Reader) error {
	var cur *source
	var err error

	if l.ix.NoIndex() {
		cur = newStreamSource(r, "<stream>")
	} else {
		// state.CurrentFileIdx/StreamPosition are zero for a fresh session,
		// but a caller resuming from a bookmark (spec §4.M) may have
		// pre-populated them before calling Run.
		cur, err = openFileSource(l.ix.FileAt(l.state.CurrentFileIdx).Name)
		if err != nil {
			return err
		}
		if l.state.StreamPosition != 0 {
			if err := cur.seekTo(l.state.StreamPosition); err != nil {
				return err
			}
		}
	}
	defer cur.close()
	l.notifyFileChange(cur.name)
	l.Metrics.SetSpeed(l.state.Speed.Effective())
	l.Metrics.SetElapsed(l.state.Elapsed.Seconds())

	var previous *ttime.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, offset, err := cur.readNext()
		if err == io.EOF {
			next, rolled, rerr := l.rollToNextFile(cur)
			if rerr != nil {
				return rerr
			}
			if !rolled {
				return nil
			}
			cur = next
			previous = nil
			continue
		}
		if err != nil {
			return err
		}
		l.state.StreamPosition = offset

		if previous != nil && !l.NoWait {
			delta := ttime.Difference(*previous, rec.Timestamp)
			wr := Wait(l.state, l.keys, delta)
			l.Metrics.SetDrift(float64(l.state.Drift.Microseconds()))
			if wr.Interrupted {
				quit, reposition, rerr := l.handleKey(wr.Key, &cur)
				if rerr != nil {
					return rerr
				}
				if quit {
					return ErrQuit
				}
				if reposition {
					previous = nil
					continue
				}
			}
		} else if previous != nil {
			// No-wait mode still drains any already-buffered key so tests
			// (and -n batch runs) can exercise command dispatch.
			select {
			case b := <-l.keys:
				quit, reposition, rerr := l.handleKey(b, &cur)
				if rerr != nil {
					return rerr
				}
				if quit {
					return ErrQuit
				}
				if reposition {
					previous = nil
					continue
				}
			default:
			}
		}

		if l.state.PendingSeek != 0 {
			next, rerr := l.executeSeek(cur)
			if rerr != nil {
				return rerr
			}
			cur = next
			previous = nil
			continue
		}

		if err := record.Write(l.out, rec.Payload); err != nil {
			return err
		}
		if previous != nil {
			l.state.Elapsed = ttime.Add(l.state.Elapsed, ttime.Difference(*previous, rec.Timestamp))
			l.Metrics.SetElapsed(l.state.Elapsed.Seconds())
		}
		// Advance CurrentClearIdx past every clear-screen entry up to and
		// including the record just emitted.
		for n := l.state.CurrentClearIdx + 1; !l.ix.NoIndex() && n < len(l.ix.Clears); n++ {
			c := l.ix.ClearAt(n)
			if c.FileIdx > l.state.CurrentFileIdx || (c.FileIdx == l.state.CurrentFileIdx && c.RecordOffset > offset) {
				break
			}
			l.state.CurrentClearIdx = n
		}
		ts := rec.Timestamp
		previous = &ts
	}
}

// rollToNextFile advances to the next indexed file on end-of-stream. The
// second return value is false when there is no next file (the session is
// over).
func (l *Loop) rollToNextFile(cur *source) (*source, bool, error) {
	if l.ix.NoIndex() || l.state.CurrentFileIdx >= l.ix.FileCount()-1 {
		return nil, false, nil
	}
	cur.close()
	l.state.CurrentFileIdx++
	next, err := openFileSource(l.ix.FileAt(l.state.CurrentFileIdx).Name)
	if err != nil {
		return nil, false, err
	}
	l.state.StreamPosition = 0
	l.notifyFileChange(next.name)
	return next, true, nil
}

// handleKey dispatches one fully-decoded command (reading further bytes off
// the key channel itself if the escape sequence isn't complete yet).
// reposition reports whether the stream cursor moved and the caller must
// restart its read loop without waiting on the stale `previous` timestamp.
func (l *Loop) handleKey(b byte, cur **source) (quit bool, reposition bool, err error) {
	cmd := l.dec.Feed(b)
	for cmd.Kind == input.None {
		next, ok := <-l.keys
		if !ok {
			return false, false, nil
		}
		cmd = l.dec.Feed(next)
	}

	switch cmd.Kind {
	case input.Quit:
		return true, false, nil

	case input.SpeedDouble:
		l.state.Speed = l.state.Speed.Double()
		l.Metrics.SetSpeed(l.state.Speed.Effective())
	case input.SpeedHalve:
		l.state.Speed = l.state.Speed.Halve()
		l.Metrics.SetSpeed(l.state.Speed.Effective())
	case input.SpeedReset:
		l.state.Speed = l.state.Speed.Reset()
		l.Metrics.SetSpeed(l.state.Speed.Effective())
	case input.TogglePause:
		l.state.Speed = l.state.Speed.TogglePause()
		l.Metrics.SetSpeed(l.state.Speed.Effective())

	case input.JumpFileNext:
		pos := l.seek.JumpFile(l.state.CurrentFileIdx, 1, l.state.Elapsed)
		l.Metrics.SeekPerformed()
		return false, true, l.applyPosition(cur, pos)
	case input.JumpFilePrev:
		pos := l.seek.JumpFile(l.state.CurrentFileIdx, -1, l.state.Elapsed)
		l.Metrics.SeekPerformed()
		return false, true, l.applyPosition(cur, pos)
	case input.JumpClearNext:
		pos := l.seek.JumpClear(l.state.CurrentClearIdx, 1)
		l.Metrics.SeekPerformed()
		return false, true, l.applyPosition(cur, pos)
	case input.JumpClearPrev:
		pos := l.seek.JumpClear(l.state.CurrentClearIdx, -1)
		l.Metrics.SeekPerformed()
		return false, true, l.applyPosition(cur, pos)

	case input.SeekRelative:
		l.state.PendingSeek += cmd.Seconds * l.state.Speed.value
	case input.SeekStart:
		l.Metrics.SeekPerformed()
		return false, true, l.applyPosition(cur, l.seek.Start())
	case input.SeekEnd:
		l.Metrics.SeekPerformed()
		return false, true, l.applyPosition(cur, l.seek.End())

	case input.Unknown:
		l.log.Debug("player: ignoring unrecognized key", "byte", b)
	}
	return false, false, nil
}

// executeSeek resolves state.PendingSeek via coarse+fine seek (spec §4.E)
// and returns the (possibly new) current source, repositioned and with
// PendingSeek cleared.
func (l *Loop) executeSeek(cur *source) (*source, error) {
	target := ttime.Add(l.state.Elapsed, ttime.FromSeconds(l.state.PendingSeek))
	if target.Compare(ttime.Time{}) < 0 {
		target = ttime.Time{}
	}
	l.state.PendingSeek = 0

	coarse := l.seek.Coarse(target)

	next := cur
	if l.ix.NoIndex() {
		return cur, nil
	}
	if coarse.FileIdx != l.state.CurrentFileIdx {
		cur.close()
		var err error
		next, err = openFileSource(l.ix.FileAt(coarse.FileIdx).Name)
		if err != nil {
			return nil, err
		}
		l.notifyFileChange(next.name)
	}
	if err := next.seekTo(coarse.StreamOffset); err != nil {
		return nil, err
	}

	res, err := l.seek.Fine(next.br, coarse, target, l.out)
	if err != nil {
		return nil, err
	}
	next.pos = res.StreamOffset

	l.state.CurrentFileIdx = coarse.FileIdx
	l.state.CurrentClearIdx = coarse.ClearIdx
	l.state.Elapsed = res.Elapsed
	l.state.StreamPosition = res.StreamOffset
	l.Metrics.SeekPerformed()
	l.Metrics.SetElapsed(l.state.Elapsed.Seconds())
	return next, nil
}

// applyPosition repositions *cur directly to a resolved seek.Position (used
// by the direct jump/start/end commands, which bypass PendingSeek entirely).
func (l *Loop) applyPosition(cur **source, pos seek.Position) error {
	if l.ix.NoIndex() {
		return nil
	}
	next := *cur
	if pos.FileIdx != l.state.CurrentFileIdx {
		(*cur).close()
		var err error
		next, err = openFileSource(l.ix.FileAt(pos.FileIdx).Name)
		if err != nil {
			return err
		}
		l.notifyFileChange(next.name)
	}
	if err := next.seekTo(pos.StreamOffset); err != nil {
		return err
	}
	l.state.CurrentFileIdx = pos.FileIdx
	l.state.CurrentClearIdx = pos.ClearIdx
	l.state.Elapsed = pos.Elapsed
	l.state.StreamPosition = pos.StreamOffset
	l.Metrics.SetElapsed(l.state.Elapsed.Seconds())
	*cur = next
	return nil
}

func (l *Loop) notifyFileChange(name string) {
	if l.OnFileChange != nil {
		l.OnFileChange(name)
	}
}
