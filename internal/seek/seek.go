// Package seek implements the coarse+fine seek algorithm and the file/
// clear-screen jump primitives described in spec §4.E. It operates purely
// on an index.Index and an open stream; the playback loop (internal/player)
// is responsible for actually switching which file is open.
package seek

import (
	"io"

	"github.com/ehrlich-b/ttyplay/internal/index"
	"github.com/ehrlich-b/ttyplay/internal/record"
	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

// SwitchLatency is the grace window (spec §4.E) below which "previous file"
// actually switches to the previous file; at or past it, "previous file"
// means "restart the current file".
const SwitchLatency = 10.0 // seconds

// Position names exactly where in the session a seek or jump has landed:
// which file, which clear-screen entry (if any, else -1), the elapsed time
// at that point, and the byte offset to reposition the stream to.
type Position struct {
	FileIdx      int
	ClearIdx     int // -1 if landed before any clear-screen entry
	Elapsed      ttime.Time
	StreamOffset int64
}

// Engine resolves seek/jump requests against a built Index.
type Engine struct {
	ix *index.Index
}

// New builds a seek Engine over ix. ix may be nil (no navigation available);
// every method then reports NoIndex and is a no-op, matching spec §7.
func New(ix *index.Index) *Engine {
	return &Engine{ix: ix}
}

// NoIndex reports whether this engine has no navigable index to work with.
func (e *Engine) NoIndex() bool {
	return e.ix.NoIndex()
}

// Coarse resolves target (always non-negative) to the latest clear-screen
// entry at or before it, or the final entry if target is past the end of
// the session. It never overshoots. If the index has zero clear-screen
// entries at all, it returns FileIdx 0, ClearIdx -1, offset 0.
func (e *Engine) Coarse(target ttime.Time) Position {
	if e.NoIndex() {
		return Position{}
	}
	if len(e.ix.Clears) == 0 {
		return Position{FileIdx: 0, ClearIdx: -1}
	}

	best := 0
	for i, c := range e.ix.Clears {
		if c.ElapsedAtEntry.Compare(target) <= 0 {
			best = i
		} else {
			break
		}
	}
	c := e.ix.Clears[best]
	return Position{
		FileIdx:      c.FileIdx,
		ClearIdx:     best,
		Elapsed:      c.ElapsedAtEntry,
		StreamOffset: c.RecordOffset,
	}
}

// FineResult is what the fine-phase replay produced.
type FineResult struct {
	Elapsed      ttime.Time
	StreamOffset int64 // start of the first record not yet read, for clean resumption
}

// Fine replays records forward from the stream's current position (which
// the caller must have already seeked to start.StreamOffset) until the next
// record would push elapsed past target, matching it but never exceeding it
// by more than one record. Every read record's payload is written to out.
//
// offset always tracks the byte position at the start of the next record to
// be read — the same convention Position.StreamOffset uses elsewhere — so
// the returned StreamOffset is simply wherever offset lands when the loop
// stops, whether that's after an ordinary record or after the one record
// whose inclusion overshot target.
func (e *Engine) Fine(r io.Reader, start Position, target ttime.Time, out io.Writer) (FineResult, error) {
	elapsed := start.Elapsed
	offset := start.StreamOffset

	var previous *ttime.Time

	for {
		rec, err := record.ReadNext(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return FineResult{}, err
		}
		offset += int64(12 + len(rec.Payload))

		overshoot := false
		if previous == nil {
			// The coarse seek landed exactly on this record; always include it.
			previous = &rec.Timestamp
		} else {
			projected := ttime.Add(elapsed, ttime.Difference(*previous, rec.Timestamp))
			overshoot = projected.Compare(target) > 0
			elapsed = projected
			*previous = rec.Timestamp
		}

		if err := record.Write(out, rec.Payload); err != nil {
			return FineResult{}, err
		}
		if overshoot {
			break
		}
	}

	return FineResult{Elapsed: elapsed, StreamOffset: offset}, nil
}

// JumpFile walks the file chain by delta steps (±1 in normal use, but any
// magnitude is honored), clamping at the ends, and applies the
// switch-latency adjustment from spec §4.E: requesting -1 after
// SwitchLatency seconds or more into the current file re-targets that
// file's own start instead of actually moving to the previous file.
func (e *Engine) JumpFile(currentFileIdx int, delta int, elapsed ttime.Time) Position {
	if e.NoIndex() {
		return Position{}
	}

	if delta < 0 {
		sinceFileStart := ttime.Difference(e.fileStart(currentFileIdx), elapsed)
		if sinceFileStart.Seconds() >= SwitchLatency {
			// Already well into the current file: "previous file" means
			// restart the current file, not actually move back a file.
			delta++
		}
	}

	target := currentFileIdx + delta
	if target < 0 {
		target = 0
	}
	if max := len(e.ix.Files) - 1; target > max {
		target = max
	}

	return e.fileStartPosition(target)
}

func (e *Engine) fileStart(fileIdx int) ttime.Time {
	if fileIdx == 0 {
		return ttime.Time{}
	}
	return e.ix.Files[fileIdx-1].ElapsedAtEnd
}

func (e *Engine) fileStartPosition(fileIdx int) Position {
	f := e.ix.Files[fileIdx]
	if f.FirstClear == -1 {
		return Position{FileIdx: fileIdx, ClearIdx: -1, Elapsed: e.fileStart(fileIdx), StreamOffset: 0}
	}
	c := e.ix.Clears[f.FirstClear]
	return Position{FileIdx: fileIdx, ClearIdx: f.FirstClear, Elapsed: c.ElapsedAtEntry, StreamOffset: c.RecordOffset}
}

// JumpClear walks the global clear-screen chain by delta steps, clamping at
// the ends. Crossing a file boundary is implicit: Clears is one flat,
// globally-ordered slice, so stepping past a file's LastClear simply lands
// on the next file's FirstClear.
func (e *Engine) JumpClear(currentClearIdx int, delta int) Position {
	if e.NoIndex() || len(e.ix.Clears) == 0 {
		return Position{}
	}

	target := currentClearIdx + delta
	if target < 0 {
		target = 0
	}
	if max := len(e.ix.Clears) - 1; target > max {
		target = max
	}

	c := e.ix.Clears[target]
	return Position{FileIdx: c.FileIdx, ClearIdx: target, Elapsed: c.ElapsedAtEntry, StreamOffset: c.RecordOffset}
}

// End returns the position of the final clear-screen entry, used for
// "seek to end" (spec §9: the source targets wall-clock time, which this
// implementation deliberately does not reproduce).
func (e *Engine) End() Position {
	if e.NoIndex() || len(e.ix.Clears) == 0 {
		return Position{}
	}
	return e.JumpClear(0, len(e.ix.Clears)-1)
}

// Start returns the position of the very first record of the whole session.
func (e *Engine) Start() Position {
	if e.NoIndex() {
		return Position{}
	}
	return Position{FileIdx: 0, ClearIdx: -1}
}
