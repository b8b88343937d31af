package seek

import (
	"bytes"
	"testing"

	"github.com/ehrlich-b/ttyplay/internal/index"
	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

func buildTestIndex() *index.Index {
	return &index.Index{
		Files: []index.File{
			{Name: "a", ElapsedAtEnd: ttime.New(3, 0), FirstClear: 0, LastClear: 0},
			{Name: "b", ElapsedAtEnd: ttime.New(7, 0), FirstClear: 1, LastClear: 1},
		},
		Clears: []index.Clear{
			{FileIdx: 0, RecordOffset: 12, ElapsedAtEntry: ttime.New(3, 0)},
			{FileIdx: 1, RecordOffset: 24, ElapsedAtEntry: ttime.New(7, 0)},
		},
	}
}

func TestCoarseLandsOnLatestAtOrBefore(t *testing.T) {
	e := New(buildTestIndex())
	pos := e.Coarse(ttime.New(5, 0))
	if pos.ClearIdx != 0 {
		t.Errorf("ClearIdx = %d, want 0", pos.ClearIdx)
	}
	if pos.Elapsed != ttime.New(3, 0) {
		t.Errorf("Elapsed = %v, want 3.0", pos.Elapsed)
	}
}

func TestCoarsePastEndClampsToLast(t *testing.T) {
	e := New(buildTestIndex())
	pos := e.Coarse(ttime.New(100, 0))
	if pos.ClearIdx != 1 {
		t.Errorf("ClearIdx = %d, want 1", pos.ClearIdx)
	}
}

func TestCoarseBeforeAllReturnsFirst(t *testing.T) {
	e := New(buildTestIndex())
	pos := e.Coarse(ttime.New(0, 0))
	if pos.ClearIdx != 0 {
		t.Errorf("ClearIdx = %d, want 0", pos.ClearIdx)
	}
}

func encodeRecord(sec, usec uint32, payload []byte) []byte {
	buf := make([]byte, 12+len(payload))
	put32 := func(off int, v uint32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
	put32(0, sec)
	put32(4, usec)
	put32(8, uint32(len(payload)))
	copy(buf[12:], payload)
	return buf
}

func TestFineStopsAtFirstOvershoot(t *testing.T) {
	var data []byte
	data = append(data, encodeRecord(1, 0, []byte("\x1b[2J"))...) // the clear record itself
	data = append(data, encodeRecord(2, 0, []byte("a"))...)
	data = append(data, encodeRecord(3, 0, []byte("b"))...)
	data = append(data, encodeRecord(10, 0, []byte("c"))...) // big jump, will overshoot

	start := Position{ClearIdx: 0, Elapsed: ttime.New(1, 0), StreamOffset: 0}
	e := New(&index.Index{})

	var out bytes.Buffer
	res, err := e.Fine(bytes.NewReader(data), start, ttime.New(3, 0), &out)
	if err != nil {
		t.Fatalf("Fine: %v", err)
	}
	// "a" (t=2) and "b" (t=3) land at or before the target and are emitted
	// normally; "c" (t=10) is the first record whose inclusion overshoots —
	// it is still emitted (so the screen is current) and then the phase stops.
	if out.String() != "\x1b[2Jabc" {
		t.Errorf("emitted %q, want %q", out.String(), "\x1b[2Jabc")
	}
	if res.Elapsed != ttime.New(10, 0) {
		t.Errorf("elapsed = %v, want 10.0 (includes the overshooting record)", res.Elapsed)
	}
}

func TestFineNeverOvershootsByMoreThanOneRecord(t *testing.T) {
	var data []byte
	data = append(data, encodeRecord(1, 0, []byte("\x1b[2J"))...)
	data = append(data, encodeRecord(5, 0, []byte("late"))...)

	start := Position{ClearIdx: 0, Elapsed: ttime.New(1, 0), StreamOffset: 0}
	e := New(&index.Index{})
	var out bytes.Buffer
	res, err := e.Fine(bytes.NewReader(data), start, ttime.New(2, 0), &out)
	if err != nil {
		t.Fatalf("Fine: %v", err)
	}
	// Target 2.0, only next record is at 5.0 — included since it's the first whose
	// inclusion overshoots, but elapsed must not exceed target by more than the delta.
	if res.Elapsed != ttime.New(5, 0) {
		t.Errorf("elapsed = %v, want 5.0 (the single overshooting record's time)", res.Elapsed)
	}
}

func TestJumpFileClampsAtEnds(t *testing.T) {
	e := New(buildTestIndex())
	pos := e.JumpFile(0, -1, ttime.New(1, 0))
	if pos.FileIdx != 0 {
		t.Errorf("FileIdx = %d, want clamp to 0", pos.FileIdx)
	}
	pos = e.JumpFile(1, 5, ttime.New(5, 0))
	if pos.FileIdx != 1 {
		t.Errorf("FileIdx = %d, want clamp to 1", pos.FileIdx)
	}
}

func TestJumpFileSwitchLatency(t *testing.T) {
	e := New(buildTestIndex())

	// Less than 10s into file 1 (file 1 starts at elapsed 3.0): truly go to file 0.
	pos := e.JumpFile(1, -1, ttime.New(5, 0))
	if pos.FileIdx != 0 {
		t.Errorf("FileIdx = %d, want 0 (less than switch-latency into file 1)", pos.FileIdx)
	}

	// 10s or more into file 1: restart file 1 instead.
	pos = e.JumpFile(1, -1, ttime.New(14, 0))
	if pos.FileIdx != 1 {
		t.Errorf("FileIdx = %d, want 1 (restart current file past switch-latency)", pos.FileIdx)
	}
}

func TestJumpClearCrossesFileBoundary(t *testing.T) {
	e := New(buildTestIndex())
	pos := e.JumpClear(0, 1)
	if pos.FileIdx != 1 || pos.ClearIdx != 1 {
		t.Errorf("pos = %+v, want file 1 clear 1", pos)
	}
}

func TestJumpClearClamps(t *testing.T) {
	e := New(buildTestIndex())
	pos := e.JumpClear(0, -5)
	if pos.ClearIdx != 0 {
		t.Errorf("ClearIdx = %d, want clamp to 0", pos.ClearIdx)
	}
	pos = e.JumpClear(0, 5)
	if pos.ClearIdx != 1 {
		t.Errorf("ClearIdx = %d, want clamp to 1", pos.ClearIdx)
	}
}

func TestNoIndexIsNoOp(t *testing.T) {
	e := New(nil)
	if !e.NoIndex() {
		t.Fatal("expected NoIndex() on nil index")
	}
	if pos := e.Coarse(ttime.New(5, 0)); pos != (Position{}) {
		t.Errorf("Coarse on no-index should be zero value, got %+v", pos)
	}
}
