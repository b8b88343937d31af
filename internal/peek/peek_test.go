package peek

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ehrlich-b/ttyplay/internal/record"
	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func encodeRecord(sec, usec int64, payload string) []byte {
	buf := make([]byte, 12+len(payload))
	putU32(buf[0:4], uint32(sec))
	putU32(buf[4:8], uint32(usec))
	putU32(buf[8:12], uint32(len(payload)))
	copy(buf[12:], payload)
	return buf
}

func TestTailerSkipsExistingAndEmitsAppended(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.tty")

	existing := encodeRecord(0, 0, "\x1b[2Jalready-here")
	if err := os.WriteFile(path, existing, 0o644); err != nil {
		t.Fatal(err)
	}

	tailer := NewTailer(path, int64(len(existing)), nil)
	out := make(chan record.Record, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- tailer.Run(ctx, out) }()

	time.Sleep(50 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	appended := encodeRecord(1, 0, "new-stuff")
	if _, err := f.Write(appended); err != nil {
		t.Fatal(err)
	}
	f.Close()

	select {
	case rec := <-out:
		if string(rec.Payload) != "new-stuff" {
			t.Errorf("payload = %q, want %q", rec.Payload, "new-stuff")
		}
		if rec.Timestamp != ttime.New(1, 0) {
			t.Errorf("timestamp = %+v, want 1s", rec.Timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for appended record")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTailerOffsetAdvancesPastEmittedRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.tty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tailer := NewTailer(path, 0, nil)
	out := make(chan record.Record, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go tailer.Run(ctx, out)
	time.Sleep(20 * time.Millisecond)

	rec1 := encodeRecord(0, 0, "abc")
	if err := os.WriteFile(path, rec1, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-out:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for record")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	if tailer.Offset() != int64(len(rec1)) {
		t.Errorf("Offset() = %d, want %d", tailer.Offset(), len(rec1))
	}
}
