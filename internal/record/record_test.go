package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func encodeRecord(sec, usec, length uint32, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], sec)
	binary.LittleEndian.PutUint32(buf[4:8], usec)
	binary.LittleEndian.PutUint32(buf[8:12], length)
	copy(buf[headerSize:], payload)
	return buf
}

func TestReadNextRoundTrip(t *testing.T) {
	payload := []byte("hello")
	data := encodeRecord(3, 500_000, uint32(len(payload)), payload)

	rec, err := ReadNext(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadNext: %v", err)
	}
	if rec.Timestamp.Sec != 3 || rec.Timestamp.Usec != 500_000 {
		t.Errorf("timestamp = %v, want 3.500000", rec.Timestamp)
	}
	if !bytes.Equal(rec.Payload, payload) {
		t.Errorf("payload = %q, want %q", rec.Payload, payload)
	}
}

func TestReadNextEOF(t *testing.T) {
	_, err := ReadNext(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadNextShortHeader(t *testing.T) {
	// A header cut short mid-field looks identical to a writer that simply
	// hasn't finished the next record yet, so it's a clean EOF, not corruption.
	_, err := ReadNext(bytes.NewReader([]byte{1, 2, 3}))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadNextShortPayload(t *testing.T) {
	data := encodeRecord(0, 0, 10, []byte("abc")) // declares 10, only 3 present
	data = data[:headerSize+3]
	_, err := ReadNext(bytes.NewReader(data))
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}

func TestReadNextPayloadTooLarge(t *testing.T) {
	data := encodeRecord(0, 0, MaxPayload+1, nil)
	_, err := ReadNext(bytes.NewReader(data))
	if !errors.Is(err, PayloadTooLarge) {
		t.Fatalf("expected PayloadTooLarge, got %v", err)
	}
}

func TestFindClearScreen(t *testing.T) {
	payload := []byte("hi\x1b[2Jcls")
	if off := FindClearScreen(payload); off != 2 {
		t.Errorf("offset = %d, want 2", off)
	}
	if off := FindClearScreen([]byte("no marker here")); off != -1 {
		t.Errorf("offset = %d, want -1", off)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != "payload" {
		t.Errorf("wrote %q, want %q", buf.String(), "payload")
	}
}
