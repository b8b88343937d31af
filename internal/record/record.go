// Package record implements the ttyrec wire format: a fixed 12-byte header
// (seconds, microseconds, length — all little-endian uint32) followed by
// `length` bytes of opaque payload.
package record

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

// MaxPayload is the largest payload this codec will accept. Real ttyrec
// recordings never approach this; it exists to turn a corrupt length field
// into a clean error instead of an enormous allocation.
const MaxPayload = 8192

const headerSize = 12

// PayloadTooLarge is returned by ReadNext when a header declares a payload
// longer than MaxPayload.
var PayloadTooLarge = errors.New("record: payload exceeds maximum size")

// ErrShortRead is returned when a full header was read but its declared
// payload is truncated, which marks the recording as corrupt rather than
// simply ended.
var ErrShortRead = errors.New("record: short read (corrupt recording)")

// Record is one decoded ttyrec entry.
type Record struct {
	Timestamp ttime.Time
	Payload   []byte
}

// ReadNext decodes the next record from r. It returns io.EOF (and a zero
// Record) when fewer than headerSize bytes remain, whether that's zero bytes
// or a header cut short mid-field — a writer in progress always stops
// between records, never mid-header, so a partial header is just "not
// written yet," not corruption. Only a header present in full but followed
// by a truncated payload is ErrShortRead, since a clean ttyrec file never
// declares a length it doesn't back with bytes.
func ReadNext(r io.Reader) (Record, error) {
	var header [headerSize]byte
	_, err := io.ReadFull(r, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("%w: %v", ErrShortRead, err)
	}

	sec := binary.LittleEndian.Uint32(header[0:4])
	usec := binary.LittleEndian.Uint32(header[4:8])
	length := binary.LittleEndian.Uint32(header[8:12])

	if length > MaxPayload {
		return Record{}, fmt.Errorf("%w: declared %d bytes, max %d", PayloadTooLarge, length, MaxPayload)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrShortRead, err)
		}
	}

	return Record{
		Timestamp: ttime.New(int64(sec), int64(usec)),
		Payload:   payload,
	}, nil
}

// Write emits a payload unchanged to the output sink (the player never
// rewrites or re-frames the bytes it plays back).
func Write(w io.Writer, payload []byte) error {
	_, err := w.Write(payload)
	return err
}

// NewReader wraps r in a buffered reader sized for record-at-a-time access,
// matching how the indexer and playback loop both consume a file.
func NewReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 64*1024)
}

// ClearScreen is the literal byte sequence ESC [ 2 J that resets the visible
// terminal. It is the only escape sequence this player ever recognizes.
var ClearScreen = []byte{0x1B, 0x5B, 0x32, 0x4A}

// FindClearScreen returns the byte offset of the first occurrence of the
// clear-screen marker in payload, or -1 if absent. Only the first occurrence
// within a payload is ever significant.
func FindClearScreen(payload []byte) int {
	return bytes.Index(payload, ClearScreen)
}
