package player

import (
	"bufio"
	"io"
	"os"

	"github.com/ehrlich-b/ttyplay/internal/record"
)

// source is an open, record-at-a-time readable stream: a real file when the
// session is indexed and seekable, or an arbitrary io.Reader (e.g. stdin)
// when it is not.
type source struct {
	name string
	f    *os.File // nil for a non-seekable source (stdin)
	br   *bufio.Reader
	pos  int64
}

func openFileSource(name string) (*source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &source{name: name, f: f, br: record.NewReader(f)}, nil
}

func newStreamSource(r io.Reader, name string) *source {
	return &source{name: name, br: record.NewReader(r)}
}

func (s *source) readNext() (record.Record, int64, error) {
	startOffset := s.pos
	rec, err := record.ReadNext(s.br)
	if err != nil {
		return record.Record{}, startOffset, err
	}
	s.pos += int64(12 + len(rec.Payload))
	return rec, startOffset, nil
}

// seekTo repositions a seekable file source to an absolute byte offset. It
// is an error to call this on a non-seekable source.
func (s *source) seekTo(offset int64) error {
	if s.f == nil {
		return os.ErrInvalid
	}
	if _, err := s.f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	s.br = record.NewReader(s.f)
	s.pos = offset
	return nil
}

func (s *source) close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}
