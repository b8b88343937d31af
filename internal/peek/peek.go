// Package peek implements spec.md's -p mode: tailing the last recording
// file for records appended after the viewer has caught up, with pacing
// disabled. The watch-plus-ticker-backstop pattern (an fsnotify.Watcher as
// the primary wake signal, a ticker as a backstop against coalesced or
// unsupported filesystem events) follows the same belt-and-suspenders
// design the ttyrec wire format favors over trusting any single signal.
package peek

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ehrlich-b/ttyplay/internal/record"
)

// backstopInterval matches spec.md §6's guaranteed poll cadence even when
// the filesystem watch never fires (e.g. NFS, coalesced writes).
const backstopInterval = 250 * time.Millisecond

// Tailer follows one file from a starting byte offset, emitting each
// complete record as it becomes available with no pacing.
type Tailer struct {
	path   string
	offset int64
	log    *slog.Logger
}

// NewTailer creates a Tailer that will begin emitting records appended
// after startOffset, the byte position immediately following every
// record already present when peek mode started.
func NewTailer(path string, startOffset int64, log *slog.Logger) *Tailer {
	if log == nil {
		log = slog.Default()
	}
	return &Tailer{path: path, offset: startOffset, log: log}
}

// Run watches the file and sends each newly appended record on out until
// ctx is cancelled or an unrecoverable error occurs. out is closed before
// Run returns.
func (t *Tailer) Run(ctx context.Context, out chan<- record.Record) error {
	defer close(out)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(t.path); err != nil {
		return err
	}

	ticker := time.NewTicker(backstopInterval)
	defer ticker.Stop()

	for {
		if err := t.drain(out); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.log.Debug("peek: watcher error", "error", err)
		case <-ticker.C:
		}
	}
}

// drain reads every complete record currently available past t.offset and
// sends each on out, stopping cleanly at the first incomplete record (the
// writer may be mid-append) without treating that as corruption.
func (t *Tailer) drain(out chan<- record.Record) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}
	r := record.NewReader(f)

	for {
		rec, err := record.ReadNext(r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, record.ErrShortRead) {
				return nil
			}
			return err
		}
		t.offset += 12 + int64(len(rec.Payload))
		out <- rec
	}
}

// Offset reports the byte position immediately after the last record
// emitted, usable to resume a tailer or hand off to seek-based playback.
func (t *Tailer) Offset() int64 {
	return t.offset
}
