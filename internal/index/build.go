package index

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ehrlich-b/ttyplay/internal/record"
	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

// CachedClear is the subset of a Clear entry that's worth persisting: enough
// to reconstruct it without re-scanning the file's payloads.
type CachedClear struct {
	RecordOffset   int64
	PayloadOffset  int64
	ElapsedAtEntry ttime.Time
}

// CachedFile is what a Cache implementation persists per indexed file.
type CachedFile struct {
	ElapsedAtEnd ttime.Time
	Clears       []CachedClear
}

// Cache lets the indexer skip re-scanning a file it has already indexed.
// A miss or a disabled cache never changes the resulting Index — only how
// long building it takes. internal/cache implements this against SQLite;
// BuildIndex only depends on the interface so the two packages don't cycle.
type Cache interface {
	Lookup(path string, size int64, modTime time.Time) (CachedFile, bool)
	Store(path string, size int64, modTime time.Time, cf CachedFile)
}

// BuildIndex performs the one-pass scan described in spec §4.C over every
// named file, in order, producing a single Index spanning all of them.
// cache may be nil, which disables the cache entirely (every file is
// scanned fresh and nothing is persisted).
func BuildIndex(filenames []string, cache Cache) (*Index, error) {
	ix := &Index{}
	cumulative := ttime.Time{}

	for _, name := range filenames {
		fileIdx := len(ix.Files)
		ix.Files = append(ix.Files, File{Name: name, FirstClear: -1, LastClear: -1})

		info, statErr := os.Stat(name)

		if cache != nil && statErr == nil {
			if cf, ok := cache.Lookup(name, info.Size(), info.ModTime()); ok {
				appendCached(ix, fileIdx, cumulative, cf)
				cumulative = ttime.Add(cumulative, cf.ElapsedAtEnd)
				ix.Files[fileIdx].ElapsedAtEnd = cumulative
				continue
			}
		}

		scanned, err := scanFile(name, fileIdx, cumulative, ix)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", name, err)
		}
		cumulative = scanned.cumulativeAtEnd

		if cache != nil && statErr == nil {
			cache.Store(name, info.Size(), info.ModTime(), scanned.toCachedFile())
		}
	}

	return ix, nil
}

type scanResult struct {
	cumulativeAtEnd ttime.Time
	fileStart       ttime.Time // cumulative value at file entry, for ElapsedAtEnd relative to this file
	clears          []CachedClear
}

func (s scanResult) toCachedFile() CachedFile {
	return CachedFile{
		ElapsedAtEnd: ttime.Subtract(s.cumulativeAtEnd, s.fileStart),
		Clears:       s.clears,
	}
}

// appendCached reconstructs a file's global Clear entries from a cache hit,
// re-basing each cached (file-relative) ElapsedAtEntry onto the running
// cumulative total. The caller re-bases the file's ElapsedAtEnd.
func appendCached(ix *Index, fileIdx int, cumulativeBefore ttime.Time, cf CachedFile) {
	for _, c := range cf.Clears {
		ci := len(ix.Clears)
		ix.Clears = append(ix.Clears, Clear{
			FileIdx:        fileIdx,
			RecordOffset:   c.RecordOffset,
			PayloadOffset:  c.PayloadOffset,
			ElapsedAtEntry: ttime.Add(cumulativeBefore, c.ElapsedAtEntry),
		})
		if ix.Files[fileIdx].FirstClear == -1 {
			ix.Files[fileIdx].FirstClear = ci
		}
		ix.Files[fileIdx].LastClear = ci
	}
}

// scanFile performs the actual one-pass read of a single file, recording
// every clear-screen occurrence and accumulating elapsed time. cumulative is
// the running total carried in from prior files; the total at the end of this
// file is returned in scanResult.cumulativeAtEnd. Clear entries and the
// file's FirstClear/LastClear/ElapsedAtEnd are written into ix directly.
func scanFile(name string, fileIdx int, cumulative ttime.Time, ix *Index) (scanResult, error) {
	f, err := os.Open(name)
	if err != nil {
		return scanResult{}, err
	}
	defer f.Close()

	fileStart := cumulative
	br := record.NewReader(f)

	var previous *ttime.Time
	var offset int64
	var clearsForCache []CachedClear

	for {
		headerOffset := offset
		rec, err := record.ReadNext(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return scanResult{}, err
		}
		recordSize := int64(12 + len(rec.Payload))
		offset += recordSize

		if previous == nil {
			previous = &rec.Timestamp
		} else {
			cumulative = ttime.Add(cumulative, ttime.Difference(*previous, rec.Timestamp))
			*previous = rec.Timestamp
		}

		if off := record.FindClearScreen(rec.Payload); off >= 0 {
			ci := len(ix.Clears)
			entry := Clear{
				FileIdx:        fileIdx,
				RecordOffset:  headerOffset,
				PayloadOffset: headerOffset + 12 + int64(off),
				ElapsedAtEntry: cumulative,
			}
			ix.Clears = append(ix.Clears, entry)
			clearsForCache = append(clearsForCache, CachedClear{
				RecordOffset:   headerOffset,
				PayloadOffset:  entry.PayloadOffset,
				ElapsedAtEntry: ttime.Subtract(cumulative, fileStart),
			})
			if ix.Files[fileIdx].FirstClear == -1 {
				ix.Files[fileIdx].FirstClear = ci
			}
			ix.Files[fileIdx].LastClear = ci
		}
	}

	ix.Files[fileIdx].ElapsedAtEnd = cumulative

	return scanResult{
		cumulativeAtEnd: cumulative,
		fileStart:       fileStart,
		clears:          clearsForCache,
	}, nil
}
