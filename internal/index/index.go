// Package index builds and holds the navigable clear-screen index that
// spans a concatenated sequence of ttyrec files. Source material used manual
// doubly-linked allocation for this graph; here both the file list and the
// global clear-screen list live in contiguous slices, and "links" are plain
// slice indices rather than pointers/ownership.
package index

import "github.com/ehrlich-b/ttyplay/internal/ttime"

// File is one input file's place in the concatenated session.
type File struct {
	Name string

	// ElapsedAtEnd is cumulative elapsed time from the first record of the
	// first file through the last record of this file.
	ElapsedAtEnd ttime.Time

	// FirstClear/LastClear index into Index.Clears, or -1 if this file has
	// no clear-screen occurrence at all.
	FirstClear int
	LastClear  int
}

// Clear is one clear-screen occurrence, globally ordered.
type Clear struct {
	FileIdx int // index into Index.Files

	RecordOffset  int64 // byte offset of the record header within its file
	PayloadOffset int64 // file-absolute byte offset of the marker within the payload

	ElapsedAtEntry ttime.Time
}

// Index is the read-only, value-object result of a build: an ordered file
// list and an ordered global clear-screen list. "Links across file
// boundaries" from the spec are just the fact that Clears is one flat,
// globally-ordered slice regardless of which file each entry belongs to.
type Index struct {
	Files  []File
	Clears []Clear
}

// NoIndex reports whether there is no navigable index at all (e.g. playing
// from stdin). Seeks and jumps against a NoIndex index are no-ops.
func (ix *Index) NoIndex() bool {
	return ix == nil || len(ix.Files) == 0
}

// FileCount returns the number of indexed files.
func (ix *Index) FileCount() int {
	if ix == nil {
		return 0
	}
	return len(ix.Files)
}

// ClearAt returns the clear-screen entry at global index i.
func (ix *Index) ClearAt(i int) Clear {
	return ix.Clears[i]
}

// FileAt returns the file entry at index i.
func (ix *Index) FileAt(i int) File {
	return ix.Files[i]
}
