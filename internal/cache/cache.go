// Package cache persists the built clear-screen index (internal/index) to a
// local SQLite database, keyed on a file's path, size, and modification
// time, so re-opening a large recording skips the one-pass scan when the
// underlying file hasn't changed. Follows the same WAL-mode,
// sorted-migrations-table approach as the teacher's internal/store, whose
// own migrations/*.sql embed target didn't exist in its repo; this package
// ships a real one.
package cache

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ehrlich-b/ttyplay/internal/index"
	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed index.Cache.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the cache database at dsn. dsn may be a file path
// or ":memory:" for tests. log receives warnings for failed writes (spec
// §7: a cache failure never aborts playback, it only loses the speedup).
func Open(dsn string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: enable foreign keys: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

const timeFmt = time.RFC3339Nano

// Lookup implements index.Cache. It returns false whenever the stored
// size/mtime don't exactly match, which is the only invalidation rule this
// cache needs — a changed recording always looks like a miss.
func (s *Store) Lookup(path string, size int64, modTime time.Time) (index.CachedFile, bool) {
	var storedSize int64
	var storedModTime string
	var endSec, endUsec int64
	err := s.db.QueryRow(
		`SELECT size, mod_time, elapsed_end_sec, elapsed_end_usec FROM file_index WHERE path = ?`,
		path,
	).Scan(&storedSize, &storedModTime, &endSec, &endUsec)
	if err != nil {
		return index.CachedFile{}, false
	}
	if storedSize != size || storedModTime != modTime.UTC().Format(timeFmt) {
		return index.CachedFile{}, false
	}

	rows, err := s.db.Query(
		`SELECT record_offset, payload_offset, elapsed_sec, elapsed_usec FROM file_clears WHERE path = ? ORDER BY seq`,
		path,
	)
	if err != nil {
		return index.CachedFile{}, false
	}
	defer rows.Close()

	var clears []index.CachedClear
	for rows.Next() {
		var c index.CachedClear
		var sec, usec int64
		if err := rows.Scan(&c.RecordOffset, &c.PayloadOffset, &sec, &usec); err != nil {
			return index.CachedFile{}, false
		}
		c.ElapsedAtEntry = ttime.New(sec, usec)
		clears = append(clears, c)
	}
	if err := rows.Err(); err != nil {
		return index.CachedFile{}, false
	}

	return index.CachedFile{
		ElapsedAtEnd: ttime.New(endSec, endUsec),
		Clears:       clears,
	}, true
}

// Store implements index.Cache. Any failure is logged at warn level and
// swallowed: losing a cache write only costs a future re-scan, never
// correctness (spec §7).
func (s *Store) Store(path string, size int64, modTime time.Time, cf index.CachedFile) {
	if err := s.store(path, size, modTime, cf); err != nil {
		s.log.Warn("cache: failed to store index", "path", path, "error", err)
	}
}

func (s *Store) store(path string, size int64, modTime time.Time, cf index.CachedFile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM file_index WHERE path = ?`, path); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear old entry: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO file_index (path, size, mod_time, elapsed_end_sec, elapsed_end_usec) VALUES (?, ?, ?, ?, ?)`,
		path, size, modTime.UTC().Format(timeFmt), cf.ElapsedAtEnd.Sec, cf.ElapsedAtEnd.Usec,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert file: %w", err)
	}
	for i, c := range cf.Clears {
		if _, err := tx.Exec(
			`INSERT INTO file_clears (path, seq, record_offset, payload_offset, elapsed_sec, elapsed_usec) VALUES (?, ?, ?, ?, ?, ?)`,
			path, i, c.RecordOffset, c.PayloadOffset, c.ElapsedAtEntry.Sec, c.ElapsedAtEntry.Usec,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert clear %d: %w", i, err)
		}
	}
	return tx.Commit()
}
