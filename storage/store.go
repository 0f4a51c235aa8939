// Package storage persists snapshots. The canonical document is a single
// JSON file replaced atomically on every successful build; a bbolt history
// database keeps recent revisions around for inspection.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/varasto/snapshot"
	"github.com/yairfalse/varasto/types"
)

// ErrNotFound is returned when no usable snapshot document exists.
// Corrupt or unreadable documents are reported the same way, so callers
// always react with a rebuild instead of a parse error.
var ErrNotFound = errors.New("snapshot not found")

const snapshotFile = "snapshot.json"

// Store persists one source's snapshot. Each (profile, region) pair gets its
// own directory, so mixed-tenant data never shares a store.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates a store rooted at baseDir for the given source.
func NewStore(baseDir string, source types.Source, logger zerolog.Logger) *Store {
	return &Store{
		dir:    filepath.Join(baseDir, source.Key()),
		logger: logger,
	}
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the canonical snapshot location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, snapshotFile)
}

// Save serializes the snapshot to a temporary file and atomically replaces
// the canonical location. With a single writer per rebuild, the rename is
// the only concurrency mechanism readers need: they see either the previous
// document or the new one, never a partial write.
func (s *Store) Save(snap *snapshot.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.Marshal(snap.Document())
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, snapshotFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.logger.Info().
		Str("path", s.Path()).
		Int("bytes", len(data)).
		Time("built_at", snap.BuiltAt).
		Msg("snapshot persisted")

	return nil
}

// Load reads the canonical snapshot and recomputes its indices.
// A missing, empty, or corrupt document returns ErrNotFound.
func (s *Store) Load() (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		s.logger.Warn().Err(err).Str("path", s.Path()).Msg("snapshot unreadable, treating as missing")
		return nil, ErrNotFound
	}

	var doc snapshot.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.Path()).Msg("snapshot corrupt, treating as missing")
		return nil, ErrNotFound
	}
	if doc.BuiltAt.IsZero() {
		s.logger.Warn().Str("path", s.Path()).Msg("snapshot missing build timestamp, treating as missing")
		return nil, ErrNotFound
	}

	return snapshot.FromDocument(&doc), nil
}

// IsStale reports whether a snapshot built at builtAt is older than maxAge
// at the given instant. Pure function; freshness is the caller's decision,
// no background timer exists.
func IsStale(builtAt time.Time, maxAge time.Duration, now time.Time) bool {
	return now.Sub(builtAt) > maxAge
}
