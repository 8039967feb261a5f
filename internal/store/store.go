// Package store is the persistence facade for the timeline: the
// singleton timeline row, its milestone rows, photo object storage and
// the admins file. It owns no in-memory state; every operation goes to
// the backing SQLite database or the filesystem.
package store

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// PublicTimelineID is the fixed key of the single shared timeline.
	PublicTimelineID = "public-timeline"

	// Defaults used when the timeline row does not exist yet.
	DefaultBabyName  = "Nora"
	DefaultBirthDate = "2024-01-01"

	sqliteFileName = "timeline.sqlite"
)

type Store struct {
	Dir string
}

// DefaultDir resolves the data directory: $BABYSTEPS_DIR if set,
// otherwise ~/.babysteps.
func DefaultDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("BABYSTEPS_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".babysteps"), nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) sqlitePath() string {
	return filepath.Join(s.Dir, sqliteFileName)
}

func (s Store) photosDir() string {
	return filepath.Join(s.Dir, "photos")
}
