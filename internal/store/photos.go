package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SavePhoto stores a binary photo object under a name derived from the
// milestone id and the current timestamp and returns the public
// reference served by the web layer (/photos/<file>). Collisions are
// avoided by the timestamp suffix, not a content hash.
func (s Store) SavePhoto(milestoneID, ext string, data []byte) (string, error) {
	milestoneID = strings.TrimSpace(milestoneID)
	if milestoneID == "" {
		return "", errors.New("save photo: missing milestone id")
	}
	if len(data) == 0 {
		return "", errors.New("save photo: empty file")
	}
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		ext = "jpg"
	}

	if err := os.MkdirAll(s.photosDir(), 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%d.%s", milestoneID, time.Now().UTC().UnixMilli(), ext)
	if err := os.WriteFile(filepath.Join(s.photosDir(), name), data, 0o644); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	return "/photos/" + name, nil
}

// PhotoFilePath resolves a stored photo name to its on-disk path,
// rejecting anything that could escape the photos directory.
func (s Store) PhotoFilePath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errors.New("invalid photo name")
	}
	p := filepath.Join(s.photosDir(), name)
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return p, nil
}

// Fingerprint is a cheap change stamp over the backing database files,
// used by the web layer to notice writes from other processes (CLI,
// TUI) and refresh live views. Empty means "nothing stored yet".
func (s Store) Fingerprint() string {
	var modNano, size int64
	for _, p := range []string{s.sqlitePath(), s.sqlitePath() + "-wal"} {
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		if st.ModTime().UnixNano() > modNano {
			modNano = st.ModTime().UnixNano()
		}
		size += st.Size()
	}
	if modNano == 0 && size == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", modNano, size)
}
