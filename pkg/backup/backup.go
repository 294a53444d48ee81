// Package backup keeps content-addressed, append-only copies of files about
// to be overwritten. A backup is never clobbered once written; the newest
// backup for a filename is the canonical one for restore.
package backup

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/fmreloaded/modman/pkg/fileops"
)

// Store is a flat directory of backups named
// <original-filename>.<10-hex-char-hash>.bak[.<n>].
type Store struct {
	dir string
}

// New returns a backup store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the backup directory.
func (s *Store) Dir() string {
	return s.dir
}

// hashPath derives the 10-hex-char tag from a target's absolute path, so the
// same logical target always maps to the same backup name family.
func hashPath(absPath string) string {
	sum := blake3.Sum256([]byte(absPath))
	return hex.EncodeToString(sum[:])[:10]
}

// Backup copies targetFile into the store before it gets overwritten.
// Returns the backup path, or "" when targetFile does not exist (no-op).
// Existing backups are never overwritten: a numeric suffix is appended
// until a free name is found.
func (s *Store) Backup(targetFile string) (string, error) {
	abs, err := filepath.Abs(targetFile)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot resolve %s", targetFile)
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return "", nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrIOFailure, "cannot create backup dir %s", s.dir)
	}

	base := fmt.Sprintf("%s.%s.bak", filepath.Base(abs), hashPath(abs))
	final := filepath.Join(s.dir, base)
	for i := 1; ; i++ {
		if _, err := os.Stat(final); os.IsNotExist(err) {
			break
		}
		final = filepath.Join(s.dir, fmt.Sprintf("%s.%d", base, i))
	}

	if err := fileops.SafeCopy(abs, final, fileops.CopyOptions{AllowedRoot: s.dir}); err != nil {
		return "", err
	}
	return final, nil
}

// FindLatest returns the newest backup (by modification time) whose name
// starts with filename, or "" when none exists.
func (s *Store) FindLatest(filename string) string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return ""
	}

	var latest string
	var latestMod int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filename) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest = filepath.Join(s.dir, e.Name())
			latestMod = mod
		}
	}
	return latest
}

// Restore copies the newest backup for filename over target. Returns false
// when no backup exists; the target is left untouched in that case.
func (s *Store) Restore(filename, target string) (bool, error) {
	b := s.FindLatest(filename)
	if b == "" {
		return false, nil
	}
	if err := fileops.SafeCopy(b, target, fileops.CopyOptions{}); err != nil {
		return false, err
	}
	return true, nil
}
