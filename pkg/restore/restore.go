// Package restore creates and rolls back restore points: full snapshots of
// every mod-affected file taken immediately before a batch apply. Points are
// immutable once created; pruning is an external housekeeping concern.
package restore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/fmreloaded/modman/pkg/fileops"
	"github.com/fmreloaded/modman/pkg/logging"
)

// timestampLayout names restore point directories sortably.
const timestampLayout = "20060102-150405"

// Manager stores restore points, one timestamped directory per point.
type Manager struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
}

// New returns a Manager rooted at dir.
func New(dir string) *Manager {
	return &Manager{dir: dir, logger: logging.GetLogger("restore"), now: time.Now}
}

// Dir returns the directory restore points live under.
func (m *Manager) Dir() string {
	return m.dir
}

// Create snapshots every currently-existing file at the given target-relative
// paths into a new restore point, preserving relative structure. Paths that
// do not exist yet are skipped. Returns the restore point id.
func (m *Manager) Create(targetRoot string, relPaths []string) (string, error) {
	id := m.now().Format(timestampLayout)
	rp := filepath.Join(m.dir, id)
	for i := 1; ; i++ {
		if _, err := os.Stat(rp); os.IsNotExist(err) {
			break
		}
		rp = filepath.Join(m.dir, fmt.Sprintf("%s.%d", id, i))
	}
	if err := os.MkdirAll(rp, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrIOFailure, "cannot create restore point %s", rp)
	}

	copied := 0
	for _, rel := range relPaths {
		src := filepath.Join(targetRoot, filepath.FromSlash(rel))
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		dst := filepath.Join(rp, filepath.FromSlash(rel))
		if err := fileops.SafeCopy(src, dst, fileops.CopyOptions{AllowedRoot: rp}); err != nil {
			return "", err
		}
		copied++
	}

	id = filepath.Base(rp)
	m.logger.Info().Str("restorePoint", id).Int("files", copied).Msg("restore point created")
	return id, nil
}

// Rollback copies every file under the named restore point back to its
// corresponding path under targetRoot, unconditionally overwriting.
func (m *Manager) Rollback(id, targetRoot string) error {
	rp := filepath.Join(m.dir, id)
	if info, err := os.Stat(rp); err != nil || !info.IsDir() {
		return errors.Newf(errors.ErrRestorePointNotFound, "restore point not found: %s", id)
	}

	restored := 0
	err := filepath.WalkDir(rp, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrIOFailure, "walking restore point %s", id)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rp, p)
		if err != nil {
			return errors.Wrap(err, errors.ErrIOFailure, "relative path")
		}
		dst := filepath.Join(targetRoot, rel)
		if err := fileops.SafeCopy(p, dst, fileops.CopyOptions{AllowedRoot: targetRoot}); err != nil {
			return err
		}
		restored++
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info().Str("restorePoint", id).Int("files", restored).Msg("rolled back to restore point")
	return nil
}

// List returns every restore point id, newest first. Exposed for external
// housekeeping; this package never prunes.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrIOFailure, "reading restore points in %s", m.dir)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}
