// Package store manages the local mod store: one directory per mod, each
// holding a manifest.json and the mod's payload files.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/fmreloaded/modman/pkg/fileops"
	"github.com/fmreloaded/modman/pkg/logging"
	"github.com/fmreloaded/modman/pkg/manifest"
)

// Store is a directory of installed mods. A mod's identity is its directory
// name, unique within the store.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// New returns a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrIOFailure, "cannot create mod store at %s", dir)
	}
	return &Store{dir: dir, logger: logging.GetLogger("store")}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// ModDir returns the directory for the named mod. The name must be a bare
// directory name; anything containing a separator is rejected.
func (s *Store) ModDir(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errors.Newf(errors.ErrInvalidInput, "invalid mod name: %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// List returns the names of every mod present in the store, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIOFailure, "reading mod store %s", s.dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Manifest loads the named mod's manifest, fresh from disk.
func (s *Store) Manifest(name string) (*manifest.Manifest, error) {
	dir, err := s.ModDir(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrModNotFound, "mod not found: %s in %s", name, s.dir)
	}
	return manifest.Load(dir)
}

// BuildIndex maps every target subpath to the mods that write it, together
// with the loaded manifests. A nil names slice indexes every mod in the
// store; an explicit empty slice yields an empty index. The distinction
// matters when scoping conflicts to only-enabled mods.
func (s *Store) BuildIndex(names []string) (map[string][]string, map[string]*manifest.Manifest, error) {
	if names == nil {
		all, err := s.List()
		if err != nil {
			return nil, nil, err
		}
		names = all
	}

	index := make(map[string][]string)
	manifests := make(map[string]*manifest.Manifest, len(names))
	for _, name := range names {
		m, err := s.Manifest(name)
		if err != nil {
			return nil, nil, err
		}
		manifests[name] = m
		for _, f := range m.Files {
			if f.TargetSubpath == "" {
				continue
			}
			index[f.TargetSubpath] = append(index[f.TargetSubpath], name)
		}
	}
	return index, manifests, nil
}

// Import copies a mod folder into the store. The folder must contain a
// manifest.json; the mod's name defaults to the manifest name, then the
// folder name, unless overridden. An existing mod of the same name is
// replaced.
func (s *Store) Import(srcFolder, nameOverride string) (string, error) {
	src, err := filepath.Abs(srcFolder)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot resolve %s", srcFolder)
	}

	m, err := manifest.Load(src)
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(nameOverride)
	if name == "" {
		name = strings.TrimSpace(m.Name)
	}
	if name == "" {
		name = filepath.Base(src)
	}

	dest, err := s.ModDir(name)
	if err != nil {
		return "", err
	}

	if _, err := fileops.SafeDelete(dest, false); err != nil {
		return "", err
	}
	if err := fileops.SafeCopy(src, dest, fileops.CopyOptions{AllowedRoot: s.dir}); err != nil {
		return "", err
	}

	s.logger.Info().Str("mod", name).Str("dest", dest).Msg("mod imported")
	return name, nil
}

// Remove deletes the named mod's folder from the store. Callers are expected
// to disable the mod first so its files are reconciled on disk.
func (s *Store) Remove(name string) error {
	dir, err := s.ModDir(name)
	if err != nil {
		return err
	}
	deleted, err := fileops.SafeDelete(dir, false)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.Newf(errors.ErrModNotFound, "mod not found: %s", name)
	}
	s.logger.Info().Str("mod", name).Msg("mod removed from store")
	return nil
}
