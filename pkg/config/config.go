// Package config persists the manager's shared state (enabled mods, load
// order, last-applied mods, and the target path) as a JSON file. A Store is
// an explicit handle with one critical section; there are no package
// globals. Writes are read-modify-write, last writer wins.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fmreloaded/modman/pkg/errors"
)

// JSON keys consumed and produced by this store.
const (
	keyEnabledMods     = "enabled_mods"
	keyLoadOrder       = "load_order"
	keyLastAppliedMods = "last_applied_mods"
	keyTargetPath      = "target_path"
)

// Store is a mutex-guarded view over one config.json file. Keys this core
// does not own are preserved across save cycles.
type Store struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// Load opens (or initializes) the config file at path. A missing file is an
// empty config, not an error; a corrupt file fails with CONFIG_LOAD.
func Load(path string) (*Store, error) {
	s := &Store{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "reading config %s", path)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "invalid config JSON in %s", path)
	}
	return s, nil
}

// Path returns the file backing this store.
func (s *Store) Path() string {
	return s.path
}

// save persists the current state. Callers hold s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrConfigWrite, "creating config dir for %s", s.path)
	}
	out, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigWrite, "encoding config")
	}
	if err := os.WriteFile(s.path, out, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrConfigWrite, "writing config %s", s.path)
	}
	return nil
}

func (s *Store) getStrings(key string) []string {
	var out []string
	if raw, ok := s.data[key]; ok {
		_ = json.Unmarshal(raw, &out)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func (s *Store) setStrings(key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigWrite, "encoding config value")
	}
	s.data[key] = raw
	return s.save()
}

// EnabledMods returns the persisted enabled-mod set, in stored order.
func (s *Store) EnabledMods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getStrings(keyEnabledMods)
}

// SetEnabledMods persists the enabled-mod set.
func (s *Store) SetEnabledMods(mods []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStrings(keyEnabledMods, mods)
}

// LoadOrder returns the persisted global load order.
func (s *Store) LoadOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getStrings(keyLoadOrder)
}

// SetLoadOrder persists the global load order.
func (s *Store) SetLoadOrder(order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStrings(keyLoadOrder, order)
}

// LastAppliedMods returns the mods applied by the last successful engine
// run, in the order applied.
func (s *Store) LastAppliedMods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getStrings(keyLastAppliedMods)
}

// SetLastAppliedMods persists the applied state. Only the apply engine
// writes this.
func (s *Store) SetLastAppliedMods(mods []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStrings(keyLastAppliedMods, mods)
}

// TargetPath returns the configured install target root, or "".
func (s *Store) TargetPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out string
	if raw, ok := s.data[keyTargetPath]; ok {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// SetTargetPath persists the install target root.
func (s *Store) SetTargetPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigWrite, "encoding target path")
	}
	s.data[keyTargetPath] = raw
	return s.save()
}
