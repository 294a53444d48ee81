// Package manifest defines the mod manifest schema and its loader. Manifests
// are untrusted input: loading normalizes missing fields but performs no path
// validation; that is pathguard's job at resolution time.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fmreloaded/modman/pkg/errors"
)

// FileName is the manifest file expected at each mod's root.
const FileName = "manifest.json"

// Platform tags used by FileEntry.Platform.
const (
	PlatformWindows = "windows"
	PlatformMac     = "mac"
	PlatformOther   = "other"
)

// FileEntry maps one source file (or directory) inside the mod to a relative
// target path in the install tree.
type FileEntry struct {
	Source        string `json:"source"`
	TargetSubpath string `json:"target_subpath"`
	// Platform, when set, restricts the entry to a matching runtime.
	// Mismatched entries are skipped, not errors.
	Platform string `json:"platform,omitempty"`
}

// AppliesTo reports whether the entry should be installed on the given
// platform tag. Entries without a platform apply everywhere.
func (e FileEntry) AppliesTo(platform string) bool {
	return e.Platform == "" || e.Platform == platform
}

// Manifest describes a mod: its metadata and the files it installs.
// Unknown JSON keys are ignored.
type Manifest struct {
	Name          string          `json:"name"`
	Version       string          `json:"version"`
	Type          string          `json:"type"`
	Author        string          `json:"author"`
	Homepage      string          `json:"homepage"`
	Description   string          `json:"description"`
	Compatibility map[string]bool `json:"compatibility"`
	Dependencies  []string        `json:"dependencies"`
	Conflicts     []string        `json:"conflicts"`
	LoadAfter     []string        `json:"load_after"`
	License       string          `json:"license"`
	Files         []FileEntry     `json:"files"`
}

// normalize applies defaults once at load so the rest of the codebase never
// checks for nil fields.
func (m *Manifest) normalize() {
	if m.Type == "" {
		m.Type = "misc"
	}
	if m.Compatibility == nil {
		m.Compatibility = map[string]bool{}
	}
	if m.Dependencies == nil {
		m.Dependencies = []string{}
	}
	if m.Conflicts == nil {
		m.Conflicts = []string{}
	}
	if m.LoadAfter == nil {
		m.LoadAfter = []string{}
	}
	if m.Files == nil {
		m.Files = []FileEntry{}
	}
}

// Load reads and normalizes the manifest at modDir/manifest.json. It always
// reads fresh from disk; manifests can change between runs and are never
// cached beyond one operation.
func Load(modDir string) (*Manifest, error) {
	path := filepath.Join(modDir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrManifestMissing, "no %s in %s", FileName, modDir)
		}
		return nil, errors.Wrapf(err, errors.ErrIOFailure, "reading %s", path)
	}

	// A "files" key holding a non-list is tolerated and treated as empty,
	// so a raw decode first to detect that case without failing the load.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "invalid JSON in %s", path)
	}
	if filesRaw, ok := raw["files"]; ok {
		var probe []json.RawMessage
		if json.Unmarshal(filesRaw, &probe) != nil {
			delete(raw, "files")
			if data, err = json.Marshal(raw); err != nil {
				return nil, errors.Wrap(err, errors.ErrManifestInvalid, "re-encoding manifest")
			}
		}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "invalid manifest in %s", path)
	}
	m.normalize()
	return &m, nil
}

// PlatformTag returns the tag for the current runtime.
func PlatformTag() string {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMac
	default:
		return PlatformOther
	}
}
