// Package routing resolves where a mod's files belong based on its type.
// The apply engine takes this as an injected capability so it stays agnostic
// of the downstream application's directory conventions.
package routing

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"

	"github.com/fmreloaded/modman/pkg/errors"
)

// InstallBaseFunc resolves the base directory a mod of the given type and
// name installs under.
type InstallBaseFunc func(modType, modName string) (string, error)

// Directory components stripped when walking up from an asset target to the
// game root.
var removableComponents = map[string]struct{}{
	"standalonewindows64": {},
	"standaloneosx":       {},
	"standalonelinux64":   {},
	"aa":                  {},
	"streamingassets":     {},
	"fm_data":             {},
	"data":                {},
}

// GameRootFromTarget walks up from an asset target directory (for example a
// StandaloneWindows64 folder) to the game's install root.
func GameRootFromTarget(base string) string {
	current, err := filepath.Abs(base)
	if err != nil {
		return base
	}
	for {
		name := strings.ToLower(filepath.Base(current))
		parent := filepath.Dir(current)
		if _, ok := removableComponents[name]; !ok || parent == current {
			return current
		}
		current = parent
	}
}

// DefaultUserDir returns the per-user documents tree for tactics, graphics
// and editor data.
func DefaultUserDir() string {
	switch runtime.GOOS {
	case "windows":
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(xdg.DataHome, "Sports Interactive", "Football Manager 26")
		}
		return filepath.Join(home, "Documents", "Sports Interactive", "Football Manager 26")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(xdg.DataHome, "Sports Interactive", "Football Manager 26")
		}
		return filepath.Join(home, "Library", "Application Support", "Sports Interactive", "Football Manager 26")
	default:
		return filepath.Join(xdg.DataHome, "Sports Interactive", "Football Manager 26")
	}
}

// Router maps mod types to install base directories.
type Router struct {
	// UserDir is the documents tree for user-scoped content.
	UserDir string
	// GameTarget is the configured asset target inside the game install.
	GameTarget string
}

// NewRouter returns a Router over the default user dir and the given game
// target.
func NewRouter(gameTarget string) *Router {
	return &Router{UserDir: DefaultUserDir(), GameTarget: gameTarget}
}

// InstallBase resolves the directory a mod installs under. Graphics mods get
// a kits/faces/logos subfolder sniffed from the mod name. User-scoped
// directories are created on demand.
func (r *Router) InstallBase(modType, modName string) (string, error) {
	modType = strings.ToLower(strings.TrimSpace(modType))
	modName = strings.ToLower(modName)

	switch modType {
	case "ui", "bundle":
		if r.GameTarget == "" {
			return "", errors.New(errors.ErrNoTarget, "no install target configured for ui/bundle mod")
		}
		return r.GameTarget, nil

	case "tactics":
		return r.ensure(filepath.Join(r.UserDir, "tactics"))

	case "graphics":
		base := filepath.Join(r.UserDir, "graphics")
		switch {
		case containsAny(modName, "kit", "kits"):
			base = filepath.Join(base, "kits")
		case containsAny(modName, "face", "faces", "portraits"):
			base = filepath.Join(base, "faces")
		case containsAny(modName, "logo", "logos", "badges"):
			base = filepath.Join(base, "logos")
		}
		return r.ensure(base)

	case "database":
		return r.ensure(filepath.Join(r.UserDir, "editor data"))

	case "camera":
		// Camera mods are BepInEx plugins rooted at the game install.
		if r.GameTarget != "" {
			return GameRootFromTarget(r.GameTarget), nil
		}
		return r.ensure(r.UserDir)

	default:
		return r.ensure(r.UserDir)
	}
}

func (r *Router) ensure(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrIOFailure, "cannot create install dir %s", dir)
	}
	return dir, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
