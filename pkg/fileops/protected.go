package fileops

import (
	"os"
	"path/filepath"
	"strings"
)

// Critical system directories that must never be deleted or modified.
var protectedSystemDirs = []string{
	// Windows system directories
	`C:\Windows`,
	`C:\Program Files`,
	`C:\Program Files (x86)`,
	`C:\ProgramData`,
	// Unix/Linux/Mac system directories
	"/System",
	"/usr",
	"/bin",
	"/sbin",
	"/etc",
	"/var",
	"/boot",
}

// Program-Files-style roots where direct children are protected but deeper
// nesting (launcher library folders holding game installs) is allowed.
var programFilesRoots = []string{
	`C:\Program Files`,
	`C:\Program Files (x86)`,
}

// Unix system trees where any depth is protected.
var unixProtectedTrees = []string{
	"/System", "/usr", "/bin", "/sbin", "/etc", "/var", "/boot",
}

// isWithin reports whether child equals parent or descends from it. Both
// arguments must already be absolute and cleaned.
func isWithin(parent, child string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsProtectedSystemDirectory reports whether path is a critical system
// location that deletion must never touch.
//
// The rules distinguish three cases:
//   - exact match of a known system root is protected
//   - under Program-Files-style roots only direct children are protected,
//     so game installs nested two or more levels deep stay reachable
//   - under Unix system trees any depth is protected
//
// The user's home directory itself (not its subdirectories) is protected too.
func IsProtectedSystemDirectory(path string) bool {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if r, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = r
	}

	for _, sysDir := range protectedSystemDirs {
		if dirExists(sysDir) && resolved == sysDir {
			return true
		}
	}

	for _, pfRoot := range programFilesRoots {
		if !dirExists(pfRoot) || !isWithin(pfRoot, resolved) {
			continue
		}
		rel, err := filepath.Rel(pfRoot, resolved)
		if err != nil {
			continue
		}
		// Depth 1 means a direct child of Program Files.
		if rel != "." && !strings.Contains(rel, string(filepath.Separator)) {
			return true
		}
	}

	for _, tree := range unixProtectedTrees {
		if dirExists(tree) && isWithin(tree, resolved) {
			return true
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		if h, err := filepath.EvalSymlinks(home); err == nil {
			home = h
		}
		if resolved == home {
			return true
		}
	}

	return false
}
