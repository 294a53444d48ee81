package fileops

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/fmreloaded/modman/pkg/pathguard"
)

// File patterns that mods are allowed to delete from the game directory.
// These are the configuration/data files mods typically replace.
var allowedGameFileDeletionPatterns = []string{
	"*.ltc",                // license/certification files (real names fixes)
	"*.dbc",                // database files
	"*.fmf",                // tactic files
	"*.rtf",                // graphics config files
	"*.edt",                // editor data template files
	"editor_data_*.bundle", // editor data bundles
	"*.lnc",                // language files
}

// Critical game files that must never be deleted: executables, core native
// libraries, and engine asset bundles.
var protectedGameFiles = []string{
	// Executables
	"fm26.exe",
	"fm.exe",
	"football manager 2026.exe",
	"footballmanager.exe",

	// Steam/Unity core libraries
	"libsteam_api.dll",
	"libsteam_api.so",
	"libsteam_api.dylib",
	"steam_api64.dll",
	"steam_api.dll",
	"unityplayer.dll",
	"libunityplayer.so",

	// Unity essential data
	"*.pak",
	"globalgamemanagers",
	"globalgamemanagers.assets",
	"resources.assets",
	"sharedassets*.assets",
	"level*",

	// Core game data
	"data.unity3d",
	"maindata",

	// Config files that should not be deleted
	"boot_config.txt",
	"player_prefs",
}

func matchesAny(patterns []string, filename string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(strings.ToLower(p), filename); err == nil && ok {
			return true
		}
	}
	return false
}

// CanDeleteGameFile decides whether a file inside the game tree may be
// deleted. Four ordered checks, default deny:
//
//  1. target must be inside gameRoot
//  2. target must not be a protected system directory
//  3. target must not match the deny-list of critical game files
//  4. target must match at least one allow-list pattern
//
// Every call is recorded in the audit log.
func (o *Ops) CanDeleteGameFile(target, gameRoot string) (bool, string) {
	resolved, err := pathguard.Validate(target, gameRoot)
	if err != nil {
		reason := fmt.Sprintf("file outside game directory: %s", target)
		o.audit.Record(EventDeleteValidation, target, false, reason)
		return false, reason
	}

	filename := strings.ToLower(filepath.Base(resolved))

	if IsProtectedSystemDirectory(resolved) {
		reason := fmt.Sprintf("file in protected system directory: %s", resolved)
		o.audit.Record(EventDeleteValidation, target, false, reason)
		return false, reason
	}

	if matchesAny(protectedGameFiles, filename) {
		reason := fmt.Sprintf("critical game file cannot be deleted: %s", filename)
		o.audit.Record(EventDeleteValidation, target, false, reason)
		return false, reason
	}

	if !matchesAny(allowedGameFileDeletionPatterns, filename) {
		reason := fmt.Sprintf("file type not allowed for deletion: %s (allowed: %s)",
			filename, strings.Join(allowedGameFileDeletionPatterns, ", "))
		o.audit.Record(EventDeleteValidation, target, false, reason)
		return false, reason
	}

	o.audit.Record(EventDeleteValidation, target, true, "validated for deletion")
	return true, "OK"
}
