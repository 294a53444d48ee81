// Package pathguard validates that filesystem paths stay within a declared
// root. It is pure validation: nothing here touches the filesystem beyond
// resolving symlinks in the allowed root.
package pathguard

import (
	"path/filepath"
	"strings"

	"github.com/fmreloaded/modman/pkg/errors"
)

// Validate resolves target and allowedRoot to canonical absolute form and
// requires target to be a descendant of allowedRoot. Symlinks are resolved
// in the root (so an allowed root behind a symlink still works) but not in
// the target, which may not exist yet.
//
// Returns the resolved target path, or an error with code PATH_SECURITY.
func Validate(target, allowedRoot string) (string, error) {
	if target == "" || allowedRoot == "" {
		return "", errors.New(errors.ErrInvalidInput, "target and allowed root must be non-empty")
	}

	root, err := filepath.Abs(allowedRoot)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrPathSecurity, "cannot resolve allowed root %s", allowedRoot)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrPathSecurity, "cannot resolve target %s", target)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.ErrPathSecurity,
			"path escapes allowed directory").
			WithDetail("target", target).
			WithDetail("allowedRoot", allowedRoot)
	}

	return abs, nil
}

// ValidateSubpath rejects manifest-supplied relative paths that could escape
// their install base: parent-directory segments, leading separators, absolute
// paths, and drive-letter prefixes. It never touches the filesystem.
func ValidateSubpath(sub string) error {
	if sub == "" {
		return errors.New(errors.ErrInvalidInput, "target subpath cannot be empty")
	}
	if strings.HasPrefix(sub, "/") || strings.HasPrefix(sub, "\\") {
		return errors.Newf(errors.ErrPathSecurity, "target subpath starts with a path separator: %s", sub)
	}
	if filepath.IsAbs(sub) || strings.Contains(sub, ":") {
		return errors.Newf(errors.ErrPathSecurity, "target subpath is absolute: %s", sub)
	}
	normalized := strings.ReplaceAll(sub, "\\", "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return errors.Newf(errors.ErrPathSecurity, "target subpath contains parent directory reference: %s", sub)
		}
	}
	return nil
}

// ResolveTarget joins a manifest subpath onto base and validates the result
// stays inside base. Used before every manifest-driven write or delete.
func ResolveTarget(base, sub string) (string, error) {
	if err := ValidateSubpath(sub); err != nil {
		return "", err
	}
	target := filepath.Join(base, filepath.FromSlash(strings.ReplaceAll(sub, "\\", "/")))
	return Validate(target, base)
}

// Contains reports whether child is inside parent after normalization. It is
// a boolean convenience over Validate for callers that only need the answer.
func Contains(parent, child string) bool {
	_, err := Validate(child, parent)
	return err == nil
}
