package fileops

import (
	"fmt"
	"os"

	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/fmreloaded/modman/pkg/pathguard"
)

// SafeDelete removes a file or directory tree. It returns false with no error
// when the path does not exist, and refuses to delete symlinks unless
// allowSymlinkDelete is set (error code SYMLINK_REFUSED).
func SafeDelete(path string, allowSymlinkDelete bool) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrIOFailure, "stat %s", path)
	}

	if info.Mode()&os.ModeSymlink != 0 && !allowSymlinkDelete {
		return false, errors.Newf(errors.ErrSymlinkRefused,
			"refusing to delete symlink without explicit permission: %s", path)
	}

	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrIOFailure, "delete %s", path)
	}
	return true, nil
}

// SafeDeleteWithBoundaryCheck deletes path after four ordered security
// checks: containment in allowedRoot, not a protected system directory,
// membership in the safe-deletion whitelist (when requireWhitelist is set),
// and the symlink policy. Any failed check aborts with nothing deleted.
// Every attempt and outcome is recorded in the audit log.
func (o *Ops) SafeDeleteWithBoundaryCheck(path, allowedRoot string, allowSymlinkDelete, requireWhitelist bool) (bool, error) {
	o.audit.Record(EventDeleteAttempt, path, false, fmt.Sprintf("allowed_root=%s", allowedRoot))

	validated, err := pathguard.Validate(path, allowedRoot)
	if err != nil {
		o.audit.Record(EventDeleteBlocked, path, false, fmt.Sprintf("path traversal: %v", err))
		return false, err
	}

	if IsProtectedSystemDirectory(validated) {
		o.audit.Record(EventDeleteBlocked, path, false, "protected system directory")
		return false, errors.Newf(errors.ErrProtectedDir,
			"refusing to delete from protected system directory: %s", validated)
	}

	if requireWhitelist && !o.IsSafeDeletionPath(validated) {
		o.audit.Record(EventDeleteBlocked, path, false, "not in whitelist")
		return false, errors.Newf(errors.ErrPathSecurity,
			"path not in any registered safe deletion root: %s", validated).
			WithDetail("safeRoots", o.SafeDeletionRoots())
	}

	deleted, err := SafeDelete(validated, allowSymlinkDelete)
	switch {
	case err != nil:
		o.audit.Record(EventDeleteBlocked, path, false, err.Error())
		return false, err
	case deleted:
		o.audit.Record(EventDeleteSuccess, path, true, fmt.Sprintf("deleted from %s", allowedRoot))
	default:
		o.audit.Record(EventDeleteFailed, path, false, "path did not exist")
	}
	return deleted, nil
}
