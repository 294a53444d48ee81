// Test Type: Unit Test
// Description: Tests for SafeDelete and boundary-checked deletion

package fileops_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/fmreloaded/modman/pkg/fileops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeDelete(t *testing.T) {
	t.Run("missing_path_returns_false", func(t *testing.T) {
		deleted, err := fileops.SafeDelete(filepath.Join(t.TempDir(), "nope"), false)
		assert.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("deletes_file", func(t *testing.T) {
		dir := t.TempDir()
		f := filepath.Join(dir, "f.txt")
		writeFile(t, f, "x")

		deleted, err := fileops.SafeDelete(f, false)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.NoFileExists(t, f)
	})

	t.Run("deletes_directory_recursively", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "sub")
		writeFile(t, filepath.Join(sub, "deep", "f.txt"), "x")

		deleted, err := fileops.SafeDelete(sub, false)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.NoDirExists(t, sub)
	})

	t.Run("refuses_symlink", func(t *testing.T) {
		dir := t.TempDir()
		real := filepath.Join(dir, "real.txt")
		link := filepath.Join(dir, "link.txt")
		writeFile(t, real, "x")
		require.NoError(t, os.Symlink(real, link))

		_, err := fileops.SafeDelete(link, false)
		assert.Equal(t, errors.ErrSymlinkRefused, errors.GetErrorCode(err))
		// The link target is untouched
		assert.FileExists(t, real)
	})

	t.Run("symlink_with_permission", func(t *testing.T) {
		dir := t.TempDir()
		real := filepath.Join(dir, "real.txt")
		link := filepath.Join(dir, "link.txt")
		writeFile(t, real, "x")
		require.NoError(t, os.Symlink(real, link))

		deleted, err := fileops.SafeDelete(link, true)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.FileExists(t, real, "deleting a symlink must not follow it")
	})
}

func TestSafeDeleteWithBoundaryCheck(t *testing.T) {
	t.Run("happy_path_with_whitelist", func(t *testing.T) {
		root := t.TempDir()
		ops := fileops.NewOps("")
		require.NoError(t, ops.RegisterSafeDeletionRoot(root))

		f := filepath.Join(root, "mod.ltc")
		writeFile(t, f, "x")

		deleted, err := ops.SafeDeleteWithBoundaryCheck(f, root, false, true)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("outside_allowed_root", func(t *testing.T) {
		root := t.TempDir()
		other := t.TempDir()
		ops := fileops.NewOps("")

		f := filepath.Join(other, "f.txt")
		writeFile(t, f, "x")

		_, err := ops.SafeDeleteWithBoundaryCheck(f, root, false, false)
		assert.Equal(t, errors.ErrPathSecurity, errors.GetErrorCode(err))
		assert.FileExists(t, f, "nothing is deleted when a check fails")
	})

	t.Run("not_in_whitelist", func(t *testing.T) {
		root := t.TempDir()
		ops := fileops.NewOps("")

		f := filepath.Join(root, "f.txt")
		writeFile(t, f, "x")

		_, err := ops.SafeDeleteWithBoundaryCheck(f, root, false, true)
		assert.Equal(t, errors.ErrPathSecurity, errors.GetErrorCode(err))
		assert.FileExists(t, f)
	})

	t.Run("whitelist_not_required", func(t *testing.T) {
		root := t.TempDir()
		ops := fileops.NewOps("")

		f := filepath.Join(root, "f.txt")
		writeFile(t, f, "x")

		deleted, err := ops.SafeDeleteWithBoundaryCheck(f, root, false, false)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("audit_log_records_attempt_and_outcome", func(t *testing.T) {
		root := t.TempDir()
		auditPath := filepath.Join(t.TempDir(), "audit.log")
		ops := fileops.NewOps(auditPath)
		require.NoError(t, ops.RegisterSafeDeletionRoot(root))

		f := filepath.Join(root, "f.txt")
		writeFile(t, f, "x")

		_, err := ops.SafeDeleteWithBoundaryCheck(f, root, false, true)
		require.NoError(t, err)

		data, err := os.ReadFile(auditPath)
		require.NoError(t, err)
		log := string(data)
		assert.Contains(t, log, "DELETE_ATTEMPT")
		assert.Contains(t, log, "DELETE_SUCCESS")
		assert.Contains(t, log, "SUCCESS")
	})
}

func TestRegisterSafeDeletionRoot_RefusesSystemDirs(t *testing.T) {
	ops := fileops.NewOps("")

	// /usr exists on any Unix system this test runs on
	if _, err := os.Stat("/usr"); err == nil {
		err := ops.RegisterSafeDeletionRoot("/usr")
		assert.Equal(t, errors.ErrProtectedDir, errors.GetErrorCode(err))
	}
}

func TestIsProtectedSystemDirectory(t *testing.T) {
	if _, err := os.Stat("/usr"); err == nil {
		assert.True(t, fileops.IsProtectedSystemDirectory("/usr"))
		assert.True(t, fileops.IsProtectedSystemDirectory("/usr/lib/something"),
			"unix system trees are protected at any depth")
	}

	tmp := t.TempDir()
	assert.False(t, fileops.IsProtectedSystemDirectory(tmp))
	assert.False(t, fileops.IsProtectedSystemDirectory(filepath.Join(tmp, "game")))

	if home, err := os.UserHomeDir(); err == nil && !strings.HasPrefix(tmp, home) {
		assert.True(t, fileops.IsProtectedSystemDirectory(home),
			"the home directory itself is protected")
	}
}
