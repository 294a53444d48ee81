// Test Type: Unit Test
// Description: Tests for the append-only backup store

package backup_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/fmreloaded/modman/pkg/backup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup(t *testing.T) {
	t.Run("missing_target_is_noop", func(t *testing.T) {
		s := backup.New(filepath.Join(t.TempDir(), "backups"))

		path, err := s.Backup(filepath.Join(t.TempDir(), "ghost.txt"))
		require.NoError(t, err)
		assert.Empty(t, path)
		assert.NoDirExists(t, s.Dir(), "no-op backup must not create the store")
	})

	t.Run("naming_scheme", func(t *testing.T) {
		dir := t.TempDir()
		s := backup.New(filepath.Join(dir, "backups"))

		target := filepath.Join(dir, "foo.bundle")
		require.NoError(t, os.WriteFile(target, []byte("original"), 0644))

		path, err := s.Backup(target)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`foo\.bundle\.[0-9a-f]{10}\.bak$`), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "original", string(data))
	})

	t.Run("never_clobbers_existing_backups", func(t *testing.T) {
		dir := t.TempDir()
		s := backup.New(filepath.Join(dir, "backups"))

		target := filepath.Join(dir, "foo.bundle")
		require.NoError(t, os.WriteFile(target, []byte("v1"), 0644))
		first, err := s.Backup(target)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(target, []byte("v2"), 0644))
		second, err := s.Backup(target)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Equal(t, first+".1", second)

		// The first backup keeps its original bytes
		data, err := os.ReadFile(first)
		require.NoError(t, err)
		assert.Equal(t, "v1", string(data))
	})

	t.Run("same_filename_different_paths_get_different_hashes", func(t *testing.T) {
		dir := t.TempDir()
		s := backup.New(filepath.Join(dir, "backups"))

		a := filepath.Join(dir, "a", "config.rtf")
		b := filepath.Join(dir, "b", "config.rtf")
		require.NoError(t, os.MkdirAll(filepath.Dir(a), 0755))
		require.NoError(t, os.MkdirAll(filepath.Dir(b), 0755))
		require.NoError(t, os.WriteFile(a, []byte("a"), 0644))
		require.NoError(t, os.WriteFile(b, []byte("b"), 0644))

		pa, err := s.Backup(a)
		require.NoError(t, err)
		pb, err := s.Backup(b)
		require.NoError(t, err)
		assert.NotEqual(t, pa, pb)
	})
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	s := backup.New(backupDir)

	assert.Empty(t, s.FindLatest("anything"), "empty store has no backups")

	target := filepath.Join(dir, "foo.bundle")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0644))
	first, err := s.Backup(target)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(target, []byte("newer"), 0644))
	second, err := s.Backup(target)
	require.NoError(t, err)

	// Make mtimes unambiguous
	now := time.Now()
	require.NoError(t, os.Chtimes(first, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(second, now, now))

	assert.Equal(t, second, s.FindLatest("foo.bundle"))
	assert.Empty(t, s.FindLatest("bar.bundle"))
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	s := backup.New(filepath.Join(dir, "backups"))

	target := filepath.Join(dir, "game", "foo.bundle")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
	require.NoError(t, os.WriteFile(target, []byte("original"), 0644))

	_, err := s.Backup(target)
	require.NoError(t, err)

	// Overwrite, then restore
	require.NoError(t, os.WriteFile(target, []byte("modded"), 0644))
	restored, err := s.Restore("foo.bundle", target)
	require.NoError(t, err)
	assert.True(t, restored)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	restored, err = s.Restore("never-backed-up.txt", target)
	require.NoError(t, err)
	assert.False(t, restored)
}
