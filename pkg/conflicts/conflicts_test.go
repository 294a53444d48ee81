// Test Type: Unit Test
// Description: Tests for conflict detection and load-order winner ranking

package conflicts_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmreloaded/modman/pkg/conflicts"
	"github.com/fmreloaded/modman/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addMod(t *testing.T, storeDir, name string, targets ...string) {
	t.Helper()
	dir := filepath.Join(storeDir, name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	files := ""
	for i, tgt := range targets {
		if i > 0 {
			files += ","
		}
		files += fmt.Sprintf(`{"source": "p%d.bin", "target_subpath": %q}`, i, tgt)
	}
	mf := fmt.Sprintf(`{"name": %q, "files": [%s]}`, name, files)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(mf), 0644))
}

func TestWinner(t *testing.T) {
	tests := []struct {
		name      string
		mods      []string
		loadOrder []string
		expected  string
	}{
		{
			name:      "higher_index_wins",
			mods:      []string{"A", "B"},
			loadOrder: []string{"B", "A"},
			expected:  "A",
		},
		{
			name:      "ordered_beats_unordered",
			mods:      []string{"unordered", "ordered"},
			loadOrder: []string{"ordered"},
			expected:  "ordered",
		},
		{
			name:      "unordered_tie_broken_by_name",
			mods:      []string{"zeta", "alpha"},
			loadOrder: []string{},
			expected:  "zeta",
		},
		{
			name:      "unordered_tie_independent_of_input_order",
			mods:      []string{"alpha", "zeta"},
			loadOrder: []string{},
			expected:  "zeta",
		},
		{
			name:     "empty_mods",
			mods:     nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, conflicts.Winner(tt.mods, tt.loadOrder))
		})
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	require.NoError(t, err)

	addMod(t, dir, "A", "ui/foo.bundle", "only-a.txt")
	addMod(t, dir, "B", "ui/foo.bundle", "data/shared.dbc")
	addMod(t, dir, "C", "data/shared.dbc")

	t.Run("all_mods", func(t *testing.T) {
		cs, _, err := conflicts.Find(st, nil, []string{"B", "A"})
		require.NoError(t, err)
		require.Len(t, cs, 2)

		// Sorted by target path
		assert.Equal(t, "data/shared.dbc", cs[0].TargetSubpath)
		assert.ElementsMatch(t, []string{"B", "C"}, cs[0].Mods)
		assert.Equal(t, "B", cs[0].Winner, "B is ordered, C is not")

		assert.Equal(t, "ui/foo.bundle", cs[1].TargetSubpath)
		assert.Equal(t, "A", cs[1].Winner, "A has the higher load-order index")
	})

	t.Run("scoped_to_enabled_subset", func(t *testing.T) {
		cs, _, err := conflicts.Find(st, []string{"A", "C"}, nil)
		require.NoError(t, err)
		assert.Empty(t, cs, "A and C share no target paths")
	})

	t.Run("empty_set_scans_nothing", func(t *testing.T) {
		cs, manifests, err := conflicts.Find(st, []string{}, nil)
		require.NoError(t, err)
		assert.Empty(t, cs)
		assert.Empty(t, manifests)
	})
}
