// Package conflicts detects target-path collisions across mods and ranks
// them by load order. It is advisory only: nothing here mutates state.
package conflicts

import (
	"sort"

	"github.com/fmreloaded/modman/pkg/manifest"
	"github.com/fmreloaded/modman/pkg/store"
)

// Conflict describes one target path claimed by more than one mod.
type Conflict struct {
	TargetSubpath string
	Mods          []string
	// Winner is the mod whose file survives under last-write-wins.
	Winner string
}

// Find returns every target subpath claimed by two or more of the given
// mods, with the winner ranked by loadOrder. A nil names slice scans the
// whole store; an empty slice scans nothing.
func Find(st *store.Store, names, loadOrder []string) ([]Conflict, map[string]*manifest.Manifest, error) {
	index, manifests, err := st.BuildIndex(names)
	if err != nil {
		return nil, nil, err
	}

	var out []Conflict
	for target, mods := range index {
		if len(mods) < 2 {
			continue
		}
		out = append(out, Conflict{
			TargetSubpath: target,
			Mods:          mods,
			Winner:        Winner(mods, loadOrder),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetSubpath < out[j].TargetSubpath })
	return out, manifests, nil
}

// Winner picks the mod that wins a conflicted path under last-write-wins:
// the highest index in loadOrder. Mods absent from loadOrder rank -1, so any
// explicitly ordered mod outranks an unordered one. Ties between unordered
// mods are broken by name (last in lexical order wins), making the result
// independent of caller iteration order.
func Winner(mods, loadOrder []string) string {
	if len(mods) == 0 {
		return ""
	}

	rank := func(name string) int {
		for i, m := range loadOrder {
			if m == name {
				return i
			}
		}
		return -1
	}

	winner := mods[0]
	for _, m := range mods[1:] {
		rm, rw := rank(m), rank(winner)
		if rm > rw || (rm == rw && m > winner) {
			winner = m
		}
	}
	return winner
}
