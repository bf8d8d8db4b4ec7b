// Package kinship names the relationship between two individuals.
//
// Resolution is set-based: build each individual's ancestor set up to a
// depth bound, intersect, and translate the nearest common ancestor's
// generation offsets into a kinship term. Every ancestor keeps all of its
// generation distances, not just the closest, so collapsed pedigrees still
// resolve to the nearest reading.
//
// The result is a tagged variant (Relation) with one case per category,
// each carrying only the fields that category needs. Terms always name
// individual 1's role relative to individual 2, so resolving the arguments
// in either order yields inverse-consistent terms.
package kinship

import (
	"context"
	"fmt"
	"sort"

	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/storage"
)

// HardSearchCeiling bounds relationship search when the caller asks for
// unbounded depth. Finite so that malformed data can never recurse forever.
const HardSearchCeiling = 100

// AncestorSet maps each reachable ancestor to every generation distance at
// which some path reaches them, sorted ascending. The individual themself
// is present at distance 0, which lets set intersection detect direct
// lineage and self without special cases.
type AncestorSet map[storage.IndividualID][]int

// Min returns the smallest recorded distance for id, or -1 when id is not
// in the set.
func (s AncestorSet) Min(id storage.IndividualID) int {
	distances := s[id]
	if len(distances) == 0 {
		return -1
	}
	return distances[0]
}

// BuildAncestorSet walks all parent families up to maxGenerations,
// recording every distance at which each ancestor is reached. Cycles are
// truncated per path.
func BuildAncestorSet(ctx context.Context, idx *index.Index, id storage.IndividualID, maxGenerations int) (AncestorSet, error) {
	if idx.Individual(id) == nil {
		return nil, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}
	if maxGenerations < 1 || maxGenerations > HardSearchCeiling {
		maxGenerations = HardSearchCeiling
	}

	set := AncestorSet{id: {0}}
	onPath := map[storage.IndividualID]struct{}{}

	var walk func(current storage.IndividualID, generation int) error
	walk = func(current storage.IndividualID, generation int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if generation >= maxGenerations {
			return nil
		}
		onPath[current] = struct{}{}
		defer delete(onPath, current)

		for _, fam := range idx.ParentFamilies(current) {
			for _, parentID := range fam.Parents() {
				if idx.Individual(parentID) == nil {
					continue
				}
				if _, cycle := onPath[parentID]; cycle {
					continue
				}
				set[parentID] = append(set[parentID], generation+1)
				if err := walk(parentID, generation+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(id, 0); err != nil {
		return nil, err
	}
	for _, distances := range set {
		sort.Ints(distances)
	}
	return set, nil
}
