package traverse

import (
	"context"
	"fmt"
	"sort"

	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/storage"
)

// CollapsePath is one distinct route to a repeated ancestor, expressed as
// the sequence of father/mother choices taken from the start person.
type CollapsePath struct {
	Sides      []Side `json:"sides"`
	Generation int    `json:"generation"`
}

// CollapsePoint is an ancestor reachable by more than one path: evidence of
// pedigree collapse, usually from cousin intermarriage.
type CollapsePoint struct {
	Ancestor    storage.Summary `json:"ancestor"`
	Occurrences int             `json:"occurrences"`
	Paths       []CollapsePath  `json:"paths"`
}

// DetectCollapse records every path to every ancestor within maxGenerations
// and reports the ancestors with two or more. Points are ordered most
// collapsed first, ties broken by ancestor ID. All parent families
// contribute paths, so a re-parented line counts as a distinct route.
func DetectCollapse(ctx context.Context, idx *index.Index, id storage.IndividualID, maxGenerations int) ([]CollapsePoint, bool, error) {
	if idx.Individual(id) == nil {
		return nil, false, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}
	generations, clamped := clamp(maxGenerations, MaxAncestorGenerations)

	paths := map[storage.IndividualID][]CollapsePath{}
	onPath := map[storage.IndividualID]struct{}{}

	var walk func(current storage.IndividualID, trail []Side) error
	walk = func(current storage.IndividualID, trail []Side) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(trail) >= generations {
			return nil
		}
		onPath[current] = struct{}{}
		defer delete(onPath, current)

		for _, fam := range idx.ParentFamilies(current) {
			for _, hop := range []struct {
				parent storage.IndividualID
				side   Side
			}{
				{fam.HusbandID, SideFather},
				{fam.WifeID, SideMother},
			} {
				if hop.parent == "" || idx.Individual(hop.parent) == nil {
					continue
				}
				if _, cycle := onPath[hop.parent]; cycle {
					continue
				}
				next := append(append([]Side(nil), trail...), hop.side)
				paths[hop.parent] = append(paths[hop.parent], CollapsePath{
					Sides:      next,
					Generation: len(next),
				})
				if err := walk(hop.parent, next); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(id, nil); err != nil {
		return nil, false, err
	}

	var out []CollapsePoint
	for ancestorID, ancestorPaths := range paths {
		if len(ancestorPaths) < 2 {
			continue
		}
		ancestor := idx.Individual(ancestorID)
		if ancestor == nil {
			continue
		}
		sort.Slice(ancestorPaths, func(a, b int) bool {
			return lessSides(ancestorPaths[a].Sides, ancestorPaths[b].Sides)
		})
		out = append(out, CollapsePoint{
			Ancestor:    ancestor.Summary(),
			Occurrences: len(ancestorPaths),
			Paths:       ancestorPaths,
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Occurrences != out[b].Occurrences {
			return out[a].Occurrences > out[b].Occurrences
		}
		return out[a].Ancestor.ID < out[b].Ancestor.ID
	})
	return out, clamped, nil
}

func lessSides(a, b []Side) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
