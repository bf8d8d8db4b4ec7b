package kinship

import (
	"context"
	"fmt"

	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/storage"
)

// Relation is the tagged kinship variant. Each category carries only the
// fields it needs; Term renders individual 1's role relative to
// individual 2.
type Relation interface {
	Term() string
	relation()
}

// Self means both arguments are the same individual.
type Self struct{}

func (Self) Term() string { return "self" }
func (Self) relation()    {}

// DirectLineage is a parent/child line of any depth. Ancestor reports
// whether individual 1 is the senior side.
type DirectLineage struct {
	Ancestor    bool `json:"ancestor"`
	Generations int  `json:"generations"`
}

func (r DirectLineage) Term() string {
	if r.Ancestor {
		return ancestorName(r.Generations)
	}
	return descendantName(r.Generations)
}
func (DirectLineage) relation() {}

// Sibling is a shared-parent relationship.
type Sibling struct {
	Half bool `json:"half"`
}

func (r Sibling) Term() string {
	if r.Half {
		return "half-sibling"
	}
	return "sibling"
}
func (Sibling) relation() {}

// AuntUncle covers the parent's-sibling line in both directions. Senior
// reports whether individual 1 is the aunt/uncle; Generations is the junior
// side's distance to the common ancestor.
type AuntUncle struct {
	Senior      bool `json:"senior"`
	Generations int  `json:"generations"`
}

func (r AuntUncle) Term() string {
	if r.Senior {
		return auntUncleName(r.Generations)
	}
	return nieceNephewName(r.Generations)
}
func (AuntUncle) relation() {}

// Cousin carries the degree and removal derived from the two generation
// offsets to the nearest common ancestor.
type Cousin struct {
	Degree  int `json:"degree"`
	Removed int `json:"removed"`
}

func (r Cousin) Term() string { return cousinName(r.Degree, r.Removed) }
func (Cousin) relation()      {}

// SpouseOnly means the two share a spouse family but no blood tie within
// the search depth.
type SpouseOnly struct{}

func (SpouseOnly) Term() string { return "spouse" }
func (SpouseOnly) relation()    {}

// Undetermined means no common ancestor was found within the search depth.
// This is weaker than "unrelated": the search is always bounded.
type Undetermined struct {
	SearchDepth int `json:"search_depth"`
}

func (r Undetermined) Term() string {
	return fmt.Sprintf("not related within %d generations", r.SearchDepth)
}
func (Undetermined) relation() {}

// Result is a resolved relationship between two individuals.
type Result struct {
	Individual1 storage.Summary `json:"individual_1"`
	Individual2 storage.Summary `json:"individual_2"`

	Relation     Relation `json:"-"`
	Relationship string   `json:"relationship"`

	// Spouse is detected independently of blood ties, so a cousin
	// marriage reports both.
	Spouse bool `json:"spouse,omitempty"`

	// CommonAncestor and the two generation offsets let callers verify
	// the derivation. Set for every ancestor-intersection category.
	CommonAncestor *storage.Summary `json:"common_ancestor,omitempty"`
	Generations1   int              `json:"generations_from_1,omitempty"`
	Generations2   int              `json:"generations_from_2,omitempty"`
}

// Resolve names the relationship between id1 and id2, searching up to
// maxGenerations (values outside [1, HardSearchCeiling] mean the ceiling).
func Resolve(ctx context.Context, idx *index.Index, id1, id2 storage.IndividualID, maxGenerations int) (*Result, error) {
	if maxGenerations < 1 || maxGenerations > HardSearchCeiling {
		maxGenerations = HardSearchCeiling
	}
	set1, err := BuildAncestorSet(ctx, idx, id1, maxGenerations)
	if err != nil {
		return nil, err
	}
	set2, err := BuildAncestorSet(ctx, idx, id2, maxGenerations)
	if err != nil {
		return nil, err
	}
	return ResolveWithSets(idx, id1, id2, set1, set2, maxGenerations)
}

// ResolveWithSets is Resolve over prebuilt ancestor sets. Matrix queries
// use it to build each individual's set once.
func ResolveWithSets(idx *index.Index, id1, id2 storage.IndividualID, set1, set2 AncestorSet, maxGenerations int) (*Result, error) {
	indi1 := idx.Individual(id1)
	indi2 := idx.Individual(id2)
	if indi1 == nil {
		return nil, fmt.Errorf("individual %s: %w", id1, storage.ErrNotFound)
	}
	if indi2 == nil {
		return nil, fmt.Errorf("individual %s: %w", id2, storage.ErrNotFound)
	}

	result := &Result{
		Individual1: indi1.Summary(),
		Individual2: indi2.Summary(),
	}

	if id1 == id2 {
		result.Relation = Self{}
		result.Relationship = result.Relation.Term()
		return result, nil
	}

	result.Spouse = sharesSpouseFamily(idx, id1, id2)

	ancestorID, g1, g2, found := nearestCommonAncestor(set1, set2)
	if !found {
		if result.Spouse {
			result.Relation = SpouseOnly{}
		} else {
			result.Relation = Undetermined{SearchDepth: maxGenerations}
		}
		result.Relationship = result.Relation.Term()
		return result, nil
	}

	if ancestor := idx.Individual(ancestorID); ancestor != nil {
		summary := ancestor.Summary()
		result.CommonAncestor = &summary
	}
	result.Generations1 = g1
	result.Generations2 = g2
	result.Relation = classify(idx, id1, id2, g1, g2)
	result.Relationship = result.Relation.Term()
	return result, nil
}

// nearestCommonAncestor picks the (ancestor, g1, g2) pair minimizing g1+g2
// over every recorded distance combination, breaking ties by the smaller
// max(g1, g2), then by ancestor ID.
func nearestCommonAncestor(set1, set2 AncestorSet) (storage.IndividualID, int, int, bool) {
	var (
		bestID  storage.IndividualID
		bestG1  int
		bestG2  int
		found   bool
		bestSum int
		bestMax int
	)
	better := func(id storage.IndividualID, g1, g2 int) bool {
		sum, max := g1+g2, g1
		if g2 > max {
			max = g2
		}
		if !found {
			return true
		}
		if sum != bestSum {
			return sum < bestSum
		}
		if max != bestMax {
			return max < bestMax
		}
		return id < bestID
	}
	for id, distances1 := range set1 {
		distances2, ok := set2[id]
		if !ok {
			continue
		}
		for _, g1 := range distances1 {
			for _, g2 := range distances2 {
				if better(id, g1, g2) {
					bestID, bestG1, bestG2 = id, g1, g2
					bestSum = g1 + g2
					bestMax = g1
					if g2 > bestMax {
						bestMax = g2
					}
					found = true
				}
			}
		}
	}
	return bestID, bestG1, bestG2, found
}

func classify(idx *index.Index, id1, id2 storage.IndividualID, g1, g2 int) Relation {
	switch {
	case g1 == 0:
		return DirectLineage{Ancestor: true, Generations: g2}
	case g2 == 0:
		return DirectLineage{Ancestor: false, Generations: g1}
	case g1 == 1 && g2 == 1:
		return Sibling{Half: sharedParentCount(idx, id1, id2) < 2}
	case g1 == 1:
		return AuntUncle{Senior: true, Generations: g2}
	case g2 == 1:
		return AuntUncle{Senior: false, Generations: g1}
	default:
		degree := g1
		if g2 < degree {
			degree = g2
		}
		removed := g1 - g2
		if removed < 0 {
			removed = -removed
		}
		return Cousin{Degree: degree - 1, Removed: removed}
	}
}

func sharesSpouseFamily(idx *index.Index, id1, id2 storage.IndividualID) bool {
	for _, fam := range idx.SpouseFamilies(id1) {
		if fam.HusbandID == id2 || fam.WifeID == id2 {
			return true
		}
	}
	return false
}

func sharedParentCount(idx *index.Index, id1, id2 storage.IndividualID) int {
	parents1 := map[storage.IndividualID]struct{}{}
	for _, parent := range idx.Parents(id1) {
		parents1[parent.ID] = struct{}{}
	}
	count := 0
	for _, parent := range idx.Parents(id2) {
		if _, ok := parents1[parent.ID]; ok {
			count++
		}
	}
	return count
}
