// Package traverse implements bounded generational walks over the immutable
// graph index.
//
// Every operation takes the index by reference and keeps its working state
// (visited sets, path stacks) per call, so concurrent traversals never
// interfere. Depth parameters are clamped to the package caps rather than
// rejected; results carry a Clamped flag when that happens.
//
// Cycle safety: malformed records can make a person their own ancestor. Each
// recursive walk carries a per-path visited set and refuses to re-enter an
// individual already on the current path. The same individual reached by a
// different path is fine, and is exactly what collapse detection looks for.
package traverse

import (
	"context"
	"fmt"

	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/storage"
)

// Depth caps. Requests beyond these are clamped, not rejected.
const (
	MaxAncestorGenerations   = 20
	MaxDescendantGenerations = 10
	MaxExpandDepth           = 10
)

// Side is one parent-hop choice in an ancestry path.
type Side string

const (
	SideFather Side = "father"
	SideMother Side = "mother"
)

// Direction selects the single-step relation Expand applies.
type Direction string

const (
	DirectionParents  Direction = "parents"
	DirectionChildren Direction = "children"
	DirectionSpouses  Direction = "spouses"
	DirectionSiblings Direction = "siblings"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionParents, DirectionChildren, DirectionSpouses, DirectionSiblings:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown traversal direction %q", s)
}

// AncestorNode is one person in a nested ancestor tree.
type AncestorNode struct {
	storage.Summary
	Generation int           `json:"generation"`
	Father     *AncestorNode `json:"father,omitempty"`
	Mother     *AncestorNode `json:"mother,omitempty"`
}

// AncestorTree is the result of an ancestor traversal.
type AncestorTree struct {
	Root        *AncestorNode `json:"root"`
	Generations int           `json:"generations"`
	Clamped     bool          `json:"clamped,omitempty"`
}

// Ancestors walks parent links up to maxGenerations and returns the nested
// tree rooted at id. The tree follows the first parent family of each
// person; re-parented cases contribute to ancestor sets and collapse
// detection but not to this single-tree view.
func Ancestors(ctx context.Context, idx *index.Index, id storage.IndividualID, maxGenerations int) (*AncestorTree, error) {
	if idx.Individual(id) == nil {
		return nil, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}
	generations, clamped := clamp(maxGenerations, MaxAncestorGenerations)

	onPath := map[storage.IndividualID]struct{}{}
	root, err := buildAncestorNode(ctx, idx, id, 0, generations, onPath)
	if err != nil {
		return nil, err
	}
	return &AncestorTree{Root: root, Generations: generations, Clamped: clamped}, nil
}

func buildAncestorNode(ctx context.Context, idx *index.Index, id storage.IndividualID, generation, maxGenerations int, onPath map[storage.IndividualID]struct{}) (*AncestorNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	indi := idx.Individual(id)
	if indi == nil {
		return nil, nil
	}
	if _, cycle := onPath[id]; cycle {
		return nil, nil
	}
	onPath[id] = struct{}{}
	defer delete(onPath, id)

	node := &AncestorNode{Summary: indi.Summary(), Generation: generation}
	if generation < maxGenerations {
		if fam := firstParentFamily(idx, id); fam != nil {
			var err error
			if fam.HusbandID != "" {
				node.Father, err = buildAncestorNode(ctx, idx, fam.HusbandID, generation+1, maxGenerations, onPath)
				if err != nil {
					return nil, err
				}
			}
			if fam.WifeID != "" {
				node.Mother, err = buildAncestorNode(ctx, idx, fam.WifeID, generation+1, maxGenerations, onPath)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	return node, nil
}

// Confidence qualifies why a terminal ancestor is terminal.
type Confidence string

const (
	// ConfidenceConfirmed means the record names no parent family at all.
	ConfidenceConfirmed Confidence = "confirmed"
	// ConfidenceUnknown means parent references exist but none resolve to
	// an actual parent. The line may continue in missing records.
	ConfidenceUnknown Confidence = "unknown"
)

// TerminalAncestor is a brick-wall ancestor: an end of an explored line.
type TerminalAncestor struct {
	storage.Summary
	Generation int        `json:"generation"`
	Path       []Side     `json:"path"`
	Confidence Confidence `json:"confidence"`
}

// TerminalAncestors returns the ancestors with no further resolvable
// parents, up to maxGenerations. The start individual is never reported, and
// ancestors cut off by the depth bound are not terminal. Each ancestor is
// reported once with the first path that reached it.
func TerminalAncestors(ctx context.Context, idx *index.Index, id storage.IndividualID, maxGenerations int) ([]TerminalAncestor, bool, error) {
	if idx.Individual(id) == nil {
		return nil, false, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}
	generations, clamped := clamp(maxGenerations, MaxAncestorGenerations)

	var out []TerminalAncestor
	seen := map[storage.IndividualID]struct{}{}

	var walk func(current storage.IndividualID, generation int, path []Side) error
	walk = func(current storage.IndividualID, generation int, path []Side) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		indi := idx.Individual(current)
		if indi == nil {
			return nil
		}
		if _, dup := seen[current]; dup {
			return nil
		}
		seen[current] = struct{}{}

		fam := firstParentFamily(idx, current)
		hasParents := fam != nil &&
			(idx.Individual(fam.HusbandID) != nil || idx.Individual(fam.WifeID) != nil)
		if hasParents && generation < generations {
			if fam.HusbandID != "" {
				if err := walk(fam.HusbandID, generation+1, append(path, SideFather)); err != nil {
					return err
				}
			}
			if fam.WifeID != "" {
				if err := walk(fam.WifeID, generation+1, append(path, SideMother)); err != nil {
					return err
				}
			}
			return nil
		}
		if hasParents || current == id {
			// Depth-limited or the start person, not a brick wall.
			return nil
		}

		confidence := ConfidenceConfirmed
		if len(indi.FamiliesAsChild) > 0 {
			confidence = ConfidenceUnknown
		}
		out = append(out, TerminalAncestor{
			Summary:    indi.Summary(),
			Generation: generation,
			Path:       append([]Side(nil), path...),
			Confidence: confidence,
		})
		return nil
	}

	if err := walk(id, 0, nil); err != nil {
		return nil, false, err
	}
	return out, clamped, nil
}

// DescendantNode is one person in a nested descendant tree.
type DescendantNode struct {
	storage.Summary
	Generation int               `json:"generation"`
	Children   []*DescendantNode `json:"children,omitempty"`
}

// DescendantTree is the result of a descendant traversal.
type DescendantTree struct {
	Root        *DescendantNode `json:"root"`
	Generations int             `json:"generations"`
	Clamped     bool            `json:"clamped,omitempty"`
}

// Descendants walks child links down to maxGenerations, across all of each
// person's spouse families.
func Descendants(ctx context.Context, idx *index.Index, id storage.IndividualID, maxGenerations int) (*DescendantTree, error) {
	if idx.Individual(id) == nil {
		return nil, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}
	generations, clamped := clamp(maxGenerations, MaxDescendantGenerations)

	onPath := map[storage.IndividualID]struct{}{}
	root, err := buildDescendantNode(ctx, idx, id, 0, generations, onPath)
	if err != nil {
		return nil, err
	}
	return &DescendantTree{Root: root, Generations: generations, Clamped: clamped}, nil
}

func buildDescendantNode(ctx context.Context, idx *index.Index, id storage.IndividualID, generation, maxGenerations int, onPath map[storage.IndividualID]struct{}) (*DescendantNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	indi := idx.Individual(id)
	if indi == nil {
		return nil, nil
	}
	if _, cycle := onPath[id]; cycle {
		return nil, nil
	}
	onPath[id] = struct{}{}
	defer delete(onPath, id)

	node := &DescendantNode{Summary: indi.Summary(), Generation: generation}
	if generation < maxGenerations {
		for _, child := range idx.Children(id) {
			childNode, err := buildDescendantNode(ctx, idx, child.ID, generation+1, maxGenerations, onPath)
			if err != nil {
				return nil, err
			}
			if childNode != nil {
				node.Children = append(node.Children, childNode)
			}
		}
	}
	return node, nil
}

// Sibling is an individual sharing at least one parent family with the
// start person.
type Sibling struct {
	storage.Summary
	Half bool `json:"half"`
}

// Siblings returns everyone sharing a parent family or a parent individual
// with id, annotated full or half. Full siblings share two parent
// individuals, half siblings share one. Children of a parent's other union
// count, since that is how half-siblings usually appear in the records.
func Siblings(idx *index.Index, id storage.IndividualID) ([]Sibling, error) {
	indi := idx.Individual(id)
	if indi == nil {
		return nil, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}

	ownParents := parentIDSet(idx, id)
	candidateFamilies := append([]*storage.Family(nil), idx.ParentFamilies(id)...)
	for _, parent := range idx.Parents(id) {
		candidateFamilies = append(candidateFamilies, idx.SpouseFamilies(parent.ID)...)
	}

	var out []Sibling
	seen := map[storage.IndividualID]struct{}{id: {}}
	for _, fam := range candidateFamilies {
		for _, childID := range fam.Children {
			if _, dup := seen[childID]; dup {
				continue
			}
			seen[childID] = struct{}{}
			sibling := idx.Individual(childID)
			if sibling == nil {
				continue
			}
			out = append(out, Sibling{
				Summary: sibling.Summary(),
				Half:    sharedParents(ownParents, parentIDSet(idx, childID)) < 2,
			})
		}
	}
	return out, nil
}

// SpouseLink is a spouse together with the union that links them.
type SpouseLink struct {
	storage.Summary
	FamilyID      storage.FamilyID `json:"family_id"`
	MarriageDate  string           `json:"marriage_date,omitempty"`
	MarriagePlace string           `json:"marriage_place,omitempty"`
}

// Spouses returns the individuals linked through any of id's spouse
// families, with each family's marriage details.
func Spouses(idx *index.Index, id storage.IndividualID) ([]SpouseLink, error) {
	if idx.Individual(id) == nil {
		return nil, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}

	var out []SpouseLink
	for _, fam := range idx.SpouseFamilies(id) {
		spouseID := fam.HusbandID
		if fam.HusbandID == id {
			spouseID = fam.WifeID
		}
		if spouseID == "" || spouseID == id {
			continue
		}
		spouse := idx.Individual(spouseID)
		if spouse == nil {
			continue
		}
		out = append(out, SpouseLink{
			Summary:       spouse.Summary(),
			FamilyID:      fam.ID,
			MarriageDate:  fam.MarriageDate.String(),
			MarriagePlace: fam.MarriagePlace,
		})
	}
	return out, nil
}

// Step is one traversal result with its hop distance from the start.
type Step struct {
	storage.Summary
	Level int `json:"level"`
}

// Expand walks breadth-first from id, applying the single-step relation
// once per level. Level 1 holds the direct relation, level 2 the relation
// applied to level 1, and so on. Each individual appears at most once, at
// the lowest level that reaches them.
func Expand(ctx context.Context, idx *index.Index, id storage.IndividualID, direction Direction, depth int) ([]Step, bool, error) {
	if idx.Individual(id) == nil {
		return nil, false, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}
	if depth < 1 {
		depth = 1
	}
	depth, clamped := clamp(depth, MaxExpandDepth)

	var out []Step
	seen := map[storage.IndividualID]struct{}{id: {}}
	current := []storage.IndividualID{id}

	for level := 1; level <= depth && len(current) > 0; level++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		var next []storage.IndividualID
		for _, fromID := range current {
			for _, related := range relatedIDs(idx, fromID, direction) {
				if _, dup := seen[related]; dup {
					continue
				}
				seen[related] = struct{}{}
				next = append(next, related)
				out = append(out, Step{Summary: idx.Individual(related).Summary(), Level: level})
			}
		}
		current = next
	}
	return out, clamped, nil
}

func relatedIDs(idx *index.Index, id storage.IndividualID, direction Direction) []storage.IndividualID {
	var out []storage.IndividualID
	switch direction {
	case DirectionParents:
		for _, parent := range idx.Parents(id) {
			out = append(out, parent.ID)
		}
	case DirectionChildren:
		for _, child := range idx.Children(id) {
			out = append(out, child.ID)
		}
	case DirectionSpouses:
		links, err := Spouses(idx, id)
		if err != nil {
			return nil
		}
		for _, link := range links {
			out = append(out, link.ID)
		}
	case DirectionSiblings:
		siblings, err := Siblings(idx, id)
		if err != nil {
			return nil
		}
		for _, sibling := range siblings {
			out = append(out, sibling.ID)
		}
	}
	return out
}

func firstParentFamily(idx *index.Index, id storage.IndividualID) *storage.Family {
	fams := idx.ParentFamilies(id)
	if len(fams) == 0 {
		return nil
	}
	return fams[0]
}

func parentIDSet(idx *index.Index, id storage.IndividualID) map[storage.IndividualID]struct{} {
	out := map[storage.IndividualID]struct{}{}
	for _, parent := range idx.Parents(id) {
		out[parent.ID] = struct{}{}
	}
	return out
}

func sharedParents(a, b map[storage.IndividualID]struct{}) int {
	count := 0
	for id := range a {
		if _, ok := b[id]; ok {
			count++
		}
	}
	return count
}

func clamp(requested, limit int) (int, bool) {
	if requested > limit {
		return limit, true
	}
	return requested, false
}
