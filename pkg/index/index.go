// Package index builds the immutable in-memory graph over individual and
// family records.
//
// An Index is constructed once from a storage.Store snapshot and never
// mutated afterward, so every read path is lock-free and safe for concurrent
// use. When the underlying records change, callers build a fresh Index and
// swap it in atomically.
//
// Build resolves the cross-references between individuals and families and
// records a diagnostic for every dangling reference instead of failing: real
// GEDCOM exports are full of them, and a partial graph is more useful than
// no graph.
package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orneryd/kindred/pkg/place"
	"github.com/orneryd/kindred/pkg/storage"
)

// DiagnosticKind classifies a referential integrity problem found during
// Build.
type DiagnosticKind string

const (
	// DanglingChild is a family whose child list names a missing individual.
	DanglingChild DiagnosticKind = "dangling_child"
	// DanglingHusband is a family whose husband reference is missing.
	DanglingHusband DiagnosticKind = "dangling_husband"
	// DanglingWife is a family whose wife reference is missing.
	DanglingWife DiagnosticKind = "dangling_wife"
	// DanglingParentFamily is an individual naming a missing family as
	// the family they are a child of.
	DanglingParentFamily DiagnosticKind = "dangling_parent_family"
	// DanglingSpouseFamily is an individual naming a missing family as
	// a family they are a spouse in.
	DanglingSpouseFamily DiagnosticKind = "dangling_spouse_family"
)

// Diagnostic reports one dangling reference.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Source string         `json:"source"`
	Target string         `json:"target"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s -> %s", d.Kind, d.Source, d.Target)
}

// Options configures Build.
type Options struct {
	// Matcher normalizes place strings for the place index. Nil means a
	// default matcher.
	Matcher *place.Matcher
}

// Index is the immutable graph. All maps and slices are private; reads go
// through accessor methods that never expose mutable internals beyond the
// record pointers themselves, which callers must treat as read-only.
type Index struct {
	individuals map[storage.IndividualID]*storage.Individual
	families    map[storage.FamilyID]*storage.Family

	// parentFamilies and spouseFamilies hold only references that
	// resolved during Build.
	parentFamilies map[storage.IndividualID][]*storage.Family
	spouseFamilies map[storage.IndividualID][]*storage.Family

	surnames   map[string][]storage.IndividualID
	birthYears map[int][]storage.IndividualID
	places     map[string][]storage.IndividualID // normalized place -> individuals
	placeNames map[string]string                 // normalized place -> original spelling

	diagnostics []Diagnostic
	matcher     *place.Matcher
}

// Build constructs an Index from a snapshot of the store.
func Build(store storage.Store, opts Options) (*Index, error) {
	individuals, err := store.Individuals()
	if err != nil {
		return nil, fmt.Errorf("load individuals: %w", err)
	}
	families, err := store.Families()
	if err != nil {
		return nil, fmt.Errorf("load families: %w", err)
	}

	matcher := opts.Matcher
	if matcher == nil {
		matcher = place.NewMatcher(nil)
	}

	idx := &Index{
		individuals:    make(map[storage.IndividualID]*storage.Individual, len(individuals)),
		families:       make(map[storage.FamilyID]*storage.Family, len(families)),
		parentFamilies: make(map[storage.IndividualID][]*storage.Family),
		spouseFamilies: make(map[storage.IndividualID][]*storage.Family),
		surnames:       make(map[string][]storage.IndividualID),
		birthYears:     make(map[int][]storage.IndividualID),
		places:         make(map[string][]storage.IndividualID),
		placeNames:     make(map[string]string),
		matcher:        matcher,
	}

	for _, indi := range individuals {
		idx.individuals[indi.ID] = indi
	}
	for _, fam := range families {
		idx.families[fam.ID] = fam
	}

	idx.resolveFamilies()
	idx.resolveIndividuals()
	idx.buildSecondary()

	return idx, nil
}

func (idx *Index) resolveFamilies() {
	for _, fam := range idx.families {
		if fam.HusbandID != "" {
			if _, ok := idx.individuals[fam.HusbandID]; !ok {
				idx.report(DanglingHusband, string(fam.ID), string(fam.HusbandID))
			}
		}
		if fam.WifeID != "" {
			if _, ok := idx.individuals[fam.WifeID]; !ok {
				idx.report(DanglingWife, string(fam.ID), string(fam.WifeID))
			}
		}
		for _, childID := range fam.Children {
			if _, ok := idx.individuals[childID]; !ok {
				idx.report(DanglingChild, string(fam.ID), string(childID))
			}
		}
	}
}

func (idx *Index) resolveIndividuals() {
	for _, indi := range idx.individuals {
		for _, famID := range indi.FamiliesAsChild {
			fam, ok := idx.families[famID]
			if !ok {
				idx.report(DanglingParentFamily, string(indi.ID), string(famID))
				continue
			}
			idx.parentFamilies[indi.ID] = append(idx.parentFamilies[indi.ID], fam)
		}
		for _, famID := range indi.FamiliesAsSpouse {
			fam, ok := idx.families[famID]
			if !ok {
				idx.report(DanglingSpouseFamily, string(indi.ID), string(famID))
				continue
			}
			idx.spouseFamilies[indi.ID] = append(idx.spouseFamilies[indi.ID], fam)
		}
	}
	// Deterministic family order per individual.
	for _, fams := range idx.parentFamilies {
		sortFamilies(fams)
	}
	for _, fams := range idx.spouseFamilies {
		sortFamilies(fams)
	}
}

func (idx *Index) buildSecondary() {
	for _, indi := range idx.individuals {
		if surname := strings.ToLower(strings.TrimSpace(indi.Surname)); surname != "" {
			idx.surnames[surname] = append(idx.surnames[surname], indi.ID)
		}
		if year := indi.BirthYear(); year != 0 {
			idx.birthYears[year] = append(idx.birthYears[year], indi.ID)
		}
		for _, placeName := range indi.Places() {
			normalized := idx.matcher.Normalize(placeName)
			if normalized == "" {
				continue
			}
			if _, seen := idx.placeNames[normalized]; !seen {
				idx.placeNames[normalized] = placeName
			}
			ids := idx.places[normalized]
			if len(ids) == 0 || ids[len(ids)-1] != indi.ID {
				idx.places[normalized] = append(idx.places[normalized], indi.ID)
			}
		}
	}
	for _, ids := range idx.surnames {
		sortIDs(ids)
	}
	for _, ids := range idx.birthYears {
		sortIDs(ids)
	}
	for normalized, ids := range idx.places {
		sortIDs(ids)
		idx.places[normalized] = dedupeIDs(ids)
	}
}

func (idx *Index) report(kind DiagnosticKind, source, target string) {
	idx.diagnostics = append(idx.diagnostics, Diagnostic{Kind: kind, Source: source, Target: target})
}

// Individual returns the record for id, or nil when absent.
func (idx *Index) Individual(id storage.IndividualID) *storage.Individual {
	return idx.individuals[id]
}

// Family returns the record for id, or nil when absent.
func (idx *Index) Family(id storage.FamilyID) *storage.Family {
	return idx.families[id]
}

// ParentFamilies returns the resolved families the individual is a child of.
func (idx *Index) ParentFamilies(id storage.IndividualID) []*storage.Family {
	return idx.parentFamilies[id]
}

// SpouseFamilies returns the resolved families the individual is a spouse in.
func (idx *Index) SpouseFamilies(id storage.IndividualID) []*storage.Family {
	return idx.spouseFamilies[id]
}

// Parents returns the resolved parent individuals across all parent
// families, fathers before mothers, deduplicated, in family order.
func (idx *Index) Parents(id storage.IndividualID) []*storage.Individual {
	var out []*storage.Individual
	seen := make(map[storage.IndividualID]struct{})
	for _, fam := range idx.parentFamilies[id] {
		for _, parentID := range []storage.IndividualID{fam.HusbandID, fam.WifeID} {
			if parentID == "" {
				continue
			}
			parent, ok := idx.individuals[parentID]
			if !ok {
				continue
			}
			if _, dup := seen[parentID]; dup {
				continue
			}
			seen[parentID] = struct{}{}
			out = append(out, parent)
		}
	}
	return out
}

// Children returns the resolved children across all spouse families,
// deduplicated, in family order.
func (idx *Index) Children(id storage.IndividualID) []*storage.Individual {
	var out []*storage.Individual
	seen := make(map[storage.IndividualID]struct{})
	for _, fam := range idx.spouseFamilies[id] {
		for _, childID := range fam.Children {
			child, ok := idx.individuals[childID]
			if !ok {
				continue
			}
			if _, dup := seen[childID]; dup {
				continue
			}
			seen[childID] = struct{}{}
			out = append(out, child)
		}
	}
	return out
}

// IndividualIDs returns all individual IDs in ascending order.
func (idx *Index) IndividualIDs() []storage.IndividualID {
	ids := make([]storage.IndividualID, 0, len(idx.individuals))
	for id := range idx.individuals {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// FamilyIDs returns all family IDs in ascending order.
func (idx *Index) FamilyIDs() []storage.FamilyID {
	ids := make([]storage.FamilyID, 0, len(idx.families))
	for id := range idx.families {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// IndividualCount returns the number of indexed individuals.
func (idx *Index) IndividualCount() int { return len(idx.individuals) }

// FamilyCount returns the number of indexed families.
func (idx *Index) FamilyCount() int { return len(idx.families) }

// BySurname returns individual IDs whose surname matches, case-insensitive.
func (idx *Index) BySurname(surname string) []storage.IndividualID {
	return idx.surnames[strings.ToLower(strings.TrimSpace(surname))]
}

// Surnames returns all distinct surnames in lowercase, sorted.
func (idx *Index) Surnames() []string {
	out := make([]string, 0, len(idx.surnames))
	for s := range idx.surnames {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ByBirthYear returns individual IDs born in the given year.
func (idx *Index) ByBirthYear(year int) []storage.IndividualID {
	return idx.birthYears[year]
}

// ByBirthYearRange returns individual IDs born in [from, to], ascending by
// year then ID.
func (idx *Index) ByBirthYearRange(from, to int) []storage.IndividualID {
	var out []storage.IndividualID
	for year := from; year <= to; year++ {
		out = append(out, idx.birthYears[year]...)
	}
	return out
}

// PlaceNames returns the original spelling of every indexed place, sorted.
func (idx *Index) PlaceNames() []string {
	out := make([]string, 0, len(idx.placeNames))
	for _, original := range idx.placeNames {
		out = append(out, original)
	}
	sort.Strings(out)
	return out
}

// NormalizedPlaces returns every normalized place key, sorted.
func (idx *Index) NormalizedPlaces() []string {
	out := make([]string, 0, len(idx.places))
	for normalized := range idx.places {
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}

// ByNormalizedPlace returns individual IDs with an event at the normalized
// place string.
func (idx *Index) ByNormalizedPlace(normalized string) []storage.IndividualID {
	return idx.places[normalized]
}

// Matcher returns the place matcher the index normalizes with.
func (idx *Index) Matcher() *place.Matcher { return idx.matcher }

// Diagnostics returns the dangling references found during Build.
func (idx *Index) Diagnostics() []Diagnostic {
	return idx.diagnostics
}

func sortIDs(ids []storage.IndividualID) {
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
}

func dedupeIDs(sorted []storage.IndividualID) []storage.IndividualID {
	out := sorted[:0]
	for i, id := range sorted {
		if i == 0 || sorted[i-1] != id {
			out = append(out, id)
		}
	}
	return out
}

func sortFamilies(fams []*storage.Family) {
	sort.Slice(fams, func(a, b int) bool { return fams[a].ID < fams[b].ID })
}
