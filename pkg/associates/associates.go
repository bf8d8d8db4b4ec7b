// Package associates ranks likely real-world contacts of a focal
// individual using only time and place overlap: the FAN technique
// (Friends, Associates, Neighbors). Known relatives are optionally
// excluded, since the point is to surface the people around a family
// rather than the family itself.
//
// Scoring sums per-event-pair contributions (same place and year scores
// highest, near years less, place-only least), adds a bonus per extra
// distinct shared place, applies a multiplicative boost for overlapping
// lifespans, and finally normalizes strengths to [0, 1] across the result
// set. The normalized strength orders candidates; it is not a probability.
package associates

import (
	"context"
	"fmt"
	"sort"

	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/kinship"
	"github.com/orneryd/kindred/pkg/storage"
)

const (
	// DefaultMaxResults bounds a query that names no limit; MaxResults
	// is the hard cap.
	DefaultMaxResults = 50
	MaxResults        = 200

	// relativeSearchDepth bounds the relative-set walk when excluding
	// known family.
	relativeSearchDepth = 5

	// estimatedLifespanYears fills in a missing birth or death year.
	estimatedLifespanYears = 80

	// fullOverlapYears is the lifespan overlap at which the boost
	// saturates.
	fullOverlapYears = 50

	// placeMatchThreshold is the similarity floor for treating two
	// normalized places as the same.
	placeMatchThreshold = 0.75

	// maxOverlapsReported caps the per-candidate overlap audit trail.
	maxOverlapsReported = 5
)

// Weights holds the per-contribution scoring weights.
type Weights struct {
	// SameYear scores an event pair at one place in the same year.
	SameYear float64
	// NearYear scores a pair within five years.
	NearYear float64
	// SamePlaceOnly scores a pair at one place more than five years apart.
	SamePlaceOnly float64
	// UnknownYear scores a pair at one place when either year is missing.
	UnknownYear float64
	// ExtraPlace is added per distinct shared place beyond the first.
	ExtraPlace float64
	// LifespanOverlap is the maximum multiplicative boost for
	// overlapping lifespans.
	LifespanOverlap float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		SameYear:        0.15,
		NearYear:        0.08,
		SamePlaceOnly:   0.02,
		UnknownYear:     0.03,
		ExtraPlace:      0.05,
		LifespanOverlap: 0.30,
	}
}

// Query selects and bounds a search.
type Query struct {
	ID storage.IndividualID

	// Place restricts the focal places considered, fuzzy-matched.
	Place string
	// StartYear/EndYear restrict events by year; zero means open.
	// Events without a year always pass the filter.
	StartYear int
	EndYear   int

	// ExcludeRelatives drops blood and marriage relatives.
	ExcludeRelatives bool
	// MaxResults truncates the ranked list. Zero means DefaultMaxResults.
	MaxResults int
}

// Overlap is one contributing event pair, kept for auditability.
type Overlap struct {
	Kind           string `json:"kind"`
	FocalEvent     string `json:"focal_event"`
	FocalYear      int    `json:"focal_year,omitempty"`
	FocalPlace     string `json:"focal_place"`
	CandidateEvent string `json:"candidate_event"`
	CandidateYear  int    `json:"candidate_year,omitempty"`
	CandidatePlace string `json:"candidate_place"`
}

// Overlap kinds.
const (
	OverlapSameYear    = "same_year"
	OverlapNearYear    = "within_5_years"
	OverlapSamePlace   = "same_place"
	OverlapUnknownYear = "same_place_unknown_year"
)

// Associate is one scored candidate.
type Associate struct {
	storage.Summary
	Strength             float64   `json:"association_strength"`
	Overlaps             []Overlap `json:"overlapping_events"`
	LifespanOverlapYears int       `json:"lifespan_overlap_years"`
}

// Stats reports what the search looked at.
type Stats struct {
	CandidatesScanned int `json:"candidates_scanned"`
	RelativesFiltered int `json:"relatives_filtered"`
}

// ResultSet is a ranked associate list for one focal individual.
type ResultSet struct {
	Individual storage.Summary `json:"individual"`
	Associates []Associate     `json:"associates"`
	Stats      Stats           `json:"stats"`
}

// Scorer runs associate searches over one index snapshot.
type Scorer struct {
	idx     *index.Index
	weights Weights
}

// NewScorer builds a Scorer. Zero-valued weights mean the defaults.
func NewScorer(idx *index.Index, weights Weights) *Scorer {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Scorer{idx: idx, weights: weights}
}

type placedEvent struct {
	eventType  string
	year       int
	hasYear    bool
	place      string
	normalized string
}

// Find ranks candidate associates of q.ID.
func (s *Scorer) Find(ctx context.Context, q Query) (*ResultSet, error) {
	focal := s.idx.Individual(q.ID)
	if focal == nil {
		return nil, fmt.Errorf("individual %s: %w", q.ID, storage.ErrNotFound)
	}

	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxResults {
		maxResults = MaxResults
	}

	result := &ResultSet{Individual: focal.Summary()}

	focalEvents := s.filterByYears(s.placedEvents(focal), q.StartYear, q.EndYear)
	if q.Place != "" {
		placeNorm := s.idx.Matcher().Normalize(q.Place)
		kept := focalEvents[:0]
		for _, ev := range focalEvents {
			if s.idx.Matcher().SameAt(ev.normalized, placeNorm, placeMatchThreshold) {
				kept = append(kept, ev)
			}
		}
		focalEvents = kept
	}
	if len(focalEvents) == 0 {
		return result, nil
	}

	candidateIDs, err := s.gatherCandidates(ctx, focalEvents, q.ID)
	if err != nil {
		return nil, err
	}

	var relatives map[storage.IndividualID]struct{}
	if q.ExcludeRelatives {
		relatives, err = s.relativeSet(ctx, q.ID)
		if err != nil {
			return nil, err
		}
	}

	focalBirth, focalDeath := lifespan(focal)

	var scored []Associate
	for _, candID := range candidateIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Stats.CandidatesScanned++

		if q.ExcludeRelatives {
			if _, related := relatives[candID]; related {
				result.Stats.RelativesFiltered++
				continue
			}
		}

		cand := s.idx.Individual(candID)
		if cand == nil {
			continue
		}
		candEvents := s.filterByYears(s.placedEvents(cand), q.StartYear, q.EndYear)
		if len(candEvents) == 0 {
			continue
		}

		candBirth, candDeath := lifespan(cand)
		strength, overlaps, overlapYears := s.score(focalEvents, candEvents, focalBirth, focalDeath, candBirth, candDeath)
		if strength <= 0 || len(overlaps) == 0 {
			continue
		}
		if len(overlaps) > maxOverlapsReported {
			overlaps = overlaps[:maxOverlapsReported]
		}
		scored = append(scored, Associate{
			Summary:              cand.Summary(),
			Strength:             strength,
			Overlaps:             overlaps,
			LifespanOverlapYears: overlapYears,
		})
	}

	// Normalize to [0, 1] across the result set, then rank.
	maxStrength := 0.0
	for _, a := range scored {
		if a.Strength > maxStrength {
			maxStrength = a.Strength
		}
	}
	if maxStrength > 0 {
		for i := range scored {
			scored[i].Strength = scored[i].Strength / maxStrength
		}
	}
	sort.Slice(scored, func(a, b int) bool {
		if scored[a].Strength != scored[b].Strength {
			return scored[a].Strength > scored[b].Strength
		}
		return scored[a].ID < scored[b].ID
	})
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	result.Associates = scored
	return result, nil
}

// placedEvents flattens birth, death and life events that carry a place.
func (s *Scorer) placedEvents(indi *storage.Individual) []placedEvent {
	matcher := s.idx.Matcher()
	var out []placedEvent
	add := func(eventType string, date storage.Date, place string) {
		if place == "" {
			return
		}
		out = append(out, placedEvent{
			eventType:  eventType,
			year:       date.Year,
			hasYear:    date.Year != 0,
			place:      place,
			normalized: matcher.Normalize(place),
		})
	}
	add(storage.EventBirth, indi.BirthDate, indi.BirthPlace)
	add(storage.EventDeath, indi.DeathDate, indi.DeathPlace)
	for _, ev := range indi.Events {
		add(ev.Type, ev.Date, ev.Place)
	}
	return out
}

func (s *Scorer) filterByYears(events []placedEvent, startYear, endYear int) []placedEvent {
	if startYear == 0 && endYear == 0 {
		return events
	}
	kept := events[:0]
	for _, ev := range events {
		if ev.hasYear {
			if startYear != 0 && ev.year < startYear {
				continue
			}
			if endYear != 0 && ev.year > endYear {
				continue
			}
		}
		kept = append(kept, ev)
	}
	return kept
}

// gatherCandidates scans the place index for individuals whose places
// fuzzy-match any focal place.
func (s *Scorer) gatherCandidates(ctx context.Context, focalEvents []placedEvent, selfID storage.IndividualID) ([]storage.IndividualID, error) {
	matcher := s.idx.Matcher()
	focalPlaces := map[string]struct{}{}
	for _, ev := range focalEvents {
		focalPlaces[ev.normalized] = struct{}{}
	}

	seen := map[storage.IndividualID]struct{}{selfID: {}}
	var out []storage.IndividualID
	for _, indexed := range s.idx.NormalizedPlaces() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matched := false
		for focalPlace := range focalPlaces {
			if matcher.SameAt(focalPlace, indexed, placeMatchThreshold) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, id := range s.idx.ByNormalizedPlace(indexed) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out, nil
}

func (s *Scorer) score(focalEvents, candEvents []placedEvent, focalBirth, focalDeath, candBirth, candDeath int) (float64, []Overlap, int) {
	matcher := s.idx.Matcher()
	strength := 0.0
	var overlaps []Overlap
	matchedPlaces := map[string]struct{}{}

	for _, fe := range focalEvents {
		for _, ce := range candEvents {
			if !matcher.SameAt(fe.normalized, ce.normalized, placeMatchThreshold) {
				continue
			}
			overlap := Overlap{
				FocalEvent:     fe.eventType,
				FocalPlace:     fe.place,
				CandidateEvent: ce.eventType,
				CandidatePlace: ce.place,
			}
			switch {
			case fe.hasYear && ce.hasYear:
				overlap.FocalYear = fe.year
				overlap.CandidateYear = ce.year
				diff := fe.year - ce.year
				if diff < 0 {
					diff = -diff
				}
				switch {
				case diff == 0:
					strength += s.weights.SameYear
					overlap.Kind = OverlapSameYear
				case diff <= 5:
					strength += s.weights.NearYear
					overlap.Kind = OverlapNearYear
				default:
					strength += s.weights.SamePlaceOnly
					overlap.Kind = OverlapSamePlace
				}
			default:
				strength += s.weights.UnknownYear
				overlap.Kind = OverlapUnknownYear
			}
			overlaps = append(overlaps, overlap)
			matchedPlaces[fe.normalized] = struct{}{}
		}
	}

	if extra := len(matchedPlaces) - 1; extra > 0 {
		strength += s.weights.ExtraPlace * float64(extra)
	}

	overlapYears, ok := lifespanOverlap(focalBirth, focalDeath, candBirth, candDeath)
	if ok && overlapYears > 0 {
		fraction := float64(overlapYears) / fullOverlapYears
		if fraction > 1 {
			fraction = 1
		}
		strength *= 1 + s.weights.LifespanOverlap*fraction
	}
	return strength, overlaps, overlapYears
}

// relativeSet collects known blood and marriage relatives: ancestors and
// their spouses, descendants and their spouses, own spouses, children and
// siblings.
func (s *Scorer) relativeSet(ctx context.Context, id storage.IndividualID) (map[storage.IndividualID]struct{}, error) {
	relatives := map[storage.IndividualID]struct{}{id: {}}

	ancestors, err := kinship.BuildAncestorSet(ctx, s.idx, id, relativeSearchDepth)
	if err != nil {
		return nil, err
	}
	for ancestorID := range ancestors {
		relatives[ancestorID] = struct{}{}
	}

	// Siblings, own spouses and children.
	for _, fam := range s.idx.ParentFamilies(id) {
		for _, childID := range fam.Children {
			relatives[childID] = struct{}{}
		}
	}

	// Ancestors' spouses.
	for ancestorID := range ancestors {
		for _, fam := range s.idx.SpouseFamilies(ancestorID) {
			for _, parentID := range fam.Parents() {
				relatives[parentID] = struct{}{}
			}
		}
	}

	// Descendants with their spouses, bounded depth.
	visited := map[storage.IndividualID]struct{}{}
	var descend func(current storage.IndividualID, depth int) error
	descend = func(current storage.IndividualID, depth int) error {
		if depth <= 0 {
			return nil
		}
		if _, dup := visited[current]; dup {
			return nil
		}
		visited[current] = struct{}{}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, fam := range s.idx.SpouseFamilies(current) {
			for _, parentID := range fam.Parents() {
				relatives[parentID] = struct{}{}
			}
			for _, childID := range fam.Children {
				relatives[childID] = struct{}{}
				if err := descend(childID, depth-1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := descend(id, relativeSearchDepth); err != nil {
		return nil, err
	}
	return relatives, nil
}

func lifespan(indi *storage.Individual) (int, int) {
	return indi.BirthYear(), indi.DeathYear()
}

// lifespanOverlap estimates the overlapping years of two lives, assuming an
// 80-year lifespan when a birth or death year is missing. ok is false when
// either side has no dates at all.
func lifespanOverlap(birth1, death1, birth2, death2 int) (int, bool) {
	if birth1 == 0 && death1 == 0 {
		return 0, false
	}
	if birth2 == 0 && death2 == 0 {
		return 0, false
	}

	if death1 == 0 {
		death1 = birth1 + estimatedLifespanYears
	}
	if birth1 == 0 {
		birth1 = death1 - estimatedLifespanYears
	}
	if death2 == 0 {
		death2 = birth2 + estimatedLifespanYears
	}
	if birth2 == 0 {
		birth2 = death2 - estimatedLifespanYears
	}

	start := birth1
	if birth2 > start {
		start = birth2
	}
	end := death1
	if death2 < end {
		end = death2
	}
	if end > start {
		return end - start, true
	}
	return 0, true
}
