package kindred

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/place"
	"github.com/orneryd/kindred/pkg/storage"
)

// Search limits. A zero limit means the default, anything above the
// maximum is clamped.
const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

func searchLimit(requested int) int {
	if requested <= 0 {
		return DefaultSearchLimit
	}
	if requested > MaxSearchLimit {
		return MaxSearchLimit
	}
	return requested
}

// SearchIndividuals finds individuals whose name contains the query,
// case-insensitive. Name variants are searched too.
func (e *Engine) SearchIndividuals(ctx context.Context, query string, limit int) ([]storage.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()
	limit = searchLimit(limit)
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var out []storage.Summary
	for _, id := range idx.IndividualIDs() {
		indi := idx.Individual(id)
		matched := strings.Contains(strings.ToLower(indi.FullName()), needle)
		for _, variant := range indi.NameVariants {
			if matched {
				break
			}
			matched = strings.Contains(strings.ToLower(variant), needle)
		}
		if !matched {
			continue
		}
		out = append(out, indi.Summary())
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SearchByBirth finds individuals by birth year and/or birth place. A
// non-zero year matches births within yearRange years of it (default 5);
// the place filter is a case-insensitive substring of the birth place.
func (e *Engine) SearchByBirth(ctx context.Context, year, yearRange int, birthPlace string, limit int) ([]storage.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()
	limit = searchLimit(limit)
	if yearRange <= 0 {
		yearRange = 5
	}

	var candidates []storage.IndividualID
	if year != 0 {
		candidates = idx.ByBirthYearRange(year-yearRange, year+yearRange)
	} else {
		candidates = idx.IndividualIDs()
	}

	placeNeedle := strings.ToLower(strings.TrimSpace(birthPlace))
	var out []storage.Summary
	for _, id := range candidates {
		indi := idx.Individual(id)
		if indi == nil {
			continue
		}
		if placeNeedle != "" && !strings.Contains(strings.ToLower(indi.BirthPlace), placeNeedle) {
			continue
		}
		out = append(out, indi.Summary())
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// PlaceMatch is one fuzzy-matched place with the people recorded there.
type PlaceMatch struct {
	place.Candidate
	Individuals []storage.Summary `json:"individuals"`
}

// SearchByPlace finds individuals by place using the full matching ladder:
// exact substring, normalized, fuzzy, historical alias, phonetic. Results
// follow the match ranking; limit caps the total individuals returned.
func (e *Engine) SearchByPlace(ctx context.Context, query string, limit int) ([]PlaceMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()
	matcher := idx.Matcher()
	limit = searchLimit(limit)

	var out []PlaceMatch
	total := 0
	seen := map[storage.IndividualID]struct{}{}
	for _, candidate := range matcher.Match(query, idx.PlaceNames()) {
		if total >= limit {
			break
		}
		match := PlaceMatch{Candidate: candidate}
		for _, id := range idx.ByNormalizedPlace(matcher.Normalize(candidate.Place)) {
			if _, dup := seen[id]; dup {
				continue
			}
			if total >= limit {
				break
			}
			seen[id] = struct{}{}
			match.Individuals = append(match.Individuals, idx.Individual(id).Summary())
			total++
		}
		if len(match.Individuals) > 0 {
			out = append(out, match)
		}
	}
	return out, nil
}

// SimilarPlaces returns all indexed places matching the query, ranked by
// strategy and confidence. Useful for spotting spelling variants.
func (e *Engine) SimilarPlaces(ctx context.Context, query string) ([]place.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()
	return idx.Matcher().Match(query, idx.PlaceNames()), nil
}

// PlaceCount is a place with its occurrence count.
type PlaceCount struct {
	Place string `json:"place"`
	Count int    `json:"count"`
}

// SurnameStats summarizes a surname group.
type SurnameStats struct {
	EarliestBirth int          `json:"earliest_birth,omitempty"`
	LatestBirth   int          `json:"latest_birth,omitempty"`
	CommonPlaces  []PlaceCount `json:"common_places,omitempty"`
	// GenerationEstimate derives from the birth-year span at roughly 25
	// years per generation.
	GenerationEstimate int `json:"generation_estimate"`
}

// SurnameGroup is everyone sharing a surname, with summary statistics.
type SurnameGroup struct {
	Surname string            `json:"surname"`
	Count   int               `json:"count"`
	Members []storage.Summary `json:"members"`
	Spouses []storage.Summary `json:"spouses,omitempty"`
	Stats   SurnameStats      `json:"statistics"`
}

// SurnameGroupFor collects the individuals carrying a surname,
// case-insensitive, optionally with their spouses who married into it.
func (e *Engine) SurnameGroupFor(ctx context.Context, surname string, includeSpouses bool) (*SurnameGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()
	memberIDs := idx.BySurname(surname)

	group := &SurnameGroup{Surname: surname, Count: len(memberIDs)}
	memberSet := make(map[storage.IndividualID]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}

	var birthYears []int
	placeCounts := map[string]int{}
	spouseSeen := map[storage.IndividualID]struct{}{}
	for _, id := range memberIDs {
		indi := idx.Individual(id)
		group.Members = append(group.Members, indi.Summary())
		if year := indi.BirthYear(); year != 0 {
			birthYears = append(birthYears, year)
		}
		if indi.BirthPlace != "" {
			placeCounts[indi.BirthPlace]++
		}
		if !includeSpouses {
			continue
		}
		for _, fam := range idx.SpouseFamilies(id) {
			spouseID := fam.HusbandID
			if fam.HusbandID == id {
				spouseID = fam.WifeID
			}
			if spouseID == "" {
				continue
			}
			if _, member := memberSet[spouseID]; member {
				continue
			}
			if _, dup := spouseSeen[spouseID]; dup {
				continue
			}
			spouseSeen[spouseID] = struct{}{}
			if spouse := idx.Individual(spouseID); spouse != nil {
				group.Spouses = append(group.Spouses, spouse.Summary())
			}
		}
	}
	sort.Slice(group.Spouses, func(a, b int) bool { return group.Spouses[a].ID < group.Spouses[b].ID })

	if len(birthYears) > 0 {
		earliest, latest := birthYears[0], birthYears[0]
		for _, year := range birthYears[1:] {
			if year < earliest {
				earliest = year
			}
			if year > latest {
				latest = year
			}
		}
		group.Stats.EarliestBirth = earliest
		group.Stats.LatestBirth = latest
		group.Stats.GenerationEstimate = (latest-earliest)/25 + 1
	}
	for placeName, count := range placeCounts {
		group.Stats.CommonPlaces = append(group.Stats.CommonPlaces, PlaceCount{Place: placeName, Count: count})
	}
	sort.Slice(group.Stats.CommonPlaces, func(a, b int) bool {
		pa, pb := group.Stats.CommonPlaces[a], group.Stats.CommonPlaces[b]
		if pa.Count != pb.Count {
			return pa.Count > pb.Count
		}
		return pa.Place < pb.Place
	})
	if len(group.Stats.CommonPlaces) > 5 {
		group.Stats.CommonPlaces = group.Stats.CommonPlaces[:5]
	}
	return group, nil
}

// SurnameCount is a surname with its bearer count.
type SurnameCount struct {
	Surname string `json:"surname"`
	Count   int    `json:"count"`
}

// Statistics summarizes the whole tree.
type Statistics struct {
	Individuals        int            `json:"total_individuals"`
	Families           int            `json:"total_families"`
	Males              int            `json:"males"`
	Females            int            `json:"females"`
	UnknownSex         int            `json:"unknown_sex"`
	EarliestBirthYear  int            `json:"earliest_birth_year,omitempty"`
	LatestBirthYear    int            `json:"latest_birth_year,omitempty"`
	UniqueSurnames     int            `json:"unique_surnames"`
	TopSurnames        []SurnameCount `json:"top_surnames,omitempty"`
	Places             int            `json:"places"`
	DanglingReferences int            `json:"dangling_references"`
}

// Stats computes tree-wide statistics from the current snapshot.
func (e *Engine) Stats(ctx context.Context) (*Statistics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()

	stats := &Statistics{
		Individuals:        idx.IndividualCount(),
		Families:           idx.FamilyCount(),
		Places:             len(idx.PlaceNames()),
		DanglingReferences: len(idx.Diagnostics()),
	}
	for _, id := range idx.IndividualIDs() {
		indi := idx.Individual(id)
		switch indi.Sex {
		case storage.SexMale:
			stats.Males++
		case storage.SexFemale:
			stats.Females++
		default:
			stats.UnknownSex++
		}
		if year := indi.BirthYear(); year != 0 {
			if stats.EarliestBirthYear == 0 || year < stats.EarliestBirthYear {
				stats.EarliestBirthYear = year
			}
			if year > stats.LatestBirthYear {
				stats.LatestBirthYear = year
			}
		}
	}

	surnames := idx.Surnames()
	stats.UniqueSurnames = len(surnames)
	for _, surname := range surnames {
		stats.TopSurnames = append(stats.TopSurnames, SurnameCount{
			Surname: surname,
			Count:   len(idx.BySurname(surname)),
		})
	}
	sort.SliceStable(stats.TopSurnames, func(a, b int) bool {
		return stats.TopSurnames[a].Count > stats.TopSurnames[b].Count
	})
	if len(stats.TopSurnames) > 20 {
		stats.TopSurnames = stats.TopSurnames[:20]
	}
	return stats, nil
}

// TimelineEntry is one dated (or undated) event in a person's life.
type TimelineEntry struct {
	Year        int    `json:"year,omitempty"`
	Date        string `json:"date,omitempty"`
	Type        string `json:"type"`
	Place       string `json:"place,omitempty"`
	Description string `json:"description,omitempty"`
}

// Timeline returns an individual's life events in chronological order:
// birth, marriages, recorded events, death. Entries without a year sort
// last, in record order.
func (e *Engine) Timeline(ctx context.Context, id storage.IndividualID) ([]TimelineEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()
	indi := idx.Individual(id)
	if indi == nil {
		return nil, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}

	var entries []TimelineEntry
	if !indi.BirthDate.IsZero() || indi.BirthPlace != "" {
		entries = append(entries, TimelineEntry{
			Year:  indi.BirthYear(),
			Date:  indi.BirthDate.String(),
			Type:  storage.EventBirth,
			Place: indi.BirthPlace,
		})
	}
	for _, fam := range idx.SpouseFamilies(id) {
		if fam.MarriageDate.IsZero() && fam.MarriagePlace == "" {
			continue
		}
		spouseID := fam.HusbandID
		if fam.HusbandID == id {
			spouseID = fam.WifeID
		}
		description := ""
		if spouse := idx.Individual(spouseID); spouse != nil {
			description = "married " + spouse.FullName()
		}
		entries = append(entries, TimelineEntry{
			Year:        fam.MarriageDate.Year,
			Date:        fam.MarriageDate.String(),
			Type:        "MARR",
			Place:       fam.MarriagePlace,
			Description: description,
		})
	}
	for _, ev := range indi.Events {
		entries = append(entries, TimelineEntry{
			Year:        ev.Date.Year,
			Date:        ev.Date.String(),
			Type:        ev.Type,
			Place:       ev.Place,
			Description: ev.Description,
		})
	}
	if !indi.DeathDate.IsZero() || indi.DeathPlace != "" {
		entries = append(entries, TimelineEntry{
			Year:  indi.DeathYear(),
			Date:  indi.DeathDate.String(),
			Type:  storage.EventDeath,
			Place: indi.DeathPlace,
		})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		ya, yb := entries[a].Year, entries[b].Year
		if ya == 0 {
			ya = 9999
		}
		if yb == 0 {
			yb = 9999
		}
		return ya < yb
	})
	return entries, nil
}

// HomePerson returns the configured root individual, or, when none is
// configured, the most connected person in the tree: two points for a
// known parent family, one per grandparent line, one per spouse, one per
// child. Ties go to the smaller ID.
func (e *Engine) HomePerson(ctx context.Context) (*storage.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()

	if e.cfg.HomePerson != "" {
		id := storage.NormalizeIndividualID(e.cfg.HomePerson)
		if indi := idx.Individual(id); indi != nil {
			summary := indi.Summary()
			return &summary, nil
		}
		e.logger.Warn("configured home person not found", "id", e.cfg.HomePerson)
	}

	var bestID storage.IndividualID
	bestScore := -1
	for _, id := range idx.IndividualIDs() {
		score := connectionScore(idx, id)
		if score > bestScore {
			bestScore = score
			bestID = id
		}
	}
	if bestID == "" {
		return nil, fmt.Errorf("home person: %w", storage.ErrNotFound)
	}
	summary := idx.Individual(bestID).Summary()
	return &summary, nil
}

func connectionScore(idx *index.Index, id storage.IndividualID) int {
	score := 0
	if fams := idx.ParentFamilies(id); len(fams) > 0 {
		score += 2
		for _, parent := range idx.Parents(id) {
			if len(idx.ParentFamilies(parent.ID)) > 0 {
				score++
			}
		}
	}
	for _, fam := range idx.SpouseFamilies(id) {
		spouseID := fam.HusbandID
		if fam.HusbandID == id {
			spouseID = fam.WifeID
		}
		if spouseID != "" && idx.Individual(spouseID) != nil {
			score++
		}
		score += len(fam.Children)
	}
	return score
}

// NearbyHit is one place within a search radius and its recorded people.
type NearbyHit struct {
	Place       string            `json:"place"`
	DistanceKm  float64           `json:"distance_km"`
	Individuals []storage.Summary `json:"individuals"`
}

// Nearby finds places within radiusKm of the origin and the individuals
// recorded at each. Places the geocoder cannot resolve are skipped; an
// unresolvable origin yields an empty result, not an error. A zero radius
// means 50 km.
func (e *Engine) Nearby(ctx context.Context, geocoder place.Geocoder, origin string, radiusKm float64, limit int) ([]NearbyHit, error) {
	idx := e.Index()
	limit = searchLimit(limit)
	if radiusKm <= 0 {
		radiusKm = 50
	}

	originCoords, status, err := geocoder.Geocode(ctx, origin)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", origin, err)
	}
	if status != place.GeocodeResolved {
		return nil, nil
	}

	var hits []NearbyHit
	for _, placeName := range idx.PlaceNames() {
		coords, status, err := geocoder.Geocode(ctx, placeName)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", placeName, err)
		}
		if status != place.GeocodeResolved {
			continue
		}
		distance := place.HaversineKm(originCoords, coords)
		if distance > radiusKm {
			continue
		}
		hit := NearbyHit{
			Place:      placeName,
			DistanceKm: math.Round(distance*10) / 10,
		}
		for _, id := range idx.ByNormalizedPlace(idx.Matcher().Normalize(placeName)) {
			hit.Individuals = append(hit.Individuals, idx.Individual(id).Summary())
		}
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].DistanceKm != hits[b].DistanceKm {
			return hits[a].DistanceKm < hits[b].DistanceKm
		}
		return hits[a].Place < hits[b].Place
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
