// Package place provides place-name normalization and fuzzy matching.
//
// Historical place names are messy: abbreviations ("St.", "Co."), diacritics,
// spelling drift, and wholesale renames ("Kristiania" -> "Oslo"). The Matcher
// normalizes place strings and scores similarity between a query and indexed
// place tokens using edit-distance and phonetic comparison, returning ranked
// candidates with a confidence in [0, 1].
//
// A query with no candidate above the minimum confidence yields an empty
// result set, never an error.
package place

import (
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Strategy identifies which matching strategy produced a candidate.
type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategyNormalized Strategy = "normalized"
	StrategyFuzzy      Strategy = "fuzzy"
	StrategyHistorical Strategy = "historical"
	StrategyPhonetic   Strategy = "phonetic"
)

// Base confidences per strategy. Fuzzy candidates carry their similarity
// ratio instead.
const (
	scoreExact      = 1.0
	scoreNormalized = 0.95
	scoreHistorical = 0.80
	scorePhonetic   = 0.60
)

// DefaultThreshold is the minimum confidence for fuzzy candidates.
const DefaultThreshold = 0.70

// Candidate is a scored place match.
type Candidate struct {
	Place    string   `json:"place"`
	Score    float64  `json:"score"`
	Strategy Strategy `json:"strategy"`
}

// Config overrides the Matcher's built-in tables.
type Config struct {
	// Threshold is the minimum confidence for fuzzy matches. Zero means
	// DefaultThreshold.
	Threshold float64 `yaml:"threshold"`

	// Abbreviations maps abbreviation -> expansion, merged over the
	// built-in table.
	Abbreviations map[string]string `yaml:"abbreviations"`

	// HistoricalAliases maps old name -> current name, merged over the
	// built-in table. Aliases apply in both directions.
	HistoricalAliases map[string]string `yaml:"historical_aliases"`
}

// Matcher normalizes and scores place names. Immutable after construction,
// safe for concurrent use.
type Matcher struct {
	threshold     float64
	abbreviations []abbrevPair
	aliases       map[string][]string // normalized token -> variants, bidirectional
}

type abbrevPair struct {
	abbrev, full string
}

// NewMatcher builds a Matcher from the built-in tables merged with cfg.
// A nil cfg uses the defaults unchanged.
func NewMatcher(cfg *Config) *Matcher {
	abbrevs := make(map[string]string, len(defaultAbbreviations))
	for k, v := range defaultAbbreviations {
		abbrevs[k] = v
	}
	aliases := make(map[string]string, len(defaultHistoricalNames))
	for k, v := range defaultHistoricalNames {
		aliases[k] = v
	}
	threshold := DefaultThreshold
	if cfg != nil {
		if cfg.Threshold > 0 {
			threshold = cfg.Threshold
		}
		for k, v := range cfg.Abbreviations {
			abbrevs[strings.ToLower(k)] = strings.ToLower(v)
		}
		for k, v := range cfg.HistoricalAliases {
			aliases[strings.ToLower(k)] = strings.ToLower(v)
		}
	}

	m := &Matcher{
		threshold: threshold,
		aliases:   make(map[string][]string, len(aliases)*2),
	}
	// Longer abbreviations replace first so "st." wins over "st ".
	for abbrev, full := range abbrevs {
		m.abbreviations = append(m.abbreviations, abbrevPair{abbrev, full})
	}
	sort.Slice(m.abbreviations, func(a, b int) bool {
		if len(m.abbreviations[a].abbrev) != len(m.abbreviations[b].abbrev) {
			return len(m.abbreviations[a].abbrev) > len(m.abbreviations[b].abbrev)
		}
		return m.abbreviations[a].abbrev < m.abbreviations[b].abbrev
	})
	for old, current := range aliases {
		m.aliases[old] = append(m.aliases[old], current)
		m.aliases[current] = append(m.aliases[current], old)
	}
	return m
}

// Threshold returns the matcher's minimum fuzzy confidence.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Normalize lowercases, folds diacritics, expands abbreviations and
// collapses whitespace.
func (m *Matcher) Normalize(place string) string {
	result := foldDiacritics(strings.ToLower(strings.TrimSpace(place)))
	for _, pair := range m.abbreviations {
		result = strings.ReplaceAll(result, pair.abbrev, pair.full)
	}
	return strings.Join(strings.Fields(result), " ")
}

// Components splits a place string into its comma-separated parts,
// most specific first (typically city, county, state, country).
func Components(place string) []string {
	parts := strings.Split(place, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ID returns a stable identifier for a place, derived from its normalized
// form. Two spellings that normalize identically share an ID.
func (m *Matcher) ID(place string) string {
	sum := blake2b.Sum256([]byte(m.Normalize(place)))
	return hex.EncodeToString(sum[:6])
}

// HistoricalVariants returns known historical renames for any token of the
// place string, in both directions (old -> new and new -> old).
func (m *Matcher) HistoricalVariants(place string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(token string) {
		for _, variant := range m.aliases[token] {
			if _, dup := seen[variant]; !dup {
				seen[variant] = struct{}{}
				out = append(out, variant)
			}
		}
	}
	normalized := m.Normalize(place)
	for _, word := range strings.Fields(normalized) {
		add(word)
	}
	for _, comp := range Components(normalized) {
		add(comp)
	}
	sort.Strings(out)
	return out
}

// Similarity returns an edit-distance similarity ratio in [0, 1] between
// two already-normalized strings.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// Same reports whether two normalized place strings refer to the same place:
// exact match, similarity above the threshold, or containment (handles
// "pittsburgh" vs "pittsburgh, pennsylvania").
func (m *Matcher) Same(aNormalized, bNormalized string) bool {
	return m.SameAt(aNormalized, bNormalized, m.threshold)
}

// SameAt is Same with an explicit threshold.
func (m *Matcher) SameAt(aNormalized, bNormalized string, threshold float64) bool {
	if aNormalized == "" || bNormalized == "" {
		return false
	}
	if aNormalized == bNormalized {
		return true
	}
	if Similarity(aNormalized, bNormalized) >= threshold {
		return true
	}
	return strings.Contains(aNormalized, bNormalized) || strings.Contains(bNormalized, aNormalized)
}

// Match scores the query against candidate place strings.
//
// Strategies, strongest first:
//  1. exact substring of the candidate
//  2. normalized substring (abbreviation/diacritic tolerance)
//  3. fuzzy edit distance (typo tolerance), confirmed by Jaro-Winkler
//  4. historical rename variants
//  5. phonetic similarity of the leading token
//
// Each candidate keeps its single best score; results below the threshold
// are dropped, and the rest are sorted by score descending then
// alphabetically for determinism.
func (m *Matcher) Match(query string, candidates []string) []Candidate {
	queryLower := strings.ToLower(query)
	queryNorm := m.Normalize(query)
	queryPhonetic := leadingMetaphone(queryNorm)
	variants := m.HistoricalVariants(query)

	best := make(map[string]Candidate, len(candidates))
	record := func(place string, score float64, strategy Strategy) {
		if prev, ok := best[place]; ok && prev.Score >= score {
			return
		}
		best[place] = Candidate{Place: place, Score: score, Strategy: strategy}
	}

	for _, candidate := range candidates {
		candLower := strings.ToLower(candidate)
		candNorm := m.Normalize(candidate)

		if strings.Contains(candLower, queryLower) {
			record(candidate, scoreExact, StrategyExact)
			continue
		}
		if queryNorm != "" && strings.Contains(candNorm, queryNorm) {
			record(candidate, scoreNormalized, StrategyNormalized)
			continue
		}
		sim := Similarity(queryNorm, candNorm)
		if sim >= m.threshold && JaroWinkler(queryNorm, candNorm) >= m.threshold {
			record(candidate, sim, StrategyFuzzy)
		}
		for _, variant := range variants {
			if strings.Contains(candNorm, variant) {
				record(candidate, scoreHistorical, StrategyHistorical)
				break
			}
		}
		if queryPhonetic != "" && leadingMetaphone(candNorm) == queryPhonetic {
			record(candidate, scorePhonetic, StrategyPhonetic)
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		if c.Score >= scorePhonetic {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Place < out[b].Place
	})
	return out
}

// Levenshtein computes the edit distance between two strings.
func Levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = minInt(
				prev[j]+1,
				minInt(curr[j-1]+1, prev[j-1]+cost),
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// JaroWinkler calculates Jaro-Winkler similarity between two strings.
func JaroWinkler(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	matchWindow := maxInt(len(s1), len(s2))/2 - 1
	if matchWindow < 1 {
		matchWindow = 1
	}

	s1Matches := make([]bool, len(s1))
	s2Matches := make([]bool, len(s2))
	matches := 0
	transpositions := 0

	for i := 0; i < len(s1); i++ {
		start := maxInt(0, i-matchWindow)
		end := minInt(i+matchWindow+1, len(s2))
		for j := start; j < end; j++ {
			if s2Matches[j] || s1[i] != s2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	k := 0
	for i := 0; i < len(s1); i++ {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	jaro := (float64(matches)/float64(len(s1)) +
		float64(matches)/float64(len(s2)) +
		float64(matches-transpositions/2)/float64(matches)) / 3.0

	prefix := 0
	for i := 0; i < minInt(len(s1), len(s2)) && i < 4; i++ {
		if s1[i] == s2[i] {
			prefix++
		} else {
			break
		}
	}

	return jaro + float64(prefix)*0.1*(1.0-jaro)
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

func foldDiacritics(s string) string {
	folded, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return folded
}

// leadingMetaphone returns the metaphone code of the first word of the
// first comma component (usually the city name).
func leadingMetaphone(place string) string {
	head := strings.TrimSpace(strings.Split(place, ",")[0])
	words := strings.Fields(head)
	if len(words) == 0 {
		return ""
	}
	return Metaphone(words[0])
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
