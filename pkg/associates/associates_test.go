package associates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/storage"
)

// fixture: Frank (@I1@) was born in Springfield in 1850 and lived in Boston
// in 1870. Around him: X1 born the same year, X2 four years later, M1
// sharing both places, U1 with no dates, his son R1, and Z1 far away.
func fixture(t *testing.T) *index.Index {
	t.Helper()
	store := storage.NewMemoryStore()

	springfield := "Springfield, Illinois"
	boston := "Boston, Massachusetts"

	frank := &storage.Individual{
		ID: "@I1@", GivenName: "Frank", Surname: "Field",
		BirthDate: storage.Date{Year: 1850}, BirthPlace: springfield,
		DeathDate: storage.Date{Year: 1910},
		Events: []storage.Event{
			{Type: storage.EventResidence, Date: storage.Date{Year: 1870}, Place: boston},
		},
		FamiliesAsSpouse: []storage.FamilyID{"@F1@"},
	}

	others := []*storage.Individual{
		{
			ID: "@X1@", GivenName: "Xavier", Surname: "One",
			BirthDate: storage.Date{Year: 1850}, BirthPlace: springfield,
			DeathDate: storage.Date{Year: 1920},
		},
		{
			ID: "@X2@", GivenName: "Xena", Surname: "Two",
			BirthDate: storage.Date{Year: 1854}, BirthPlace: springfield,
			DeathDate: storage.Date{Year: 1920},
		},
		{
			ID: "@M1@", GivenName: "Multi", Surname: "Place",
			BirthDate: storage.Date{Year: 1850}, BirthPlace: springfield,
			DeathDate: storage.Date{Year: 1915},
			Events: []storage.Event{
				{Type: storage.EventResidence, Date: storage.Date{Year: 1870}, Place: boston},
			},
		},
		{
			ID: "@U1@", GivenName: "Undated", Surname: "Person",
			BirthPlace: springfield,
		},
		{
			ID: "@R1@", GivenName: "Robert", Surname: "Field",
			BirthDate: storage.Date{Year: 1875}, BirthPlace: springfield,
			DeathDate:       storage.Date{Year: 1950},
			FamiliesAsChild: []storage.FamilyID{"@F1@"},
		},
		{
			ID: "@Z1@", GivenName: "Zoe", Surname: "Far",
			BirthDate: storage.Date{Year: 1850}, BirthPlace: "Portland, Oregon",
		},
	}

	require.NoError(t, store.PutIndividual(frank))
	for _, indi := range others {
		require.NoError(t, store.PutIndividual(indi))
	}
	require.NoError(t, store.PutFamily(&storage.Family{
		ID: "@F1@", HusbandID: "@I1@", Children: []storage.IndividualID{"@R1@"},
	}))

	idx, err := index.Build(store, index.Options{})
	require.NoError(t, err)
	return idx
}

func find(t *testing.T, idx *index.Index, q Query) *ResultSet {
	t.Helper()
	result, err := NewScorer(idx, Weights{}).Find(context.Background(), q)
	require.NoError(t, err)
	return result
}

func byID(result *ResultSet) map[storage.IndividualID]Associate {
	out := map[storage.IndividualID]Associate{}
	for _, a := range result.Associates {
		out[a.ID] = a
	}
	return out
}

func TestFindRanksByOverlap(t *testing.T) {
	idx := fixture(t)

	result := find(t, idx, Query{ID: "@I1@", ExcludeRelatives: true})
	require.Len(t, result.Associates, 4)

	// Two shared places beat one, same year beats near year beats
	// unknown year.
	assert.Equal(t, storage.IndividualID("@M1@"), result.Associates[0].ID)
	assert.Equal(t, storage.IndividualID("@X1@"), result.Associates[1].ID)
	assert.Equal(t, storage.IndividualID("@X2@"), result.Associates[2].ID)
	assert.Equal(t, storage.IndividualID("@U1@"), result.Associates[3].ID)

	// Normalized across the result set.
	assert.Equal(t, 1.0, result.Associates[0].Strength)
	for _, a := range result.Associates[1:] {
		assert.Less(t, a.Strength, 1.0)
		assert.Greater(t, a.Strength, 0.0)
	}
}

func TestSameYearBeatsNearYear(t *testing.T) {
	idx := fixture(t)

	associates := byID(find(t, idx, Query{ID: "@I1@", ExcludeRelatives: true}))
	x1, x2 := associates["@X1@"], associates["@X2@"]

	assert.Greater(t, x1.Strength, x2.Strength,
		"an exact year match must outrank a four-year gap")
	require.Len(t, x1.Overlaps, 1)
	assert.Equal(t, OverlapSameYear, x1.Overlaps[0].Kind)
	assert.Equal(t, OverlapNearYear, x2.Overlaps[0].Kind)
	assert.Equal(t, 1850, x1.Overlaps[0].FocalYear)
	assert.Equal(t, 1854, x2.Overlaps[0].CandidateYear)
}

func TestRelativeExclusion(t *testing.T) {
	idx := fixture(t)

	excluded := find(t, idx, Query{ID: "@I1@", ExcludeRelatives: true})
	assert.NotContains(t, byID(excluded), storage.IndividualID("@R1@"))
	assert.Equal(t, 5, excluded.Stats.CandidatesScanned)
	assert.Equal(t, 1, excluded.Stats.RelativesFiltered)

	included := find(t, idx, Query{ID: "@I1@"})
	assert.Contains(t, byID(included), storage.IndividualID("@R1@"))
	assert.Zero(t, included.Stats.RelativesFiltered)
}

func TestDistantPlaceIgnored(t *testing.T) {
	idx := fixture(t)

	result := find(t, idx, Query{ID: "@I1@"})
	assert.NotContains(t, byID(result), storage.IndividualID("@Z1@"))
}

func TestPlaceFilter(t *testing.T) {
	idx := fixture(t)

	result := find(t, idx, Query{ID: "@I1@", Place: "Boston", ExcludeRelatives: true})
	associates := byID(result)
	assert.Contains(t, associates, storage.IndividualID("@M1@"))
	assert.NotContains(t, associates, storage.IndividualID("@X1@"))

	require.Len(t, associates["@M1@"].Overlaps, 1)
	assert.Equal(t, "Boston, Massachusetts", associates["@M1@"].Overlaps[0].FocalPlace)
}

func TestYearFilter(t *testing.T) {
	idx := fixture(t)

	result := find(t, idx, Query{ID: "@I1@", EndYear: 1852, ExcludeRelatives: true})
	associates := byID(result)
	assert.Contains(t, associates, storage.IndividualID("@X1@"))
	assert.NotContains(t, associates, storage.IndividualID("@X2@"),
		"born outside the year window")
	// Events without a year pass the filter.
	assert.Contains(t, associates, storage.IndividualID("@U1@"))
}

func TestUnknownYearContribution(t *testing.T) {
	idx := fixture(t)

	associates := byID(find(t, idx, Query{ID: "@I1@", ExcludeRelatives: true}))
	u1 := associates["@U1@"]
	require.Len(t, u1.Overlaps, 1)
	assert.Equal(t, OverlapUnknownYear, u1.Overlaps[0].Kind)
	assert.Zero(t, u1.LifespanOverlapYears)
}

func TestMaxResults(t *testing.T) {
	idx := fixture(t)

	result := find(t, idx, Query{ID: "@I1@", ExcludeRelatives: true, MaxResults: 2})
	assert.Len(t, result.Associates, 2)
	assert.Equal(t, storage.IndividualID("@M1@"), result.Associates[0].ID)
}

func TestFindErrors(t *testing.T) {
	idx := fixture(t)

	_, err := NewScorer(idx, Weights{}).Find(context.Background(), Query{ID: "@I999@"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// A focal individual with no placed events yields an empty set.
	result := find(t, idx, Query{ID: "@I1@", Place: "Antarctica"})
	assert.Empty(t, result.Associates)
}

func TestLifespanOverlap(t *testing.T) {
	tests := []struct {
		name                           string
		birth1, death1, birth2, death2 int
		expected                       int
		ok                             bool
	}{
		{"full overlap", 1850, 1910, 1850, 1920, 60, true},
		{"partial overlap", 1850, 1910, 1875, 1950, 35, true},
		{"no overlap", 1800, 1850, 1875, 1950, 0, true},
		{"estimated death", 1850, 0, 1850, 1920, 70, true},
		{"estimated birth", 0, 1910, 1850, 1920, 60, true},
		{"one side unknown", 0, 0, 1850, 1920, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			years, ok := lifespanOverlap(tt.birth1, tt.death1, tt.birth2, tt.death2)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, years)
		})
	}
}
