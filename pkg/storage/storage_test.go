package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIDs(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"@I123@", "@I123@"},
		{"I123", "@I123@"},
		{"  @I123@ ", "@I123@"},
		{"@@I123@@", "@I123@"},
		{"", ""},
		{"@@", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, IndividualID(tt.expected), NormalizeIndividualID(tt.in), "input %q", tt.in)
	}
	assert.Equal(t, FamilyID("@F9@"), NormalizeFamilyID("F9"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw     string
		year    int
		endYear int
	}{
		{"12 MAR 1901", 1901, 0},
		{"1901", 1901, 0},
		{"BET 1850 AND 1855", 1850, 1855},
		{"1901-1880", 1901, 0}, // second year not later, no range
		{"ABT 1742", 1742, 0},
		{"MAR", 0, 0},
		{"", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d := ParseDate(tt.raw)
			assert.Equal(t, tt.year, d.Year)
			assert.Equal(t, tt.endYear, d.EndYear)
			assert.Equal(t, tt.raw, d.Raw)
		})
	}
}

func TestDateString(t *testing.T) {
	assert.Equal(t, "12 MAR 1901", Date{Raw: "12 MAR 1901", Year: 1901}.String())
	assert.Equal(t, "1901", Date{Year: 1901}.String())
	assert.Equal(t, "", Date{}.String())
	assert.True(t, Date{}.IsZero())
	assert.False(t, Date{Year: 1901}.IsZero())
}

func TestFullNameAndPlaces(t *testing.T) {
	indi := &Individual{
		ID: "@I1@", GivenName: "Alice", Surname: "Miller",
		BirthPlace: "Cork, Ireland",
		DeathPlace: "Boston, Massachusetts",
		Events: []Event{
			{Type: EventResidence, Place: "Cork, Ireland"},
			{Type: EventCensus, Place: "Boston, Massachusetts"},
			{Type: EventOccupation},
		},
	}
	assert.Equal(t, "Alice Miller", indi.FullName())
	assert.Equal(t, "Alice", (&Individual{GivenName: "Alice"}).FullName())

	assert.Equal(t, []string{"Cork, Ireland", "Boston, Massachusetts"}, indi.Places(),
		"in record order, duplicates removed")
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	indi := &Individual{
		ID: "@I1@", GivenName: "Alice", Surname: "Miller",
		FamiliesAsChild: []FamilyID{"@F1@"},
	}
	require.NoError(t, store.PutIndividual(indi))
	require.NoError(t, store.PutFamily(&Family{ID: "@F1@", WifeID: "@I1@"}))

	got, err := store.GetIndividual("@I1@")
	require.NoError(t, err)
	assert.Equal(t, "Alice Miller", got.FullName())

	fam, err := store.GetFamily("@F1@")
	require.NoError(t, err)
	assert.Equal(t, IndividualID("@I1@"), fam.WifeID)

	n, err := store.IndividualCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.GetIndividual("@I2@")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	indi := &Individual{ID: "@I1@", GivenName: "Alice", FamiliesAsChild: []FamilyID{"@F1@"}}
	require.NoError(t, store.PutIndividual(indi))

	// Mutating the original after Put must not affect the store.
	indi.GivenName = "Changed"
	indi.FamiliesAsChild[0] = "@F9@"

	got, err := store.GetIndividual("@I1@")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.GivenName)
	assert.Equal(t, FamilyID("@F1@"), got.FamiliesAsChild[0])

	// Mutating a returned record must not affect later reads.
	got.GivenName = "Other"
	again, err := store.GetIndividual("@I1@")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.GivenName)
}

func TestMemoryStoreOrdering(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	for _, id := range []IndividualID{"@I3@", "@I1@", "@I2@"} {
		require.NoError(t, store.PutIndividual(&Individual{ID: id}))
	}
	all, err := store.Individuals()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, IndividualID("@I1@"), all[0].ID)
	assert.Equal(t, IndividualID("@I3@"), all[2].ID)
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.PutIndividual(&Individual{ID: "@I1@"}), ErrStoreClosed)
	_, err := store.GetIndividual("@I1@")
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.Individuals()
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestMemoryStoreInvalidID(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	assert.ErrorIs(t, store.PutIndividual(nil), ErrInvalidID)
	assert.ErrorIs(t, store.PutIndividual(&Individual{}), ErrInvalidID)
	assert.ErrorIs(t, store.PutFamily(&Family{}), ErrInvalidID)
}
