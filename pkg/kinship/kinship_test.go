package kinship

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/storage"
)

// fixture builds four generations. B1 and C1 are first cousins through
// G1 x G2, and they marry, so their children A1/A2 have a collapsed
// pedigree. F5 gives A1 a half-sibling, F6/F7 add cousin lines, and U1/U2
// are a couple unrelated to everyone else.
func fixture(t *testing.T) *index.Index {
	t.Helper()
	store := storage.NewMemoryStore()

	people := []struct {
		id                string
		given             string
		asChild, asSpouse []storage.FamilyID
	}{
		{"@G1@", "George", nil, []storage.FamilyID{"@F1@"}},
		{"@G2@", "Gina", nil, []storage.FamilyID{"@F1@"}},
		{"@P1@", "Peter", []storage.FamilyID{"@F1@"}, []storage.FamilyID{"@F2@"}},
		{"@P2@", "Patricia", []storage.FamilyID{"@F1@"}, []storage.FamilyID{"@F3@"}},
		{"@P3@", "Paula", nil, []storage.FamilyID{"@F2@"}},
		{"@P4@", "Paul", nil, []storage.FamilyID{"@F3@"}},
		{"@B1@", "Bob", []storage.FamilyID{"@F2@"}, []storage.FamilyID{"@F4@", "@F5@"}},
		{"@B2@", "Bill", []storage.FamilyID{"@F2@"}, []storage.FamilyID{"@F6@"}},
		{"@C1@", "Carol", []storage.FamilyID{"@F3@"}, []storage.FamilyID{"@F4@"}},
		{"@A1@", "Alice", []storage.FamilyID{"@F4@"}, []storage.FamilyID{"@F7@"}},
		{"@A2@", "Amy", []storage.FamilyID{"@F4@"}, nil},
		{"@A3@", "Arthur", []storage.FamilyID{"@F5@"}, nil},
		{"@D1@", "Dora", []storage.FamilyID{"@F6@"}, nil},
		{"@E1@", "Edith", []storage.FamilyID{"@F7@"}, nil},
		{"@U1@", "Ulf", nil, []storage.FamilyID{"@F8@"}},
		{"@U2@", "Una", nil, []storage.FamilyID{"@F8@"}},
	}
	for _, p := range people {
		require.NoError(t, store.PutIndividual(&storage.Individual{
			ID:               storage.IndividualID(p.id),
			GivenName:        p.given,
			FamiliesAsChild:  p.asChild,
			FamiliesAsSpouse: p.asSpouse,
		}))
	}

	families := []*storage.Family{
		{ID: "@F1@", HusbandID: "@G1@", WifeID: "@G2@", Children: []storage.IndividualID{"@P1@", "@P2@"}},
		{ID: "@F2@", HusbandID: "@P1@", WifeID: "@P3@", Children: []storage.IndividualID{"@B1@", "@B2@"}},
		{ID: "@F3@", HusbandID: "@P4@", WifeID: "@P2@", Children: []storage.IndividualID{"@C1@"}},
		{ID: "@F4@", HusbandID: "@B1@", WifeID: "@C1@", Children: []storage.IndividualID{"@A1@", "@A2@"}},
		{ID: "@F5@", HusbandID: "@B1@", Children: []storage.IndividualID{"@A3@"}},
		{ID: "@F6@", HusbandID: "@B2@", Children: []storage.IndividualID{"@D1@"}},
		{ID: "@F7@", WifeID: "@A1@", Children: []storage.IndividualID{"@E1@"}},
		{ID: "@F8@", HusbandID: "@U1@", WifeID: "@U2@"},
	}
	for _, fam := range families {
		require.NoError(t, store.PutFamily(fam))
	}

	idx, err := index.Build(store, index.Options{})
	require.NoError(t, err)
	return idx
}

func resolve(t *testing.T, idx *index.Index, id1, id2 storage.IndividualID) *Result {
	t.Helper()
	result, err := Resolve(context.Background(), idx, id1, id2, 20)
	require.NoError(t, err)
	return result
}

func TestBuildAncestorSet(t *testing.T) {
	idx := fixture(t)

	set, err := BuildAncestorSet(context.Background(), idx, "@A1@", 10)
	require.NoError(t, err)

	assert.Equal(t, []int{0}, set["@A1@"], "self at distance zero")
	assert.Equal(t, []int{1}, set["@B1@"])
	assert.Equal(t, []int{2}, set["@P1@"])
	assert.Equal(t, []int{3, 3}, set["@G1@"], "collapsed pedigree records both paths")
	assert.NotContains(t, set, storage.IndividualID("@U1@"))

	assert.Equal(t, 3, set.Min("@G1@"))
	assert.Equal(t, -1, set.Min("@U1@"))
}

func TestBuildAncestorSetDepthBound(t *testing.T) {
	idx := fixture(t)

	set, err := BuildAncestorSet(context.Background(), idx, "@A1@", 2)
	require.NoError(t, err)
	assert.Contains(t, set, storage.IndividualID("@P1@"))
	assert.NotContains(t, set, storage.IndividualID("@G1@"))

	_, err = BuildAncestorSet(context.Background(), idx, "@I999@", 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolveSelf(t *testing.T) {
	idx := fixture(t)

	result := resolve(t, idx, "@A1@", "@A1@")
	assert.Equal(t, "self", result.Relationship)
	assert.IsType(t, Self{}, result.Relation)
}

func TestResolveDirectLineage(t *testing.T) {
	idx := fixture(t)

	tests := []struct {
		name     string
		id1, id2 storage.IndividualID
		expected string
	}{
		{"child", "@A1@", "@B1@", "child"},
		{"parent", "@B1@", "@A1@", "parent"},
		{"grandchild", "@A1@", "@P1@", "grandchild"},
		{"grandparent", "@P1@", "@A1@", "grandparent"},
		{"great-grandchild", "@A1@", "@G1@", "great-grandchild"},
		{"great-grandparent", "@G1@", "@A1@", "great-grandparent"},
		{"second great-grandparent", "@G1@", "@E1@", "second great-grandparent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := resolve(t, idx, tt.id1, tt.id2)
			assert.Equal(t, tt.expected, result.Relationship)
		})
	}
}

func TestResolveSiblings(t *testing.T) {
	idx := fixture(t)

	full := resolve(t, idx, "@A1@", "@A2@")
	assert.Equal(t, "sibling", full.Relationship)
	require.IsType(t, Sibling{}, full.Relation)
	assert.False(t, full.Relation.(Sibling).Half)

	half := resolve(t, idx, "@A1@", "@A3@")
	assert.Equal(t, "half-sibling", half.Relationship)
	assert.True(t, half.Relation.(Sibling).Half)

	// Symmetric either way around.
	assert.Equal(t, "half-sibling", resolve(t, idx, "@A3@", "@A1@").Relationship)
}

func TestResolveAuntUncle(t *testing.T) {
	idx := fixture(t)

	assert.Equal(t, "aunt/uncle", resolve(t, idx, "@B2@", "@A1@").Relationship)
	assert.Equal(t, "niece/nephew", resolve(t, idx, "@A1@", "@B2@").Relationship)
	assert.Equal(t, "great-aunt/uncle", resolve(t, idx, "@B2@", "@E1@").Relationship)
	assert.Equal(t, "great-niece/nephew", resolve(t, idx, "@E1@", "@B2@").Relationship)
	assert.Equal(t, "niece/nephew", resolve(t, idx, "@D1@", "@B1@").Relationship)
}

func TestResolveCousins(t *testing.T) {
	idx := fixture(t)

	cousins := resolve(t, idx, "@B1@", "@C1@")
	assert.Equal(t, "first cousin", cousins.Relationship)
	require.NotNil(t, cousins.CommonAncestor)
	assert.Equal(t, storage.IndividualID("@G1@"), cousins.CommonAncestor.ID)
	assert.Equal(t, 2, cousins.Generations1)
	assert.Equal(t, 2, cousins.Generations2)
	assert.True(t, cousins.Spouse, "cousin marriage reports both ties")

	assert.Equal(t, "first cousin", resolve(t, idx, "@D1@", "@A1@").Relationship)
	assert.Equal(t, "first cousin once removed", resolve(t, idx, "@E1@", "@D1@").Relationship)
	assert.Equal(t, "first cousin once removed", resolve(t, idx, "@D1@", "@E1@").Relationship)
}

func TestResolveSpouseOnly(t *testing.T) {
	idx := fixture(t)

	result := resolve(t, idx, "@U1@", "@U2@")
	assert.Equal(t, "spouse", result.Relationship)
	assert.True(t, result.Spouse)
	assert.Nil(t, result.CommonAncestor)
}

func TestResolveUndetermined(t *testing.T) {
	idx := fixture(t)

	result := resolve(t, idx, "@A1@", "@U1@")
	assert.Equal(t, "not related within 20 generations", result.Relationship)
	assert.False(t, result.Spouse)
	require.IsType(t, Undetermined{}, result.Relation)
	assert.Equal(t, 20, result.Relation.(Undetermined).SearchDepth)
}

func TestResolveDepthLimited(t *testing.T) {
	idx := fixture(t)

	// G1 is three generations up; a depth-2 search cannot see the link.
	result, err := Resolve(context.Background(), idx, "@A1@", "@G1@", 2)
	require.NoError(t, err)
	assert.Equal(t, "not related within 2 generations", result.Relationship)

	// Out-of-range depth falls back to the hard ceiling.
	result, err = Resolve(context.Background(), idx, "@A1@", "@U1@", 0)
	require.NoError(t, err)
	assert.Equal(t, "not related within 100 generations", result.Relationship)
}

func TestResolveInverseConsistency(t *testing.T) {
	idx := fixture(t)

	inverse := map[string]string{
		"parent":       "child",
		"grandparent":  "grandchild",
		"aunt/uncle":   "niece/nephew",
		"sibling":      "sibling",
		"half-sibling": "half-sibling",
		"first cousin": "first cousin",
		"spouse":       "spouse",
		"self":         "self",
	}

	pairs := [][2]storage.IndividualID{
		{"@B1@", "@A1@"},
		{"@P1@", "@A1@"},
		{"@B2@", "@A1@"},
		{"@A1@", "@A2@"},
		{"@A1@", "@A3@"},
		{"@B1@", "@C1@"},
		{"@U1@", "@U2@"},
		{"@A1@", "@A1@"},
	}

	for _, pair := range pairs {
		forward := resolve(t, idx, pair[0], pair[1]).Relationship
		backward := resolve(t, idx, pair[1], pair[0]).Relationship
		expected, ok := inverse[forward]
		require.True(t, ok, "unexpected term %q", forward)
		assert.Equal(t, expected, backward, "%s/%s", pair[0], pair[1])
	}
}

func TestResolveNotFound(t *testing.T) {
	idx := fixture(t)

	_, err := Resolve(context.Background(), idx, "@A1@", "@I999@", 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = Resolve(context.Background(), idx, "@I999@", "@A1@", 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "parent", ancestorName(1))
	assert.Equal(t, "second great-grandparent", ancestorName(4))
	assert.Equal(t, "third great-grandchild", descendantName(5))
	assert.Equal(t, "second great-aunt/uncle", auntUncleName(4))
	assert.Equal(t, "first cousin", cousinName(1, 0))
	assert.Equal(t, "second cousin twice removed", cousinName(2, 2))
	assert.Equal(t, "first cousin 4x removed", cousinName(1, 4))
	assert.Equal(t, "12th", ordinal(12))
}
