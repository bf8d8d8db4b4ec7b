package kindred

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/kindred/pkg/associates"
	"github.com/orneryd/kindred/pkg/config"
	"github.com/orneryd/kindred/pkg/storage"
	"github.com/orneryd/kindred/pkg/traverse"
)

// fixtureStore is a three-generation Stone family plus an unrelated
// neighbor:
//
//	G1 George Stone  x  G2 Grace Stone        (F1, m. 1824 Boston)
//	   P1 Peter Stone  x  P3 Mary Hill        (F2, m. 1855 Springfield)
//	      C1 Carl Stone, C2 Clara Stone
//	   P2 Paula Stone
//	N1 Nancy Field                            (born beside C1, no relation)
//
// P3's birth place is deliberately misspelled to exercise fuzzy matching.
func fixtureStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()

	springfield := "Springfield, Illinois"
	boston := "Boston, Massachusetts"

	individuals := []*storage.Individual{
		{
			ID: "@G1@", GivenName: "George", Surname: "Stone", Sex: storage.SexMale,
			BirthDate: storage.Date{Raw: "1800", Year: 1800}, BirthPlace: springfield,
			DeathDate:        storage.Date{Year: 1870},
			FamiliesAsSpouse: []storage.FamilyID{"@F1@"},
		},
		{
			ID: "@G2@", GivenName: "Grace", Surname: "Stone", Sex: storage.SexFemale,
			BirthDate:        storage.Date{Year: 1805},
			FamiliesAsSpouse: []storage.FamilyID{"@F1@"},
		},
		{
			ID: "@P1@", GivenName: "Peter", Surname: "Stone", Sex: storage.SexMale,
			BirthDate: storage.Date{Year: 1830}, BirthPlace: springfield,
			DeathDate: storage.Date{Year: 1900}, DeathPlace: springfield,
			FamiliesAsChild:  []storage.FamilyID{"@F1@"},
			FamiliesAsSpouse: []storage.FamilyID{"@F2@"},
			Events: []storage.Event{
				{Type: storage.EventResidence, Place: boston},
			},
		},
		{
			ID: "@P2@", GivenName: "Paula", Surname: "Stone", Sex: storage.SexFemale,
			BirthDate:       storage.Date{Year: 1832},
			FamiliesAsChild: []storage.FamilyID{"@F1@"},
		},
		{
			ID: "@P3@", GivenName: "Mary", Surname: "Hill", Sex: storage.SexFemale,
			BirthDate: storage.Date{Year: 1835}, BirthPlace: "Springfeild, Illinois",
			FamiliesAsSpouse: []storage.FamilyID{"@F2@"},
		},
		{
			ID: "@C1@", GivenName: "Carl", Surname: "Stone", Sex: storage.SexMale,
			NameVariants: []string{"Karl Stein"},
			BirthDate:    storage.Date{Year: 1856}, BirthPlace: springfield,
			FamiliesAsChild: []storage.FamilyID{"@F2@"},
		},
		{
			ID: "@C2@", GivenName: "Clara", Surname: "Stone", Sex: storage.SexFemale,
			BirthDate: storage.Date{Year: 1858}, BirthPlace: springfield,
			FamiliesAsChild: []storage.FamilyID{"@F2@"},
		},
		{
			ID: "@N1@", GivenName: "Nancy", Surname: "Field", Sex: storage.SexFemale,
			BirthDate: storage.Date{Year: 1856}, BirthPlace: springfield,
		},
	}
	for _, indi := range individuals {
		require.NoError(t, store.PutIndividual(indi))
	}

	families := []*storage.Family{
		{
			ID: "@F1@", HusbandID: "@G1@", WifeID: "@G2@",
			Children:      []storage.IndividualID{"@P1@", "@P2@"},
			MarriageDate:  storage.Date{Raw: "10 MAY 1824", Year: 1824},
			MarriagePlace: boston,
		},
		{
			ID: "@F2@", HusbandID: "@P1@", WifeID: "@P3@",
			Children:      []storage.IndividualID{"@C1@", "@C2@"},
			MarriageDate:  storage.Date{Raw: "2 JUN 1855", Year: 1855},
			MarriagePlace: springfield,
		},
	}
	for _, fam := range families {
		require.NoError(t, store.PutFamily(fam))
	}
	return store
}

func quietConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"
	return cfg
}

func fixtureEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Open(fixtureStore(t), quietConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestOpenBuildsIndex(t *testing.T) {
	engine := fixtureEngine(t)

	assert.Equal(t, 8, engine.Index().IndividualCount())
	assert.Equal(t, 2, engine.Index().FamilyCount())
	assert.Empty(t, engine.Diagnostics())
}

func TestOpenRequiresStore(t *testing.T) {
	_, err := Open(nil, nil)
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestRebuildSwapsSnapshot(t *testing.T) {
	store := fixtureStore(t)
	engine, err := Open(store, quietConfig())
	require.NoError(t, err)
	defer engine.Close()

	before := engine.Index()
	require.NoError(t, store.PutIndividual(&storage.Individual{
		ID: "@X1@", GivenName: "Late", Surname: "Addition",
	}))
	require.NoError(t, engine.Rebuild())

	assert.Equal(t, 8, before.IndividualCount(), "old snapshot stays frozen")
	assert.Equal(t, 9, engine.Index().IndividualCount())
}

func TestAncestorsUsesConfiguredDefault(t *testing.T) {
	engine := fixtureEngine(t)

	tree, err := engine.Ancestors(context.Background(), "@C1@", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, tree.Generations)
	require.NotNil(t, tree.Root.Father)
	assert.Equal(t, storage.IndividualID("@P1@"), tree.Root.Father.ID)
	require.NotNil(t, tree.Root.Father.Father)
	assert.Equal(t, storage.IndividualID("@G1@"), tree.Root.Father.Father.ID)
}

func TestAncestorsClampedToConfiguredMax(t *testing.T) {
	cfg := quietConfig()
	cfg.Limits.MaxAncestorGenerations = 2
	engine, err := Open(fixtureStore(t), cfg)
	require.NoError(t, err)
	defer engine.Close()

	tree, err := engine.Ancestors(context.Background(), "@C1@", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Generations)
}

func TestParents(t *testing.T) {
	engine := fixtureEngine(t)

	parents, err := engine.Parents(context.Background(), "@C1@")
	require.NoError(t, err)
	require.NotNil(t, parents.Father)
	require.NotNil(t, parents.Mother)
	assert.Equal(t, storage.IndividualID("@P1@"), parents.Father.ID)
	assert.Equal(t, storage.IndividualID("@P3@"), parents.Mother.ID)

	// G1 heads the tree, both slots empty.
	orphaned, err := engine.Parents(context.Background(), "@G1@")
	require.NoError(t, err)
	assert.Nil(t, orphaned.Father)
	assert.Nil(t, orphaned.Mother)

	_, err = engine.Parents(context.Background(), "@I999@")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSiblingsAndSpouses(t *testing.T) {
	engine := fixtureEngine(t)

	siblings, err := engine.Siblings(context.Background(), "@C1@")
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, storage.IndividualID("@C2@"), siblings[0].ID)
	assert.False(t, siblings[0].Half)

	spouses, err := engine.Spouses(context.Background(), "@P1@")
	require.NoError(t, err)
	require.Len(t, spouses, 1)
	assert.Equal(t, storage.IndividualID("@P3@"), spouses[0].ID)
	assert.Equal(t, storage.FamilyID("@F2@"), spouses[0].FamilyID)
	assert.Equal(t, "2 JUN 1855", spouses[0].MarriageDate)
}

func TestExpand(t *testing.T) {
	engine := fixtureEngine(t)

	steps, clamped, err := engine.Expand(context.Background(), "@G1@", traverse.DirectionChildren, 2)
	require.NoError(t, err)
	assert.False(t, clamped)

	byLevel := map[int][]storage.IndividualID{}
	for _, step := range steps {
		byLevel[step.Level] = append(byLevel[step.Level], step.ID)
	}
	assert.ElementsMatch(t, []storage.IndividualID{"@P1@", "@P2@"}, byLevel[1])
	assert.ElementsMatch(t, []storage.IndividualID{"@C1@", "@C2@"}, byLevel[2])
}

func TestRelationship(t *testing.T) {
	engine := fixtureEngine(t)
	ctx := context.Background()

	tests := []struct {
		id1, id2 storage.IndividualID
		expected string
	}{
		{"@P1@", "@C1@", "parent"},
		{"@C1@", "@P1@", "child"},
		{"@C1@", "@C2@", "sibling"},
		{"@G1@", "@C1@", "grandparent"},
	}
	for _, tt := range tests {
		result, err := engine.Relationship(ctx, tt.id1, tt.id2, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, result.Relationship, "%s vs %s", tt.id1, tt.id2)
	}
}

func TestRelationshipMatrix(t *testing.T) {
	engine := fixtureEngine(t)

	matrix, err := engine.RelationshipMatrix(context.Background(),
		[]storage.IndividualID{"@C1@", "@C2@", "@P1@", "@MISSING@"}, 0)
	require.NoError(t, err)

	// The unknown ID is skipped; three people make three pairs.
	require.Len(t, matrix.Individuals, 3)
	assert.Equal(t, 3, matrix.PairCount)

	pairs := map[[2]storage.IndividualID]string{}
	for _, pair := range matrix.Pairs {
		pairs[[2]storage.IndividualID{pair.ID1, pair.ID2}] = pair.Relationship
	}
	assert.Equal(t, "sibling", pairs[[2]storage.IndividualID{"@C1@", "@C2@"}])
	assert.Equal(t, "child", pairs[[2]storage.IndividualID{"@C1@", "@P1@"}])
	assert.Equal(t, "child", pairs[[2]storage.IndividualID{"@C2@", "@P1@"}])
}

func TestPedigreeCollapseClean(t *testing.T) {
	engine := fixtureEngine(t)

	points, clamped, err := engine.PedigreeCollapse(context.Background(), "@C1@", 0)
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.Empty(t, points)
}

func TestFindAssociatesExcludesFamily(t *testing.T) {
	engine := fixtureEngine(t)

	result, err := engine.FindAssociates(context.Background(), associates.Query{
		ID:               "@C1@",
		ExcludeRelatives: true,
	})
	require.NoError(t, err)

	// Everyone at Springfield except Nancy is a relative of Carl.
	require.Len(t, result.Associates, 1)
	assert.Equal(t, storage.IndividualID("@N1@"), result.Associates[0].ID)
	assert.Equal(t, 1.0, result.Associates[0].Strength)
	assert.Equal(t, 4, result.Stats.RelativesFiltered)
}

func TestHomePerson(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		cfg := quietConfig()
		cfg.HomePerson = "@N1@"
		engine, err := Open(fixtureStore(t), cfg)
		require.NoError(t, err)
		defer engine.Close()

		home, err := engine.HomePerson(context.Background())
		require.NoError(t, err)
		assert.Equal(t, storage.IndividualID("@N1@"), home.ID)
	})

	t.Run("detected", func(t *testing.T) {
		engine := fixtureEngine(t)

		// Peter has parents, a spouse and two children, the densest
		// connections in the fixture.
		home, err := engine.HomePerson(context.Background())
		require.NoError(t, err)
		assert.Equal(t, storage.IndividualID("@P1@"), home.ID)
	})

	t.Run("configured but missing falls back", func(t *testing.T) {
		cfg := quietConfig()
		cfg.HomePerson = "@I999@"
		engine, err := Open(fixtureStore(t), cfg)
		require.NoError(t, err)
		defer engine.Close()

		home, err := engine.HomePerson(context.Background())
		require.NoError(t, err)
		assert.Equal(t, storage.IndividualID("@P1@"), home.ID)
	})
}
