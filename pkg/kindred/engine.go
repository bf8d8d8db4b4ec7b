// Package kindred provides the main API for embedded Kindred usage.
//
// The engine builds an immutable graph index from a record store once, at
// Open, and answers every query from that snapshot. Reads are lock-free:
// queries load the current index through an atomic pointer and never block
// each other. When the underlying records change, Rebuild constructs a fresh
// index and swaps it in atomically; in-flight queries finish against the
// snapshot they started with.
//
// Example Usage:
//
//	store := storage.NewMemoryStore()
//	// ... load records into the store ...
//
//	engine, err := kindred.Open(store, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	tree, err := engine.Ancestors(ctx, "@I1@", 4)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("root: %s, generations: %d\n", tree.Root.Name, tree.Generations)
//
//	rel, err := engine.Relationship(ctx, "@I1@", "@I2@", 0)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(rel.Relationship)
package kindred

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/orneryd/kindred/pkg/associates"
	"github.com/orneryd/kindred/pkg/config"
	"github.com/orneryd/kindred/pkg/index"
	"github.com/orneryd/kindred/pkg/kinship"
	"github.com/orneryd/kindred/pkg/place"
	"github.com/orneryd/kindred/pkg/storage"
	"github.com/orneryd/kindred/pkg/traverse"
)

// ErrNoStore is returned by Open when no record store is supplied.
var ErrNoStore = errors.New("no record store")

// Engine answers kinship queries over an immutable index snapshot.
type Engine struct {
	store  storage.Store
	cfg    *config.Config
	logger *log.Logger

	idx atomic.Pointer[index.Index]
}

// Open builds the index from the store and returns a ready engine. A nil
// cfg means config.DefaultConfig(). The engine takes ownership of the
// store; Close closes it.
func Open(store storage.Store, cfg *config.Config) (*Engine, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	e := &Engine{
		store:  store,
		cfg:    cfg,
		logger: newLogger(cfg.Logging.Level),
	}
	if err := e.Rebuild(); err != nil {
		return nil, err
	}
	return e, nil
}

func newLogger(level string) *log.Logger {
	parsed := log.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		parsed = log.DebugLevel
	case "warn":
		parsed = log.WarnLevel
	case "error":
		parsed = log.ErrorLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           parsed,
		Prefix:          "kindred",
	})
}

// Rebuild constructs a fresh index from the store and swaps it in
// atomically. Queries already running keep their snapshot.
func (e *Engine) Rebuild() error {
	start := time.Now()
	idx, err := index.Build(e.store, index.Options{
		Matcher: place.NewMatcher(&e.cfg.Place),
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	e.idx.Store(idx)

	e.logger.Info("index built",
		"individuals", idx.IndividualCount(),
		"families", idx.FamilyCount(),
		"took", time.Since(start).Round(time.Millisecond))
	if n := len(idx.Diagnostics()); n > 0 {
		e.logger.Warn("records contain dangling references", "count", n)
	}
	return nil
}

// Close closes the underlying store. The engine must not be used after.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Index returns the current index snapshot.
func (e *Engine) Index() *index.Index {
	return e.idx.Load()
}

// Diagnostics returns the dangling references found during the last build.
func (e *Engine) Diagnostics() []index.Diagnostic {
	return e.Index().Diagnostics()
}

func (e *Engine) ancestorGenerations(requested int) int {
	if requested <= 0 {
		requested = e.cfg.Limits.DefaultAncestorGenerations
	}
	if requested > e.cfg.Limits.MaxAncestorGenerations {
		requested = e.cfg.Limits.MaxAncestorGenerations
	}
	return requested
}

func (e *Engine) descendantGenerations(requested int) int {
	if requested <= 0 {
		requested = e.cfg.Limits.DefaultDescendantGenerations
	}
	if requested > e.cfg.Limits.MaxDescendantGenerations {
		requested = e.cfg.Limits.MaxDescendantGenerations
	}
	return requested
}

func (e *Engine) relationshipDepth(requested int) int {
	if requested <= 0 {
		return e.cfg.Limits.RelationshipSearchDepth
	}
	return requested
}

// Ancestors returns the nested ancestor tree of id. Zero generations means
// the configured default; requests beyond the configured maximum are
// clamped.
func (e *Engine) Ancestors(ctx context.Context, id storage.IndividualID, generations int) (*traverse.AncestorTree, error) {
	return traverse.Ancestors(ctx, e.Index(), id, e.ancestorGenerations(generations))
}

// TerminalAncestors returns id's brick-wall ancestors: the ends of every
// explored line, with the path that reached them.
func (e *Engine) TerminalAncestors(ctx context.Context, id storage.IndividualID, generations int) ([]traverse.TerminalAncestor, bool, error) {
	if generations <= 0 {
		generations = e.cfg.Limits.MaxAncestorGenerations
	}
	return traverse.TerminalAncestors(ctx, e.Index(), id, generations)
}

// Descendants returns the nested descendant tree of id.
func (e *Engine) Descendants(ctx context.Context, id storage.IndividualID, generations int) (*traverse.DescendantTree, error) {
	return traverse.Descendants(ctx, e.Index(), id, e.descendantGenerations(generations))
}

// ParentPair labels an individual's parents by their family slots. Either
// side is nil when the slot is empty or the reference does not resolve.
type ParentPair struct {
	Father *storage.Summary `json:"father,omitempty"`
	Mother *storage.Summary `json:"mother,omitempty"`
}

// Parents returns id's father and mother. With several parent families the
// first resolving occupant of each slot wins.
func (e *Engine) Parents(ctx context.Context, id storage.IndividualID) (*ParentPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := e.Index()
	indi := idx.Individual(id)
	if indi == nil {
		return nil, fmt.Errorf("individual %s: %w", id, storage.ErrNotFound)
	}
	pair := &ParentPair{}
	for _, famID := range indi.FamiliesAsChild {
		fam := idx.Family(famID)
		if fam == nil {
			continue
		}
		if pair.Father == nil {
			if father := idx.Individual(fam.HusbandID); father != nil {
				s := father.Summary()
				pair.Father = &s
			}
		}
		if pair.Mother == nil {
			if mother := idx.Individual(fam.WifeID); mother != nil {
				s := mother.Summary()
				pair.Mother = &s
			}
		}
	}
	return pair, nil
}

// Siblings returns id's siblings, full and half annotated.
func (e *Engine) Siblings(ctx context.Context, id storage.IndividualID) ([]traverse.Sibling, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return traverse.Siblings(e.Index(), id)
}

// Spouses returns id's spouses with the marriage details of each union.
func (e *Engine) Spouses(ctx context.Context, id storage.IndividualID) ([]traverse.SpouseLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return traverse.Spouses(e.Index(), id)
}

// Expand walks a single-step relation breadth-first from id, up to depth
// hops. The returned flag reports whether the depth was clamped.
func (e *Engine) Expand(ctx context.Context, id storage.IndividualID, direction traverse.Direction, depth int) ([]traverse.Step, bool, error) {
	if depth <= 0 {
		depth = 1
	}
	if depth > e.cfg.Limits.MaxExpandDepth {
		depth = e.cfg.Limits.MaxExpandDepth
	}
	return traverse.Expand(ctx, e.Index(), id, direction, depth)
}

// Relationship names how id1 relates to id2. The term names id1's role:
// "parent" means id1 is id2's parent. Zero maxGenerations means the
// configured search depth.
func (e *Engine) Relationship(ctx context.Context, id1, id2 storage.IndividualID, maxGenerations int) (*kinship.Result, error) {
	return kinship.Resolve(ctx, e.Index(), id1, id2, e.relationshipDepth(maxGenerations))
}

// MatrixPair is one resolved pairing in a relationship matrix.
type MatrixPair struct {
	ID1          storage.IndividualID `json:"id1"`
	ID2          storage.IndividualID `json:"id2"`
	Relationship string               `json:"relationship"`
	Spouse       bool                 `json:"spouse,omitempty"`
}

// Matrix holds all pairwise relationships for a group of individuals.
type Matrix struct {
	Individuals []storage.Summary `json:"individuals"`
	Pairs       []MatrixPair      `json:"pairs"`
	PairCount   int               `json:"pair_count"`
}

// RelationshipMatrix resolves every unordered pair among ids, building each
// individual's ancestor set once and reusing it across comparisons. IDs that
// do not resolve are skipped.
func (e *Engine) RelationshipMatrix(ctx context.Context, ids []storage.IndividualID, maxGenerations int) (*Matrix, error) {
	idx := e.Index()
	depth := e.relationshipDepth(maxGenerations)

	matrix := &Matrix{}
	var known []storage.IndividualID
	sets := make(map[storage.IndividualID]kinship.AncestorSet, len(ids))
	for _, id := range ids {
		indi := idx.Individual(id)
		if indi == nil {
			continue
		}
		if _, dup := sets[id]; dup {
			continue
		}
		set, err := kinship.BuildAncestorSet(ctx, idx, id, depth)
		if err != nil {
			return nil, err
		}
		sets[id] = set
		known = append(known, id)
		matrix.Individuals = append(matrix.Individuals, indi.Summary())
	}

	for i, id1 := range known {
		for _, id2 := range known[i+1:] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := kinship.ResolveWithSets(idx, id1, id2, sets[id1], sets[id2], depth)
			if err != nil {
				return nil, err
			}
			matrix.Pairs = append(matrix.Pairs, MatrixPair{
				ID1:          id1,
				ID2:          id2,
				Relationship: result.Relationship,
				Spouse:       result.Spouse,
			})
		}
	}
	matrix.PairCount = len(matrix.Pairs)
	return matrix, nil
}

// PedigreeCollapse finds ancestors reachable by more than one distinct
// path within the generation bound.
func (e *Engine) PedigreeCollapse(ctx context.Context, id storage.IndividualID, generations int) ([]traverse.CollapsePoint, bool, error) {
	if generations <= 0 {
		generations = e.cfg.Limits.MaxAncestorGenerations
	}
	return traverse.DetectCollapse(ctx, e.Index(), id, generations)
}

// FindAssociates ranks likely real-world contacts of the focal individual
// by shared time and place, using the configured scoring weights.
func (e *Engine) FindAssociates(ctx context.Context, q associates.Query) (*associates.ResultSet, error) {
	scorer := associates.NewScorer(e.Index(), associates.Weights{
		SameYear:        e.cfg.Scoring.SameYear,
		NearYear:        e.cfg.Scoring.NearYear,
		SamePlaceOnly:   e.cfg.Scoring.SamePlaceOnly,
		UnknownYear:     e.cfg.Scoring.UnknownYear,
		ExtraPlace:      e.cfg.Scoring.ExtraPlace,
		LifespanOverlap: e.cfg.Scoring.LifespanOverlap,
	})
	return scorer.Find(ctx, q)
}
