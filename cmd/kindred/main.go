// Package main provides the Kindred CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orneryd/kindred/pkg/associates"
	"github.com/orneryd/kindred/pkg/config"
	"github.com/orneryd/kindred/pkg/kindred"
	"github.com/orneryd/kindred/pkg/storage"
	"github.com/orneryd/kindred/pkg/traverse"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kindred",
		Short: "Kindred - Kinship graph engine for genealogical records",
		Long: `Kindred answers kinship questions over genealogical record exports:
ancestor and descendant trees, named relationships between any two people,
pedigree collapse, fuzzy place search, and FAN-club associate discovery.

Data sources:
  --records  JSON record export, loaded into memory
  --data-dir persistent store directory (see "kindred import")`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("records", "", "JSON record export file")
	rootCmd.PersistentFlags().String("data-dir", "", "Persistent store directory")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Kindred v%s (%s)\n", version, commit)
		},
	})

	importCmd := &cobra.Command{
		Use:   "import [export.json]",
		Short: "Import a JSON record export into a persistent store",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	rootCmd.AddCommand(importCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show tree statistics",
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			return engine.Stats(ctx)
		}),
	})

	ancestorsCmd := &cobra.Command{
		Use:   "ancestors [individual-id]",
		Short: "Show the ancestor tree of an individual",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			generations, _ := cmd.Flags().GetInt("generations")
			terminal, _ := cmd.Flags().GetBool("terminal")
			id := storage.NormalizeIndividualID(args[0])
			if terminal {
				ancestors, _, err := engine.TerminalAncestors(ctx, id, generations)
				return ancestors, err
			}
			return engine.Ancestors(ctx, id, generations)
		}),
	}
	ancestorsCmd.Flags().Int("generations", 0, "Generations to walk (0 = default)")
	ancestorsCmd.Flags().Bool("terminal", false, "List brick-wall ancestors instead of the tree")
	rootCmd.AddCommand(ancestorsCmd)

	descendantsCmd := &cobra.Command{
		Use:   "descendants [individual-id]",
		Short: "Show the descendant tree of an individual",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			generations, _ := cmd.Flags().GetInt("generations")
			return engine.Descendants(ctx, storage.NormalizeIndividualID(args[0]), generations)
		}),
	}
	descendantsCmd.Flags().Int("generations", 0, "Generations to walk (0 = default)")
	rootCmd.AddCommand(descendantsCmd)

	relationshipCmd := &cobra.Command{
		Use:   "relationship [id1] [id2]",
		Short: "Name the relationship between two individuals",
		Args:  cobra.ExactArgs(2),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			depth, _ := cmd.Flags().GetInt("max-generations")
			return engine.Relationship(ctx,
				storage.NormalizeIndividualID(args[0]),
				storage.NormalizeIndividualID(args[1]), depth)
		}),
	}
	relationshipCmd.Flags().Int("max-generations", 0, "Search depth (0 = configured default)")
	rootCmd.AddCommand(relationshipCmd)

	matrixCmd := &cobra.Command{
		Use:   "matrix [id...]",
		Short: "Pairwise relationships for a group of individuals",
		Args:  cobra.MinimumNArgs(2),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			ids := make([]storage.IndividualID, 0, len(args))
			for _, arg := range args {
				ids = append(ids, storage.NormalizeIndividualID(arg))
			}
			return engine.RelationshipMatrix(ctx, ids, 0)
		}),
	}
	rootCmd.AddCommand(matrixCmd)

	collapseCmd := &cobra.Command{
		Use:   "collapse [individual-id]",
		Short: "Detect pedigree collapse in an individual's ancestry",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			generations, _ := cmd.Flags().GetInt("generations")
			points, _, err := engine.PedigreeCollapse(ctx, storage.NormalizeIndividualID(args[0]), generations)
			return points, err
		}),
	}
	collapseCmd.Flags().Int("generations", 0, "Generations to search (0 = default)")
	rootCmd.AddCommand(collapseCmd)

	associatesCmd := &cobra.Command{
		Use:   "associates [individual-id]",
		Short: "Find likely associates by shared time and place",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			q := associates.Query{ID: storage.NormalizeIndividualID(args[0])}
			q.Place, _ = cmd.Flags().GetString("place")
			q.StartYear, _ = cmd.Flags().GetInt("start-year")
			q.EndYear, _ = cmd.Flags().GetInt("end-year")
			q.ExcludeRelatives, _ = cmd.Flags().GetBool("exclude-relatives")
			q.MaxResults, _ = cmd.Flags().GetInt("max-results")
			return engine.FindAssociates(ctx, q)
		}),
	}
	associatesCmd.Flags().String("place", "", "Restrict to one place")
	associatesCmd.Flags().Int("start-year", 0, "Earliest event year")
	associatesCmd.Flags().Int("end-year", 0, "Latest event year")
	associatesCmd.Flags().Bool("exclude-relatives", true, "Drop known relatives")
	associatesCmd.Flags().Int("max-results", 0, "Result cap (0 = default)")
	rootCmd.AddCommand(associatesCmd)

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search individuals by name, place or birth",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			limit, _ := cmd.Flags().GetInt("limit")
			byPlace, _ := cmd.Flags().GetBool("place")
			year, _ := cmd.Flags().GetInt("birth-year")
			switch {
			case byPlace:
				return engine.SearchByPlace(ctx, args[0], limit)
			case year != 0:
				yearRange, _ := cmd.Flags().GetInt("year-range")
				return engine.SearchByBirth(ctx, year, yearRange, args[0], limit)
			default:
				return engine.SearchIndividuals(ctx, args[0], limit)
			}
		}),
	}
	searchCmd.Flags().Bool("place", false, "Treat the query as a place name")
	searchCmd.Flags().Int("birth-year", 0, "Filter by birth year, query becomes a birth place")
	searchCmd.Flags().Int("year-range", 0, "Years either side of --birth-year (0 = 5)")
	searchCmd.Flags().Int("limit", 0, "Result cap (0 = default)")
	rootCmd.AddCommand(searchCmd)

	traverseCmd := &cobra.Command{
		Use:   "traverse [individual-id]",
		Short: "Expand a single-step relation breadth-first",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			directionFlag, _ := cmd.Flags().GetString("direction")
			direction, err := traverse.ParseDirection(directionFlag)
			if err != nil {
				return nil, err
			}
			depth, _ := cmd.Flags().GetInt("depth")
			steps, _, err := engine.Expand(ctx, storage.NormalizeIndividualID(args[0]), direction, depth)
			return steps, err
		}),
	}
	traverseCmd.Flags().String("direction", "children", "parents, children, spouses or siblings")
	traverseCmd.Flags().Int("depth", 1, "Hops to expand")
	rootCmd.AddCommand(traverseCmd)

	timelineCmd := &cobra.Command{
		Use:   "timeline [individual-id]",
		Short: "Show an individual's life events in order",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, engine *kindred.Engine, cmd *cobra.Command, args []string) (any, error) {
			return engine.Timeline(ctx, storage.NormalizeIndividualID(args[0]))
		}),
	}
	rootCmd.AddCommand(timelineCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withEngine opens the configured store, builds the engine, runs the
// handler, prints its result as indented JSON and tears everything down.
func withEngine(run func(context.Context, *kindred.Engine, *cobra.Command, []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		engine, err := kindred.Open(store, cfg)
		if err != nil {
			_ = store.Close()
			return err
		}
		defer engine.Close()

		result, err := run(ctx, engine, cmd, args)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}

func openStore(cmd *cobra.Command, cfg *config.Config) (storage.Store, error) {
	records, _ := cmd.Flags().GetString("records")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = cfg.Storage.DataDir
	}

	switch {
	case records != "":
		export, err := storage.LoadExport(records)
		if err != nil {
			return nil, err
		}
		store := storage.NewMemoryStore()
		if err := storage.ImportInto(store, export); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case dataDir != "":
		return storage.NewBadgerStore(storage.BadgerOptions{
			DataDir:    dataDir,
			SyncWrites: cfg.Storage.SyncWrites,
		})
	default:
		return nil, fmt.Errorf("no data source: pass --records or --data-dir")
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = cfg.Storage.DataDir
	}
	if dataDir == "" {
		return fmt.Errorf("import needs --data-dir")
	}

	export, err := storage.LoadExport(args[0])
	if err != nil {
		return err
	}
	store, err := storage.NewBadgerStore(storage.BadgerOptions{
		DataDir:    dataDir,
		SyncWrites: cfg.Storage.SyncWrites,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := storage.ImportInto(store, export); err != nil {
		return err
	}
	fmt.Printf("imported %d individuals, %d families into %s\n",
		len(export.Individuals), len(export.Families), dataDir)
	return nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
