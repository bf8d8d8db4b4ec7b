// Package config handles Kindred configuration via environment variables and
// an optional YAML file.
//
// Defaults work out of the box: DefaultConfig() gives an in-memory store with
// the standard traversal limits and scoring weights. Deployments override
// settings with KINDRED_-prefixed environment variables, or point
// KINDRED_CONFIG_FILE at a YAML file. Environment variables win over the
// file, the file wins over defaults.
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	fmt.Printf("data dir: %s\n", cfg.Storage.DataDir)
//
// Environment Variables:
//   - KINDRED_CONFIG_FILE="./kindred.yaml"
//   - KINDRED_DATA_DIR="./data"
//   - KINDRED_IN_MEMORY=true
//   - KINDRED_MAX_ANCESTOR_GENERATIONS=20
//   - KINDRED_MAX_DESCENDANT_GENERATIONS=10
//   - KINDRED_MAX_EXPAND_DEPTH=10
//   - KINDRED_PLACE_THRESHOLD=0.70
//   - KINDRED_HOME_PERSON="@I1@"
//   - KINDRED_LOG_LEVEL="info"
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/kindred/pkg/place"
)

// Config holds all Kindred settings.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Limits  LimitsConfig  `yaml:"limits"`
	Scoring ScoringConfig `yaml:"scoring"`
	Place   place.Config  `yaml:"place"`
	Logging LoggingConfig `yaml:"logging"`

	// HomePerson is the default root individual for traversals when a
	// request names none. Empty means pick the first individual by ID.
	HomePerson string `yaml:"home_person"`
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	// DataDir is the directory for persistent storage. Empty with
	// InMemory false still means in-memory.
	DataDir string `yaml:"data_dir"`
	// InMemory forces the in-memory store even when DataDir is set.
	InMemory bool `yaml:"in_memory"`
	// SyncWrites makes persistent writes durable at the cost of latency.
	SyncWrites bool `yaml:"sync_writes"`
}

// LimitsConfig bounds traversal depth. Requests beyond a limit are clamped,
// not rejected.
type LimitsConfig struct {
	// MaxAncestorGenerations caps ancestor traversals.
	MaxAncestorGenerations int `yaml:"max_ancestor_generations"`
	// MaxDescendantGenerations caps descendant traversals.
	MaxDescendantGenerations int `yaml:"max_descendant_generations"`
	// MaxExpandDepth caps general graph expansion.
	MaxExpandDepth int `yaml:"max_expand_depth"`
	// DefaultAncestorGenerations applies when a request names no depth.
	DefaultAncestorGenerations int `yaml:"default_ancestor_generations"`
	// DefaultDescendantGenerations applies when a request names no depth.
	DefaultDescendantGenerations int `yaml:"default_descendant_generations"`
	// RelationshipSearchDepth bounds kinship resolution. Never exceeds
	// the hard ceiling of 100 generations.
	RelationshipSearchDepth int `yaml:"relationship_search_depth"`
}

// HardGenerationCeiling is the absolute bound on any generational parameter,
// whatever the configuration says.
const HardGenerationCeiling = 100

// ScoringConfig holds associate scoring weights.
type ScoringConfig struct {
	SameYear        float64 `yaml:"same_year"`
	NearYear        float64 `yaml:"near_year"`
	SamePlaceOnly   float64 `yaml:"same_place_only"`
	UnknownYear     float64 `yaml:"unknown_year"`
	ExtraPlace      float64 `yaml:"extra_place"`
	LifespanOverlap float64 `yaml:"lifespan_overlap"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			InMemory: true,
		},
		Limits: LimitsConfig{
			MaxAncestorGenerations:       20,
			MaxDescendantGenerations:     10,
			MaxExpandDepth:               10,
			DefaultAncestorGenerations:   4,
			DefaultDescendantGenerations: 4,
			RelationshipSearchDepth:      10,
		},
		Scoring: ScoringConfig{
			SameYear:        0.15,
			NearYear:        0.08,
			SamePlaceOnly:   0.02,
			UnknownYear:     0.03,
			ExtraPlace:      0.05,
			LifespanOverlap: 0.30,
		},
		Place: place.Config{
			Threshold: place.DefaultThreshold,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// named by KINDRED_CONFIG_FILE (if any), then environment overrides.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("KINDRED_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile applies a YAML file over the defaults, then environment
// overrides.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.loadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.Storage.DataDir = getEnv("KINDRED_DATA_DIR", c.Storage.DataDir)
	c.Storage.InMemory = getEnvBool("KINDRED_IN_MEMORY", c.Storage.InMemory)
	c.Storage.SyncWrites = getEnvBool("KINDRED_SYNC_WRITES", c.Storage.SyncWrites)

	c.Limits.MaxAncestorGenerations = getEnvInt("KINDRED_MAX_ANCESTOR_GENERATIONS", c.Limits.MaxAncestorGenerations)
	c.Limits.MaxDescendantGenerations = getEnvInt("KINDRED_MAX_DESCENDANT_GENERATIONS", c.Limits.MaxDescendantGenerations)
	c.Limits.MaxExpandDepth = getEnvInt("KINDRED_MAX_EXPAND_DEPTH", c.Limits.MaxExpandDepth)
	c.Limits.RelationshipSearchDepth = getEnvInt("KINDRED_RELATIONSHIP_SEARCH_DEPTH", c.Limits.RelationshipSearchDepth)

	c.Place.Threshold = getEnvFloat("KINDRED_PLACE_THRESHOLD", c.Place.Threshold)
	c.HomePerson = getEnv("KINDRED_HOME_PERSON", c.HomePerson)
	c.Logging.Level = getEnv("KINDRED_LOG_LEVEL", c.Logging.Level)

	// Storage with a data dir is persistent unless explicitly overridden.
	if c.Storage.DataDir != "" && os.Getenv("KINDRED_IN_MEMORY") == "" {
		c.Storage.InMemory = false
	}
}

// Validate checks the configuration for contradictions and clamps
// generational limits to the hard ceiling.
func (c *Config) Validate() error {
	if c.Limits.MaxAncestorGenerations < 1 {
		return fmt.Errorf("max_ancestor_generations must be at least 1, got %d", c.Limits.MaxAncestorGenerations)
	}
	if c.Limits.MaxDescendantGenerations < 1 {
		return fmt.Errorf("max_descendant_generations must be at least 1, got %d", c.Limits.MaxDescendantGenerations)
	}
	if c.Limits.MaxExpandDepth < 1 {
		return fmt.Errorf("max_expand_depth must be at least 1, got %d", c.Limits.MaxExpandDepth)
	}
	if c.Place.Threshold < 0 || c.Place.Threshold > 1 {
		return fmt.Errorf("place threshold must be in [0, 1], got %v", c.Place.Threshold)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	if c.Limits.MaxAncestorGenerations > HardGenerationCeiling {
		c.Limits.MaxAncestorGenerations = HardGenerationCeiling
	}
	if c.Limits.MaxDescendantGenerations > HardGenerationCeiling {
		c.Limits.MaxDescendantGenerations = HardGenerationCeiling
	}
	if c.Limits.MaxExpandDepth > HardGenerationCeiling {
		c.Limits.MaxExpandDepth = HardGenerationCeiling
	}
	if c.Limits.RelationshipSearchDepth < 1 || c.Limits.RelationshipSearchDepth > HardGenerationCeiling {
		c.Limits.RelationshipSearchDepth = HardGenerationCeiling
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
