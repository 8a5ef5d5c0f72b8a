// Package config loads graphkv's runtime options from environment variables
// or a YAML file, following the same load-then-validate shape the teacher
// uses for its Neo4j-compatible configuration.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every option recognized per §6.4: graph identity, store
// connection, write/read behavior toggles, cache sizing, and resource
// thread counts.
type Config struct {
	// Graph identifies this database; also used as the table-name prefix
	// for named indices (<graph>_index_<name>).
	GraphName string `yaml:"graph_name"`

	// DataDir is the on-disk location of the embedded store. Empty with
	// InMemory unset is invalid.
	DataDir string `yaml:"data_dir"`
	// InMemory runs the store with no persistence, for tests and scratch use.
	InMemory bool `yaml:"in_memory"`

	// AutoFlush flushes the multi-writer after every public mutation
	// instead of requiring an explicit Flush call.
	AutoFlush bool `yaml:"auto_flush"`

	// SkipExistenceChecks disables add_vertex's duplicate-ID scan and makes
	// get_vertex return a lazy handle instead of scanning. get_edge still
	// scans the edge row and reports a missing edge as not found.
	SkipExistenceChecks bool `yaml:"skip_existence_checks"`

	// AutoIndex treats every property key as key-indexed for the duration
	// of its reads and writes, without requiring create_key_index.
	AutoIndex bool `yaml:"auto_index"`

	// CacheMaxEntries bounds the vertex and edge element caches. Zero
	// disables caching entirely.
	CacheMaxEntries int64 `yaml:"cache_max_entries"`
	// VertexCacheTTL and EdgeCacheTTL are the kind-level cache TTLs.
	VertexCacheTTL time.Duration `yaml:"vertex_cache_ttl"`
	EdgeCacheTTL   time.Duration `yaml:"edge_cache_ttl"`
	// PropertyCacheTTL overrides the default per-property TTL for specific
	// property keys. A value of -1 means that property is never cached.
	PropertyCacheTTL map[string]time.Duration `yaml:"property_cache_ttl"`

	// PreloadedProperties are fetched eagerly whenever an element loads.
	PreloadedProperties []string `yaml:"preloaded_properties"`
	// PreloadedEdgeLabels restricts eager adjacency loading to these labels;
	// empty means none are preloaded.
	PreloadedEdgeLabels []string `yaml:"preloaded_edge_labels"`

	// IndexableGraphDisabled turns off all named/key-index maintenance,
	// useful for bulk-load passes that reindex afterward.
	IndexableGraphDisabled bool `yaml:"indexable_graph_disabled"`

	// SplitPoints hints initial table split points, keyed by table name.
	SplitPoints map[string][][]byte `yaml:"-"`

	// QueryThreadCount bounds BatchScanner concurrency.
	QueryThreadCount int `yaml:"query_thread_count"`
	// MaxWriteThreadCount is the configured write-thread bound. Validate
	// requires it to be positive; no other code in the module reads it.
	MaxWriteThreadCount int `yaml:"max_write_thread_count"`

	// LegacyEdgeIndexLeak restores the pre-fix behavior of not sweeping
	// key-index cells for edges cascade-removed by remove_vertex (see
	// DESIGN.md's Open Questions).
	LegacyEdgeIndexLeak bool `yaml:"legacy_edge_index_leak"`
}

// LoadFromEnv builds a Config from environment variables, falling back to
// sane defaults for anything unset.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.GraphName = getEnv("GRAPHKV_GRAPH_NAME", "graph")
	cfg.DataDir = getEnv("GRAPHKV_DATA_DIR", "./data")
	cfg.InMemory = getEnvBool("GRAPHKV_IN_MEMORY", false)

	cfg.AutoFlush = getEnvBool("GRAPHKV_AUTO_FLUSH", false)
	cfg.SkipExistenceChecks = getEnvBool("GRAPHKV_SKIP_EXISTENCE_CHECKS", false)
	cfg.AutoIndex = getEnvBool("GRAPHKV_AUTO_INDEX", false)

	cfg.CacheMaxEntries = int64(getEnvInt("GRAPHKV_CACHE_MAX_ENTRIES", 10_000))
	cfg.VertexCacheTTL = getEnvDuration("GRAPHKV_VERTEX_CACHE_TTL", 0)
	cfg.EdgeCacheTTL = getEnvDuration("GRAPHKV_EDGE_CACHE_TTL", 0)
	cfg.PropertyCacheTTL = map[string]time.Duration{}

	cfg.PreloadedProperties = getEnvStringSlice("GRAPHKV_PRELOADED_PROPERTIES", nil)
	cfg.PreloadedEdgeLabels = getEnvStringSlice("GRAPHKV_PRELOADED_EDGE_LABELS", nil)

	cfg.IndexableGraphDisabled = getEnvBool("GRAPHKV_INDEXABLE_GRAPH_DISABLED", false)

	cfg.QueryThreadCount = getEnvInt("GRAPHKV_QUERY_THREAD_COUNT", 4)
	cfg.MaxWriteThreadCount = getEnvInt("GRAPHKV_MAX_WRITE_THREAD_COUNT", 4)

	cfg.LegacyEdgeIndexLeak = getEnvBool("GRAPHKV_LEGACY_EDGE_INDEX_LEAK", false)

	return cfg
}

// LoadFromFile reads a YAML config file and overlays it on the env-derived
// defaults — fields absent from the file keep their LoadFromEnv value.
func LoadFromFile(path string) (*Config, error) {
	cfg := LoadFromEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// PropertyTTL returns the configured TTL for a property key, falling back
// to the kind's cache TTL when no override is registered. A negative
// returned duration means the property must never be cached.
func (c *Config) PropertyTTL(key string, kindDefault time.Duration) time.Duration {
	if ttl, ok := c.PropertyCacheTTL[key]; ok {
		return ttl
	}
	return kindDefault
}

// Validate checks the config for internally-inconsistent settings.
func (c *Config) Validate() error {
	if c.GraphName == "" {
		return fmt.Errorf("graph name must not be empty")
	}
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("data dir must be set unless in_memory is true")
	}
	if c.CacheMaxEntries < 0 {
		return fmt.Errorf("cache max entries must be >= 0, got %d", c.CacheMaxEntries)
	}
	if c.QueryThreadCount <= 0 {
		return fmt.Errorf("query thread count must be positive, got %d", c.QueryThreadCount)
	}
	if c.MaxWriteThreadCount <= 0 {
		return fmt.Errorf("max write thread count must be positive, got %d", c.MaxWriteThreadCount)
	}
	return nil
}

// String returns a safe, loggable summary of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Graph: %s, DataDir: %s, InMemory: %v, AutoFlush: %v, CacheMaxEntries: %d}",
		c.GraphName, c.DataDir, c.InMemory, c.AutoFlush, c.CacheMaxEntries,
	)
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

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}
