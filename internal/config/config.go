// Package config loads the surf configuration from a YAML file with SURF_*
// environment-variable overrides, and maps it onto index build options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wizenheimer/surf"
)

// Config is the top-level surf configuration.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Index      IndexConfig      `yaml:"index"`
	Query      QueryConfig      `yaml:"query"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CollectionConfig locates the documents and the persisted index.
type CollectionConfig struct {
	Dir   string `yaml:"dir"`
	Input string `yaml:"input"`
}

// AnalyzerConfig controls tokenization of documents and text queries.
type AnalyzerConfig struct {
	Language       string `yaml:"language"`
	MinTokenLength int    `yaml:"minTokenLength"`
	Stemming       bool   `yaml:"stemming"`
	Stopwords      bool   `yaml:"stopwords"`
}

// IndexConfig selects how duplicate occurrences are weighted.
type IndexConfig struct {
	Weighting string     `yaml:"weighting"`
	BM25      BM25Config `yaml:"bm25"`
}

// BM25Config holds the BM25 free parameters.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// QueryConfig controls batch and served queries.
type QueryConfig struct {
	K         int           `yaml:"k"`
	MultiOcc  bool          `yaml:"multiOcc"`
	MatchOnly bool          `yaml:"matchOnly"`
	TimeLimit time.Duration `yaml:"timeLimit"`
	Workers   int           `yaml:"workers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	analyzer := surf.DefaultAnalyzerConfig()
	bm25 := surf.DefaultBM25Parameters()
	return &Config{
		Collection: CollectionConfig{
			Dir: "index",
		},
		Analyzer: AnalyzerConfig{
			Language:       analyzer.Language,
			MinTokenLength: analyzer.MinTokenLength,
			Stemming:       analyzer.EnableStemming,
			Stopwords:      analyzer.EnableStopwords,
		},
		Index: IndexConfig{
			Weighting: string(surf.WeightingTF),
			BM25:      BM25Config{K1: bm25.K1, B: bm25.B},
		},
		Query: QueryConfig{
			K:       10,
			Workers: 1,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// applyEnvOverrides reads SURF_* environment variables and overrides the
// corresponding config fields. Unparseable values are ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SURF_COLLECTION_DIR"); v != "" {
		cfg.Collection.Dir = v
	}
	if v := os.Getenv("SURF_COLLECTION_INPUT"); v != "" {
		cfg.Collection.Input = v
	}
	if v := os.Getenv("SURF_ANALYZER_LANGUAGE"); v != "" {
		cfg.Analyzer.Language = v
	}
	if v := os.Getenv("SURF_INDEX_WEIGHTING"); v != "" {
		cfg.Index.Weighting = v
	}
	if v := os.Getenv("SURF_INDEX_BM25_K1"); v != "" {
		if k1, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Index.BM25.K1 = k1
		}
	}
	if v := os.Getenv("SURF_INDEX_BM25_B"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Index.BM25.B = b
		}
	}
	if v := os.Getenv("SURF_QUERY_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Query.K = k
		}
	}
	if v := os.Getenv("SURF_QUERY_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Query.Workers = n
		}
	}
	if v := os.Getenv("SURF_QUERY_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Query.TimeLimit = d
		}
	}
	if v := os.Getenv("SURF_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SURF_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SURF_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SURF_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
	if v := os.Getenv("SURF_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

func (c *Config) validate() error {
	if _, err := surf.ParseWeighting(c.Index.Weighting); err != nil {
		return fmt.Errorf("index.weighting: %w", err)
	}
	if c.Index.BM25.K1 < 0 {
		return fmt.Errorf("index.bm25.k1 must not be negative, got %g", c.Index.BM25.K1)
	}
	if c.Index.BM25.B < 0 || c.Index.BM25.B > 1 {
		return fmt.Errorf("index.bm25.b must be in [0, 1], got %g", c.Index.BM25.B)
	}
	if c.Query.Workers < 1 {
		return fmt.Errorf("query.workers must be positive, got %d", c.Query.Workers)
	}
	if c.Query.TimeLimit < 0 {
		return fmt.Errorf("query.timeLimit must not be negative, got %s", c.Query.TimeLimit)
	}
	return nil
}

// Options maps the analyzer and index sections onto build options.
func (c *Config) Options() surf.Options {
	weighting, err := surf.ParseWeighting(c.Index.Weighting)
	if err != nil {
		weighting = surf.WeightingTF
	}
	return surf.Options{
		Analyzer: surf.AnalyzerConfig{
			Language:        c.Analyzer.Language,
			MinTokenLength:  c.Analyzer.MinTokenLength,
			EnableStemming:  c.Analyzer.Stemming,
			EnableStopwords: c.Analyzer.Stopwords,
		},
		Weighting: weighting,
		BM25:      surf.BM25Parameters{K1: c.Index.BM25.K1, B: c.Index.BM25.B},
	}
}
