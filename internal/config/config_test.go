package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizenheimer/surf"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "surf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "index", cfg.Collection.Dir)
	assert.Equal(t, 10, cfg.Query.K)
	assert.Equal(t, 1, cfg.Query.Workers)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, surf.DefaultOptions(), cfg.Options())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
collection:
  dir: /var/lib/surf
analyzer:
  stemming: false
index:
  weighting: bm25
  bm25:
    k1: 1.2
query:
  k: 25
  multiOcc: true
  timeLimit: 2s
  workers: 4
logging:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/surf", cfg.Collection.Dir)
	assert.Equal(t, 25, cfg.Query.K)
	assert.True(t, cfg.Query.MultiOcc)
	assert.Equal(t, 2*time.Second, cfg.Query.TimeLimit)
	assert.Equal(t, 4, cfg.Query.Workers)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level, "unset fields keep their defaults")

	opts := cfg.Options()
	assert.Equal(t, surf.WeightingBM25, opts.Weighting)
	assert.Equal(t, 1.2, opts.BM25.K1)
	assert.Equal(t, 0.75, opts.BM25.B)
	assert.False(t, opts.Analyzer.EnableStemming)
	assert.Equal(t, "english", opts.Analyzer.Language)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "query:\n  k: 25\n")
	t.Setenv("SURF_QUERY_K", "3")
	t.Setenv("SURF_INDEX_WEIGHTING", "bm25")
	t.Setenv("SURF_METRICS_ENABLED", "false")
	t.Setenv("SURF_QUERY_WORKERS", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Query.K)
	assert.Equal(t, "bm25", cfg.Index.Weighting)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 1, cfg.Query.Workers)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "query: ["))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "index:\n  weighting: pagerank\n"))
	assert.ErrorIs(t, err, surf.ErrUnknownWeighting)

	_, err = Load(writeConfig(t, "index:\n  bm25:\n    b: 1.5\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "query:\n  workers: 0\n"))
	assert.Error(t, err)
}
