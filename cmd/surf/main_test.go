package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizenheimer/surf"
	"github.com/wizenheimer/surf/internal/metrics"
)

// exampleIndex indexes doc0 "a b a", doc1 "a", doc2 "b b a"
func exampleIndex(t *testing.T) *surf.Index {
	t.Helper()
	c := surf.NewCollection(surf.DefaultAnalyzerConfig())
	c.AddTerms("doc0", []string{"a", "b", "a"})
	c.AddTerms("doc1", []string{"a"})
	c.AddTerms("doc2", []string{"b", "b", "a"})
	idx, err := surf.Build(c, surf.DefaultOptions())
	require.NoError(t, err)
	return idx
}

// ═══════════════════════════════════════════════════════════════════════════════
// BATCH QUERY TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestReadQueries(t *testing.T) {
	queries, err := readQueries(strings.NewReader("a\n\n  b a \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b a"}, queries)
}

func TestParsePattern(t *testing.T) {
	idx := exampleIndex(t)

	pattern, length, ok := parsePattern(idx, "b a", false)
	assert.True(t, ok)
	assert.Equal(t, []uint32{3, 2}, pattern)
	assert.Equal(t, 2, length)

	pattern, _, ok = parsePattern(idx, "3 2", true)
	assert.True(t, ok)
	assert.Equal(t, []uint32{3, 2}, pattern)

	_, _, ok = parsePattern(idx, "3 x", true)
	assert.False(t, ok)

	_, _, ok = parsePattern(idx, "zebra", false)
	assert.False(t, ok)
}

func TestRunBatch(t *testing.T) {
	idx := exampleIndex(t)
	queries := []string{"a", "b", "zebra", "b a"}

	for _, workers := range []int{1, 4} {
		outcomes, summary, err := runBatch(context.Background(), idx, queries,
			batchOptions{K: 10, Verify: true, Workers: workers}, nil)
		require.NoError(t, err)
		require.Len(t, outcomes, 4)

		for i, o := range outcomes {
			assert.Equal(t, i+1, o.Line, "outcomes keep query order")
			assert.NoError(t, o.Err)
		}
		assert.Equal(t, []surf.Result{
			{DocID: 0, Weight: 2, Source: surf.SourceGrid},
			{DocID: 2, Weight: 1, Source: surf.SourceSingleton},
			{DocID: 1, Weight: 1, Source: surf.SourceSingleton},
		}, outcomes[0].Results)
		assert.False(t, outcomes[2].Matched)
		assert.Empty(t, outcomes[2].Results)

		assert.Equal(t, 4, summary.Queries)
		assert.Equal(t, 7, summary.Reported)
		assert.Equal(t, uint64(9), summary.SumWeight)
		assert.Zero(t, summary.Failed)
		assert.False(t, summary.TLE)
	}
}

func TestRunBatch_K(t *testing.T) {
	idx := exampleIndex(t)
	outcomes, _, err := runBatch(context.Background(), idx, []string{"a"},
		batchOptions{K: 1, Workers: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []surf.Result{{DocID: 0, Weight: 2, Source: surf.SourceGrid}}, outcomes[0].Results)
}

func TestRunBatch_MultiOccAndMatchOnly(t *testing.T) {
	idx := exampleIndex(t)

	outcomes, _, err := runBatch(context.Background(), idx, []string{"a"},
		batchOptions{K: 10, MultiOcc: true, Verify: true, Workers: 1}, nil)
	require.NoError(t, err)
	assert.Len(t, outcomes[0].Results, 1)
	assert.NoError(t, outcomes[0].Err)

	outcomes, _, err = runBatch(context.Background(), idx, []string{"a"},
		batchOptions{K: 10, MatchOnly: true, Workers: 1}, nil)
	require.NoError(t, err)
	assert.True(t, outcomes[0].Matched)
	assert.Empty(t, outcomes[0].Results)
}

func TestRunBatch_TimeLimitStopsBatch(t *testing.T) {
	idx := exampleIndex(t)
	queries := []string{"a", "b", "a b"}

	outcomes, summary, err := runBatch(context.Background(), idx, queries,
		batchOptions{K: 10, TimeLimit: time.Nanosecond, Workers: 1}, nil)
	require.NoError(t, err)
	assert.True(t, summary.TLE)
	assert.Equal(t, 1, summary.Queries)
	assert.Len(t, outcomes, 1)

	_, summary, err = runBatch(context.Background(), idx, queries,
		batchOptions{K: 10, TimeLimit: time.Nanosecond, Verify: true, Workers: 1}, nil)
	require.NoError(t, err)
	assert.False(t, summary.TLE, "verification runs ignore the time limit")
	assert.Equal(t, 3, summary.Queries)
}

func TestWriteSummary(t *testing.T) {
	var b strings.Builder
	writeSummary(&b, batchSummary{Queries: 2, QueryLen: 3, Reported: 4, SumWeight: 6, Elapsed: 8 * time.Microsecond})

	out := b.String()
	assert.Contains(t, out, "# queries = 2\n")
	assert.Contains(t, out, "# query_len = 1\n")
	assert.Contains(t, out, "# time_per_query = 4\n")
	assert.Contains(t, out, "# time_per_doc = 2\n")
	assert.Contains(t, out, "# check_sum_fdt = 6\n")

	b.Reset()
	writeSummary(&b, batchSummary{})
	assert.Contains(t, b.String(), "# queries = 0\n")
}

func TestLoadConfig_StripsConfigFlag(t *testing.T) {
	cfg, rest, err := loadConfig("query", []string{"-k", "3", "-config=", "-q", "queries.txt"})
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, []string{"-k", "3", "-q", "queries.txt"}, rest)

	_, _, err = loadConfig("query", []string{"-config"})
	assert.Error(t, err)
}

// ═══════════════════════════════════════════════════════════════════════════════
// HTTP TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := newServer(exampleIndex(t), metrics.New(prometheus.NewRegistry()), 10)
	ts := httptest.NewServer(s.routes(true))
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestServer_Search(t *testing.T) {
	ts := newTestServer(t)

	var resp searchResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/search?q=a&k=2", &resp))
	assert.True(t, resp.Matched)
	assert.Equal(t, []searchResult{
		{DocID: 0, Name: "doc0", Weight: 2, Source: "grid"},
		{DocID: 2, Name: "doc2", Weight: 1, Source: "singleton"},
	}, resp.Results)

	resp = searchResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/search?q=2&ids=true&multi=true", &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, uint32(0), resp.Results[0].DocID)

	resp = searchResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/search?q=zebra", &resp))
	assert.False(t, resp.Matched)
	assert.Empty(t, resp.Results)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/search", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/search?q=a&k=0", nil))
}

func TestServer_Doc(t *testing.T) {
	ts := newTestServer(t)

	var doc docResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/doc?id=2", &doc))
	assert.Equal(t, docResponse{DocID: 2, Name: "doc2", Terms: []string{"b", "b", "a"}}, doc)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/doc?id=3", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/doc?id=x", nil))
}

func TestServer_MetricsAndHealth(t *testing.T) {
	ts := newTestServer(t)
	getJSON(t, ts.URL+"/search?q=a", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `surf_queries_total{outcome="match"} 1`)
	assert.Contains(t, string(body), "surf_index_documents 3")

	var health map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &health))
	assert.Equal(t, "up", health["status"])
}
