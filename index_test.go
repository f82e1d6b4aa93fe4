package surf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Token ids of the example collection below
const (
	tokA uint32 = 2
	tokB uint32 = 3
)

// buildExample indexes three documents over the terms a and b:
//
//	doc0: a b a
//	doc1: a
//	doc2: b b a
func buildExample(t testing.TB) *Index {
	t.Helper()
	return buildExampleWith(t, DefaultOptions())
}

func buildExampleWith(t testing.TB, opts Options) *Index {
	t.Helper()
	c := NewCollection(DefaultAnalyzerConfig())
	c.AddTerms("doc0", []string{"a", "b", "a"})
	c.AddTerms("doc1", []string{"a"})
	c.AddTerms("doc2", []string{"b", "b", "a"})

	idx, err := Build(c, opts)
	require.NoError(t, err)
	return idx
}

// ═══════════════════════════════════════════════════════════════════════════════
// BUILD TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestBuild_Counts(t *testing.T) {
	idx := buildExample(t)

	assert.Equal(t, 3, idx.DocCount())
	assert.Equal(t, 7, idx.WordCount(), "separators and terminator are not words")
	assert.Equal(t, WeightingTF, idx.Options().Weighting)
	assert.Equal(t, 2, idx.Vocabulary().Size())
}

func TestBuild_EmptyCollection(t *testing.T) {
	_, err := Build(NewCollection(DefaultAnalyzerConfig()), DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyCollection)

	_, err = Build(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyCollection)
}

func TestBuild_ReservedToken(t *testing.T) {
	c := NewCollection(DefaultAnalyzerConfig())
	c.AddTokens("bad", []uint32{2, TokenSeparator, 3})

	_, err := Build(c, DefaultOptions())
	assert.Error(t, err)
}

func TestBuild_UnknownWeighting(t *testing.T) {
	c := NewCollection(DefaultAnalyzerConfig())
	c.AddTerms("doc", []string{"a"})

	opts := DefaultOptions()
	opts.Weighting = "idf"
	_, err := Build(c, opts)
	assert.ErrorIs(t, err, ErrUnknownWeighting)
}

func TestBuild_EmptyDocument(t *testing.T) {
	c := NewCollection(DefaultAnalyzerConfig())
	c.AddTerms("first", []string{"x", "y"})
	c.AddTerms("empty", nil)
	c.AddTerms("last", []string{"x"})

	idx, err := Build(c, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, idx.DocCount())
	doc, err := idx.Document(1)
	require.NoError(t, err)
	assert.Empty(t, doc)

	x, _ := c.Vocabulary.ID("x")
	assert.ElementsMatch(t, []uint32{0, 2}, docIDs(idx.Search([]uint32{x}, 0)))
}

func TestBuild_SingleDocument(t *testing.T) {
	c := NewCollection(DefaultAnalyzerConfig())
	c.AddTerms("only", []string{"x", "x", "x"})

	idx, err := Build(c, DefaultOptions())
	require.NoError(t, err)

	x, _ := c.Vocabulary.ID("x")
	results := idx.Search([]uint32{x}, 0)
	require.Len(t, results, 1)
	assert.Equal(t, Result{DocID: 0, Weight: 3, Source: SourceGrid}, results[0])

	results = idx.Search([]uint32{x, x}, 0)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(2), results[0].Weight)
}

// ═══════════════════════════════════════════════════════════════════════════════
// DOCUMENT ACCESS TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestIndex_Document(t *testing.T) {
	idx := buildExample(t)

	tests := []struct {
		doc  uint32
		want []uint32
	}{
		{0, []uint32{tokA, tokB, tokA}},
		{1, []uint32{tokA}},
		{2, []uint32{tokB, tokB, tokA}},
	}
	for _, tt := range tests {
		got, err := idx.Document(tt.doc)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "document %d", tt.doc)
	}

	_, err := idx.Document(3)
	assert.True(t, errors.Is(err, ErrDocumentOutOfRange))
}

func TestIndex_DocumentText(t *testing.T) {
	idx := buildExample(t)

	terms, err := idx.DocumentText(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "b", "a"}, terms)

	assert.Equal(t, "doc1", idx.DocumentName(1))
	assert.Equal(t, "", idx.DocumentName(7))
}

func TestIndex_Count(t *testing.T) {
	idx := buildExample(t)

	assert.Equal(t, 4, idx.Count([]uint32{tokA}))
	assert.Equal(t, 3, idx.Count([]uint32{tokB}))
	assert.Equal(t, 2, idx.Count([]uint32{tokB, tokA}))
	assert.Equal(t, 0, idx.Count([]uint32{tokA, tokA}))
	assert.Equal(t, 0, idx.Count(nil))
}

func TestIndex_Tokens(t *testing.T) {
	idx := buildExample(t)

	pattern, ok := idx.Tokens("B a")
	require.True(t, ok)
	assert.Equal(t, []uint32{tokB, tokA}, pattern)

	_, ok = idx.Tokens("a zebra")
	assert.False(t, ok, "unknown term cannot match")

	_, ok = idx.Tokens("   ")
	assert.False(t, ok)
}

func TestBuildFromDir(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"01.txt": "The quick brown fox",
		"02.txt": "The lazy dog and the quick cat",
		"03.txt": "   ",
	})

	idx, err := BuildFromDir(dir, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, idx.DocCount(), "files without tokens are skipped")
	assert.Equal(t, "01.txt", idx.DocumentName(0))

	pattern, ok := idx.Tokens("the quick")
	require.True(t, ok)
	assert.ElementsMatch(t, []uint32{0, 1}, docIDs(idx.Search(pattern, 0)))
}

func docIDs(results []Result) []uint32 {
	ids := make([]uint32, len(results))
	for i, r := range results {
		ids[i] = r.DocID
	}
	return ids
}
