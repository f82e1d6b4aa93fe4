package surf

import (
	"errors"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PERSISTENCE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSaveOpen_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	c := randomCollection(rng, 20, 20, 4)
	opts := DefaultOptions()
	opts.Weighting = WeightingBM25
	idx, err := Build(c, opts)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, idx.Save(dir))
	for _, key := range ArtifactKeys {
		assert.FileExists(t, ArtifactPath(dir, key))
	}

	loaded, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, idx.DocCount(), loaded.DocCount())
	assert.Equal(t, idx.WordCount(), loaded.WordCount())
	assert.Equal(t, idx.Options(), loaded.Options())
	assert.Equal(t, idx.names, loaded.names)
	assert.Equal(t, idx.dup, loaded.dup)
	assert.Equal(t, idx.upPointer, loaded.upPointer)
	assert.Equal(t, idx.weights, loaded.weights)
	assert.Equal(t, idx.grid, loaded.grid)
	assert.Equal(t, idx.recency, loaded.recency)
	assert.Equal(t, idx.vocabulary.terms, loaded.vocabulary.terms)

	for _, p := range patternsUpTo(4, 3) {
		require.Equal(t, idx.Search(p, 0), loaded.Search(p, 0), "pattern %v", p)
	}
}

func TestOpen_MissingArtifact(t *testing.T) {
	idx := buildExample(t)
	dir := t.TempDir()
	require.NoError(t, idx.Save(dir))
	require.NoError(t, os.Remove(ArtifactPath(dir, KeyP)))

	_, err := Open(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingArtifact))

	var aerr *ArtifactError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KeyP, aerr.Key)
	assert.Equal(t, ArtifactPath(dir, KeyP), aerr.Path)
}

func TestOpen_EmptyDirectory(t *testing.T) {
	_, err := Open(t.TempDir())

	var aerr *ArtifactError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KeyMeta, aerr.Key, "meta loads first")
	assert.ErrorIs(t, err, ErrMissingArtifact)
}

func TestOpen_CorruptArtifact(t *testing.T) {
	idx := buildExample(t)

	tests := []struct {
		key  string
		data []byte
	}{
		{KeyDUP, []byte{1, 2}},
		{KeyWeights, []byte{9, 0, 0, 0}},
		{KeyGrid, []byte{}},
		{KeyMeta, []byte("version: [")},
		{KeyDict, append(encodeStrings([]string{"a"}), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, idx.Save(dir))
			require.NoError(t, os.WriteFile(ArtifactPath(dir, tt.key), tt.data, 0o644))

			_, err := Open(dir)
			assert.ErrorIs(t, err, ErrCorruptArtifact)

			var aerr *ArtifactError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tt.key, aerr.Key)
		})
	}
}

func TestOpen_DocumentCountMismatch(t *testing.T) {
	idx := buildExample(t)
	dir := t.TempDir()
	require.NoError(t, idx.Save(dir))
	require.NoError(t, os.WriteFile(ArtifactPath(dir, KeyDocNames), encodeStrings([]string{"only"}), 0o644))

	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrCorruptArtifact)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CODEC TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestIndexDecoder_Truncated(t *testing.T) {
	data := encodeUint64s([]uint64{1, 2, 3})

	d := newIndexDecoder(data[:len(data)-1])
	d.readUint64s()
	assert.Error(t, d.err)

	d = newIndexDecoder(data)
	assert.Equal(t, []uint64{1, 2, 3}, d.readUint64s())
	d.expectEnd()
	assert.NoError(t, d.err)
}

func TestDecodeGrid_ChildOutOfRange(t *testing.T) {
	g := NewWeightedGrid([]uint32{0, 1}, []uint64{1, 2})
	g.nodes[0].children[3] = 42

	_, err := decodeGrid(encodeGrid(g))
	assert.Error(t, err)
}
