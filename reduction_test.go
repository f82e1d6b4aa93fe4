package surf

import (
	"math/rand"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildParts runs the construction pipeline up to the reduction map
type buildParts struct {
	text    []uint32
	sa      []uint32
	lcp     []uint32
	borders *DocumentBorders
	tree    *lcpTree
	dups    *duplicates
	red     *reductionMap
}

func newBuildParts(t testing.TB, c *Collection) *buildParts {
	t.Helper()
	p := &buildParts{text: c.Text()}
	p.sa = buildSuffixArray(p.text)
	p.lcp = buildLCP(p.text, p.sa)
	p.borders = newDocumentBorders(p.text)
	p.tree = buildLCPTree(p.lcp)

	docLens := make([]int, len(c.Documents))
	for d, doc := range c.Documents {
		docLens[d] = len(doc.Tokens)
	}
	weigh, err := newWeightFunc(WeightingTF, DefaultBM25Parameters(), docLens)
	require.NoError(t, err)

	p.dups, err = buildDuplicates(p.sa, p.lcp, p.borders, p.tree, docLens, weigh)
	require.NoError(t, err)
	p.red = newReductionMap(p.dups.marks, p.dups.length)
	require.NoError(t, p.dups.checkRanges(p.red))
	return p
}

func exampleCollection() *Collection {
	c := NewCollection(DefaultAnalyzerConfig())
	c.AddTerms("doc0", []string{"a", "b", "a"})
	c.AddTerms("doc1", []string{"a"})
	c.AddTerms("doc2", []string{"b", "b", "a"})
	return c
}

// ═══════════════════════════════════════════════════════════════════════════════
// DUPLICATE CONSTRUCTION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestBuildDuplicates_Example(t *testing.T) {
	p := newBuildParts(t, exampleCollection())

	// SA = 10 9 3 5 8 2 4 0 7 1 6, documents 3 2 0 1 2 0 1 0 2 0 2
	assert.Equal(t, []uint32{10, 9, 3, 5, 8, 2, 4, 0, 7, 1, 6}, p.sa)
	assert.Equal(t, []uint64{0, 0, 0, 0, 2, 3, 4, 6, 5, 8, 9}, p.dups.recency)

	// one duplicate per repeated leaf: 11 leaves, 4 documents
	assert.Len(t, p.dups.dup, 7)
	assert.Equal(t, uint(10+7), p.dups.length)
	assert.Equal(t, uint(10), p.dups.marks.Count())
}

func TestBuildDuplicates_MarksMismatch(t *testing.T) {
	p := newBuildParts(t, exampleCollection())

	p.dups.marks.Flip(0)
	err := p.dups.checkMarks()
	assert.ErrorIs(t, err, ErrMalformedReduction)

	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "duplicate reduction", cerr.Stage)
}

func TestCheckRanges_DetectsCorruptH(t *testing.T) {
	p := newBuildParts(t, exampleCollection())

	// move every one to the front: all duplicates now follow the last boundary
	marks := bitset.New(p.dups.length)
	for b := uint(0); b < p.dups.marks.Count(); b++ {
		marks.Set(b)
	}
	red := newReductionMap(marks, p.dups.length)
	assert.ErrorIs(t, p.dups.checkRanges(red), ErrMalformedReduction)
}

// ═══════════════════════════════════════════════════════════════════════════════
// MAP TO DUP TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestMapToDup_NodeRanges(t *testing.T) {
	p := newBuildParts(t, exampleCollection())

	for b := 1; b < len(p.sa); b++ {
		r := p.red.nodeRange(b)
		assert.Equal(t, int(p.dups.counts[b]), r.Len(), "boundary %d", b)
		for x := r.Begin; x <= r.End; x++ {
			assert.Equal(t, uint32(b), p.dups.boundary[x], "boundary %d index %d", b, x)
		}
	}
}

func TestMapToDup_Total(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	c := randomCollection(rng, 12, 10, 3)
	p := newBuildParts(t, c)
	n := len(p.sa)

	for sp := -1; sp <= n; sp++ {
		for ep := -1; ep <= n; ep++ {
			r := p.red.MapToDup(sp, ep)
			if r.Empty() {
				require.Equal(t, EmptyDupRange, r, "[%d, %d]", sp, ep)
				continue
			}
			require.GreaterOrEqual(t, r.Begin, 0)
			require.Less(t, r.End, len(p.dups.dup))

			// exactly the duplicates charged to boundaries sp+1..ep
			want := 0
			for _, b := range p.dups.boundary {
				if int(b) > sp && int(b) <= ep {
					want++
				}
			}
			require.Equal(t, want, r.Len(), "[%d, %d]", sp, ep)
		}
	}
}

func TestMapToDup_Degenerate(t *testing.T) {
	p := newBuildParts(t, exampleCollection())

	assert.True(t, p.red.MapToDup(4, 4).Empty(), "single leaf")
	assert.True(t, p.red.MapToDup(5, 4).Empty(), "inverted range")
	assert.True(t, p.red.MapToDup(0, 0).Empty())
	assert.True(t, p.red.MapToDup(0, 100).Empty(), "past the last boundary")
	assert.Equal(t, 0, EmptyDupRange.Len())
}

func TestReductionMap_Bits(t *testing.T) {
	p := newBuildParts(t, exampleCollection())
	assert.True(t, p.dups.marks.Equal(p.red.bits()))
}
