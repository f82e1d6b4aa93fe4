package surf

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DUPLICATE ARRAY CONSTRUCTION
// ═══════════════════════════════════════════════════════════════════════════════
// Walking the suffix array left to right, a leaf i whose document already
// appeared at an earlier leaf j is a duplicate. It is charged to the lowest
// common ancestor of leaves j and i, more precisely to that node's first
// boundary. The LCA is found without walking the tree: the boundary holding the
// minimum LCP in [j+1, i] is an l-index of exactly that node.
//
// OUTPUT:
// -------
//	DUP[x]     document of the x-th duplicate, grouped by boundary
//	W[x]       weight of that document at the charged node
//	C[i]       recency: previous leaf of the same document plus one, 0 if none
//	H          per boundary: one 0 per duplicate, then a 1
//
// A document with tf occurrences under node v leaves tf-1 duplicates in v's
// subtree. The up-pointer pass later keeps exactly one of them visible to a
// query on v, and that one carries the weight of the document at v.
// ═══════════════════════════════════════════════════════════════════════════════

// duplicates is the output of the construction pass
type duplicates struct {
	dup      []uint32
	weights  []uint64
	recency  []uint64
	boundary []uint32 // boundary each duplicate is charged to
	marks    *bitset.BitSet
	length   uint // bits of H

	counts  []uint32 // duplicates per boundary
	offsets []int    // offsets[b] = first DUP index of boundary b
}

// buildDuplicates charges every repeated document occurrence to its node
func buildDuplicates(sa, lcp []uint32, borders *DocumentBorders, tree *lcpTree, docLens []int, weigh weightFunc) (*duplicates, error) {
	n := len(sa)
	docCount := borders.DocCount()

	// Document array: D[i] = rank(SA[i]). The terminator leaf gets docCount.
	docs := make([]uint32, n)
	occurrences := make([][]uint32, docCount+1)
	for i, pos := range sa {
		d := borders.Rank(int(pos))
		docs[i] = d
		occurrences[d] = append(occurrences[d], uint32(i))
	}

	lcpMin := newRangeMin(lcp)
	previous := make([]int, docCount+1)
	for d := range previous {
		previous[d] = -1
	}

	out := &duplicates{recency: make([]uint64, n)}
	counts := make([]uint32, n)
	out.counts = counts
	type charge struct {
		boundary uint32
		doc      uint32
		node     int32
	}
	var charges []charge

	for i := 0; i < n; i++ {
		d := docs[i]
		if j := previous[d]; j >= 0 {
			out.recency[i] = uint64(j + 1)
			b := lcpMin.Min(j+1, i)
			node := tree.boundaryNode[b]
			first := tree.nodes[node].firstBoundary
			counts[first]++
			charges = append(charges, charge{boundary: first, doc: d, node: node})
		}
		previous[d] = i
	}

	// Group by boundary, keeping leaf order inside a group.
	offsets := make([]int, n+1)
	for b := 1; b < n; b++ {
		offsets[b+1] = offsets[b] + int(counts[b])
	}
	out.offsets = offsets
	out.dup = make([]uint32, len(charges))
	out.weights = make([]uint64, len(charges))
	out.boundary = make([]uint32, len(charges))
	next := make([]int, n)
	copy(next, offsets[:n])

	for _, c := range charges {
		x := next[c.boundary]
		next[c.boundary]++
		node := &tree.nodes[c.node]
		tf := countIn(occurrences[c.doc], node.lb, node.rb)
		out.dup[x] = c.doc
		out.weights[x] = weigh(uint64(tf), docLens[c.doc])
		out.boundary[x] = c.boundary
	}

	// H: for b = 1..n-1, counts[b] zeros then a one.
	if n > 1 {
		out.length = uint(n-1) + uint(len(charges))
	}
	out.marks = bitset.New(out.length)
	for b := 1; b < n; b++ {
		out.marks.Set(uint(b-1) + uint(offsets[b+1]))
	}

	if err := out.checkMarks(); err != nil {
		return nil, err
	}
	return out, nil
}

// checkMarks verifies that the b-th one of H follows exactly the duplicates
// charged to boundaries 1..b
func (d *duplicates) checkMarks() error {
	for b := 1; b < len(d.counts); b++ {
		pos := uint(b-1) + uint(d.offsets[b]) + uint(d.counts[b])
		if !d.marks.Test(pos) || d.marks.Rank(pos) != uint(b) {
			return &ConstructionError{
				Stage: "duplicate reduction",
				Err:   fmt.Errorf("boundary %d: misplaced one at %d: %w", b, pos, ErrMalformedReduction),
			}
		}
	}
	return nil
}

// checkRanges verifies every boundary's DUP range against the compressed H
func (d *duplicates) checkRanges(red *reductionMap) error {
	for b := 1; b < len(d.counts); b++ {
		if d.counts[b] == 0 {
			continue
		}
		r := red.nodeRange(b)
		if r.Len() != int(d.counts[b]) || r.Begin != d.offsets[b] {
			return &ConstructionError{
				Stage: "duplicate reduction",
				Err: fmt.Errorf("boundary %d: range [%d, %d], want %d entries from %d: %w",
					b, r.Begin, r.End, d.counts[b], d.offsets[b], ErrMalformedReduction),
			}
		}
	}
	return nil
}

// countIn counts sorted leaf positions within [lb, rb]
func countIn(leaves []uint32, lb, rb uint32) int {
	lo := sort.Search(len(leaves), func(k int) bool { return leaves[k] >= lb })
	hi := sort.Search(len(leaves), func(k int) bool { return leaves[k] > rb })
	return hi - lo
}
