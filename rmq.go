package surf

import (
	"cmp"
	"math/bits"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RANGE MINIMUM QUERIES: Sparse Table
// ═══════════════════════════════════════════════════════════════════════════════
// table[k][i] is the index of the minimum of values[i, i+2^k). Any range is
// covered by two (possibly overlapping) power-of-two windows:
//
//	[l, h]  →  table[k][l]  and  table[k][h-2^k+1],  k = floor(log2(h-l+1))
//
// Ties always resolve to the leftmost index. The singleton enumeration relies
// on that: the leftmost minimum of the recency array in a range is the first
// occurrence of some document within it.
// ═══════════════════════════════════════════════════════════════════════════════

// rangeMin answers leftmost-minimum queries in O(1) after O(n log n) setup
type rangeMin[T cmp.Ordered] struct {
	values []T
	table  [][]uint32
}

func newRangeMin[T cmp.Ordered](values []T) *rangeMin[T] {
	n := len(values)
	r := &rangeMin[T]{values: values}
	if n == 0 {
		return r
	}

	levels := bits.Len(uint(n))
	r.table = make([][]uint32, levels)
	r.table[0] = make([]uint32, n)
	for i := range r.table[0] {
		r.table[0][i] = uint32(i)
	}
	for k := 1; k < levels; k++ {
		half := 1 << (k - 1)
		width := n - (1 << k) + 1
		row := make([]uint32, width)
		prev := r.table[k-1]
		for i := 0; i < width; i++ {
			row[i] = r.better(prev[i], prev[i+half])
		}
		r.table[k] = row
	}
	return r
}

// better picks the smaller value, the smaller index on ties
func (r *rangeMin[T]) better(a, b uint32) uint32 {
	va, vb := r.values[a], r.values[b]
	if vb < va || (vb == va && b < a) {
		return b
	}
	return a
}

// Min returns the index of the leftmost minimum in values[l..h], inclusive
func (r *rangeMin[T]) Min(l, h int) int {
	k := bits.Len(uint(h-l+1)) - 1
	return int(r.better(r.table[k][l], r.table[k][h-(1<<k)+1]))
}

// Len is the number of values covered
func (r *rangeMin[T]) Len() int {
	return len(r.values)
}
