package surf

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/hillbig/rsdic"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DUPLICATE REDUCTION: Mapping Match Ranges into the DUP Domain
// ═══════════════════════════════════════════════════════════════════════════════
// Boundary i (1 ≤ i < n) sits between suffix-array leaves i-1 and i. Every
// repeated document occurrence is charged to exactly one boundary, and H lists,
// boundary after boundary, one 0 per charged occurrence followed by a 1:
//
//	boundary:   1      2    3        4
//	H:          0 0 1  1    0 1      1
//	DUP index:  0 1         2
//
// The zeros between the sp-th and the ep-th one are the duplicates charged to
// boundaries sp+1..ep, which are exactly the boundaries inside the match range
// [sp, ep]. Counting them needs two select operations:
//
//	y   = select(ep)           position of the ep-th one
//	ep' = y - ep               zeros before it, minus one
//	sp' = select(sp) + 1 - sp  zeros before the sp-th one (0 when sp == 0)
//
// H is stored in a compressed rank/select dictionary; select is all we need.
// ═══════════════════════════════════════════════════════════════════════════════

// DupRange is an inclusive range of DUP indices
type DupRange struct {
	Begin int
	End   int
}

// EmptyDupRange is returned whenever a match range holds no duplicates
var EmptyDupRange = DupRange{Begin: 0, End: -1}

// Empty reports whether the range holds no index
func (r DupRange) Empty() bool {
	return r.Begin > r.End
}

// Len is the number of DUP indices in the range
func (r DupRange) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Begin + 1
}

// reductionMap wraps H. It is immutable and safe for concurrent readers.
type reductionMap struct {
	h     *rsdic.RSDic
	count int // ones in H, one per boundary
}

// newReductionMap compresses the scratch marking into H
func newReductionMap(marks *bitset.BitSet, length uint) *reductionMap {
	h := rsdic.New()
	for i := uint(0); i < length; i++ {
		h.PushBack(marks.Test(i))
	}
	return wrapReduction(h)
}

func wrapReduction(h *rsdic.RSDic) *reductionMap {
	return &reductionMap{h: h, count: int(h.Rank(h.Num(), true))}
}

// bits expands H back into a plain bit vector
func (m *reductionMap) bits() *bitset.BitSet {
	marks := bitset.New(uint(m.h.Num()))
	for i := 1; i <= m.count; i++ {
		marks.Set(uint(m.selectOne(i)))
	}
	return marks
}

// selectOne returns the position of the i-th one in H, 1-based
func (m *reductionMap) selectOne(i int) int64 {
	return int64(m.h.Select(uint64(i-1), true))
}

// MapToDup translates the match range [sp, ep] into its DUP range. The result
// is either well formed (Begin ≤ End) or EmptyDupRange.
func (m *reductionMap) MapToDup(sp, ep int) DupRange {
	if ep <= 0 || ep <= sp || ep > m.count {
		return EmptyDupRange
	}
	y := m.selectOne(ep)
	if y == 0 {
		return EmptyDupRange
	}
	end := y - int64(ep)

	var begin int64
	if sp > 0 {
		begin = m.selectOne(sp) + 1 - int64(sp)
	}
	if begin > end {
		return EmptyDupRange
	}
	return DupRange{Begin: int(begin), End: int(end)}
}

// nodeRange is the DUP range charged to a single boundary
func (m *reductionMap) nodeRange(boundary int) DupRange {
	return m.MapToDup(boundary-1, boundary)
}
