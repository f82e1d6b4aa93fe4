package surf

import (
	"sort"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TEXT INDEX: Suffix Array over Token Ids
// ═══════════════════════════════════════════════════════════════════════════════
// The suffix array lists every suffix of the token text in lexicographic order.
// All occurrences of a pattern are then one contiguous block of it: the match
// range [sp, ep].
//
// EXAMPLE:
// --------
// Text (ids): a=2 b=3, "a b a SEP a SEP" followed by TERM
//
//	pos:  0 1 2 3 4 5 6
//	text: 2 3 2 1 2 1 0
//
//	SA:   6(0) 5(1 0) 3(1 2 1 0) 4(2 1 0) 2(2 1 2 1 0) 0(2 3 2 1 2 1 0) 1(3 2 ...)
//
// Pattern "a" (2) matches SA[3..5] → sp=3, ep=5, three occurrences.
// ═══════════════════════════════════════════════════════════════════════════════

// TextIndex answers pattern searches over the concatenated token text
type TextIndex struct {
	text []uint32
	sa   []uint32
}

// NewTextIndex builds the suffix array of text. The last token must be the
// terminator.
func NewTextIndex(text []uint32) *TextIndex {
	return &TextIndex{
		text: text,
		sa:   buildSuffixArray(text),
	}
}

// Size is the length of the text, terminator included
func (t *TextIndex) Size() int {
	return len(t.text)
}

// PositionAt returns the text offset of the i-th smallest suffix
func (t *TextIndex) PositionAt(i int) int {
	return int(t.sa[i])
}

// Extract copies text[begin, end)
func (t *TextIndex) Extract(begin, end int) []uint32 {
	out := make([]uint32, end-begin)
	copy(out, t.text[begin:end])
	return out
}

// Search returns the match range of pattern. Empty patterns and patterns
// holding reserved ids never match.
func (t *TextIndex) Search(pattern []uint32) (sp, ep int, ok bool) {
	if len(pattern) == 0 {
		return 0, 0, false
	}
	for _, tok := range pattern {
		if tok < firstTermID {
			return 0, 0, false
		}
	}

	n := len(t.sa)
	sp = sort.Search(n, func(i int) bool {
		return t.comparePrefix(int(t.sa[i]), pattern) >= 0
	})
	end := sort.Search(n, func(i int) bool {
		return t.comparePrefix(int(t.sa[i]), pattern) > 0
	})
	if sp >= end {
		return 0, 0, false
	}
	return sp, end - 1, true
}

// Count returns the number of occurrences of pattern
func (t *TextIndex) Count(pattern []uint32) int {
	sp, ep, ok := t.Search(pattern)
	if !ok {
		return 0
	}
	return ep - sp + 1
}

// comparePrefix compares the suffix at pos, cut to len(pattern), with pattern
func (t *TextIndex) comparePrefix(pos int, pattern []uint32) int {
	for k, tok := range pattern {
		if pos+k >= len(t.text) {
			return -1
		}
		c := t.text[pos+k]
		if c < tok {
			return -1
		}
		if c > tok {
			return 1
		}
	}
	return 0
}

// buildSuffixArray sorts suffixes by prefix doubling
//
// ALGORITHM:
// ----------
// After round k every suffix carries the rank of its first 2^k tokens. Sorting
// by the pair (rank[i], rank[i+2^k]) yields the ranks for 2^(k+1) tokens. The
// loop stops once all ranks are distinct, which the unique terminator
// guarantees after at most log2(n) rounds.
func buildSuffixArray(text []uint32) []uint32 {
	n := len(text)
	sa := make([]uint32, n)
	rank := make([]int, n)
	tmp := make([]int, n)
	for i := range sa {
		sa[i] = uint32(i)
		rank[i] = int(text[i])
	}
	if n <= 1 {
		return sa
	}

	for k := 1; ; k <<= 1 {
		second := func(i uint32) int {
			if int(i)+k < n {
				return rank[int(i)+k]
			}
			return -1
		}
		sort.Slice(sa, func(a, b int) bool {
			x, y := sa[a], sa[b]
			if rank[x] != rank[y] {
				return rank[x] < rank[y]
			}
			return second(x) < second(y)
		})

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			prev, cur := sa[i-1], sa[i]
			tmp[cur] = tmp[prev]
			if rank[prev] != rank[cur] || second(prev) != second(cur) {
				tmp[cur]++
			}
		}
		copy(rank, tmp)
		if rank[sa[n-1]] == n-1 {
			break
		}
	}
	return sa
}

// buildLCP computes lcp[i] = lcp(suffix sa[i-1], suffix sa[i]) with Kasai's
// algorithm; lcp[0] = 0.
func buildLCP(text []uint32, sa []uint32) []uint32 {
	n := len(text)
	lcp := make([]uint32, n)
	inv := make([]int, n)
	for i, p := range sa {
		inv[p] = i
	}
	h := 0
	for p := 0; p < n; p++ {
		r := inv[p]
		if r == 0 {
			h = 0
			continue
		}
		q := int(sa[r-1])
		for p+h < n && q+h < n && text[p+h] == text[q+h] {
			h++
		}
		lcp[r] = uint32(h)
		if h > 0 {
			h--
		}
	}
	return lcp
}
