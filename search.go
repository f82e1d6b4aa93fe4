package surf

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TOP-K DOCUMENT LISTING
// ═══════════════════════════════════════════════════════════════════════════════
// A query runs in two phases behind one iterator:
//
//	GRID PHASE       documents occurring at least twice in the match range,
//	                 heaviest first, straight from the weighted grid
//	SINGLETON PHASE  documents occurring exactly once, weight 1, found with
//	                 range-minimum queries over the recency array
//
// STATE MACHINE:
// --------------
//
//	searching ──no match──────────────────────────────▶ exhausted
//	    │
//	    ├──match, duplicates──▶ grid ──drained──┬─multiOcc──▶ exhausted
//	    │                                       ▼
//	    └──match, none─────────────────────▶ singleton ──drained──▶ exhausted
//
// Searching happens inside TopK, so a returned iterator is already in one of
// the other three states. Every document is reported at most once.
//
// ORDER:
// ------
// Grid results come out in non-increasing weight order (ties on smaller DUP
// index). Singletons all weigh 1 and follow the grid results. Under bm25
// weighting the two phases are not merged into one order; callers needing a
// single global order over a materialized prefix use SortByWeight.
// ═══════════════════════════════════════════════════════════════════════════════

// Source tells which phase produced a result
type Source uint8

const (
	SourceGrid Source = iota
	SourceSingleton
)

func (s Source) String() string {
	switch s {
	case SourceGrid:
		return "grid"
	case SourceSingleton:
		return "singleton"
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// Result is one reported document
type Result struct {
	DocID  uint32
	Weight uint64
	Source Source
}

type iteratorState uint8

const (
	stateGrid iteratorState = iota
	stateSingleton
	stateExhausted
)

// TopKIterator lazily reports the documents containing a pattern. It is owned
// by a single goroutine; the index behind it may be shared.
//
// Usage:
//
//	it := idx.TopK(pattern, false, false)
//	for it.Next() {
//		r := it.Result()
//		...
//	}
type TopKIterator struct {
	idx      *Index
	matched  bool
	multiOcc bool
	state    iteratorState

	grid      *GridCursor
	reported  *roaring.Bitmap
	singleton *roaring.Bitmap
	pending   [][2]int

	current Result
}

// TopK starts a query for pattern (token ids). With multiOcc only documents
// occurring at least twice are reported. With matchOnly the iterator only
// answers Matched and reports nothing.
func (idx *Index) TopK(pattern []uint32, multiOcc, matchOnly bool) *TopKIterator {
	it := &TopKIterator{idx: idx, multiOcc: multiOcc, state: stateExhausted}

	sp, ep, ok := idx.text.Search(pattern)
	if !ok {
		return it
	}
	it.matched = true
	if matchOnly {
		return it
	}

	it.reported = roaring.New()
	r := idx.reduction.MapToDup(sp, ep)
	if !r.Empty() {
		it.grid = idx.grid.TopK(r.Begin, r.End, uint32(len(pattern)-1))
		it.state = stateGrid
	} else if !multiOcc {
		it.state = stateSingleton
	}
	if !multiOcc {
		it.singleton = roaring.New()
		it.pending = [][2]int{{sp, ep}}
	}
	return it
}

// Matches reports whether pattern occurs anywhere in the collection
func (idx *Index) Matches(pattern []uint32) bool {
	return idx.TopK(pattern, false, true).Matched()
}

// Matched reports whether the pattern occurs at all
func (it *TopKIterator) Matched() bool {
	return it.matched
}

// Result returns the result Next advanced to
func (it *TopKIterator) Result() Result {
	return it.current
}

// Next advances to the next document. It returns false once every document
// has been reported; further calls keep returning false.
func (it *TopKIterator) Next() bool {
	if it.state == stateGrid {
		if p, ok := it.grid.Next(); ok {
			doc := it.idx.dup[p.X]
			it.reported.Add(doc)
			it.current = Result{DocID: doc, Weight: p.Weight, Source: SourceGrid}
			return true
		}
		it.grid = nil
		if it.multiOcc {
			it.state = stateExhausted
			return false
		}
		it.state = stateSingleton
	}

	if it.state == stateSingleton {
		if it.nextSingleton() {
			return true
		}
		it.state = stateExhausted
	}
	return false
}

// nextSingleton continues the recency enumeration
//
// ALGORITHM:
// ----------
// C[i] points one past the previous leaf of the same document, so inside a
// range [l, r] the leftmost minimum of C is always the first leaf of some
// document not yet seen in [l, r]. Splitting around it and recursing lists
// each document of the range once; a document met a second time ends its
// branch. Sub-ranges are pushed right first so the left one is explored first.
func (it *TopKIterator) nextSingleton() bool {
	idx := it.idx
	for len(it.pending) > 0 {
		last := len(it.pending) - 1
		l, r := it.pending[last][0], it.pending[last][1]
		it.pending = it.pending[:last]

		m := idx.recency.Min(l, r)
		doc := idx.borders.Rank(idx.text.PositionAt(m))
		if it.singleton.Contains(doc) {
			continue
		}
		it.singleton.Add(doc)
		if m+1 <= r {
			it.pending = append(it.pending, [2]int{m + 1, r})
		}
		if l <= m-1 {
			it.pending = append(it.pending, [2]int{l, m - 1})
		}

		if !it.reported.Contains(doc) {
			it.reported.Add(doc)
			it.current = Result{DocID: doc, Weight: 1, Source: SourceSingleton}
			return true
		}
	}
	return false
}

// Search returns up to k results for pattern; k <= 0 returns all of them
func (idx *Index) Search(pattern []uint32, k int) []Result {
	it := idx.TopK(pattern, false, false)
	var results []Result
	for (k <= 0 || len(results) < k) && it.Next() {
		results = append(results, it.Result())
	}
	return results
}

// SortByWeight orders results by weight, heaviest first. Equal weights keep
// their relative order.
func SortByWeight(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Weight > results[j].Weight
	})
}

// limitResults returns at most maxResults results
func limitResults(results []Result, maxResults int) []Result {
	if maxResults <= 0 || len(results) <= maxResults {
		return results
	}
	return results[:maxResults]
}

// Frequencies counts the occurrences of pattern per document by scanning the
// whole match range
func (idx *Index) Frequencies(pattern []uint32) map[uint32]int {
	freq := make(map[uint32]int)
	sp, ep, ok := idx.text.Search(pattern)
	if !ok {
		return freq
	}
	for i := sp; i <= ep; i++ {
		freq[idx.borders.Rank(idx.text.PositionAt(i))]++
	}
	return freq
}

// Verify checks results for pattern against a full scan of the match range:
// every document must contain the pattern and appear once, singletons must
// occur exactly once, and under tf weighting grid weights must equal the
// occurrence count. With multiOcc every document must occur at least twice.
func (idx *Index) Verify(pattern []uint32, results []Result, multiOcc bool) error {
	freq := idx.Frequencies(pattern)
	if len(results) > len(freq) {
		return fmt.Errorf("%d results for %d matching documents", len(results), len(freq))
	}

	seen := make(map[uint32]bool, len(results))
	for _, r := range results {
		if seen[r.DocID] {
			return fmt.Errorf("document %d reported twice", r.DocID)
		}
		seen[r.DocID] = true

		tf, ok := freq[r.DocID]
		if !ok {
			return fmt.Errorf("document %d does not contain the pattern", r.DocID)
		}
		if multiOcc && tf < 2 {
			return fmt.Errorf("document %d occurs %d time(s) in multi-occurrence mode", r.DocID, tf)
		}
		switch {
		case r.Source == SourceSingleton && tf != 1:
			return fmt.Errorf("document %d reported as singleton but occurs %d times", r.DocID, tf)
		case r.Source == SourceGrid && tf < 2:
			return fmt.Errorf("document %d reported by the grid but occurs once", r.DocID)
		case r.Source == SourceGrid && idx.options.Weighting == WeightingTF && uint64(tf) != r.Weight:
			return fmt.Errorf("document %d: weight %d, frequency %d", r.DocID, r.Weight, tf)
		}
	}
	return nil
}
