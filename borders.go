package surf

import (
	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DOCUMENT BOUNDARY MAP
// ═══════════════════════════════════════════════════════════════════════════════
// A roaring bitmap holding the text offset of every document separator.
//
//	text:     a b a SEP a SEP b b a SEP TERM
//	offset:   0 1 2  3  4  5  6 7 8  9   10
//	borders:  {3, 5, 9}
//
// rank(offset)  = separators strictly before offset = document id of offset
// select(d)     = offset of the d-th separator (1-based), the end of doc d-1
//
// The separator itself belongs to the document it closes. Borders are sparse
// (one per document), which is the case roaring's array containers compress.
// ═══════════════════════════════════════════════════════════════════════════════

// DocumentBorders converts between text offsets and document ids
type DocumentBorders struct {
	bitmap *roaring.Bitmap
}

// newDocumentBorders marks every separator of text
func newDocumentBorders(text []uint32) *DocumentBorders {
	bm := roaring.New()
	for i, tok := range text {
		if tok == TokenSeparator {
			bm.Add(uint32(i))
		}
	}
	bm.RunOptimize()
	return &DocumentBorders{bitmap: bm}
}

// Rank returns the id of the document owning text offset pos
func (b *DocumentBorders) Rank(pos int) uint32 {
	if pos <= 0 {
		return 0
	}
	return uint32(b.bitmap.Rank(uint32(pos - 1)))
}

// Select returns the offset of the d-th separator, 1-based
func (b *DocumentBorders) Select(d uint32) int {
	pos, err := b.bitmap.Select(d - 1)
	if err != nil {
		return -1
	}
	return int(pos)
}

// DocCount is the number of documents
func (b *DocumentBorders) DocCount() uint32 {
	return uint32(b.bitmap.GetCardinality())
}

// Span returns the text range [begin, end) of document d, separator excluded
func (b *DocumentBorders) Span(d uint32) (begin, end int) {
	if d > 0 {
		begin = b.Select(d) + 1
	}
	return begin, b.Select(d + 1)
}
