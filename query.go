package surf

import (
	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BOOLEAN QUERY BUILDER
// ═══════════════════════════════════════════════════════════════════════════════
// Combines the document sets of several phrase patterns with AND, OR and NOT.
// Each pattern's document set comes from a full top-k enumeration and is held
// as a roaring bitmap, so the boolean algebra is plain bitmap arithmetic.
//
// EXAMPLE:
// --------
//
//	docs := NewQueryBuilder(idx).
//		Phrase("machine learning").
//		And().Not().Phrase("deep learning").
//		Execute()
//
// Operators apply left to right: A AND B OR C is (A AND B) OR C. Use Group for
// anything else.
// ═══════════════════════════════════════════════════════════════════════════════

// QueryBuilder provides a fluent interface for building boolean queries
type QueryBuilder struct {
	index    *Index
	stack    []*roaring.Bitmap // operand document sets
	ops      []QueryOp         // operator between stack[i] and stack[i+1]
	negate   bool              // negate the next operand
	patterns [][]uint32        // non-negated patterns, for ranking
}

// QueryOp is a pending boolean operation
type QueryOp int

const (
	OpNone QueryOp = iota
	OpAnd
	OpOr
)

// NewQueryBuilder creates a query builder over idx
func NewQueryBuilder(idx *Index) *QueryBuilder {
	return &QueryBuilder{index: idx}
}

// Phrase adds the documents containing query text, analyzed like the indexed
// documents. A phrase with an unknown term matches nothing.
func (qb *QueryBuilder) Phrase(text string) *QueryBuilder {
	pattern, ok := qb.index.Tokens(text)
	if !ok {
		return qb.Tokens(nil)
	}
	return qb.Tokens(pattern)
}

// Tokens adds the documents containing pattern
func (qb *QueryBuilder) Tokens(pattern []uint32) *QueryBuilder {
	if !qb.negate && len(pattern) > 0 {
		qb.patterns = append(qb.patterns, pattern)
	}
	bitmap := qb.index.DocumentSet(pattern)
	if qb.negate {
		bitmap = qb.negateBitmap(bitmap)
		qb.negate = false
	}
	qb.stack = append(qb.stack, bitmap)
	return qb
}

// And intersects the next operand with the result so far
func (qb *QueryBuilder) And() *QueryBuilder {
	qb.ops = append(qb.ops, OpAnd)
	return qb
}

// Or unites the next operand with the result so far
func (qb *QueryBuilder) Or() *QueryBuilder {
	qb.ops = append(qb.ops, OpOr)
	return qb
}

// Not negates the next operand
func (qb *QueryBuilder) Not() *QueryBuilder {
	qb.negate = true
	return qb
}

// Group evaluates fn as a parenthesized sub-query
func (qb *QueryBuilder) Group(fn func(*QueryBuilder)) *QueryBuilder {
	sub := NewQueryBuilder(qb.index)
	fn(sub)
	result := sub.Execute()
	if qb.negate {
		result = qb.negateBitmap(result)
		qb.negate = false
	} else {
		qb.patterns = append(qb.patterns, sub.patterns...)
	}
	qb.stack = append(qb.stack, result)
	return qb
}

// Execute evaluates the query and returns the matching document ids
func (qb *QueryBuilder) Execute() *roaring.Bitmap {
	if len(qb.stack) == 0 {
		return roaring.New()
	}
	result := qb.stack[0].Clone()
	for i := 1; i < len(qb.stack); i++ {
		if i-1 >= len(qb.ops) {
			break
		}
		switch qb.ops[i-1] {
		case OpAnd:
			result.And(qb.stack[i])
		case OpOr:
			result.Or(qb.stack[i])
		}
	}
	return result
}

// ExecuteRanked evaluates the query and ranks the matching documents by the
// summed occurrence count of the non-negated patterns
func (qb *QueryBuilder) ExecuteRanked(maxResults int) []Result {
	docs := qb.Execute()
	weights := make(map[uint32]uint64, docs.GetCardinality())
	for _, pattern := range qb.patterns {
		for doc, tf := range qb.index.Frequencies(pattern) {
			if docs.Contains(doc) {
				weights[doc] += uint64(tf)
			}
		}
	}

	results := make([]Result, 0, len(weights))
	iter := docs.Iterator()
	for iter.HasNext() {
		doc := iter.Next()
		results = append(results, Result{DocID: doc, Weight: weights[doc]})
	}
	SortByWeight(results)
	return limitResults(results, maxResults)
}

func (qb *QueryBuilder) negateBitmap(bitmap *roaring.Bitmap) *roaring.Bitmap {
	all := roaring.New()
	all.AddRange(0, uint64(qb.index.DocCount()))
	return roaring.AndNot(all, bitmap)
}

// DocumentSet returns every document containing pattern
func (idx *Index) DocumentSet(pattern []uint32) *roaring.Bitmap {
	docs := roaring.New()
	it := idx.TopK(pattern, false, false)
	for it.Next() {
		docs.Add(it.Result().DocID)
	}
	return docs
}

// AllOf returns the documents containing every phrase
func AllOf(idx *Index, phrases ...string) *roaring.Bitmap {
	if len(phrases) == 0 {
		return roaring.New()
	}
	qb := NewQueryBuilder(idx).Phrase(phrases[0])
	for _, p := range phrases[1:] {
		qb.And().Phrase(p)
	}
	return qb.Execute()
}

// AnyOf returns the documents containing at least one phrase
func AnyOf(idx *Index, phrases ...string) *roaring.Bitmap {
	if len(phrases) == 0 {
		return roaring.New()
	}
	qb := NewQueryBuilder(idx).Phrase(phrases[0])
	for _, p := range phrases[1:] {
		qb.Or().Phrase(p)
	}
	return qb.Execute()
}

// PhraseExcluding returns the documents containing include but not exclude
func PhraseExcluding(idx *Index, include, exclude string) *roaring.Bitmap {
	return NewQueryBuilder(idx).
		Phrase(include).
		And().Not().Phrase(exclude).
		Execute()
}
