package surf

import (
	"fmt"
	"log/slog"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INDEX OVERVIEW
// ═══════════════════════════════════════════════════════════════════════════════
// A document-listing index: given a token pattern, report the documents that
// contain it, heaviest first, without ever scanning all occurrences.
//
// COMPONENTS:
// -----------
//	text index      → suffix array: pattern → match range [sp, ep]
//	borders         → text offset → document id
//	reduction map H → match range → range of duplicates [sp', ep']
//	DUP, P, W       → document, up-pointer and weight per duplicate
//	weighted grid   → heaviest duplicates in [sp', ep'] with P < |pattern|
//	recency RMQ     → documents occurring once in the match range
//
// BUILD PIPELINE:
// ---------------
//	collection → text → SA, LCP → borders → LCP-interval tree
//	           → DUP, W, C, H → up-pointers P → grid(P, W) → RMQ over C
//
// An Index is immutable after Build or Open. Any number of goroutines may run
// queries against it at once; each query owns its iterator.
// ═══════════════════════════════════════════════════════════════════════════════

// Options controls how an index is built
type Options struct {
	Analyzer  AnalyzerConfig
	Weighting Weighting
	BM25      BM25Parameters
}

// DefaultOptions returns tf weighting with the default analyzer
func DefaultOptions() Options {
	return Options{
		Analyzer:  DefaultAnalyzerConfig(),
		Weighting: WeightingTF,
		BM25:      DefaultBM25Parameters(),
	}
}

// Index is a read-only document-listing index
type Index struct {
	text      *TextIndex
	borders   *DocumentBorders
	reduction *reductionMap
	dup       []uint32
	upPointer []uint32
	weights   []uint64
	grid      *WeightedGrid
	recency   *rangeMin[uint64]

	vocabulary *Vocabulary
	names      []string
	options    Options
}

// Build constructs an index over c
//
// STEP-BY-STEP EXAMPLE:
// ---------------------
// Documents: doc0 "a b a", doc1 "a", doc2 "b b a"
//
// Step 1: text = a b a SEP a SEP b b a SEP TERM, then its suffix array
//
// Step 2: every leaf whose document already appeared to its left becomes a
// duplicate, charged to the LCA of the two leaves
//
// Step 3: up-pointers link each duplicate to the next duplicate of the same
// document higher in the tree
//
// Step 4: duplicates go into the grid as (index, up-pointer, weight)
//
// Querying "a" afterwards reports doc0 (2), doc2 (1) and doc1 (1).
func Build(c *Collection, opts Options) (*Index, error) {
	if c == nil {
		return nil, ErrEmptyCollection
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if _, err := ParseWeighting(string(opts.Weighting)); err != nil {
		return nil, err
	}
	if opts.Weighting == "" {
		opts.Weighting = WeightingTF
	}

	start := time.Now()
	text := c.Text()
	docLens := make([]int, len(c.Documents))
	names := make([]string, len(c.Documents))
	for d, doc := range c.Documents {
		docLens[d] = len(doc.Tokens)
		names[d] = doc.Name
	}

	idx := &Index{
		vocabulary: c.Vocabulary,
		names:      names,
		options:    opts,
	}

	stage := time.Now()
	idx.text = NewTextIndex(text)
	lcp := buildLCP(text, idx.text.sa)
	slog.Info("text index built",
		slog.Int("size", len(text)),
		slog.Duration("elapsed", time.Since(stage)))

	stage = time.Now()
	idx.borders = newDocumentBorders(text)
	slog.Info("document borders built",
		slog.Int("documents", int(idx.borders.DocCount())),
		slog.Duration("elapsed", time.Since(stage)))

	stage = time.Now()
	tree := buildLCPTree(lcp)
	weigh, err := newWeightFunc(opts.Weighting, opts.BM25, docLens)
	if err != nil {
		return nil, err
	}
	dups, err := buildDuplicates(idx.text.sa, lcp, idx.borders, tree, docLens, weigh)
	if err != nil {
		return nil, err
	}
	idx.reduction = newReductionMap(dups.marks, dups.length)
	if err := dups.checkRanges(idx.reduction); err != nil {
		return nil, err
	}
	idx.dup = dups.dup
	idx.weights = dups.weights
	slog.Info("duplicate reduction built",
		slog.Int("nodes", tree.Len()),
		slog.Int("duplicates", len(idx.dup)),
		slog.String("weighting", string(opts.Weighting)),
		slog.Duration("elapsed", time.Since(stage)))

	stage = time.Now()
	idx.upPointer, err = buildUpPointers(tree, idx.reduction, idx.dup, idx.borders.DocCount())
	if err != nil {
		return nil, err
	}
	slog.Info("up-pointers built", slog.Duration("elapsed", time.Since(stage)))

	stage = time.Now()
	idx.recency = newRangeMin(dups.recency)
	slog.Info("recency rmq built", slog.Duration("elapsed", time.Since(stage)))

	stage = time.Now()
	idx.grid = NewWeightedGrid(idx.upPointer, idx.weights)
	slog.Info("weighted grid built",
		slog.Int("points", idx.grid.Len()),
		slog.Duration("elapsed", time.Since(stage)))

	slog.Info("index built",
		slog.Int("documents", len(names)),
		slog.Int("words", idx.WordCount()),
		slog.Duration("elapsed", time.Since(start)))
	return idx, nil
}

// BuildFromDir builds an index over every document file in dir
func BuildFromDir(dir string, opts Options) (*Index, error) {
	c, err := CollectionFromDir(dir, opts.Analyzer)
	if err != nil {
		return nil, err
	}
	return Build(c, opts)
}

// DocCount is the number of documents
func (idx *Index) DocCount() int {
	return int(idx.borders.DocCount())
}

// WordCount is the number of indexed tokens, separators and terminator excluded
func (idx *Index) WordCount() int {
	return idx.text.Size() - idx.DocCount() - 1
}

// Options returns the options the index was built with
func (idx *Index) Options() Options {
	return idx.options
}

// Vocabulary returns the term dictionary
func (idx *Index) Vocabulary() *Vocabulary {
	return idx.vocabulary
}

// Document returns the token ids of document docID
func (idx *Index) Document(docID uint32) ([]uint32, error) {
	if int(docID) >= idx.DocCount() {
		return nil, fmt.Errorf("document %d of %d: %w", docID, idx.DocCount(), ErrDocumentOutOfRange)
	}
	begin, end := idx.borders.Span(docID)
	return idx.text.Extract(begin, end), nil
}

// DocumentText returns document docID with token ids mapped back to terms
func (idx *Index) DocumentText(docID uint32) ([]string, error) {
	tokens, err := idx.Document(docID)
	if err != nil {
		return nil, err
	}
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = idx.vocabulary.Term(tok)
	}
	return terms, nil
}

// DocumentName returns the name document docID was added with
func (idx *Index) DocumentName(docID uint32) string {
	if int(docID) >= len(idx.names) {
		return ""
	}
	return idx.names[docID]
}

// Count returns the number of occurrences of pattern across all documents
func (idx *Index) Count(pattern []uint32) int {
	return idx.text.Count(pattern)
}

// Tokens analyzes query text the way documents were analyzed and maps it to
// token ids. ok is false when a term never occurs in the collection, in which
// case the phrase cannot match.
func (idx *Index) Tokens(query string) (pattern []uint32, ok bool) {
	terms := AnalyzeWithConfig(query, idx.options.Analyzer)
	if len(terms) == 0 {
		return nil, false
	}
	pattern = make([]uint32, len(terms))
	for i, term := range terms {
		id, found := idx.vocabulary.ID(term)
		if !found {
			return nil, false
		}
		pattern[i] = id
	}
	return pattern, true
}
