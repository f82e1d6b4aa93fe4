package surf

import (
	"fmt"
	"math"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DOCUMENT WEIGHTS
// ═══════════════════════════════════════════════════════════════════════════════
// Every grid point carries the weight of one document for one suffix-tree node:
// a function of how often the node's string occurs in the document.
//
// WEIGHTINGS:
// -----------
//	tf    → weight = term frequency (the default; top-k is "most occurrences")
//	bm25  → weight = round(1000 × BM25 saturation of tf), length normalized
//
// BM25 FORMULA (per document, without the IDF factor):
// ----------------------------------------------------
//
//	              tf × (k1 + 1)
//	  ─────────────────────────────────────────
//	  tf + k1 × (1 - b + b × (docLen / avgDocLen))
//
// IDF is constant for a fixed pattern, so it never changes the order of
// documents within one query and is left out. The result is scaled by 1000 and
// rounded to keep weights integral.
//
// Documents that occur once inside a match range are reported with weight 1
// under either weighting: they are enumerated without touching the grid.
// ═══════════════════════════════════════════════════════════════════════════════

// Weighting selects how grid weights are computed
type Weighting string

const (
	WeightingTF   Weighting = "tf"
	WeightingBM25 Weighting = "bm25"
)

// ParseWeighting validates a weighting name; "" selects tf
func ParseWeighting(name string) (Weighting, error) {
	switch Weighting(name) {
	case "", WeightingTF:
		return WeightingTF, nil
	case WeightingBM25:
		return WeightingBM25, nil
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownWeighting)
}

// BM25Parameters holds the tuning parameters for BM25 weighting
type BM25Parameters struct {
	K1 float64 // Term frequency saturation (typical: 1.2-2.0)
	B  float64 // Length normalization (typical: 0.75)
}

// DefaultBM25Parameters returns the standard BM25 parameters
func DefaultBM25Parameters() BM25Parameters {
	return BM25Parameters{
		K1: 1.5,
		B:  0.75,
	}
}

// bm25Scale keeps three decimals of the BM25 term score
const bm25Scale = 1000

// weightFunc maps (term frequency, document length) to a grid weight
type weightFunc func(tf uint64, docLen int) uint64

// newWeightFunc returns the weight function for weighting. docLens holds the
// token count of every document.
func newWeightFunc(weighting Weighting, params BM25Parameters, docLens []int) (weightFunc, error) {
	switch weighting {
	case "", WeightingTF:
		return func(tf uint64, _ int) uint64 { return tf }, nil

	case WeightingBM25:
		total := 0
		for _, l := range docLens {
			total += l
		}
		avg := 1.0
		if len(docLens) > 0 && total > 0 {
			avg = float64(total) / float64(len(docLens))
		}
		k1, b := params.K1, params.B
		return func(tf uint64, docLen int) uint64 {
			f := float64(tf)
			norm := 1 - b + b*(float64(docLen)/avg)
			score := f * (k1 + 1) / (f + k1*norm)
			w := uint64(math.Round(score * bm25Scale))
			if w < 1 {
				w = 1
			}
			return w
		}, nil
	}
	return nil, fmt.Errorf("%q: %w", weighting, ErrUnknownWeighting)
}
