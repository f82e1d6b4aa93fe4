package surf

import (
	"fmt"
)

// ═══════════════════════════════════════════════════════════════════════════════
// UP-POINTERS
// ═══════════════════════════════════════════════════════════════════════════════
// P[x] is the depth of the nearest proper ancestor of x's node that holds
// another duplicate of the same document, or 0 when there is none.
//
// A query for a pattern of length m lands on the node v whose range is the
// match range. For each document occurring at least twice under v, exactly one
// of its duplicates below v points above v (P < m); all the others point to a
// node still inside v's subtree (P ≥ m). Restricting the grid to y < m thus
// reports every such document once.
//
// CONSTRUCTION:
// -------------
// One stack of depths per document, each seeded with the sentinel 0. A
// depth-first walk over the internal nodes:
//
//	enter v: for x in nodeRange(v): push depth(v) onto stack[DUP[x]]
//	exit  v: for x in nodeRange(v): pop stack[DUP[x]]; P[x] = new top
//
// When a node holds several duplicates of one document, all but the last
// popped see depth(v) itself on top, which is what keeps them out of queries
// on v.
// ═══════════════════════════════════════════════════════════════════════════════

// upPointerBuilder owns the per-document stacks during the walk
type upPointerBuilder struct {
	red    *reductionMap
	dup    []uint32
	stacks [][]uint32
	p      []uint32
}

func newUpPointerBuilder(red *reductionMap, dup []uint32, docCount uint32) *upPointerBuilder {
	stacks := make([][]uint32, docCount)
	for d := range stacks {
		stacks[d] = []uint32{0}
	}
	return &upPointerBuilder{
		red:    red,
		dup:    dup,
		stacks: stacks,
		p:      make([]uint32, len(dup)),
	}
}

// enter pushes depth for every duplicate charged to boundary
func (b *upPointerBuilder) enter(boundary int, depth uint32) {
	r := b.red.nodeRange(boundary)
	for x := r.Begin; x <= r.End; x++ {
		d := b.dup[x]
		b.stacks[d] = append(b.stacks[d], depth)
	}
}

// exit pops every duplicate charged to boundary and records its up-pointer
func (b *upPointerBuilder) exit(boundary int) error {
	r := b.red.nodeRange(boundary)
	for x := r.Begin; x <= r.End; x++ {
		d := b.dup[x]
		s := b.stacks[d]
		if len(s) <= 1 {
			return fmt.Errorf("document %d at DUP index %d: %w", d, x, ErrStackUnderflow)
		}
		s = s[:len(s)-1]
		b.stacks[d] = s
		b.p[x] = s[len(s)-1]
	}
	return nil
}

// balanced reports whether every stack is back to the sentinel
func (b *upPointerBuilder) balanced() bool {
	for _, s := range b.stacks {
		if len(s) != 1 || s[0] != 0 {
			return false
		}
	}
	return true
}

// buildUpPointers walks tree and returns P, one entry per DUP index
func buildUpPointers(tree *lcpTree, red *reductionMap, dup []uint32, docCount uint32) ([]uint32, error) {
	b := newUpPointerBuilder(red, dup, docCount)
	err := tree.Walk(func(node *lcpNode, enter bool) error {
		if node.firstBoundary == 0 {
			return nil
		}
		if enter {
			b.enter(int(node.firstBoundary), node.depth)
			return nil
		}
		return b.exit(int(node.firstBoundary))
	})
	if err != nil {
		return nil, &ConstructionError{Stage: "up-pointers", Err: err}
	}
	if !b.balanced() {
		return nil, &ConstructionError{
			Stage: "up-pointers",
			Err:   fmt.Errorf("document stacks not empty after walk: %w", ErrStackUnderflow),
		}
	}
	return b.p, nil
}
