package surf

// ═══════════════════════════════════════════════════════════════════════════════
// LCP-INTERVAL TREE: Internal Nodes of the Suffix Tree
// ═══════════════════════════════════════════════════════════════════════════════
// An lcp-interval [lb, rb] of depth ℓ is a maximal suffix-array range whose
// suffixes share a prefix of length ℓ. The intervals nest and form the internal
// nodes of the suffix tree. Its l-indices are the boundaries b in (lb, rb] with
// LCP[b] = ℓ; they separate its children.
//
// EXAMPLE (text "a b a SEP a SEP TERM", SA = 6 5 3 4 2 0 1):
// ---------
//
//	i:    0  1  2  3  4  5  6
//	LCP:  0  0  1  0  2  1  0
//
//	root  [0,6] depth 0   l-indices 1 3 6
//	├─    [1,2] depth 1   l-index 2     ("SEP")
//	└─    [3,5] depth 1   l-index 5     ("a")
//	      └─ [3,4] depth 2 l-index 4    ("a SEP")
//
// Nodes live in one arena slice and link to each other by index. No per-node
// allocation, no pointers for the GC to chase.
// ═══════════════════════════════════════════════════════════════════════════════

const noNode int32 = -1

// lcpNode is one internal node of the suffix tree
type lcpNode struct {
	lb, rb        uint32
	depth         uint32
	firstBoundary uint32 // smallest l-index
	firstChild    int32
	lastChild     int32
	nextSibling   int32
}

// lcpTree stores the internal nodes; node 0 is the root [0, n-1]
type lcpTree struct {
	nodes []lcpNode

	// boundaryNode[b] is the node whose l-indices include boundary b
	boundaryNode []int32
}

// buildLCPTree runs the bottom-up stack traversal over lcp
//
// ALGORITHM:
// ----------
// For each boundary i the stack holds the open intervals on the path to the
// root. Intervals deeper than LCP[i] end at i-1 and are popped. The last popped
// interval becomes a child of the interval left on top, or of the new interval
// opened at depth LCP[i] when the top is shallower.
func buildLCPTree(lcp []uint32) *lcpTree {
	n := len(lcp)
	t := &lcpTree{
		nodes:        make([]lcpNode, 0, n/2+1),
		boundaryNode: make([]int32, n),
	}
	t.boundaryNode[0] = noNode

	stack := []int32{t.newNode(0, 0)}
	for i := 1; i <= n; i++ {
		var cur uint32
		if i < n {
			cur = lcp[i]
		}
		lb := uint32(i - 1)
		last := noNode

		for cur < t.nodes[stack[len(stack)-1]].depth {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			t.nodes[top].rb = uint32(i - 1)
			lb = t.nodes[top].lb
			last = top

			parent := stack[len(stack)-1]
			if cur <= t.nodes[parent].depth {
				t.addChild(parent, last)
				last = noNode
			}
		}

		if i == n {
			break
		}
		if cur > t.nodes[stack[len(stack)-1]].depth {
			node := t.newNode(lb, cur)
			if last != noNode {
				t.addChild(node, last)
			}
			stack = append(stack, node)
		}

		top := stack[len(stack)-1]
		if t.nodes[top].firstBoundary == 0 {
			t.nodes[top].firstBoundary = uint32(i)
		}
		t.boundaryNode[i] = top
	}
	t.nodes[0].rb = uint32(n - 1)
	return t
}

func (t *lcpTree) newNode(lb, depth uint32) int32 {
	t.nodes = append(t.nodes, lcpNode{
		lb:          lb,
		depth:       depth,
		firstChild:  noNode,
		lastChild:   noNode,
		nextSibling: noNode,
	})
	return int32(len(t.nodes) - 1)
}

// addChild appends child; children complete left to right
func (t *lcpTree) addChild(parent, child int32) {
	p := &t.nodes[parent]
	if p.lastChild == noNode {
		p.firstChild = child
	} else {
		t.nodes[p.lastChild].nextSibling = child
	}
	p.lastChild = child
}

// Len is the number of internal nodes
func (t *lcpTree) Len() int {
	return len(t.nodes)
}

// Node returns the node a boundary belongs to
func (t *lcpTree) Node(boundary int) *lcpNode {
	return &t.nodes[t.boundaryNode[boundary]]
}

// Walk visits every internal node in depth-first order, calling fn once on
// entry and once on exit. Children are entered left to right. An error from fn
// stops the walk.
func (t *lcpTree) Walk(fn func(node *lcpNode, enter bool) error) error {
	type frame struct {
		node    int32
		entered bool
	}
	stack := []frame{{node: 0}}
	var children []int32

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &t.nodes[f.node]

		if f.entered {
			if err := fn(node, false); err != nil {
				return err
			}
			continue
		}
		if err := fn(node, true); err != nil {
			return err
		}
		stack = append(stack, frame{node: f.node, entered: true})

		children = children[:0]
		for c := node.firstChild; c != noNode; c = t.nodes[c].nextSibling {
			children = append(children, c)
		}
		for k := len(children) - 1; k >= 0; k-- {
			stack = append(stack, frame{node: children[k]})
		}
	}
	return nil
}
