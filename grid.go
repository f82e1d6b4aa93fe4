package surf

import (
	"container/heap"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WEIGHTED GRID: Top-k Points in a Three-Sided Box
// ═══════════════════════════════════════════════════════════════════════════════
// Points (x, y, w): x is the DUP index, y the up-pointer, w the weight. A query
// asks for the points with x0 ≤ x ≤ x1 and y ≤ yMax, heaviest first.
//
// STRUCTURE (k2-treap):
// ---------------------
// Each node covers a rectangle of the grid. It stores the heaviest point of the
// rectangle, then splits the remaining points into four quadrants at the
// midpoints of both axes:
//
//	        x0 ... xm | xm+1 ... x1
//	  y0    ┌─────────┬─────────┐
//	  ...   │    0    │    1    │
//	  ym    ├─────────┼─────────┤
//	  ...   │    2    │    3    │
//	  y1    └─────────┴─────────┘
//
// Weights never increase going down, so a max-heap of candidate nodes ordered
// by their stored weight yields points in non-increasing weight order. Nodes
// whose rectangle misses the query box are never pushed; nodes whose point
// misses the box are expanded but not reported.
//
// Rectangles are not stored: children's rectangles are derived from the
// parent's while descending.
// ═══════════════════════════════════════════════════════════════════════════════

// GridPoint is one reported point
type GridPoint struct {
	X      int
	Weight uint64
}

type gridNode struct {
	x        uint32
	y        uint32
	w        uint64
	children [4]int32
}

// WeightedGrid is immutable once built and safe for concurrent cursors
type WeightedGrid struct {
	nodes  []gridNode
	width  uint32
	height uint32
}

type rect struct {
	x0, x1, y0, y1 uint32
}

// NewWeightedGrid builds the grid over points (x, ys[x], weights[x])
func NewWeightedGrid(ys []uint32, weights []uint64) *WeightedGrid {
	g := &WeightedGrid{width: uint32(len(ys))}
	for _, y := range ys {
		if y+1 > g.height {
			g.height = y + 1
		}
	}
	if len(ys) == 0 {
		return g
	}

	points := make([]uint32, len(ys))
	for i := range points {
		points[i] = uint32(i)
	}
	g.nodes = make([]gridNode, 0, len(ys))
	g.build(points, ys, weights, rect{0, g.width - 1, 0, g.height - 1})
	return g
}

// heavier orders points by weight, then by smaller x
func heavier(wa uint64, xa uint32, wb uint64, xb uint32) bool {
	if wa != wb {
		return wa > wb
	}
	return xa < xb
}

func (g *WeightedGrid) build(points []uint32, ys []uint32, weights []uint64, r rect) int32 {
	if len(points) == 0 {
		return noNode
	}

	best := 0
	for i := 1; i < len(points); i++ {
		if heavier(weights[points[i]], points[i], weights[points[best]], points[best]) {
			best = i
		}
	}
	last := len(points) - 1
	points[best], points[last] = points[last], points[best]
	top := points[last]
	rest := points[:last]

	id := int32(len(g.nodes))
	g.nodes = append(g.nodes, gridNode{
		x:        top,
		y:        ys[top],
		w:        weights[top],
		children: [4]int32{noNode, noNode, noNode, noNode},
	})

	quads := r.split()
	xm, ym := r.mid()
	left := partition(rest, func(p uint32) bool { return p <= xm })
	topLeft := partition(rest[:left], func(p uint32) bool { return ys[p] <= ym })
	topRight := partition(rest[left:], func(p uint32) bool { return ys[p] <= ym })

	groups := [4][]uint32{
		rest[:topLeft],
		rest[left : left+topRight],
		rest[topLeft:left],
		rest[left+topRight:],
	}
	for q := range groups {
		child := g.build(groups[q], ys, weights, quads[q])
		g.nodes[id].children[q] = child
	}
	return id
}

// partition moves the points satisfying keep to the front and returns their
// count
func partition(points []uint32, keep func(uint32) bool) int {
	k := 0
	for i, p := range points {
		if keep(p) {
			points[k], points[i] = points[i], points[k]
			k++
		}
	}
	return k
}

func (r rect) mid() (xm, ym uint32) {
	return r.x0 + (r.x1-r.x0)/2, r.y0 + (r.y1-r.y0)/2
}

// split returns the four quadrants; an empty half has lo > hi
func (r rect) split() [4]rect {
	xm, ym := r.mid()
	return [4]rect{
		{r.x0, xm, r.y0, ym},
		{xm + 1, r.x1, r.y0, ym},
		{r.x0, xm, ym + 1, r.y1},
		{xm + 1, r.x1, ym + 1, r.y1},
	}
}

func (r rect) intersects(x0, x1, yMax uint32) bool {
	return r.x0 <= r.x1 && r.y0 <= r.y1 &&
		r.x0 <= x1 && r.x1 >= x0 && r.y0 <= yMax
}

// Len is the number of points
func (g *WeightedGrid) Len() int {
	return int(g.width)
}

// TopK returns a cursor over the points in [x0, x1] × [0, yMax], heaviest first
// with ties on smaller x
func (g *WeightedGrid) TopK(x0, x1 int, yMax uint32) *GridCursor {
	c := &GridCursor{
		x0:    uint32(x0),
		x1:    uint32(x1),
		yMax:  yMax,
		queue: candidateHeap{nodes: g.nodes},
	}
	if len(g.nodes) == 0 || x0 > x1 || x0 < 0 || x1 >= int(g.width) {
		return c
	}
	root := rect{0, g.width - 1, 0, g.height - 1}
	if root.intersects(c.x0, c.x1, yMax) {
		c.push(0, root)
	}
	return c
}

// GridCursor lazily enumerates a TopK query. Not safe for concurrent use.
type GridCursor struct {
	x0, x1 uint32
	yMax   uint32
	queue  candidateHeap
}

type candidate struct {
	node int32
	r    rect
}

func (c *GridCursor) push(node int32, r rect) {
	heap.Push(&c.queue, candidate{node: node, r: r})
}

// Next returns the next point, or false once the box is exhausted
func (c *GridCursor) Next() (GridPoint, bool) {
	for c.queue.Len() > 0 {
		e := heap.Pop(&c.queue).(candidate)
		n := &c.queue.nodes[e.node]

		quads := e.r.split()
		for q, child := range n.children {
			if child != noNode && quads[q].intersects(c.x0, c.x1, c.yMax) {
				c.push(child, quads[q])
			}
		}

		if n.x >= c.x0 && n.x <= c.x1 && n.y <= c.yMax {
			return GridPoint{X: int(n.x), Weight: n.w}, true
		}
	}
	return GridPoint{}, false
}

// candidateHeap is a max-heap on the stored point of each node
type candidateHeap struct {
	nodes []gridNode
	items []candidate
}

func (h *candidateHeap) Len() int { return len(h.items) }

func (h *candidateHeap) Less(i, j int) bool {
	a := &h.nodes[h.items[i].node]
	b := &h.nodes[h.items[j].node]
	return heavier(a.w, a.x, b.w, b.x)
}

func (h *candidateHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *candidateHeap) Push(x any) { h.items = append(h.items, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	n := len(h.items)
	e := h.items[n-1]
	h.items = h.items[:n-1]
	return e
}
