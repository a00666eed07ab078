// Package pathfind implements the 4-connected A* pathfinder (spec.md §4.4,
// component C4): danger-weighted cost, an indexed binary heap, and a bounded
// path cache. Grounded on the teacher's internal/world/navigation.go, whose
// continuous-coordinate diagonal-movement astar/pathQueue shape is adapted
// here to the spec's integer 4-connected grid and damage-aware cost term.
package pathfind

import "bombkernel/internal/grid"

// node is one A* open-set entry. generation lets Find lazily invalidate a
// stale heap entry instead of searching the heap for it: a node popped with
// a generation older than the one Find's generation map holds for its point
// is skipped rather than deleted in place (the teacher's navigation.go
// re-pushes a fresh node on every improvement and relies on the closed-set
// check to discard the stale one; the generation counter here does the same
// thing with a per-point counter).
type node struct {
	point      grid.Position
	g          float64
	f          float64
	generation uint32
	index      int
	parent     *node
}

type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }

// Less ties on f-score by (lower h proxy: smaller y+x sum), giving a fixed,
// deterministic expansion order independent of map/heap iteration
// randomness (spec.md §4.4 edge case: "Ties broken deterministically").
func (q nodeQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	si := q[i].point.X + q[i].point.Y
	sj := q[j].point.X + q[j].point.Y
	if si != sj {
		return si < sj
	}
	if q[i].point.Y != q[j].point.Y {
		return q[i].point.Y < q[j].point.Y
	}
	return q[i].point.X < q[j].point.X
}

func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *nodeQueue) Push(x any) {
	n := len(*q)
	item := x.(*node)
	item.index = n
	*q = append(*q, item)
}

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
