package pathfind

import (
	"container/heap"

	"bombkernel/internal/grid"
)

// DangerSampler returns the current per-tile danger value used in the cost
// penalty; normally backed by internal/influence's Danger layer, injected
// here to keep C4 independent of C3 (spec.md §2 dependency order).
type DangerSampler func(p grid.Position) float32

// FailureKind enumerates the pathfinder's three documented failure modes
// (spec.md §4.4).
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureNoPath      FailureKind = "no_path"
	FailureTimeout     FailureKind = "timeout"
	FailureInvalidGoal FailureKind = "invalid_goal"
)

// Result is the outcome of a Find call. Path is empty on InvalidGoal; on
// NoPath and Timeout it holds a best-effort partial path (the backtrace of
// the expanded node with the lowest f-score, per spec.md §4.4's
// early-termination rule).
type Result struct {
	Path    []grid.Position
	Failure FailureKind
}

// Options tunes one search (spec.md §4.4, §6: pathfind.alpha/f_cap/step_cap).
type Options struct {
	// Alpha weights the per-tile danger penalty: cost(tile) = 1 + Alpha*danger(tile).
	Alpha float32
	// FCap bounds the best open f-score explored before giving up with a
	// best-effort partial path (0 disables the cap).
	FCap float64
	// StepBudget bounds the number of node expansions before returning
	// FailureTimeout (0 disables the cap).
	StepBudget int
}

// Find runs A* from start to goal on g, using danger (if non-nil) to weight
// move cost. The heuristic is Manhattan distance, admissible for Alpha >= 0
// since it ignores the danger penalty entirely (spec.md §4.4: "no longer
// tight but remains admissible w.r.t. unit cost").
func Find(g *grid.Grid, start, goal grid.Position, danger DangerSampler, opts Options) Result {
	if !g.InBounds(goal) || !g.Tile(goal).Walkable() {
		return Result{Failure: FailureInvalidGoal}
	}
	if !g.InBounds(start) {
		return Result{Failure: FailureInvalidGoal}
	}
	if start == goal {
		return Result{Path: []grid.Position{start}}
	}

	size := g.Size()
	index := func(p grid.Position) int { return int(p.Y*size + p.X) }

	open := &nodeQueue{}
	heap.Init(open)
	startNode := &node{point: start, g: 0, f: manhattan(start, goal)}
	heap.Push(open, startNode)

	gScore := map[int]float64{index(start): 0}
	generation := map[int]uint32{index(start): 0}
	closed := make(map[int]bool)

	var bestOpen *node
	steps := 0

	for open.Len() > 0 {
		if opts.StepBudget > 0 && steps >= opts.StepBudget {
			return Result{Path: reconstruct(bestOpen), Failure: FailureTimeout}
		}
		steps++

		current := heap.Pop(open).(*node)
		idx := index(current.point)
		if current.generation < generation[idx] {
			// A cheaper path to this point was pushed after this entry; the
			// entry is a stale decrease-key ghost, skip without expanding.
			continue
		}
		if closed[idx] {
			continue
		}
		closed[idx] = true
		if bestOpen == nil || current.f < bestOpen.f {
			bestOpen = current
		}

		if current.point == goal {
			return Result{Path: reconstruct(current)}
		}

		if opts.FCap > 0 && current.f > opts.FCap {
			return Result{Path: reconstruct(bestOpen), Failure: FailureNoPath}
		}

		for _, dir := range grid.Directions {
			dx, dy := dir.Delta()
			next := current.point.Add(dx, dy)
			if !g.InBounds(next) {
				continue
			}
			if !g.Tile(next).Walkable() {
				continue
			}
			nidx := index(next)
			if closed[nidx] {
				continue
			}

			moveCost := 1.0
			if danger != nil && opts.Alpha > 0 {
				moveCost += float64(opts.Alpha) * float64(danger(next))
			}
			tentativeG := current.g + moveCost
			if prev, ok := gScore[nidx]; ok && tentativeG >= prev {
				continue
			}
			gScore[nidx] = tentativeG
			generation[nidx]++
			heap.Push(open, &node{
				point:      next,
				g:          tentativeG,
				f:          tentativeG + manhattan(next, goal),
				generation: generation[nidx],
				parent:     current,
			})
		}
	}

	return Result{Path: reconstruct(bestOpen), Failure: FailureNoPath}
}

func manhattan(a, b grid.Position) float64 {
	return float64(a.Manhattan(b))
}

func reconstruct(end *node) []grid.Position {
	if end == nil {
		return nil
	}
	path := make([]grid.Position, 0)
	for n := end; n != nil; n = n.parent {
		path = append(path, n.point)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
