package planner

import (
	"bombkernel/internal/grid"
	"bombkernel/internal/pathfind"
)

// Scored pairs a candidate with its computed path and score.
type Scored struct {
	Candidate Candidate
	Path      []grid.Position
	PathCost  float32
	PathDanger float32
	Score     float32
}

// DangerSampler samples the Danger influence layer at a position.
type DangerSampler func(p grid.Position) float32

// Score plans a path to the candidate's target and computes
// score = w_reward*R - w_distance*pathCost - w_danger*pathDanger +
// w_progress*progress (spec.md §4.6). A candidate whose goal the
// pathfinder rejects, or for which it returns no path at all, scores
// negative infinity-equivalent (math.Inf avoided per the determinism rule
// confining floats to influence maps; a very negative finite sentinel is
// used instead) so it never wins against a reachable alternative; a
// best-effort partial path returned with NoPath is kept but scored 1000
// lower.
func Score(g *grid.Grid, from grid.Position, c Candidate, danger DangerSampler, w Weights, progress float32, pfOpts pathfind.Options) Scored {
	result := pathfind.Find(g, from, c.Target, func(p grid.Position) float32 { return danger(p) }, pfOpts)
	if result.Failure == pathfind.FailureInvalidGoal || len(result.Path) == 0 {
		return Scored{Candidate: c, Score: -1e9}
	}

	pathCost := float32(len(result.Path))
	var pathDanger float32
	for _, p := range result.Path {
		pathDanger += danger(p)
	}

	score := w.Reward*c.Reward - w.Distance*pathCost - w.Danger*pathDanger + w.Progress*progress
	if result.Failure == pathfind.FailureNoPath {
		// A best-effort partial path is still usable for FleeToSafe-style
		// goals, but it should never outscore a fully reachable candidate.
		score -= 1000
	}
	return Scored{Candidate: c, Path: result.Path, PathCost: pathCost, PathDanger: pathDanger, Score: score}
}

// Best scores every candidate and returns the highest-scoring one.
func Best(g *grid.Grid, from grid.Position, candidates []Candidate, danger DangerSampler, w Weights, progress float32, pfOpts pathfind.Options) (Scored, bool) {
	var best Scored
	found := false
	for _, c := range candidates {
		s := Score(g, from, c, danger, w, progress, pfOpts)
		if !found || s.Score > best.Score {
			best = s
			found = true
		}
	}
	return best, found
}
