package bombs

import (
	"sort"

	"bombkernel/internal/grid"
	"bombkernel/internal/state"
)

// Graph is the directed chain-reaction graph over the live bombs in one
// snapshot: an edge A->B exists iff B's position lies inside A's blast
// silhouette (spec.md §4.5).
type Graph struct {
	bombs       map[string]state.Bomb
	silhouettes map[string][]grid.Position
	edges       map[string][]string // bombID -> ids of bombs it would trigger
}

// BuildGraph computes the chain graph for every live bomb on g.
func BuildGraph(g *grid.Grid, liveBombs []state.Bomb) *Graph {
	graph := &Graph{
		bombs:       make(map[string]state.Bomb, len(liveBombs)),
		silhouettes: make(map[string][]grid.Position, len(liveBombs)),
		edges:       make(map[string][]string, len(liveBombs)),
	}
	for _, b := range liveBombs {
		graph.bombs[b.ID] = b
		graph.silhouettes[b.ID] = Silhouette(g, b)
	}
	for _, a := range liveBombs {
		for _, b := range liveBombs {
			if a.ID == b.ID {
				continue
			}
			if contains(graph.silhouettes[a.ID], b.Position) {
				graph.edges[a.ID] = append(graph.edges[a.ID], b.ID)
			}
		}
	}
	for id := range graph.edges {
		sort.Strings(graph.edges[id])
	}
	return graph
}

// Silhouette returns the precomputed blast silhouette for a bomb id.
func (g *Graph) Silhouette(bombID string) []grid.Position {
	return g.silhouettes[bombID]
}

// Triggered returns the reverse-reachability closure of bombID: every bomb
// transitively chained by it, in breadth-first order with each bomb's
// direct successors visited in bomb_id ascending order, so the result is
// deterministic (spec.md §4.5); it is not sorted by bomb_id as a whole.
// bombID itself is included first.
func (g *Graph) Triggered(bombID string) []string {
	visited := map[string]bool{bombID: true}
	order := []string{bombID}
	queue := []string{bombID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		next := append([]string(nil), g.edges[current]...)
		sort.Strings(next)
		for _, id := range next {
			if visited[id] {
				continue
			}
			visited[id] = true
			order = append(order, id)
			queue = append(queue, id)
		}
	}
	return order
}
