package state

import "bombkernel/internal/grid"

// Snapshot is an immutable, shared view of the state at a specific version
// (spec.md §3). It is self-sufficient: no back-reference to the live
// GameState or its grid, so a snapshot's lifetime is independent of the
// store that produced it (spec.md §3 ownership rules).
type Snapshot struct {
	version uint64
	tick    uint64
	size    int32
	tiles   []grid.Tile // row-major copy, shared read-only across readers
	agents  map[string]AgentState
	bombs   map[string]Bomb
}

// PublishSnapshot materializes an immutable view of the current state. The
// tile array and entity maps are copied once here; readers never see writer
// mutations after this call returns, and the writer never blocks on readers
// (spec.md §4.1). Snapshot minting happens-before any subscriber can observe
// it, enforced by the caller (C7) publishing only after this call returns.
func (s *GameState) PublishSnapshot() Snapshot {
	tiles := make([]grid.Tile, 0, s.Grid.Size()*s.Grid.Size())
	s.Grid.Each(func(_ grid.Position, t grid.Tile) {
		tiles = append(tiles, t)
	})
	agents := make(map[string]AgentState, len(s.Agents))
	for id, a := range s.Agents {
		agents[id] = a.Clone()
	}
	bombs := make(map[string]Bomb, len(s.Bombs))
	for id, b := range s.Bombs {
		bombs[id] = b.Clone()
	}
	return Snapshot{
		version: s.Version,
		tick:    s.Tick,
		size:    s.Grid.Size(),
		tiles:   tiles,
		agents:  agents,
		bombs:   bombs,
	}
}

// Version returns the snapshot's version tag.
func (s Snapshot) Version() uint64 { return s.version }

// Tick returns the tick at which the snapshot was published.
func (s Snapshot) Tick() uint64 { return s.tick }

// Size returns the grid edge length.
func (s Snapshot) Size() int32 { return s.size }

// Tile returns the tile at p in O(1); out-of-bounds reads as a wall.
func (s Snapshot) Tile(p grid.Position) grid.Tile {
	if p.X < 0 || p.Y < 0 || p.X >= s.size || p.Y >= s.size {
		return grid.Tile{Kind: grid.TileIndestructibleWall}
	}
	return s.tiles[p.Y*s.size+p.X]
}

// Agents returns every agent in the snapshot. The caller receives a copy of
// each AgentState; mutating the returned slice never affects the snapshot.
func (s Snapshot) Agents() []AgentState {
	out := make([]AgentState, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	return out
}

// Agent looks up a single agent by id.
func (s Snapshot) Agent(id string) (AgentState, bool) {
	a, ok := s.agents[id]
	return a, ok
}

// Bombs returns every live bomb in the snapshot.
func (s Snapshot) Bombs() []Bomb {
	out := make([]Bomb, 0, len(s.bombs))
	for _, b := range s.bombs {
		out = append(out, b)
	}
	return out
}

// Bomb looks up a single bomb by id.
func (s Snapshot) Bomb(id string) (Bomb, bool) {
	b, ok := s.bombs[id]
	return b, ok
}
