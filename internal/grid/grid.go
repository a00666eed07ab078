package grid

import "fmt"

// MaxSize is the largest supported grid edge length (spec.md §3: N ≤ 256).
const MaxSize = 256

// EntityRef identifies whichever entity (bomb or agent) occupies a tile's
// secondary index slot.
type EntityRef struct {
	BombID  string
	AgentID string
}

func (r EntityRef) Empty() bool {
	return r.BombID == "" && r.AgentID == ""
}

// Grid is a dense NxN array of tiles plus a sparse position-keyed index of
// occupants. At most one bomb may occupy a tile (spec.md §3 invariant); any
// number of agents may transiently share a tile during simultaneous
// movement resolution, so the index tracks agents in a small slice.
type Grid struct {
	size    int32
	tiles   []Tile
	bombAt  map[Position]string
	agentAt map[Position][]string
}

// New constructs an empty size x size grid (all TileEmpty).
func New(size int32) (*Grid, error) {
	if size <= 0 || size > MaxSize {
		return nil, fmt.Errorf("grid: invalid size %d (must be 1..%d)", size, MaxSize)
	}
	return &Grid{
		size:    size,
		tiles:   make([]Tile, size*size),
		bombAt:  make(map[Position]string),
		agentAt: make(map[Position][]string),
	}, nil
}

// Size returns the grid's edge length.
func (g *Grid) Size() int32 { return g.size }

// InBounds reports whether p lies within [0, size).
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.size && p.Y < g.size
}

func (g *Grid) index(p Position) int {
	return int(p.Y*g.size + p.X)
}

// Tile returns the tile at p. Out-of-bounds positions read as
// TileIndestructibleWall so callers that forget to bounds-check still fail
// closed.
func (g *Grid) Tile(p Position) Tile {
	if !g.InBounds(p) {
		return Tile{Kind: TileIndestructibleWall}
	}
	return g.tiles[g.index(p)]
}

// SetTile overwrites the tile at p. Returns an error for out-of-bounds
// positions (an engine bug, per spec.md §4.1 InvalidPosition).
func (g *Grid) SetTile(p Position, t Tile) error {
	if !g.InBounds(p) {
		return fmt.Errorf("grid: position %v out of bounds", p)
	}
	g.tiles[g.index(p)] = t
	return nil
}

// BombAt returns the bomb id occupying p, if any.
func (g *Grid) BombAt(p Position) (string, bool) {
	id, ok := g.bombAt[p]
	return id, ok
}

// PlaceBomb records a bomb occupying p. Fails if the tile already holds a
// bomb (at-most-one-bomb-per-tile invariant).
func (g *Grid) PlaceBomb(p Position, bombID string) error {
	if _, exists := g.bombAt[p]; exists {
		return fmt.Errorf("grid: duplicate bomb at %v", p)
	}
	g.bombAt[p] = bombID
	return nil
}

// RemoveBomb clears the bomb occupant of p.
func (g *Grid) RemoveBomb(p Position) {
	delete(g.bombAt, p)
}

// AgentsAt returns the agent ids standing on p.
func (g *Grid) AgentsAt(p Position) []string {
	return g.agentAt[p]
}

// MoveAgent updates the secondary index to reflect an agent's move from
// `from` to `to`. `from` may be the zero-value-equivalent "no prior
// position" by passing hadFrom=false.
func (g *Grid) MoveAgent(agentID string, from Position, hadFrom bool, to Position) {
	if hadFrom {
		g.removeAgentAt(from, agentID)
	}
	g.agentAt[to] = append(g.agentAt[to], agentID)
}

func (g *Grid) removeAgentAt(p Position, agentID string) {
	occupants := g.agentAt[p]
	for i, id := range occupants {
		if id == agentID {
			occupants = append(occupants[:i], occupants[i+1:]...)
			break
		}
	}
	if len(occupants) == 0 {
		delete(g.agentAt, p)
	} else {
		g.agentAt[p] = occupants
	}
}

// RemoveAgent drops an agent from the secondary index entirely (death).
func (g *Grid) RemoveAgent(agentID string, at Position) {
	g.removeAgentAt(at, agentID)
}

// Clone deep-copies the grid, including both indices.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		size:    g.size,
		tiles:   append([]Tile(nil), g.tiles...),
		bombAt:  make(map[Position]string, len(g.bombAt)),
		agentAt: make(map[Position][]string, len(g.agentAt)),
	}
	for k, v := range g.bombAt {
		out.bombAt[k] = v
	}
	for k, v := range g.agentAt {
		out.agentAt[k] = append([]string(nil), v...)
	}
	return out
}

// Each iterates every in-bounds position in row-major order, the canonical
// iteration order used for hashing and influence propagation.
func (g *Grid) Each(fn func(p Position, t Tile)) {
	for y := int32(0); y < g.size; y++ {
		for x := int32(0); x < g.size; x++ {
			p := Position{X: x, Y: y}
			fn(p, g.tiles[g.index(p)])
		}
	}
}
