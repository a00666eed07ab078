// Package influence maintains the Danger and Opportunity spatio-temporal
// layers (spec.md §4.3, component C3) via incremental dirty-rectangle
// recomputation. Grounded directly on
// other_examples/ceyewan-Bombman__danger_field.go's DangerField.Update: an
// earliest-danger-tick-per-cell map built from bomb blast propagation with
// chain-reaction closure, generalized here to a configurable decay/clamp
// model and an added Opportunity layer for power-ups/reachable crates.
package influence

import "bombkernel/internal/grid"

// Rect is an inclusive axis-aligned dirty rectangle in grid coordinates.
type Rect struct {
	MinX, MinY, MaxX, MaxY int32
}

func (r Rect) contains(p grid.Position) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

func unionRect(a, b Rect) Rect {
	return Rect{
		MinX: min32(a.MinX, b.MinX),
		MinY: min32(a.MinY, b.MinY),
		MaxX: max32(a.MaxX, b.MaxX),
		MaxY: max32(a.MaxY, b.MaxY),
	}
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Config tunes propagation (spec.md §6: influence.alpha/decay/max, here only
// decay and max apply to the layers themselves; alpha is consumed by C4).
type Config struct {
	Decay        float32 // in (0, 1]
	MaxInfluence float32
}

// cell stores the per-cell value plus the earliest tick at which a bomb's
// blast reaches it and for how many ticks the danger window lasts, enabling
// readers to project danger at tick t+k without recomputation (spec.md
// §4.3).
type cell struct {
	value           float32
	earliestTick    uint64
	windowTicks     uint32
	hasWindow       bool
}

// Layer is one dense f32 grid (Danger or Opportunity) with a dirty-rectangle
// set and the version it was last synchronized to.
type Layer struct {
	cfg     Config
	size    int32
	cells   []cell
	dirty   []Rect
	version uint64
}

// NewLayer constructs an empty layer sized to the grid.
func NewLayer(size int32, cfg Config) *Layer {
	if cfg.Decay <= 0 || cfg.Decay > 1 {
		cfg.Decay = 1
	}
	if cfg.MaxInfluence <= 0 {
		cfg.MaxInfluence = 1
	}
	return &Layer{
		cfg:   cfg,
		size:  size,
		cells: make([]cell, size*size),
	}
}

func (l *Layer) index(p grid.Position) int { return int(p.Y*l.size + p.X) }

func (l *Layer) inBounds(p grid.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < l.size && p.Y < l.size
}

// Value returns the clamped influence value at p (0 if never touched).
func (l *Layer) Value(p grid.Position) float32 {
	if !l.inBounds(p) {
		return 0
	}
	return l.cells[l.index(p)].value
}

// ProjectDanger returns the danger value at p projected to tick (current +
// k), using the stored earliest-tick/window without recomputing the whole
// layer (spec.md §4.3).
func (l *Layer) ProjectDanger(p grid.Position, currentTick uint64, k uint64) float32 {
	if !l.inBounds(p) {
		return 0
	}
	c := l.cells[l.index(p)]
	if !c.hasWindow {
		return 0
	}
	target := currentTick + k
	if target < c.earliestTick {
		return 0
	}
	if c.windowTicks == 0 || target >= c.earliestTick+uint64(c.windowTicks) {
		return 0
	}
	return c.value
}

// Version returns the version this layer was last synchronized to.
func (l *Layer) Version() uint64 { return l.version }

// MarkDirty records a rectangle as needing recomputation on the next sync.
func (l *Layer) MarkDirty(r Rect) {
	l.dirty = append(l.dirty, r)
}

func (l *Layer) takeDirty() []Rect {
	out := l.dirty
	l.dirty = nil
	return out
}

func (l *Layer) clearRect(r Rect) {
	minX := max32(r.MinX, 0)
	minY := max32(r.MinY, 0)
	maxX := min32(r.MaxX, l.size-1)
	maxY := min32(r.MaxY, l.size-1)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			l.cells[l.index(grid.Position{X: x, Y: y})] = cell{}
		}
	}
}

func (l *Layer) accumulate(p grid.Position, value float32, tick uint64, window uint32) {
	if !l.inBounds(p) {
		return
	}
	idx := l.index(p)
	c := &l.cells[idx]
	if value > c.value {
		c.value = value
	}
	if c.value > l.cfg.MaxInfluence {
		c.value = l.cfg.MaxInfluence
	}
	if value > 0 {
		if !c.hasWindow || tick < c.earliestTick {
			c.earliestTick = tick
			c.windowTicks = window
			c.hasWindow = true
		}
	}
}
