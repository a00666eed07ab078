// Package scheduler wires the engine tick loop and per-bot decision tasks
// together (spec.md §4.9, component C9): one engine task, N bot tasks, a
// latest-wins snapshot broadcast slot, and bounded per-bot command queues
// feeding a single engine intake. Grounded on the teacher's
// internal/sim.Loop ticker-driven run loop for the engine task and
// internal/ai.world_spawner's one-goroutine-per-actor idiom for the bot
// tasks.
package scheduler

import (
	"context"
	"sync"

	"bombkernel/internal/state"
)

// snapshotBox is the single published value: a snapshot, the delta that
// produced it (absent for the very first publication), and a monotonic
// version a reader compares against its own last-seen value.
type snapshotBox struct {
	snap     state.Snapshot
	delta    state.Delta
	hasDelta bool
	version  uint64
}

// SnapshotBroadcast is a single-value, latest-wins broadcast slot (spec.md
// §4.9: "bots... consume snapshots from a single-value broadcast slot
// (latest-wins, losing intermediate updates is acceptable because
// snapshots are self-contained)"). Publish replaces the held value; any
// number of readers can Wait for the next version without missing a close.
type SnapshotBroadcast struct {
	mu     sync.Mutex
	box    snapshotBox
	ready  chan struct{}
	closed bool
}

// NewSnapshotBroadcast constructs an empty broadcast slot.
func NewSnapshotBroadcast() *SnapshotBroadcast {
	return &SnapshotBroadcast{ready: make(chan struct{})}
}

// Publish replaces the held snapshot/delta and wakes every waiter. delta
// is nil for the very first publication, before any tick has produced one.
func (b *SnapshotBroadcast) Publish(snap state.Snapshot, delta *state.Delta) {
	b.mu.Lock()
	box := snapshotBox{snap: snap, version: snap.Version()}
	if delta != nil {
		box.delta = *delta
		box.hasDelta = true
	}
	b.box = box
	old := b.ready
	b.ready = make(chan struct{})
	b.mu.Unlock()
	close(old)
}

// Close marks the slot closed and wakes every waiter for the last time
// (spec.md §4.9: "a shutdown signal closes the broadcast slot, bots
// observe end-of-stream"). Close is idempotent.
func (b *SnapshotBroadcast) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	old := b.ready
	b.mu.Unlock()
	close(old)
}

// Wait blocks until a version newer than lastVersion is published, the
// slot is closed, or ctx is cancelled. ok is false on close or
// cancellation, in which case the caller should exit its task.
func (b *SnapshotBroadcast) Wait(ctx context.Context, lastVersion uint64) (snap state.Snapshot, delta *state.Delta, version uint64, ok bool) {
	for {
		b.mu.Lock()
		box := b.box
		ready := b.ready
		closed := b.closed
		b.mu.Unlock()

		if box.version > lastVersion {
			if box.hasDelta {
				d := box.delta
				delta = &d
			}
			return box.snap, delta, box.version, true
		}
		if closed {
			return state.Snapshot{}, nil, lastVersion, false
		}
		select {
		case <-ready:
			continue
		case <-ctx.Done():
			return state.Snapshot{}, nil, lastVersion, false
		}
	}
}
