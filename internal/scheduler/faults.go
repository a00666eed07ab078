package scheduler

// faultWindow counts faults within a trailing window of ticks (spec.md §7:
// "repeated faults (>K in W ticks) -> bot is disqualified"). It is not
// safe for concurrent use; each bot task owns exactly one.
type faultWindow struct {
	limit int
	ticks uint64
	hits  []uint64 // tick of each recorded fault, oldest first
}

func newFaultWindow(limit int, ticks uint64) *faultWindow {
	return &faultWindow{limit: limit, ticks: ticks}
}

// record notes a fault at tick and reports whether the bot has now
// exceeded its fault budget.
func (f *faultWindow) record(tick uint64) bool {
	f.hits = append(f.hits, tick)
	f.prune(tick)
	return len(f.hits) > f.limit
}

func (f *faultWindow) prune(tick uint64) {
	if f.ticks == 0 {
		return
	}
	cutoff := int64(tick) - int64(f.ticks)
	i := 0
	for i < len(f.hits) && int64(f.hits[i]) <= cutoff {
		i++
	}
	f.hits = f.hits[i:]
}

// count reports the number of faults currently inside the window.
func (f *faultWindow) count() int { return len(f.hits) }
