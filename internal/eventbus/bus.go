package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// DrainBatchSize bounds how many events are delivered to a single subscriber
// per ProcessPending call (spec.md §4.2: "Batches of up to B (e.g., 64)").
const DrainBatchSize = 64

// DefaultSendTimeout is the per-send timeout before a subscriber is marked
// inactive (spec.md §4.2).
const DefaultSendTimeout = time.Millisecond

// Filter is a pure predicate evaluated before a send; returning false drops
// the event for that subscriber without counting against its queue.
type Filter func(Event) bool

// QueueFullError is returned by Emit when a subscriber's lane is saturated.
// It is a non-fatal, typed error (spec.md §4.2, §7: Bus faults are
// self-healing).
type QueueFullError struct {
	SubscriptionID uint64
}

func (e *QueueFullError) Error() string { return "eventbus: queue full" }

// Bus is the priority-ordered, filtered, bounded multi-subscriber event
// fabric. Grounded on the teacher's logging.Router/sinkWorker shape
// (logging/router.go): a bounded per-subscriber channel fed by Emit, with
// backoff-free drop-and-count on saturation. Generalized here from a single
// fan-out-to-sinks shape into N independently filtered subscriptions with
// three priority lanes drained high-to-low on every ProcessPending call.
type Bus struct {
	mu          sync.RWMutex
	subs        map[uint64]*subscription
	nextSubID   uint64
	capacity    int
	sendTimeout time.Duration
}

// New constructs a Bus with the given per-lane channel capacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 256
	}
	return &Bus{
		subs:        make(map[uint64]*subscription),
		capacity:    capacity,
		sendTimeout: DefaultSendTimeout,
	}
}

type subscription struct {
	id       uint64
	mask     TypeMask
	filter   Filter
	high     chan Event
	normal   chan Event
	low      chan Event
	active   atomic.Bool
	dropped  atomic.Uint64
}

// Subscription is the caller-facing handle returned by Subscribe.
type Subscription struct {
	id  uint64
	bus *Bus
}

// ID returns the subscription's stable identifier.
func (s Subscription) ID() uint64 { return s.id }

// Subscribe registers a new subscriber selecting events whose type is in
// mask and, if filter is non-nil, that pass the predicate.
func (b *Bus) Subscribe(mask TypeMask, filter Filter) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	id := b.nextSubID
	sub := &subscription{
		id:     id,
		mask:   mask,
		filter: filter,
		high:   make(chan Event, b.capacity),
		normal: make(chan Event, b.capacity),
		low:    make(chan Event, b.capacity),
	}
	sub.active.Store(true)
	b.subs[id] = sub
	return Subscription{id: id, bus: b}
}

// Unsubscribe removes a subscription; pending events for it are dropped.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
}

// Emit publishes an event to every active, matching subscriber. A
// subscriber whose lane is full when a non-blocking send fails is timed
// out per DefaultSendTimeout and then marked inactive; its drop counter is
// incremented and subsequent emits to it are silently dropped (spec.md
// §4.2, §7).
func (b *Bus) Emit(event Event) error {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	var firstErr error
	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		if sub.mask&event.Type == 0 {
			continue
		}
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		if err := b.deliver(sub, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Bus) deliver(sub *subscription, event Event) error {
	lane := sub.lane(event.Priority)
	select {
	case lane <- event:
		return nil
	default:
	}

	timer := time.NewTimer(b.sendTimeout)
	defer timer.Stop()
	select {
	case lane <- event:
		return nil
	case <-timer.C:
		sub.dropped.Add(1)
		sub.active.Store(false)
		return &QueueFullError{SubscriptionID: sub.id}
	}
}

func (s *subscription) lane(p Priority) chan Event {
	switch p {
	case High:
		return s.high
	case Normal:
		return s.normal
	default:
		return s.low
	}
}

// ProcessPending drains up to DrainBatchSize events per subscriber, High
// lane first, then Normal, then Low, handing each to fn. It returns the
// total number of events delivered across all subscribers.
func (b *Bus) ProcessPending(fn func(subID uint64, event Event)) int {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		count := 0
		for _, lane := range [3]chan Event{sub.high, sub.normal, sub.low} {
			for count < DrainBatchSize {
				select {
				case event := <-lane:
					fn(sub.id, event)
					count++
					delivered++
				default:
					goto nextLane
				}
			}
		nextLane:
		}
	}
	return delivered
}

// DroppedCount reports how many events have been dropped for a subscriber
// due to queue saturation.
func (b *Bus) DroppedCount(subID uint64) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.subs[subID]; ok {
		return sub.dropped.Load()
	}
	return 0
}

// Active reports whether a subscriber is still receiving events.
func (b *Bus) Active(subID uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.subs[subID]; ok {
		return sub.active.Load()
	}
	return false
}
