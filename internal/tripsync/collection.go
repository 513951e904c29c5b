package tripsync

import (
	"sync"

	"github.com/pkordes/travel-journal/internal/domain"
)

// Snapshot is the observable state of one collection.
type Snapshot[T any] struct {
	Items      []T              `json:"items"`
	State      domain.LoadState `json:"state"`
	Generation uint64           `json:"generation"`
}

// collection holds the last-known items of a list plus its observers.
//
// Every refresh takes a generation number from begin and hands it back to
// apply. A result whose generation is not newer than the last applied one is
// dropped, so a slow refresh can never overwrite a faster, later one. The same
// ordering holds for what observers see and for what is persisted: neither
// ever moves back to an older generation.
type collection[T any] struct {
	mu        sync.Mutex
	items     []T
	state     domain.LoadState
	issued    uint64
	applied   uint64
	observers map[int64]*observer[T]
	nextID    int64

	persistMu sync.Mutex
	persisted uint64
}

// observer serializes delivery to one callback and remembers the newest
// generation it was handed.
type observer[T any] struct {
	mu   sync.Mutex
	last uint64
	seen bool
	fn   func(Snapshot[T])
}

// deliver calls fn unless a snapshot at least as new already reached it.
func (o *observer[T]) deliver(snap Snapshot[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen && snap.Generation <= o.last {
		return
	}
	o.seen = true
	o.last = snap.Generation
	o.fn(snap)
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{
		items:     []T{},
		observers: make(map[int64]*observer[T]),
	}
}

// begin marks the collection as loading and returns the refresh generation.
func (c *collection[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.state = domain.StateLoading
	return c.issued
}

// apply stores items under generation gen and notifies observers. It reports
// false when a newer result has already been applied.
func (c *collection[T]) apply(gen uint64, items []T, state domain.LoadState) bool {
	c.mu.Lock()
	if gen <= c.applied {
		c.mu.Unlock()
		return false
	}
	if items == nil {
		items = []T{}
	}
	c.items = items
	c.applied = gen
	// A newer refresh may still be in flight; the state stays loading until it lands.
	if gen == c.issued {
		c.state = state
	}
	snap := c.snapshotLocked()
	observers := make([]*observer[T], 0, len(c.observers))
	for _, o := range c.observers {
		observers = append(observers, o)
	}
	c.mu.Unlock()

	for _, o := range observers {
		o.deliver(snap)
	}
	return true
}

// persist runs write for generation gen if gen is still the applied one and
// nothing newer has been persisted yet.
func (c *collection[T]) persist(gen uint64, write func()) bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if gen <= c.persisted {
		return false
	}
	c.mu.Lock()
	current := gen == c.applied
	c.mu.Unlock()
	if !current {
		return false
	}
	write()
	c.persisted = gen
	return true
}

// reset empties the collection without going through a refresh.
func (c *collection[T]) reset(state domain.LoadState) {
	c.mu.Lock()
	c.issued++
	gen := c.issued
	c.mu.Unlock()
	c.apply(gen, []T{}, state)
}

func (c *collection[T]) snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *collection[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(c.items))
	copy(items, c.items)
	return Snapshot[T]{Items: items, State: c.state, Generation: c.applied}
}

// watch registers fn, replays the current snapshot to it, and returns the
// function that unregisters it. fn must not call back into the collection's
// refresh path; it runs with its observer locked.
func (c *collection[T]) watch(fn func(Snapshot[T])) func() {
	o := &observer[T]{fn: fn}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.observers[id] = o
	snap := c.snapshotLocked()
	c.mu.Unlock()

	// An apply racing this replay may already have delivered something newer;
	// deliver skips the replay then.
	o.deliver(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

func (c *collection[T]) watched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers) > 0
}
