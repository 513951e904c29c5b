package tripsync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/domain"
)

// TestCollection_OverlappingAppliesDeliverInOrder holds the observer inside
// generation 1 while generation 2 is applied; the watcher must still end on 2.
func TestCollection_OverlappingAppliesDeliverInOrder(t *testing.T) {
	c := newCollection[int]()

	var mu sync.Mutex
	var got []uint64
	inFirst := make(chan struct{})
	release := make(chan struct{})
	unwatch := c.watch(func(s Snapshot[int]) {
		mu.Lock()
		got = append(got, s.Generation)
		mu.Unlock()
		if s.Generation == 1 {
			close(inFirst)
			<-release
		}
	})
	defer unwatch()

	g1, g2 := c.begin(), c.begin()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.True(t, c.apply(g1, []int{1}, domain.StateLoaded))
	}()
	<-inFirst
	go func() {
		defer wg.Done()
		assert.True(t, c.apply(g2, []int{1, 2}, domain.StateLoaded))
	}()
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{0, 1, 2}, got)
	assert.Equal(t, uint64(2), c.snapshot().Generation)
	assert.Equal(t, []int{1, 2}, c.snapshot().Items)
}

func TestObserver_SkipsOlderGenerations(t *testing.T) {
	var got []uint64
	o := &observer[int]{fn: func(s Snapshot[int]) { got = append(got, s.Generation) }}

	o.deliver(Snapshot[int]{Generation: 0})
	o.deliver(Snapshot[int]{Generation: 2})
	o.deliver(Snapshot[int]{Generation: 1}) // late replay or late apply
	o.deliver(Snapshot[int]{Generation: 2})

	assert.Equal(t, []uint64{0, 2}, got)
}

func TestCollection_PersistNeverGoesBack(t *testing.T) {
	c := newCollection[int]()
	g1, g2 := c.begin(), c.begin()
	require.True(t, c.apply(g1, []int{1}, domain.StateLoaded))
	require.True(t, c.apply(g2, []int{2}, domain.StateLoaded))

	var written []int
	write := func(v int) func() { return func() { written = append(written, v) } }

	assert.False(t, c.persist(g1, write(1)), "superseded generation")
	assert.True(t, c.persist(g2, write(2)))
	assert.False(t, c.persist(g1, write(1)), "older than persisted")
	assert.False(t, c.persist(g2, write(2)), "already persisted")

	assert.Equal(t, []int{2}, written)
}

func TestCollection_StaleApplyIsDropped(t *testing.T) {
	c := newCollection[int]()
	var got []uint64
	defer c.watch(func(s Snapshot[int]) { got = append(got, s.Generation) })()

	g1, g2 := c.begin(), c.begin()
	require.True(t, c.apply(g2, []int{2}, domain.StateLoaded))
	assert.False(t, c.apply(g1, []int{1}, domain.StateLoaded))

	assert.Equal(t, []uint64{0, 2}, got)
	assert.Equal(t, []int{2}, c.snapshot().Items)
}
