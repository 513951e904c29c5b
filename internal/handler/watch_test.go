package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/handler"
	"github.com/pkordes/travel-journal/internal/tripsync"
)

// watchHub plays the trip collection: it replays the latest snapshot to new
// watchers and lets the test publish more.
type watchHub struct {
	mu       sync.Mutex
	current  tripsync.Snapshot[domain.Trip]
	watchers map[int]func(tripsync.Snapshot[domain.Trip])
	next     int
}

func (h *watchHub) syncer() *mockTripSyncer {
	return &mockTripSyncer{
		trips: func(context.Context) tripsync.Snapshot[domain.Trip] {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.current
		},
		watchTrips: func(fn func(tripsync.Snapshot[domain.Trip])) func() {
			h.mu.Lock()
			id := h.next
			h.next++
			h.watchers[id] = fn
			snap := h.current
			h.mu.Unlock()
			fn(snap)
			return func() {
				h.mu.Lock()
				delete(h.watchers, id)
				h.mu.Unlock()
			}
		},
	}
}

func (h *watchHub) publish(snap tripsync.Snapshot[domain.Trip]) {
	h.mu.Lock()
	h.current = snap
	fns := make([]func(tripsync.Snapshot[domain.Trip]), 0, len(h.watchers))
	for _, fn := range h.watchers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (h *watchHub) watcherCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}

func TestWatchTrips_replaysThenStreams(t *testing.T) {
	hub := &watchHub{
		watchers: map[int]func(tripsync.Snapshot[domain.Trip]){},
		current:  tripsync.Snapshot[domain.Trip]{State: domain.StateLoadedFromCache, Generation: 1, Items: []domain.Trip{tripFixture()}},
	}
	srv := httptest.NewServer(handler.NewServer(handler.Deps{Trips: hub.syncer()}).Routes())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/trips/watch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var first handler.TripsEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, domain.StateLoadedFromCache, first.State)
	assert.Len(t, first.Data, 1)

	fresh := tripFixture()
	hub.publish(tripsync.Snapshot[domain.Trip]{State: domain.StateLoaded, Generation: 2, Items: []domain.Trip{fresh, tripFixture()}})

	// A replayed generation-1 snapshot may still be queued ahead of it.
	var ev handler.TripsEvent
	for ev.Generation != 2 {
		require.NoError(t, conn.ReadJSON(&ev))
	}
	require.Len(t, ev.Data, 2)
	assert.Equal(t, fresh.ID, ev.Data[0].Id)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.watcherCount() == 0 }, 5*time.Second, 10*time.Millisecond,
		"closing the socket unregisters the watcher")
}

func TestWatchTrips_plainHTTPIsRejected(t *testing.T) {
	hub := &watchHub{watchers: map[int]func(tripsync.Snapshot[domain.Trip]){}}

	rec := serve(t, handler.Deps{Trips: hub.syncer()}, http.MethodGet, "/trips/watch", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, hub.watcherCount())
}
