package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/tripsync"
)

const watchWriteTimeout = 10 * time.Second

// TripsEvent is one websocket message of GET /trips/watch.
type TripsEvent struct {
	Data       []Trip           `json:"data"`
	State      domain.LoadState `json:"state"`
	Generation uint64           `json:"generation"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WatchTrips handles GET /trips/watch. The connection receives the current
// trip list immediately and again every time it changes. Snapshots that
// arrive while the client is still reading an older one are dropped; the
// client always ends up with the latest.
func (s *Server) WatchTrips(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan tripsync.Snapshot[domain.Trip], 1)
	unwatch := s.trips.WatchTrips(func(snap tripsync.Snapshot[domain.Trip]) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			// drop the stale pending snapshot
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unwatch()

	// The client never sends anything we act on; reading only detects close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Kick a reload so the watcher sees fresh data, not only the replay. It
	// must finish even if this client leaves, or the list would fall back to
	// the cache on a cancelled query.
	go s.trips.Trips(context.WithoutCancel(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(snapshotToEvent(snap)); err != nil {
				s.log.DebugContext(ctx, "trip watcher went away", "error", err)
				return
			}
		}
	}
}

func snapshotToEvent(snap tripsync.Snapshot[domain.Trip]) TripsEvent {
	data := make([]Trip, len(snap.Items))
	for i, t := range snap.Items {
		data[i] = tripToResponse(t)
	}
	return TripsEvent{Data: data, State: snap.State, Generation: snap.Generation}
}
