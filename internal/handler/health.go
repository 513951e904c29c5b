package handler

import (
	"net/http"

	"github.com/pkordes/travel-journal/internal/domain"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Mode           string           `json:"mode"`
	TripsState     domain.LoadState `json:"trips_state"`
	TripsCount     int              `json:"trips_count"`
	TripGeneration uint64           `json:"trips_generation"`
}

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running,
// whether or not the remote backend is reachable.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GetStatus handles GET /status: the network mode and the state of the trip
// list as last loaded.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.trips.Trips(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{
		Mode:           s.trips.Mode().String(),
		TripsState:     snap.State,
		TripsCount:     len(snap.Items),
		TripGeneration: snap.Generation,
	})
}
