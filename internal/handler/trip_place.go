package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
)

// TripPlaceRequest is the body of POST /trips/{id}/places. Exactly one of
// PlaceID (visit an existing place) or Place (create a new one) must be set.
type TripPlaceRequest struct {
	PlaceID       *uuid.UUID    `json:"place_id,omitempty"`
	Place         *PlaceRequest `json:"place,omitempty"`
	ArrivalDate   *time.Time    `json:"arrival_date,omitempty"`
	DepartureDate *time.Time    `json:"departure_date,omitempty"`
	IsAlertActive bool          `json:"is_alert_active"`
	Note          string        `json:"note,omitempty"`
}

var errBodyConflict = errors.New("set either place_id or place, not both")

// TripPlaceUpdate is the body of PUT /trips/{id}/places/{tpid}.
type TripPlaceUpdate struct {
	ArrivalDate   *time.Time `json:"arrival_date,omitempty"`
	DepartureDate *time.Time `json:"departure_date,omitempty"`
	IsAlertActive bool       `json:"is_alert_active"`
	Note          string     `json:"note,omitempty"`
}

// ReorderRequest is the body of PUT /trips/{id}/places/order: every trip
// place id of the trip, in the new visit order.
type ReorderRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// TripPlaceList is the body of GET /trips/{id}/places.
type TripPlaceList struct {
	Data       []domain.TripPlace `json:"data"`
	State      domain.LoadState   `json:"state"`
	Generation uint64             `json:"generation"`
}

// ListTripPlaces handles GET /trips/{id}/places, ordered by visit order.
func (s *Server) ListTripPlaces(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	snap := s.trips.TripPlaces(r.Context(), ids[0])
	writeJSON(w, http.StatusOK, TripPlaceList{Data: snap.Items, State: snap.State, Generation: snap.Generation})
}

// CreateTripPlace handles POST /trips/{id}/places.
func (s *Server) CreateTripPlace(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}
	var body TripPlaceRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	tp := domain.TripPlace{
		TripID:        ids[0],
		ArrivalDate:   body.ArrivalDate,
		DepartureDate: body.DepartureDate,
		IsAlertActive: body.IsAlertActive,
		Note:          body.Note,
	}

	var (
		created domain.TripPlace
		err     error
	)
	switch {
	case body.Place != nil && body.PlaceID != nil:
		requestError(w, errBodyConflict)
		return
	case body.Place != nil:
		created, err = s.trips.AddPlaceToTrip(r.Context(), body.Place.toPlace(uuid.Nil), tp)
	case body.PlaceID != nil:
		tp.PlaceID = *body.PlaceID
		created, err = s.trips.CreateTripPlace(r.Context(), tp)
	default:
		requestError(w, errors.New("place_id or place is required"))
		return
	}
	if err != nil {
		s.writeError(w, r, "trip or place", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetTripPlace handles GET /trips/{id}/places/{tpid}.
func (s *Server) GetTripPlace(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id", "tpid")
	if !ok {
		return
	}

	tp, err := s.trips.GetTripPlace(r.Context(), ids[0], ids[1])
	if err != nil {
		s.writeError(w, r, "trip place", err)
		return
	}
	writeJSON(w, http.StatusOK, tp)
}

// UpdateTripPlace handles PUT /trips/{id}/places/{tpid}. The visit order is
// changed only through the reorder endpoint.
func (s *Server) UpdateTripPlace(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id", "tpid")
	if !ok {
		return
	}
	var body TripPlaceUpdate
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	updated, err := s.trips.UpdateTripPlace(r.Context(), domain.TripPlace{
		ID:            ids[1],
		TripID:        ids[0],
		ArrivalDate:   body.ArrivalDate,
		DepartureDate: body.DepartureDate,
		IsAlertActive: body.IsAlertActive,
		Note:          body.Note,
	})
	if err != nil {
		s.writeError(w, r, "trip place", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTripPlace handles DELETE /trips/{id}/places/{tpid}.
func (s *Server) DeleteTripPlace(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id", "tpid")
	if !ok {
		return
	}

	if err := s.trips.DeleteTripPlace(r.Context(), ids[0], ids[1]); err != nil {
		s.writeError(w, r, "trip place", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderTripPlaces handles PUT /trips/{id}/places/order and responds with
// the place list in its new order.
func (s *Server) ReorderTripPlaces(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}
	var body ReorderRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	if err := s.trips.ReorderTripPlaces(r.Context(), ids[0], body.IDs); err != nil {
		s.writeError(w, r, "trip", err)
		return
	}
	snap := s.trips.TripPlaces(r.Context(), ids[0])
	writeJSON(w, http.StatusOK, TripPlaceList{Data: snap.Items, State: snap.State, Generation: snap.Generation})
}
