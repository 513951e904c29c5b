package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
)

// PlaceRequest is the body of POST /places and PUT /places/{id}.
type PlaceRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p PlaceRequest) toPlace(id uuid.UUID) domain.Place {
	return domain.Place{ID: id, Name: p.Name, Latitude: p.Latitude, Longitude: p.Longitude}
}

// ListPlaces handles GET /places.
func (s *Server) ListPlaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.places.ListPlaces(r.Context()))
}

// CreatePlace handles POST /places.
func (s *Server) CreatePlace(w http.ResponseWriter, r *http.Request) {
	var body PlaceRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	created, err := s.places.CreatePlace(r.Context(), body.toPlace(uuid.Nil))
	if err != nil {
		s.writeError(w, r, "place", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetPlace handles GET /places/{id}.
func (s *Server) GetPlace(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	p, err := s.places.GetPlace(r.Context(), ids[0])
	if err != nil {
		s.writeError(w, r, "place", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePlace handles PUT /places/{id}.
func (s *Server) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}
	var body PlaceRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	updated, err := s.places.UpdatePlace(r.Context(), body.toPlace(ids[0]))
	if err != nil {
		s.writeError(w, r, "place", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeletePlace handles DELETE /places/{id}. Every visit to the place is
// removed from its trip as well.
func (s *Server) DeletePlace(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	if err := s.places.DeletePlace(r.Context(), ids[0]); err != nil {
		s.writeError(w, r, "place", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
