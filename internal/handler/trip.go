package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travel-journal/internal/domain"
)

// TripRequest is the body of POST /trips and PUT /trips/{id}.
type TripRequest struct {
	Name      string              `json:"name"`
	Note      *string             `json:"note,omitempty"`
	StartDate *openapi_types.Date `json:"start_date,omitempty"`
	EndDate   *openapi_types.Date `json:"end_date,omitempty"`
}

// Trip is the API representation of a trip.
type Trip struct {
	Id         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Note       string              `json:"note"`
	StartDate  *openapi_types.Date `json:"start_date,omitempty"`
	EndDate    *openapi_types.Date `json:"end_date,omitempty"`
	PlaceCount int                 `json:"place_count"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TripList is the body of GET /trips. State tells the client whether the
// data is live or the last cached snapshot.
type TripList struct {
	Data       []Trip           `json:"data"`
	Pagination Pagination       `json:"pagination"`
	State      domain.LoadState `json:"state"`
	Generation uint64           `json:"generation"`
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body TripRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	created, err := s.trips.CreateTrip(r.Context(), requestToTrip(uuid.Nil, body))
	if err != nil {
		s.writeError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if err := queryParam(r, "page", &page); err != nil {
		requestError(w, err)
		return
	}
	if err := queryParam(r, "limit", &limit); err != nil {
		requestError(w, err)
		return
	}
	params := domain.NewPaginationParams(page, limit)

	snap := s.trips.Trips(r.Context())
	trips := domain.Paginate(snap.Items, params)

	data := make([]Trip, len(trips))
	for i, t := range trips {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, TripList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: len(snap.Items),
		},
		State:      snap.State,
		Generation: snap.Generation,
	})
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	trip, err := s.trips.GetTrip(r.Context(), ids[0])
	if err != nil {
		s.writeError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// UpdateTrip handles PUT /trips/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}
	var body TripRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	updated, err := s.trips.UpdateTrip(r.Context(), requestToTrip(ids[0], body))
	if err != nil {
		s.writeError(w, r, "trip", err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated))
}

// DeleteTrip handles DELETE /trips/{id}. The trip's places and their
// reminders go with it.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	if err := s.trips.DeleteTrip(r.Context(), ids[0]); err != nil {
		s.writeError(w, r, "trip", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- mapping helpers --------------------------------------------------------

func requestToTrip(id uuid.UUID, body TripRequest) domain.Trip {
	t := domain.Trip{
		ID:        id,
		Name:      body.Name,
		StartDate: fromDate(body.StartDate),
		EndDate:   fromDate(body.EndDate),
	}
	if body.Note != nil {
		t.Note = *body.Note
	}
	return t
}

func tripToResponse(t domain.Trip) Trip {
	return Trip{
		Id:         t.ID,
		Name:       t.Name,
		Note:       t.Note,
		StartDate:  toDate(t.StartDate),
		EndDate:    toDate(t.EndDate),
		PlaceCount: t.PlaceCount,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func fromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func toDate(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}
