package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
)

// DiaryEntryRequest is the body of POST /diary.
type DiaryEntryRequest struct {
	Date  string `json:"date"`
	Title string `json:"title,omitempty"`
}

// DiaryTitleRequest is the body of PUT /diary/{id}.
type DiaryTitleRequest struct {
	Title string `json:"title"`
}

// DiaryNoteRequest is the body of the note endpoints.
type DiaryNoteRequest struct {
	Content      string      `json:"content"`
	TripPlaceIDs []uuid.UUID `json:"trip_place_ids,omitempty"`
}

// DiaryNoteCreated is the body returned by POST /diary/dates/{date}/notes:
// the entry the note landed in and the new note.
type DiaryNoteCreated struct {
	Entry domain.DiaryEntry `json:"entry"`
	Note  domain.DiaryNote  `json:"note"`
}

// ListDiaryEntries handles GET /diary, newest date first. With ?resolved=true
// each note carries the trip places it still refers to.
func (s *Server) ListDiaryEntries(w http.ResponseWriter, r *http.Request) {
	var resolved *bool
	if err := queryParam(r, "resolved", &resolved); err != nil {
		requestError(w, err)
		return
	}

	if resolved != nil && *resolved {
		entries, err := s.diary.ResolvedEntries(r.Context())
		if err != nil {
			s.writeError(w, r, "diary entry", err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	entries, err := s.diary.Entries(r.Context())
	if err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// CreateDiaryEntry handles POST /diary.
func (s *Server) CreateDiaryEntry(w http.ResponseWriter, r *http.Request) {
	var body DiaryEntryRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	entry, err := s.diary.CreateEntry(r.Context(), body.Date, body.Title)
	if err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// DeleteAllDiaryEntries handles DELETE /diary.
func (s *Server) DeleteAllDiaryEntries(w http.ResponseWriter, r *http.Request) {
	if err := s.diary.DeleteAll(r.Context()); err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuggestDiaryPlaces handles GET /diary/suggestions?date=YYYY-MM-DD: the trip
// places whose stay covers that date.
func (s *Server) SuggestDiaryPlaces(w http.ResponseWriter, r *http.Request) {
	var date string
	if err := requiredQueryParam(r, "date", &date); err != nil {
		requestError(w, err)
		return
	}

	places, err := s.diary.SuggestPlaces(r.Context(), date)
	if err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// GetDiaryEntryByDate handles GET /diary/dates/{date}.
func (s *Server) GetDiaryEntryByDate(w http.ResponseWriter, r *http.Request) {
	entry, err := s.diary.EntryByDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// AddDiaryNote handles POST /diary/dates/{date}/notes. The entry for the date
// is created when it does not exist yet.
func (s *Server) AddDiaryNote(w http.ResponseWriter, r *http.Request) {
	var body DiaryNoteRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	entry, note, err := s.diary.AddNote(r.Context(), chi.URLParam(r, "date"), body.Content, body.TripPlaceIDs)
	if err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, DiaryNoteCreated{Entry: entry, Note: note})
}

// GetDiaryEntry handles GET /diary/{id}.
func (s *Server) GetDiaryEntry(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	entry, err := s.diary.EntryByID(r.Context(), ids[0])
	if err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// UpdateDiaryEntry handles PUT /diary/{id}; only the title is editable.
func (s *Server) UpdateDiaryEntry(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}
	var body DiaryTitleRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	entry, err := s.diary.UpdateEntryTitle(r.Context(), ids[0], body.Title)
	if err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteDiaryEntry handles DELETE /diary/{id}.
func (s *Server) DeleteDiaryEntry(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	if err := s.diary.DeleteEntry(r.Context(), ids[0]); err != nil {
		s.writeError(w, r, "diary entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateDiaryNote handles PUT /diary/{id}/notes/{noteid}.
func (s *Server) UpdateDiaryNote(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id", "noteid")
	if !ok {
		return
	}
	var body DiaryNoteRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err)
		return
	}

	note, err := s.diary.UpdateNote(r.Context(), ids[0], ids[1], body.Content, body.TripPlaceIDs)
	if err != nil {
		s.writeError(w, r, "diary note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteDiaryNote handles DELETE /diary/{id}/notes/{noteid}.
func (s *Server) DeleteDiaryNote(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id", "noteid")
	if !ok {
		return
	}

	if err := s.diary.DeleteNote(r.Context(), ids[0], ids[1]); err != nil {
		s.writeError(w, r, "diary note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
