package handler

import "net/http"

// ClearCache handles DELETE /cache. Cached trip data is dropped; the diary is
// kept.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	s.maintenance.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// SyncReminders handles POST /reminders/sync and reports how many reminders
// were cancelled and scheduled.
func (s *Server) SyncReminders(w http.ResponseWriter, r *http.Request) {
	res, err := s.maintenance.SyncReminders(r.Context())
	if err != nil {
		s.writeError(w, r, "reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
