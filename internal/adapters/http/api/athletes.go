package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleGetAthlete handles GET /athletes/{athleteID}.
func (s *Server) handleGetAthlete(w http.ResponseWriter, r *http.Request) {
	ar, err := s.deps.GetRating(r.Context(), chi.URLParam(r, "athleteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ar)
}

// handleHistory handles GET /athletes/{athleteID}/history?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		limit = parsed
	}
	entries, err := s.deps.History(r.Context(), chi.URLParam(r, "athleteID"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
