package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const defaultRankingsLimit = 10

// handleRankings handles GET /rankings?limit=N.
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	n := defaultRankingsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		n = parsed
	}
	entries, err := s.deps.TopN(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleGetRank handles GET /athletes/{athleteID}/rank.
func (s *Server) handleGetRank(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Rank(r.Context(), chi.URLParam(r, "athleteID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
