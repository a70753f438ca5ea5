package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/velorank/pkg/logger"
)

// updateRatingsRequest is the optional body of POST /races/{raceID}/ratings.
type updateRatingsRequest struct {
	BatchMode bool `json:"batch_mode"`
}

// handleUpdateRatings handles POST /races/{raceID}/ratings.
// A race without finishers answers 200 with noop set.
func (s *Server) handleUpdateRatings(w http.ResponseWriter, r *http.Request) {
	raceID := strings.TrimSpace(chi.URLParam(r, "raceID"))
	var req updateRatingsRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req, true); err != nil {
		writeServiceError(w, err)
		return
	}

	report, err := s.deps.UpdateRaceRatings(r.Context(), raceID, req.BatchMode)
	if err != nil {
		if status, _ := classify(err); status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "rating update failed", logger.String("race_id", raceID), logger.Error(err))
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
