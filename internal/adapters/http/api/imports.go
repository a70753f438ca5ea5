package api

import (
	"net/http"
	"strconv"

	"github.com/okian/velorank/internal/domain/model"
)

type importAccepted struct {
	ImportID string `json:"import_id"`
	Status   string `json:"status"`
}

// handleImport handles POST /imports. With ?async=true the batch is queued and
// the response is 202; otherwise the import report is returned inline.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	async := false
	if v := r.URL.Query().Get("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		async = b
	}

	var batch model.ImportBatch
	if err := decodeJSON(w, r, maxImportBodyBytes, &batch, false); err != nil {
		writeServiceError(w, err)
		return
	}

	if async {
		id, err := s.deps.EnqueueImport(r.Context(), batch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, importAccepted{ImportID: id, Status: "queued"})
		return
	}

	report, err := s.deps.Import(r.Context(), batch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
