package api

import (
	"net/http"

	service "github.com/okian/velorank/internal/app"
)

// analysisRequest is the body of POST /analysis. Text and Texts are merged.
type analysisRequest struct {
	Text                string   `json:"text"`
	Texts               []string `json:"texts"`
	SourceType          string   `json:"source_type"`
	ApplyUpdates        bool     `json:"apply_updates"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
}

// handleAnalysis handles POST /analysis.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req, false); err != nil {
		writeServiceError(w, err)
		return
	}
	texts := req.Texts
	if req.Text != "" {
		texts = append([]string{req.Text}, texts...)
	}

	report, err := s.deps.AnalyzeText(r.Context(), service.AnalysisRequest{
		Texts:               texts,
		SourceType:          req.SourceType,
		ApplyUpdates:        req.ApplyUpdates,
		ConfidenceThreshold: req.ConfidenceThreshold,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
