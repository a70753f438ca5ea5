package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/velorank/internal/adapters/repository"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/internal/domain/traits"
	"github.com/okian/velorank/pkg/logger"
	"github.com/okian/velorank/pkg/metrics"
)

// Limits on what an analysis report carries.
const (
	maxAdjustmentsPerAthlete = 10
	minReportedAdjustment    = 0.1
	maxSourcesPerAthlete     = 3
	maxSampleExtractions     = 20
)

// AnalysisRequest asks for trait extraction over one or more texts.
// A nil ConfidenceThreshold uses traits.DefaultThreshold.
type AnalysisRequest struct {
	Texts               []string
	SourceType          string
	ApplyUpdates        bool
	ConfidenceThreshold *float64
}

// AthleteAnalysis is the aggregated view of one mentioned athlete.
type AthleteAnalysis struct {
	AthleteID   string          `json:"athlete_id"`
	Name        string          `json:"name"`
	Adjustments []traits.Ranked `json:"adjustments"`
	Sources     []string        `json:"sources"`
}

// AppliedUpdate is one athlete whose rating was changed by the analysis.
type AppliedUpdate struct {
	AthleteID         string `json:"athlete_id"`
	Name              string `json:"name"`
	DimensionsChanged int    `json:"dimensions_changed"`
	OverallChange     int    `json:"overall_change"`
}

// AnalysisReport is the result of AnalyzeText.
type AnalysisReport struct {
	TextsProcessed   int                 `json:"texts_processed"`
	TotalExtractions int                 `json:"total_extractions"`
	AthletesFound    int                 `json:"athletes_found"`
	SourceType       string              `json:"source_type"`
	Reliability      float64             `json:"reliability"`
	Athletes         []AthleteAnalysis   `json:"athletes"`
	Samples          []traits.Extraction `json:"sample_extractions"`
	Applied          []AppliedUpdate     `json:"applied,omitempty"`
	WriteFailures    int                 `json:"write_failures,omitempty"`
}

// AnalyzeText extracts rating adjustments from free text against every known athlete
// and, when asked, applies them. Each athlete is updated at most once per request;
// a failed write for one athlete does not stop the others.
func (s *Service) AnalyzeText(ctx context.Context, req AnalysisRequest) (AnalysisReport, error) {
	var texts []string
	for _, t := range req.Texts {
		if strings.TrimSpace(t) != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return AnalysisReport{}, fmt.Errorf("%w: text or texts is required", ErrInvalidInput)
	}
	threshold := traits.DefaultThreshold
	if req.ConfidenceThreshold != nil {
		threshold = *req.ConfidenceThreshold
	}
	if threshold < 0 {
		return AnalysisReport{}, fmt.Errorf("%w: confidence threshold must not be negative", ErrInvalidInput)
	}
	source := strings.ToLower(strings.TrimSpace(req.SourceType))
	if source == "" {
		source = traits.SourceNews
	}

	athletes, err := s.store.ListAthletes(ctx)
	if err != nil {
		return AnalysisReport{}, fmt.Errorf("list athletes: %w", err)
	}
	known := make([]traits.Athlete, len(athletes))
	for i, a := range athletes {
		known[i] = traits.Athlete{ID: a.ID, Name: a.Name}
	}
	roster := traits.NewRoster(known)

	report := AnalysisReport{
		TextsProcessed: len(texts),
		SourceType:     source,
		Reliability:    s.reliability.For(source),
	}
	var extractions []traits.Extraction
	for _, text := range texts {
		res := s.extractor.Extract(text, roster)
		extractions = append(extractions, res.Extractions...)
	}
	// athletes merely named without any matched trait are not counted
	found := make(map[string]bool)
	for _, e := range extractions {
		found[e.AthleteID] = true
	}
	report.TotalExtractions = len(extractions)
	report.AthletesFound = len(found)
	if len(extractions) > maxSampleExtractions {
		report.Samples = extractions[:maxSampleExtractions]
	} else {
		report.Samples = extractions
	}

	adjustments := traits.Aggregate(extractions)
	for _, adj := range adjustments {
		sources := adj.Sources
		if len(sources) > maxSourcesPerAthlete {
			sources = sources[:maxSourcesPerAthlete]
		}
		report.Athletes = append(report.Athletes, AthleteAnalysis{
			AthleteID:   adj.AthleteID,
			Name:        adj.AthleteName,
			Adjustments: adj.Top(maxAdjustmentsPerAthlete, minReportedAdjustment),
			Sources:     sources,
		})
	}
	metrics.RecordTextAnalysis(report.TotalExtractions)

	if req.ApplyUpdates {
		gate := traits.Gate{Threshold: threshold, Reliability: report.Reliability, MaxChange: traits.DefaultMaxChange}
		report.Applied, report.WriteFailures = s.applyAdjustments(ctx, source, gate, adjustments)
		metrics.RecordTextUpdatesApplied(len(report.Applied))
	}

	s.logger.Info(ctx, "text analysed",
		logger.Int("texts", report.TextsProcessed),
		logger.Int("extractions", report.TotalExtractions),
		logger.Int("athletes", report.AthletesFound),
		logger.Bool("apply", req.ApplyUpdates),
		logger.Int("applied", len(report.Applied)),
	)
	return report, nil
}

// applyAdjustments writes the gated adjustments, returning the applied athletes in
// aggregation order and the number of failed writes.
func (s *Service) applyAdjustments(ctx context.Context, source string, gate traits.Gate, adjustments []traits.Adjustment) ([]AppliedUpdate, int) {
	slots := make([]*AppliedUpdate, len(adjustments))
	var (
		mu       sync.Mutex
		failures int
		g        errgroup.Group
	)
	g.SetLimit(s.writeConcurrency)
	for i, adj := range adjustments {
		plan := gate.Plan(adj.Values)
		if plan.Empty() {
			continue
		}
		g.Go(func() error {
			applied, err := s.applyOne(ctx, source, adj, plan)
			if err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			slots[i] = applied
			return nil
		})
	}
	_ = g.Wait()

	var out []AppliedUpdate
	for _, a := range slots {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, failures
}

func (s *Service) applyOne(ctx context.Context, source string, adj traits.Adjustment, plan traits.Plan) (*AppliedUpdate, error) {
	dimKeys, profileKeys := s.catalog.Keys(), s.profiles.Keys()

	var rec *model.RatingRecord
	stored, err := s.store.GetRating(ctx, adj.AthleteID)
	switch {
	case err == nil:
		rec = &stored
		rec.Materialize(dimKeys, profileKeys)
	case errors.Is(err, repository.ErrNotFound):
		rec = model.NewRatingRecord(adj.AthleteID, dimKeys, profileKeys)
	default:
		s.writeFailed(ctx, adj.AthleteID, "get_rating", err)
		return nil, err
	}

	overallBefore := rec.Overall
	changes := plan.Apply(rec)
	s.profiles.Recompute(rec)
	plan.ApplyOverall(rec)
	rec.BumpConfidence(model.TextConfidenceStep)
	rec.UpdatedAt = s.recorder.Now()

	if err := s.store.UpsertRating(ctx, *rec); err != nil {
		s.writeFailed(ctx, adj.AthleteID, "upsert_rating", err)
		return nil, err
	}
	s.rankings.Upsert(ctx, rec.AthleteID, rec.Overall)

	snippet := ""
	if len(adj.Sources) > 0 {
		snippet = adj.Sources[0]
	}
	entry := s.recorder.TextEntry(adj.AthleteID, source, snippet, changes, overallBefore, rec.Overall)
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		s.writeFailed(ctx, adj.AthleteID, "append_history", err)
	}

	changed := 0
	for _, d := range changes {
		if d != 0 {
			changed++
		}
	}
	return &AppliedUpdate{
		AthleteID:         adj.AthleteID,
		Name:              adj.AthleteName,
		DimensionsChanged: changed,
		OverallChange:     rec.Overall - overallBefore,
	}, nil
}
