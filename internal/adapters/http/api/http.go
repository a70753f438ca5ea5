// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/okian/velorank/internal/adapters/repository"
	service "github.com/okian/velorank/internal/app"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/pkg/logger"
)

// Request body limits.
const (
	maxBodyBytes       = 1 << 20
	maxImportBodyBytes = 16 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	UpdateRaceRatings(ctx context.Context, raceID string, forceBatch bool) (model.RaceUpdateReport, error)
	AnalyzeText(ctx context.Context, req service.AnalysisRequest) (service.AnalysisReport, error)

	// Import runs a batch inline; EnqueueImport hands it to the worker pool.
	Import(ctx context.Context, batch model.ImportBatch) (model.ImportReport, error)
	EnqueueImport(ctx context.Context, batch model.ImportBatch) (string, error)

	// Read operations expose rankings, ratings and history.
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, athleteID string) (Entry, error)
	GetRating(ctx context.Context, athleteID string) (service.AthleteRating, error)
	History(ctx context.Context, athleteID string, limit int) ([]model.HistoryEntry, error)
}

// Entry mirrors the read shape returned by rankings queries.
type Entry = repository.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	deps    Dependencies
	stats   StatsProvider
	health  *HealthHandler
	limiter *rate.Limiter
	origins []string
	logger  logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAnalysisRateLimit limits POST /analysis to perSecond requests with the given burst.
func WithAnalysisRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond > 0 && burst > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		stats:   statsProvider,
		health:  NewHealthHandler(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.handleStats, "stats"))

	r.Post("/races/{raceID}/ratings", MetricsMiddleware(s.handleUpdateRatings, "race_ratings"))
	r.With(s.rateLimit("analysis")).Post("/analysis", MetricsMiddleware(s.handleAnalysis, "analysis"))
	r.Post("/imports", MetricsMiddleware(s.handleImport, "imports"))

	r.Get("/rankings", MetricsMiddleware(s.handleRankings, "rankings"))
	r.Route("/athletes/{athleteID}", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.handleGetAthlete, "athlete"))
		r.Get("/rank", MetricsMiddleware(s.handleGetRank, "athlete_rank"))
		r.Get("/history", MetricsMiddleware(s.handleHistory, "athlete_history"))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a JSON body into v. An empty body is allowed when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %v", ErrBadRequest, err)
	}
	return nil
}
