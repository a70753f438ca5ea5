// Package service wires the rating engine, text analysis, persistence and the
// import pipeline into the operations served by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	eventqueue "github.com/okian/velorank/internal/adapters/mq/queue"
	workerpool "github.com/okian/velorank/internal/adapters/mq/worker"
	"github.com/okian/velorank/internal/adapters/repository"
	"github.com/okian/velorank/internal/domain/dedupe"
	"github.com/okian/velorank/internal/domain/dimension"
	"github.com/okian/velorank/internal/domain/history"
	"github.com/okian/velorank/internal/domain/inference"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/internal/domain/profile"
	"github.com/okian/velorank/internal/domain/rating"
	"github.com/okian/velorank/internal/domain/traits"
	"github.com/okian/velorank/internal/importer"
	"github.com/okian/velorank/pkg/logger"
	"github.com/okian/velorank/pkg/metrics"
)

// Defaults.
const (
	defaultWriteConcurrency = 8
	defaultImportQueueSize  = 64
	defaultImportWorkers    = 2
	defaultDedupeSize       = 10000
	defaultMaxRankingsLimit = 100
	defaultResyncSchedule   = "@every 10m"
)

// importAdapter lets the worker pool drive the importer.
type importAdapter struct {
	svc *Service
}

func (a *importAdapter) ProcessImport(ctx context.Context, b model.ImportBatch) (model.ImportReport, error) {
	return a.svc.importer.Import(ctx, b), nil
}

// Service implements the API dependencies for the rating system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	rankings    *repository.Rankings
	catalog     *dimension.Catalog
	engine      *rating.Engine
	inferencer  *inference.Inferencer
	profiles    *profile.Aggregator
	extractor   *traits.Extractor
	recorder    *history.Recorder
	importer    *importer.Importer
	deduper     dedupe.Deduper
	importQueue *eventqueue.InMemoryQueue
	workerPool  *workerpool.Pool
	scheduler   *cron.Cron

	// Configuration
	kBase            float64
	headToHeadMax    int
	importance       rating.ImportanceTable
	reliability      traits.Reliability
	writeConcurrency int
	queueSize        int
	workerCount      int
	dedupeSize       int
	maxRankingsLimit int
	resyncSchedule   string

	// State
	started    bool
	importMu   sync.Mutex
	lastImport *model.ImportReport

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKBase sets the rating engine's base K factor.
func WithKBase(k float64) Option {
	return func(s *Service) { s.kBase = k }
}

// WithHeadToHeadMaxField sets the field size from which batch mode is used.
func WithHeadToHeadMaxField(n int) Option {
	return func(s *Service) { s.headToHeadMax = n }
}

// WithRaceImportance overrides category multipliers. Unlisted categories keep their defaults.
func WithRaceImportance(byCategory map[string]float64) Option {
	return func(s *Service) {
		for k, v := range byCategory {
			if v <= 0 {
				continue
			}
			for existing := range s.importance {
				if strings.EqualFold(existing, k) {
					delete(s.importance, existing)
				}
			}
			s.importance[k] = v
		}
	}
}

// WithSourceReliability overrides source multipliers on top of the defaults and sets
// the multiplier for unknown sources.
func WithSourceReliability(bySource map[string]float64, fallback float64) Option {
	return func(s *Service) {
		merged := traits.DefaultReliabilities()
		for k, v := range bySource {
			merged[strings.ToLower(k)] = v
		}
		if fallback < 0 {
			fallback = traits.DefaultReliability
		}
		s.reliability = traits.NewReliability(merged, fallback)
	}
}

// WithWriteConcurrency bounds concurrent per-athlete writes.
func WithWriteConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.writeConcurrency = n
		}
	}
}

// WithImportQueueSize sets the capacity of the async import queue.
func WithImportQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithImportWorkers sets the number of async import workers.
func WithImportWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithDedupeSize sets how many import ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxRankingsLimit caps the rankings page size.
func WithMaxRankingsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRankingsLimit = n
		}
	}
}

// WithResyncSchedule sets the cron spec for rebuilding rankings from the store.
// An empty spec disables the schedule.
func WithResyncSchedule(spec string) Option {
	return func(s *Service) { s.resyncSchedule = spec }
}

// WithRecorder sets the history recorder, mainly to fix clocks and ids in tests.
func WithRecorder(r *history.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New constructs a Service. Synchronous operations work right away; Start is
// needed for async imports and the rankings schedule.
func New(opts ...Option) *Service {
	s := &Service{
		importance:       rating.DefaultImportance(),
		reliability:      traits.DefaultReliabilityTable(),
		kBase:            rating.DefaultKBase,
		headToHeadMax:    rating.DefaultHeadToHeadMaxField,
		writeConcurrency: defaultWriteConcurrency,
		queueSize:        defaultImportQueueSize,
		workerCount:      defaultImportWorkers,
		dedupeSize:       defaultDedupeSize,
		maxRankingsLimit: defaultMaxRankingsLimit,
		resyncSchedule:   defaultResyncSchedule,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.recorder == nil {
		s.recorder = history.NewRecorder()
	}

	s.catalog = dimension.Default()
	s.engine = rating.NewEngine(s.catalog,
		rating.WithKBase(s.kBase),
		rating.WithHeadToHeadMaxField(s.headToHeadMax),
	)
	s.inferencer = inference.Default()
	s.profiles = profile.Default()
	s.extractor = traits.NewExtractor()
	s.rankings = repository.NewRankings()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.importer = importer.New(s.store, s,
		importer.WithLogger(s.logger.Named("importer")),
		importer.WithClock(s.recorder.Now),
	)
	return s
}

// Start rebuilds the rankings index and starts the import workers and the resync schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting rating service...")

	if err := s.ResyncRankings(ctx); err != nil {
		return fmt.Errorf("initial rankings load: %w", err)
	}

	s.importQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.importQueue, &importAdapter{svc: s},
		workerpool.WithLogger(s.logger.Named("worker")),
		workerpool.WithReportHandler(s.rememberImport),
	)
	s.workerPool.Start(ctx)

	if s.resyncSchedule != "" {
		s.scheduler = cron.New()
		if _, err := s.scheduler.AddFunc(s.resyncSchedule, func() {
			if err := s.ResyncRankings(context.Background()); err != nil {
				s.logger.Error(context.Background(), "scheduled rankings resync failed", logger.Error(err))
			}
		}); err != nil {
			_ = s.workerPool.Shutdown(ctx)
			return fmt.Errorf("%w: resync schedule %q: %w", ErrInvalidInput, s.resyncSchedule, err)
		}
		s.scheduler.Start()
	}

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("import_workers", s.workerCount),
		logger.Int("import_queue_size", s.queueSize),
		logger.Int("write_concurrency", s.writeConcurrency),
		logger.String("resync_schedule", s.resyncSchedule),
	)
	return nil
}

// Stop shuts down the workers and the schedule, then closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info(ctx, "stopping rating service...")

	var firstErr error
	if s.started {
		if s.scheduler != nil {
			<-s.scheduler.Stop().Done()
		}
		if s.workerPool != nil {
			if err := s.workerPool.Shutdown(ctx); err != nil {
				firstErr = err
			}
		}
		s.started = false
	}

	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}

	s.logger.Info(ctx, "rating service stopped")
	return firstErr
}

// ResyncRankings rebuilds the rankings index from the stored overall scores.
func (s *Service) ResyncRankings(ctx context.Context) error {
	start := time.Now()
	rows, err := s.store.ListOveralls(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", "rankings_resync")
		return fmt.Errorf("list overalls: %w", err)
	}
	s.rankings.Rebuild(ctx, rows)

	metrics.UpdateRankedAthletes(s.rankings.Count(ctx))
	metrics.RecordRankingsResync(float64(time.Since(start).Milliseconds()))
	s.logger.Debug(ctx, "rankings rebuilt", logger.Int("athletes", len(rows)))
	return nil
}

func (s *Service) rememberImport(report model.ImportReport) {
	s.importMu.Lock()
	defer s.importMu.Unlock()
	s.lastImport = &report
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":           s.started,
		"dimensions":        s.catalog.Len(),
		"write_concurrency": s.writeConcurrency,
		"import_workers":    s.workerCount,
		"import_queue_size": s.queueSize,
		"dedupe_size":       s.dedupeSize,
		"imports_seen":      s.deduper.Size(),
		"ranked_athletes":   s.rankings.Count(ctx),
	}

	if s.started {
		queueLen := s.importQueue.Len(ctx)
		stats["import_queue_length"] = queueLen
		metrics.UpdateImportQueueSize(queueLen)
	}
	s.importMu.Lock()
	if s.lastImport != nil {
		stats["last_import"] = *s.lastImport
	}
	s.importMu.Unlock()
	return stats
}
