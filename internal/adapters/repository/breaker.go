package repository

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/pkg/logger"
	"github.com/okian/velorank/pkg/metrics"
)

// BreakerStore wraps the per-athlete write path of a Store in a circuit breaker.
// While open, writes fail fast with gobreaker.ErrOpenState and callers record
// them as skipped writes. Reads pass straight through.
type BreakerStore struct {
	Store
	cb *gobreaker.CircuitBreaker
}

// BreakerOption configures a BreakerStore.
type BreakerOption func(*gobreaker.Settings)

// WithMaxFailures opens the breaker after n consecutive failures.
func WithMaxFailures(n int) BreakerOption {
	return func(s *gobreaker.Settings) {
		if n > 0 {
			limit := uint32(n)
			s.ReadyToTrip = func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= limit }
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(s *gobreaker.Settings) {
		if d > 0 {
			s.Timeout = d
		}
	}
}

// NewBreakerStore decorates inner with a breaker named "store".
func NewBreakerStore(inner Store, opts ...BreakerOption) *BreakerStore {
	log := logger.Get().Named("store-breaker")
	settings := gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			log.Warn(context.Background(), "breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	metrics.UpdateBreakerState(settings.Name, int(gobreaker.StateClosed))
	return &BreakerStore{Store: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state.
func (s *BreakerStore) State() gobreaker.State { return s.cb.State() }

func (s *BreakerStore) exec(fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func (s *BreakerStore) UpsertRating(ctx context.Context, rec model.RatingRecord) error {
	return s.exec(func() error { return s.Store.UpsertRating(ctx, rec) })
}

func (s *BreakerStore) AppendHistory(ctx context.Context, h model.HistoryEntry) error {
	return s.exec(func() error { return s.Store.AppendHistory(ctx, h) })
}

func (s *BreakerStore) SetRatingChange(ctx context.Context, raceID, athleteID string, change int) error {
	return s.exec(func() error { return s.Store.SetRatingChange(ctx, raceID, athleteID, change) })
}
