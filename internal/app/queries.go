package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/velorank/internal/adapters/repository"
	"github.com/okian/velorank/internal/domain/model"
)

// AthleteRating is an athlete together with its rating record.
type AthleteRating struct {
	Athlete model.Athlete      `json:"athlete"`
	Rating  model.RatingRecord `json:"rating"`
}

// TopN returns the n best athletes by overall, capped at the configured limit.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}
	if n > s.maxRankingsLimit {
		n = s.maxRankingsLimit
	}
	return s.rankings.TopN(ctx, n)
}

// Rank returns the ranking row of one athlete.
func (s *Service) Rank(ctx context.Context, athleteID string) (repository.Entry, error) {
	return s.rankings.Rank(ctx, athleteID)
}

// GetRating returns the athlete and its record. An athlete that was never rated
// gets a record at the default ratings.
func (s *Service) GetRating(ctx context.Context, athleteID string) (AthleteRating, error) {
	athlete, err := s.store.GetAthlete(ctx, athleteID)
	if err != nil {
		return AthleteRating{}, err
	}
	dimKeys, profileKeys := s.catalog.Keys(), s.profiles.Keys()
	rec, err := s.store.GetRating(ctx, athleteID)
	switch {
	case err == nil:
		rec.Materialize(dimKeys, profileKeys)
	case errors.Is(err, repository.ErrNotFound):
		rec = *model.NewRatingRecord(athleteID, dimKeys, profileKeys)
	default:
		return AthleteRating{}, err
	}
	return AthleteRating{Athlete: athlete, Rating: rec}, nil
}

// History returns the athlete's change log, newest first. limit <= 0 returns all.
func (s *Service) History(ctx context.Context, athleteID string, limit int) ([]model.HistoryEntry, error) {
	if _, err := s.store.GetAthlete(ctx, athleteID); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, athleteID, limit)
}
