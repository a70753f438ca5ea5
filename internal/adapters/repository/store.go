// Package repository persists athletes, races, results, ratings and history,
// and keeps an in-memory rankings index over overall ratings.
package repository

import (
	"context"
	"strings"
	"time"

	"github.com/okian/velorank/internal/domain/model"
)

// AthleteStore reads and writes athletes.
type AthleteStore interface {
	CreateAthlete(ctx context.Context, a model.Athlete) error
	GetAthlete(ctx context.Context, id string) (model.Athlete, error)
	// FindAthleteByName matches names case-insensitively. Returns ErrNotFound when absent.
	FindAthleteByName(ctx context.Context, name string) (model.Athlete, error)
	ListAthletes(ctx context.Context) ([]model.Athlete, error)
}

// RaceStore reads and writes races, their characteristics and results.
type RaceStore interface {
	CreateRace(ctx context.Context, r model.Race) error
	GetRace(ctx context.Context, id string) (model.Race, error)
	// FindRace matches the name case-insensitively on the same calendar day.
	FindRace(ctx context.Context, name string, date time.Time) (model.Race, error)

	// GetCharacteristics returns ErrNotFound when the race has none.
	GetCharacteristics(ctx context.Context, raceID string) (model.CharacteristicSet, error)
	PutCharacteristics(ctx context.Context, cs model.CharacteristicSet) error

	ListResults(ctx context.Context, raceID string) ([]model.ResultEntry, error)
	// ReplaceResults deletes every prior result of the race before inserting.
	ReplaceResults(ctx context.Context, raceID string, results []model.ResultEntry) error
	SetRatingChange(ctx context.Context, raceID, athleteID string, change int) error
}

// RatingStore reads and writes rating records and the history log.
type RatingStore interface {
	// GetRating returns ErrNotFound when the athlete has never been rated.
	GetRating(ctx context.Context, athleteID string) (model.RatingRecord, error)
	// GetRatings returns the records that exist; missing ids are omitted.
	GetRatings(ctx context.Context, athleteIDs []string) (map[string]model.RatingRecord, error)
	UpsertRating(ctx context.Context, rec model.RatingRecord) error
	// ListOveralls returns every rated athlete's overall score.
	ListOveralls(ctx context.Context) ([]model.RankedAthlete, error)

	AppendHistory(ctx context.Context, h model.HistoryEntry) error
	// ListHistory returns entries newest first. limit <= 0 returns all.
	ListHistory(ctx context.Context, athleteID string, limit int) ([]model.HistoryEntry, error)
}

// Store is the full persistence contract used by the service.
type Store interface {
	AthleteStore
	RaceStore
	RatingStore
	Close() error
}

// nameKey is the case-insensitive lookup key for athlete and race names.
func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// dayKey truncates a date to its UTC calendar day.
func dayKey(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}
