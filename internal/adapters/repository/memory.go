package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/velorank/internal/domain/model"
)

// MemoryStore is a Store kept entirely in process memory.
type MemoryStore struct {
	mu              sync.RWMutex
	athletes        map[string]model.Athlete
	athleteByName   map[string]string
	races           map[string]model.Race
	characteristics map[string]model.CharacteristicSet
	results         map[string][]model.ResultEntry
	ratings         map[string]model.RatingRecord
	history         map[string][]model.HistoryEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		athletes:        make(map[string]model.Athlete),
		athleteByName:   make(map[string]string),
		races:           make(map[string]model.Race),
		characteristics: make(map[string]model.CharacteristicSet),
		results:         make(map[string][]model.ResultEntry),
		ratings:         make(map[string]model.RatingRecord),
		history:         make(map[string][]model.HistoryEntry),
	}
}

// CreateAthlete stores a new athlete. The first athlete with a given name owns
// the case-insensitive name lookup. An existing id yields ErrAlreadyExists.
func (s *MemoryStore) CreateAthlete(_ context.Context, a model.Athlete) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.athletes[a.ID]; ok {
		return fmt.Errorf("athlete %s: %w", a.ID, ErrAlreadyExists)
	}
	s.athletes[a.ID] = a
	if _, ok := s.athleteByName[nameKey(a.Name)]; !ok {
		s.athleteByName[nameKey(a.Name)] = a.ID
	}
	return nil
}

// GetAthlete returns the athlete with id or ErrNotFound.
func (s *MemoryStore) GetAthlete(_ context.Context, id string) (model.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.athletes[id]
	if !ok {
		return model.Athlete{}, fmt.Errorf("athlete %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// FindAthleteByName looks an athlete up by case-insensitive name.
func (s *MemoryStore) FindAthleteByName(_ context.Context, name string) (model.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.athleteByName[nameKey(name)]
	if !ok {
		return model.Athlete{}, fmt.Errorf("athlete %q: %w", name, ErrNotFound)
	}
	return s.athletes[id], nil
}

// ListAthletes returns every athlete ordered by id.
func (s *MemoryStore) ListAthletes(_ context.Context) ([]model.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Athlete, 0, len(s.athletes))
	for _, a := range s.athletes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateRace stores a new race. An existing id yields ErrAlreadyExists.
func (s *MemoryStore) CreateRace(_ context.Context, r model.Race) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.races[r.ID]; ok {
		return fmt.Errorf("race %s: %w", r.ID, ErrAlreadyExists)
	}
	s.races[r.ID] = r
	return nil
}

// GetRace returns the race with id or ErrNotFound.
func (s *MemoryStore) GetRace(_ context.Context, id string) (model.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.races[id]
	if !ok {
		return model.Race{}, fmt.Errorf("race %s: %w", id, ErrNotFound)
	}
	return r, nil
}

// FindRace returns the race with the given case-insensitive name on the same
// calendar day. Ties resolve to the lowest id.
func (s *MemoryStore) FindRace(_ context.Context, name string, date time.Time) (model.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, day := nameKey(name), dayKey(date)
	var found *model.Race
	for id := range s.races {
		r := s.races[id]
		if nameKey(r.Name) == key && dayKey(r.Date) == day && (found == nil || r.ID < found.ID) {
			found = &r
		}
	}
	if found == nil {
		return model.Race{}, fmt.Errorf("race %q: %w", name, ErrNotFound)
	}
	return *found, nil
}

// GetCharacteristics returns a copy of the race's characteristic set or ErrNotFound.
func (s *MemoryStore) GetCharacteristics(_ context.Context, raceID string) (model.CharacteristicSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.characteristics[raceID]
	if !ok {
		return model.CharacteristicSet{}, fmt.Errorf("characteristics %s: %w", raceID, ErrNotFound)
	}
	cs.Weights = cloneWeights(cs.Weights)
	return cs, nil
}

// PutCharacteristics replaces the characteristic set of cs.RaceID.
func (s *MemoryStore) PutCharacteristics(_ context.Context, cs model.CharacteristicSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs.Weights = cloneWeights(cs.Weights)
	s.characteristics[cs.RaceID] = cs
	return nil
}

// ListResults returns the race's results in insertion order.
func (s *MemoryStore) ListResults(_ context.Context, raceID string) ([]model.ResultEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ResultEntry(nil), s.results[raceID]...), nil
}

// ReplaceResults drops any previous results of the race and stores results.
func (s *MemoryStore) ReplaceResults(_ context.Context, raceID string, results []model.ResultEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ResultEntry, len(results))
	for i, r := range results {
		r.RaceID = raceID
		out[i] = r
	}
	s.results[raceID] = out
	return nil
}

// SetRatingChange records the overall change on one result row.
func (s *MemoryStore) SetRatingChange(_ context.Context, raceID, athleteID string, change int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.results[raceID] {
		if s.results[raceID][i].AthleteID == athleteID {
			s.results[raceID][i].RatingChange = change
			return nil
		}
	}
	return fmt.Errorf("result %s/%s: %w", raceID, athleteID, ErrNotFound)
}

// GetRating returns a copy of the athlete's rating record or ErrNotFound.
func (s *MemoryStore) GetRating(_ context.Context, athleteID string) (model.RatingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.ratings[athleteID]
	if !ok {
		return model.RatingRecord{}, fmt.Errorf("rating %s: %w", athleteID, ErrNotFound)
	}
	return *rec.Clone(), nil
}

// GetRatings returns copies of the records that exist for athleteIDs.
// Athletes without a record are absent from the map.
func (s *MemoryStore) GetRatings(_ context.Context, athleteIDs []string) (map[string]model.RatingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.RatingRecord, len(athleteIDs))
	for _, id := range athleteIDs {
		if rec, ok := s.ratings[id]; ok {
			out[id] = *rec.Clone()
		}
	}
	return out, nil
}

// UpsertRating stores a copy of rec, replacing any previous record.
func (s *MemoryStore) UpsertRating(_ context.Context, rec model.RatingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[rec.AthleteID] = *rec.Clone()
	return nil
}

// ListOveralls returns the overall rating of every rated athlete, unordered.
func (s *MemoryStore) ListOveralls(_ context.Context) ([]model.RankedAthlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RankedAthlete, 0, len(s.ratings))
	for id, rec := range s.ratings {
		out = append(out, model.RankedAthlete{AthleteID: id, Overall: rec.Overall})
	}
	return out, nil
}

// AppendHistory appends h to the athlete's history.
func (s *MemoryStore) AppendHistory(_ context.Context, h model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.Deltas = cloneDeltas(h.Deltas)
	s.history[h.AthleteID] = append(s.history[h.AthleteID], h)
	return nil
}

// ListHistory returns up to limit entries, newest first. A limit of 0 returns all.
func (s *MemoryStore) ListHistory(_ context.Context, athleteID string, limit int) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[athleteID]
	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.HistoryEntry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		h := entries[i]
		h.Deltas = cloneDeltas(h.Deltas)
		out = append(out, h)
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cloneWeights(w map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

func cloneDeltas(d map[string]int) map[string]int {
	out := make(map[string]int, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
