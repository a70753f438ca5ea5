package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/velorank/internal/adapters/repository"
	"github.com/okian/velorank/internal/domain/history"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/internal/domain/rating"
	"github.com/okian/velorank/pkg/logger"
	"github.com/okian/velorank/pkg/metrics"
)

// maxReportedUpdates bounds the per-athlete rows returned in a race report.
const maxReportedUpdates = 20

// raceWrite is the pending persistence for one athlete after a race.
type raceWrite struct {
	result model.ResultEntry
	record *model.RatingRecord
	before int
	entry  *model.HistoryEntry
}

// UpdateRaceRatings rates a stored race. Finishers get new ratings, DNF entries a
// DNF count. A race without finishers yields a report with Noop set and no writes.
// Per-athlete write failures are logged and counted, never returned.
func (s *Service) UpdateRaceRatings(ctx context.Context, raceID string, forceBatch bool) (model.RaceUpdateReport, error) {
	start := time.Now()
	if strings.TrimSpace(raceID) == "" {
		return model.RaceUpdateReport{}, fmt.Errorf("%w: race id is required", ErrInvalidInput)
	}

	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return model.RaceUpdateReport{}, fmt.Errorf("load race %s: %w", raceID, err)
	}
	cs, err := s.store.GetCharacteristics(ctx, raceID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.RaceUpdateReport{}, fmt.Errorf("load characteristics %s: %w", raceID, err)
	}
	results, err := s.store.ListResults(ctx, raceID)
	if err != nil {
		return model.RaceUpdateReport{}, fmt.Errorf("load results %s: %w", raceID, err)
	}

	var finishers, dnfs []model.ResultEntry
	for _, r := range results {
		switch {
		case r.Finisher():
			finishers = append(finishers, r)
		case r.DNF:
			dnfs = append(dnfs, r)
		}
	}

	report := model.RaceUpdateReport{
		RaceID:       race.ID,
		RaceName:     race.Name,
		Importance:   s.importance.For(race.Category, cs.Importance()),
		Participants: len(finishers),
	}
	if len(finishers) == 0 {
		report.Noop = true
		metrics.RecordRaceNoop()
		s.logger.Info(ctx, "race has no finishers, nothing to update", logger.String("race_id", raceID))
		return report, nil
	}

	weights := s.inferencer.Infer(race, cs.Weights)
	records, err := s.loadRecords(ctx, append(finishers, dnfs...))
	if err != nil {
		return model.RaceUpdateReport{}, err
	}

	in := rating.Input{
		Participants: make([]rating.Participant, len(finishers)),
		Weights:      weights,
		Importance:   report.Importance,
		Prior:        make(map[string]model.Ratings, len(finishers)),
		ForceBatch:   forceBatch,
	}
	for i, r := range finishers {
		in.Participants[i] = rating.Participant{AthleteID: r.AthleteID, Position: r.Position}
		in.Prior[r.AthleteID] = records[r.AthleteID].Dimensions
	}
	outcome, err := s.engine.Update(in)
	if err != nil {
		return model.RaceUpdateReport{}, fmt.Errorf("%w: race %s: %w", ErrInvalidInput, raceID, err)
	}
	report.Method = string(outcome.Method)
	s.saveInferred(ctx, raceID, cs, weights)

	now := s.recorder.Now()
	writes := make([]raceWrite, 0, len(finishers)+len(dnfs))
	for _, r := range finishers {
		rec := records[r.AthleteID]
		before := rec.Clone()
		rec.Dimensions = outcome.Ratings[r.AthleteID]
		s.profiles.Recompute(rec)
		history.RecordFinish(rec, r.Position, race.Date)
		rec.UpdatedAt = now
		entry := s.recorder.RaceEntry(race, r.Position, len(finishers), before, rec)
		writes = append(writes, raceWrite{result: r, record: rec, before: before.Overall, entry: &entry})
	}
	for _, r := range dnfs {
		rec := records[r.AthleteID]
		history.RecordDNF(rec)
		rec.UpdatedAt = now
		writes = append(writes, raceWrite{result: r, record: rec, before: rec.Overall})
	}

	var (
		mu      sync.Mutex
		updates []model.AthleteUpdate
		g       errgroup.Group
	)
	g.SetLimit(s.writeConcurrency)
	for _, w := range writes {
		g.Go(func() error {
			ok := s.persistRaceWrite(ctx, raceID, w)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case !ok:
				report.WriteFailures++
			case w.entry != nil:
				report.Updated++
				updates = append(updates, model.AthleteUpdate{
					AthleteID:     w.record.AthleteID,
					Position:      w.result.Position,
					OverallBefore: w.before,
					OverallAfter:  w.record.Overall,
					Change:        w.record.Overall - w.before,
				})
			default:
				report.DNFs++
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(updates, func(i, j int) bool { return updates[i].Position < updates[j].Position })
	if len(updates) > maxReportedUpdates {
		updates = updates[:maxReportedUpdates]
	}
	report.Updates = updates

	metrics.RecordRaceProcessed(report.Method)
	metrics.RecordAthletesRated(report.Updated)
	metrics.RecordRatingUpdateLatency(float64(time.Since(start).Milliseconds()))
	metrics.UpdateRankedAthletes(s.rankings.Count(ctx))

	s.logger.Info(ctx, "race ratings updated",
		logger.String("race_id", raceID),
		logger.String("method", report.Method),
		logger.Float64("importance", report.Importance),
		logger.Int("participants", report.Participants),
		logger.Int("updated", report.Updated),
		logger.Int("write_failures", report.WriteFailures),
	)
	return report, nil
}

// loadRecords returns a materialized record per athlete, fresh for unrated ones.
func (s *Service) loadRecords(ctx context.Context, entries []model.ResultEntry) (map[string]*model.RatingRecord, error) {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.AthleteID
	}
	stored, err := s.store.GetRatings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	dimKeys, profileKeys := s.catalog.Keys(), s.profiles.Keys()
	out := make(map[string]*model.RatingRecord, len(ids))
	for _, id := range ids {
		if rec, ok := stored[id]; ok {
			r := rec
			r.Materialize(dimKeys, profileKeys)
			out[id] = &r
			continue
		}
		out[id] = model.NewRatingRecord(id, dimKeys, profileKeys)
	}
	return out, nil
}

// saveInferred stores the non-zero completed weights when inference added any,
// so later reads see what the race was rated with.
func (s *Service) saveInferred(ctx context.Context, raceID string, cs model.CharacteristicSet, weights map[string]float64) {
	set := make(map[string]float64)
	added := false
	for k, v := range weights {
		if v == 0 {
			continue
		}
		set[k] = v
		if cs.Weights[k] != v {
			added = true
		}
	}
	if !added {
		return
	}
	completed := model.CharacteristicSet{RaceID: raceID, Weights: set, ImportanceMultiplier: cs.ImportanceMultiplier}
	if err := s.store.PutCharacteristics(ctx, completed); err != nil {
		s.logger.Warn(ctx, "failed to store inferred characteristics",
			logger.String("race_id", raceID),
			logger.Error(err),
		)
	}
}

// persistRaceWrite reports false only when the rating itself could not be written.
func (s *Service) persistRaceWrite(ctx context.Context, raceID string, w raceWrite) bool {
	id := w.record.AthleteID
	if err := s.store.UpsertRating(ctx, *w.record); err != nil {
		s.writeFailed(ctx, id, "upsert_rating", err)
		return false
	}
	s.rankings.Upsert(ctx, id, w.record.Overall)

	if w.entry == nil {
		return true
	}
	if err := s.store.AppendHistory(ctx, *w.entry); err != nil {
		s.writeFailed(ctx, id, "append_history", err)
	}
	if err := s.store.SetRatingChange(ctx, raceID, id, w.record.Overall-w.before); err != nil {
		s.writeFailed(ctx, id, "set_rating_change", err)
	}
	return true
}

func (s *Service) writeFailed(ctx context.Context, athleteID, op string, err error) {
	metrics.RecordAthleteWriteFailure(op)
	s.logger.Error(ctx, "athlete write failed",
		logger.String("athlete_id", athleteID),
		logger.String("operation", op),
		logger.Error(err),
	)
}
