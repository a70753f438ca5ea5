// Package importer resolves imported race sheets into stored races, athletes and
// results, then triggers a rating run per race.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/velorank/internal/adapters/repository"
	"github.com/okian/velorank/internal/domain/inference"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/pkg/logger"
	"github.com/okian/velorank/pkg/metrics"
)

// Sentinel kinds for rejected races.
var (
	ErrMissingName     = errors.New("race name is required")
	ErrInvalidDate     = errors.New("race date must be YYYY-MM-DD or RFC3339")
	ErrNoResults       = errors.New("race has no results")
	ErrUnknownTemplate = errors.New("unknown race template")
)

// Rater runs the rating update for a stored race.
type Rater interface {
	UpdateRaceRatings(ctx context.Context, raceID string, forceBatch bool) (model.RaceUpdateReport, error)
}

// Importer applies import batches. Imported races are always rated in batch mode.
type Importer struct {
	store  repository.Store
	rater  Rater
	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithClock sets the time source for created records.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) {
		if now != nil {
			im.now = now
		}
	}
}

// WithIDGenerator sets the id generator for created records.
func WithIDGenerator(gen func() string) Option {
	return func(im *Importer) {
		if gen != nil {
			im.newID = gen
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// New returns an Importer writing to store and rating through rater.
func New(store repository.Store, rater Rater, opts ...Option) *Importer {
	im := &Importer{
		store:  store,
		rater:  rater,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.logger == nil {
		im.logger = logger.Get().Named("importer")
	}
	return im
}

// Import processes every race of the batch in order. A failing race is reported
// and skipped; it never aborts the batch.
func (im *Importer) Import(ctx context.Context, batch model.ImportBatch) model.ImportReport {
	if batch.ImportID == "" {
		batch.ImportID = im.newID()
	}
	report := model.ImportReport{ImportID: batch.ImportID}
	if len(batch.Races) == 0 {
		report.Errors = append(report.Errors, "batch has no races")
		return report
	}

	for i, in := range batch.Races {
		rr := im.importRace(ctx, in)
		if rr.RaceID == "" {
			report.RacesFailed++
			metrics.RecordImport("failed")
			report.Errors = append(report.Errors, fmt.Sprintf("race %d (%s): %s", i+1, in.Name, strings.Join(rr.Errors, "; ")))
		} else {
			report.RacesImported++
			metrics.RecordImport("ok")
		}
		report.Races = append(report.Races, rr)
	}

	im.logger.Info(ctx, "import finished",
		logger.String("import_id", batch.ImportID),
		logger.Int("races_imported", report.RacesImported),
		logger.Int("races_failed", report.RacesFailed),
	)
	return report
}

// importRace stores one race. RaceID stays empty when the race could not be stored.
func (im *Importer) importRace(ctx context.Context, in model.ImportRace) model.ImportRaceReport {
	rr := model.ImportRaceReport{Name: in.Name}
	fail := func(err error) model.ImportRaceReport {
		rr.RaceID = ""
		rr.Errors = append(rr.Errors, err.Error())
		return rr
	}

	if strings.TrimSpace(in.Name) == "" {
		return fail(ErrMissingName)
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return fail(err)
	}
	if len(in.Results) == 0 {
		return fail(ErrNoResults)
	}

	weights := make(map[string]float64)
	if in.Template != "" {
		tw, ok := inference.Template(in.Template)
		if !ok {
			return fail(fmt.Errorf("%w: %s", ErrUnknownTemplate, in.Template))
		}
		for k, v := range tw {
			weights[k] = v
		}
	}
	for k, v := range in.Weights {
		weights[k] = v
	}

	race, created, err := im.findOrCreateRace(ctx, in, date)
	if err != nil {
		return fail(err)
	}
	rr.RaceID, rr.Created = race.ID, created

	results := make([]model.ResultEntry, 0, len(in.Results))
	seen := make(map[string]bool, len(in.Results))
	for j, res := range in.Results {
		athlete, createdAthlete, err := im.findOrCreateAthlete(ctx, res)
		if err != nil {
			rr.Errors = append(rr.Errors, fmt.Sprintf("result %d: %v", j+1, err))
			continue
		}
		if seen[athlete.ID] {
			rr.Errors = append(rr.Errors, fmt.Sprintf("result %d: %s listed twice", j+1, athlete.Name))
			continue
		}
		seen[athlete.ID] = true
		if createdAthlete {
			rr.AthletesCreated++
		}
		results = append(results, model.ResultEntry{
			RaceID:         race.ID,
			AthleteID:      athlete.ID,
			Position:       res.Position,
			ElapsedSeconds: res.ElapsedSeconds,
			GapSeconds:     res.GapSeconds,
			DNF:            res.DNF,
			DNS:            res.DNS,
		})
	}

	if err := im.store.ReplaceResults(ctx, race.ID, results); err != nil {
		return fail(fmt.Errorf("store results: %w", err))
	}
	rr.ResultsImported = len(results)

	if len(weights) > 0 || in.ImportanceMultiplier > 0 {
		cs := model.CharacteristicSet{RaceID: race.ID, Weights: weights, ImportanceMultiplier: in.ImportanceMultiplier}
		if err := im.store.PutCharacteristics(ctx, cs); err != nil {
			rr.Errors = append(rr.Errors, fmt.Sprintf("store characteristics: %v", err))
		}
	}

	update, err := im.rater.UpdateRaceRatings(ctx, race.ID, true)
	if err != nil {
		rr.Errors = append(rr.Errors, fmt.Sprintf("update ratings: %v", err))
		return rr
	}
	rr.RatingsUpdated, rr.Method = update.Updated, update.Method
	return rr
}

func (im *Importer) findOrCreateRace(ctx context.Context, in model.ImportRace, date time.Time) (model.Race, bool, error) {
	race, err := im.store.FindRace(ctx, in.Name, date)
	if err == nil {
		return race, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Race{}, false, fmt.Errorf("find race: %w", err)
	}
	race = model.Race{
		ID:         im.newID(),
		Name:       strings.TrimSpace(in.Name),
		Date:       date,
		Category:   in.Category,
		Terrain:    in.Terrain,
		FinishType: in.FinishType,
		DistanceKM: in.DistanceKM,
		ElevationM: in.ElevationM,
		StageRace:  in.StageRace,
	}
	if err := im.store.CreateRace(ctx, race); err != nil {
		return model.Race{}, false, fmt.Errorf("create race: %w", err)
	}
	return race, true, nil
}

func (im *Importer) findOrCreateAthlete(ctx context.Context, res model.ImportResult) (model.Athlete, bool, error) {
	name := strings.TrimSpace(res.AthleteName)
	if name == "" {
		return model.Athlete{}, false, errors.New("athlete name is required")
	}
	a, err := im.store.FindAthleteByName(ctx, name)
	if err == nil {
		return a, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Athlete{}, false, fmt.Errorf("find athlete: %w", err)
	}
	a = model.Athlete{ID: im.newID(), Name: name, Team: res.Team, Country: res.Country, CreatedAt: im.now()}
	if err := im.store.CreateAthlete(ctx, a); err != nil {
		return model.Athlete{}, false, fmt.Errorf("create athlete: %w", err)
	}
	return a, true, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
