package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/velorank/internal/adapters/repository"
	service "github.com/okian/velorank/internal/app"
	"github.com/okian/velorank/internal/domain/history"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/internal/domain/rating"
	"github.com/okian/velorank/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var raceDay = time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC)

// failingStore fails rating upserts for selected athletes.
type failingStore struct {
	repository.Store
	failFor map[string]bool
}

func (f *failingStore) UpsertRating(ctx context.Context, rec model.RatingRecord) error {
	if f.failFor[rec.AthleteID] {
		return errors.New("disk full")
	}
	return f.Store.UpsertRating(ctx, rec)
}

func newService(store repository.Store, opts ...service.Option) *service.Service {
	n := 0
	recorder := history.NewRecorder(
		history.WithClock(func() time.Time { return raceDay.Add(24 * time.Hour) }),
		history.WithIDGenerator(func() string { n++; return fmt.Sprintf("h-%d", n) }),
	)
	base := []service.Option{
		service.WithStore(store),
		service.WithLogger(logger.Nop()),
		service.WithRecorder(recorder),
		service.WithResyncSchedule(""),
	}
	return service.New(append(base, opts...)...)
}

func seedAthletes(ctx context.Context, store repository.Store, names ...string) []string {
	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = fmt.Sprintf("a%d", i+1)
		So(store.CreateAthlete(ctx, model.Athlete{ID: ids[i], Name: name, CreatedAt: raceDay}), ShouldBeNil)
	}
	return ids
}

func seedRace(ctx context.Context, store repository.Store, id string, results []model.ResultEntry) {
	So(store.CreateRace(ctx, model.Race{ID: id, Name: "Tour Stage 2", Date: raceDay, Category: "WT", Terrain: "flat"}), ShouldBeNil)
	So(store.PutCharacteristics(ctx, model.CharacteristicSet{RaceID: id, Weights: map[string]float64{"power_sprint_5s": 1.0}}), ShouldBeNil)
	So(store.ReplaceResults(ctx, id, results), ShouldBeNil)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := newService(repository.NewMemoryStore(),
			service.WithImportWorkers(3),
			service.WithImportQueueSize(8),
		)

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then stats report it as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["import_workers"], ShouldEqual, 3)
				So(stats["import_queue_length"], ShouldEqual, 0)
			})

			Convey("And starting twice is harmless", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping marks it stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the resync schedule is invalid", func() {
			bad := newService(repository.NewMemoryStore(), service.WithResyncSchedule("every tuesday"))
			err := bad.Start(ctx)

			Convey("Then Start fails with invalid input", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestService_UpdateRaceRatings(t *testing.T) {
	Convey("Given a race with two finishers and one DNF", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		ids := seedAthletes(ctx, store, "Jasper Philipsen", "Biniam Girmay", "Mark Cavendish")
		seedRace(ctx, store, "r1", []model.ResultEntry{
			{AthleteID: ids[0], Position: 1},
			{AthleteID: ids[1], Position: 2},
			{AthleteID: ids[2], DNF: true},
		})
		svc := newService(store)

		Convey("When ratings are updated", func() {
			report, err := svc.UpdateRaceRatings(ctx, "r1", false)
			So(err, ShouldBeNil)

			Convey("Then the report describes a head-to-head run", func() {
				So(report.Noop, ShouldBeFalse)
				So(report.Method, ShouldEqual, string(rating.MethodHeadToHead))
				So(report.Importance, ShouldEqual, 1.5)
				So(report.Participants, ShouldEqual, 2)
				So(report.Updated, ShouldEqual, 2)
				So(report.DNFs, ShouldEqual, 1)
				So(report.WriteFailures, ShouldEqual, 0)
				So(report.Updates, ShouldHaveLength, 2)
				So(report.Updates[0].AthleteID, ShouldEqual, ids[0])
			})

			Convey("Then the winner gains and the runner-up loses on the weighted dimension", func() {
				winner, err := svc.GetRating(ctx, ids[0])
				So(err, ShouldBeNil)
				second, err := svc.GetRating(ctx, ids[1])
				So(err, ShouldBeNil)

				gain := winner.Rating.Dimensions["power_sprint_5s"] - model.DefaultRating
				loss := model.DefaultRating - second.Rating.Dimensions["power_sprint_5s"]
				So(gain, ShouldBeGreaterThan, 0)
				So(gain, ShouldEqual, loss)
				So(winner.Rating.Wins, ShouldEqual, 1)
				So(winner.Rating.Races, ShouldEqual, 1)
				So(winner.Rating.Confidence, ShouldAlmostEqual, model.InitialConfidence+model.RaceConfidenceStep)
				So(winner.Rating.LastWinDate.Equal(raceDay), ShouldBeTrue)
			})

			Convey("Then the DNF only counts the abandon", func() {
				dnf, err := svc.GetRating(ctx, ids[2])
				So(err, ShouldBeNil)
				So(dnf.Rating.DNFs, ShouldEqual, 1)
				So(dnf.Rating.Races, ShouldEqual, 0)
				So(dnf.Rating.Dimensions["power_sprint_5s"], ShouldEqual, model.DefaultRating)
			})

			Convey("Then a history entry cites the race", func() {
				entries, err := svc.History(ctx, ids[0], 10)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].RaceID, ShouldEqual, "r1")
				So(entries[0].Reason, ShouldEqual, "Race: Tour Stage 2 (P1/2)")
				So(entries[0].Deltas["power_sprint_5s"], ShouldBeGreaterThan, 0)
			})

			Convey("Then the rankings hold the rated athletes", func() {
				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 3)

				entry, err := svc.Rank(ctx, ids[0])
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldBeGreaterThanOrEqualTo, 1)
			})

			Convey("Then inferred weights are stored alongside the explicit one", func() {
				cs, err := store.GetCharacteristics(ctx, "r1")
				So(err, ShouldBeNil)
				So(cs.Weights["power_sprint_5s"], ShouldEqual, 1.0)
				So(len(cs.Weights), ShouldBeGreaterThan, 1)
			})
		})

		Convey("When batch mode is forced", func() {
			report, err := svc.UpdateRaceRatings(ctx, "r1", true)
			So(err, ShouldBeNil)
			So(report.Method, ShouldEqual, string(rating.MethodBatch))
		})

		Convey("When one athlete's rating cannot be written", func() {
			failing := &failingStore{Store: store, failFor: map[string]bool{ids[1]: true}}
			report, err := newService(failing).UpdateRaceRatings(ctx, "r1", false)

			Convey("Then the others are still updated and the failure is counted", func() {
				So(err, ShouldBeNil)
				So(report.Updated, ShouldEqual, 1)
				So(report.WriteFailures, ShouldEqual, 1)
				So(report.Updates, ShouldHaveLength, 1)
				So(report.Updates[0].AthleteID, ShouldEqual, ids[0])
			})
		})
	})

	Convey("Given a race where nobody finished", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		ids := seedAthletes(ctx, store, "Primoz Roglic")
		seedRace(ctx, store, "r2", []model.ResultEntry{{AthleteID: ids[0], DNF: true}})
		svc := newService(store)

		report, err := svc.UpdateRaceRatings(ctx, "r2", false)

		Convey("Then the update is a no-op, not an error", func() {
			So(err, ShouldBeNil)
			So(report.Noop, ShouldBeTrue)
			So(report.Updated, ShouldEqual, 0)

			_, err := store.GetRating(ctx, ids[0])
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given invalid update requests", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		ids := seedAthletes(ctx, store, "Wout van Aert", "Mathieu van der Poel")
		seedRace(ctx, store, "r3", []model.ResultEntry{
			{AthleteID: ids[0], Position: 1},
			{AthleteID: ids[1], Position: 1},
		})
		svc := newService(store)

		Convey("Then a blank race id is invalid input", func() {
			_, err := svc.UpdateRaceRatings(ctx, " ", false)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then an unknown race is not found", func() {
			_, err := svc.UpdateRaceRatings(ctx, "missing", false)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then duplicate positions fail fast without writes", func() {
			_, err := svc.UpdateRaceRatings(ctx, "r3", false)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			So(errors.Is(err, rating.ErrDuplicatePosition), ShouldBeTrue)

			_, err = store.GetRating(ctx, ids[0])
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a race where one finisher has no position", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		ids := seedAthletes(ctx, store, "Remco Evenepoel", "Primoz Roglic", "Juan Ayuso")
		seedRace(ctx, store, "r4", []model.ResultEntry{
			{AthleteID: ids[0], Position: 1},
			{AthleteID: ids[1], Position: 2},
			{AthleteID: ids[2], Position: 0},
		})
		svc := newService(store)

		_, err := svc.UpdateRaceRatings(ctx, "r4", false)

		Convey("Then the update is rejected instead of dropping the entry", func() {
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			So(errors.Is(err, rating.ErrInvalidPosition), ShouldBeTrue)
		})

		Convey("Then nothing is written for any athlete", func() {
			for _, id := range ids {
				_, err := store.GetRating(ctx, id)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			}
			cs, err := store.GetCharacteristics(ctx, "r4")
			So(err, ShouldBeNil)
			So(cs.Weights, ShouldResemble, map[string]float64{"power_sprint_5s": 1.0})
		})
	})
}

func TestService_AnalyzeText(t *testing.T) {
	Convey("Given two known athletes and a report about them", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		ids := seedAthletes(ctx, store, "Tadej Pogačar", "Jonas Vingegaard")
		svc := newService(store)
		text := "Pogačar won the sprint in Valence. " +
			"Riders then rode through quiet vineyards for most of the afternoon without incident. " +
			"Vingegaard struggled."

		Convey("When analysed without applying", func() {
			report, err := svc.AnalyzeText(ctx, service.AnalysisRequest{Texts: []string{text, "  "}, SourceType: "Report"})
			So(err, ShouldBeNil)

			Convey("Then counts and adjustments are reported and nothing is written", func() {
				So(report.TextsProcessed, ShouldEqual, 1)
				So(report.TotalExtractions, ShouldEqual, 3)
				So(report.AthletesFound, ShouldEqual, 2)
				So(report.SourceType, ShouldEqual, "report")
				So(report.Reliability, ShouldEqual, 1.0)
				So(report.Athletes, ShouldHaveLength, 2)
				So(report.Athletes[0].AthleteID, ShouldEqual, ids[0])
				So(report.Athletes[0].Adjustments, ShouldHaveLength, 2)
				So(report.Applied, ShouldBeEmpty)

				_, err := store.GetRating(ctx, ids[0])
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When analysed with updates applied", func() {
			report, err := svc.AnalyzeText(ctx, service.AnalysisRequest{
				Texts: []string{text}, SourceType: "report", ApplyUpdates: true,
			})
			So(err, ShouldBeNil)

			Convey("Then each athlete is updated once", func() {
				So(report.Applied, ShouldHaveLength, 2)
				So(report.Applied[0].AthleteID, ShouldEqual, ids[0])
				So(report.Applied[0].DimensionsChanged, ShouldEqual, 2)
				So(report.Applied[1].AthleteID, ShouldEqual, ids[1])
				So(report.Applied[1].OverallChange, ShouldEqual, -3)
			})

			Convey("Then the ratings, confidence and history reflect the text", func() {
				pog, err := svc.GetRating(ctx, ids[0])
				So(err, ShouldBeNil)
				So(pog.Rating.Dimensions["power_sprint_5s"], ShouldEqual, 1508)
				So(pog.Rating.Dimensions["race_sprint_finish"], ShouldEqual, 1508)
				So(pog.Rating.Confidence, ShouldAlmostEqual, model.InitialConfidence+model.TextConfidenceStep)

				entries, err := svc.History(ctx, ids[0], 0)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].RaceID, ShouldBeEmpty)
				So(entries[0].Reason, ShouldStartWith, "Text analysis (report): ")
			})
		})

		Convey("When the threshold is above every adjustment", func() {
			high := 100.0
			report, err := svc.AnalyzeText(ctx, service.AnalysisRequest{
				Texts: []string{text}, ApplyUpdates: true, ConfidenceThreshold: &high,
			})

			Convey("Then nothing is applied", func() {
				So(err, ShouldBeNil)
				So(report.SourceType, ShouldEqual, "news")
				So(report.Applied, ShouldBeEmpty)
			})
		})

		Convey("When an athlete is named without any matched trait", func() {
			quiet := "Pogačar won the sprint in Valence. " +
				"Riders then rode through quiet vineyards for most of the afternoon without incident. " +
				"Vingegaard."
			report, err := svc.AnalyzeText(ctx, service.AnalysisRequest{Texts: []string{quiet}})

			Convey("Then only athletes with extractions are counted as found", func() {
				So(err, ShouldBeNil)
				So(report.TotalExtractions, ShouldEqual, 2)
				So(report.AthletesFound, ShouldEqual, 1)
				So(report.Athletes, ShouldHaveLength, 1)
				So(report.Athletes[0].AthleteID, ShouldEqual, ids[0])
			})
		})

		Convey("When no text is given", func() {
			_, err := svc.AnalyzeText(ctx, service.AnalysisRequest{Texts: []string{"", " "}})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the threshold is negative", func() {
			neg := -1.0
			_, err := svc.AnalyzeText(ctx, service.AnalysisRequest{Texts: []string{text}, ConfidenceThreshold: &neg})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_Imports(t *testing.T) {
	batch := func(id string) model.ImportBatch {
		return model.ImportBatch{ImportID: id, Races: []model.ImportRace{{
			Name: "Gent-Wevelgem", Date: "2025-03-30", Category: "WT", Terrain: "cobbles",
			Results: []model.ImportResult{
				{AthleteName: "Mads Pedersen", Position: 1},
				{AthleteName: "Tim Merlier", Position: 2},
			},
		}}}
	}

	Convey("Given a service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store := repository.NewMemoryStore()
		svc := newService(store)

		Convey("When a batch is imported synchronously", func() {
			report, err := svc.Import(ctx, batch("imp-1"))
			So(err, ShouldBeNil)

			Convey("Then its race is rated in batch mode", func() {
				So(report.RacesImported, ShouldEqual, 1)
				So(report.Races[0].RatingsUpdated, ShouldEqual, 2)
				So(report.Races[0].Method, ShouldEqual, string(rating.MethodBatch))
			})

			Convey("And importing the same id again is rejected", func() {
				_, err := svc.Import(ctx, batch("imp-1"))
				So(errors.Is(err, service.ErrDuplicateImport), ShouldBeTrue)

				top, err := svc.TopN(ctx, 5)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
			})
		})

		Convey("When an empty batch is imported", func() {
			_, err := svc.Import(ctx, model.ImportBatch{})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When a batch is enqueued before start", func() {
			_, err := svc.EnqueueImport(ctx, batch("imp-2"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When a batch is enqueued on a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			id, err := svc.EnqueueImport(ctx, batch(""))
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)

			Convey("Then a worker imports it", func() {
				deadline := time.Now().Add(5 * time.Second)
				var athletes []model.Athlete
				for time.Now().Before(deadline) {
					athletes, _ = store.ListAthletes(ctx)
					if len(athletes) == 2 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(athletes, ShouldHaveLength, 2)
			})

			Convey("And the same id cannot be queued twice", func() {
				_, err := svc.EnqueueImport(ctx, batch(id))
				So(errors.Is(err, service.ErrDuplicateImport), ShouldBeTrue)
			})
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a service with an unrated athlete", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		ids := seedAthletes(ctx, store, "Remco Evenepoel")
		svc := newService(store, service.WithMaxRankingsLimit(2))

		Convey("Then the athlete reads at default ratings", func() {
			ar, err := svc.GetRating(ctx, ids[0])
			So(err, ShouldBeNil)
			So(ar.Athlete.Name, ShouldEqual, "Remco Evenepoel")
			So(ar.Rating.Overall, ShouldEqual, model.DefaultRating)
			So(ar.Rating.Confidence, ShouldEqual, model.InitialConfidence)
		})

		Convey("Then unknown athletes are not found", func() {
			_, err := svc.GetRating(ctx, "nobody")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.History(ctx, "nobody", 5)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.Rank(ctx, ids[0])
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then a non-positive limit is invalid", func() {
			_, err := svc.TopN(ctx, 0)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then the limit is capped", func() {
			for i := 0; i < 4; i++ {
				So(store.UpsertRating(ctx, model.RatingRecord{AthleteID: fmt.Sprintf("x%d", i), Overall: 1500 + i}), ShouldBeNil)
			}
			So(svc.ResyncRankings(ctx), ShouldBeNil)

			top, err := svc.TopN(ctx, 50)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 2)
			So(top[0].AthleteID, ShouldEqual, "x3")
		})
	})
}
