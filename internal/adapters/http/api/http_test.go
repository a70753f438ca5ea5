package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/velorank/internal/adapters/http/api"
	"github.com/okian/velorank/internal/adapters/mq/queue"
	"github.com/okian/velorank/internal/adapters/repository"
	service "github.com/okian/velorank/internal/app"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/pkg/logger"
)

// mockDependencies records calls and returns canned results.
type mockDependencies struct {
	updateErr   error
	updateForce bool
	analysisReq service.AnalysisRequest
	analysisErr error
	importErr   error
	enqueueErr  error
	imported    []model.ImportBatch
	topN        []api.Entry
	topNArg     int
	rank        api.Entry
	rankErr     error
	rating      service.AthleteRating
	ratingErr   error
	history     []model.HistoryEntry
	historyArg  int
}

func (m *mockDependencies) UpdateRaceRatings(_ context.Context, raceID string, forceBatch bool) (model.RaceUpdateReport, error) {
	m.updateForce = forceBatch
	if m.updateErr != nil {
		return model.RaceUpdateReport{}, m.updateErr
	}
	return model.RaceUpdateReport{RaceID: raceID, Method: "head-to-head", Importance: 1.5, Updated: 2}, nil
}

func (m *mockDependencies) AnalyzeText(_ context.Context, req service.AnalysisRequest) (service.AnalysisReport, error) {
	m.analysisReq = req
	if m.analysisErr != nil {
		return service.AnalysisReport{}, m.analysisErr
	}
	return service.AnalysisReport{TextsProcessed: len(req.Texts), SourceType: req.SourceType}, nil
}

func (m *mockDependencies) Import(_ context.Context, b model.ImportBatch) (model.ImportReport, error) {
	m.imported = append(m.imported, b)
	if m.importErr != nil {
		return model.ImportReport{}, m.importErr
	}
	return model.ImportReport{ImportID: b.ImportID, RacesImported: len(b.Races)}, nil
}

func (m *mockDependencies) EnqueueImport(_ context.Context, b model.ImportBatch) (string, error) {
	if m.enqueueErr != nil {
		return "", m.enqueueErr
	}
	m.imported = append(m.imported, b)
	return "queued-1", nil
}

func (m *mockDependencies) TopN(_ context.Context, n int) ([]api.Entry, error) {
	m.topNArg = n
	return m.topN, nil
}

func (m *mockDependencies) Rank(_ context.Context, _ string) (api.Entry, error) {
	return m.rank, m.rankErr
}

func (m *mockDependencies) GetRating(_ context.Context, _ string) (service.AthleteRating, error) {
	return m.rating, m.ratingErr
}

func (m *mockDependencies) History(_ context.Context, _ string, limit int) ([]model.HistoryEntry, error) {
	m.historyArg = limit
	return m.history, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newRouter(deps api.Dependencies, opts ...api.Option) http.Handler {
	opts = append([]api.Option{api.WithLogger(logger.Nop())}, opts...)
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	r := chi.NewRouter()
	server.Register(context.Background(), r)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{
			topN: []api.Entry{{Rank: 1, AthleteID: "a1", Overall: 1620}},
			rank: api.Entry{Rank: 3, AthleteID: "a3", Overall: 1550},
			rating: service.AthleteRating{
				Athlete: model.Athlete{ID: "a1", Name: "Tadej Pogačar"},
				Rating:  model.RatingRecord{AthleteID: "a1", Overall: 1620},
			},
			history: []model.HistoryEntry{{ID: "h1", AthleteID: "a1", Reason: "Race: Il Lombardia (P1/120)"}},
		}
		h := newRouter(deps)

		Convey("Then health serves the metrics registry", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are served as JSON", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then a rating update passes the batch flag", func() {
			w := do(h, http.MethodPost, "/races/r1/ratings", `{"batch_mode":true}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.updateForce, ShouldBeTrue)
			So(w.Body.String(), ShouldContainSubstring, `"race_id":"r1"`)
		})

		Convey("Then a rating update accepts an empty body", func() {
			w := do(h, http.MethodPost, "/races/r1/ratings", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.updateForce, ShouldBeFalse)
		})

		Convey("Then analysis merges text and texts", func() {
			w := do(h, http.MethodPost, "/analysis", `{"text":"one","texts":["two"],"source_type":"news","confidence_threshold":0.7}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.analysisReq.Texts, ShouldResemble, []string{"one", "two"})
			So(*deps.analysisReq.ConfidenceThreshold, ShouldEqual, 0.7)
		})

		Convey("Then a synchronous import returns its report", func() {
			w := do(h, http.MethodPost, "/imports", `{"import_id":"i1","races":[{"name":"Omloop","date":"2025-03-01"}]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.imported, ShouldHaveLength, 1)
			So(w.Body.String(), ShouldContainSubstring, `"races_imported":1`)
		})

		Convey("Then an async import is accepted", func() {
			w := do(h, http.MethodPost, "/imports?async=true", `{"races":[{"name":"Omloop"}]}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, `"import_id":"queued-1"`)
		})

		Convey("Then rankings default to ten rows", func() {
			w := do(h, http.MethodGet, "/rankings", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.topNArg, ShouldEqual, 10)

			var entries []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(entries, ShouldResemble, deps.topN)
		})

		Convey("Then athlete routes resolve", func() {
			So(do(h, http.MethodGet, "/athletes/a1", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodGet, "/athletes/a3/rank", "").Body.String(), ShouldContainSubstring, `"rank":3`)

			w := do(h, http.MethodGet, "/athletes/a1/history?limit=5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.historyArg, ShouldEqual, 5)
		})

		Convey("Then unknown routes are 404", func() {
			So(do(h, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Errors(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)

		cases := []struct {
			name   string
			setup  func()
			method string
			target string
			body   string
			status int
			code   string
		}{
			{"invalid input", func() { deps.updateErr = fmt.Errorf("%w: duplicate position", service.ErrInvalidInput) },
				http.MethodPost, "/races/r1/ratings", "", http.StatusBadRequest, "bad_request"},
			{"missing race", func() { deps.updateErr = fmt.Errorf("load race: %w", repository.ErrNotFound) },
				http.MethodPost, "/races/nope/ratings", "", http.StatusNotFound, "not_found"},
			{"store failure", func() { deps.updateErr = errors.New("connection reset") },
				http.MethodPost, "/races/r1/ratings", "", http.StatusInternalServerError, "internal_error"},
			{"malformed JSON", func() {},
				http.MethodPost, "/analysis", "{", http.StatusBadRequest, "bad_request"},
			{"empty analysis", func() { deps.analysisErr = fmt.Errorf("%w: text is required", service.ErrInvalidInput) },
				http.MethodPost, "/analysis", `{"texts":[]}`, http.StatusBadRequest, "bad_request"},
			{"duplicate import", func() { deps.importErr = fmt.Errorf("%w: i1", service.ErrDuplicateImport) },
				http.MethodPost, "/imports", `{"import_id":"i1","races":[{}]}`, http.StatusConflict, "duplicate"},
			{"full queue", func() { deps.enqueueErr = fmt.Errorf("enqueue: %w", queue.ErrFull) },
				http.MethodPost, "/imports?async=true", `{"races":[{}]}`, http.StatusTooManyRequests, "backpressure"},
			{"not started", func() { deps.enqueueErr = service.ErrNotStarted },
				http.MethodPost, "/imports?async=1", `{"races":[{}]}`, http.StatusServiceUnavailable, "unavailable"},
			{"bad async flag", func() {},
				http.MethodPost, "/imports?async=maybe", `{"races":[{}]}`, http.StatusBadRequest, "bad_request"},
			{"bad limit", func() {},
				http.MethodGet, "/rankings?limit=zero", "", http.StatusBadRequest, "bad_request"},
			{"negative history limit", func() {},
				http.MethodGet, "/athletes/a1/history?limit=-1", "", http.StatusBadRequest, "bad_request"},
			{"unranked athlete", func() { deps.rankErr = repository.ErrNotFound },
				http.MethodGet, "/athletes/a9/rank", "", http.StatusNotFound, "not_found"},
			{"unknown athlete", func() { deps.ratingErr = fmt.Errorf("athlete a9: %w", repository.ErrNotFound) },
				http.MethodGet, "/athletes/a9", "", http.StatusNotFound, "not_found"},
		}

		for _, tc := range cases {
			Convey("When the request hits "+tc.name, func() {
				tc.setup()
				w := do(h, tc.method, tc.target, tc.body)

				Convey("Then the error is mapped", func() {
					So(w.Code, ShouldEqual, tc.status)
					So(errorCode(w), ShouldEqual, tc.code)
				})
			})
		}
	})
}

func TestServer_AnalysisRateLimit(t *testing.T) {
	Convey("Given a server allowing one analysis burst", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps, api.WithAnalysisRateLimit(0.001, 1))

		Convey("When two analyses arrive back to back", func() {
			first := do(h, http.MethodPost, "/analysis", `{"text":"one"}`)
			second := do(h, http.MethodPost, "/analysis", `{"text":"two"}`)

			Convey("Then the second is rejected", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(second.Header().Get("Retry-After"), ShouldEqual, "1")
				So(errorCode(second), ShouldEqual, "rate_limited")
			})

			Convey("And other routes are not limited", func() {
				So(do(h, http.MethodGet, "/rankings", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestServer_CORS(t *testing.T) {
	Convey("Given a server allowing one origin", t, func() {
		h := newRouter(&mockDependencies{}, api.WithCORSOrigins([]string{"https://dash.example.com"}))

		Convey("When a preflight arrives from that origin", func() {
			req := httptest.NewRequest(http.MethodOptions, "/rankings", http.NoBody)
			req.Header.Set("Origin", "https://dash.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then the origin is allowed", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://dash.example.com")
			})
		})
	})
}
