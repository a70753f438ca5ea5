package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/okian/velorank/internal/domain/model"
)

// Driver names a supported SQL backend.
type Driver string

// Supported drivers.
const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// SQLStore is a Store on database/sql. Queries use $N placeholders, which both
// backends accept. Maps are stored as JSON text and times as unix integers.
type SQLStore struct {
	db     *sql.DB
	driver Driver
}

// OpenSQL opens a database and ensures the schema exists.
func OpenSQL(ctx context.Context, driver Driver, dsn string) (*SQLStore, error) {
	var drvName, schema string
	switch driver {
	case DriverSQLite:
		drvName, schema = "sqlite", schemaSQLite
		if dsn == "" {
			dsn = "file:velorank.db?_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName, schema = "pgx", schemaPostgres
		if dsn == "" {
			dsn = "postgres://localhost:5432/velorank?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer avoids SQLITE_BUSY under concurrent fan-out writes.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }

// CreateAthlete inserts a new athlete.
func (s *SQLStore) CreateAthlete(ctx context.Context, a model.Athlete) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO athletes (id, name, name_key, team, country, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, nameKey(a.Name), a.Team, a.Country, a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create athlete %s: %w", a.ID, err)
	}
	return nil
}

const athleteColumns = `id, name, team, country, created_at`

func scanAthlete(row interface{ Scan(...any) error }) (model.Athlete, error) {
	var a model.Athlete
	var created int64
	if err := row.Scan(&a.ID, &a.Name, &a.Team, &a.Country, &created); err != nil {
		return model.Athlete{}, err
	}
	a.CreatedAt = time.Unix(created, 0).UTC()
	return a, nil
}

// GetAthlete returns the athlete with id or ErrNotFound.
func (s *SQLStore) GetAthlete(ctx context.Context, id string) (model.Athlete, error) {
	a, err := scanAthlete(s.db.QueryRowContext(ctx, `SELECT `+athleteColumns+` FROM athletes WHERE id = $1`, id))
	if err != nil {
		return model.Athlete{}, notFound(err, "athlete "+id)
	}
	return a, nil
}

// FindAthleteByName looks an athlete up by case-insensitive name.
func (s *SQLStore) FindAthleteByName(ctx context.Context, name string) (model.Athlete, error) {
	a, err := scanAthlete(s.db.QueryRowContext(ctx,
		`SELECT `+athleteColumns+` FROM athletes WHERE name_key = $1 ORDER BY created_at, id LIMIT 1`, nameKey(name)))
	if err != nil {
		return model.Athlete{}, notFound(err, fmt.Sprintf("athlete %q", name))
	}
	return a, nil
}

// ListAthletes returns every athlete ordered by id.
func (s *SQLStore) ListAthletes(ctx context.Context) ([]model.Athlete, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+athleteColumns+` FROM athletes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list athletes: %w", err)
	}
	defer rows.Close()
	var out []model.Athlete
	for rows.Next() {
		a, err := scanAthlete(rows)
		if err != nil {
			return nil, fmt.Errorf("scan athlete: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateRace inserts a new race.
func (s *SQLStore) CreateRace(ctx context.Context, r model.Race) error {
	var elevation sql.NullInt64
	if r.ElevationM != nil {
		elevation = sql.NullInt64{Int64: int64(*r.ElevationM), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO races (id, name, name_key, race_day, date, category, terrain, finish_type, distance_km, elevation_m, stage_race)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.Name, nameKey(r.Name), dayKey(r.Date), r.Date.Unix(), r.Category, r.Terrain, r.FinishType,
		r.DistanceKM, elevation, boolInt(r.StageRace))
	if err != nil {
		return fmt.Errorf("create race %s: %w", r.ID, err)
	}
	return nil
}

const raceColumns = `id, name, date, category, terrain, finish_type, distance_km, elevation_m, stage_race`

func scanRace(row interface{ Scan(...any) error }) (model.Race, error) {
	var r model.Race
	var date, stage int64
	var elevation sql.NullInt64
	if err := row.Scan(&r.ID, &r.Name, &date, &r.Category, &r.Terrain, &r.FinishType, &r.DistanceKM, &elevation, &stage); err != nil {
		return model.Race{}, err
	}
	r.Date = time.Unix(date, 0).UTC()
	r.StageRace = stage != 0
	if elevation.Valid {
		e := int(elevation.Int64)
		r.ElevationM = &e
	}
	return r, nil
}

// GetRace returns the race with id or ErrNotFound.
func (s *SQLStore) GetRace(ctx context.Context, id string) (model.Race, error) {
	r, err := scanRace(s.db.QueryRowContext(ctx, `SELECT `+raceColumns+` FROM races WHERE id = $1`, id))
	if err != nil {
		return model.Race{}, notFound(err, "race "+id)
	}
	return r, nil
}

// FindRace returns the race with the given case-insensitive name on the same calendar day.
func (s *SQLStore) FindRace(ctx context.Context, name string, date time.Time) (model.Race, error) {
	r, err := scanRace(s.db.QueryRowContext(ctx,
		`SELECT `+raceColumns+` FROM races WHERE name_key = $1 AND race_day = $2 ORDER BY id LIMIT 1`,
		nameKey(name), dayKey(date)))
	if err != nil {
		return model.Race{}, notFound(err, fmt.Sprintf("race %q", name))
	}
	return r, nil
}

// GetCharacteristics returns the race's characteristic set or ErrNotFound.
func (s *SQLStore) GetCharacteristics(ctx context.Context, raceID string) (model.CharacteristicSet, error) {
	cs := model.CharacteristicSet{RaceID: raceID}
	var weights string
	err := s.db.QueryRowContext(ctx,
		`SELECT weights_json, importance FROM race_characteristics WHERE race_id = $1`, raceID).
		Scan(&weights, &cs.ImportanceMultiplier)
	if err != nil {
		return model.CharacteristicSet{}, notFound(err, "characteristics "+raceID)
	}
	if err := json.Unmarshal([]byte(weights), &cs.Weights); err != nil {
		return model.CharacteristicSet{}, fmt.Errorf("decode weights %s: %w", raceID, err)
	}
	return cs, nil
}

// PutCharacteristics upserts the characteristic set of cs.RaceID.
func (s *SQLStore) PutCharacteristics(ctx context.Context, cs model.CharacteristicSet) error {
	weights, err := json.Marshal(nonNilWeights(cs.Weights))
	if err != nil {
		return fmt.Errorf("encode weights %s: %w", cs.RaceID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO race_characteristics (race_id, weights_json, importance) VALUES ($1, $2, $3)
		 ON CONFLICT (race_id) DO UPDATE SET weights_json = excluded.weights_json, importance = excluded.importance`,
		cs.RaceID, string(weights), cs.ImportanceMultiplier)
	if err != nil {
		return fmt.Errorf("put characteristics %s: %w", cs.RaceID, err)
	}
	return nil
}

// ListResults returns the race's results in insertion order.
func (s *SQLStore) ListResults(ctx context.Context, raceID string) ([]model.ResultEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT athlete_id, position, elapsed_seconds, gap_seconds, dnf, dns, rating_change
		 FROM results WHERE race_id = $1 ORDER BY seq`, raceID)
	if err != nil {
		return nil, fmt.Errorf("list results %s: %w", raceID, err)
	}
	defer rows.Close()
	var out []model.ResultEntry
	for rows.Next() {
		r := model.ResultEntry{RaceID: raceID}
		var dnf, dns int64
		if err := rows.Scan(&r.AthleteID, &r.Position, &r.ElapsedSeconds, &r.GapSeconds, &dnf, &dns, &r.RatingChange); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.DNF, r.DNS = dnf != 0, dns != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceResults swaps the race's results inside one transaction.
func (s *SQLStore) ReplaceResults(ctx context.Context, raceID string, results []model.ResultEntry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM results WHERE race_id = $1`, raceID); err != nil {
		return fmt.Errorf("delete results %s: %w", raceID, err)
	}
	for i, r := range results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO results (race_id, athlete_id, seq, position, elapsed_seconds, gap_seconds, dnf, dns, rating_change)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			raceID, r.AthleteID, i, r.Position, r.ElapsedSeconds, r.GapSeconds, boolInt(r.DNF), boolInt(r.DNS), r.RatingChange)
		if err != nil {
			return fmt.Errorf("insert result %s/%s: %w", raceID, r.AthleteID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit results %s: %w", raceID, err)
	}
	return nil
}

// SetRatingChange records the overall change on one result row.
func (s *SQLStore) SetRatingChange(ctx context.Context, raceID, athleteID string, change int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE results SET rating_change = $1 WHERE race_id = $2 AND athlete_id = $3`, change, raceID, athleteID)
	if err != nil {
		return fmt.Errorf("set rating change %s/%s: %w", raceID, athleteID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("result %s/%s: %w", raceID, athleteID, ErrNotFound)
	}
	return nil
}

// GetRating returns the athlete's rating record or ErrNotFound.
func (s *SQLStore) GetRating(ctx context.Context, athleteID string) (model.RatingRecord, error) {
	var data string
	if err := s.db.QueryRowContext(ctx, `SELECT data_json FROM ratings WHERE athlete_id = $1`, athleteID).Scan(&data); err != nil {
		return model.RatingRecord{}, notFound(err, "rating "+athleteID)
	}
	var rec model.RatingRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return model.RatingRecord{}, fmt.Errorf("decode rating %s: %w", athleteID, err)
	}
	return rec, nil
}

// GetRatings returns the records that exist for athleteIDs.
func (s *SQLStore) GetRatings(ctx context.Context, athleteIDs []string) (map[string]model.RatingRecord, error) {
	out := make(map[string]model.RatingRecord, len(athleteIDs))
	if len(athleteIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(athleteIDs))
	args := make([]any, len(athleteIDs))
	for i, id := range athleteIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT athlete_id, data_json FROM ratings WHERE athlete_id IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get ratings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		var rec model.RatingRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode rating %s: %w", id, err)
		}
		out[id] = rec
	}
	return out, rows.Err()
}

// UpsertRating inserts or replaces the athlete's rating record.
func (s *SQLStore) UpsertRating(ctx context.Context, rec model.RatingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode rating %s: %w", rec.AthleteID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ratings (athlete_id, overall, data_json, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (athlete_id) DO UPDATE SET overall = excluded.overall, data_json = excluded.data_json, updated_at = excluded.updated_at`,
		rec.AthleteID, rec.Overall, string(data), rec.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert rating %s: %w", rec.AthleteID, err)
	}
	return nil
}

// ListOveralls returns the overall rating of every rated athlete.
func (s *SQLStore) ListOveralls(ctx context.Context) ([]model.RankedAthlete, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT athlete_id, overall FROM ratings`)
	if err != nil {
		return nil, fmt.Errorf("list overalls: %w", err)
	}
	defer rows.Close()
	var out []model.RankedAthlete
	for rows.Next() {
		var r model.RankedAthlete
		if err := rows.Scan(&r.AthleteID, &r.Overall); err != nil {
			return nil, fmt.Errorf("scan overall: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendHistory inserts one history row.
func (s *SQLStore) AppendHistory(ctx context.Context, h model.HistoryEntry) error {
	deltas, err := json.Marshal(h.Deltas)
	if err != nil {
		return fmt.Errorf("encode deltas %s: %w", h.ID, err)
	}
	var raceID sql.NullString
	if h.RaceID != "" {
		raceID = sql.NullString{String: h.RaceID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rating_history (id, athlete_id, race_id, date, deltas_json, overall_before, overall_after, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.ID, h.AthleteID, raceID, h.Date.UnixNano(), string(deltas), h.OverallBefore, h.OverallAfter, h.Reason)
	if err != nil {
		return fmt.Errorf("append history %s: %w", h.AthleteID, err)
	}
	return nil
}

// ListHistory returns up to limit entries, newest first. A limit of 0 returns all.
func (s *SQLStore) ListHistory(ctx context.Context, athleteID string, limit int) ([]model.HistoryEntry, error) {
	query := `SELECT id, race_id, date, deltas_json, overall_before, overall_after, reason
		FROM rating_history WHERE athlete_id = $1 ORDER BY seq DESC`
	args := []any{athleteID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history %s: %w", athleteID, err)
	}
	defer rows.Close()
	var out []model.HistoryEntry
	for rows.Next() {
		h := model.HistoryEntry{AthleteID: athleteID}
		var raceID sql.NullString
		var date int64
		var deltas string
		if err := rows.Scan(&h.ID, &raceID, &date, &deltas, &h.OverallBefore, &h.OverallAfter, &h.Reason); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.RaceID = raceID.String
		h.Date = time.Unix(0, date).UTC()
		if err := json.Unmarshal([]byte(deltas), &h.Deltas); err != nil {
			return nil, fmt.Errorf("decode deltas %s: %w", h.ID, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilWeights(w map[string]float64) map[string]float64 {
	if w == nil {
		return map[string]float64{}
	}
	return w
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS athletes (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  name_key TEXT NOT NULL,
  team TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS athletes_name_key ON athletes (name_key);

CREATE TABLE IF NOT EXISTS races (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  name_key TEXT NOT NULL,
  race_day INTEGER NOT NULL,
  date INTEGER NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  terrain TEXT NOT NULL DEFAULT '',
  finish_type TEXT NOT NULL DEFAULT '',
  distance_km REAL NOT NULL DEFAULT 0,
  elevation_m INTEGER,
  stage_race INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS races_name_day ON races (name_key, race_day);

CREATE TABLE IF NOT EXISTS race_characteristics (
  race_id TEXT PRIMARY KEY REFERENCES races(id) ON DELETE CASCADE,
  weights_json TEXT NOT NULL,
  importance REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
  race_id TEXT NOT NULL REFERENCES races(id) ON DELETE CASCADE,
  athlete_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  elapsed_seconds INTEGER NOT NULL DEFAULT 0,
  gap_seconds INTEGER NOT NULL DEFAULT 0,
  dnf INTEGER NOT NULL DEFAULT 0,
  dns INTEGER NOT NULL DEFAULT 0,
  rating_change INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (race_id, athlete_id)
);

CREATE TABLE IF NOT EXISTS ratings (
  athlete_id TEXT PRIMARY KEY,
  overall INTEGER NOT NULL,
  data_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rating_history (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  athlete_id TEXT NOT NULL,
  race_id TEXT,
  date INTEGER NOT NULL,
  deltas_json TEXT NOT NULL,
  overall_before INTEGER NOT NULL,
  overall_after INTEGER NOT NULL,
  reason TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS rating_history_athlete ON rating_history (athlete_id, seq);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS athletes (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  name_key TEXT NOT NULL,
  team TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS athletes_name_key ON athletes (name_key);

CREATE TABLE IF NOT EXISTS races (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  name_key TEXT NOT NULL,
  race_day BIGINT NOT NULL,
  date BIGINT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  terrain TEXT NOT NULL DEFAULT '',
  finish_type TEXT NOT NULL DEFAULT '',
  distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
  elevation_m INTEGER,
  stage_race INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS races_name_day ON races (name_key, race_day);

CREATE TABLE IF NOT EXISTS race_characteristics (
  race_id TEXT PRIMARY KEY REFERENCES races(id) ON DELETE CASCADE,
  weights_json TEXT NOT NULL,
  importance DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
  race_id TEXT NOT NULL REFERENCES races(id) ON DELETE CASCADE,
  athlete_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  elapsed_seconds INTEGER NOT NULL DEFAULT 0,
  gap_seconds INTEGER NOT NULL DEFAULT 0,
  dnf INTEGER NOT NULL DEFAULT 0,
  dns INTEGER NOT NULL DEFAULT 0,
  rating_change INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (race_id, athlete_id)
);

CREATE TABLE IF NOT EXISTS ratings (
  athlete_id TEXT PRIMARY KEY,
  overall INTEGER NOT NULL,
  data_json TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS rating_history (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  athlete_id TEXT NOT NULL,
  race_id TEXT,
  date BIGINT NOT NULL,
  deltas_json TEXT NOT NULL,
  overall_before INTEGER NOT NULL,
  overall_after INTEGER NOT NULL,
  reason TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS rating_history_athlete ON rating_history (athlete_id, seq);
`
