package model

// ImportBatch is a bundle of races with their results, keyed by a caller-chosen id.
// The same ImportID is processed at most once.
type ImportBatch struct {
	ImportID string       `json:"import_id"`
	Races    []ImportRace `json:"races"`
}

// ImportRace describes a race to find or create and the results to attach to it.
type ImportRace struct {
	Name                 string             `json:"name"`
	Date                 string             `json:"date"`
	Category             string             `json:"category"`
	Terrain              string             `json:"terrain,omitempty"`
	FinishType           string             `json:"finish_type,omitempty"`
	DistanceKM           float64            `json:"distance_km,omitempty"`
	ElevationM           *int               `json:"elevation_m,omitempty"`
	StageRace            bool               `json:"stage_race,omitempty"`
	Template             string             `json:"template,omitempty"`
	Weights              map[string]float64 `json:"weights,omitempty"`
	ImportanceMultiplier float64            `json:"importance_multiplier,omitempty"`
	Results              []ImportResult     `json:"results"`
}

// ImportResult is one athlete's line in an imported result sheet.
type ImportResult struct {
	AthleteName    string `json:"athlete_name"`
	Team           string `json:"team,omitempty"`
	Country        string `json:"country,omitempty"`
	Position       int    `json:"position,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	GapSeconds     int    `json:"gap_seconds,omitempty"`
	DNF            bool   `json:"dnf,omitempty"`
	DNS            bool   `json:"dns,omitempty"`
}

// ImportRaceReport summarises one imported race.
type ImportRaceReport struct {
	Name            string   `json:"name"`
	RaceID          string   `json:"race_id,omitempty"`
	Created         bool     `json:"created"`
	ResultsImported int      `json:"results_imported"`
	AthletesCreated int      `json:"athletes_created"`
	RatingsUpdated  int      `json:"ratings_updated"`
	Method          string   `json:"method,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// ImportReport summarises a whole batch. Errors never abort the batch.
type ImportReport struct {
	ImportID      string             `json:"import_id"`
	RacesImported int                `json:"races_imported"`
	RacesFailed   int                `json:"races_failed"`
	Races         []ImportRaceReport `json:"races"`
	Errors        []string           `json:"errors,omitempty"`
}
