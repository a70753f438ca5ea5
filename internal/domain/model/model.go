// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Rating bounds shared by every dimension, profile and overall score.
const (
	MinRating     = 1000
	MaxRating     = 2800
	DefaultRating = 1500
)

// Confidence bounds and increments.
const (
	InitialConfidence  = 0.5
	MaxConfidence      = 1.0
	RaceConfidenceStep = 0.02
	TextConfidenceStep = 0.01
)

// Clamp bounds a rating to [MinRating, MaxRating].
func Clamp(v int) int {
	if v < MinRating {
		return MinRating
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}

// ClampRound rounds v half away from zero and bounds it.
func ClampRound(v float64) int {
	return Clamp(int(math.Round(v)))
}

// Athlete is a rated competitor.
type Athlete struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Team      string    `json:"team,omitempty"`
	Country   string    `json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Race is a single rated event. Terrain and FinishType are free-form tags such as
// "mountain" or "bunch_sprint".
type Race struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	Category   string    `json:"category"`
	Terrain    string    `json:"terrain,omitempty"`
	FinishType string    `json:"finish_type,omitempty"`
	DistanceKM float64   `json:"distance_km,omitempty"`
	ElevationM *int      `json:"elevation_m,omitempty"`
	StageRace  bool      `json:"stage_race,omitempty"`
}

// CharacteristicSet holds per-dimension relevance weights for one race.
// A missing or zero weight means unset.
type CharacteristicSet struct {
	RaceID               string             `json:"race_id"`
	Weights              map[string]float64 `json:"weights"`
	ImportanceMultiplier float64            `json:"importance_multiplier,omitempty"`
}

// Importance returns the multiplier, defaulting to 1 when unset.
func (c *CharacteristicSet) Importance() float64 {
	if c == nil || c.ImportanceMultiplier <= 0 {
		return 1.0
	}
	return c.ImportanceMultiplier
}

// ResultEntry is one athlete's result in a race. Position is meaningful only for finishers.
type ResultEntry struct {
	RaceID         string `json:"race_id"`
	AthleteID      string `json:"athlete_id"`
	Position       int    `json:"position,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	GapSeconds     int    `json:"gap_seconds,omitempty"`
	DNF            bool   `json:"dnf,omitempty"`
	DNS            bool   `json:"dns,omitempty"`
	RatingChange   int    `json:"rating_change,omitempty"`
}

// Finisher reports whether the entry takes part in rating computation.
// Every entry that is neither DNF nor DNS is a finisher, so a missing or
// non-positive position surfaces as a validation error instead of being skipped.
func (r ResultEntry) Finisher() bool {
	return !r.DNF && !r.DNS
}

// HistoryEntry is an immutable audit record of one rating change.
// RaceID is empty for text-derived changes.
type HistoryEntry struct {
	ID            string         `json:"id"`
	AthleteID     string         `json:"athlete_id"`
	RaceID        string         `json:"race_id,omitempty"`
	Date          time.Time      `json:"date"`
	Deltas        map[string]int `json:"deltas"`
	OverallBefore int            `json:"overall_before"`
	OverallAfter  int            `json:"overall_after"`
	Reason        string         `json:"reason"`
}

// OverallChange is OverallAfter minus OverallBefore.
func (h HistoryEntry) OverallChange() int { return h.OverallAfter - h.OverallBefore }

// RankedAthlete is an athlete's overall score used for ranking.
type RankedAthlete struct {
	AthleteID string `json:"athlete_id"`
	Overall   int    `json:"overall"`
}
