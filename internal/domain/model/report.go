package model

// AthleteUpdate is one athlete's overall change after a race.
type AthleteUpdate struct {
	AthleteID     string `json:"athlete_id"`
	Position      int    `json:"position"`
	OverallBefore int    `json:"overall_before"`
	OverallAfter  int    `json:"overall_after"`
	Change        int    `json:"change"`
}

// RaceUpdateReport describes one rating run over a race's results.
// Noop is set when the race had no eligible finishers.
type RaceUpdateReport struct {
	RaceID        string          `json:"race_id"`
	RaceName      string          `json:"race_name"`
	Method        string          `json:"method,omitempty"`
	Importance    float64         `json:"importance"`
	Participants  int             `json:"participants"`
	Updated       int             `json:"updated"`
	DNFs          int             `json:"dnfs"`
	WriteFailures int             `json:"write_failures"`
	Noop          bool            `json:"noop"`
	Updates       []AthleteUpdate `json:"updates,omitempty"`
}
