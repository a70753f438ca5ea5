package model

import "time"

// Ratings maps a dimension (or profile) key to its rating.
type Ratings map[string]int

// Get returns the rating for key, defaulting to DefaultRating.
func (r Ratings) Get(key string) int {
	if v, ok := r[key]; ok {
		return v
	}
	return DefaultRating
}

// Clone returns an independent copy.
func (r Ratings) Clone() Ratings {
	out := make(Ratings, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Materialize returns a copy that holds every key, defaulting missing ones.
func (r Ratings) Materialize(keys []string) Ratings {
	out := make(Ratings, len(keys)+len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			out[k] = DefaultRating
		}
	}
	return out
}

// RatingRecord is the single rating row owned by an athlete.
type RatingRecord struct {
	AthleteID    string     `json:"athlete_id"`
	Dimensions   Ratings    `json:"dimensions"`
	Profiles     Ratings    `json:"profiles"`
	Overall      int        `json:"overall"`
	Races        int        `json:"races"`
	Wins         int        `json:"wins"`
	Podiums      int        `json:"podiums"`
	Top10s       int        `json:"top10s"`
	DNFs         int        `json:"dnfs"`
	Confidence   float64    `json:"confidence"`
	LastRaceDate *time.Time `json:"last_race_date,omitempty"`
	LastWinDate  *time.Time `json:"last_win_date,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewRatingRecord returns a record with every dimension and profile at the default rating.
func NewRatingRecord(athleteID string, dimensionKeys, profileKeys []string) *RatingRecord {
	return &RatingRecord{
		AthleteID:  athleteID,
		Dimensions: Ratings{}.Materialize(dimensionKeys),
		Profiles:   Ratings{}.Materialize(profileKeys),
		Overall:    DefaultRating,
		Confidence: InitialConfidence,
	}
}

// Materialize fills in any dimension or profile missing from the record.
func (r *RatingRecord) Materialize(dimensionKeys, profileKeys []string) {
	r.Dimensions = r.Dimensions.Materialize(dimensionKeys)
	r.Profiles = r.Profiles.Materialize(profileKeys)
	if r.Overall == 0 {
		r.Overall = DefaultRating
	}
	if r.Confidence == 0 {
		r.Confidence = InitialConfidence
	}
}

// Clone returns a deep copy.
func (r *RatingRecord) Clone() *RatingRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Dimensions = r.Dimensions.Clone()
	c.Profiles = r.Profiles.Clone()
	if r.LastRaceDate != nil {
		t := *r.LastRaceDate
		c.LastRaceDate = &t
	}
	if r.LastWinDate != nil {
		t := *r.LastWinDate
		c.LastWinDate = &t
	}
	return &c
}

// BumpConfidence raises confidence by step, capped at MaxConfidence.
func (r *RatingRecord) BumpConfidence(step float64) {
	r.Confidence += step
	if r.Confidence > MaxConfidence {
		r.Confidence = MaxConfidence
	}
}
