// Package history maintains rating counters and builds audit entries.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/internal/domain/textnorm"
)

const reasonSnippetLength = 100

// Recorder stamps history entries with ids and times.
type Recorder struct {
	now   func() time.Time
	newID func() string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the time source used for text-derived entries.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator sets the entry id generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Recorder) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// NewRecorder returns a Recorder using UTC wall time and random UUIDs.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the recorder's current time.
func (r *Recorder) Now() time.Time { return r.now() }

// RecordFinish updates the counters of a finisher. Counters only grow.
func RecordFinish(rec *model.RatingRecord, position int, raceDate time.Time) {
	rec.Races++
	if position == 1 {
		rec.Wins++
		d := raceDate
		rec.LastWinDate = &d
	}
	if position <= 3 {
		rec.Podiums++
	}
	if position <= 10 {
		rec.Top10s++
	}
	if rec.LastRaceDate == nil || raceDate.After(*rec.LastRaceDate) {
		d := raceDate
		rec.LastRaceDate = &d
	}
	rec.BumpConfidence(model.RaceConfidenceStep)
}

// RecordDNF counts an abandoned race. Ratings are untouched.
func RecordDNF(rec *model.RatingRecord) {
	rec.DNFs++
}

// Deltas returns the non-zero differences between two rating maps.
func Deltas(before, after model.Ratings) map[string]int {
	out := make(map[string]int)
	for k, v := range after {
		if d := v - before.Get(k); d != 0 {
			out[k] = d
		}
	}
	return out
}

// RaceReason describes a race-driven change, e.g. "Race: Paris-Roubaix (P3/150)".
func RaceReason(raceName string, position, field int) string {
	return fmt.Sprintf("Race: %s (P%d/%d)", raceName, position, field)
}

// TextReason describes a text-driven change.
func TextReason(source, snippet string) string {
	return fmt.Sprintf("Text analysis (%s): %s", source, textnorm.Truncate(snippet, reasonSnippetLength))
}

// RaceEntry builds the audit entry for one finisher. Deltas cover dimensions and profiles.
func (r *Recorder) RaceEntry(race model.Race, position, field int, before, after *model.RatingRecord) model.HistoryEntry {
	deltas := Deltas(before.Dimensions, after.Dimensions)
	for k, v := range Deltas(before.Profiles, after.Profiles) {
		deltas[k] = v
	}
	return model.HistoryEntry{
		ID:            r.newID(),
		AthleteID:     after.AthleteID,
		RaceID:        race.ID,
		Date:          race.Date,
		Deltas:        deltas,
		OverallBefore: before.Overall,
		OverallAfter:  after.Overall,
		Reason:        RaceReason(race.Name, position, field),
	}
}

// TextEntry builds the audit entry for a text-derived change.
func (r *Recorder) TextEntry(athleteID, source, snippet string, changes map[string]int, overallBefore, overallAfter int) model.HistoryEntry {
	deltas := make(map[string]int, len(changes))
	for k, v := range changes {
		deltas[k] = v
	}
	return model.HistoryEntry{
		ID:            r.newID(),
		AthleteID:     athleteID,
		Date:          r.now(),
		Deltas:        deltas,
		OverallBefore: overallBefore,
		OverallAfter:  overallAfter,
		Reason:        TextReason(source, snippet),
	}
}
