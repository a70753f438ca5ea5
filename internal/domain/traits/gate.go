package traits

import (
	"math"
	"strings"

	"github.com/okian/velorank/internal/domain/model"
)

// Source types of analysed text.
const (
	SourceReport  = "report"
	SourceNews    = "news"
	SourceComment = "comment"
	SourceSocial  = "social"
)

// Defaults for applying text-derived adjustments.
const (
	DefaultThreshold   = 0.5
	DefaultMaxChange   = 50.0
	DefaultReliability = 0.5
)

// Reliability maps a source type to the multiplier applied to its adjustments.
type Reliability struct {
	bySource map[string]float64
	fallback float64
}

// NewReliability returns a table with fallback for unknown sources.
func NewReliability(bySource map[string]float64, fallback float64) Reliability {
	m := make(map[string]float64, len(bySource))
	for k, v := range bySource {
		m[strings.ToLower(k)] = v
	}
	return Reliability{bySource: m, fallback: fallback}
}

// DefaultReliabilities returns the standard multiplier per source type.
func DefaultReliabilities() map[string]float64 {
	return map[string]float64{
		SourceReport:  1.0,
		SourceNews:    0.8,
		SourceComment: 0.3,
		SourceSocial:  0.2,
	}
}

// DefaultReliabilityTable returns the standard source multipliers.
func DefaultReliabilityTable() Reliability {
	return NewReliability(DefaultReliabilities(), DefaultReliability)
}

// For returns the multiplier for source.
func (r Reliability) For(source string) float64 {
	if v, ok := r.bySource[strings.ToLower(strings.TrimSpace(source))]; ok {
		return v
	}
	return r.fallback
}

// Gate decides which aggregated values are applied and by how much.
type Gate struct {
	Threshold   float64
	Reliability float64
	MaxChange   float64
}

// Plan is the set of deltas that passed the gate. Overall holds the nudge for the
// overall score, if any.
type Plan struct {
	Dimensions map[string]float64
	Overall    float64
	HasOverall bool
}

// Empty reports whether nothing passed the gate.
func (p Plan) Empty() bool { return len(p.Dimensions) == 0 && !p.HasOverall }

// Plan keeps values whose magnitude is at least the threshold, scales them by the
// source reliability and caps them at ±MaxChange.
func (g Gate) Plan(values map[string]float64) Plan {
	p := Plan{Dimensions: make(map[string]float64)}
	maxChange := g.MaxChange
	if maxChange <= 0 {
		maxChange = DefaultMaxChange
	}
	for dim, v := range values {
		if math.Abs(v) < g.Threshold {
			continue
		}
		d := math.Max(-maxChange, math.Min(maxChange, v*g.Reliability))
		if dim == OverallDimension {
			p.Overall, p.HasOverall = d, true
			continue
		}
		p.Dimensions[dim] = d
	}
	return p
}

// Apply adds the dimension deltas to rec, rounding and clamping each rating, and
// returns the integer change per dimension.
func (p Plan) Apply(rec *model.RatingRecord) map[string]int {
	changes := make(map[string]int, len(p.Dimensions))
	for dim, d := range p.Dimensions {
		before := rec.Dimensions.Get(dim)
		after := model.ClampRound(float64(before) + d)
		rec.Dimensions[dim] = after
		changes[dim] = after - before
	}
	return changes
}

// ApplyOverall nudges rec.Overall by the overall delta, if any.
func (p Plan) ApplyOverall(rec *model.RatingRecord) {
	if p.HasOverall {
		rec.Overall = model.ClampRound(float64(rec.Overall) + p.Overall)
	}
}
