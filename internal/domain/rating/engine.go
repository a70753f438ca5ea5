// Package rating implements the multi-dimensional Elo update applied after each race.
package rating

import (
	"fmt"

	"github.com/okian/velorank/internal/domain/dimension"
	"github.com/okian/velorank/internal/domain/model"
)

// Method names the update strategy used for a race.
type Method string

// Update strategies.
const (
	MethodHeadToHead Method = "head-to-head"
	MethodBatch      Method = "batch"
)

// Defaults.
const (
	DefaultKBase              = 32.0
	DefaultHeadToHeadMaxField = 50
)

// Participant is one finisher. Lower positions finished ahead.
type Participant struct {
	AthleteID string
	Position  int
}

// Input is everything an update needs. Prior may omit athletes and dimensions;
// both read as model.DefaultRating.
type Input struct {
	Participants []Participant
	Weights      map[string]float64
	Importance   float64
	Prior        map[string]model.Ratings
	ForceBatch   bool
}

// Outcome carries the new ratings of every participant, total over the catalog.
// Noop is set when there was nobody to rate.
type Outcome struct {
	Method     Method
	Importance float64
	Ratings    map[string]model.Ratings
	Noop       bool
}

// Engine computes rating updates. It is stateless and safe for concurrent use.
type Engine struct {
	catalog       *dimension.Catalog
	kBase         float64
	headToHeadMax int
}

// Option configures an Engine.
type Option func(*Engine)

// WithKBase sets the base K factor.
func WithKBase(k float64) Option {
	return func(e *Engine) {
		if k > 0 {
			e.kBase = k
		}
	}
}

// WithHeadToHeadMaxField sets the field size from which batch mode is used.
func WithHeadToHeadMaxField(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.headToHeadMax = n
		}
	}
}

// NewEngine returns an Engine over catalog.
func NewEngine(catalog *dimension.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:       catalog,
		kBase:         DefaultKBase,
		headToHeadMax: DefaultHeadToHeadMaxField,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the engine's dimension catalog.
func (e *Engine) Catalog() *dimension.Catalog { return e.catalog }

// MethodFor reports which strategy a field of n riders gets.
func (e *Engine) MethodFor(n int, forceBatch bool) Method {
	if n < e.headToHeadMax && !forceBatch {
		return MethodHeadToHead
	}
	return MethodBatch
}

// Update computes new ratings for every participant. The result depends only on the input.
func (e *Engine) Update(in Input) (Outcome, error) {
	if len(in.Participants) == 0 {
		return Outcome{Noop: true, Importance: in.Importance}, nil
	}
	if err := e.validate(in); err != nil {
		return Outcome{}, err
	}

	keys := e.catalog.Keys()
	prior := make([]model.Ratings, len(in.Participants))
	for i, p := range in.Participants {
		prior[i] = in.Prior[p.AthleteID].Materialize(keys)
	}

	method := e.MethodFor(len(in.Participants), in.ForceBatch)
	var next []model.Ratings
	if method == MethodHeadToHead {
		next = e.headToHead(in, prior, keys)
	} else {
		next = e.batch(in, prior, keys)
	}

	out := Outcome{
		Method:     method,
		Importance: in.Importance,
		Ratings:    make(map[string]model.Ratings, len(next)),
	}
	for i, p := range in.Participants {
		out.Ratings[p.AthleteID] = next[i]
	}
	return out, nil
}

func (e *Engine) validate(in Input) error {
	if !(in.Importance > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidImportance, in.Importance)
	}
	for k, w := range in.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeight, k, w)
		}
	}
	athletes := make(map[string]struct{}, len(in.Participants))
	positions := make(map[int]string, len(in.Participants))
	for _, p := range in.Participants {
		if p.AthleteID == "" {
			return ErrMissingAthlete
		}
		if _, dup := athletes[p.AthleteID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateAthlete, p.AthleteID)
		}
		athletes[p.AthleteID] = struct{}{}
		if p.Position <= 0 {
			return fmt.Errorf("%w: athlete %s has position %d", ErrInvalidPosition, p.AthleteID, p.Position)
		}
		if other, dup := positions[p.Position]; dup {
			return fmt.Errorf("%w: %d shared by %s and %s", ErrDuplicatePosition, p.Position, other, p.AthleteID)
		}
		positions[p.Position] = p.AthleteID
	}
	return nil
}

// headToHead compares every pair on every relevant dimension. Pair deltas are computed
// from prior ratings, summed, then rounded and clamped once.
func (e *Engine) headToHead(in Input, prior []model.Ratings, keys []string) []model.Ratings {
	n := len(in.Participants)
	next := cloneAll(prior)
	fieldFactor := FieldSizeFactor(n)
	sums := make([]float64, n)

	for _, key := range keys {
		w := in.Weights[key]
		if w <= 0 {
			continue
		}
		k := e.kBase * in.Importance * w * fieldFactor
		for i := range sums {
			sums[i] = 0
		}
		for i := 0; i < n; i++ {
			ri := float64(prior[i][key])
			for j := i + 1; j < n; j++ {
				rj := float64(prior[j][key])
				ei := ExpectedScore(ri, rj)
				ai := 0.0
				if in.Participants[i].Position < in.Participants[j].Position {
					ai = 1.0
				}
				sums[i] += k * (ai - ei)
				sums[j] += k * ((1 - ai) - (1 - ei))
			}
		}
		for i := 0; i < n; i++ {
			next[i][key] = model.ClampRound(float64(prior[i][key]) + sums[i])
		}
	}
	return next
}

// batch compares every participant against the field mean with a position-based score.
func (e *Engine) batch(in Input, prior []model.Ratings, keys []string) []model.Ratings {
	n := len(in.Participants)
	next := cloneAll(prior)

	for _, key := range keys {
		w := in.Weights[key]
		if w <= 0 {
			continue
		}
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += float64(prior[i][key])
		}
		mean := sum / float64(n)
		k := e.kBase * in.Importance * w
		for i, p := range in.Participants {
			current := prior[i][key]
			expected := ExpectedScore(float64(current), mean)
			actual := ActualScore(p.Position, n)
			change := k * (actual - expected)
			next[i][key] = model.Clamp(current + int(roundHalfUp(change)))
		}
	}
	return next
}

func cloneAll(in []model.Ratings) []model.Ratings {
	out := make([]model.Ratings, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
