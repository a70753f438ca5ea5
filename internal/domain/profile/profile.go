// Package profile derives archetype and overall scores from raw dimension ratings.
package profile

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/velorank/internal/domain/model"
)

// weightTolerance absorbs float error when checking that weights sum to one.
const weightTolerance = 1e-9

// Validation errors.
var (
	ErrWeightSum     = errors.New("weights must sum to 1.0")
	ErrEmptyProfiles = errors.New("at least one profile is required")
	ErrDuplicateKey  = errors.New("duplicate profile key")
)

// Component is one weighted input of a blend.
type Component struct {
	Key    string
	Weight float64
}

// Profile is a named weighted blend of raw dimensions.
type Profile struct {
	Key        string
	Components []Component
}

// Aggregator computes profiles and the overall score.
type Aggregator struct {
	profiles      []Profile
	allRounderKey string
	basket        []Component
}

// NewAggregator validates the tables. allRounderKey, when set, names a profile
// computed as the mean of all other profiles.
func NewAggregator(profiles []Profile, allRounderKey string, basket []Component) (*Aggregator, error) {
	if len(profiles) == 0 {
		return nil, ErrEmptyProfiles
	}
	seen := make(map[string]struct{}, len(profiles)+1)
	for _, p := range profiles {
		if _, dup := seen[p.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, p.Key)
		}
		seen[p.Key] = struct{}{}
		if err := checkSum(p.Components); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Key, err)
		}
	}
	if _, dup := seen[allRounderKey]; dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, allRounderKey)
	}
	if err := checkSum(basket); err != nil {
		return nil, fmt.Errorf("overall basket: %w", err)
	}
	return &Aggregator{profiles: profiles, allRounderKey: allRounderKey, basket: basket}, nil
}

func checkSum(cs []Component) error {
	sum := 0.0
	for _, c := range cs {
		sum += c.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: got %v", ErrWeightSum, sum)
	}
	return nil
}

// Keys returns every profile key including the all-rounder.
func (a *Aggregator) Keys() []string {
	keys := make([]string, 0, len(a.profiles)+1)
	for _, p := range a.profiles {
		keys = append(keys, p.Key)
	}
	if a.allRounderKey != "" {
		keys = append(keys, a.allRounderKey)
	}
	return keys
}

// Profiles returns the weighted profile definitions.
func (a *Aggregator) Profiles() []Profile { return a.profiles }

// Basket returns the overall basket.
func (a *Aggregator) Basket() []Component { return a.basket }

// DeriveProfiles computes every profile from dims. Missing inputs read as the default rating.
// The all-rounder is the rounded mean of the freshly computed profiles.
func (a *Aggregator) DeriveProfiles(dims model.Ratings) model.Ratings {
	out := make(model.Ratings, len(a.profiles)+1)
	total := 0
	for _, p := range a.profiles {
		v := blend(p.Components, dims)
		out[p.Key] = v
		total += v
	}
	if a.allRounderKey != "" {
		out[a.allRounderKey] = int(math.Round(float64(total) / float64(len(a.profiles))))
	}
	return out
}

// DeriveOverall computes the overall score over the basket.
func (a *Aggregator) DeriveOverall(values model.Ratings) int {
	return blend(a.basket, values)
}

// Recompute refreshes the profiles and overall of rec from its dimensions.
func (a *Aggregator) Recompute(rec *model.RatingRecord) {
	rec.Profiles = a.DeriveProfiles(rec.Dimensions)
	merged := rec.Dimensions.Clone()
	for k, v := range rec.Profiles {
		merged[k] = v
	}
	rec.Overall = a.DeriveOverall(merged)
}

func blend(cs []Component, values model.Ratings) int {
	sum, weight := 0.0, 0.0
	for _, c := range cs {
		sum += float64(values.Get(c.Key)) * c.Weight
		weight += c.Weight
	}
	if weight == 0 {
		return model.DefaultRating
	}
	return int(math.Round(sum / weight))
}
