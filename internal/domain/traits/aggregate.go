package traits

import (
	"math"
	"sort"

	"github.com/okian/velorank/internal/domain/textnorm"
)

// diminishingScale sets how fast repeated mentions of a trait lose weight.
const diminishingScale = 10.0

// Adjustment is the aggregated, unscaled adjustment per dimension for one athlete.
type Adjustment struct {
	AthleteID   string
	AthleteName string
	Values      map[string]float64
	Sources     []string
}

// Accumulate folds one more signed weight into a running total with diminishing returns:
// the contribution is scaled by 1/(1+|total|/10) and then by 10.
func Accumulate(total, signed float64) float64 {
	factor := 1 / (1 + math.Abs(total)/diminishingScale)
	return total + signed*factor*diminishingScale
}

// Aggregate groups extractions by athlete in order of first appearance.
func Aggregate(extractions []Extraction) []Adjustment {
	var out []Adjustment
	index := make(map[string]int)
	for _, ex := range extractions {
		i, ok := index[ex.AthleteID]
		if !ok {
			i = len(out)
			index[ex.AthleteID] = i
			out = append(out, Adjustment{
				AthleteID:   ex.AthleteID,
				AthleteName: ex.AthleteName,
				Values:      make(map[string]float64),
			})
		}
		adj := &out[i]
		adj.Values[ex.Dimension] = Accumulate(adj.Values[ex.Dimension], ex.Weight)
		adj.addSource(ex.Context)
	}
	return out
}

func (a *Adjustment) addSource(context string) {
	if len(a.Sources) >= maxSources || context == "" {
		return
	}
	snippet := textnorm.Truncate(context, snippetLength)
	for _, s := range a.Sources {
		if s == snippet {
			return
		}
	}
	a.Sources = append(a.Sources, snippet)
}

// Ranked is one dimension of an adjustment prepared for display.
type Ranked struct {
	Dimension  string    `json:"dimension"`
	Adjustment float64   `json:"adjustment"`
	Direction  Sentiment `json:"direction"`
}

// Top returns up to n dimensions with |value| >= floor, largest magnitude first,
// values rounded to one decimal.
func (a Adjustment) Top(n int, floor float64) []Ranked {
	var out []Ranked
	for dim, v := range a.Values {
		if math.Abs(v) < floor {
			continue
		}
		dir := Positive
		if v < 0 {
			dir = Negative
		}
		out = append(out, Ranked{Dimension: dim, Adjustment: v, Direction: dir})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Adjustment), math.Abs(out[j].Adjustment)
		if ai != aj {
			return ai > aj
		}
		return out[i].Dimension < out[j].Dimension
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Adjustment = math.Round(out[i].Adjustment*10) / 10
	}
	return out
}
