// Package inference completes per-race dimension weights from race metadata.
package inference

import (
	"strings"

	"github.com/okian/velorank/internal/domain/dimension"
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/internal/domain/textnorm"
)

// Field selects the race attribute a rule inspects.
type Field int

// Inspectable race attributes.
const (
	FieldTerrain Field = iota
	FieldFinish
	FieldCategory
	FieldElevation
	FieldName
)

// Op is how a rule compares the field.
type Op int

// Rule operators. Contains and Equals use Terms; Above and Below use Threshold.
const (
	OpContains Op = iota
	OpEquals
	OpAbove
	OpBelow
)

// Weight is a default relevance for one dimension.
type Weight struct {
	Key   string
	Value float64
}

// Rule sets default weights when a race attribute matches.
// Rules sharing a non-empty Group are mutually exclusive: only the first match in the group fires.
type Rule struct {
	Field     Field
	Op        Op
	Terms     []string
	Threshold int
	Group     string
	Set       []Weight
}

func (r Rule) matches(race model.Race) bool {
	switch r.Field {
	case FieldElevation:
		// unknown elevation counts as zero
		elev := 0
		if race.ElevationM != nil {
			elev = *race.ElevationM
		}
		switch r.Op {
		case OpAbove:
			return elev > r.Threshold
		case OpBelow:
			return elev < r.Threshold
		}
		return false
	case FieldCategory:
		for _, t := range r.Terms {
			if strings.EqualFold(strings.TrimSpace(race.Category), t) {
				return true
			}
		}
		return false
	}

	var value string
	switch r.Field {
	case FieldTerrain:
		value = strings.ToLower(race.Terrain)
	case FieldFinish:
		value = strings.ToLower(race.FinishType)
	case FieldName:
		value = textnorm.Fold(race.Name)
	}
	for _, t := range r.Terms {
		if r.Op == OpEquals && value == t {
			return true
		}
		if r.Op == OpContains && strings.Contains(value, t) {
			return true
		}
	}
	return false
}

// Inferencer applies an ordered rule list to race metadata.
type Inferencer struct {
	catalog *dimension.Catalog
	rules   []Rule
}

// New returns an Inferencer over catalog using rules in order.
func New(catalog *dimension.Catalog, rules []Rule) *Inferencer {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Inferencer{catalog: catalog, rules: cp}
}

// Default returns the Inferencer with the standard cycling rules.
func Default() *Inferencer {
	return New(dimension.Default(), DefaultRules())
}

// Infer returns a weight map that is total over the catalog. A weight that is missing
// or exactly zero in existing is unset and may be filled by a rule; any other value is
// kept as is. existing is not modified.
func (in *Inferencer) Infer(race model.Race, existing map[string]float64) map[string]float64 {
	out := make(map[string]float64, in.catalog.Len())
	for k, v := range existing {
		out[k] = v
	}

	fired := make(map[string]bool)
	for _, rule := range in.rules {
		if rule.Group != "" && fired[rule.Group] {
			continue
		}
		if !rule.matches(race) {
			continue
		}
		if rule.Group != "" {
			fired[rule.Group] = true
		}
		for _, w := range rule.Set {
			if out[w.Key] == 0 {
				out[w.Key] = w.Value
			}
		}
	}

	for _, k := range in.catalog.Keys() {
		if _, ok := out[k]; !ok {
			out[k] = 0
		}
	}
	return out
}
