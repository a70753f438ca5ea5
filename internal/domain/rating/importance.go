package rating

import "strings"

// ImportanceTable maps a race category to its importance multiplier.
type ImportanceTable map[string]float64

// DefaultImportance returns the standard category multipliers.
func DefaultImportance() ImportanceTable {
	return ImportanceTable{
		"GT":          2.5,
		"Monument":    2.2,
		"WC":          2.0,
		"Olympics":    2.0,
		"WT":          1.5,
		"ProSeries":   1.0,
		"Continental": 0.7,
		"National":    0.8,
		"U23":         0.5,
		"Others":      0.5,
	}
}

// For returns the category multiplier times the race's own multiplier.
// Unknown categories count as 1.0; a non-positive multiplier counts as 1.0.
func (t ImportanceTable) For(category string, multiplier float64) float64 {
	base, ok := t[category]
	if !ok {
		base = 1.0
		for k, v := range t {
			if strings.EqualFold(k, category) {
				base = v
				break
			}
		}
	}
	if multiplier <= 0 {
		multiplier = 1.0
	}
	return base * multiplier
}
