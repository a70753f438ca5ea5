package rating

import "math"

const (
	eloScale           = 400.0
	fieldSizeScale     = 200.0
	minFieldSizeFactor = 0.3
)

// ExpectedScore is the Elo expectation of a rating ra against rb.
func ExpectedScore(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/eloScale))
}

// FieldSizeFactor damps K for larger fields: max(0.3, 1 - n/200).
func FieldSizeFactor(n int) float64 {
	return math.Max(minFieldSizeFactor, 1-float64(n)/fieldSizeScale)
}

// ActualScore maps a finish position in a field of total riders to a score in (0,1].
func ActualScore(position, total int) float64 {
	switch {
	case position == 1:
		return 1.0
	case position == 2:
		return 0.85
	case position == 3:
		return 0.75
	case position <= 10:
		return 0.70 - float64(position-3)*0.05
	case position <= 20:
		return 0.35 - float64(position-10)*0.02
	}

	norm := 0.0
	if total > 1 {
		norm = float64(position-1) / float64(total-1)
	}
	if norm <= 0.5 {
		return 0.15 - norm*0.1
	}
	return math.Max(0.01, 0.10-norm*0.1)
}

// roundHalfUp rounds ties toward positive infinity so gains and losses of the
// same magnitude round consistently.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
