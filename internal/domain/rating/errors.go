package rating

import "errors"

// Input validation errors. A caller passing any of these violated the update contract.
var (
	ErrMissingAthlete    = errors.New("participant has no athlete id")
	ErrDuplicateAthlete  = errors.New("athlete listed more than once")
	ErrInvalidPosition   = errors.New("finish position must be positive")
	ErrDuplicatePosition = errors.New("duplicate finish position")
	ErrInvalidImportance = errors.New("race importance must be positive")
	ErrInvalidWeight     = errors.New("dimension weight must be within [0,1]")
)
