package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicateImport = errors.New("import already processed")
	ErrNotStarted      = errors.New("service not started")
)
