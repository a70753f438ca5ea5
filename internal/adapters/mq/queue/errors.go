package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrClosed = errors.New("import queue closed")
	ErrFull   = errors.New("import queue full")
)
