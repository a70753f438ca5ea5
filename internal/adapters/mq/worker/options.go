package worker

import (
	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReportHandler registers a callback invoked with each finished import report.
func WithReportHandler(fn func(model.ImportReport)) Option {
	return func(w *InMemoryWorker) {
		w.onReport = fn
	}
}
