package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/pkg/logger"
	"github.com/okian/velorank/pkg/metrics"
)

// Import processes a batch synchronously. A batch whose ImportID was already seen
// is rejected with ErrDuplicateImport so its races are never rated twice.
func (s *Service) Import(ctx context.Context, batch model.ImportBatch) (model.ImportReport, error) {
	if len(batch.Races) == 0 {
		return model.ImportReport{}, fmt.Errorf("%w: import has no races", ErrInvalidInput)
	}
	if batch.ImportID == "" {
		batch.ImportID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, batch.ImportID) {
		metrics.RecordImportDuplicate()
		return model.ImportReport{ImportID: batch.ImportID}, fmt.Errorf("%w: %s", ErrDuplicateImport, batch.ImportID)
	}
	return s.importer.Import(ctx, batch), nil
}

// EnqueueImport queues a batch for the worker pool and returns its import id.
func (s *Service) EnqueueImport(ctx context.Context, batch model.ImportBatch) (string, error) {
	if len(batch.Races) == 0 {
		return "", fmt.Errorf("%w: import has no races", ErrInvalidInput)
	}
	s.mu.RLock()
	q, started := s.importQueue, s.started
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}

	if batch.ImportID == "" {
		batch.ImportID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, batch.ImportID) {
		metrics.RecordImportDuplicate()
		return batch.ImportID, fmt.Errorf("%w: %s", ErrDuplicateImport, batch.ImportID)
	}
	if err := q.Enqueue(ctx, batch); err != nil {
		s.deduper.Unrecord(ctx, batch.ImportID)
		return "", fmt.Errorf("enqueue import %s: %w", batch.ImportID, err)
	}

	metrics.UpdateImportQueueSize(q.Len(ctx))
	s.logger.Debug(ctx, "import queued",
		logger.String("import_id", batch.ImportID),
		logger.Int("races", len(batch.Races)),
	)
	return batch.ImportID, nil
}
