package repository

import (
	"context"

	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// BatchRepository defines persistence for import batches and their
// per-row errors. A batch is the unit of idempotent retry and the thing
// progress reporting hangs off.
type BatchRepository interface {
	CreateBatch(ctx context.Context, source string) (*domain.ImportBatch, error)
	UpdateBatch(ctx context.Context, batch *domain.ImportBatch) error
	GetBatchByID(ctx context.Context, batchID string) (*domain.ImportBatch, error)
	ListBatches(ctx context.Context, offset, limit int) ([]*domain.ImportBatch, error)

	RecordRowError(ctx context.Context, rowErr *domain.RowError) error
	ListRowErrors(ctx context.Context, batchID string) ([]*domain.RowError, error)
}
