package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// PostgresBatchRepository implements BatchRepository using PostgreSQL.
type PostgresBatchRepository struct {
	db *pgxpool.Pool
}

// NewPostgresBatchRepository creates a new PostgreSQL batch repository
func NewPostgresBatchRepository(db *pgxpool.Pool) *PostgresBatchRepository {
	return &PostgresBatchRepository{
		db: db,
	}
}

// CreateBatch opens a new batch in the started state.
func (r *PostgresBatchRepository) CreateBatch(ctx context.Context, source string) (*domain.ImportBatch, error) {
	batch := &domain.ImportBatch{
		ID:     uuid.NewString(),
		Source: source,
		Status: domain.BatchStarted,
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO import_batches (id, source, status)
		VALUES ($1, $2, $3)
		RETURNING started_at
	`, batch.ID, batch.Source, batch.Status).Scan(&batch.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create import batch: %w", err)
	}

	return batch, nil
}

// UpdateBatch persists the batch counters and status.
func (r *PostgresBatchRepository) UpdateBatch(ctx context.Context, batch *domain.ImportBatch) error {
	commandTag, err := r.db.Exec(ctx, `
		UPDATE import_batches
		SET status = $1, total_records = $2, successful_records = $3,
		    failed_records = $4, completed_at = $5
		WHERE id = $6
	`, batch.Status, batch.TotalRecords, batch.SuccessfulRecords,
		batch.FailedRecords, batch.CompletedAt, batch.ID)
	if err != nil {
		return fmt.Errorf("failed to update import batch %s: %w", batch.ID, err)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBatchByID retrieves one batch, or ErrNotFound.
func (r *PostgresBatchRepository) GetBatchByID(ctx context.Context, batchID string) (*domain.ImportBatch, error) {
	var batch domain.ImportBatch
	var completedAt *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT id, source, status, total_records, successful_records,
		       failed_records, started_at, completed_at
		FROM import_batches
		WHERE id = $1
	`, batchID).Scan(
		&batch.ID, &batch.Source, &batch.Status, &batch.TotalRecords,
		&batch.SuccessfulRecords, &batch.FailedRecords, &batch.StartedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get import batch %s: %w", batchID, err)
	}
	batch.CompletedAt = completedAt

	return &batch, nil
}

// ListBatches retrieves batches ordered newest first.
func (r *PostgresBatchRepository) ListBatches(ctx context.Context, offset, limit int) ([]*domain.ImportBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, source, status, total_records, successful_records,
		       failed_records, started_at, completed_at
		FROM import_batches
		ORDER BY started_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import batches: %w", err)
	}
	defer rows.Close()

	batches := []*domain.ImportBatch{}
	for rows.Next() {
		var batch domain.ImportBatch
		var completedAt *time.Time
		if err := rows.Scan(
			&batch.ID, &batch.Source, &batch.Status, &batch.TotalRecords,
			&batch.SuccessfulRecords, &batch.FailedRecords, &batch.StartedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		batch.CompletedAt = completedAt
		batches = append(batches, &batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import batches: %w", err)
	}

	return batches, nil
}

// RecordRowError persists one failed record of a batch.
func (r *PostgresBatchRepository) RecordRowError(ctx context.Context, rowErr *domain.RowError) error {
	if rowErr.ID == "" {
		rowErr.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO row_errors (id, batch_id, row_number, message)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, rowErr.ID, rowErr.BatchID, rowErr.RowNumber, rowErr.Message).Scan(&rowErr.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record row error: %w", err)
	}
	return nil
}

// ListRowErrors retrieves all recorded errors of one batch in row order.
func (r *PostgresBatchRepository) ListRowErrors(ctx context.Context, batchID string) ([]*domain.RowError, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, batch_id, row_number, message, created_at
		FROM row_errors
		WHERE batch_id = $1
		ORDER BY row_number
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query row errors: %w", err)
	}
	defer rows.Close()

	rowErrs := []*domain.RowError{}
	for rows.Next() {
		var rowErr domain.RowError
		if err := rows.Scan(&rowErr.ID, &rowErr.BatchID, &rowErr.RowNumber, &rowErr.Message, &rowErr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row error: %w", err)
		}
		rowErrs = append(rowErrs, &rowErr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating row errors: %w", err)
	}

	return rowErrs, nil
}
