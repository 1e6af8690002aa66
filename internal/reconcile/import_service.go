package reconcile

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/treadline/invoice-ingest-service/internal/domain"
	"github.com/treadline/invoice-ingest-service/internal/events"
	"github.com/treadline/invoice-ingest-service/internal/report"
	"github.com/treadline/invoice-ingest-service/internal/repository"
)

// progressEvery is how many reconciled invoices pass between progress
// events within one batch.
const progressEvery = 50

// ImportService runs file imports end to end: parse, normalize, reconcile,
// batch bookkeeping, lifecycle events. One file is one batch.
type ImportService struct {
	reconciler *Reconciler
	batches    repository.BatchRepository
	emitter    events.Emitter
}

// NewImportService creates a file-import service.
func NewImportService(reconciler *Reconciler, batches repository.BatchRepository, emitter events.Emitter) *ImportService {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &ImportService{
		reconciler: reconciler,
		batches:    batches,
		emitter:    emitter,
	}
}

// ImportFile imports one report file.
func (s *ImportService) ImportFile(ctx context.Context, path string) (*domain.ImportBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()

	return s.ImportReport(ctx, filepath.Base(path), f)
}

// ImportReport parses a report stream and reconciles every invoice it
// contains. Per-invoice failures are recorded against the batch and do not
// abort the run; the batch counters always expose partial success.
func (s *ImportService) ImportReport(ctx context.Context, source string, r io.Reader) (*domain.ImportBatch, error) {
	batch, err := s.batches.CreateBatch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to create import batch: %w", err)
	}
	s.emit(ctx, events.EventBatchCreated, batch)

	invoices, stats, err := report.Parse(r)
	if err != nil {
		s.failBatch(ctx, batch, err)
		return batch, err
	}
	if stats.DroppedHeaders > 0 {
		log.Printf("import %s: %d invoice start rows had no invoice number", source, stats.DroppedHeaders)
	}

	batch.TotalRecords = len(invoices)
	s.emit(ctx, events.EventBatchStarted, batch)

	for i, inv := range invoices {
		if _, err := s.reconciler.ReconcileInvoice(ctx, batch.ID, "", inv); err != nil {
			batch.FailedRecords++
			log.Printf("import %s: invoice %s failed: %v", source, inv.Header.InvoiceNumber, err)
			s.recordRowError(ctx, batch, i+1, fmt.Sprintf("invoice %s: %v", inv.Header.InvoiceNumber, err))
		} else {
			batch.SuccessfulRecords++
		}

		if (i+1)%progressEvery == 0 {
			s.emit(ctx, events.EventBatchProgress, batch)
			if err := s.batches.UpdateBatch(ctx, batch); err != nil {
				log.Printf("import %s: failed to update batch progress: %v", source, err)
			}
		}
	}

	now := time.Now()
	batch.CompletedAt = &now
	batch.Status = domain.BatchCompleted
	if err := s.batches.UpdateBatch(ctx, batch); err != nil {
		return batch, fmt.Errorf("failed to complete import batch: %w", err)
	}
	s.emit(ctx, events.EventBatchCompleted, batch)
	log.Printf("import %s: %d invoices, %d ok, %d failed",
		source, batch.TotalRecords, batch.SuccessfulRecords, batch.FailedRecords)

	return batch, nil
}

// ImportFiles imports several report files in parallel. Parsing is
// order-dependent within one file but independent across files, so each
// file gets its own single-pass import.
func (s *ImportService) ImportFiles(ctx context.Context, paths []string) []*domain.ImportBatch {
	var wg sync.WaitGroup
	batches := make([]*domain.ImportBatch, len(paths))

	for i, path := range paths {
		wg.Add(1)
		go func(idx int, p string) {
			defer wg.Done()
			batch, err := s.ImportFile(ctx, p)
			if err != nil {
				log.Printf("import %s: %v", p, err)
			}
			batches[idx] = batch
		}(i, path)
	}

	wg.Wait()
	return batches
}

func (s *ImportService) failBatch(ctx context.Context, batch *domain.ImportBatch, cause error) {
	now := time.Now()
	batch.CompletedAt = &now
	batch.Status = domain.BatchFailed
	if err := s.batches.UpdateBatch(ctx, batch); err != nil {
		log.Printf("failed to mark batch %s failed: %v", batch.ID, err)
	}
	s.emitter.Emit(ctx, events.Event{
		Name:      events.EventBatchFailed,
		BatchID:   batch.ID,
		Source:    batch.Source,
		Total:     batch.TotalRecords,
		Succeeded: batch.SuccessfulRecords,
		Failed:    batch.FailedRecords,
		Message:   cause.Error(),
		Timestamp: time.Now(),
	})
}

func (s *ImportService) recordRowError(ctx context.Context, batch *domain.ImportBatch, rowNumber int, message string) {
	rowErr := &domain.RowError{
		BatchID:   batch.ID,
		RowNumber: rowNumber,
		Message:   message,
	}
	if err := s.batches.RecordRowError(ctx, rowErr); err != nil {
		log.Printf("failed to record row error for batch %s: %v", batch.ID, err)
	}
	s.emitter.Emit(ctx, events.Event{
		Name:      events.EventRowError,
		BatchID:   batch.ID,
		Source:    batch.Source,
		RowNumber: rowNumber,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (s *ImportService) emit(ctx context.Context, name string, batch *domain.ImportBatch) {
	s.emitter.Emit(ctx, events.Event{
		Name:      name,
		BatchID:   batch.ID,
		Source:    batch.Source,
		Total:     batch.TotalRecords,
		Succeeded: batch.SuccessfulRecords,
		Failed:    batch.FailedRecords,
		Timestamp: time.Now(),
	})
}
