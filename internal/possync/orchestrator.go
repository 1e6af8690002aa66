package possync

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/treadline/invoice-ingest-service/internal/domain"
	"github.com/treadline/invoice-ingest-service/internal/events"
	"github.com/treadline/invoice-ingest-service/internal/reconcile"
	"github.com/treadline/invoice-ingest-service/internal/repository"
)

// Orchestrator defaults. Page size bounds one upstream fetch; the worker
// limit bounds in-flight downstream writes so a slow store doesn't
// serialize the whole run and a fast one isn't overwhelmed.
const (
	DefaultPageSize   = 1000
	DefaultMaxWorkers = 20
	DefaultRetryDelay = 5 * time.Second
	DefaultMaxRetries = 5
)

// Options tunes an Orchestrator. Zero values take the defaults above.
type Options struct {
	PageSize   int
	MaxWorkers int
	RetryDelay time.Duration
	MaxRetries int
}

// RunStats summarizes one sync run.
type RunStats struct {
	Processed int
	Skipped   int
	Failed    int
}

// Orchestrator pages through the POS dataset and reconciles each order
// through a bounded-concurrency worker pool. Item ordering across workers
// is unspecified; ordering within one invoice's items is fixed before
// dispatch by line-number assignment.
type Orchestrator struct {
	client      Client
	reconciler  *reconcile.Reconciler
	batches     repository.BatchRepository
	emitter     events.Emitter
	pageSize    int
	maxWorkers  int
	retryDelay  time.Duration
	maxRetries  int
	workerQueue chan struct{}
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(
	client Client,
	reconciler *reconcile.Reconciler,
	batches repository.BatchRepository,
	emitter events.Emitter,
	opts Options,
) *Orchestrator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Orchestrator{
		client:      client,
		reconciler:  reconciler,
		batches:     batches,
		emitter:     emitter,
		pageSize:    opts.PageSize,
		maxWorkers:  opts.MaxWorkers,
		retryDelay:  opts.RetryDelay,
		maxRetries:  opts.MaxRetries,
		workerQueue: make(chan struct{}, opts.MaxWorkers),
	}
}

// Run pages through the upstream dataset until a fetch returns zero rows.
// A transient fetch failure backs off for a fixed delay and retries the
// same offset rather than advancing past missed data; item failures are
// recorded and never abort the run.
func (o *Orchestrator) Run(ctx context.Context) (*domain.ImportBatch, error) {
	batch, err := o.batches.CreateBatch(ctx, domain.SourceLiveSync)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync batch: %w", err)
	}
	o.emit(ctx, events.EventBatchCreated, batch, 0)
	o.emit(ctx, events.EventBatchStarted, batch, 0)

	var stats RunStats
	var mu sync.Mutex

	offset := 0
	for {
		orders, err := o.fetchPageWithRetry(ctx, offset)
		if err != nil {
			o.failBatch(ctx, batch, &stats, err)
			return batch, err
		}
		if len(orders) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, order := range orders {
			// Admission: start immediately under the worker limit,
			// queue FIFO above it.
			select {
			case o.workerQueue <- struct{}{}:
			case <-ctx.Done():
				o.failBatch(ctx, batch, &stats, ctx.Err())
				return batch, ctx.Err()
			}

			wg.Add(1)
			go func(ord Order) {
				defer wg.Done()
				defer func() { <-o.workerQueue }()

				outcome := o.syncOrder(ctx, batch, ord)
				mu.Lock()
				switch outcome {
				case outcomeProcessed:
					stats.Processed++
				case outcomeSkipped:
					stats.Skipped++
				case outcomeFailed:
					stats.Failed++
				}
				mu.Unlock()
			}(order)
		}
		wg.Wait()

		mu.Lock()
		batch.TotalRecords = stats.Processed + stats.Skipped + stats.Failed
		batch.SuccessfulRecords = stats.Processed
		batch.FailedRecords = stats.Failed
		progress := stats
		mu.Unlock()

		log.Printf("sync: offset %d, processed %d, skipped %d, failed %d",
			offset, progress.Processed, progress.Skipped, progress.Failed)
		o.emit(ctx, events.EventBatchProgress, batch, progress.Skipped)
		if err := o.batches.UpdateBatch(ctx, batch); err != nil {
			log.Printf("sync: failed to update batch progress: %v", err)
		}

		offset += len(orders)
	}

	now := time.Now()
	batch.CompletedAt = &now
	batch.Status = domain.BatchCompleted
	if err := o.batches.UpdateBatch(ctx, batch); err != nil {
		return batch, fmt.Errorf("failed to complete sync batch: %w", err)
	}
	o.emit(ctx, events.EventBatchCompleted, batch, stats.Skipped)
	log.Printf("sync: done, processed %d, skipped %d, failed %d",
		stats.Processed, stats.Skipped, stats.Failed)

	return batch, nil
}

type syncOutcome int

const (
	outcomeProcessed syncOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// syncOrder writes one order through the reconciler unless a fresh,
// non-suspicious record already exists for its natural key.
func (o *Orchestrator) syncOrder(ctx context.Context, batch *domain.ImportBatch, order Order) syncOutcome {
	needed, err := o.reconciler.NeedsSync(ctx, order.SiteCode, order.InvoiceNumber)
	if err != nil {
		log.Printf("sync: existence check for %s-%s failed: %v", order.SiteCode, order.InvoiceNumber, err)
		return outcomeFailed
	}
	if !needed {
		return outcomeSkipped
	}

	if _, err := o.reconciler.ReconcileInvoice(ctx, batch.ID, order.CustomerCode, order.ToInvoice()); err != nil {
		log.Printf("sync: invoice %s-%s failed: %v", order.SiteCode, order.InvoiceNumber, err)
		o.recordRowError(ctx, batch, fmt.Sprintf("invoice %s-%s: %v", order.SiteCode, order.InvoiceNumber, err))
		return outcomeFailed
	}
	return outcomeProcessed
}

// fetchPageWithRetry fetches one page, backing off for a fixed delay and
// retrying the same offset on failure. Only after maxRetries consecutive
// failures does the run give up, failing the batch observably.
func (o *Orchestrator) fetchPageWithRetry(ctx context.Context, offset int) ([]Order, error) {
	var lastErr error
	for attempt := 0; attempt < o.maxRetries; attempt++ {
		orders, err := o.client.FetchOrders(ctx, offset, o.pageSize)
		if err == nil {
			return orders, nil
		}
		lastErr = err
		log.Printf("sync: fetch at offset %d failed (attempt %d/%d): %v", offset, attempt+1, o.maxRetries, err)

		select {
		case <-time.After(o.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("fetch at offset %d failed after %d attempts: %w", offset, o.maxRetries, lastErr)
}

func (o *Orchestrator) failBatch(ctx context.Context, batch *domain.ImportBatch, stats *RunStats, cause error) {
	now := time.Now()
	batch.CompletedAt = &now
	batch.Status = domain.BatchFailed
	batch.TotalRecords = stats.Processed + stats.Skipped + stats.Failed
	batch.SuccessfulRecords = stats.Processed
	batch.FailedRecords = stats.Failed
	if err := o.batches.UpdateBatch(ctx, batch); err != nil {
		log.Printf("sync: failed to mark batch failed: %v", err)
	}
	o.emitter.Emit(ctx, events.Event{
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

func (o *Orchestrator) recordRowError(ctx context.Context, batch *domain.ImportBatch, message string) {
	rowErr := &domain.RowError{
		BatchID: batch.ID,
		Message: message,
	}
	if err := o.batches.RecordRowError(ctx, rowErr); err != nil {
		log.Printf("sync: failed to record row error: %v", err)
	}
	o.emitter.Emit(ctx, events.Event{
		Name:      events.EventRowError,
		BatchID:   batch.ID,
		Source:    batch.Source,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) emit(ctx context.Context, name string, batch *domain.ImportBatch, skipped int) {
	o.emitter.Emit(ctx, events.Event{
		Name:      name,
		BatchID:   batch.ID,
		Source:    batch.Source,
		Total:     batch.TotalRecords,
		Succeeded: batch.SuccessfulRecords,
		Failed:    batch.FailedRecords,
		Skipped:   skipped,
		Timestamp: time.Now(),
	})
}
