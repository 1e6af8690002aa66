package possync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treadline/invoice-ingest-service/internal/domain"
	"github.com/treadline/invoice-ingest-service/internal/reconcile"
	"github.com/treadline/invoice-ingest-service/internal/repository"
)

// fakeClient serves a fixed order list page by page, optionally failing the
// first failures calls to a given offset.
type fakeClient struct {
	mu       sync.Mutex
	orders   []Order
	failures map[int]int // offset -> remaining failures
	fetches  []int       // offsets seen, in call order
}

func (f *fakeClient) FetchOrders(_ context.Context, offset, limit int) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches = append(f.fetches, offset)
	if remaining := f.failures[offset]; remaining > 0 {
		f.failures[offset] = remaining - 1
		return nil, errors.New("upstream timeout")
	}
	if offset >= len(f.orders) {
		return []Order{}, nil
	}
	end := offset + limit
	if end > len(f.orders) {
		end = len(f.orders)
	}
	return f.orders[offset:end], nil
}

func makeOrders(n int) []Order {
	orders := make([]Order, n)
	for i := range orders {
		orders[i] = Order{
			SiteCode:      "3",
			InvoiceNumber: fmt.Sprintf("3-%d", 1000+i),
			CustomerName:  "ACME TOWING",
			TotalAmount:   100,
			Lines: []OrderLine{
				{ProductCode: "P235/75R15", Description: "TIRE", Quantity: 1, LineTotal: 100, Cost: 60},
			},
		}
	}
	return orders
}

func newTestOrchestrator(client Client, opts Options) (*Orchestrator, *repository.MemoryRepository) {
	repo := repository.NewMemoryRepository()
	reconciler := reconcile.NewReconciler(repo, repo, repo, "1")
	return NewOrchestrator(client, reconciler, repo, nil, opts), repo
}

func TestRunSyncsAllPages(t *testing.T) {
	client := &fakeClient{orders: makeOrders(25)}
	o, repo := newTestOrchestrator(client, Options{PageSize: 10, MaxWorkers: 4, RetryDelay: time.Millisecond})

	batch, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.BatchCompleted, batch.Status)
	assert.Equal(t, 25, batch.TotalRecords)
	assert.Equal(t, 25, batch.SuccessfulRecords)
	assert.Zero(t, batch.FailedRecords)

	// Pages of 10, 10, 5, then the empty page that terminates the run.
	assert.Equal(t, []int{0, 10, 20, 25}, client.fetches)

	record, err := repo.GetInvoiceByNaturalKey(context.Background(), "3:3-1012")
	require.NoError(t, err)
	assert.Equal(t, batch.ID, record.ImportBatchID)
	assert.Equal(t, 40.0, record.GrossProfit)
}

func TestRunSkipsFreshRecords(t *testing.T) {
	client := &fakeClient{orders: makeOrders(5)}
	o, repo := newTestOrchestrator(client, Options{PageSize: 10, RetryDelay: time.Millisecond})

	// Pre-seed two healthy records; their orders are skipped on sync.
	for _, num := range []string{"3-1000", "3-1001"} {
		_, err := repo.UpsertInvoice(context.Background(), &domain.InvoiceRecord{
			SiteCode:      "3",
			InvoiceNumber: num,
			TotalAmount:   100,
			GrossProfit:   40,
		})
		require.NoError(t, err)
	}

	batch, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, batch.SuccessfulRecords)
	assert.Equal(t, 5, batch.TotalRecords)
}

func TestRunResyncsSuspiciousRecords(t *testing.T) {
	client := &fakeClient{orders: makeOrders(1)}
	o, repo := newTestOrchestrator(client, Options{PageSize: 10, RetryDelay: time.Millisecond})

	// Profit equal to total marks the record suspicious; the skip
	// optimization must not apply.
	_, err := repo.UpsertInvoice(context.Background(), &domain.InvoiceRecord{
		SiteCode:      "3",
		InvoiceNumber: "3-1000",
		TotalAmount:   100,
		GrossProfit:   100,
	})
	require.NoError(t, err)

	batch, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, batch.SuccessfulRecords)

	record, err := repo.GetInvoiceByNaturalKey(context.Background(), "3:3-1000")
	require.NoError(t, err)
	assert.Equal(t, 40.0, record.GrossProfit)
	assert.False(t, record.SuspiciousProfit())
}

func TestRunRetriesSameOffset(t *testing.T) {
	client := &fakeClient{
		orders:   makeOrders(3),
		failures: map[int]int{0: 2},
	}
	o, _ := newTestOrchestrator(client, Options{PageSize: 10, RetryDelay: time.Millisecond, MaxRetries: 5})

	batch, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompleted, batch.Status)
	assert.Equal(t, 3, batch.SuccessfulRecords)

	// Two failed attempts at offset 0, then success, then the empty page.
	assert.Equal(t, []int{0, 0, 0, 3}, client.fetches)
}

func TestRunFailsBatchWhenRetriesExhausted(t *testing.T) {
	client := &fakeClient{
		orders:   makeOrders(3),
		failures: map[int]int{0: 10},
	}
	o, repo := newTestOrchestrator(client, Options{PageSize: 10, RetryDelay: time.Millisecond, MaxRetries: 3})

	batch, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.BatchFailed, batch.Status)
	assert.Equal(t, []int{0, 0, 0}, client.fetches)

	stored, err := repo.GetBatchByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchFailed, stored.Status)
}

func TestRunIsolatesPerOrderFailures(t *testing.T) {
	orders := makeOrders(4)
	// An order without an invoice number fails reconciliation.
	orders[2].InvoiceNumber = ""

	client := &fakeClient{orders: orders}
	o, repo := newTestOrchestrator(client, Options{PageSize: 10, RetryDelay: time.Millisecond})

	batch, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompleted, batch.Status)
	assert.Equal(t, 3, batch.SuccessfulRecords)
	assert.Equal(t, 1, batch.FailedRecords)

	errs, err := repo.ListRowErrors(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Len(t, errs, 1)
}

// gaugedRepository tracks the peak number of concurrent upserts flowing
// through the reconciler path.
type gaugedRepository struct {
	*repository.MemoryRepository
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *gaugedRepository) UpsertInvoice(ctx context.Context, record *domain.InvoiceRecord) (*repository.UpsertResult, error) {
	cur := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if cur <= peak || g.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return g.MemoryRepository.UpsertInvoice(ctx, record)
}

func TestRunBoundsWorkerConcurrency(t *testing.T) {
	client := &fakeClient{orders: makeOrders(30)}
	repo := repository.NewMemoryRepository()
	gauged := &gaugedRepository{MemoryRepository: repo}
	reconciler := reconcile.NewReconciler(gauged, repo, repo, "1")
	o := NewOrchestrator(client, reconciler, repo, nil, Options{
		PageSize:   30,
		MaxWorkers: 4,
		RetryDelay: time.Millisecond,
	})

	batch, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, batch.SuccessfulRecords)
	assert.LessOrEqual(t, gauged.peak.Load(), int32(4))
}

func TestRunAttributesLiveSyncSource(t *testing.T) {
	client := &fakeClient{orders: makeOrders(1)}
	o, repo := newTestOrchestrator(client, Options{PageSize: 10, RetryDelay: time.Millisecond})

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	record, err := repo.GetInvoiceByNaturalKey(context.Background(), "3:3-1000")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLiveSync, mustBatchSource(t, repo, record.ImportBatchID))
}

func mustBatchSource(t *testing.T, repo *repository.MemoryRepository, batchID string) string {
	t.Helper()
	batch, err := repo.GetBatchByID(context.Background(), batchID)
	require.NoError(t, err)
	return batch.Source
}
