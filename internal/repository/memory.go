package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// MemoryRepository is an in-memory implementation of the repository
// interfaces with the same upsert and uniqueness semantics as the Postgres
// implementations. Used by service tests and by dry-run imports.
type MemoryRepository struct {
	mu        sync.Mutex
	invoices  map[string]*domain.InvoiceRecord // keyed by natural key
	customers map[string]*domain.Customer      // keyed by name
	stores    map[string]*domain.Store         // keyed by site code
	batches   map[string]*domain.ImportBatch
	rowErrors map[string][]*domain.RowError // keyed by batch ID
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		invoices:  make(map[string]*domain.InvoiceRecord),
		customers: make(map[string]*domain.Customer),
		stores:    make(map[string]*domain.Store),
		batches:   make(map[string]*domain.ImportBatch),
		rowErrors: make(map[string][]*domain.RowError),
	}
}

// UpsertInvoice implements the upsert contract: insert when the natural key
// is absent, otherwise refresh the safe fields and replace items while
// preserving the first write's import-batch provenance.
func (m *MemoryRepository) UpsertInvoice(_ context.Context, record *domain.InvoiceRecord) (*UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.NaturalKey == "" {
		record.NaturalKey = domain.ComposeNaturalKey(record.SiteCode, record.InvoiceNumber)
	}

	now := time.Now()
	existing, ok := m.invoices[record.NaturalKey]
	if !ok {
		stored := *record
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		stored.CreatedAt = now
		stored.UpdatedAt = now
		stored.Items = append([]domain.LineItem(nil), record.Items...)
		m.invoices[record.NaturalKey] = &stored
		out := stored
		return &UpsertResult{Record: &out, Created: true}, nil
	}

	existing.CustomerID = record.CustomerID
	existing.CustomerName = record.CustomerName
	existing.Vehicle = record.Vehicle
	existing.Mileage = record.Mileage
	existing.InvoiceDate = record.InvoiceDate
	existing.Salesperson = record.Salesperson
	existing.TaxAmount = record.TaxAmount
	existing.TotalAmount = record.TotalAmount
	existing.GrossProfit = record.GrossProfit
	existing.Items = append([]domain.LineItem(nil), record.Items...)
	existing.UpdatedAt = now
	// ImportBatchID deliberately untouched: provenance of the first write.

	out := *existing
	return &UpsertResult{Record: &out, Created: false}, nil
}

// GetInvoiceByNaturalKey retrieves a stored invoice or ErrNotFound.
func (m *MemoryRepository) GetInvoiceByNaturalKey(_ context.Context, naturalKey string) (*domain.InvoiceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.invoices[naturalKey]
	if !ok {
		return nil, ErrNotFound
	}
	out := *record
	out.Items = append([]domain.LineItem(nil), record.Items...)
	return &out, nil
}

// ListSuspiciousInvoices returns stored invoices whose profit equals their
// total within a cent on a positive total.
func (m *MemoryRepository) ListSuspiciousInvoices(_ context.Context, limit int) ([]*domain.InvoiceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	records := []*domain.InvoiceRecord{}
	for _, record := range m.invoices {
		if record.SuspiciousProfit() {
			out := *record
			records = append(records, &out)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].NaturalKey < records[j].NaturalKey
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// RecomputeInvoiceAggregates rewrites the invoice aggregates from its line
// items when they disagree and the line-item sum is non-zero.
func (m *MemoryRepository) RecomputeInvoiceAggregates(_ context.Context, naturalKey string) (*domain.InvoiceRecord, error) {
	m.mu.Lock()
	record, ok := m.invoices[naturalKey]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	var total, profit float64
	for _, item := range record.Items {
		total += item.LineTotal
		profit += item.GrossProfit
	}
	if total != 0 && record.TotalAmount != total {
		record.TotalAmount = total
		record.GrossProfit = profit
		record.UpdatedAt = time.Now()
	}
	m.mu.Unlock()

	return m.GetInvoiceByNaturalKey(context.Background(), naturalKey)
}

// CreateCustomer inserts a customer, enforcing name uniqueness.
func (m *MemoryRepository) CreateCustomer(_ context.Context, customer *domain.Customer) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[customer.Name]; ok {
		return nil, ErrDuplicate
	}

	stored := *customer
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.customers[stored.Name] = &stored

	out := stored
	return &out, nil
}

// GetCustomerByName retrieves a customer by exact name.
func (m *MemoryRepository) GetCustomerByName(_ context.Context, name string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	customer, ok := m.customers[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := *customer
	return &out, nil
}

// EnsureStore returns the store for a site code, creating it if absent.
func (m *MemoryRepository) EnsureStore(_ context.Context, siteCode string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[siteCode]; ok {
		out := *store
		return &out, nil
	}

	store := &domain.Store{
		ID:        uuid.NewString(),
		SiteCode:  siteCode,
		Name:      fmt.Sprintf("Site %s", siteCode),
		CreatedAt: time.Now(),
	}
	m.stores[siteCode] = store

	out := *store
	return &out, nil
}

// CreateBatch opens a new batch in the started state.
func (m *MemoryRepository) CreateBatch(_ context.Context, source string) (*domain.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := &domain.ImportBatch{
		ID:        uuid.NewString(),
		Source:    source,
		Status:    domain.BatchStarted,
		StartedAt: time.Now(),
	}
	m.batches[batch.ID] = batch

	out := *batch
	return &out, nil
}

// UpdateBatch persists batch counters and status.
func (m *MemoryRepository) UpdateBatch(_ context.Context, batch *domain.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.batches[batch.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = batch.Status
	stored.TotalRecords = batch.TotalRecords
	stored.SuccessfulRecords = batch.SuccessfulRecords
	stored.FailedRecords = batch.FailedRecords
	stored.CompletedAt = batch.CompletedAt
	return nil
}

// GetBatchByID retrieves one batch.
func (m *MemoryRepository) GetBatchByID(_ context.Context, batchID string) (*domain.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch, ok := m.batches[batchID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *batch
	return &out, nil
}

// ListBatches retrieves batches ordered newest first.
func (m *MemoryRepository) ListBatches(_ context.Context, offset, limit int) ([]*domain.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	batches := []*domain.ImportBatch{}
	for _, batch := range m.batches {
		out := *batch
		batches = append(batches, &out)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].StartedAt.After(batches[j].StartedAt)
	})
	if offset >= len(batches) {
		return []*domain.ImportBatch{}, nil
	}
	batches = batches[offset:]
	if len(batches) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}

// RecordRowError stores one failed record of a batch.
func (m *MemoryRepository) RecordRowError(_ context.Context, rowErr *domain.RowError) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rowErr
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = time.Now()
	m.rowErrors[stored.BatchID] = append(m.rowErrors[stored.BatchID], &stored)
	return nil
}

// ListRowErrors retrieves the recorded errors of one batch in row order.
func (m *MemoryRepository) ListRowErrors(_ context.Context, batchID string) ([]*domain.RowError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	errs := append([]*domain.RowError(nil), m.rowErrors[batchID]...)
	sort.Slice(errs, func(i, j int) bool {
		return errs[i].RowNumber < errs[j].RowNumber
	})
	return errs, nil
}
