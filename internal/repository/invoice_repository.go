package repository

import (
	"context"

	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// UpsertResult reports what an upsert did to the store.
type UpsertResult struct {
	Record  *domain.InvoiceRecord
	Created bool
}

// InvoiceRepository defines the persistence operations for reconciled
// invoices. All mutations are keyed by the (siteCode, invoiceNumber)
// natural key so that file import and live sync converge on one record.
type InvoiceRepository interface {
	// UpsertInvoice inserts the record if its natural key is absent;
	// otherwise it refreshes the safe-to-update fields (customer link,
	// dates, financial aggregates) and replaces the line items. The
	// import-batch provenance of the first write is never overwritten.
	// Concurrent upserts to the same key serialize on the store's own
	// upsert atomicity.
	UpsertInvoice(ctx context.Context, record *domain.InvoiceRecord) (*UpsertResult, error)

	// GetInvoiceByNaturalKey retrieves a reconciled invoice with its
	// line items, or ErrNotFound.
	GetInvoiceByNaturalKey(ctx context.Context, naturalKey string) (*domain.InvoiceRecord, error)

	// ListSuspiciousInvoices returns stored invoices whose gross profit
	// equals their total within a cent on a positive total — the
	// signature of missing cost data. These are re-synced even though
	// they already exist.
	ListSuspiciousInvoices(ctx context.Context, limit int) ([]*domain.InvoiceRecord, error)

	// RecomputeInvoiceAggregates rewrites an invoice's total and gross
	// profit from its stored line items. Used by repair runs when the
	// header aggregates disagree with the detail.
	RecomputeInvoiceAggregates(ctx context.Context, naturalKey string) (*domain.InvoiceRecord, error)
}

// CustomerRepository defines persistence for customers. Customer names
// carry a uniqueness constraint; CreateCustomer surfaces collisions as
// ErrDuplicate so the reconciliation engine can run its retry-then-lookup
// strategy.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	GetCustomerByName(ctx context.Context, name string) (*domain.Customer, error)
}

// StoreRepository defines persistence for shop locations.
type StoreRepository interface {
	// EnsureStore returns the store with the given site code, creating
	// it if absent.
	EnsureStore(ctx context.Context, siteCode string) (*domain.Store, error)
}
