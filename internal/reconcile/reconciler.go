// Package reconcile merges assembled invoices into the persistent store.
// The same logical invoice may arrive twice — once from a file import and
// once from live sync — so every write goes through an idempotent upsert
// keyed by the (siteCode, invoiceNumber) natural key.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/treadline/invoice-ingest-service/internal/domain"
	"github.com/treadline/invoice-ingest-service/internal/finance"
	"github.com/treadline/invoice-ingest-service/internal/repository"
)

// ReconcileError represents an error that occurred while reconciling one
// invoice.
type ReconcileError struct {
	// Op is the operation that failed
	Op string

	// Err is the underlying error
	Err error
}

// Error returns a string representation of the error
func (e *ReconcileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Unwrap returns the underlying error
func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// Reconciler merges normalized invoices into the persistent store.
type Reconciler struct {
	invoices        repository.InvoiceRepository
	customers       repository.CustomerRepository
	stores          repository.StoreRepository
	defaultSiteCode string
}

// NewReconciler creates a reconciler over the given repositories.
// defaultSiteCode is used when an invoice carries no recoverable site code.
func NewReconciler(
	invoices repository.InvoiceRepository,
	customers repository.CustomerRepository,
	stores repository.StoreRepository,
	defaultSiteCode string,
) *Reconciler {
	return &Reconciler{
		invoices:        invoices,
		customers:       customers,
		stores:          stores,
		defaultSiteCode: defaultSiteCode,
	}
}

// ReconcileInvoice normalizes one assembled invoice and upserts it. The
// customerCode is the POS customer code when known (live sync); file
// imports pass "".
func (r *Reconciler) ReconcileInvoice(ctx context.Context, batchID, customerCode string, inv *domain.Invoice) (*repository.UpsertResult, error) {
	if inv.Header.InvoiceNumber == "" {
		return nil, &ReconcileError{Op: "reconcile_invoice", Err: errors.New("invoice has no invoice number")}
	}
	if inv.SiteCode == "" {
		inv.SiteCode = r.defaultSiteCode
	}

	finance.NormalizeInvoice(inv)

	if _, err := r.stores.EnsureStore(ctx, inv.SiteCode); err != nil {
		return nil, &ReconcileError{Op: "ensure_store", Err: err}
	}

	var customerID string
	if inv.Header.CustomerName != "" {
		customer, err := r.EnsureCustomer(ctx, inv.Header.CustomerName, customerCode)
		if err != nil {
			return nil, &ReconcileError{Op: "ensure_customer", Err: err}
		}
		customerID = customer.ID
	}

	record := &domain.InvoiceRecord{
		SiteCode:      inv.SiteCode,
		InvoiceNumber: inv.Header.InvoiceNumber,
		NaturalKey:    inv.NaturalKey(),
		CustomerID:    customerID,
		CustomerName:  inv.Header.CustomerName,
		Vehicle:       inv.Header.Vehicle,
		Mileage:       inv.Header.Mileage,
		InvoiceDate:   inv.Header.InvoiceDate,
		Salesperson:   inv.Header.Salesperson,
		TaxAmount:     inv.Header.TaxAmount,
		TotalAmount:   inv.Header.TotalAmount,
		GrossProfit:   inv.GrossProfit(),
		ImportBatchID: batchID,
		Items:         inv.Items,
	}

	result, err := r.invoices.UpsertInvoice(ctx, record)
	if err != nil {
		return nil, &ReconcileError{Op: "upsert_invoice", Err: err}
	}
	return result, nil
}

// EnsureCustomer creates the customer, handling name-uniqueness collisions
// with a retry-then-lookup strategy: retry once with the customer code
// appended to the name, and if that also collides, look the record up by
// the disambiguated name instead of failing the batch.
func (r *Reconciler) EnsureCustomer(ctx context.Context, name, code string) (*domain.Customer, error) {
	customer, err := r.customers.CreateCustomer(ctx, &domain.Customer{Name: name, Code: code})
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, err
	}

	if code == "" {
		// Nothing to disambiguate with; the colliding record is the
		// same customer.
		return r.customers.GetCustomerByName(ctx, name)
	}

	disambiguated := fmt.Sprintf("%s (%s)", name, code)
	customer, err = r.customers.CreateCustomer(ctx, &domain.Customer{Name: disambiguated, Code: code})
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, err
	}

	return r.customers.GetCustomerByName(ctx, disambiguated)
}

// NeedsSync reports whether an upstream record should be written: true
// when the invoice is absent, and also when it exists but its stored
// financials look suspicious. Idempotency is at the identity level, not
// "already processed, skip" — suspicious records are re-synced.
func (r *Reconciler) NeedsSync(ctx context.Context, siteCode, invoiceNumber string) (bool, error) {
	record, err := r.invoices.GetInvoiceByNaturalKey(ctx, domain.ComposeNaturalKey(siteCode, invoiceNumber))
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return record.SuspiciousProfit(), nil
}

// RepairAggregates recomputes the stored aggregates of one invoice from
// its line items.
func (r *Reconciler) RepairAggregates(ctx context.Context, naturalKey string) (*domain.InvoiceRecord, error) {
	return r.invoices.RecomputeInvoiceAggregates(ctx, naturalKey)
}
