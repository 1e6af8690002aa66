package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treadline/invoice-ingest-service/internal/domain"
	"github.com/treadline/invoice-ingest-service/internal/repository"
)

func newTestReconciler() (*Reconciler, *repository.MemoryRepository) {
	repo := repository.NewMemoryRepository()
	return NewReconciler(repo, repo, repo, "1"), repo
}

func buildInvoice(invoiceNumber, customerName string) *domain.Invoice {
	inv := domain.NewInvoice(domain.InvoiceHeader{
		InvoiceNumber: invoiceNumber,
		CustomerName:  customerName,
	})
	inv.SiteCode = "3"
	inv.AddLineItem(domain.LineItem{
		ProductCode: "P235/75R15",
		Description: "ALL TERRAIN TIRE",
		Quantity:    4,
		LineTotal:   500,
		Cost:        375,
	})
	return inv
}

func TestReconcileInvoice(t *testing.T) {
	r, repo := newTestReconciler()
	ctx := context.Background()

	result, err := r.ReconcileInvoice(ctx, "batch-1", "", buildInvoice("3-327551", "ACME TOWING"))
	require.NoError(t, err)
	assert.True(t, result.Created)

	record := result.Record
	assert.Equal(t, "3:3-327551", record.NaturalKey)
	assert.Equal(t, 500.0, record.TotalAmount)
	assert.Equal(t, 125.0, record.GrossProfit)
	assert.Equal(t, "batch-1", record.ImportBatchID)
	assert.NotEmpty(t, record.CustomerID)
	require.Len(t, record.Items, 1)
	assert.Equal(t, 25.0, record.Items[0].MarginPct)

	// The customer and store were materialized as side effects.
	customer, err := repo.GetCustomerByName(ctx, "ACME TOWING")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, record.CustomerID)

	store, err := repo.EnsureStore(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "3", store.SiteCode)
}

func TestReconcileInvoiceIsIdempotent(t *testing.T) {
	r, repo := newTestReconciler()
	ctx := context.Background()

	first, err := r.ReconcileInvoice(ctx, "batch-1", "", buildInvoice("3-327551", "ACME TOWING"))
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := r.ReconcileInvoice(ctx, "batch-2", "", buildInvoice("3-327551", "ACME TOWING"))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	// Provenance of the first write survives the refresh.
	stored, err := repo.GetInvoiceByNaturalKey(ctx, "3:3-327551")
	require.NoError(t, err)
	assert.Equal(t, "batch-1", stored.ImportBatchID)
}

func TestReconcileInvoiceRejectsMissingNumber(t *testing.T) {
	r, _ := newTestReconciler()

	inv := domain.NewInvoice(domain.InvoiceHeader{CustomerName: "ACME"})
	_, err := r.ReconcileInvoice(context.Background(), "batch-1", "", inv)
	require.Error(t, err)

	var rerr *ReconcileError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "reconcile_invoice", rerr.Op)
}

func TestReconcileInvoiceDefaultSiteCode(t *testing.T) {
	r, _ := newTestReconciler()

	inv := buildInvoice("327551", "ACME TOWING")
	inv.SiteCode = ""
	result, err := r.ReconcileInvoice(context.Background(), "batch-1", "", inv)
	require.NoError(t, err)
	assert.Equal(t, "1", result.Record.SiteCode)
	assert.Equal(t, "1:327551", result.Record.NaturalKey)
}

func TestEnsureCustomerDisambiguatesOnCollision(t *testing.T) {
	r, repo := newTestReconciler()
	ctx := context.Background()

	// Two distinct POS customers carry the same display name.
	first, err := r.EnsureCustomer(ctx, "ZZ-VISA/MASTERCARD", "1233")
	require.NoError(t, err)

	second, err := r.EnsureCustomer(ctx, "ZZ-VISA/MASTERCARD", "1234")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "ZZ-VISA/MASTERCARD (1234)", second.Name)

	// A re-run resolves to the existing disambiguated record.
	again, err := r.EnsureCustomer(ctx, "ZZ-VISA/MASTERCARD", "1234")
	require.NoError(t, err)
	assert.Equal(t, second.ID, again.ID)

	stored, err := repo.GetCustomerByName(ctx, "ZZ-VISA/MASTERCARD (1234)")
	require.NoError(t, err)
	assert.Equal(t, "1234", stored.Code)
}

func TestEnsureCustomerWithoutCodeResolvesExisting(t *testing.T) {
	r, _ := newTestReconciler()
	ctx := context.Background()

	first, err := r.EnsureCustomer(ctx, "ACME TOWING", "")
	require.NoError(t, err)

	again, err := r.EnsureCustomer(ctx, "ACME TOWING", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestNeedsSync(t *testing.T) {
	r, repo := newTestReconciler()
	ctx := context.Background()

	// Absent invoice: needs sync.
	needs, err := r.NeedsSync(ctx, "3", "3-999")
	require.NoError(t, err)
	assert.True(t, needs)

	// Present, healthy financials: skip.
	_, err = r.ReconcileInvoice(ctx, "batch-1", "", buildInvoice("3-100", "ACME"))
	require.NoError(t, err)
	needs, err = r.NeedsSync(ctx, "3", "3-100")
	require.NoError(t, err)
	assert.False(t, needs)

	// Present with profit equal to total: cost data never arrived, force a
	// re-sync.
	_, err = repo.UpsertInvoice(ctx, &domain.InvoiceRecord{
		SiteCode:      "3",
		InvoiceNumber: "3-200",
		TotalAmount:   100,
		GrossProfit:   100,
	})
	require.NoError(t, err)
	needs, err = r.NeedsSync(ctx, "3", "3-200")
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestRepairAggregates(t *testing.T) {
	r, repo := newTestReconciler()
	ctx := context.Background()

	_, err := repo.UpsertInvoice(ctx, &domain.InvoiceRecord{
		SiteCode:      "3",
		InvoiceNumber: "3-300",
		TotalAmount:   999,
		GrossProfit:   999,
		Items: []domain.LineItem{
			{LineNumber: 1, LineTotal: 40, GrossProfit: 10},
			{LineNumber: 2, LineTotal: 60, GrossProfit: 20},
		},
	})
	require.NoError(t, err)

	record, err := r.RepairAggregates(ctx, "3:3-300")
	require.NoError(t, err)
	assert.Equal(t, 100.0, record.TotalAmount)
	assert.Equal(t, 30.0, record.GrossProfit)
}
