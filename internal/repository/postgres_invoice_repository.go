package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// PostgresInvoiceRepository implements InvoiceRepository using PostgreSQL.
type PostgresInvoiceRepository struct {
	db *pgxpool.Pool
}

// NewPostgresInvoiceRepository creates a new PostgreSQL invoice repository
func NewPostgresInvoiceRepository(db *pgxpool.Pool) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{
		db: db,
	}
}

// UpsertInvoice writes a reconciled invoice keyed by its natural key.
// Insert-or-update resolution happens inside the store (ON CONFLICT), so
// concurrent upserts to the same key serialize without application-level
// locking. On update only the refresh-safe fields change; import_batch_id
// keeps the provenance of the first write.
func (r *PostgresInvoiceRepository) UpsertInvoice(ctx context.Context, record *domain.InvoiceRecord) (*UpsertResult, error) {
	if record.NaturalKey == "" {
		record.NaturalKey = domain.ComposeNaturalKey(record.SiteCode, record.InvoiceNumber)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback if not committed

	var created bool
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (
			id, site_code, invoice_number, natural_key, customer_id, customer_name,
			vehicle, mileage, invoice_date, salesperson, tax_amount, total_amount,
			gross_profit, import_batch_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (natural_key) DO UPDATE SET
			customer_id   = EXCLUDED.customer_id,
			customer_name = EXCLUDED.customer_name,
			vehicle       = EXCLUDED.vehicle,
			mileage       = EXCLUDED.mileage,
			invoice_date  = EXCLUDED.invoice_date,
			salesperson   = EXCLUDED.salesperson,
			tax_amount    = EXCLUDED.tax_amount,
			total_amount  = EXCLUDED.total_amount,
			gross_profit  = EXCLUDED.gross_profit,
			updated_at    = now()
		RETURNING id, COALESCE(import_batch_id::text, ''), created_at, updated_at, (xmax = 0)
	`, record.ID, record.SiteCode, record.InvoiceNumber, record.NaturalKey,
		nullIfEmpty(record.CustomerID), record.CustomerName, nullIfEmpty(record.Vehicle),
		record.Mileage, nullTime(record.InvoiceDate), nullIfEmpty(record.Salesperson),
		record.TaxAmount, record.TotalAmount, record.GrossProfit,
		nullIfEmpty(record.ImportBatchID),
	).Scan(&record.ID, &record.ImportBatchID, &record.CreatedAt, &record.UpdatedAt, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert invoice %s: %w", record.NaturalKey, err)
	}

	// Replace line items wholesale; their identity is (invoice, line
	// number) and line numbers are reassigned on every ingestion pass.
	if _, err := tx.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, record.ID); err != nil {
		return nil, fmt.Errorf("failed to delete invoice line items: %w", err)
	}

	for i := range record.Items {
		item := &record.Items[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_line_items (
				invoice_id, line_number, product_code, description, adjustment,
				quantity, parts_cost, labor_cost, fet_amount, line_total,
				cost, unit_cost, margin_pct, gross_profit, category
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, record.ID, item.LineNumber, item.ProductCode, item.Description,
			nullIfEmpty(item.Adjustment), item.Quantity, item.PartsCost, item.LaborCost,
			item.FETAmount, item.LineTotal, item.Cost, item.UnitCost, item.MarginPct,
			item.GrossProfit, item.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to insert invoice line item %d: %w", item.LineNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &UpsertResult{Record: record, Created: created}, nil
}

// GetInvoiceByNaturalKey retrieves a reconciled invoice with its line items.
func (r *PostgresInvoiceRepository) GetInvoiceByNaturalKey(ctx context.Context, naturalKey string) (*domain.InvoiceRecord, error) {
	var record domain.InvoiceRecord
	var invoiceDate *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT id, site_code, invoice_number, natural_key, COALESCE(customer_id::text, ''),
		       customer_name, COALESCE(vehicle, ''), mileage, invoice_date,
		       COALESCE(salesperson, ''), tax_amount, total_amount, gross_profit,
		       COALESCE(import_batch_id::text, ''), created_at, updated_at
		FROM invoices
		WHERE natural_key = $1
	`, naturalKey).Scan(
		&record.ID, &record.SiteCode, &record.InvoiceNumber, &record.NaturalKey,
		&record.CustomerID, &record.CustomerName, &record.Vehicle, &record.Mileage,
		&invoiceDate, &record.Salesperson, &record.TaxAmount, &record.TotalAmount,
		&record.GrossProfit, &record.ImportBatchID, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice %s: %w", naturalKey, err)
	}
	if invoiceDate != nil {
		record.InvoiceDate = *invoiceDate
	}

	items, err := r.getLineItems(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	record.Items = items

	return &record, nil
}

// ListSuspiciousInvoices returns invoices whose stored gross profit equals
// their total amount within a cent on a positive total. Profit equal to
// revenue means cost data likely never arrived.
func (r *PostgresInvoiceRepository) ListSuspiciousInvoices(ctx context.Context, limit int) ([]*domain.InvoiceRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, site_code, invoice_number, natural_key, customer_name,
		       tax_amount, total_amount, gross_profit, created_at, updated_at
		FROM invoices
		WHERE total_amount > 0
		  AND abs(gross_profit - total_amount) <= 0.01
		ORDER BY updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query suspicious invoices: %w", err)
	}
	defer rows.Close()

	records := []*domain.InvoiceRecord{}
	for rows.Next() {
		var record domain.InvoiceRecord
		if err := rows.Scan(
			&record.ID, &record.SiteCode, &record.InvoiceNumber, &record.NaturalKey,
			&record.CustomerName, &record.TaxAmount, &record.TotalAmount,
			&record.GrossProfit, &record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan suspicious invoice: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suspicious invoices: %w", err)
	}

	return records, nil
}

// RecomputeInvoiceAggregates rewrites total_amount and gross_profit from
// the stored line items. The header aggregates from the export are legacy
// data; when they disagree with a non-zero line-item sum, the line items
// are ground truth.
func (r *PostgresInvoiceRepository) RecomputeInvoiceAggregates(ctx context.Context, naturalKey string) (*domain.InvoiceRecord, error) {
	_, err := r.db.Exec(ctx, `
		UPDATE invoices i
		SET total_amount = agg.total, gross_profit = agg.profit, updated_at = now()
		FROM (
			SELECT invoice_id, SUM(line_total) AS total, SUM(gross_profit) AS profit
			FROM invoice_line_items
			GROUP BY invoice_id
		) agg
		WHERE agg.invoice_id = i.id
		  AND i.natural_key = $1
		  AND agg.total <> 0
		  AND i.total_amount <> agg.total
	`, naturalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute aggregates for %s: %w", naturalKey, err)
	}

	return r.GetInvoiceByNaturalKey(ctx, naturalKey)
}

func (r *PostgresInvoiceRepository) getLineItems(ctx context.Context, invoiceID string) ([]domain.LineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT line_number, product_code, description, COALESCE(adjustment, ''),
		       quantity, parts_cost, labor_cost, fet_amount, line_total,
		       cost, unit_cost, margin_pct, gross_profit, COALESCE(category, '')
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY line_number
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice line items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(
			&item.LineNumber, &item.ProductCode, &item.Description, &item.Adjustment,
			&item.Quantity, &item.PartsCost, &item.LaborCost, &item.FETAmount,
			&item.LineTotal, &item.Cost, &item.UnitCost, &item.MarginPct,
			&item.GrossProfit, &item.Category,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice line items: %w", err)
	}

	return items, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// nullIfEmpty maps "" to SQL NULL for nullable text columns.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

