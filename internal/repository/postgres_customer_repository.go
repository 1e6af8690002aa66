package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// PostgresCustomerRepository implements CustomerRepository and
// StoreRepository using PostgreSQL.
type PostgresCustomerRepository struct {
	db *pgxpool.Pool
}

// NewPostgresCustomerRepository creates a new PostgreSQL customer repository
func NewPostgresCustomerRepository(db *pgxpool.Pool) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{
		db: db,
	}
}

// CreateCustomer inserts a customer. Name collisions surface as
// ErrDuplicate; the reconciliation engine owns the retry strategy.
func (r *PostgresCustomerRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (id, code, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, customer.ID, nullIfEmpty(customer.Code), customer.Name).Scan(
		&customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert customer %q: %w", customer.Name, err)
	}

	return customer, nil
}

// GetCustomerByName retrieves a customer by exact name, or ErrNotFound.
func (r *PostgresCustomerRepository) GetCustomerByName(ctx context.Context, name string) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(code, ''), name, created_at, updated_at
		FROM customers
		WHERE name = $1
	`, name).Scan(&customer.ID, &customer.Code, &customer.Name, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer %q: %w", name, err)
	}
	return &customer, nil
}

// EnsureStore returns the store with the given site code, creating it on
// first sight. New sites appear when a report or the POS feed references a
// site code we have never stored.
func (r *PostgresCustomerRepository) EnsureStore(ctx context.Context, siteCode string) (*domain.Store, error) {
	var store domain.Store
	err := r.db.QueryRow(ctx, `
		SELECT id, site_code, name, created_at
		FROM stores
		WHERE site_code = $1
	`, siteCode).Scan(&store.ID, &store.SiteCode, &store.Name, &store.CreatedAt)
	if err == nil {
		return &store, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get store %q: %w", siteCode, err)
	}

	store = domain.Store{
		ID:       uuid.NewString(),
		SiteCode: siteCode,
		Name:     fmt.Sprintf("Site %s", siteCode),
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO stores (id, site_code, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (site_code) DO UPDATE SET site_code = EXCLUDED.site_code
		RETURNING id, name, created_at
	`, store.ID, store.SiteCode, store.Name).Scan(&store.ID, &store.Name, &store.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create store %q: %w", siteCode, err)
	}

	return &store, nil
}
