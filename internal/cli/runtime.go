package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/treadline/invoice-ingest-service/internal/config"
	"github.com/treadline/invoice-ingest-service/internal/database"
	"github.com/treadline/invoice-ingest-service/internal/events"
	"github.com/treadline/invoice-ingest-service/internal/reconcile"
	"github.com/treadline/invoice-ingest-service/internal/repository"
)

// runtime bundles the wired dependencies every command needs.
type runtime struct {
	cfg        *config.Config
	db         *database.PostgresDB
	invoices   *repository.PostgresInvoiceRepository
	customers  *repository.PostgresCustomerRepository
	batches    *repository.PostgresBatchRepository
	emitter    events.Emitter
	reconciler *reconcile.Reconciler
	closers    []func()
}

// buildRuntime loads configuration and connects the store and the event
// transport.
func buildRuntime(ctx context.Context) (*runtime, error) {
	log.Println("Loading configuration...")
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rt := &runtime{
		cfg:       cfg,
		db:        db,
		invoices:  repository.NewPostgresInvoiceRepository(db.GetPool()),
		customers: repository.NewPostgresCustomerRepository(db.GetPool()),
		batches:   repository.NewPostgresBatchRepository(db.GetPool()),
	}
	rt.closers = append(rt.closers, db.Close)

	if cfg.RedisAddr != "" {
		redisEmitter := events.NewRedisEmitter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.EventChannel)
		if err := redisEmitter.Ping(ctx); err != nil {
			rt.close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		rt.emitter = redisEmitter
		rt.closers = append(rt.closers, func() { redisEmitter.Close() })
	} else {
		rt.emitter = events.NewLogEmitter()
	}

	rt.reconciler = reconcile.NewReconciler(rt.invoices, rt.customers, rt.customers, cfg.DefaultSiteCode)

	return rt, nil
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
