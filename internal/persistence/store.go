package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/repository/gormstore"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
)

// Backend is an opened store together with its health check and shutdown.
type Backend struct {
	Driver string
	Store  repository.Store

	ping  func(context.Context) error
	close func()
}

// OpenStore connects the backend selected by cfg.Store.Driver and applies
// migrations when enabled.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory, "":
		logger.Warn("using in-memory store; data is lost on restart")
		return &Backend{Driver: config.StoreDriverMemory, Store: memory.NewDB().Store()}, nil

	case config.StoreDriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Store.AutoMigrate {
			if err := RunMigrations(ctx, pg.Pool, cfg.Store.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Backend{
			Driver: cfg.Store.Driver,
			Store:  repository.NewPostgresStore(pg.Pool),
			ping:   pg.Ping,
			close:  pg.Close,
		}, nil

	case config.StoreDriverMySQL, config.StoreDriverSQLite:
		g, err := NewGorm(cfg.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.Store.Driver, err)
		}
		if cfg.Store.AutoMigrate {
			if err := gormstore.Migrate(g.DB.WithContext(ctx)); err != nil {
				g.Close()
				return nil, fmt.Errorf("migrate %s: %w", cfg.Store.Driver, err)
			}
			logger.Info("schema migrated", zap.String("driver", cfg.Store.Driver))
		}
		return &Backend{
			Driver: cfg.Store.Driver,
			Store:  gormstore.NewStore(g.DB),
			ping:   g.Ping,
			close:  g.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// Ping checks the backend; the memory store is always reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b == nil || b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases backend resources.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}
