// Package storage opens the configured balance history backend.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/config"
	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/cache"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/database"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/memory"
)

// Backend names accepted by HISTORY_BACKEND
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Store is a history store that can report its health
type Store interface {
	repositories.KVStore
	HealthCheck(ctx context.Context) error
}

// Opened is an open backend and the function releasing it
type Opened struct {
	Name  string
	Store Store
	Close func() error
}

// Open connects to the backend named by cfg.History.Backend
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Opened, error) {
	limit := cfg.History.MaxValueBytes

	switch cfg.History.Backend {
	case BackendRedis:
		store, err := cache.NewRedisStore(cfg.Redis, limit, logger)
		if err != nil {
			return nil, err
		}
		return &Opened{Name: BackendRedis, Store: store, Close: store.Close}, nil

	case BackendPostgres:
		db, err := database.NewPostgresDB(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		repo := database.NewKVRepo(db.DB(), limit)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Opened{Name: BackendPostgres, Store: &postgresStore{KVRepo: repo, db: db}, Close: db.Close}, nil

	case BackendMemory:
		logger.Warn("Using in-memory history store, snapshots are lost on exit")
		return &Opened{Name: BackendMemory, Store: memory.NewStore(limit), Close: func() error { return nil }}, nil
	}

	return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
}

// postgresStore pairs the key-value table with its connection health
type postgresStore struct {
	*database.KVRepo
	db *database.PostgresDB
}

func (s *postgresStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}
