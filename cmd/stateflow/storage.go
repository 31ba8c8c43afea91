package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/soochol/stateflow/internal/config"
	"github.com/soochol/stateflow/internal/db"
	"github.com/soochol/stateflow/internal/repository"
	redisrepo "github.com/soochol/stateflow/internal/repository/redis"
)

// storage bundles the repositories for the configured backend and the
// resources that must be closed on shutdown.
type storage struct {
	definitions repository.DefinitionRepository
	instances   repository.InstanceRepository
	closers     []func() error
}

func (s *storage) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Warn("storage close failed", "err", err)
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("using postgres storage")
		return &storage{
			definitions: repository.NewPersistent(repository.NewMemory(), database),
			instances:   repository.NewPersistentInstanceRepository(repository.NewMemoryInstanceRepository(), database),
			closers:     []func() error{database.Close},
		}, nil

	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := redisrepo.New(client, redisrepo.WithLogger(slog.Default()))
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		slog.Info("using redis storage", "addr", cfg.Redis.Addr)
		return &storage{
			definitions: store.Definitions(),
			instances:   store.Instances(),
			closers:     []func() error{client.Close},
		}, nil

	default:
		slog.Info("using in-memory storage")
		return &storage{
			definitions: repository.NewMemory(),
			instances:   repository.NewMemoryInstanceRepository(),
		}, nil
	}
}
