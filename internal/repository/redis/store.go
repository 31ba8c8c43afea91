// Package redis implements the definition and instance repositories on
// Redis. Each entity is a Hash holding its JSON document plus the fields
// needed for filtering, and Sets index the ids for enumeration.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/soochol/stateflow/internal/repository"
)

// Compile-time interface checks.
var (
	_ repository.DefinitionRepository = (*DefinitionStore)(nil)
	_ repository.InstanceRepository   = (*InstanceStore)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store holds the shared Redis client. Definitions and Instances expose the
// two repository views over it.
type Store struct {
	client goredis.Cmdable
	logger *slog.Logger
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Definitions returns the definition repository view.
func (s *Store) Definitions() *DefinitionStore { return &DefinitionStore{s: s} }

// Instances returns the instance repository view.
func (s *Store) Instances() *InstanceStore { return &InstanceStore{s: s} }
