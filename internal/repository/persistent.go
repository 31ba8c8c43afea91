package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soochol/stateflow/internal/db"
	"github.com/soochol/stateflow/internal/stateflow"
)

// DefinitionDB defines the DB-layer methods needed by the persistent
// definition repo. *db.DB satisfies this interface.
type DefinitionDB interface {
	SaveDefinition(ctx context.Context, wf *stateflow.WorkflowDefinition) error
	GetDefinition(ctx context.Context, id string) (*stateflow.WorkflowDefinition, error)
	DefinitionExists(ctx context.Context, id string) (bool, error)
	ListDefinitions(ctx context.Context) ([]*stateflow.WorkflowDefinition, error)
}

// InstanceDB defines the DB-layer methods needed by the persistent instance repo.
type InstanceDB interface {
	SaveInstance(ctx context.Context, inst *stateflow.WorkflowInstance) error
	GetInstance(ctx context.Context, id string) (*stateflow.WorkflowInstance, error)
	InstanceExists(ctx context.Context, id string) (bool, error)
	ListInstances(ctx context.Context) ([]*stateflow.WorkflowInstance, error)
	ListInstancesByDefinition(ctx context.Context, definitionID string) ([]*stateflow.WorkflowInstance, error)
}

var (
	_ DefinitionRepository = (*PersistentRepository)(nil)
	_ InstanceRepository   = (*PersistentInstanceRepository)(nil)
)

// PersistentRepository wraps a MemoryRepository with a PostgreSQL backend.
// Writes go to the database first and only reach memory once it succeeded,
// so a failed save leaves both stores unchanged. Reads try memory first,
// falling back to the database; only a missing row there is ErrNotFound.
type PersistentRepository struct {
	mem *MemoryRepository
	db  DefinitionDB
}

// NewPersistent creates a definition repository backed by both memory and PostgreSQL.
func NewPersistent(mem *MemoryRepository, database DefinitionDB) *PersistentRepository {
	return &PersistentRepository{mem: mem, db: database}
}

func (r *PersistentRepository) Get(ctx context.Context, id string) (*stateflow.WorkflowDefinition, error) {
	// Fast path: in-memory.
	wf, err := r.mem.Get(ctx, id)
	if err == nil {
		return wf, nil
	}

	row, dbErr := r.db.GetDefinition(ctx, id)
	if errors.Is(dbErr, db.ErrNoRows) {
		return nil, err
	}
	if dbErr != nil {
		return nil, fmt.Errorf("db get definition: %w", dbErr)
	}

	// Cache in memory for future lookups.
	_ = r.mem.Save(ctx, row)
	return row, nil
}

func (r *PersistentRepository) Save(ctx context.Context, wf *stateflow.WorkflowDefinition) error {
	if err := r.db.SaveDefinition(ctx, wf); err != nil {
		return fmt.Errorf("db save definition: %w", err)
	}
	return r.mem.Save(ctx, wf)
}

func (r *PersistentRepository) Exists(ctx context.Context, id string) (bool, error) {
	if ok, _ := r.mem.Exists(ctx, id); ok {
		return true, nil
	}
	return r.db.DefinitionExists(ctx, id)
}

func (r *PersistentRepository) List(ctx context.Context) ([]*stateflow.WorkflowDefinition, error) {
	// Prefer DB for durable listing.
	rows, err := r.db.ListDefinitions(ctx)
	if err == nil {
		return rows, nil
	}
	slog.Warn("db list definitions failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx)
}

// PersistentInstanceRepository wraps a MemoryInstanceRepository with a
// PostgreSQL backend, with the same write-through rules as PersistentRepository.
type PersistentInstanceRepository struct {
	mem *MemoryInstanceRepository
	db  InstanceDB
}

// NewPersistentInstanceRepository creates an instance repository backed by both memory and PostgreSQL.
func NewPersistentInstanceRepository(mem *MemoryInstanceRepository, database InstanceDB) *PersistentInstanceRepository {
	return &PersistentInstanceRepository{mem: mem, db: database}
}

func (r *PersistentInstanceRepository) Get(ctx context.Context, id string) (*stateflow.WorkflowInstance, error) {
	inst, err := r.mem.Get(ctx, id)
	if err == nil {
		return inst, nil
	}

	dbInst, dbErr := r.db.GetInstance(ctx, id)
	if errors.Is(dbErr, db.ErrNoRows) {
		return nil, err
	}
	if dbErr != nil {
		return nil, fmt.Errorf("db get instance: %w", dbErr)
	}

	_ = r.mem.Save(ctx, dbInst)
	return dbInst, nil
}

func (r *PersistentInstanceRepository) Save(ctx context.Context, inst *stateflow.WorkflowInstance) error {
	if err := r.db.SaveInstance(ctx, inst); err != nil {
		return fmt.Errorf("db save instance: %w", err)
	}
	return r.mem.Save(ctx, inst)
}

func (r *PersistentInstanceRepository) Exists(ctx context.Context, id string) (bool, error) {
	if ok, _ := r.mem.Exists(ctx, id); ok {
		return true, nil
	}
	return r.db.InstanceExists(ctx, id)
}

func (r *PersistentInstanceRepository) List(ctx context.Context) ([]*stateflow.WorkflowInstance, error) {
	insts, err := r.db.ListInstances(ctx)
	if err == nil {
		return insts, nil
	}
	slog.Warn("db list instances failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx)
}

func (r *PersistentInstanceRepository) ListByDefinition(ctx context.Context, definitionID string) ([]*stateflow.WorkflowInstance, error) {
	insts, err := r.db.ListInstancesByDefinition(ctx, definitionID)
	if err == nil {
		return insts, nil
	}
	slog.Warn("db list instances failed, falling back to in-memory", "definition", definitionID, "err", err)
	return r.mem.ListByDefinition(ctx, definitionID)
}
