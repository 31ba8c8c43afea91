package repository

import (
	"context"
	"errors"
	"fmt"

	memstore "github.com/soochol/stateflow/internal/repository/memory"
	"github.com/soochol/stateflow/internal/stateflow"
)

var (
	_ DefinitionRepository = (*MemoryRepository)(nil)
	_ InstanceRepository   = (*MemoryInstanceRepository)(nil)
)

// MemoryRepository is a thread-safe in-memory DefinitionRepository.
type MemoryRepository struct {
	store *memstore.Store[*stateflow.WorkflowDefinition]
}

// NewMemory creates an empty in-memory definition repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		store: memstore.NewCopying(
			func(w *stateflow.WorkflowDefinition) string { return w.ID },
			(*stateflow.WorkflowDefinition).Clone,
		),
	}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*stateflow.WorkflowDefinition, error) {
	wf, err := r.store.Get(ctx, id)
	if errors.Is(err, memstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: definition %s", ErrNotFound, id)
	}
	return wf, err
}

func (r *MemoryRepository) Save(ctx context.Context, wf *stateflow.WorkflowDefinition) error {
	return r.store.Set(ctx, wf)
}

func (r *MemoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	wf, err := r.store.Get(ctx, id)
	if errors.Is(err, memstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return wf.IsActive, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*stateflow.WorkflowDefinition, error) {
	return r.store.Filter(ctx, func(w *stateflow.WorkflowDefinition) bool { return w.IsActive })
}

// MemoryInstanceRepository is a thread-safe in-memory InstanceRepository.
type MemoryInstanceRepository struct {
	store *memstore.Store[*stateflow.WorkflowInstance]
}

// NewMemoryInstanceRepository creates an empty in-memory instance repository.
func NewMemoryInstanceRepository() *MemoryInstanceRepository {
	return &MemoryInstanceRepository{
		store: memstore.NewCopying(
			func(i *stateflow.WorkflowInstance) string { return i.ID },
			(*stateflow.WorkflowInstance).Clone,
		),
	}
}

func (r *MemoryInstanceRepository) Get(ctx context.Context, id string) (*stateflow.WorkflowInstance, error) {
	inst, err := r.store.Get(ctx, id)
	if errors.Is(err, memstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: instance %s", ErrNotFound, id)
	}
	return inst, err
}

func (r *MemoryInstanceRepository) Save(ctx context.Context, inst *stateflow.WorkflowInstance) error {
	return r.store.Set(ctx, inst)
}

func (r *MemoryInstanceRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.store.Has(ctx, id), nil
}

func (r *MemoryInstanceRepository) List(ctx context.Context) ([]*stateflow.WorkflowInstance, error) {
	return r.store.All(ctx)
}

func (r *MemoryInstanceRepository) ListByDefinition(ctx context.Context, definitionID string) ([]*stateflow.WorkflowInstance, error) {
	return r.store.Filter(ctx, func(i *stateflow.WorkflowInstance) bool {
		return i.WorkflowDefinitionID == definitionID
	})
}
