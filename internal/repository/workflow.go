// Package repository defines storage interfaces for definitions and
// instances, with in-memory and PostgreSQL-backed implementations.
package repository

import (
	"context"
	"errors"

	"github.com/soochol/stateflow/internal/stateflow"
)

// ErrNotFound is returned when a requested definition or instance does not
// exist.
var ErrNotFound = errors.New("not found")

// DefinitionRepository stores workflow definitions keyed by id. Single-key
// operations are atomic and Save is last-write-wins.
type DefinitionRepository interface {
	// Get returns the definition whatever its active flag, or ErrNotFound.
	Get(ctx context.Context, id string) (*stateflow.WorkflowDefinition, error)
	// Save inserts or replaces the definition.
	Save(ctx context.Context, wf *stateflow.WorkflowDefinition) error
	// Exists reports whether an active definition with id is stored.
	Exists(ctx context.Context, id string) (bool, error)
	// List returns active definitions.
	List(ctx context.Context) ([]*stateflow.WorkflowDefinition, error)
}

// InstanceRepository stores workflow instances keyed by id. Single-key
// operations are atomic and Save is last-write-wins.
type InstanceRepository interface {
	Get(ctx context.Context, id string) (*stateflow.WorkflowInstance, error)
	Save(ctx context.Context, inst *stateflow.WorkflowInstance) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*stateflow.WorkflowInstance, error)
	ListByDefinition(ctx context.Context, definitionID string) ([]*stateflow.WorkflowInstance, error)
}
