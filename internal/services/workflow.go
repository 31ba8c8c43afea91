package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/soochol/stateflow/internal/engine"
	"github.com/soochol/stateflow/internal/metrics"
	"github.com/soochol/stateflow/internal/repository"
	"github.com/soochol/stateflow/internal/stateflow"
)

// WorkflowService manages the lifecycle of workflow definitions: creation
// with validation, versioned updates and soft deletion.
type WorkflowService struct {
	repo    repository.DefinitionRepository
	engine  *engine.Engine
	metrics *metrics.Metrics
}

// NewWorkflowService creates a WorkflowService. m may be nil.
func NewWorkflowService(repo repository.DefinitionRepository, eng *engine.Engine, m *metrics.Metrics) *WorkflowService {
	return &WorkflowService{repo: repo, engine: eng, metrics: m}
}

// Create validates wf and stores it as version 1. Creating over an active
// definition with the same id is a conflict.
func (s *WorkflowService) Create(ctx context.Context, wf *stateflow.WorkflowDefinition) (*stateflow.WorkflowDefinition, error) {
	if err := s.engine.ValidateDefinition(wf); err != nil {
		return nil, err
	}
	exists, err := s.repo.Exists(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, stateflow.Conflictf("workflow with id %s already exists", wf.ID)
	}

	stored := wf.Clone()
	now := s.engine.Now()
	stored.Version = 1
	stored.IsActive = true
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if err := s.repo.Save(ctx, stored); err != nil {
		return nil, err
	}

	s.metrics.DefinitionChanged("create")
	slog.Info("workflow created", "workflow", stored.ID, "states", len(stored.States), "transitions", len(stored.Transitions))
	return stored, nil
}

// Get returns an active definition.
func (s *WorkflowService) Get(ctx context.Context, id string) (*stateflow.WorkflowDefinition, error) {
	wf, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, definitionNotFound(err, id)
	}
	if !wf.IsActive {
		return nil, stateflow.NotFoundf("workflow %s not found", id)
	}
	return wf, nil
}

// List returns all active definitions.
func (s *WorkflowService) List(ctx context.Context) ([]*stateflow.WorkflowDefinition, error) {
	return s.repo.List(ctx)
}

// Update replaces an active definition. The stored id, creation time and
// active flag are kept and the version is bumped.
func (s *WorkflowService) Update(ctx context.Context, id string, wf *stateflow.WorkflowDefinition) (*stateflow.WorkflowDefinition, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, s.engine.ValidateDefinition(nil)
	}

	// The body is validated as submitted; the path id replaces its id after.
	if err := s.engine.ValidateDefinition(wf); err != nil {
		return nil, err
	}
	updated := wf.Clone()
	updated.ID = id
	updated.Version = existing.Version + 1
	updated.CreatedAt = existing.CreatedAt
	updated.IsActive = existing.IsActive
	updated.UpdatedAt = s.engine.Now()
	if err := s.repo.Save(ctx, updated); err != nil {
		return nil, err
	}

	s.metrics.DefinitionChanged("update")
	slog.Info("workflow updated", "workflow", id, "version", updated.Version)
	return updated, nil
}

// Deactivate soft-deletes a definition. It disappears from Get and List and
// cannot start new instances; existing instances keep running.
func (s *WorkflowService) Deactivate(ctx context.Context, id string) error {
	wf, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	wf.IsActive = false
	wf.UpdatedAt = s.engine.Now()
	if err := s.repo.Save(ctx, wf); err != nil {
		return err
	}

	s.metrics.DefinitionChanged("deactivate")
	slog.Info("workflow deactivated", "workflow", id)
	return nil
}

func definitionNotFound(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return stateflow.NotFoundf("workflow %s not found", id)
	}
	return err
}

func instanceNotFound(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return stateflow.NotFoundf("instance %s not found", id)
	}
	return err
}
