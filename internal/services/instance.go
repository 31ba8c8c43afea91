package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/expr-lang/expr"

	"github.com/soochol/stateflow/internal/engine"
	"github.com/soochol/stateflow/internal/metrics"
	"github.com/soochol/stateflow/internal/repository"
	"github.com/soochol/stateflow/internal/stateflow"
)

// TransitionResult is the outcome of a successful transition.
type TransitionResult struct {
	Instance      *stateflow.WorkflowInstance
	PreviousState string
}

// ExecutedAt returns the timestamp of the history entry the transition added.
func (r *TransitionResult) ExecutedAt() time.Time {
	if e, ok := r.Instance.LastEntry(); ok {
		return e.Timestamp
	}
	return r.Instance.UpdatedAt
}

// InstanceService starts instances and drives them through transitions.
// Work on a single instance is serialized in-process; separate processes
// sharing a store are last-write-wins.
type InstanceService struct {
	definitions repository.DefinitionRepository
	instances   repository.InstanceRepository
	engine      *engine.Engine
	events      *engine.EventBus
	locks       *InstanceLocks
	metrics     *metrics.Metrics
}

// NewInstanceService creates an InstanceService. events and m may be nil.
func NewInstanceService(
	definitions repository.DefinitionRepository,
	instances repository.InstanceRepository,
	eng *engine.Engine,
	events *engine.EventBus,
	m *metrics.Metrics,
) *InstanceService {
	return &InstanceService{
		definitions: definitions,
		instances:   instances,
		engine:      eng,
		events:      events,
		locks:       NewInstanceLocks(),
		metrics:     m,
	}
}

// Start creates an instance of an active definition in its initial state.
// An empty instanceID gets a generated one.
func (s *InstanceService) Start(ctx context.Context, definitionID, instanceID string) (*stateflow.WorkflowInstance, error) {
	wf, err := s.definitions.Get(ctx, definitionID)
	if err != nil {
		return nil, definitionNotFound(err, definitionID)
	}
	if !wf.IsActive {
		return nil, stateflow.NotFoundf("workflow %s not found", definitionID)
	}

	inst, err := s.engine.StartInstance(wf, instanceID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exists, err := s.instances.Exists(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, stateflow.Conflictf("instance with id %s already exists", inst.ID)
	}
	if err := s.instances.Save(ctx, inst); err != nil {
		return nil, err
	}

	s.metrics.InstanceStarted(wf.ID)
	s.publish(engine.Event{
		Type:         engine.EventInstanceStarted,
		InstanceID:   inst.ID,
		DefinitionID: wf.ID,
		ToState:      inst.CurrentState,
		Timestamp:    inst.CreatedAt,
	})
	slog.Info("instance started", "instance", inst.ID, "workflow", wf.ID, "state", inst.CurrentState)
	return inst, nil
}

// Get returns an instance by id.
func (s *InstanceService) Get(ctx context.Context, id string) (*stateflow.WorkflowInstance, error) {
	inst, err := s.instances.Get(ctx, id)
	if err != nil {
		return nil, instanceNotFound(err, id)
	}
	return inst, nil
}

// List returns every instance.
func (s *InstanceService) List(ctx context.Context) ([]*stateflow.WorkflowInstance, error) {
	return s.instances.List(ctx)
}

// ListByDefinition returns the instances started from definitionID.
func (s *InstanceService) ListByDefinition(ctx context.Context, definitionID string) ([]*stateflow.WorkflowInstance, error) {
	return s.instances.ListByDefinition(ctx, definitionID)
}

// ExecuteTransition validates and applies transitionID to the instance and
// persists the result. On any error the stored instance is unchanged.
func (s *InstanceService) ExecuteTransition(ctx context.Context, instanceID, transitionID string) (*TransitionResult, error) {
	unlock, err := s.locks.Lock(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	inst, err := s.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	// Inactive definitions still drive their existing instances.
	wf, err := s.definitions.Get(ctx, inst.WorkflowDefinitionID)
	if err != nil {
		return nil, definitionNotFound(err, inst.WorkflowDefinitionID)
	}

	next, err := s.engine.Execute(wf, inst, transitionID)
	if err != nil {
		s.metrics.TransitionExecuted(wf.ID, false)
		slog.Debug("transition rejected", "instance", instanceID, "transition", transitionID, "err", err)
		return nil, err
	}
	if err := s.instances.Save(ctx, next); err != nil {
		return nil, err
	}

	result := &TransitionResult{Instance: next, PreviousState: inst.CurrentState}
	entry, _ := next.LastEntry()
	s.metrics.TransitionExecuted(wf.ID, true)
	s.publish(engine.Event{
		Type:           engine.EventInstanceTransitioned,
		InstanceID:     next.ID,
		DefinitionID:   wf.ID,
		TransitionID:   entry.TransitionID,
		TransitionName: entry.TransitionName,
		FromState:      entry.FromState,
		ToState:        entry.ToState,
		Timestamp:      entry.Timestamp,
	})
	if next.IsCompleted && !inst.IsCompleted {
		s.metrics.InstanceCompleted(wf.ID)
		s.publish(engine.Event{
			Type:         engine.EventInstanceCompleted,
			InstanceID:   next.ID,
			DefinitionID: wf.ID,
			ToState:      next.CurrentState,
			Timestamp:    entry.Timestamp,
		})
	}
	slog.Info("transition executed",
		"instance", next.ID, "transition", transitionID,
		"from", result.PreviousState, "to", next.CurrentState, "completed", next.IsCompleted)
	return result, nil
}

// AvailableTransitions lists the transitions the instance can take now.
func (s *InstanceService) AvailableTransitions(ctx context.Context, instanceID string) ([]stateflow.Transition, error) {
	inst, err := s.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	wf, err := s.definitions.Get(ctx, inst.WorkflowDefinitionID)
	if err != nil {
		return nil, definitionNotFound(err, inst.WorkflowDefinitionID)
	}
	out := s.engine.AvailableTransitions(wf, inst)
	if out == nil {
		out = []stateflow.Transition{}
	}
	return out, nil
}

// queryEnv is the variable set visible to Query expressions.
type queryEnv struct {
	ID           string `expr:"id"`
	DefinitionID string `expr:"definition_id"`
	CurrentState string `expr:"current_state"`
	IsCompleted  bool   `expr:"is_completed"`
	HistoryLen   int    `expr:"history_len"`
}

// Query returns the instances matching a boolean expr-lang expression, for
// example `definition_id == "order" && !is_completed`. An empty expression
// matches everything.
func (s *InstanceService) Query(ctx context.Context, expression string) ([]*stateflow.WorkflowInstance, error) {
	if expression == "" {
		return s.List(ctx)
	}
	program, err := expr.Compile(expression, expr.Env(queryEnv{}), expr.AsBool())
	if err != nil {
		return nil, stateflow.Invalid("query-expression", "invalid filter expression %q: %v", expression, err)
	}

	all, err := s.instances.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*stateflow.WorkflowInstance, 0, len(all))
	for _, inst := range all {
		res, err := expr.Run(program, queryEnv{
			ID:           inst.ID,
			DefinitionID: inst.WorkflowDefinitionID,
			CurrentState: inst.CurrentState,
			IsCompleted:  inst.IsCompleted,
			HistoryLen:   len(inst.History),
		})
		if err != nil {
			return nil, stateflow.Invalid("query-expression", "evaluate filter %q: %v", expression, err)
		}
		if match, _ := res.(bool); match {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (s *InstanceService) publish(e engine.Event) {
	if s.events != nil {
		s.events.Publish(e)
	}
}
