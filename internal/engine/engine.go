// Package engine validates workflow definitions and drives instances through
// their transitions.
package engine

import (
	"time"

	"github.com/soochol/stateflow/internal/stateflow"
)

// Engine seeds instances and applies transitions. It holds no state of its
// own beyond its clock, id generator and rule set, and is safe for
// concurrent use.
type Engine struct {
	now      func() time.Time
	newID    func() string
	defRules []DefinitionRule
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the generator for instance and history entry ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithStrictFinalStates makes definition validation reject transitions that
// list a final state among their sources.
func WithStrictFinalStates() Option {
	return func(e *Engine) {
		e.defRules = append(append([]DefinitionRule(nil), DefinitionRules...), finalSourceRule)
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:      func() time.Time { return time.Now().UTC() },
		newID:    stateflow.NewID,
		defRules: DefinitionRules,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.now() }

// ValidateDefinition applies the engine's definition rules.
func (e *Engine) ValidateDefinition(wf *stateflow.WorkflowDefinition) error {
	return validateDefinition(wf, e.defRules)
}

// StartInstance builds a new instance of wf seeded in its initial state.
// An empty instanceID gets a generated one. Id collisions are the caller's
// concern.
func (e *Engine) StartInstance(wf *stateflow.WorkflowDefinition, instanceID string) (*stateflow.WorkflowInstance, error) {
	initial := wf.Index().InitialStates()
	switch len(initial) {
	case 0:
		return nil, stateflow.Workflowf("no initial state found in workflow %s", wf.ID)
	case 1:
	default:
		return nil, stateflow.Workflowf("workflow %s has %d initial states", wf.ID, len(initial))
	}

	if instanceID == "" {
		instanceID = e.newID()
	}
	now := e.now()
	return &stateflow.WorkflowInstance{
		ID:                   instanceID,
		WorkflowDefinitionID: wf.ID,
		CurrentState:         initial[0].ID,
		History:              []stateflow.HistoryEntry{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// ApplyTransition returns a copy of inst advanced by transitionID. The caller
// must have validated the transition with ValidateExecution; inst itself is
// never modified.
func (e *Engine) ApplyTransition(wf *stateflow.WorkflowDefinition, inst *stateflow.WorkflowInstance, transitionID string) (*stateflow.WorkflowInstance, error) {
	idx := wf.Index()
	t, ok := idx.Transition(transitionID)
	if !ok {
		return nil, stateflow.Invalid("transition-exists", "transition not found: %s is not defined in workflow %s", transitionID, wf.ID)
	}
	target, ok := idx.State(t.ToState)
	if !ok {
		return nil, stateflow.Invalid("target-available", "target state not found: %s", t.ToState)
	}

	now := e.now()
	next := inst.Clone()
	previous := next.CurrentState
	next.CurrentState = t.ToState
	next.UpdatedAt = now
	next.History = append(next.History, stateflow.HistoryEntry{
		ID:                 e.newID(),
		WorkflowInstanceID: next.ID,
		TransitionID:       t.ID,
		TransitionName:     t.Name,
		FromState:          previous,
		ToState:            t.ToState,
		Timestamp:          now,
	})
	if target.IsFinal && !next.IsCompleted {
		next.IsCompleted = true
		next.CompletedAt = &now
	}
	return next, nil
}

// Execute validates and applies transitionID in one step.
func (e *Engine) Execute(wf *stateflow.WorkflowDefinition, inst *stateflow.WorkflowInstance, transitionID string) (*stateflow.WorkflowInstance, error) {
	if err := ValidateExecution(wf, inst, transitionID); err != nil {
		return nil, err
	}
	return e.ApplyTransition(wf, inst, transitionID)
}

// AvailableTransitions lists the transitions that would pass
// ValidateExecution for inst right now, in definition order.
func (e *Engine) AvailableTransitions(wf *stateflow.WorkflowDefinition, inst *stateflow.WorkflowInstance) []stateflow.Transition {
	var out []stateflow.Transition
	for _, t := range wf.Transitions {
		if ValidateExecution(wf, inst, t.ID) == nil {
			out = append(out, t)
		}
	}
	return out
}
