package engine

import (
	"strings"

	"github.com/soochol/stateflow/internal/stateflow"
)

// ExecutionContext is what an execution rule inspects.
type ExecutionContext struct {
	Definition *stateflow.WorkflowDefinition
	Index      *stateflow.DefinitionIndex
	Instance   *stateflow.WorkflowInstance
	// Transition is resolved by the first rule and nil before it runs.
	Transition *stateflow.Transition
}

// ExecutionRule is one named check on whether a transition may fire.
type ExecutionRule struct {
	Name  string
	Check func(ec *ExecutionContext, transitionID string) error
}

// ExecutionRules are applied in order by ValidateExecution. The final-state
// rule runs ahead of the source-state rule so a completed instance always
// reports "cannot transition from a final state".
var ExecutionRules = []ExecutionRule{
	{"transition-exists", checkTransitionExists},
	{"transition-enabled", checkTransitionEnabled},
	{"not-final", checkNotFinal},
	{"from-current-state", checkFromCurrentState},
	{"target-available", checkTargetAvailable},
}

// ValidateExecution reports whether transitionID may fire from the
// instance's current state.
func ValidateExecution(wf *stateflow.WorkflowDefinition, inst *stateflow.WorkflowInstance, transitionID string) error {
	_, err := resolveExecution(wf, inst, transitionID)
	return err
}

func resolveExecution(wf *stateflow.WorkflowDefinition, inst *stateflow.WorkflowInstance, transitionID string) (*ExecutionContext, error) {
	ec := &ExecutionContext{Definition: wf, Index: wf.Index(), Instance: inst}
	for _, r := range ExecutionRules {
		if err := r.Check(ec, transitionID); err != nil {
			return nil, err
		}
	}
	return ec, nil
}

func checkTransitionExists(ec *ExecutionContext, transitionID string) error {
	t, ok := ec.Index.Transition(transitionID)
	if !ok {
		return stateflow.Invalid("transition-exists", "transition not found: %s is not defined in workflow %s", transitionID, ec.Definition.ID)
	}
	ec.Transition = t
	return nil
}

func checkTransitionEnabled(ec *ExecutionContext, transitionID string) error {
	if !ec.Transition.Enabled {
		return stateflow.Invalid("transition-enabled", "transition disabled: %s", transitionID)
	}
	return nil
}

func checkFromCurrentState(ec *ExecutionContext, transitionID string) error {
	if !ec.Transition.HasFromState(ec.Instance.CurrentState) {
		return stateflow.Invalid("from-current-state",
			"illegal transition from current state: %s cannot be executed from %s, valid states: %s",
			transitionID, ec.Instance.CurrentState, strings.Join(ec.Transition.FromStates, ", "))
	}
	return nil
}

// checkNotFinal also covers completed instances whose state stopped being
// final after a definition update: completion is one-way.
func checkNotFinal(ec *ExecutionContext, _ string) error {
	if ec.Instance.IsCompleted {
		return stateflow.Invalid("not-final", "cannot transition from a final state: instance %s completed in %s", ec.Instance.ID, ec.Instance.CurrentState)
	}
	if s, ok := ec.Index.State(ec.Instance.CurrentState); ok && s.IsFinal {
		return stateflow.Invalid("not-final", "cannot transition from a final state: %s", s.ID)
	}
	return nil
}

func checkTargetAvailable(ec *ExecutionContext, _ string) error {
	target, ok := ec.Index.State(ec.Transition.ToState)
	if !ok {
		return stateflow.Invalid("target-available", "target state not found: %s", ec.Transition.ToState)
	}
	if !target.Enabled {
		return stateflow.Invalid("target-available", "target state disabled: %s", target.ID)
	}
	return nil
}
