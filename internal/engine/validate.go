package engine

import (
	"strings"

	"github.com/soochol/stateflow/internal/stateflow"
)

// DefinitionRule is one named structural check over a definition.
type DefinitionRule struct {
	Name  string
	Check func(wf *stateflow.WorkflowDefinition) error
}

// DefinitionRules are applied in order by ValidateDefinition; the first
// failure is reported.
var DefinitionRules = []DefinitionRule{
	{"id-required", checkDefinitionID},
	{"name-required", checkDefinitionName},
	{"states-required", checkStatesPresent},
	{"unique-state-ids", checkUniqueStateIDs},
	{"single-initial-state", checkSingleInitialState},
	{"state-fields", checkStateFields},
	{"unique-transition-ids", checkUniqueTransitionIDs},
	{"transition-fields", checkTransitionFields},
	{"transition-target", checkTransitionTargets},
	{"transition-sources", checkTransitionSources},
	{"transition-has-source", checkTransitionHasSource},
}

// finalSourceRule is appended to DefinitionRules in strict mode.
var finalSourceRule = DefinitionRule{"no-transition-from-final", checkNoFinalSources}

// ValidateDefinition checks a definition against DefinitionRules and returns
// the first violation as a *stateflow.ValidationError.
func ValidateDefinition(wf *stateflow.WorkflowDefinition) error {
	return validateDefinition(wf, DefinitionRules)
}

func validateDefinition(wf *stateflow.WorkflowDefinition, rules []DefinitionRule) error {
	if wf == nil {
		return stateflow.Invalid("definition-required", "workflow definition is required")
	}
	for _, r := range rules {
		if err := r.Check(wf); err != nil {
			return err
		}
	}
	return nil
}

func checkDefinitionID(wf *stateflow.WorkflowDefinition) error {
	if wf.ID == "" {
		return stateflow.Invalid("id-required", "workflow id cannot be empty")
	}
	return nil
}

func checkDefinitionName(wf *stateflow.WorkflowDefinition) error {
	if wf.Name == "" {
		return stateflow.Invalid("name-required", "workflow name cannot be empty")
	}
	return nil
}

func checkStatesPresent(wf *stateflow.WorkflowDefinition) error {
	if len(wf.States) == 0 {
		return stateflow.Invalid("states-required", "workflow must have at least one state")
	}
	return nil
}

func checkUniqueStateIDs(wf *stateflow.WorkflowDefinition) error {
	ids := make([]string, len(wf.States))
	for i, s := range wf.States {
		ids[i] = s.ID
	}
	if dups := duplicates(ids); len(dups) > 0 {
		return stateflow.Invalid("unique-state-ids", "duplicate state ids found: %s", strings.Join(dups, ", "))
	}
	return nil
}

func checkSingleInitialState(wf *stateflow.WorkflowDefinition) error {
	n := 0
	for _, s := range wf.States {
		if s.IsInitial {
			n++
		}
	}
	switch {
	case n == 0:
		return stateflow.Invalid("single-initial-state", "no initial state: workflow must have exactly one initial state")
	case n > 1:
		return stateflow.Invalid("single-initial-state", "multiple initial states: workflow must have exactly one initial state, found %d", n)
	}
	return nil
}

func checkStateFields(wf *stateflow.WorkflowDefinition) error {
	for _, s := range wf.States {
		if s.ID == "" {
			return stateflow.Invalid("state-fields", "state id cannot be empty")
		}
		if s.Name == "" {
			return stateflow.Invalid("state-fields", "state name cannot be empty for state %s", s.ID)
		}
	}
	return nil
}

func checkUniqueTransitionIDs(wf *stateflow.WorkflowDefinition) error {
	ids := make([]string, len(wf.Transitions))
	for i, t := range wf.Transitions {
		ids[i] = t.ID
	}
	if dups := duplicates(ids); len(dups) > 0 {
		return stateflow.Invalid("unique-transition-ids", "duplicate transition ids found: %s", strings.Join(dups, ", "))
	}
	return nil
}

func checkTransitionFields(wf *stateflow.WorkflowDefinition) error {
	for _, t := range wf.Transitions {
		if t.ID == "" {
			return stateflow.Invalid("transition-fields", "transition id cannot be empty")
		}
		if t.Name == "" {
			return stateflow.Invalid("transition-fields", "transition name cannot be empty for transition %s", t.ID)
		}
	}
	return nil
}

func checkTransitionTargets(wf *stateflow.WorkflowDefinition) error {
	idx := wf.Index()
	for _, t := range wf.Transitions {
		if _, ok := idx.State(t.ToState); !ok {
			return stateflow.Invalid("transition-target", "transition %s references invalid target state: %q", t.ID, t.ToState)
		}
	}
	return nil
}

func checkTransitionSources(wf *stateflow.WorkflowDefinition) error {
	idx := wf.Index()
	for _, t := range wf.Transitions {
		for _, from := range t.FromStates {
			if _, ok := idx.State(from); !ok {
				return stateflow.Invalid("transition-sources", "transition %s references invalid source state: %q", t.ID, from)
			}
		}
	}
	return nil
}

func checkTransitionHasSource(wf *stateflow.WorkflowDefinition) error {
	for _, t := range wf.Transitions {
		if len(t.FromStates) == 0 {
			return stateflow.Invalid("transition-has-source", "transition %s must have at least one source state", t.ID)
		}
	}
	return nil
}

func checkNoFinalSources(wf *stateflow.WorkflowDefinition) error {
	idx := wf.Index()
	for _, t := range wf.Transitions {
		for _, from := range t.FromStates {
			if s, ok := idx.State(from); ok && s.IsFinal {
				return stateflow.Invalid("no-transition-from-final", "transition %s cannot start from final state %s", t.ID, from)
			}
		}
	}
	return nil
}

// duplicates returns each value that occurs more than once, in order of
// first repetition.
func duplicates(ids []string) []string {
	seen := make(map[string]int, len(ids))
	var out []string
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			out = append(out, id)
		}
	}
	return out
}
