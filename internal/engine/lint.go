package engine

import (
	"fmt"

	"github.com/soochol/stateflow/internal/stateflow"
)

// Lint reports modelling smells in a definition that validation accepts:
// transitions leaving final states, states no path reaches, and non-final
// states with no way out. It assumes wf already passed ValidateDefinition.
func Lint(wf *stateflow.WorkflowDefinition) []string {
	idx := wf.Index()
	var warnings []string

	outgoing := make(map[string]int)
	for _, t := range wf.Transitions {
		for _, from := range t.FromStates {
			outgoing[from]++
			if s, ok := idx.State(from); ok && s.IsFinal {
				warnings = append(warnings, fmt.Sprintf("transition %s starts from final state %s and can never fire", t.ID, from))
			}
		}
	}

	reached := reachable(wf)
	for _, s := range wf.States {
		if !reached[s.ID] {
			warnings = append(warnings, fmt.Sprintf("state %s is unreachable from the initial state", s.ID))
		}
		if !s.IsFinal && outgoing[s.ID] == 0 {
			warnings = append(warnings, fmt.Sprintf("state %s is not final but has no outgoing transitions", s.ID))
		}
	}
	return warnings
}

// reachable walks enabled transitions breadth-first from the initial state.
func reachable(wf *stateflow.WorkflowDefinition) map[string]bool {
	seen := make(map[string]bool)
	var queue []string
	for _, s := range wf.Index().InitialStates() {
		seen[s.ID] = true
		queue = append(queue, s.ID)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, t := range wf.Transitions {
			if !t.Enabled || !t.HasFromState(cur) || seen[t.ToState] {
				continue
			}
			seen[t.ToState] = true
			queue = append(queue, t.ToState)
		}
	}
	return seen
}
