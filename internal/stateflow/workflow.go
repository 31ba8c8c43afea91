// Package stateflow holds the domain model shared by every layer: workflow
// definitions (states and transitions), running instances, their history,
// and the error taxonomy.
package stateflow

import (
	"encoding/json"
	"time"
)

// State is a node in a workflow graph.
type State struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	IsInitial   bool   `json:"is_initial" yaml:"is_initial"`
	IsFinal     bool   `json:"is_final" yaml:"is_final"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Transition is a directed edge with one or more source states and a single
// target state.
type Transition struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	FromStates  []string `json:"from_states" yaml:"from_states"`
	ToState     string   `json:"to_state" yaml:"to_state"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// WorkflowDefinition is the static description of a workflow.
type WorkflowDefinition struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	States      []State      `json:"states" yaml:"states"`
	Transitions []Transition `json:"transitions" yaml:"transitions"`
	Version     int          `json:"version" yaml:"version"`
	IsActive    bool         `json:"is_active" yaml:"is_active"`
	CreatedAt   time.Time    `json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at" yaml:"updated_at,omitempty"`
}

// UnmarshalJSON decodes a state, defaulting Enabled to true when the
// document omits it. Transitions follow the same rule.
func (s *State) UnmarshalJSON(data []byte) error {
	type plain State
	p := plain{Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = State(p)
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (s *State) UnmarshalYAML(unmarshal func(any) error) error {
	type plain State
	p := plain{Enabled: true}
	if err := unmarshal(&p); err != nil {
		return err
	}
	*s = State(p)
	return nil
}

// UnmarshalJSON decodes a transition with Enabled defaulting to true.
func (t *Transition) UnmarshalJSON(data []byte) error {
	type plain Transition
	p := plain{Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Transition(p)
	return nil
}

// UnmarshalYAML decodes a transition with Enabled defaulting to true.
func (t *Transition) UnmarshalYAML(unmarshal func(any) error) error {
	type plain Transition
	p := plain{Enabled: true}
	if err := unmarshal(&p); err != nil {
		return err
	}
	*t = Transition(p)
	return nil
}

// Clone returns a deep copy of the definition.
func (d *WorkflowDefinition) Clone() *WorkflowDefinition {
	if d == nil {
		return nil
	}
	c := *d
	c.States = append([]State(nil), d.States...)
	c.Transitions = make([]Transition, len(d.Transitions))
	for i, t := range d.Transitions {
		t.FromStates = append([]string(nil), t.FromStates...)
		c.Transitions[i] = t
	}
	return &c
}

// DefinitionIndex gives O(1) access to a definition's states and transitions
// by id. When ids are duplicated the first occurrence wins.
type DefinitionIndex struct {
	states      map[string]*State
	transitions map[string]*Transition
	initial     []*State
}

// Index builds a lookup index over the definition. The index points into the
// definition's slices and must not outlive modifications to them.
func (d *WorkflowDefinition) Index() *DefinitionIndex {
	idx := &DefinitionIndex{
		states:      make(map[string]*State, len(d.States)),
		transitions: make(map[string]*Transition, len(d.Transitions)),
	}
	for i := range d.States {
		s := &d.States[i]
		if _, dup := idx.states[s.ID]; !dup {
			idx.states[s.ID] = s
		}
		if s.IsInitial {
			idx.initial = append(idx.initial, s)
		}
	}
	for i := range d.Transitions {
		t := &d.Transitions[i]
		if _, dup := idx.transitions[t.ID]; !dup {
			idx.transitions[t.ID] = t
		}
	}
	return idx
}

// State returns the state with the given id.
func (x *DefinitionIndex) State(id string) (*State, bool) {
	s, ok := x.states[id]
	return s, ok
}

// Transition returns the transition with the given id.
func (x *DefinitionIndex) Transition(id string) (*Transition, bool) {
	t, ok := x.transitions[id]
	return t, ok
}

// InitialStates returns every state flagged as initial, in definition order.
func (x *DefinitionIndex) InitialStates() []*State {
	return x.initial
}

// HasFromState reports whether id is one of the transition's source states.
func (t *Transition) HasFromState(id string) bool {
	for _, s := range t.FromStates {
		if s == id {
			return true
		}
	}
	return false
}
