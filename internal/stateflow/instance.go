package stateflow

import "time"

// HistoryEntry is an immutable audit record of one executed transition.
// TransitionName is captured at execution time so later renames do not
// rewrite history.
type HistoryEntry struct {
	ID                 string    `json:"id"`
	WorkflowInstanceID string    `json:"workflow_instance_id"`
	TransitionID       string    `json:"transition_id"`
	TransitionName     string    `json:"transition_name"`
	FromState          string    `json:"from_state"`
	ToState            string    `json:"to_state"`
	Timestamp          time.Time `json:"timestamp"`
}

// WorkflowInstance is a single run of a definition, referenced by id.
type WorkflowInstance struct {
	ID                   string         `json:"id"`
	WorkflowDefinitionID string         `json:"workflow_definition_id"`
	CurrentState         string         `json:"current_state"`
	History              []HistoryEntry `json:"history"`
	IsCompleted          bool           `json:"is_completed"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the instance.
func (i *WorkflowInstance) Clone() *WorkflowInstance {
	if i == nil {
		return nil
	}
	c := *i
	c.History = append(make([]HistoryEntry, 0, len(i.History)), i.History...)
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// LastEntry returns the most recent history entry, if any.
func (i *WorkflowInstance) LastEntry() (HistoryEntry, bool) {
	if len(i.History) == 0 {
		return HistoryEntry{}, false
	}
	return i.History[len(i.History)-1], true
}
