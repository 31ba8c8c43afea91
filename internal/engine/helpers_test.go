package engine

import (
	"fmt"
	"time"

	"github.com/soochol/stateflow/internal/stateflow"
)

// orderWorkflow is new -> shipped -> done.
func orderWorkflow() *stateflow.WorkflowDefinition {
	return &stateflow.WorkflowDefinition{
		ID:   "order",
		Name: "Order",
		States: []stateflow.State{
			{ID: "new", Name: "New", IsInitial: true, Enabled: true},
			{ID: "shipped", Name: "Shipped", Enabled: true},
			{ID: "done", Name: "Done", IsFinal: true, Enabled: true},
		},
		Transitions: []stateflow.Transition{
			{ID: "ship", Name: "Ship", Enabled: true, FromStates: []string{"new"}, ToState: "shipped"},
			{ID: "close", Name: "Close", Enabled: true, FromStates: []string{"shipped"}, ToState: "done"},
		},
		Version:  1,
		IsActive: true,
	}
}

// fixedEngine returns an engine with a stepping clock and sequential ids.
func fixedEngine(opts ...Option) *Engine {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	seq := 0
	opts = append([]Option{
		WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	}, opts...)
	return New(opts...)
}
