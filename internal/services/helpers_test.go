package services

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/soochol/stateflow/internal/engine"
	"github.com/soochol/stateflow/internal/repository"
	"github.com/soochol/stateflow/internal/stateflow"
)

func orderDefinition() *stateflow.WorkflowDefinition {
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
	}
}

// loopDefinition has a single self-transition so it can be executed any
// number of times.
func loopDefinition() *stateflow.WorkflowDefinition {
	return &stateflow.WorkflowDefinition{
		ID:   "loop",
		Name: "Loop",
		States: []stateflow.State{
			{ID: "spin", Name: "Spin", IsInitial: true, Enabled: true},
		},
		Transitions: []stateflow.Transition{
			{ID: "again", Name: "Again", Enabled: true, FromStates: []string{"spin"}, ToState: "spin"},
		},
	}
}

type fixture struct {
	defs      *repository.MemoryRepository
	insts     *repository.MemoryInstanceRepository
	bus       *engine.EventBus
	workflows *WorkflowService
	instances *InstanceService
}

func newFixture() *fixture {
	var tick, seq atomic.Int64
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng := engine.New(
		engine.WithClock(func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }),
		engine.WithIDGenerator(func() string { return fmt.Sprintf("gen-%d", seq.Add(1)) }),
	)
	f := &fixture{
		defs:  repository.NewMemory(),
		insts: repository.NewMemoryInstanceRepository(),
		bus:   engine.NewEventBus(),
	}
	f.workflows = NewWorkflowService(f.defs, eng, nil)
	f.instances = NewInstanceService(f.defs, f.insts, eng, f.bus, nil)
	return f
}
