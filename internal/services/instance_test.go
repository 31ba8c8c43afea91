package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/soochol/stateflow/internal/engine"
	"github.com/soochol/stateflow/internal/stateflow"
)

func TestInstanceService_OrderScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.workflows.Create(ctx, orderDefinition()); err != nil {
		t.Fatal(err)
	}

	var events []engine.Event
	f.bus.Subscribe(func(e engine.Event) { events = append(events, e) })

	inst, err := f.instances.Start(ctx, "order", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if inst.CurrentState != "new" || inst.ID == "" {
		t.Fatalf("started instance: %+v", inst)
	}

	avail, err := f.instances.AvailableTransitions(ctx, inst.ID)
	if err != nil || len(avail) != 1 || avail[0].ID != "ship" {
		t.Fatalf("available from new: %+v err=%v", avail, err)
	}

	res, err := f.instances.ExecuteTransition(ctx, inst.ID, "ship")
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if res.PreviousState != "new" || res.Instance.CurrentState != "shipped" {
		t.Errorf("ship result: previous=%q current=%q", res.PreviousState, res.Instance.CurrentState)
	}

	res, err = f.instances.ExecuteTransition(ctx, inst.ID, "close")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !res.Instance.IsCompleted || res.Instance.CompletedAt == nil {
		t.Fatal("instance should be completed")
	}
	if !res.ExecutedAt().Equal(*res.Instance.CompletedAt) {
		t.Errorf("executedAt %v != completedAt %v", res.ExecutedAt(), res.Instance.CompletedAt)
	}

	_, err = f.instances.ExecuteTransition(ctx, inst.ID, "ship")
	if !errors.Is(err, stateflow.ErrValidation) {
		t.Fatalf("transition after completion: expected ErrValidation, got %v", err)
	}

	stored, _ := f.instances.Get(ctx, inst.ID)
	if len(stored.History) != 2 || stored.CurrentState != "done" {
		t.Errorf("stored instance: state=%q history=%d", stored.CurrentState, len(stored.History))
	}

	avail, _ = f.instances.AvailableTransitions(ctx, inst.ID)
	if avail == nil || len(avail) != 0 {
		t.Errorf("completed instance should have an empty, non-nil list: %v", avail)
	}

	var types []engine.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	want := []engine.EventType{
		engine.EventInstanceStarted,
		engine.EventInstanceTransitioned,
		engine.EventInstanceTransitioned,
		engine.EventInstanceCompleted,
	}
	if len(types) != len(want) {
		t.Fatalf("events: got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, types[i], want[i])
		}
	}
}

func TestInstanceService_StartErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.instances.Start(ctx, "order", ""); !errors.Is(err, stateflow.ErrNotFound) {
		t.Fatalf("missing definition: expected ErrNotFound, got %v", err)
	}

	_, _ = f.workflows.Create(ctx, orderDefinition())
	if _, err := f.instances.Start(ctx, "order", "o1"); err != nil {
		t.Fatalf("Start o1: %v", err)
	}
	if _, err := f.instances.Start(ctx, "order", "o1"); !errors.Is(err, stateflow.ErrConflict) {
		t.Fatalf("duplicate id: expected ErrConflict, got %v", err)
	}

	// A definition saved directly without an initial state.
	broken := orderDefinition()
	broken.ID = "broken"
	broken.IsActive = true
	broken.States[0].IsInitial = false
	_ = f.defs.Save(ctx, broken)
	if _, err := f.instances.Start(ctx, "broken", ""); !errors.Is(err, stateflow.ErrWorkflow) {
		t.Fatalf("no initial state: expected ErrWorkflow, got %v", err)
	}
}

func TestInstanceService_InactiveDefinition(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.workflows.Create(ctx, orderDefinition())
	inst, _ := f.instances.Start(ctx, "order", "o1")

	if err := f.workflows.Deactivate(ctx, "order"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.instances.Start(ctx, "order", ""); !errors.Is(err, stateflow.ErrNotFound) {
		t.Errorf("start on inactive: expected ErrNotFound, got %v", err)
	}
	if _, err := f.instances.ExecuteTransition(ctx, inst.ID, "ship"); err != nil {
		t.Errorf("existing instance should keep running: %v", err)
	}
}

func TestInstanceService_ExecuteErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.workflows.Create(ctx, orderDefinition())
	inst, _ := f.instances.Start(ctx, "order", "o1")

	if _, err := f.instances.ExecuteTransition(ctx, "nope", "ship"); !errors.Is(err, stateflow.ErrNotFound) {
		t.Errorf("missing instance: expected ErrNotFound, got %v", err)
	}

	_, err := f.instances.ExecuteTransition(ctx, inst.ID, "close")
	var ve *stateflow.ValidationError
	if !errors.As(err, &ve) || ve.Rule != "from-current-state" {
		t.Fatalf("close from new: got %v", err)
	}

	stored, _ := f.instances.Get(ctx, inst.ID)
	if stored.CurrentState != "new" || len(stored.History) != 0 {
		t.Errorf("rejected transition changed the stored instance: %+v", stored)
	}
}

func TestInstanceService_ConcurrentTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.workflows.Create(ctx, loopDefinition())
	inst, _ := f.instances.Start(ctx, "loop", "l1")

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.instances.ExecuteTransition(ctx, inst.ID, "again"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	stored, _ := f.instances.Get(ctx, inst.ID)
	if len(stored.History) != n {
		t.Errorf("expected %d history entries, got %d", n, len(stored.History))
	}
}

func TestInstanceService_ListAndQuery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.workflows.Create(ctx, orderDefinition())
	_, _ = f.workflows.Create(ctx, loopDefinition())

	_, _ = f.instances.Start(ctx, "order", "o1")
	_, _ = f.instances.Start(ctx, "order", "o2")
	_, _ = f.instances.Start(ctx, "loop", "l1")
	_, _ = f.instances.ExecuteTransition(ctx, "o1", "ship")
	_, _ = f.instances.ExecuteTransition(ctx, "o1", "close")

	all, _ := f.instances.List(ctx)
	if len(all) != 3 {
		t.Fatalf("List: expected 3, got %d", len(all))
	}
	byDef, _ := f.instances.ListByDefinition(ctx, "order")
	if len(byDef) != 2 {
		t.Errorf("ListByDefinition: expected 2, got %d", len(byDef))
	}

	tests := []struct {
		expr string
		want []string
	}{
		{"", []string{"l1", "o1", "o2"}},
		{`definition_id == "order" && !is_completed`, []string{"o2"}},
		{"is_completed", []string{"o1"}},
		{"history_len >= 2", []string{"o1"}},
		{`current_state in ["new", "spin"]`, []string{"l1", "o2"}},
		{`id startsWith "o"`, []string{"o1", "o2"}},
	}
	for _, tt := range tests {
		got, err := f.instances.Query(ctx, tt.expr)
		if err != nil {
			t.Errorf("Query(%q): %v", tt.expr, err)
			continue
		}
		var ids []string
		for _, inst := range got {
			ids = append(ids, inst.ID)
		}
		if len(ids) != len(tt.want) {
			t.Errorf("Query(%q): got %v, want %v", tt.expr, ids, tt.want)
			continue
		}
		for i := range ids {
			if ids[i] != tt.want[i] {
				t.Errorf("Query(%q): got %v, want %v", tt.expr, ids, tt.want)
				break
			}
		}
	}

	for _, bad := range []string{"current_state ==", "unknown_field == 1", `current_state + 1`} {
		if _, err := f.instances.Query(ctx, bad); !errors.Is(err, stateflow.ErrValidation) {
			t.Errorf("Query(%q): expected ErrValidation, got %v", bad, err)
		}
	}
}
