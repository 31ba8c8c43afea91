package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/soochol/stateflow/internal/db"
	"github.com/soochol/stateflow/internal/repository"
	"github.com/soochol/stateflow/internal/stateflow"
)

var errFake = errors.New("fake db error")

// stubDB is a fake DB that records saves and returns canned data.
type stubDB struct {
	definitions []*stateflow.WorkflowDefinition
	instances   []*stateflow.WorkflowInstance
	saveErr     error
	getErr      error
	listErr     error
}

func (s *stubDB) SaveDefinition(_ context.Context, wf *stateflow.WorkflowDefinition) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.definitions = append(s.definitions, wf)
	return nil
}
func (s *stubDB) GetDefinition(_ context.Context, id string) (*stateflow.WorkflowDefinition, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, wf := range s.definitions {
		if wf.ID == id {
			return wf, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, db.ErrNoRows)
}
func (s *stubDB) DefinitionExists(_ context.Context, id string) (bool, error) {
	for _, wf := range s.definitions {
		if wf.ID == id && wf.IsActive {
			return true, nil
		}
	}
	return false, nil
}
func (s *stubDB) ListDefinitions(_ context.Context) ([]*stateflow.WorkflowDefinition, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.definitions, nil
}
func (s *stubDB) SaveInstance(_ context.Context, inst *stateflow.WorkflowInstance) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.instances = append(s.instances, inst)
	return nil
}
func (s *stubDB) GetInstance(_ context.Context, id string) (*stateflow.WorkflowInstance, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, inst := range s.instances {
		if inst.ID == id {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, db.ErrNoRows)
}
func (s *stubDB) InstanceExists(_ context.Context, id string) (bool, error) {
	_, err := s.GetInstance(context.Background(), id)
	return err == nil, nil
}
func (s *stubDB) ListInstances(_ context.Context) ([]*stateflow.WorkflowInstance, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.instances, nil
}
func (s *stubDB) ListInstancesByDefinition(_ context.Context, definitionID string) ([]*stateflow.WorkflowInstance, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*stateflow.WorkflowInstance
	for _, inst := range s.instances {
		if inst.WorkflowDefinitionID == definitionID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func newDefinition(id string) *stateflow.WorkflowDefinition {
	return &stateflow.WorkflowDefinition{
		ID:        id,
		Name:      "Workflow " + id,
		States:    []stateflow.State{{ID: "new", Name: "New", IsInitial: true, IsFinal: true, Enabled: true}},
		Version:   1,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestPersistentRepository_SaveAndGet(t *testing.T) {
	mem := repository.NewMemory()
	stub := &stubDB{}
	repo := repository.NewPersistent(mem, stub)

	if err := repo.Save(context.Background(), newDefinition("wf-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(stub.definitions) != 1 {
		t.Errorf("expected 1 definition in DB stub, got %d", len(stub.definitions))
	}
	if _, err := mem.Get(context.Background(), "wf-1"); err != nil {
		t.Errorf("definition should be cached in memory: %v", err)
	}
}

func TestPersistentRepository_SaveFailureLeavesMemoryUntouched(t *testing.T) {
	mem := repository.NewMemory()
	repo := repository.NewPersistent(mem, &stubDB{saveErr: errFake})

	err := repo.Save(context.Background(), newDefinition("wf-1"))
	if !errors.Is(err, errFake) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if _, err := mem.Get(context.Background(), "wf-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("memory should not hold a definition the DB rejected: %v", err)
	}
}

func TestPersistentRepository_GetFallsBackToDb(t *testing.T) {
	mem := repository.NewMemory()
	stub := &stubDB{definitions: []*stateflow.WorkflowDefinition{newDefinition("wf-db")}}
	repo := repository.NewPersistent(mem, stub)

	got, err := repo.Get(context.Background(), "wf-db")
	if err != nil {
		t.Fatalf("Get fallback failed: %v", err)
	}
	if got.ID != "wf-db" {
		t.Errorf("expected wf-db, got %s", got.ID)
	}

	_, err = repo.Get(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing everywhere: expected ErrNotFound, got %v", err)
	}
}

func TestPersistentRepository_ListFallsBackToMemory(t *testing.T) {
	mem := repository.NewMemory()
	_ = mem.Save(context.Background(), newDefinition("wf-mem"))
	repo := repository.NewPersistent(mem, &stubDB{listErr: errFake})

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List memory fallback failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "wf-mem" {
		t.Errorf("expected memory fallback with wf-mem, got %d entries", len(list))
	}
}

func TestPersistentInstanceRepository_SaveAndListByDefinition(t *testing.T) {
	mem := repository.NewMemoryInstanceRepository()
	stub := &stubDB{}
	repo := repository.NewPersistentInstanceRepository(mem, stub)
	ctx := context.Background()

	for _, id := range []string{"i1", "i2"} {
		inst := &stateflow.WorkflowInstance{ID: id, WorkflowDefinitionID: "order", CurrentState: "new"}
		if err := repo.Save(ctx, inst); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	list, err := repo.ListByDefinition(ctx, "order")
	if err != nil {
		t.Fatalf("ListByDefinition: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 instances, got %d", len(list))
	}

	ok, err := repo.Exists(ctx, "i2")
	if err != nil || !ok {
		t.Errorf("Exists i2: ok=%v err=%v", ok, err)
	}
}

func TestPersistentInstanceRepository_SaveFailure(t *testing.T) {
	mem := repository.NewMemoryInstanceRepository()
	repo := repository.NewPersistentInstanceRepository(mem, &stubDB{saveErr: errFake})

	inst := &stateflow.WorkflowInstance{ID: "i1", WorkflowDefinitionID: "order", CurrentState: "new"}
	if err := repo.Save(context.Background(), inst); !errors.Is(err, errFake) {
		t.Fatalf("expected db error, got %v", err)
	}
	if ok, _ := mem.Exists(context.Background(), "i1"); ok {
		t.Error("memory should not hold an instance the DB rejected")
	}
}

func TestPersistentRepository_GetSurfacesDbFailure(t *testing.T) {
	repo := repository.NewPersistent(repository.NewMemory(), &stubDB{getErr: errFake})

	_, err := repo.Get(context.Background(), "wf-1")
	if !errors.Is(err, errFake) {
		t.Fatalf("expected db error, got %v", err)
	}
	if errors.Is(err, repository.ErrNotFound) {
		t.Error("db failure must not be reported as not found")
	}
}

func TestPersistentInstanceRepository_GetSurfacesDbFailure(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPersistentInstanceRepository(repository.NewMemoryInstanceRepository(), &stubDB{getErr: errFake})

	_, err := repo.Get(ctx, "o1")
	if !errors.Is(err, errFake) {
		t.Fatalf("expected db error, got %v", err)
	}
	if errors.Is(err, repository.ErrNotFound) {
		t.Error("db failure must not be reported as not found")
	}

	missing := repository.NewPersistentInstanceRepository(repository.NewMemoryInstanceRepository(), &stubDB{})
	if _, err := missing.Get(ctx, "o1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing row: expected ErrNotFound, got %v", err)
	}
}
