package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/soochol/stateflow/internal/repository"
	"github.com/soochol/stateflow/internal/stateflow"
)

// InstanceStore is a repository.InstanceRepository backed by Redis.
type InstanceStore struct {
	s *Store
}

// Save inserts or replaces an instance. Concurrent saves of the same id are
// last-write-wins.
func (i *InstanceStore) Save(ctx context.Context, inst *stateflow.WorkflowInstance) error {
	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("stateflow/redis: marshal instance: %w", err)
	}

	pipe := i.s.client.TxPipeline()
	pipe.HSet(ctx, instanceKey(inst.ID),
		"data", string(data),
		"definition_id", inst.WorkflowDefinitionID,
		"current_state", inst.CurrentState,
		"is_completed", boolField(inst.IsCompleted),
	)
	pipe.SAdd(ctx, instanceIDsKey, inst.ID)
	pipe.SAdd(ctx, definitionInstancesKey(inst.WorkflowDefinitionID), inst.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stateflow/redis: save instance: %w", err)
	}
	return nil
}

// Get retrieves an instance by ID.
func (i *InstanceStore) Get(ctx context.Context, id string) (*stateflow.WorkflowInstance, error) {
	data, err := i.s.client.HGet(ctx, instanceKey(id), "data").Result()
	if isNil(err) {
		return nil, fmt.Errorf("%w: instance %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("stateflow/redis: get instance: %w", err)
	}
	var inst stateflow.WorkflowInstance
	if err := json.Unmarshal([]byte(data), &inst); err != nil {
		return nil, fmt.Errorf("stateflow/redis: decode instance %s: %w", id, err)
	}
	if inst.History == nil {
		inst.History = []stateflow.HistoryEntry{}
	}
	return &inst, nil
}

// Exists reports whether an instance with id is stored.
func (i *InstanceStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := i.s.client.Exists(ctx, instanceKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("stateflow/redis: instance exists: %w", err)
	}
	return n > 0, nil
}

// List returns every stored instance ordered by id.
func (i *InstanceStore) List(ctx context.Context) ([]*stateflow.WorkflowInstance, error) {
	return i.listSet(ctx, instanceIDsKey)
}

// ListByDefinition returns the instances started from definitionID.
func (i *InstanceStore) ListByDefinition(ctx context.Context, definitionID string) ([]*stateflow.WorkflowInstance, error) {
	return i.listSet(ctx, definitionInstancesKey(definitionID))
}

func (i *InstanceStore) listSet(ctx context.Context, key string) ([]*stateflow.WorkflowInstance, error) {
	ids, err := i.s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("stateflow/redis: list instances smembers: %w", err)
	}
	sort.Strings(ids)

	out := make([]*stateflow.WorkflowInstance, 0, len(ids))
	for _, id := range ids {
		inst, getErr := i.Get(ctx, id)
		if errors.Is(getErr, repository.ErrNotFound) {
			i.s.logger.Warn("skipping dangling instance id", "id", id)
			continue
		}
		if getErr != nil {
			return nil, getErr
		}
		out = append(out, inst)
	}
	return out, nil
}

func isNil(err error) bool { return errors.Is(err, goredis.Nil) }

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
