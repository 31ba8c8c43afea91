package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/soochol/stateflow/internal/repository"
	"github.com/soochol/stateflow/internal/stateflow"
)

// DefinitionStore is a repository.DefinitionRepository backed by Redis.
type DefinitionStore struct {
	s *Store
}

// Save inserts or replaces a definition.
func (d *DefinitionStore) Save(ctx context.Context, wf *stateflow.WorkflowDefinition) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("stateflow/redis: marshal definition: %w", err)
	}

	pipe := d.s.client.TxPipeline()
	pipe.HSet(ctx, definitionKey(wf.ID),
		"data", string(data),
		"is_active", boolField(wf.IsActive),
	)
	pipe.SAdd(ctx, definitionIDsKey, wf.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stateflow/redis: save definition: %w", err)
	}
	return nil
}

// Get retrieves a definition by ID regardless of its active flag.
func (d *DefinitionStore) Get(ctx context.Context, id string) (*stateflow.WorkflowDefinition, error) {
	data, err := d.s.client.HGet(ctx, definitionKey(id), "data").Result()
	if isNil(err) {
		return nil, fmt.Errorf("%w: definition %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("stateflow/redis: get definition: %w", err)
	}
	var wf stateflow.WorkflowDefinition
	if err := json.Unmarshal([]byte(data), &wf); err != nil {
		return nil, fmt.Errorf("stateflow/redis: decode definition %s: %w", id, err)
	}
	return &wf, nil
}

// Exists reports whether an active definition with id is stored.
func (d *DefinitionStore) Exists(ctx context.Context, id string) (bool, error) {
	active, err := d.s.client.HGet(ctx, definitionKey(id), "is_active").Result()
	if isNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stateflow/redis: definition exists: %w", err)
	}
	return active == "1", nil
}

// List returns active definitions ordered by id.
func (d *DefinitionStore) List(ctx context.Context) ([]*stateflow.WorkflowDefinition, error) {
	ids, err := d.s.client.SMembers(ctx, definitionIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("stateflow/redis: list definitions smembers: %w", err)
	}
	sort.Strings(ids)

	out := make([]*stateflow.WorkflowDefinition, 0, len(ids))
	for _, id := range ids {
		wf, getErr := d.Get(ctx, id)
		if errors.Is(getErr, repository.ErrNotFound) {
			d.s.logger.Warn("skipping dangling definition id", "id", id)
			continue
		}
		if getErr != nil {
			return nil, getErr
		}
		if wf.IsActive {
			out = append(out, wf)
		}
	}
	return out, nil
}
