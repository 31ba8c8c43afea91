package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/soochol/stateflow/internal/stateflow"
)

const instanceColumns = `id, definition_id, current_state, is_completed, completed_at, history, created_at, updated_at`

// SaveInstance upserts a workflow instance with its full history.
func (d *DB) SaveInstance(ctx context.Context, inst *stateflow.WorkflowInstance) error {
	history := inst.History
	if history == nil {
		history = []stateflow.HistoryEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO workflow_instances (`+instanceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET definition_id = EXCLUDED.definition_id,
		   current_state = EXCLUDED.current_state, is_completed = EXCLUDED.is_completed,
		   completed_at = EXCLUDED.completed_at, history = EXCLUDED.history, updated_at = EXCLUDED.updated_at`,
		inst.ID, inst.WorkflowDefinitionID, inst.CurrentState, inst.IsCompleted,
		inst.CompletedAt, historyJSON, inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert instance: %w", err)
	}
	return nil
}

// GetInstance retrieves an instance by id.
func (d *DB) GetInstance(ctx context.Context, id string) (*stateflow.WorkflowInstance, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM workflow_instances WHERE id = $1`, id)
	inst, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("instance %s: %w", id, ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return inst, nil
}

// InstanceExists reports whether an instance with id exists.
func (d *DB) InstanceExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := d.Pool.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM workflow_instances WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("instance exists: %w", err)
	}
	return exists, nil
}

// ListInstances returns all instances ordered by id.
func (d *DB) ListInstances(ctx context.Context) ([]*stateflow.WorkflowInstance, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+instanceColumns+` FROM workflow_instances ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()
	return scanInstances(rows)
}

// ListInstancesByDefinition returns the instances of one definition ordered by id.
func (d *DB) ListInstancesByDefinition(ctx context.Context, definitionID string) ([]*stateflow.WorkflowInstance, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+instanceColumns+` FROM workflow_instances WHERE definition_id = $1 ORDER BY id`,
		definitionID)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()
	return scanInstances(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(s scanner) (*stateflow.WorkflowInstance, error) {
	inst := &stateflow.WorkflowInstance{}
	var completedAt sql.NullTime
	var historyJSON []byte
	if err := s.Scan(&inst.ID, &inst.WorkflowDefinitionID, &inst.CurrentState, &inst.IsCompleted,
		&completedAt, &historyJSON, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		inst.CompletedAt = &t
	}
	if err := json.Unmarshal(historyJSON, &inst.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	if inst.History == nil {
		inst.History = []stateflow.HistoryEntry{}
	}
	return inst, nil
}

func scanInstances(rows *sql.Rows) ([]*stateflow.WorkflowInstance, error) {
	result := []*stateflow.WorkflowInstance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		result = append(result, inst)
	}
	return result, rows.Err()
}
