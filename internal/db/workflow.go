package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soochol/stateflow/internal/stateflow"
)

// ErrNoRows is returned when a lookup matches nothing.
var ErrNoRows = errors.New("no rows")

// SaveDefinition upserts a workflow definition. States and transitions are
// stored as a JSONB document; the scalar columns mirror it for querying.
func (d *DB) SaveDefinition(ctx context.Context, wf *stateflow.WorkflowDefinition) error {
	defJSON, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO workflow_definitions (id, name, version, is_active, definition, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, version = EXCLUDED.version,
		   is_active = EXCLUDED.is_active, definition = EXCLUDED.definition, updated_at = EXCLUDED.updated_at`,
		wf.ID, wf.Name, wf.Version, wf.IsActive, defJSON, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert definition: %w", err)
	}
	return nil
}

// GetDefinition retrieves a definition by id regardless of its active flag.
func (d *DB) GetDefinition(ctx context.Context, id string) (*stateflow.WorkflowDefinition, error) {
	var defJSON []byte
	err := d.Pool.QueryRowContext(ctx,
		`SELECT definition FROM workflow_definitions WHERE id = $1`, id,
	).Scan(&defJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("definition %s: %w", id, ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}

	var wf stateflow.WorkflowDefinition
	if err := json.Unmarshal(defJSON, &wf); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	return &wf, nil
}

// DefinitionExists reports whether an active definition with id exists.
func (d *DB) DefinitionExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := d.Pool.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM workflow_definitions WHERE id = $1 AND is_active)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("definition exists: %w", err)
	}
	return exists, nil
}

// ListDefinitions returns active definitions ordered by id.
func (d *DB) ListDefinitions(ctx context.Context) ([]*stateflow.WorkflowDefinition, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT definition FROM workflow_definitions WHERE is_active ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	result := []*stateflow.WorkflowDefinition{}
	for rows.Next() {
		var defJSON []byte
		if err := rows.Scan(&defJSON); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		var wf stateflow.WorkflowDefinition
		if err := json.Unmarshal(defJSON, &wf); err != nil {
			return nil, fmt.Errorf("unmarshal definition: %w", err)
		}
		result = append(result, &wf)
	}
	return result, rows.Err()
}
