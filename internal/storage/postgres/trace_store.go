package postgres

import (
	"context"
	"fmt"

	"github.com/synthmart/shopagent/internal/shopper"
)

// TraceStore implements the shopper.TraceStore interface using Postgres.
type TraceStore struct {
	pool Pool
}

// NewTraceStore creates a TraceStore on an existing pool.
func NewTraceStore(pool Pool) (*TraceStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &TraceStore{pool: pool}, nil
}

// Append assigns the next step index for the task and inserts the action in
// one statement, so a step is durable once this returns and never rewritten.
func (s *TraceStore) Append(ctx context.Context, taskID string, action shopper.Action) (int, error) {
	query := `
		INSERT INTO trace_logs (task_id, step, action_id, action_type, context, target_url)
		SELECT $1, COALESCE(MAX(step), 0) + 1, $2, $3, $4, $5
		FROM trace_logs
		WHERE task_id = $1
		RETURNING step;
	`
	var step int
	err := s.pool.QueryRow(ctx, query,
		taskID,
		action.ID,
		string(action.Type),
		action.Context,
		action.TargetURL,
	).Scan(&step)
	if err != nil {
		return 0, fmt.Errorf("append trace step: %w", err)
	}
	return step, nil
}

// Load reconstructs the task's history strictly by ascending step index.
func (s *TraceStore) Load(ctx context.Context, taskID string) ([]shopper.TraceEntry, error) {
	query := `
		SELECT task_id, step, action_id, action_type, context, target_url
		FROM trace_logs
		WHERE task_id = $1
		ORDER BY step;
	`
	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("load trace: %w", err)
	}
	defer rows.Close()

	var entries []shopper.TraceEntry
	for rows.Next() {
		var entry shopper.TraceEntry
		var actionType string
		err := rows.Scan(
			&entry.TaskID,
			&entry.Step,
			&entry.Action.ID,
			&actionType,
			&entry.Action.Context,
			&entry.Action.TargetURL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trace row: %w", err)
		}
		entry.Action.Type = shopper.ActionType(actionType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace rows: %w", err)
	}
	return entries, nil
}
