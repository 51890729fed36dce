package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/synthmart/shopagent/internal/shopper"
)

// TaskStore implements the shopper.TaskStore interface using Postgres.
type TaskStore struct {
	pool Pool
}

// NewTaskStore creates a TaskStore on an existing pool.
func NewTaskStore(pool Pool) (*TaskStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &TaskStore{pool: pool}, nil
}

// CreateTask inserts a new task row.
func (s *TaskStore) CreateTask(ctx context.Context, task shopper.Task) error {
	query := `
		INSERT INTO tasks (id, agent_id, goal, seed, status, error_text, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := s.pool.Exec(ctx, query,
		task.ID,
		task.AgentID,
		task.Goal,
		task.Seed,
		string(task.Status),
		task.ErrorText,
		task.Submitted,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// UpdateTaskStatus persists a status transition and error text.
func (s *TaskStore) UpdateTaskStatus(ctx context.Context, taskID string, status shopper.TaskStatus, errText string) error {
	query := `
		UPDATE tasks
		SET status = $1, error_text = $2
		WHERE id = $3;
	`
	tag, err := s.pool.Exec(ctx, query, string(status), errText, taskID)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shopper.ErrNotFound
	}
	return nil
}

// GetTask retrieves a single task by ID.
func (s *TaskStore) GetTask(ctx context.Context, taskID string) (shopper.Task, error) {
	query := `
		SELECT id, agent_id, goal, seed, status, error_text, submitted_at
		FROM tasks
		WHERE id = $1;
	`
	task, err := scanTask(s.pool.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shopper.Task{}, shopper.ErrNotFound
		}
		return shopper.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks retrieves all tasks ordered by submission time.
func (s *TaskStore) ListTasks(ctx context.Context) ([]shopper.Task, error) {
	query := `
		SELECT id, agent_id, goal, seed, status, error_text, submitted_at
		FROM tasks
		ORDER BY submitted_at, id;
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []shopper.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (shopper.Task, error) {
	var task shopper.Task
	var status string
	err := row.Scan(
		&task.ID,
		&task.AgentID,
		&task.Goal,
		&task.Seed,
		&status,
		&task.ErrorText,
		&task.Submitted,
	)
	if err != nil {
		return shopper.Task{}, err
	}
	task.Status = shopper.TaskStatus(status)
	return task, nil
}
