package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/synthmart/shopagent/internal/shopper"
)

func TestTaskStoreCreateTask(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewTaskStore(mock)
	require.NoError(t, err)

	submitted := time.Unix(1700000000, 0).UTC()
	task := shopper.Task{
		ID:        "task-1",
		AgentID:   "agent-1",
		Goal:      "hiking shoes",
		Seed:      "seed-1",
		Status:    shopper.TaskStatusNotStarted,
		Submitted: submitted,
	}

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(task.ID, task.AgentID, task.Goal, task.Seed, "not_started", "", submitted).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateTask(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreUpdateTaskStatus(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewTaskStore(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE tasks").
		WithArgs("in_progress", "", "task-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.UpdateTaskStatus(context.Background(), "task-1", shopper.TaskStatusInProgress, ""))

	mock.ExpectExec("UPDATE tasks").
		WithArgs("finished", "", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = store.UpdateTaskStatus(context.Background(), "missing", shopper.TaskStatusFinished, "")
	require.ErrorIs(t, err, shopper.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreGetTask(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewTaskStore(mock)
	require.NoError(t, err)

	submitted := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT id, agent_id, goal, seed, status, error_text, submitted_at").
		WithArgs("task-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "agent_id", "goal", "seed", "status", "error_text", "submitted_at"}).
			AddRow("task-1", "agent-1", "hiking shoes", "seed-1", "finished", "", submitted))

	task, err := store.GetTask(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, shopper.TaskStatusFinished, task.Status)
	require.Equal(t, "hiking shoes", task.Goal)

	mock.ExpectQuery("SELECT id, agent_id, goal, seed, status, error_text, submitted_at").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = store.GetTask(context.Background(), "missing")
	require.ErrorIs(t, err, shopper.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreListTasks(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewTaskStore(mock)
	require.NoError(t, err)

	submitted := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT id, agent_id, goal, seed, status, error_text, submitted_at").
		WillReturnRows(pgxmock.NewRows([]string{"id", "agent_id", "goal", "seed", "status", "error_text", "submitted_at"}).
			AddRow("task-1", "agent-1", "hiking shoes", "", "finished", "", submitted).
			AddRow("task-2", "agent-1", "rain jacket", "", "in_progress", "", submitted.Add(time.Minute)))

	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, "task-1", tasks[0].ID)
	require.Equal(t, shopper.TaskStatusInProgress, tasks[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
