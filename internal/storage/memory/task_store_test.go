package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synthmart/shopagent/internal/shopper"
)

func TestTaskStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewTaskStore()
	ctx := context.Background()
	task := shopper.Task{ID: "task-1", AgentID: "agent-1", Goal: "hiking shoes", Status: shopper.TaskStatusNotStarted}

	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := store.CreateTask(ctx, task); err == nil {
		t.Fatal("expected duplicate task error")
	}
	if err := store.UpdateTaskStatus(ctx, task.ID, shopper.TaskStatusInProgress, ""); err != nil {
		t.Fatalf("UpdateTaskStatus() error = %v", err)
	}
	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Status != shopper.TaskStatusInProgress || got.Goal != "hiking shoes" {
		t.Fatalf("unexpected task %+v", got)
	}

	if err := store.UpdateTaskStatus(ctx, task.ID, shopper.TaskStatusInProgress, "fetch failed"); err != nil {
		t.Fatalf("UpdateTaskStatus() with error text = %v", err)
	}
	got, _ = store.GetTask(ctx, task.ID)
	if got.ErrorText != "fetch failed" {
		t.Fatalf("expected error text to persist, got %+v", got)
	}

	if err := store.UpdateTaskStatus(ctx, "missing", shopper.TaskStatusFinished, ""); !errors.Is(err, shopper.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetTask(ctx, "missing"); !errors.Is(err, shopper.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskStoreListOrdersBySubmission(t *testing.T) {
	t.Parallel()

	store := NewTaskStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, task := range []shopper.Task{
		{ID: "task-c", Submitted: base.Add(2 * time.Minute)},
		{ID: "task-a", Submitted: base},
		{ID: "task-b", Submitted: base},
	} {
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask(%s) error = %v", task.ID, err)
		}
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	gotOrder := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}
	wantOrder := []string{"task-a", "task-b", "task-c"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("ListTasks() order = %v, want %v", gotOrder, wantOrder)
		}
	}
}
