// Package memory provides in-memory store implementations for development
// and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/synthmart/shopagent/internal/shopper"
)

// TaskStore keeps task rows in a map.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]shopper.Task
}

// NewTaskStore constructs a TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]shopper.Task),
	}
}

// CreateTask stores a new task row.
func (s *TaskStore) CreateTask(_ context.Context, task shopper.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return errors.New("task already exists")
	}
	s.tasks[task.ID] = task
	return nil
}

// UpdateTaskStatus updates the status and error text for a task.
func (s *TaskStore) UpdateTaskStatus(_ context.Context, taskID string, status shopper.TaskStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return shopper.ErrNotFound
	}
	task.Status = status
	task.ErrorText = errText
	s.tasks[taskID] = task
	return nil
}

// GetTask fetches a task by ID.
func (s *TaskStore) GetTask(_ context.Context, taskID string) (shopper.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return shopper.Task{}, shopper.ErrNotFound
	}
	return task, nil
}

// ListTasks returns all tasks ordered by submission time.
func (s *TaskStore) ListTasks(_ context.Context) ([]shopper.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shopper.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Submitted.Equal(out[j].Submitted) {
			return out[i].ID < out[j].ID
		}
		return out[i].Submitted.Before(out[j].Submitted)
	})
	return out, nil
}
