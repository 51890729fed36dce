package memory

import (
	"context"
	"sync"

	"github.com/synthmart/shopagent/internal/shopper"
)

// TraceStore keeps per-task step logs in memory.
type TraceStore struct {
	mu      sync.RWMutex
	entries map[string][]shopper.TraceEntry
}

// NewTraceStore constructs a TraceStore.
func NewTraceStore() *TraceStore {
	return &TraceStore{
		entries: make(map[string][]shopper.TraceEntry),
	}
}

// Append assigns the next step index for the task and persists the action.
func (s *TraceStore) Append(_ context.Context, taskID string, action shopper.Action) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step := len(s.entries[taskID]) + 1
	s.entries[taskID] = append(s.entries[taskID], shopper.TraceEntry{
		TaskID: taskID,
		Step:   step,
		Action: action,
	})
	return step, nil
}

// Load returns the task's entries ordered by ascending step.
func (s *TraceStore) Load(_ context.Context, taskID string) ([]shopper.TraceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[taskID]
	out := make([]shopper.TraceEntry, len(entries))
	copy(out, entries)
	return out, nil
}
