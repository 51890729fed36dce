package shopper

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// PageSource returns the raw bytes of a page, deduplicating fetches.
type PageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Oracle picks one candidate action id given the decision context.
// An empty or unmatchable id means "no action chosen".
type Oracle interface {
	Choose(ctx context.Context, decision Decision) (string, error)
}

// TraceStore is the append-only, step-indexed log of chosen actions.
type TraceStore interface {
	Append(ctx context.Context, taskID string, action Action) (int, error)
	Load(ctx context.Context, taskID string) ([]TraceEntry, error)
}

// TaskStore persists task metadata and status transitions.
type TaskStore interface {
	CreateTask(ctx context.Context, task Task) error
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, errText string) error
	GetTask(ctx context.Context, taskID string) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
}

// AgentStore persists agent profiles.
type AgentStore interface {
	CreateAgent(ctx context.Context, agent Agent) error
	GetAgent(ctx context.Context, agentID string) (Agent, error)
	ListAgents(ctx context.Context) ([]Agent, error)
	DeleteAgent(ctx context.Context, agentID string) (Agent, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
}

// QueueItem wraps a dispatched task ready to run.
type QueueItem struct {
	Task  Task
	Agent Agent
}

// Queue provides enqueue/dequeue semantics for dispatched tasks.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces action and task IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
