package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/synthmart/shopagent/internal/shopper"
)

func TestAgentStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewAgentStore()
	ctx := context.Background()
	agent := shopper.Agent{
		ID:   "agent-1",
		Name: "outdoor shopper",
		Profile: shopper.Profile{
			Gender:    "female",
			AgeFrom:   25,
			AgeTo:     35,
			Location:  "Berlin",
			Interests: []string{"running", "outdoors"},
		},
	}

	if err := store.CreateAgent(ctx, agent); err != nil {
		t.Fatalf("CreateAgent() error = %v", err)
	}
	if err := store.CreateAgent(ctx, agent); err == nil {
		t.Fatal("expected duplicate agent error")
	}

	got, err := store.GetAgent(ctx, agent.ID)
	if err != nil || got.Name != "outdoor shopper" || len(got.Profile.Interests) != 2 {
		t.Fatalf("GetAgent() = %+v, %v", got, err)
	}

	deleted, err := store.DeleteAgent(ctx, agent.ID)
	if err != nil || deleted.ID != agent.ID {
		t.Fatalf("DeleteAgent() = %+v, %v", deleted, err)
	}
	if _, err := store.GetAgent(ctx, agent.ID); !errors.Is(err, shopper.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := store.DeleteAgent(ctx, agent.ID); !errors.Is(err, shopper.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAgentStoreListOrdersByID(t *testing.T) {
	t.Parallel()

	store := NewAgentStore()
	ctx := context.Background()
	for _, id := range []string{"agent-b", "agent-a", "agent-c"} {
		if err := store.CreateAgent(ctx, shopper.Agent{ID: id}); err != nil {
			t.Fatalf("CreateAgent(%s) error = %v", id, err)
		}
	}
	agents, err := store.ListAgents(ctx)
	if err != nil || len(agents) != 3 {
		t.Fatalf("ListAgents() = %v, %v", agents, err)
	}
	if agents[0].ID != "agent-a" || agents[2].ID != "agent-c" {
		t.Fatalf("unexpected order: %v", agents)
	}
}
