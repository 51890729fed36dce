package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/synthmart/shopagent/internal/shopper"
)

// AgentStore keeps agent rows in a map.
type AgentStore struct {
	mu     sync.RWMutex
	agents map[string]shopper.Agent
}

// NewAgentStore constructs an AgentStore.
func NewAgentStore() *AgentStore {
	return &AgentStore{
		agents: make(map[string]shopper.Agent),
	}
}

// CreateAgent stores a new agent row.
func (s *AgentStore) CreateAgent(_ context.Context, agent shopper.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[agent.ID]; exists {
		return errors.New("agent already exists")
	}
	s.agents[agent.ID] = agent
	return nil
}

// GetAgent fetches an agent by ID.
func (s *AgentStore) GetAgent(_ context.Context, agentID string) (shopper.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return shopper.Agent{}, shopper.ErrNotFound
	}
	return agent, nil
}

// ListAgents returns all agents ordered by ID.
func (s *AgentStore) ListAgents(_ context.Context) ([]shopper.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shopper.Agent, 0, len(s.agents))
	for _, agent := range s.agents {
		out = append(out, agent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteAgent removes and returns the agent.
func (s *AgentStore) DeleteAgent(_ context.Context, agentID string) (shopper.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return shopper.Agent{}, shopper.ErrNotFound
	}
	delete(s.agents, agentID)
	return agent, nil
}
