package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/synthmart/shopagent/internal/shopper"
)

// AgentStore implements the shopper.AgentStore interface using Postgres.
type AgentStore struct {
	pool Pool
}

// NewAgentStore creates an AgentStore on an existing pool.
func NewAgentStore(pool Pool) (*AgentStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &AgentStore{pool: pool}, nil
}

// CreateAgent inserts a new agent row.
func (s *AgentStore) CreateAgent(ctx context.Context, agent shopper.Agent) error {
	query := `
		INSERT INTO agents (id, name, gender, age_from, age_to, location, interests, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := s.pool.Exec(ctx, query,
		agent.ID,
		agent.Name,
		agent.Profile.Gender,
		agent.Profile.AgeFrom,
		agent.Profile.AgeTo,
		agent.Profile.Location,
		strings.Join(agent.Profile.Interests, ", "),
		agent.Profile.Description,
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent retrieves a single agent by ID.
func (s *AgentStore) GetAgent(ctx context.Context, agentID string) (shopper.Agent, error) {
	query := `
		SELECT id, name, gender, age_from, age_to, location, interests, description
		FROM agents
		WHERE id = $1;
	`
	agent, err := scanAgent(s.pool.QueryRow(ctx, query, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shopper.Agent{}, shopper.ErrNotFound
		}
		return shopper.Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

// ListAgents retrieves all agents ordered by ID.
func (s *AgentStore) ListAgents(ctx context.Context) ([]shopper.Agent, error) {
	query := `
		SELECT id, name, gender, age_from, age_to, location, interests, description
		FROM agents
		ORDER BY id;
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []shopper.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent rows: %w", err)
	}
	return agents, nil
}

// DeleteAgent removes the agent and returns the deleted row.
func (s *AgentStore) DeleteAgent(ctx context.Context, agentID string) (shopper.Agent, error) {
	query := `
		DELETE FROM agents
		WHERE id = $1
		RETURNING id, name, gender, age_from, age_to, location, interests, description;
	`
	agent, err := scanAgent(s.pool.QueryRow(ctx, query, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shopper.Agent{}, shopper.ErrNotFound
		}
		return shopper.Agent{}, fmt.Errorf("delete agent: %w", err)
	}
	return agent, nil
}

func scanAgent(row pgx.Row) (shopper.Agent, error) {
	var agent shopper.Agent
	var interests string
	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Profile.Gender,
		&agent.Profile.AgeFrom,
		&agent.Profile.AgeTo,
		&agent.Profile.Location,
		&interests,
		&agent.Profile.Description,
	)
	if err != nil {
		return shopper.Agent{}, err
	}
	if interests != "" {
		for _, interest := range strings.Split(interests, ",") {
			agent.Profile.Interests = append(agent.Profile.Interests, strings.TrimSpace(interest))
		}
	}
	return agent, nil
}
