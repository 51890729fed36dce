package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/synthmart/shopagent/internal/shopper"
)

func agentColumns() []string {
	return []string{"id", "name", "gender", "age_from", "age_to", "location", "interests", "description"}
}

func TestAgentStoreCreateAgentJoinsInterests(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAgentStore(mock)
	require.NoError(t, err)

	agent := shopper.Agent{
		ID:   "agent-1",
		Name: "outdoor shopper",
		Profile: shopper.Profile{
			Gender:      "female",
			AgeFrom:     25,
			AgeTo:       35,
			Location:    "Berlin",
			Interests:   []string{"running", "outdoors"},
			Description: "weekend hiker",
		},
	}

	mock.ExpectExec("INSERT INTO agents").
		WithArgs("agent-1", "outdoor shopper", "female", 25, 35, "Berlin", "running, outdoors", "weekend hiker").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateAgent(context.Background(), agent))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentStoreGetAgentSplitsInterests(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAgentStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, name, gender, age_from, age_to, location, interests, description").
		WithArgs("agent-1").
		WillReturnRows(pgxmock.NewRows(agentColumns()).
			AddRow("agent-1", "outdoor shopper", "female", 25, 35, "Berlin", "running, outdoors", ""))

	agent, err := store.GetAgent(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Equal(t, []string{"running", "outdoors"}, agent.Profile.Interests)

	mock.ExpectQuery("SELECT id, name, gender, age_from, age_to, location, interests, description").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = store.GetAgent(context.Background(), "missing")
	require.ErrorIs(t, err, shopper.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentStoreListAgents(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAgentStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, name, gender, age_from, age_to, location, interests, description").
		WillReturnRows(pgxmock.NewRows(agentColumns()).
			AddRow("agent-1", "a", "", 20, 30, "", "", "").
			AddRow("agent-2", "b", "", 40, 50, "", "cycling", ""))

	agents, err := store.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	require.Empty(t, agents[0].Profile.Interests)
	require.Equal(t, []string{"cycling"}, agents[1].Profile.Interests)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentStoreDeleteAgentReturnsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAgentStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("DELETE FROM agents").
		WithArgs("agent-1").
		WillReturnRows(pgxmock.NewRows(agentColumns()).
			AddRow("agent-1", "outdoor shopper", "female", 25, 35, "Berlin", "", ""))

	agent, err := store.DeleteAgent(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Equal(t, "outdoor shopper", agent.Name)

	mock.ExpectQuery("DELETE FROM agents").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = store.DeleteAgent(context.Background(), "missing")
	require.ErrorIs(t, err, shopper.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
