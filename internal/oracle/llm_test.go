package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/synthmart/shopagent/internal/shopper"
)

func testDecision() shopper.Decision {
	return shopper.Decision{
		Goal: "hiking shoes",
		Frontier: []shopper.Action{
			{ID: "a-1", Type: shopper.ActionClickSearchResult, Context: "Product Title: Trail Runner X"},
			{ID: "a-2", Type: shopper.ActionClickSearchResult, Context: "Product Title: Canyon Boot"},
		},
		History: []shopper.Action{
			{ID: "a-0", Type: shopper.ActionQueryGoal, Context: "hiking shoes"},
		},
		Profile: shopper.Profile{
			Gender:    "female",
			AgeFrom:   25,
			AgeTo:     35,
			Location:  "Berlin",
			Interests: []string{"running", "outdoors"},
		},
		MaxSteps: 10,
	}
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(reply))
}

func newTestOracle(t *testing.T, endpoint string) *LLMOracle {
	t.Helper()
	orc, err := NewLLMOracle(LLMConfig{
		Endpoint:    endpoint,
		APIKey:      "test-key",
		Model:       "test-model",
		MaxAttempts: 3,
	}, zap.NewNop())
	require.NoError(t, err)
	return orc
}

func TestLLMOracleChoose(t *testing.T) {
	t.Parallel()

	var gotPrompt string
	var gotAuth string
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		require.Len(t, req.Messages, 1)
		gotPrompt = req.Messages[0].Content
		chatReply(t, w, "  a-2\n")
	}))
	defer server.Close()

	orc := newTestOracle(t, server.URL)
	answer, err := orc.Choose(context.Background(), testDecision())
	require.NoError(t, err)
	require.Equal(t, "a-2", answer)

	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "test-model", gotModel)
	require.Contains(t, gotPrompt, "act as a consumer with this goal: hiking shoes")
	require.Contains(t, gotPrompt, `"id": "a-1"`)
	require.Contains(t, gotPrompt, `"id": "a-2"`)
	require.Contains(t, gotPrompt, "Age Range: 25 - 35")
	require.Contains(t, gotPrompt, "Interests: running, outdoors")
	require.Contains(t, gotPrompt, "maximum of 10 steps")
	// Target URLs never reach the model.
	require.NotContains(t, gotPrompt, "target_url")
}

func TestLLMOracleRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		chatReply(t, w, "a-1")
	}))
	defer server.Close()

	orc := newTestOracle(t, server.URL)
	answer, err := orc.Choose(context.Background(), testDecision())
	require.NoError(t, err)
	require.Equal(t, "a-1", answer)
	require.EqualValues(t, 3, hits.Load())
}

func TestLLMOracleDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	orc := newTestOracle(t, server.URL)
	_, err := orc.Choose(context.Background(), testDecision())
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.EqualValues(t, 1, hits.Load())
}

func TestLLMOracleEmptyChoices(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	orc := newTestOracle(t, server.URL)
	_, err := orc.Choose(context.Background(), testDecision())
	require.Error(t, err)
	require.EqualValues(t, 1, hits.Load())
}

func TestNewLLMOracleValidation(t *testing.T) {
	t.Parallel()

	_, err := NewLLMOracle(LLMConfig{Model: "m"}, zap.NewNop())
	require.Error(t, err)
	_, err = NewLLMOracle(LLMConfig{APIKey: "k"}, zap.NewNop())
	require.Error(t, err)

	orc, err := NewLLMOracle(LLMConfig{APIKey: "k", Model: "m"}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, "https://api.openai.com/v1/chat/completions", orc.cfg.Endpoint)
	require.NotZero(t, orc.cfg.Timeout)
	require.Equal(t, 3, orc.cfg.MaxAttempts)

	orc, err = NewLLMOracle(LLMConfig{APIKey: "k", Model: "m", MaxAttempts: -5}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 3, orc.cfg.MaxAttempts)
}

func TestSerializeActionsFormat(t *testing.T) {
	t.Parallel()

	out := serializeActions([]shopper.Action{
		{ID: "a-1", Type: shopper.ActionBuyNow, Context: "Product Title: X", TargetURL: "https://example.com/dp/1"},
	})
	require.True(t, strings.HasPrefix(out, "{\n"))
	require.Contains(t, out, `"type": "BUY_NOW"`)
	require.NotContains(t, out, "example.com")
}
