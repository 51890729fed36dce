// Package oracle implements the decision oracle port: given a frontier of
// candidate actions and the task context, return the id of the action to
// take. The production implementation calls a chat-completions API; the
// deterministic implementations back tests and offline runs.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/synthmart/shopagent/internal/shopper"
)

// LLMConfig configures the chat-completions client.
type LLMConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	Temperature float64
}

// LLMOracle implements shopper.Oracle against an OpenAI-style
// chat-completions endpoint.
type LLMOracle struct {
	cfg        LLMConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewLLMOracle initializes the client.
func NewLLMOracle(cfg LLMConfig, logger *zap.Logger) (*LLMOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("oracle model is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &LLMOracle{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("oracle.llm"),
	}, nil
}

// Choose sends the decision prompt and returns the model's answer trimmed
// to an action id. Transport and API failures are retried with exponential
// backoff before surfacing.
func (o *LLMOracle) Choose(ctx context.Context, decision shopper.Decision) (string, error) {
	payload := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(decision)},
		},
		Temperature: o.cfg.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(o.cfg.MaxAttempts-1))

	var answer string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create chat request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

		resp, err := o.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("chat request: %w", err)
		}
		defer func() {
			if cerr := resp.Body.Close(); cerr != nil {
				o.logger.Warn("close response body failed", zap.Error(cerr))
			}
		}()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read chat response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("chat endpoint returned status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return fmt.Errorf("decode chat response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("chat response contained no choices"))
		}
		answer = strings.TrimSpace(parsed.Choices[0].Message.Content)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return "", err
	}
	return answer, nil
}
