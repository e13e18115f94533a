// Package llmclient wraps the OpenAI-compatible chat/embeddings API
// behind bounded concurrency, retry-with-backoff, and a circuit breaker
// (LLMClient).
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/autofi/ai-engine/observability"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// authErrorSentinel is returned (wrapped) when the provider rejects the
// request's credentials; callers must not retry on it.
const authErrorSentinel = "llm authentication failed"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config configures a Client. Zero values take the documented defaults.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	MaxConcurrency int
	MaxAttempts    int
	BackoffStart   time.Duration
	BackoffCap     time.Duration
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o-mini"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 5
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffStart <= 0 {
		c.BackoffStart = 500 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 2 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

// Client is the bounded-concurrency LLM wrapper.
type Client struct {
	cfg     Config
	http    *http.Client
	sem     chan struct{}
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func New(cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{MaxIdleConns: 100, MaxIdleConnsPerHost: 20, IdleConnTimeout: 90 * time.Second},
			Timeout:   cfg.RequestTimeout,
		},
		sem: make(chan struct{}, cfg.MaxConcurrency),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm_upstream",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		metrics: metrics,
		logger:  logger.With().Str("component", "llm_client").Logger(),
	}
}

// chatRequest/chatResponse mirror the OpenAI chat completions wire shape.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	ResponseFmt *respFmt  `json:"response_format,omitempty"`
}

type respFmt struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends a chat completion request and returns the concatenated
// assistant reply. jsonMode requests the provider's strict-JSON output
// mode, used for every assistant-pipeline call.
func (c *Client) Complete(ctx context.Context, messages []Message, jsonMode bool, maxTokens int, temperature float64) (string, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	req := chatRequest{Model: c.cfg.ChatModel, Messages: messages, Temperature: &temperature}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	if jsonMode {
		req.ResponseFmt = &respFmt{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	reply, err := withRetry(c, ctx, "chat_completion", func(ctx context.Context) (string, error) {
		httpResp, err := c.doJSON(ctx, "/chat/completions", body)
		if err != nil {
			return "", err
		}
		var resp chatResponse
		if err := json.Unmarshal(httpResp, &resp); err != nil {
			return "", fmt.Errorf("decode chat response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty chat response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	return reply, err
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed implements intelligence.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	body, err := json.Marshal(embeddingsRequest{Model: c.cfg.EmbeddingModel, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	result, err := withRetry(c, ctx, "embeddings", func(ctx context.Context) ([]float64, error) {
		httpResp, err := c.doJSON(ctx, "/embeddings", body)
		if err != nil {
			return nil, err
		}
		var resp embeddingsResponse
		if err := json.Unmarshal(httpResp, &resp); err != nil {
			return nil, fmt.Errorf("decode embeddings response: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("empty embeddings response")
		}
		return resp.Data[0].Embedding, nil
	})
	return result, err
}

// doJSON issues one POST request wrapped by the circuit breaker.
func (c *Client) doJSON(ctx context.Context, path string, body []byte) ([]byte, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%s: status %d", authErrorSentinel, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("llm upstream returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return respBody, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
