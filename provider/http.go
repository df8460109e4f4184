package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Default settings for the HTTP client.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxTries = 3
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	// BaseURL is the API root, e.g. "http://localhost:11434/v1".
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// EmbeddingModel is the model used for Embed calls.
	EmbeddingModel string

	// GenerationModel is the model used for Generate calls.
	GenerationModel string

	// RerankModel is the model used for Score calls.
	RerankModel string

	// Timeout bounds each HTTP call. Default: DefaultTimeout.
	Timeout time.Duration

	// MaxTries bounds retry attempts per call. Default: DefaultMaxTries.
	MaxTries uint

	// HTTPClient overrides the underlying client (useful for tests).
	HTTPClient *http.Client
}

// HTTPClient implements Embedder, Generator, and Reranker against an
// OpenAI-compatible HTTP API.
type HTTPClient struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTPClient creates a client for an OpenAI-compatible API.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = DefaultMaxTries
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPClient{config: cfg, client: client}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Embedder.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingResponse
	err := c.post(ctx, "/embeddings", embeddingRequest{
		Model: c.config.EmbeddingModel,
		Input: []string{text},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrUnavailable)
	}
	return resp.Data[0].Embedding, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator.
func (c *HTTPClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var resp chatResponse
	err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       c.config.GenerationModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score implements Reranker.
func (c *HTTPClient) Score(ctx context.Context, query, candidate string) (float64, error) {
	var resp rerankResponse
	err := c.post(ctx, "/rerank", rerankRequest{
		Model:     c.config.RerankModel,
		Query:     query,
		Documents: []string{candidate},
	}, &resp)
	if err != nil {
		return 0, err
	}
	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("%w: empty rerank response", ErrUnavailable)
	}
	return resp.Results[0].RelevanceScore, nil
}

// post sends a JSON request and decodes the JSON response, retrying
// transient failures with exponential backoff.
func (c *HTTPClient) post(ctx context.Context, path string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	operation := func() ([]byte, error) {
		return c.doOnce(ctx, path, payload)
	}

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.config.MaxTries),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *HTTPClient) doOnce(ctx context.Context, path string, payload []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level failure: retryable, reported as unavailable.
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("provider rejected request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
}
