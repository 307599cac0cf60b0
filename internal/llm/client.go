// Package llm provides the language-model path: an OpenAI-compatible
// chat-completions client plus structured intent extraction and grounded
// question answering on top of it.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/supportlens/supportlens/internal/config"
)

const (
	httpTimeout = 30 * time.Second

	// maxErrorBodyBytes caps how much of an error response body is read
	// for diagnostics.
	maxErrorBodyBytes = 4096
)

// ModelError reports a failed model call: provider unreachable, rate
// limited, or content that failed schema validation. The orchestrator
// decides how to degrade; this package never degrades silently.
type ModelError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ModelError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("model %s: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// RateLimited reports whether the provider rejected the call for quota.
func (e *ModelError) RateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// Options tunes a single completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client talks to an OpenAI-compatible chat-completions endpoint
// (including LiteLLM-style proxies).
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient creates a client from the application configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    cfg.LLMBaseURL,
		apiKey:     cfg.LLMAPIKey,
		model:      cfg.Model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a system prompt plus user prompt and returns the model's
// text. All failures surface as *ModelError.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ModelError{Op: "complete", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ModelError{Op: "complete", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ModelError{Op: "complete", Err: fmt.Errorf("send request to %s: %w", c.baseURL, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &ModelError{
			Op:         "complete",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("provider error: %s", bytes.TrimSpace(detail)),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ModelError{Op: "complete", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ModelError{Op: "complete", Err: fmt.Errorf("response contained no choices")}
	}

	return parsed.Choices[0].Message.Content, nil
}
