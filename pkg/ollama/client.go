// Package ollama provides a client for a local Ollama inference endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/baratimohammad/2026-DSThesis/internal/resilience"
)

const (
	defaultBaseURL  = "http://localhost:11434"
	defaultTimeout  = 240 * time.Second
	defaultAttempts = 2
)

// Client performs chat completions against an Ollama server.
type Client interface {
	Chat(ctx context.Context, model, prompt string) (string, error)
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  ChatOptions `json:"options"`
}

// Message is a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions holds sampling parameters. Temperature is pinned to 0 so
// identical prompts produce stable output.
type ChatOptions struct {
	Temperature float64 `json:"temperature"`
}

// ChatResponse is the non-streaming response from POST /api/chat.
type ChatResponse struct {
	Message Message `json:"message"`
}

// UnavailableError is returned once every attempt against the service has
// failed. It carries the last underlying error.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("ollama: service unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default server URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithTimeout overrides the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithMaxAttempts sets the total attempt count per Chat call.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRateLimit throttles requests to n per second. Zero disables the limiter.
func WithRateLimit(n float64) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(n), 1)
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL     string
	maxAttempts int
	limiter     *rate.Limiter
	http        *http.Client
}

// NewClient creates an Ollama client. The client never touches persistent
// state; recording outcomes is the caller's responsibility.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:     defaultBaseURL,
		maxAttempts: defaultAttempts,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat sends one prompt and returns the response content. Transport
// failures, non-2xx statuses, and malformed response bodies are retried
// with exponential backoff up to the configured attempt count; exhaustion
// returns an *UnavailableError wrapping the last cause.
func (c *httpClient) Chat(ctx context.Context, model, prompt string) (string, error) {
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = c.maxAttempts
	// The service call itself is the unit being budgeted: every failure
	// mode up to a decoded body is retryable here.
	retryCfg.ShouldRetry = func(error) bool { return true }
	retryCfg.OnRetry = resilience.RetryLogger("ollama", "chat")

	content, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		return c.chatOnce(ctx, model, prompt)
	})
	if err != nil {
		return "", &UnavailableError{Attempts: c.maxAttempts, Err: err}
	}
	return content, nil
}

func (c *httpClient) chatOnce(ctx context.Context, model, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "ollama: rate limit wait")
		}
	}

	body, err := json.Marshal(ChatRequest{
		Model:    model,
		Messages: []Message{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  ChatOptions{Temperature: 0.0},
	})
	if err != nil {
		return "", eris.Wrap(err, "ollama: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "ollama: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ollama: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ollama: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := eris.Errorf("ollama: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var result ChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "ollama: unmarshal response")
	}

	return result.Message.Content, nil
}
