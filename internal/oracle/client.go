// Package oracle asks an OpenAI-compatible chat model to match feed attribute
// names and values against the marketplace catalog.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// Config for the oracle client.
type Config struct {
	APIKey      string
	BaseURL     string // default https://api.openai.com/v1
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per attempt
	MaxRetries  int
	RetryDelay  time.Duration // first backoff, doubled per attempt
	RPS         float64       // requests per second, 0 disables limiting
	Burst       int
}

// Client implements core.Oracle over chat/completions.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

var _ core.Oracle = (*Client)(nil)

// NewClient creates a Client, filling unset Config fields with defaults.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		log:     logger,
	}
}

// SuggestAttribute returns the catalog attribute name closest to name, or core.Unknown.
func (c *Client) SuggestAttribute(ctx context.Context, name string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return core.Unknown, nil
	}
	return c.suggest(ctx, "attribute", attributePrompt(name, candidates), candidates)
}

// SuggestValue returns the allowed value closest to value, or core.Unknown.
func (c *Client) SuggestValue(ctx context.Context, attribute, value string, allowed []string) (string, error) {
	if len(allowed) == 0 {
		return core.Unknown, nil
	}
	return c.suggest(ctx, "value", valuePrompt(attribute, value, allowed), allowed)
}

func (c *Client) suggest(ctx context.Context, kind, prompt string, options []string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Debug("oracle.request",
		"req_id", rid,
		"kind", kind,
		"model", c.cfg.Model,
		"options", len(options),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}

	content, err := c.complete(ctx, rid, body)
	if err != nil {
		c.log.Error("oracle.error",
			"req_id", rid, "kind", kind, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	match, err := parseReply(content, options)
	if err != nil {
		// An off-list answer is as good as no answer.
		c.log.Warn("oracle.invalid_reply",
			"req_id", rid, "kind", kind, "error", err, "content", content,
		)
		return core.Unknown, nil
	}

	c.log.Debug("oracle.response",
		"req_id", rid,
		"kind", kind,
		"match", match,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return match, nil
}

// complete posts body with retries and returns the first choice's content.
func (c *Client) complete(ctx context.Context, rid string, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	delay := c.cfg.RetryDelay

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("oracle.retry",
				"req_id", rid, "attempt", attempt, "delay", delay, "error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("oracle: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("oracle rate limit: %w", err)
		}

		raw, err := c.post(ctx, endpoint, body)
		if err == nil {
			return firstChoice(raw)
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// statusError is a non-2xx reply.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("oracle status %d: %s", e.Status, e.Body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return !errors.Is(err, context.Canceled)
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("oracle: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("oracle: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("oracle response body close error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("oracle: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

func firstChoice(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("oracle: decode response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("oracle: no choices in response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
