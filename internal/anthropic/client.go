package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultAPIURL = "https://api.anthropic.com/v1/messages"

// ErrExhaustedRetries is returned when every attempt in the budget failed.
// The wrapped chain carries the last underlying cause.
var ErrExhaustedRetries = errors.New("exhausted retry attempts")

// Scoring prompts want reproducible output, so sampling stays near-greedy.
const defaultTemperature = 0.2

type Client struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
	logger *slog.Logger

	maxAttempts   int
	timeout       time.Duration
	rateLimitBase time.Duration
	transientBase time.Duration
}

func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:        apiKey,
		model:         model,
		apiURL:        defaultAPIURL,
		client:        &http.Client{},
		logger:        logger,
		maxAttempts:   3,
		timeout:       120 * time.Second,
		rateLimitBase: 2 * time.Second,
		transientBase: time.Second,
	}
}

// SetBaseURL points the client at a different Messages endpoint. Used by
// tests to target an httptest server.
func (c *Client) SetBaseURL(url string) {
	c.apiURL = url
}

// SetRetry overrides the attempt budget and backoff base delays.
func (c *Client) SetRetry(maxAttempts int, rateLimitBase, transientBase time.Duration) {
	if maxAttempts > 0 {
		c.maxAttempts = maxAttempts
	}
	if rateLimitBase > 0 {
		c.rateLimitBase = rateLimitBase
	}
	if transientBase > 0 {
		c.transientBase = transientBase
	}
}

// SetTimeout overrides the per-attempt timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx reply from the Messages endpoint.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// faultKind classifies a failed attempt for the retry policy.
type faultKind int

const (
	faultOther faultKind = iota
	faultRateLimit
	faultTimeout
	faultServer
	faultClient
)

func classify(err error) faultKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return faultRateLimit
		case apiErr.StatusCode == http.StatusRequestTimeout:
			return faultTimeout
		case apiErr.StatusCode >= 500:
			return faultServer
		case apiErr.StatusCode >= 400:
			return faultClient
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return faultTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return faultTimeout
	}
	// Unknown faults are treated as transient, biasing toward availability.
	return faultOther
}

// schedule is a classification-aware backoff policy: rate limits back off
// from rateLimitBase, everything else from transientBase, doubling each
// attempt (2s, 4s, 8s / 1s, 2s, 4s).
type schedule struct {
	kind          *faultKind
	attempt       int
	rateLimitBase time.Duration
	transientBase time.Duration
}

func (s *schedule) Reset() { s.attempt = 0 }

func (s *schedule) NextBackOff() time.Duration {
	base := s.transientBase
	if *s.kind == faultRateLimit {
		base = s.rateLimitBase
	}
	d := base << s.attempt
	s.attempt++
	return d
}

// Complete sends a message to the Anthropic API and returns the text
// response. Transient faults (rate limit, timeout, server error) are retried
// with exponential backoff up to the attempt budget; client faults fail
// immediately since a malformed request cannot succeed on retry.
func (c *Client) Complete(ctx context.Context, system string, messages []Message, maxTokens int, stage string) (string, error) {
	var result string
	kind := faultOther

	operation := func() error {
		text, err := c.doRequest(ctx, system, messages, maxTokens)
		if err != nil {
			kind = classify(err)
			if kind == faultClient {
				return backoff.Permanent(err)
			}
			return err
		}
		result = text
		return nil
	}

	policy := &schedule{
		kind:          &kind,
		rateLimitBase: c.rateLimitBase,
		transientBase: c.transientBase,
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxAttempts-1)), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("completion attempt failed, retrying",
			"stage", stage,
			"wait", wait.String(),
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if kind == faultClient {
			return "", fmt.Errorf("stage %s: %w", stage, err)
		}
		return "", fmt.Errorf("stage %s: %w: %w", stage, ErrExhaustedRetries, err)
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := request{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: defaultTemperature,
		System:      system,
		Messages:    messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Type != "" {
			apiErr.Type = errResp.Error.Type
			apiErr.Message = errResp.Error.Message
		}
		return "", apiErr
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response content")
	}

	return apiResp.Content[0].Text, nil
}
