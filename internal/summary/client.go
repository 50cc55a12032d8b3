// Package summary condenses article text through a hosted abstractive
// summarization model. Callers treat every failure as non-fatal.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Length bounds for BART. Inputs at or above TokenLimit get the fixed
// MinTokens..MaxTokens window, shorter inputs are scaled.
const (
	TokenLimit    = 3143
	MaxTokens     = 1024
	MinTokens     = 682
	MinMultiplier = 0.2
	MaxMultiplier = 0.3
)

// ErrDisabled is returned when no API token is configured.
var ErrDisabled = errors.New("summary: summarizer disabled")

type Options struct {
	BaseURL string
	Model   string
	Token   string
	Timeout time.Duration
	// RPS caps outgoing requests per second. Zero means unlimited.
	RPS    float64
	UseGPU bool
}

// Client calls the HuggingFace inference API.
type Client struct {
	url        string
	token      string
	useGPU     bool
	httpClient *http.Client
	limiter    *rate.Limiter
	stats      *Stats
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	return &Client{
		url:        strings.TrimRight(opts.BaseURL, "/") + "/" + opts.Model,
		token:      opts.Token,
		useGPU:     opts.UseGPU,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		stats:      NewStats(time.Hour),
	}
}

// Enabled reports whether a token is configured.
func (c *Client) Enabled() bool { return c.token != "" }

// Stats returns the latency tracker for this client.
func (c *Client) Stats() *Stats { return c.stats }

type inferenceRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MinLength int `json:"min_length"`
		MaxLength int `json:"max_length"`
	} `json:"parameters"`
	Options struct {
		UseGPU       bool `json:"use_gpu"`
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type inferenceResult struct {
	SummaryText string `json:"summary_text"`
}

// LengthBounds returns the min and max summary length for an input of n
// tokens.
func LengthBounds(n int) (minLen, maxLen int) {
	if n >= TokenLimit {
		return MinTokens, MaxTokens
	}
	return int(float64(n) * MinMultiplier), int(float64(n) * MaxMultiplier)
}

// Summarize returns an abstractive summary of text, or "" when the model
// returns nothing.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	var reqBody inferenceRequest
	reqBody.Inputs = text
	reqBody.Parameters.MinLength, reqBody.Parameters.MaxLength = LengthBounds(EstimateTokens(text))
	reqBody.Options.UseGPU = c.useGPU
	reqBody.Options.WaitForModel = true
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.stats.RecordFailure()
		return "", fmt.Errorf("inference api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.stats.RecordFailure()
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		c.stats.RecordFailure()
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		c.stats.RecordFailure()
		return "", fmt.Errorf("inference api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	c.stats.Record(time.Since(start).Milliseconds())

	var results []inferenceResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		return "", fmt.Errorf("decode response: %w (raw: %s)", err, truncate(string(respBody), 200))
	}
	if len(results) == 0 {
		return "", nil
	}
	return strings.TrimSpace(results[0].SummaryText), nil
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// EstimateTokens approximates the model's token count from the word count.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return max(int(float64(words)*1.33), 1)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
