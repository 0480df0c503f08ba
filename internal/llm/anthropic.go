package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oakvale/ledgermap/internal/common"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-3-5-sonnet-20241022"
	defaultMaxTokens = 4000

	// 529 is the Anthropic "overloaded" status; the only status worth
	// retrying besides a plain request timeout.
	statusOverloaded = 529
)

// anthropicClient implements Client against the Anthropic messages API.
type anthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	timeout    time.Duration
	retryOpts  common.RetryOptions
	mu         sync.Mutex
}

func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = 2 * time.Second
	}

	return &anthropicClient{
		apiKey:    cfg.APIKey,
		model:     model,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		timeout:   timeout,
		retryOpts: retryOpts,
	}, nil
}

// client returns the shared HTTP client, creating it on first use. The
// connection pool is shared across all calls for the process lifetime.
func (c *anthropicClient) client() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return c.httpClient
}

// Close releases idle connections held by the shared HTTP client.
func (c *anthropicClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
	return nil
}

// Complete sends one prompt exchange and returns the generated text,
// retrying overload and timeout failures with exponential backoff.
func (c *anthropicClient) Complete(ctx context.Context, messages []Message, system string) (string, error) {
	requestBody := map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages":   messages,
	}
	if system != "" {
		requestBody["system"] = system
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var text string
	err = common.WithRetry(ctx, func() error {
		var attemptErr error
		text, attemptErr = c.attempt(ctx, jsonBody)
		return attemptErr
	}, c.retryOpts)

	if err != nil {
		var upstreamErr *common.UpstreamError
		if errors.As(err, &upstreamErr) {
			return "", err
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	return text, nil
}

// attempt performs a single request. Overload and timeout failures come
// back as retryable; everything else is fatal for the whole call.
func (c *anthropicClient) attempt(ctx context.Context, jsonBody []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client().Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &common.RetryableError{
				Err:       &common.UpstreamError{Message: fmt.Sprintf("request timeout: %v", err)},
				Retryable: true,
			}
		}
		return "", &common.RetryableError{
			Err:       &common.UpstreamError{Message: err.Error()},
			Retryable: false,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &common.RetryableError{
			Err:       &common.UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)},
			Retryable: false,
		}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decode.
	case resp.StatusCode == statusOverloaded:
		return "", &common.RetryableError{
			Err:       &common.UpstreamError{Status: resp.StatusCode, Message: string(body)},
			Retryable: true,
		}
	default:
		return "", &common.RetryableError{
			Err:       &common.UpstreamError{Status: resp.StatusCode, Message: string(body)},
			Retryable: false,
		}
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", &common.RetryableError{
			Err:       &common.UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to parse response: %v", err)},
			Retryable: false,
		}
	}

	if len(response.Content) == 0 || response.Content[0].Text == "" {
		return "", &common.RetryableError{
			Err:       &common.UpstreamError{Status: resp.StatusCode, Message: "no content in completion response"},
			Retryable: false,
		}
	}

	return response.Content[0].Text, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// anthropicResponse is the subset of the messages API response we consume.
type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
