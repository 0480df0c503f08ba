// Package llm owns the outbound call to the completion API and the parsing
// of its loosely structured text responses.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/oakvale/ledgermap/internal/common"
)

// Message is one role-tagged turn of a completion exchange, most recent
// last.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a single-turn user message slice from a prompt.
func UserMessage(prompt string) []Message {
	return []Message{{Role: "user", Content: prompt}}
}

// Client sends prompt exchanges to a text-completion service. Transient
// overload and timeouts are retried internally; callers see either the
// generated text or a terminal error.
type Client interface {
	Complete(ctx context.Context, messages []Message, system string) (string, error)
	// Close releases the persistent outbound connection. Callers must
	// release it on shutdown.
	Close() error
}

// Config holds configuration for the completion client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// NewClient creates a completion client for the Anthropic messages API.
func NewClient(cfg Config) (Client, error) {
	return newAnthropicClient(cfg)
}

// Unconfigured returns a Client whose calls fail with ErrMissingConfig. It
// lets the HTTP surface start without an API key; health reporting surfaces
// the missing key to callers.
func Unconfigured() Client {
	return unconfiguredClient{}
}

type unconfiguredClient struct{}

func (unconfiguredClient) Complete(context.Context, []Message, string) (string, error) {
	return "", fmt.Errorf("%w: anthropic API key is required", common.ErrMissingConfig)
}

func (unconfiguredClient) Close() error { return nil }
