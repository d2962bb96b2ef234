// Package provider defines the completion provider abstraction and its
// concrete clients (OpenAI, Anthropic, and a deterministic local mock).
package provider

import (
	"context"
	"time"
)

// Provider names as they appear in configuration and response metadata.
const (
	NameOpenAI    = "openai"
	NameAnthropic = "anthropic"
	NameLocal     = "local"
)

// CompletionRequest describes a single completion call.
type CompletionRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResult is the uniform completion payload returned by every client.
// Provider is stamped by the orchestrator with the client that produced the
// result; vendors may return dated model variants, so Model alone does not
// identify the producer.
type CompletionResult struct {
	Content      string `json:"content"`
	Usage        Usage  `json:"usage"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	FinishReason string `json:"finish_reason"`
}

// Client is the uniform completion interface over model vendors.
type Client interface {
	// Name returns the provider identifier (openai, anthropic, local).
	Name() string

	// GenerateCompletion issues a single completion call. The call is bounded
	// by req.Timeout; exceeding it returns ErrTimeout. Vendor failures are
	// wrapped as *ProviderError.
	GenerateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// callContext bounds ctx by the request timeout when one is set.
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
