package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/northstar/internal/ai/provider"
	"github.com/northstarhq/northstar/internal/common/logger"
)

// countingClient records invocations and returns a fixed result or error.
// When model is set it is echoed back instead of the requested model, the way
// vendors return dated variants of the name they were asked for.
type countingClient struct {
	name  string
	model string
	calls int64
	err   error
}

func (c *countingClient) Name() string { return c.name }

func (c *countingClient) GenerateCompletion(ctx context.Context, req provider.CompletionRequest) (*provider.CompletionResult, error) {
	atomic.AddInt64(&c.calls, 1)
	if c.err != nil {
		return nil, c.err
	}
	model := req.Model
	if c.model != "" {
		model = c.model
	}
	return &provider.CompletionResult{
		Content:      "remote answer",
		Usage:        provider.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		Model:        model,
		FinishReason: "stop",
	}, nil
}

func newTestOrchestrator(t *testing.T, opts Options, clients ...provider.Client) *Orchestrator {
	t.Helper()
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	return New(opts, clients, logger.Default())
}

func TestChatCacheHit(t *testing.T) {
	primary := &countingClient{name: provider.NameOpenAI}
	o := newTestOrchestrator(t, Options{
		PrimaryProvider: provider.NameOpenAI,
		EnableCaching:   true,
		CacheTTL:        time.Hour,
	}, primary)

	req := Request{UseCase: UseCaseConversation, Prompt: "hello there", UserID: "u1"}

	first := o.Chat(context.Background(), req)
	require.Equal(t, StatusSuccess, first.Status)
	assert.False(t, first.Metadata.CacheHit)
	assert.Equal(t, "remote answer", first.Content)

	second := o.Chat(context.Background(), req)
	require.Equal(t, StatusSuccess, second.Status)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, first.Content, second.Content)

	assert.Equal(t, int64(1), atomic.LoadInt64(&primary.calls))
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestChatFallbackToLocal(t *testing.T) {
	primary := &countingClient{name: provider.NameOpenAI, err: provider.ErrUnavailable}
	o := newTestOrchestrator(t, Options{PrimaryProvider: provider.NameOpenAI}, primary)

	res := o.Chat(context.Background(), Request{UseCase: UseCaseConversation, Prompt: "I want to get fit"})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, provider.NameLocal, res.Metadata.Provider)
	assert.Equal(t, "mock-v1", res.ModelUsed)
	assert.NotEmpty(t, res.Content)
	assert.Equal(t, int64(1), atomic.LoadInt64(&primary.calls))

	snap := o.Metrics()
	assert.Equal(t, int64(1), snap.FallbackUses)
	assert.Equal(t, int64(1), snap.ProviderFailures[provider.NameOpenAI])
}

func TestChatAllProvidersFail(t *testing.T) {
	primary := &countingClient{name: provider.NameOpenAI, err: provider.ErrUnavailable}
	local := &countingClient{name: provider.NameLocal, err: provider.ErrTimeout}
	o := newTestOrchestrator(t, Options{PrimaryProvider: provider.NameOpenAI}, primary, local)

	res := o.Chat(context.Background(), Request{UseCase: UseCaseConversation, Prompt: "hi"})

	require.Equal(t, StatusError, res.Status)
	assert.NotEmpty(t, res.ErrorMessage)
	assert.Empty(t, res.Content)

	snap := o.Metrics()
	assert.Equal(t, int64(1), snap.Failures)
	assert.Equal(t, int64(0), snap.Successes)
}

func TestChatProviderOverride(t *testing.T) {
	openai := &countingClient{name: provider.NameOpenAI}
	anthropic := &countingClient{name: provider.NameAnthropic}
	o := newTestOrchestrator(t, Options{PrimaryProvider: provider.NameOpenAI}, openai, anthropic)

	res := o.Chat(context.Background(), Request{
		UseCase:          UseCaseConversation,
		Prompt:           "hello",
		ProviderOverride: provider.NameAnthropic,
	})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, provider.NameAnthropic, res.Metadata.Provider)
	assert.Equal(t, int64(0), atomic.LoadInt64(&openai.calls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&anthropic.calls))
}

func TestChatProviderAttributionWithDatedModel(t *testing.T) {
	primary := &countingClient{name: provider.NameOpenAI, model: "gpt-4o-mini-2024-07-18"}
	o := newTestOrchestrator(t, Options{
		PrimaryProvider: provider.NameOpenAI,
		EnableCaching:   true,
		CacheTTL:        time.Hour,
	}, primary)

	req := Request{UseCase: UseCaseConversation, Prompt: "hello", UserID: "u1"}

	first := o.Chat(context.Background(), req)
	require.Equal(t, StatusSuccess, first.Status)
	assert.Equal(t, provider.NameOpenAI, first.Metadata.Provider)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", first.ModelUsed)

	// Attribution survives the cache round trip.
	second := o.Chat(context.Background(), req)
	require.Equal(t, StatusSuccess, second.Status)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, provider.NameOpenAI, second.Metadata.Provider)

	snap := o.Metrics()
	assert.Equal(t, int64(0), snap.FallbackUses)
}

func TestChatCostAccounting(t *testing.T) {
	primary := &countingClient{name: provider.NameOpenAI}
	o := newTestOrchestrator(t, Options{PrimaryProvider: provider.NameOpenAI}, primary)

	res := o.Chat(context.Background(), Request{UseCase: UseCaseConversation, Prompt: "hello"})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 30, res.TokenUsage.TotalTokens)
	// gpt-4o-mini at 0.0000006 per token
	assert.InDelta(t, 30*0.0000006, res.CostEstimate, 1e-12)
	assert.Greater(t, res.ProcessingTime, time.Duration(0))
}

func TestResolveModelConfigOverrides(t *testing.T) {
	o := newTestOrchestrator(t, Options{PrimaryProvider: provider.NameOpenAI})

	temp := 0.2
	cfg := o.resolveModelConfig(provider.NameOpenAI, Request{
		UseCase:     UseCaseGoalDecomposition,
		Model:       "gpt-4o",
		Temperature: &temp,
		MaxTokens:   512,
	})
	assert.Equal(t, "gpt-4o", cfg.ModelName)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 512, cfg.MaxTokens)

	// Model overrides never apply to the local mock.
	cfg = o.resolveModelConfig(provider.NameLocal, Request{UseCase: UseCaseConversation, Model: "gpt-4o"})
	assert.Equal(t, "mock-v1", cfg.ModelName)
}

func TestSanitizeContent(t *testing.T) {
	in := "  hello\x00 world\x1b[0m\n\tok  "
	out := sanitizeContent(in)
	assert.Equal(t, "hello world[0m\n\tok", out)
	// Idempotent
	assert.Equal(t, out, sanitizeContent(out))
}
