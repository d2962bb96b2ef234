package provider

import (
	"context"
	"errors"
	"strconv"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// MessagesClient captures the subset of the Anthropic SDK client used by the
// adapter. It is satisfied by *sdk.MessageService so callers can pass either a
// real client or a fake in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Client on top of the Anthropic Messages API.
type AnthropicClient struct {
	msg          MessagesClient
	defaultModel string
}

var _ Client = (*AnthropicClient)(nil)

// NewAnthropicClient builds an Anthropic-backed client from an existing
// Messages client.
func NewAnthropicClient(msg MessagesClient, defaultModel string) (*AnthropicClient, error) {
	if msg == nil {
		return nil, errors.New("anthropic messages client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("default model is required")
	}
	return &AnthropicClient{msg: msg, defaultModel: defaultModel}, nil
}

// NewAnthropicClientFromAPIKey constructs a client using the default Anthropic
// HTTP client.
func NewAnthropicClientFromAPIKey(apiKey, defaultModel string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClient(&ac.Messages, defaultModel)
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string { return NameAnthropic }

// GenerateCompletion issues a Messages.New call and maps the response to the
// uniform result shape.
func (c *AnthropicClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	callCtx, cancel := callContext(ctx, req.Timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Model:     sdk.Model(model),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := c.msg.New(callCtx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, wrapErr(NameAnthropic, strconv.Itoa(apiErr.StatusCode), err)
		}
		return nil, wrapErr(NameAnthropic, "", err)
	}

	var content string
	for _, block := range msg.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &CompletionResult{
		Content: content,
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
	}, nil
}
