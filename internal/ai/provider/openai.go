package provider

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient captures the subset of the go-openai client used by the adapter.
// It is satisfied by *openai.Client so tests can pass a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements Client via the OpenAI Chat Completions API.
type OpenAIClient struct {
	chat         ChatClient
	defaultModel string
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient builds an OpenAI-backed client from an existing chat client.
func NewOpenAIClient(chat ChatClient, defaultModel string) (*OpenAIClient, error) {
	if chat == nil {
		return nil, errors.New("openai chat client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("default model is required")
	}
	return &OpenAIClient{chat: chat, defaultModel: defaultModel}, nil
}

// NewOpenAIClientFromAPIKey constructs a client using the default go-openai
// HTTP client.
func NewOpenAIClientFromAPIKey(apiKey, defaultModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	return NewOpenAIClient(openai.NewClient(apiKey), defaultModel)
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return NameOpenAI }

// GenerateCompletion issues a chat completion call and maps the response to
// the uniform result shape.
func (c *OpenAIClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	callCtx, cancel := callContext(ctx, req.Timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.chat.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, wrapErr(NameOpenAI, fmt.Sprint(apiErr.Code), err)
		}
		return nil, wrapErr(NameOpenAI, "", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: NameOpenAI, Message: "empty choices in response"}
	}

	choice := resp.Choices[0]
	return &CompletionResult{
		Content: choice.Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
	}, nil
}
