package provider

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatClient struct {
	lastReq openai.ChatCompletionRequest
	resp    openai.ChatCompletionResponse
	err     error
}

func (f *fakeChatClient) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = request
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return f.resp, nil
}

func TestOpenAIClientMapsRequestAndResponse(t *testing.T) {
	fake := &fakeChatClient{
		resp: openai.ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Content: "hello back"},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}
	c, err := NewOpenAIClient(fake, "gpt-4o-mini")
	require.NoError(t, err)

	res, err := c.GenerateCompletion(context.Background(), CompletionRequest{
		Prompt:       "hello",
		SystemPrompt: "be brief",
		MaxTokens:    64,
		Temperature:  0.3,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello back", res.Content)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.Equal(t, "stop", res.FinishReason)
	assert.Equal(t, 15, res.Usage.TotalTokens)

	require.Len(t, fake.lastReq.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, fake.lastReq.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, fake.lastReq.Messages[1].Role)
	assert.Equal(t, 64, fake.lastReq.MaxTokens)
}

func TestOpenAIClientWrapsVendorError(t *testing.T) {
	fake := &fakeChatClient{err: errors.New("boom")}
	c, err := NewOpenAIClient(fake, "gpt-4o-mini")
	require.NoError(t, err)

	_, err = c.GenerateCompletion(context.Background(), CompletionRequest{Prompt: "hello"})
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, NameOpenAI, provErr.Provider)
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	fake := &fakeChatClient{resp: openai.ChatCompletionResponse{}}
	c, err := NewOpenAIClient(fake, "gpt-4o-mini")
	require.NoError(t, err)

	_, err = c.GenerateCompletion(context.Background(), CompletionRequest{Prompt: "hello"})
	assert.Error(t, err)
}
