package provider

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientDeterministic(t *testing.T) {
	c := NewMockClient()
	ctx := context.Background()

	req := CompletionRequest{Prompt: "Tell me something motivating about my week"}
	first, err := c.GenerateCompletion(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, first.Content)

	for i := 0; i < 5; i++ {
		again, err := c.GenerateCompletion(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.Content, again.Content)
	}
}

func TestMockClientIntentSignature(t *testing.T) {
	c := NewMockClient()
	ctx := context.Background()

	res, err := c.GenerateCompletion(ctx, CompletionRequest{
		Prompt: "Classify the intent of this message: Remind me to buy groceries tomorrow",
	})
	require.NoError(t, err)

	var payload struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &payload))
	assert.Equal(t, "create_task", payload.Intent)
	assert.GreaterOrEqual(t, payload.Confidence, 0.85)
}

func TestMockClientUsageAndMetadata(t *testing.T) {
	c := NewMockClient()
	res, err := c.GenerateCompletion(context.Background(), CompletionRequest{Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "mock-v1", res.Model)
	assert.Equal(t, "stop", res.FinishReason)
	assert.Equal(t, res.Usage.PromptTokens+res.Usage.CompletionTokens, res.Usage.TotalTokens)
	assert.Greater(t, res.Usage.TotalTokens, 0)
}

func TestMockClientCancelledContext(t *testing.T) {
	c := NewMockClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GenerateCompletion(ctx, CompletionRequest{Prompt: "hello"})
	assert.Error(t, err)
}

func TestSignatureBuckets(t *testing.T) {
	tests := []struct {
		prompt string
		want   promptSignature
	}{
		{"Classify the intent of the following message", signatureIntent},
		{"Decompose this goal into milestones", signatureGoal},
		{"Generate a list of tasks for this milestone", signatureTask},
		{"Any advice for staying focused?", signatureAdvice},
		{"hello there", signatureChat},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, signatureOf(tt.prompt), tt.prompt)
	}
}
