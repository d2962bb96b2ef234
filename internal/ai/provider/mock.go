package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// MockClient is a deterministic local provider used in tests and as the
// universal fallback in the orchestrator chain. Responses are a pure function
// of the prompt: the same prompt always yields the same content, selected from
// a bounded template table by a stable hash.
type MockClient struct{}

var _ Client = (*MockClient)(nil)

// NewMockClient creates the local mock provider.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Name returns the provider identifier.
func (c *MockClient) Name() string { return NameLocal }

// promptSignature buckets a prompt by its lexical features.
type promptSignature int

const (
	signatureIntent promptSignature = iota
	signatureGoal
	signatureTask
	signatureAdvice
	signatureChat
)

func signatureOf(prompt string) promptSignature {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "classify") && strings.Contains(p, "intent"):
		return signatureIntent
	case strings.Contains(p, "decompose") || strings.Contains(p, "milestone"):
		return signatureGoal
	case strings.Contains(p, "generate") && strings.Contains(p, "task"):
		return signatureTask
	case strings.Contains(p, "advice") || strings.Contains(p, "suggest"):
		return signatureAdvice
	default:
		return signatureChat
	}
}

var chatTemplates = []string{
	"That sounds like a great step forward. What outcome would make this feel successful to you?",
	"I hear you. Let's break this down together - what part matters most right now?",
	"Got it. Progress on goals usually starts with one small action. Which one could you take today?",
	"Thanks for sharing that. Would you like to turn this into a concrete goal or task?",
}

var adviceTemplates = []string{
	"Consistency beats intensity. Pick a small daily action tied to this area and track it for two weeks.",
	"Start by clarifying what success looks like, then work backwards to the first concrete step.",
	"Consider time-boxing the work: thirty focused minutes a day compounds quickly.",
}

var goalTemplates = []string{
	`{"milestones": [{"title": "Define the outcome", "order": 1}, {"title": "Plan the first week", "order": 2}, {"title": "Review progress", "order": 3}]}`,
	`{"milestones": [{"title": "Research and baseline", "order": 1}, {"title": "Build the habit", "order": 2}, {"title": "Measure and adjust", "order": 3}]}`,
}

var taskTemplates = []string{
	`{"tasks": [{"title": "Outline the first step", "priority": "medium"}, {"title": "Schedule a review", "priority": "low"}]}`,
	`{"tasks": [{"title": "Block time on the calendar", "priority": "high"}, {"title": "Collect what you need", "priority": "medium"}]}`,
}

// GenerateCompletion returns a canned response shaped by the prompt's lexical
// features. Same prompt, same content.
func (c *MockClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr(NameLocal, "", err)
	}

	var content string
	switch signatureOf(req.Prompt) {
	case signatureIntent:
		content = mockIntentJSON(req.Prompt)
	case signatureGoal:
		content = pick(goalTemplates, req.Prompt)
	case signatureTask:
		content = pick(taskTemplates, req.Prompt)
	case signatureAdvice:
		content = pick(adviceTemplates, req.Prompt)
	default:
		content = pick(chatTemplates, req.Prompt)
	}

	promptTokens := approxTokens(req.Prompt)
	completionTokens := approxTokens(content)
	return &CompletionResult{
		Content: content,
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		Model:        "mock-v1",
		FinishReason: "stop",
	}, nil
}

// mockIntentJSON produces a classification payload from keyword features of
// the user message embedded in the prompt.
func mockIntentJSON(prompt string) string {
	p := strings.ToLower(prompt)
	intent := "chat_continuation"
	confidence := 0.6
	switch {
	case containsAny(p, "remind me", "todo", "need to", "don't forget", "task"):
		intent, confidence = "create_task", 0.92
	case containsAny(p, "goal", "want to achieve", "resolution", "aspire"):
		intent, confidence = "create_goal", 0.9
	case containsAny(p, "project", "initiative"):
		intent, confidence = "create_project", 0.88
	case containsAny(p, "rate", "satisfaction", "how happy"):
		intent, confidence = "rate_life_area", 0.87
	case containsAny(p, "advice", "suggest", "recommend", "how do i", "how can i"):
		intent, confidence = "get_advice", 0.86
	case containsAny(p, "settings", "preference", "language", "timezone"):
		intent, confidence = "update_settings", 0.86
	}
	return fmt.Sprintf(`{"intent": %q, "confidence": %.2f, "entities": {}, "reasoning": "keyword match"}`, intent, confidence)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// pick selects a template by a stable hash of the prompt.
func pick(templates []string, prompt string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return templates[int(h.Sum32())%len(templates)]
}

// approxTokens estimates token usage at roughly four characters per token.
func approxTokens(s string) int {
	n := len(s) / 4
	if n == 0 && len(s) > 0 {
		n = 1
	}
	return n
}
