package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/northstarhq/northstar/internal/ai/orchestrator"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/conversation/models"
)

// scriptedCompleter returns a fixed content or error envelope.
type scriptedCompleter struct {
	content string
	fail    bool
}

func (s *scriptedCompleter) Chat(ctx context.Context, req orchestrator.Request) *orchestrator.AIResponse {
	if s.fail {
		return &orchestrator.AIResponse{Status: orchestrator.StatusError, ErrorMessage: "provider down"}
	}
	return &orchestrator.AIResponse{Status: orchestrator.StatusSuccess, Content: s.content}
}

func newTestClassifier(c Completer) *Classifier {
	cl := New(c, 0, logger.Default())
	cl.extractor.now = func() time.Time { return fixedNow }
	return cl
}

func TestClassifyModelHighConfidence(t *testing.T) {
	c := newTestClassifier(&scriptedCompleter{
		content: `{"intent": "create_goal", "confidence": 0.93, "entities": {}, "reasoning": "explicit goal phrasing"}`,
	})

	res := c.Classify(context.Background(), Params{Message: "I want to set a goal to run a marathon"})
	assert.Equal(t, models.IntentCreateGoal, res.Intent)
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
	assert.Equal(t, models.SourceModel, res.Source)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "run a marathon", res.Entities["title"])
}

func TestClassifyMergePrefersHigherConfidence(t *testing.T) {
	// Stage A is unsure; the pattern catalog scores create_task higher.
	c := newTestClassifier(&scriptedCompleter{
		content: `{"intent": "chat_continuation", "confidence": 0.55, "entities": {}, "reasoning": "unclear"}`,
	})

	res := c.Classify(context.Background(), Params{Message: "Remind me to buy groceries tomorrow"})
	assert.Equal(t, models.IntentCreateTask, res.Intent)
	assert.GreaterOrEqual(t, res.Confidence, 0.85)
	assert.Equal(t, models.SourcePatterns, res.Source)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, "buy groceries", res.Entities["title"])
	assert.Equal(t, "2026-03-05", res.Entities["due_date"])
}

func TestClassifyModelFailureFallsBack(t *testing.T) {
	c := newTestClassifier(&scriptedCompleter{fail: true})

	res := c.Classify(context.Background(), Params{Message: "Remind me to buy groceries tomorrow"})
	assert.Equal(t, models.IntentCreateTask, res.Intent)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, models.SourcePatterns, res.Source)
}

func TestClassifyUnparseableOutputFallsBack(t *testing.T) {
	c := newTestClassifier(&scriptedCompleter{content: "I think this is a goal."})

	res := c.Classify(context.Background(), Params{Message: "just saying hello"})
	assert.Equal(t, models.IntentChatContinuation, res.Intent)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
	assert.True(t, res.FallbackUsed)
}

func TestParseStageARepairsDamagedJSON(t *testing.T) {
	fenced := "```json\n{\"intent\": \"get_advice\", \"confidence\": 0.9, \"entities\": {}, \"reasoning\": \"asks for advice\"},\n```"
	payload, err := parseStageA(fenced)
	assert.NoError(t, err)
	assert.Equal(t, models.IntentGetAdvice, payload.Intent)
	assert.InDelta(t, 0.9, payload.Confidence, 1e-9)
}

func TestParseStageANormalizesUnknownIntent(t *testing.T) {
	payload, err := parseStageA(`{"intent": "order_pizza", "confidence": 1.7, "entities": {}, "reasoning": ""}`)
	assert.NoError(t, err)
	assert.Equal(t, models.IntentUnknown, payload.Intent)
	assert.InDelta(t, 1.0, payload.Confidence, 1e-9)
}

func TestClassifyRecordsProcessingTime(t *testing.T) {
	c := newTestClassifier(&scriptedCompleter{
		content: `{"intent": "chat_continuation", "confidence": 0.9, "entities": {}, "reasoning": ""}`,
	})
	res := c.Classify(context.Background(), Params{Message: "hello"})
	assert.GreaterOrEqual(t, res.ProcessingTimeMs, int64(0))
}
