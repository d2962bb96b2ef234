package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/northstar/internal/conversation/models"
)

func TestPlanClarificationOnLowConfidence(t *testing.T) {
	actions := PlanNextActions(models.Classification{
		Intent:     models.IntentCreateGoal,
		Confidence: 0.6,
		Entities:   map[string]string{"title": "run a marathon"},
	}, nil, 0)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionClarificationRequest, actions[0].Type)
	assert.Contains(t, actions[0].SuggestedIntents, models.IntentCreateGoal)
}

func TestPlanRespectsConfiguredThreshold(t *testing.T) {
	result := models.Classification{
		Intent:     models.IntentCreateGoal,
		Confidence: 0.7,
		Entities:   map[string]string{"title": "run a marathon"},
	}

	actions := PlanNextActions(result, nil, 0.6)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionExecuteAction, actions[0].Type)

	actions = PlanNextActions(result, nil, 0.9)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionClarificationRequest, actions[0].Type)
}

func TestPlanEntityRequestWhenTitleMissing(t *testing.T) {
	actions := PlanNextActions(models.Classification{
		Intent:     models.IntentCreateTask,
		Confidence: 0.9,
	}, nil, 0)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionEntityRequest, actions[0].Type)
	assert.Equal(t, "title", actions[0].RequiredEntity)
	assert.Equal(t, "What would you like to call this task?", actions[0].Message)
}

func TestPlanExecuteWhenComplete(t *testing.T) {
	actions := PlanNextActions(models.Classification{
		Intent:     models.IntentCreateTask,
		Confidence: 0.9,
		Entities:   map[string]string{"title": "buy groceries", "due_date": "2026-03-05"},
	}, nil, 0)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionExecuteAction, actions[0].Type)
	assert.Equal(t, models.IntentCreateTask, actions[0].Action)
	assert.Equal(t, "buy groceries", actions[0].Entities["title"])
}

func TestPlanAdviceAndContinuation(t *testing.T) {
	actions := PlanNextActions(models.Classification{
		Intent:     models.IntentGetAdvice,
		Confidence: 0.9,
		Entities:   map[string]string{"life_area": "Health"},
	}, nil, 0)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionProvideAdvice, actions[0].Type)
	assert.Equal(t, "Health", actions[0].Context["life_area"])

	session := &models.Session{ID: "s1", TurnCount: 3, CurrentIntent: models.IntentChatContinuation}
	actions = PlanNextActions(models.Classification{
		Intent:     models.IntentChatContinuation,
		Confidence: 0.9,
	}, session, 0)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionContinueConversation, actions[0].Type)
	assert.Equal(t, "s1", actions[0].Context["session_id"])
}

func TestPlanRateLifeAreaNeedsLifeArea(t *testing.T) {
	actions := PlanNextActions(models.Classification{
		Intent:     models.IntentRateLifeArea,
		Confidence: 0.9,
		Entities:   map[string]string{"score": "7"},
	}, nil, 0)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionEntityRequest, actions[0].Type)
	assert.Equal(t, "life_area", actions[0].RequiredEntity)
}

// stubDomain records calls for executor tests.
type stubDomain struct {
	lastOp       string
	lastEntities map[string]string
}

func (s *stubDomain) record(op string, entities map[string]string) (any, error) {
	s.lastOp = op
	s.lastEntities = entities
	return map[string]string{"op": op}, nil
}

func (s *stubDomain) CreateGoal(ctx context.Context, userID string, e map[string]string) (any, error) {
	return s.record("create_goal", e)
}
func (s *stubDomain) CreateTask(ctx context.Context, userID string, e map[string]string) (any, error) {
	return s.record("create_task", e)
}
func (s *stubDomain) CreateProject(ctx context.Context, userID string, e map[string]string) (any, error) {
	return s.record("create_project", e)
}
func (s *stubDomain) UpdateSettings(ctx context.Context, userID string, e map[string]string) (any, error) {
	return s.record("update_settings", e)
}
func (s *stubDomain) RateLifeArea(ctx context.Context, userID string, e map[string]string) (any, error) {
	return s.record("rate_life_area", e)
}

func TestExecutorRoutesActions(t *testing.T) {
	stub := &stubDomain{}
	ex := NewExecutor(stub)

	res, err := ex.Execute(context.Background(), "u1", Action{
		Type:     ActionExecuteAction,
		Action:   "create_task",
		Entities: map[string]string{"title": "buy groceries"},
	})
	require.NoError(t, err)
	assert.Equal(t, "create_task", res.Action)
	assert.Equal(t, "create_task", stub.lastOp)
	assert.Equal(t, "buy groceries", stub.lastEntities["title"])

	_, err = ex.Execute(context.Background(), "u1", Action{Action: "delete_everything"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestParseDurationMinutes(t *testing.T) {
	assert.Equal(t, 30, parseDurationMinutes("30 minutes"))
	assert.Equal(t, 120, parseDurationMinutes("2 hours"))
	assert.Equal(t, 1440, parseDurationMinutes("1 days"))
	assert.Equal(t, 0, parseDurationMinutes("soon"))
}
