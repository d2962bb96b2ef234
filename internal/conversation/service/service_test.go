package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/northstar/internal/ai/orchestrator"
	"github.com/northstarhq/northstar/internal/ai/provider"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/conversation/classifier"
	"github.com/northstarhq/northstar/internal/conversation/dispatch"
	"github.com/northstarhq/northstar/internal/conversation/flow"
	"github.com/northstarhq/northstar/internal/conversation/models"
	"github.com/northstarhq/northstar/internal/conversation/store"
	domainservice "github.com/northstarhq/northstar/internal/domain/service"
	domainstore "github.com/northstarhq/northstar/internal/domain/store"
	"github.com/northstarhq/northstar/internal/sync/version"
)

// newTestStack wires the full turn pipeline over the local mock provider and
// in-memory sqlite, using the default confidence threshold.
func newTestStack(t *testing.T) (*Service, *domainservice.Service) {
	return newTestStackWithThreshold(t, 0)
}

func newTestStackWithThreshold(t *testing.T, threshold float64) (*Service, *domainservice.Service) {
	t.Helper()
	log := logger.Default()

	dst, err := domainstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dst.Close() })
	domain := domainservice.NewService(dst, version.NewClock(), nil, log)

	repo, err := store.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	orch := orchestrator.New(orchestrator.Options{
		PrimaryProvider: provider.NameLocal,
		RequestTimeout:  5 * time.Second,
	}, nil, log)

	flowMgr := flow.NewManager(NewDomainHydrator(domain), 30*time.Minute, threshold, log)
	cls := classifier.New(orch, threshold, log)
	executor := dispatch.NewExecutor(dispatch.NewDomainAdapter(domain))

	return NewService(flowMgr, cls, executor, orch, nil, repo, nil, threshold, log), domain
}

func TestProcessMessageCreatesTask(t *testing.T) {
	svc, domain := newTestStack(t)
	ctx := context.Background()

	res, err := svc.ProcessMessage(ctx, "u1", MessageInput{Message: "Remind me to buy groceries tomorrow"})
	require.NoError(t, err)

	assert.Equal(t, models.IntentCreateTask, res.IntentResult.Intent)
	assert.GreaterOrEqual(t, res.IntentResult.Confidence, 0.85)
	assert.False(t, res.RequiresClarification)
	assert.NotEmpty(t, res.SessionID)

	assert.Equal(t, "buy groceries", res.IntentResult.Entities["title"])
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	assert.Equal(t, tomorrow, res.IntentResult.Entities["due_date"])

	require.Len(t, res.NextActions, 1)
	assert.Equal(t, dispatch.ActionExecuteAction, res.NextActions[0].Type)
	assert.Equal(t, models.IntentCreateTask, res.NextActions[0].Action)
	require.Len(t, res.Executions, 1)

	tasks, err := domain.ListTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy groceries", tasks[0].Title)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, tomorrow, tasks[0].DueDate.Format("2006-01-02"))
}

func TestProcessMessageLowConfidenceAsksForClarification(t *testing.T) {
	svc, _ := newTestStack(t)

	res, err := svc.ProcessMessage(context.Background(), "u1", MessageInput{Message: "hmm"})
	require.NoError(t, err)

	assert.Contains(t, []string{models.IntentChatContinuation, models.IntentUnknown}, res.IntentResult.Intent)
	assert.Less(t, res.IntentResult.Confidence, 0.85)
	assert.True(t, res.RequiresClarification)
	require.NotEmpty(t, res.NextActions)
	assert.Equal(t, dispatch.ActionClarificationRequest, res.NextActions[0].Type)
	assert.NotEmpty(t, res.AssistantReply)
}

func TestProcessMessageHonorsConfiguredThreshold(t *testing.T) {
	// Same low-confidence turn as above, but with the threshold lowered below
	// the mock's chat confidence: no clarification is requested.
	svc, _ := newTestStackWithThreshold(t, 0.5)

	res, err := svc.ProcessMessage(context.Background(), "u1", MessageInput{Message: "hmm"})
	require.NoError(t, err)

	assert.False(t, res.RequiresClarification)
	require.NotEmpty(t, res.NextActions)
	assert.Equal(t, dispatch.ActionContinueConversation, res.NextActions[0].Type)
}

func TestProcessMessageEmptyMessageRejected(t *testing.T) {
	svc, _ := newTestStack(t)

	_, err := svc.ProcessMessage(context.Background(), "u1", MessageInput{Message: ""})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestProcessMessageVeryLongMessage(t *testing.T) {
	svc, _ := newTestStack(t)

	long := make([]byte, 20*1024)
	for i := range long {
		long[i] = 'a' + byte(i%26)
		if i%80 == 79 {
			long[i] = ' '
		}
	}
	res, err := svc.ProcessMessage(context.Background(), "u1", MessageInput{Message: string(long)})
	require.NoError(t, err)
	assert.True(t, models.KnownIntents[res.IntentResult.Intent])
}

func TestTurnCountMatchesLogCount(t *testing.T) {
	svc, _ := newTestStack(t)
	ctx := context.Background()

	messages := []string{
		"Remind me to buy groceries tomorrow",
		"I want to set a goal to run a marathon",
		"thanks, that is all",
	}
	var sessionID string
	for _, msg := range messages {
		res, err := svc.ProcessMessage(ctx, "u1", MessageInput{Message: msg, SessionID: sessionID})
		require.NoError(t, err)
		sessionID = res.SessionID
	}

	logs, err := svc.ListLogs(ctx, "u1", sessionID)
	require.NoError(t, err)
	assert.Len(t, logs, len(messages))

	sessions, err := svc.ListSessions(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, len(messages), sessions[0].TurnCount)
	assert.Equal(t, len(logs), sessions[0].TurnCount)
}

func TestCompleteSession(t *testing.T) {
	svc, _ := newTestStack(t)
	ctx := context.Background()

	res, err := svc.ProcessMessage(ctx, "u1", MessageInput{Message: "hello there"})
	require.NoError(t, err)

	require.NoError(t, svc.CompleteSession(ctx, "u1", res.SessionID))
	assert.ErrorIs(t, svc.CompleteSession(ctx, "u1", res.SessionID), store.ErrNotFound)

	sessions, err := svc.ListSessions(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.SessionCompleted, sessions[0].Status)
}

func TestAddFeedback(t *testing.T) {
	svc, _ := newTestStack(t)
	ctx := context.Background()

	res, err := svc.ProcessMessage(ctx, "u1", MessageInput{Message: "Remind me to buy groceries tomorrow"})
	require.NoError(t, err)

	logs, err := svc.ListLogs(ctx, "u1", res.SessionID)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	f, err := svc.AddFeedback(ctx, "u1", FeedbackInput{
		LogID:           logs[0].ID,
		CorrectedIntent: models.IntentCreateGoal,
		FeedbackType:    models.FeedbackWrongIntent,
	})
	require.NoError(t, err)
	assert.Equal(t, models.IntentCreateTask, f.OriginalIntent)
	assert.Equal(t, models.IntentCreateGoal, f.CorrectedIntent)

	// Feedback on someone else's log is invisible
	_, err = svc.AddFeedback(ctx, "u2", FeedbackInput{LogID: logs[0].ID})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
