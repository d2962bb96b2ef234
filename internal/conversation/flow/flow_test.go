package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/conversation/classifier"
	"github.com/northstarhq/northstar/internal/conversation/models"
)

type staticHydrator struct {
	calls int
	mu    sync.Mutex
}

func (h *staticHydrator) Hydrate(ctx context.Context, userID string) (classifier.Context, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return classifier.Context{LifeAreas: []string{"Health"}}, nil
}

func newTestManager() *Manager {
	return NewManager(&staticHydrator{}, 30*time.Minute, 0, logger.Default())
}

func TestWithSessionCreatesAndReuses(t *testing.T) {
	m := newTestManager()

	var firstID string
	err := m.WithSession("u1", "", func(s *models.Session) error {
		firstID = s.ID
		assert.Equal(t, models.SessionActive, s.Status)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, firstID)

	err = m.WithSession("u1", "", func(s *models.Session) error {
		assert.Equal(t, firstID, s.ID)
		return nil
	})
	require.NoError(t, err)

	// A different client-supplied id rotates the session.
	err = m.WithSession("u1", "client-session", func(s *models.Session) error {
		assert.Equal(t, "client-session", s.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestWithSessionRotatesAfterIdleTimeout(t *testing.T) {
	m := newTestManager()
	now := time.Now()
	m.now = func() time.Time { return now }

	var firstID string
	_ = m.WithSession("u1", "", func(s *models.Session) error {
		firstID = s.ID
		return nil
	})

	now = now.Add(31 * time.Minute)
	_ = m.WithSession("u1", "", func(s *models.Session) error {
		assert.NotEqual(t, firstID, s.ID)
		return nil
	})
}

func TestUpdateState(t *testing.T) {
	m := newTestManager()
	s := m.newSession("u1", "", time.Now())

	m.UpdateState(s, models.Classification{Intent: models.IntentCreateTask, Confidence: 0.9,
		Entities: map[string]string{"title": "buy groceries"}})
	assert.Equal(t, 1, s.TurnCount)
	assert.Equal(t, 1, s.SuccessfulIntents)
	assert.Equal(t, 0, s.FailedIntents)
	assert.InDelta(t, 0.9, s.AvgConfidence, 1e-9)
	assert.Empty(t, s.IncompleteEntities)

	m.UpdateState(s, models.Classification{Intent: models.IntentCreateGoal, Confidence: 0.7})
	assert.Equal(t, 2, s.TurnCount)
	assert.Equal(t, 1, s.FailedIntents)
	assert.InDelta(t, 0.8, s.AvgConfidence, 1e-9)
	assert.Equal(t, []string{"title"}, s.IncompleteEntities)
	assert.Equal(t, models.IntentCreateTask, s.ContextData["previous_intent"])
}

func TestTurnsAreSerializedPerUser(t *testing.T) {
	m := newTestManager()

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithSession("u1", "", func(s *models.Session) error {
				m.UpdateState(s, models.Classification{Intent: models.IntentChatContinuation, Confidence: 0.9})
				return nil
			})
		}()
	}
	wg.Wait()

	s, ok := m.Session("u1")
	require.True(t, ok)
	assert.Equal(t, turns, s.TurnCount)
	assert.Equal(t, turns, s.SuccessfulIntents)
}

func TestCompleteAndSweepIdle(t *testing.T) {
	m := newTestManager()
	now := time.Now()
	m.now = func() time.Time { return now }

	var id string
	_ = m.WithSession("u1", "", func(s *models.Session) error { id = s.ID; return nil })
	_ = m.WithSession("u2", "", func(s *models.Session) error { return nil })

	assert.True(t, m.Complete("u1", id))
	assert.False(t, m.Complete("u1", id)) // already completed

	now = now.Add(time.Hour)
	assert.Equal(t, 1, m.SweepIdle()) // only u2 was still active

	s, _ := m.Session("u2")
	assert.Equal(t, models.SessionAbandoned, s.Status)
}

func TestUserContextCaches(t *testing.T) {
	h := &staticHydrator{}
	m := NewManager(h, 30*time.Minute, 0, logger.Default())

	ctx := context.Background()
	first := m.UserContext(ctx, "u1")
	assert.Equal(t, []string{"Health"}, first.LifeAreas)
	_ = m.UserContext(ctx, "u1")
	assert.Equal(t, 1, h.calls)

	m.InvalidateContext("u1")
	_ = m.UserContext(ctx, "u1")
	assert.Equal(t, 2, h.calls)
}
