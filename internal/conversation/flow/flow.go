// Package flow holds per-user conversation state: session lifecycle, turn
// accounting and the hydrated user-context cache. Turns for one user are
// serialized; different users proceed in parallel.
package flow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/conversation/classifier"
	"github.com/northstarhq/northstar/internal/conversation/models"
)

// defaultSuccessThreshold splits classified turns into successful and failed
// when no threshold is configured.
const defaultSuccessThreshold = 0.85

// contextCacheSize bounds the hydrated-context LRU.
const contextCacheSize = 1024

// ContextHydrator loads a user's situation snapshot (recent activity,
// preferences, life areas) for the classifier prompt.
type ContextHydrator interface {
	Hydrate(ctx context.Context, userID string) (classifier.Context, error)
}

type userEntry struct {
	mu      sync.Mutex
	session *models.Session
}

// Manager owns the sessions map and the context cache.
type Manager struct {
	mu       sync.Mutex
	users    map[string]*userEntry
	ctxCache *expirable.LRU[string, classifier.Context]

	hydrator         ContextHydrator
	idleTimeout      time.Duration
	successThreshold float64
	logger           *logger.Logger

	now func() time.Time
}

// NewManager creates a flow manager. Context snapshots are cached for a
// fraction of the idle window so mid-conversation turns reuse them.
// confidenceThreshold splits turns into successful and failed for session
// accounting; zero or negative selects the default.
func NewManager(hydrator ContextHydrator, idleTimeout time.Duration, confidenceThreshold float64, log *logger.Logger) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	if confidenceThreshold <= 0 {
		confidenceThreshold = defaultSuccessThreshold
	}
	return &Manager{
		users:            make(map[string]*userEntry),
		ctxCache:         expirable.NewLRU[string, classifier.Context](contextCacheSize, nil, idleTimeout/6),
		hydrator:         hydrator,
		idleTimeout:      idleTimeout,
		successThreshold: confidenceThreshold,
		logger:           log.WithFields(zap.String("component", "flow-manager")),
		now:              time.Now,
	}
}

func (m *Manager) entry(userID string) *userEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.users[userID]
	if !ok {
		e = &userEntry{}
		m.users[userID] = e
	}
	return e
}

// WithSession runs fn while holding the user's turn lock, creating or rotating
// the session first. A non-empty sessionID that differs from the live session
// starts a fresh one under the supplied id. An idle-expired session is
// abandoned and replaced.
func (m *Manager) WithSession(userID, sessionID string, fn func(*models.Session) error) error {
	e := m.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now()
	s := e.session
	switch {
	case s == nil:
		s = m.newSession(userID, sessionID, now)
	case s.Status != models.SessionActive:
		s = m.newSession(userID, sessionID, now)
	case now.Sub(s.LastActivity) > m.idleTimeout:
		s.Status = models.SessionAbandoned
		s = m.newSession(userID, sessionID, now)
	case sessionID != "" && sessionID != s.ID:
		s = m.newSession(userID, sessionID, now)
	}
	e.session = s
	return fn(s)
}

func (m *Manager) newSession(userID, sessionID string, now time.Time) *models.Session {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	return &models.Session{
		ID:           sessionID,
		UserID:       userID,
		SessionType:  "chat",
		Status:       models.SessionActive,
		ContextData:  map[string]string{},
		StartedAt:    now,
		LastActivity: now,
	}
}

// UpdateState folds a classification into the session: turn count, intent
// success accounting, running mean confidence and the missing-entity set.
func (m *Manager) UpdateState(s *models.Session, result models.Classification) {
	s.TurnCount++
	previous := s.CurrentIntent
	s.CurrentIntent = result.Intent
	if previous != "" {
		s.ContextData["previous_intent"] = previous
	}
	if result.Confidence >= m.successThreshold {
		s.SuccessfulIntents++
	} else {
		s.FailedIntents++
	}
	classified := s.SuccessfulIntents + s.FailedIntents
	s.AvgConfidence += (result.Confidence - s.AvgConfidence) / float64(classified)

	s.IncompleteEntities = nil
	for _, name := range models.RequiredEntities(result.Intent) {
		if result.Entities[name] == "" {
			s.IncompleteEntities = append(s.IncompleteEntities, name)
		}
	}
	s.LastActivity = m.now()
}

// Complete marks the user's live session completed.
func (m *Manager) Complete(userID, sessionID string) bool {
	e := m.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || e.session.ID != sessionID || e.session.Status != models.SessionActive {
		return false
	}
	now := m.now()
	e.session.Status = models.SessionCompleted
	e.session.CompletedAt = &now
	return true
}

// Session returns a copy of the user's live session, if any.
func (m *Manager) Session(userID string) (models.Session, bool) {
	e := m.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return models.Session{}, false
	}
	return *e.session, true
}

// UserContext returns the cached context snapshot for a user, hydrating on
// miss.
func (m *Manager) UserContext(ctx context.Context, userID string) classifier.Context {
	if snapshot, ok := m.ctxCache.Get(userID); ok {
		return snapshot
	}
	snapshot, err := m.hydrator.Hydrate(ctx, userID)
	if err != nil {
		m.logger.Warn("context hydration failed", zap.String("user_id", userID), zap.Error(err))
		return classifier.Context{}
	}
	m.ctxCache.Add(userID, snapshot)
	return snapshot
}

// InvalidateContext drops the user's cached snapshot after a domain mutation.
func (m *Manager) InvalidateContext(userID string) {
	m.ctxCache.Remove(userID)
}

// SweepIdle abandons sessions idle past the window and drops empty entries.
// Returns the number of sessions abandoned.
func (m *Manager) SweepIdle() int {
	m.mu.Lock()
	entries := make(map[string]*userEntry, len(m.users))
	for k, v := range m.users {
		entries[k] = v
	}
	m.mu.Unlock()

	now := m.now()
	swept := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.session != nil && e.session.Status == models.SessionActive &&
			now.Sub(e.session.LastActivity) > m.idleTimeout {
			e.session.Status = models.SessionAbandoned
			swept++
		}
		e.mu.Unlock()
	}
	return swept
}
