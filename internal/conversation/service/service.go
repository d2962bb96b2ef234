// Package service processes conversation turns: classify, update session
// state, plan and execute next actions, log the turn and compose the reply.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/ai/orchestrator"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/conversation/classifier"
	"github.com/northstarhq/northstar/internal/conversation/dispatch"
	"github.com/northstarhq/northstar/internal/conversation/flow"
	"github.com/northstarhq/northstar/internal/conversation/models"
	"github.com/northstarhq/northstar/internal/conversation/store"
	"github.com/northstarhq/northstar/internal/events"
	"github.com/northstarhq/northstar/internal/events/bus"
)

// ErrEmptyMessage is returned when a turn carries no message text.
var ErrEmptyMessage = errors.New("message must not be empty")

// defaultConfidenceThreshold applies when no threshold is configured.
const defaultConfidenceThreshold = 0.85

// Profile is the assistant-profile subset a turn needs. Nil pointers mean
// "use defaults".
type Profile struct {
	ID                  string
	Model               string
	DialogueTemperature *float64
	IntentTemperature   *float64
	CustomInstructions  string
}

// ProfileProvider resolves the assistant profile for a turn: the named one
// when assistantID is set (subject to access control), the user's default
// otherwise. Implementations return nil when the user has none.
type ProfileProvider interface {
	ActiveProfile(ctx context.Context, userID, assistantID string) (*Profile, error)
}

// TurnResult is the envelope returned for one processed message.
type TurnResult struct {
	SessionID             string                      `json:"session_id"`
	IntentResult          models.Classification       `json:"intent_result"`
	ConversationState     models.Session              `json:"conversation_state"`
	NextActions           []dispatch.Action           `json:"next_actions"`
	RequiresClarification bool                        `json:"requires_clarification"`
	Executions            []*dispatch.ExecutionResult `json:"executions,omitempty"`
	AssistantReply        string                      `json:"assistant_reply,omitempty"`
}

// Service coordinates one conversation turn end to end.
type Service struct {
	flow       *flow.Manager
	classifier *classifier.Classifier
	executor   *dispatch.Executor
	completer  classifier.Completer
	profiles   ProfileProvider
	repo       store.Repository
	bus        bus.EventBus
	threshold  float64
	logger     *logger.Logger
}

// NewService creates the conversation service. profiles may be nil when
// assistant profiles are disabled. confidenceThreshold gates clarification
// and action execution; zero or negative selects the default.
func NewService(
	flowMgr *flow.Manager,
	cls *classifier.Classifier,
	executor *dispatch.Executor,
	completer classifier.Completer,
	profiles ProfileProvider,
	repo store.Repository,
	eventBus bus.EventBus,
	confidenceThreshold float64,
	log *logger.Logger,
) *Service {
	if confidenceThreshold <= 0 {
		confidenceThreshold = defaultConfidenceThreshold
	}
	return &Service{
		flow:       flowMgr,
		classifier: cls,
		executor:   executor,
		completer:  completer,
		profiles:   profiles,
		repo:       repo,
		bus:        eventBus,
		threshold:  confidenceThreshold,
		logger:     log.WithFields(zap.String("component", "conversation-service")),
	}
}

// MessageInput describes one incoming turn.
type MessageInput struct {
	Message     string
	SessionID   string
	AssistantID string
}

// ProcessMessage runs one turn for the user. Turns for the same user are
// serialized by the flow manager.
func (s *Service) ProcessMessage(ctx context.Context, userID string, in MessageInput) (*TurnResult, error) {
	if in.Message == "" {
		return nil, ErrEmptyMessage
	}
	message := in.Message

	var result *TurnResult
	err := s.flow.WithSession(userID, in.SessionID, func(session *models.Session) error {
		profile := s.activeProfile(ctx, userID, in.AssistantID)
		snapshot := s.flow.UserContext(ctx, userID)
		snapshot.PreviousIntent = session.CurrentIntent

		params := classifier.Params{
			UserID:  userID,
			Message: message,
			Context: snapshot,
		}
		if profile != nil {
			params.IntentTemperature = profile.IntentTemperature
			params.Model = profile.Model
		}
		classification := s.classifier.Classify(ctx, params)

		previousIntent := session.CurrentIntent
		s.flow.UpdateState(session, classification)
		actions := dispatch.PlanNextActions(classification, session, s.threshold)

		turn := &TurnResult{
			SessionID:             session.ID,
			IntentResult:          classification,
			NextActions:           actions,
			RequiresClarification: classification.Confidence < s.threshold,
		}
		for _, action := range actions {
			switch action.Type {
			case dispatch.ActionExecuteAction:
				execution, err := s.executor.Execute(ctx, userID, action)
				if err != nil {
					s.logger.Warn("action execution failed",
						zap.String("user_id", userID),
						zap.String("action", action.Action),
						zap.Error(err))
					turn.AssistantReply = executionFailureReply(action.Action, err)
					continue
				}
				turn.Executions = append(turn.Executions, execution)
				s.flow.InvalidateContext(userID)
				turn.AssistantReply = executionReply(action.Action, classification.Entities)
			case dispatch.ActionProvideAdvice, dispatch.ActionContinueConversation:
				turn.AssistantReply = s.generateReply(ctx, userID, message, snapshot, profile)
			case dispatch.ActionClarificationRequest, dispatch.ActionEntityRequest:
				turn.AssistantReply = action.Message
			}
		}
		turn.ConversationState = *session

		s.persistTurn(ctx, session, message, classification, previousIntent, turn)
		result = turn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) activeProfile(ctx context.Context, userID, assistantID string) *Profile {
	if s.profiles == nil {
		return nil
	}
	profile, err := s.profiles.ActiveProfile(ctx, userID, assistantID)
	if err != nil {
		s.logger.Warn("failed to load assistant profile", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return profile
}

// Classify runs intent classification only, without touching session state.
func (s *Service) Classify(ctx context.Context, userID, message string) (models.Classification, error) {
	if message == "" {
		return models.Classification{}, ErrEmptyMessage
	}
	snapshot := s.flow.UserContext(ctx, userID)
	profile := s.activeProfile(ctx, userID, "")
	params := classifier.Params{UserID: userID, Message: message, Context: snapshot}
	if profile != nil {
		params.IntentTemperature = profile.IntentTemperature
		params.Model = profile.Model
	}
	return s.classifier.Classify(ctx, params), nil
}

// generateReply asks the orchestrator for a conversational response using the
// profile's dialogue temperature.
func (s *Service) generateReply(ctx context.Context, userID, message string, snapshot classifier.Context, profile *Profile) string {
	req := orchestrator.Request{
		UseCase:      orchestrator.UseCaseConversation,
		Prompt:       message,
		SystemPrompt: replySystemPrompt(snapshot, profile),
		UserID:       userID,
	}
	if profile != nil {
		req.Temperature = profile.DialogueTemperature
		req.Model = profile.Model
	}
	resp := s.completer.Chat(ctx, req)
	if resp.Status != orchestrator.StatusSuccess {
		return "I'm having trouble responding right now. Please try again in a moment."
	}
	return resp.Content
}

func replySystemPrompt(snapshot classifier.Context, profile *Profile) string {
	prompt := "You are a supportive personal goal-management assistant. Keep replies short and actionable."
	if len(snapshot.RecentGoals) > 0 {
		prompt += "\nThe user's current goals: "
		for i, g := range snapshot.RecentGoals {
			if i > 0 {
				prompt += "; "
			}
			prompt += g
		}
	}
	if profile != nil && profile.CustomInstructions != "" {
		prompt += "\n" + profile.CustomInstructions
	}
	return prompt
}

func executionReply(action string, entities map[string]string) string {
	title := entities["title"]
	switch action {
	case models.IntentCreateGoal:
		return fmt.Sprintf("Done - I've created the goal %q.", title)
	case models.IntentCreateTask:
		if due := entities["due_date"]; due != "" {
			return fmt.Sprintf("Done - I've added the task %q, due %s.", title, due)
		}
		return fmt.Sprintf("Done - I've added the task %q.", title)
	case models.IntentCreateProject:
		return fmt.Sprintf("Done - I've set up the project %q.", title)
	case models.IntentUpdateSettings:
		return "Your settings have been updated."
	case models.IntentRateLifeArea:
		return fmt.Sprintf("Thanks - I've recorded your %s rating.", entities["life_area"])
	default:
		return "Done."
	}
}

func executionFailureReply(action string, err error) string {
	return fmt.Sprintf("I couldn't complete %s: %s", action, err.Error())
}

// persistTurn stores the session snapshot and the turn log; failures are
// logged, never surfaced to the user.
func (s *Service) persistTurn(ctx context.Context, session *models.Session, message string, classification models.Classification, previousIntent string, turn *TurnResult) {
	if err := s.repo.UpsertSession(ctx, session); err != nil {
		s.logger.Error("failed to persist session", zap.String("session_id", session.ID), zap.Error(err))
	}
	logEntry := &models.Log{
		ID:               uuid.New().String(),
		UserID:           session.UserID,
		SessionID:        session.ID,
		TurnNumber:       session.TurnCount,
		UserMessage:      message,
		Intent:           classification.Intent,
		Confidence:       classification.Confidence,
		Entities:         classification.Entities,
		Reasoning:        classification.Reasoning,
		FallbackUsed:     classification.FallbackUsed,
		ProcessingTimeMs: classification.ProcessingTimeMs,
		PreviousIntent:   previousIntent,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.InsertLog(ctx, logEntry); err != nil {
		s.logger.Error("failed to persist log", zap.String("session_id", session.ID), zap.Error(err))
	}
	s.publish(ctx, events.ConversationTurn, map[string]interface{}{
		"session_id": session.ID,
		"user_id":    session.UserID,
		"intent":     classification.Intent,
		"confidence": classification.Confidence,
		"turn":       session.TurnCount,
	})
}

// CompleteSession marks the session completed and persists the final state.
func (s *Service) CompleteSession(ctx context.Context, userID, sessionID string) error {
	if !s.flow.Complete(userID, sessionID) {
		return store.ErrNotFound
	}
	session, ok := s.flow.Session(userID)
	if ok && session.ID == sessionID {
		if err := s.repo.UpsertSession(ctx, &session); err != nil {
			return err
		}
	}
	s.publish(ctx, events.ConversationCompleted, map[string]interface{}{
		"session_id": sessionID, "user_id": userID,
	})
	return nil
}

// ListSessions returns the user's recent sessions from the durable store.
func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error) {
	return s.repo.ListSessions(ctx, userID, limit)
}

// ListLogs returns the classified turns of a session.
func (s *Service) ListLogs(ctx context.Context, userID, sessionID string) ([]*models.Log, error) {
	return s.repo.ListLogs(ctx, userID, sessionID)
}

// FeedbackInput is a user correction on a classified turn.
type FeedbackInput struct {
	LogID           string
	CorrectedIntent string
	FeedbackType    models.FeedbackType
	Comment         string
}

// AddFeedback records an intent correction against an existing log entry.
func (s *Service) AddFeedback(ctx context.Context, userID string, in FeedbackInput) (*models.Feedback, error) {
	if in.CorrectedIntent != "" && !models.KnownIntents[in.CorrectedIntent] {
		return nil, fmt.Errorf("unknown intent: %s", in.CorrectedIntent)
	}
	logEntry, err := s.repo.GetLog(ctx, userID, in.LogID)
	if err != nil {
		return nil, err
	}
	feedbackType := in.FeedbackType
	switch feedbackType {
	case models.FeedbackWrongIntent, models.FeedbackMissingEntity, models.FeedbackWrongEntity:
	default:
		feedbackType = models.FeedbackWrongIntent
	}
	f := &models.Feedback{
		ID:                 uuid.New().String(),
		LogID:              logEntry.ID,
		UserID:             userID,
		OriginalIntent:     logEntry.Intent,
		OriginalConfidence: logEntry.Confidence,
		CorrectedIntent:    in.CorrectedIntent,
		FeedbackType:       feedbackType,
		Comment:            in.Comment,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.repo.InsertFeedback(ctx, f); err != nil {
		return nil, err
	}
	s.publish(ctx, events.IntentFeedbackAdded, map[string]interface{}{
		"log_id": f.LogID, "user_id": userID, "corrected_intent": f.CorrectedIntent,
	})
	return f, nil
}

// SweepIdleSessions abandons idle sessions; run periodically.
func (s *Service) SweepIdleSessions() int {
	return s.flow.SweepIdle()
}

func (s *Service) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, eventType, bus.NewEvent(eventType, "conversation-service", payload)); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}
