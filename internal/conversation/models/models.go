// Package models defines conversation sessions, per-turn logs, classified
// intents and intent feedback.
package models

import "time"

// Intent names produced by the classifier.
const (
	IntentCreateGoal       = "create_goal"
	IntentCreateTask       = "create_task"
	IntentCreateProject    = "create_project"
	IntentUpdateSettings   = "update_settings"
	IntentRateLifeArea     = "rate_life_area"
	IntentChatContinuation = "chat_continuation"
	IntentGetAdvice        = "get_advice"
	IntentUnknown          = "unknown"
)

// KnownIntents is the closed intent set; anything else normalizes to unknown.
var KnownIntents = map[string]bool{
	IntentCreateGoal:       true,
	IntentCreateTask:       true,
	IntentCreateProject:    true,
	IntentUpdateSettings:   true,
	IntentRateLifeArea:     true,
	IntentChatContinuation: true,
	IntentGetAdvice:        true,
	IntentUnknown:          true,
}

// IsCreateIntent reports whether the intent creates a record.
func IsCreateIntent(intent string) bool {
	return intent == IntentCreateGoal || intent == IntentCreateTask || intent == IntentCreateProject
}

// RequiredEntities returns the entity names an intent needs before it can be
// executed.
func RequiredEntities(intent string) []string {
	switch intent {
	case IntentCreateGoal, IntentCreateTask, IntentCreateProject:
		return []string{"title"}
	case IntentRateLifeArea:
		return []string{"life_area"}
	default:
		return nil
	}
}

// SessionStatus enumerates conversation session lifecycle states.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is a user's conversation state. The in-memory copy inside the flow
// manager is authoritative during a turn; the store holds the durable record.
type Session struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id"`
	SessionType        string            `json:"session_type"`
	Status             SessionStatus     `json:"status"`
	CurrentIntent      string            `json:"current_intent,omitempty"`
	TurnCount          int               `json:"turn_count"`
	SuccessfulIntents  int               `json:"successful_intents"`
	FailedIntents      int               `json:"failed_intents"`
	AvgConfidence      float64           `json:"avg_confidence"`
	IncompleteEntities []string          `json:"incomplete_entities,omitempty"`
	ContextData        map[string]string `json:"context_data,omitempty"`
	StartedAt          time.Time         `json:"started_at"`
	LastActivity       time.Time         `json:"last_activity"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
}

// Log records one classified turn.
type Log struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	SessionID        string            `json:"session_id"`
	TurnNumber       int               `json:"turn_number"`
	UserMessage      string            `json:"user_message"`
	Intent           string            `json:"intent"`
	Confidence       float64           `json:"confidence"`
	Entities         map[string]string `json:"entities,omitempty"`
	Reasoning        string            `json:"reasoning,omitempty"`
	FallbackUsed     bool              `json:"fallback_used"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	PreviousIntent   string            `json:"previous_intent,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// FeedbackType categorizes an intent correction.
type FeedbackType string

const (
	FeedbackWrongIntent   FeedbackType = "wrong_intent"
	FeedbackMissingEntity FeedbackType = "missing_entity"
	FeedbackWrongEntity   FeedbackType = "wrong_entity"
)

// Feedback is a user-submitted correction on a classified turn.
type Feedback struct {
	ID                 string       `json:"id"`
	LogID              string       `json:"log_id"`
	UserID             string       `json:"user_id"`
	OriginalIntent     string       `json:"original_intent"`
	OriginalConfidence float64      `json:"original_confidence"`
	CorrectedIntent    string       `json:"corrected_intent"`
	FeedbackType       FeedbackType `json:"feedback_type"`
	Comment            string       `json:"comment,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// ClassificationSource names which classifier stage produced a result.
type ClassificationSource string

const (
	SourceModel    ClassificationSource = "model"
	SourcePatterns ClassificationSource = "patterns"
)

// Classification is the merged output of the intent classifier.
type Classification struct {
	Intent           string               `json:"intent"`
	Confidence       float64              `json:"confidence"`
	Entities         map[string]string    `json:"entities,omitempty"`
	Reasoning        string               `json:"reasoning,omitempty"`
	FallbackUsed     bool                 `json:"fallback_used"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
	Source           ClassificationSource `json:"source"`
}
