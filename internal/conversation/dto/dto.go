// Package dto defines the conversation wire payloads.
package dto

import (
	"time"

	"github.com/northstarhq/northstar/internal/conversation/models"
)

// MessageRequest is the body of POST /conversation/message.
type MessageRequest struct {
	Message        string `json:"message" binding:"required"`
	SessionID      string `json:"session_id"`
	AssistantID    string `json:"assistant_id"`
	IncludeContext bool   `json:"include_context"`
}

// ClassifyRequest is the body of POST /conversation/classify.
type ClassifyRequest struct {
	Message string `json:"message" binding:"required"`
}

// FeedbackRequest is the body of POST /conversation/feedback.
type FeedbackRequest struct {
	LogID           string `json:"log_id" binding:"required"`
	CorrectedIntent string `json:"corrected_intent"`
	FeedbackType    string `json:"feedback_type"`
	Comment         string `json:"comment"`
}

// FeedbackResponse acknowledges a recorded correction.
type FeedbackResponse struct {
	ID              string    `json:"id"`
	LogID           string    `json:"log_id"`
	OriginalIntent  string    `json:"original_intent"`
	CorrectedIntent string    `json:"corrected_intent"`
	FeedbackType    string    `json:"feedback_type"`
	CreatedAt       time.Time `json:"created_at"`
}

// FromFeedback converts a model to its wire form.
func FromFeedback(f *models.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:              f.ID,
		LogID:           f.LogID,
		OriginalIntent:  f.OriginalIntent,
		CorrectedIntent: f.CorrectedIntent,
		FeedbackType:    string(f.FeedbackType),
		CreatedAt:       f.CreatedAt,
	}
}

// SessionSummary is the list form of a session.
type SessionSummary struct {
	ID            string     `json:"id"`
	SessionType   string     `json:"session_type"`
	Status        string     `json:"status"`
	CurrentIntent string     `json:"current_intent,omitempty"`
	TurnCount     int        `json:"turn_count"`
	AvgConfidence float64    `json:"avg_confidence"`
	StartedAt     time.Time  `json:"started_at"`
	LastActivity  time.Time  `json:"last_activity"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// FromSession converts a model to its list form.
func FromSession(s *models.Session) SessionSummary {
	return SessionSummary{
		ID:            s.ID,
		SessionType:   s.SessionType,
		Status:        string(s.Status),
		CurrentIntent: s.CurrentIntent,
		TurnCount:     s.TurnCount,
		AvgConfidence: s.AvgConfidence,
		StartedAt:     s.StartedAt,
		LastActivity:  s.LastActivity,
		CompletedAt:   s.CompletedAt,
	}
}

// FromSessions converts a slice of sessions.
func FromSessions(sessions []*models.Session) []SessionSummary {
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, FromSession(s))
	}
	return out
}

// LogEntry is the wire form of one classified turn.
type LogEntry struct {
	ID               string            `json:"id"`
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

// FromLog converts a model to its wire form.
func FromLog(l *models.Log) LogEntry {
	return LogEntry{
		ID:               l.ID,
		TurnNumber:       l.TurnNumber,
		UserMessage:      l.UserMessage,
		Intent:           l.Intent,
		Confidence:       l.Confidence,
		Entities:         l.Entities,
		Reasoning:        l.Reasoning,
		FallbackUsed:     l.FallbackUsed,
		ProcessingTimeMs: l.ProcessingTimeMs,
		PreviousIntent:   l.PreviousIntent,
		CreatedAt:        l.CreatedAt,
	}
}

// FromLogs converts a slice of logs.
func FromLogs(logs []*models.Log) []LogEntry {
	out := make([]LogEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, FromLog(l))
	}
	return out
}
