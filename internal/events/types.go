// Package events provides event types for the Northstar event system.
package events

// Event types for conversation turns
const (
	ConversationTurn      = "conversation.turn"
	ConversationCompleted = "conversation.completed"
	IntentFeedbackAdded   = "conversation.feedback"
)

// Event types for domain mutations
const (
	GoalCreated        = "goal.created"
	TaskCreated        = "task.created"
	ProjectCreated     = "project.created"
	SettingsUpdated    = "settings.updated"
	LifeRatingRecorded = "liferating.recorded"
)

// Event types for assistant profiles
const (
	AssistantCreated = "assistant.created"
	AssistantUpdated = "assistant.updated"
	AssistantDeleted = "assistant.deleted"
	AssistantShared  = "assistant.shared"
	AssistantRevoked = "assistant.revoked"
)

// Event types for sync
const (
	SyncBatchApplied   = "sync.batch_applied"
	SyncConflict       = "sync.conflict"
	SyncConflictSolved = "sync.conflict_resolved"
)
