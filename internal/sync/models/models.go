// Package models defines the offline-first batch synchronization payloads.
package models

import "encoding/json"

// Object types the sync engine knows how to apply.
const (
	TypeGoal             = "goal"
	TypeTask             = "task"
	TypeProject          = "project"
	TypeLifeRating       = "life_rating"
	TypePreferences      = "preferences"
	TypeOnboarding       = "onboarding"
	TypeAssistantProfile = "assistant_profile"
)

// Operation kinds a client may send in a batch.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Per-operation outcome statuses.
const (
	StatusSuccess  = "success"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// SyncObject is the transport form of one synchronized record. Data carries
// the type-specific fields; Version is the server-assigned millisecond
// timestamp; Deleted marks a tombstone.
type SyncObject struct {
	ObjectID   string          `json:"object_id"`
	ObjectType string          `json:"object_type"`
	Data       json.RawMessage `json:"data"`
	Version    int64           `json:"version"`
	Deleted    bool            `json:"deleted,omitempty"`
}

// Operation is one client-side change inside a batch. IfMatchVersion, when
// present, makes the write conditional on the server still holding that
// version; when absent the write is unconditional.
type Operation struct {
	ObjectID       string          `json:"object_id"`
	ObjectType     string          `json:"object_type"`
	Operation      string          `json:"operation"`
	Data           json.RawMessage `json:"data,omitempty"`
	IfMatchVersion *int64          `json:"if_match_version,omitempty"`
}

// BatchRequest is the body of POST /sync/batch.
type BatchRequest struct {
	ClientID   string      `json:"client_id"`
	Operations []Operation `json:"operations" binding:"required"`
}

// OperationResult is the per-operation outcome. Conflicts carry the server's
// current version and data so the client can merge.
type OperationResult struct {
	ObjectID     string          `json:"object_id"`
	Status       string          `json:"status"`
	NewVersion   int64           `json:"new_version,omitempty"`
	ServerData   json.RawMessage `json:"server_data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// BatchResult is the envelope returned for one applied batch. One result per
// operation, in request order; a failing operation never aborts the batch.
type BatchResult struct {
	Results   []OperationResult `json:"results"`
	Applied   int               `json:"applied"`
	Conflicts int               `json:"conflicts"`
	Errors    int               `json:"errors"`
}

// DeltaResponse is one page of the change feed. CurrentTimestamp is the
// highest version included, to be used as the next `since` cursor.
type DeltaResponse struct {
	Changes          []SyncObject `json:"changes"`
	CurrentTimestamp int64        `json:"current_timestamp"`
	HasMore          bool         `json:"has_more"`
}

// TypeStatus summarizes one object type for GET /sync/status.
type TypeStatus struct {
	TotalObjects  int `json:"total_objects"`
	RecentChanges int `json:"recent_changes"`
}

// ResolveResult acknowledges a manual conflict resolution.
type ResolveResult struct {
	Status     string `json:"status"`
	ObjectID   string `json:"object_id"`
	NewVersion int64  `json:"new_version"`
}
