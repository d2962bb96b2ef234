// Package models defines assistant profiles and the permission grants that
// share them between users.
package models

import (
	"time"
)

// PermissionLevel is a totally ordered access level.
type PermissionLevel string

const (
	LevelRead  PermissionLevel = "read"
	LevelEdit  PermissionLevel = "edit"
	LevelAdmin PermissionLevel = "admin"
	LevelOwner PermissionLevel = "owner"
)

var levelRanks = map[PermissionLevel]int{
	LevelRead:  0,
	LevelEdit:  1,
	LevelAdmin: 2,
	LevelOwner: 3,
}

// Rank returns the level's position in the order; -1 for unknown levels.
func (l PermissionLevel) Rank() int {
	r, ok := levelRanks[l]
	if !ok {
		return -1
	}
	return r
}

// Valid reports whether the level is one of the four known levels.
func (l PermissionLevel) Valid() bool { return l.Rank() >= 0 }

// AtLeast reports whether holding l satisfies a requirement of other.
func (l PermissionLevel) AtLeast(other PermissionLevel) bool {
	return l.Rank() >= other.Rank()
}

// StyleTraits are the five personality dimensions, each in [0,100].
type StyleTraits struct {
	Formality  int `db:"style_formality" json:"formality"`
	Directness int `db:"style_directness" json:"directness"`
	Humor      int `db:"style_humor" json:"humor"`
	Empathy    int `db:"style_empathy" json:"empathy"`
	Motivation int `db:"style_motivation" json:"motivation"`
}

// InRange reports whether every trait is within [0,100].
func (s StyleTraits) InRange() bool {
	for _, v := range []int{s.Formality, s.Directness, s.Humor, s.Empathy, s.Motivation} {
		if v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// Profile is a per-user AI personality and model configuration. Version is a
// monotonic millisecond timestamp bumped on every mutation, including shares,
// so the sync delta feed picks changes up.
type Profile struct {
	ID                   string      `db:"id" json:"id"`
	OwnerID              string      `db:"owner_id" json:"owner_id"`
	Name                 string      `db:"name" json:"name"`
	Language             string      `db:"language" json:"language"`
	AIModel              string      `db:"ai_model" json:"ai_model"`
	Style                StyleTraits `db:"style" json:"style"`
	DialogueTemperature  float64     `db:"dialogue_temperature" json:"dialogue_temperature"`
	IntentTemperature    float64     `db:"intent_temperature" json:"intent_temperature"`
	CustomInstructions   string      `db:"custom_instructions" json:"custom_instructions,omitempty"`
	RequiresConfirmation bool        `db:"requires_confirmation" json:"requires_confirmation"`
	IsDefault            bool        `db:"is_default" json:"is_default"`
	IsPublic             bool        `db:"is_public" json:"is_public"`
	Version              int64       `db:"version" json:"version"`
	Deleted              bool        `db:"deleted" json:"deleted,omitempty"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

// Permission is a grant of access to a profile. One row per
// (assistant, grantee) pair; a new grant overwrites the old one.
type Permission struct {
	AssistantID string          `db:"assistant_id" json:"assistant_id"`
	GranteeID   string          `db:"grantee_id" json:"grantee_id"`
	Level       PermissionLevel `db:"level" json:"level"`
	GrantedBy   string          `db:"granted_by" json:"granted_by"`
	ExpiresAt   *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Effective reports whether the grant is live at time t.
func (p *Permission) Effective(t time.Time) bool {
	return p.ExpiresAt == nil || p.ExpiresAt.After(t)
}
