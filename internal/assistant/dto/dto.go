// Package dto defines the assistant wire payloads.
package dto

import (
	"time"

	"github.com/northstarhq/northstar/internal/assistant/models"
)

// StylePayload mirrors the five style traits on the wire.
type StylePayload struct {
	Formality  int `json:"formality"`
	Directness int `json:"directness"`
	Humor      int `json:"humor"`
	Empathy    int `json:"empathy"`
	Motivation int `json:"motivation"`
}

// ToModel converts an optional style payload; nil passes through.
func (s *StylePayload) ToModel() *models.StyleTraits {
	if s == nil {
		return nil
	}
	return &models.StyleTraits{
		Formality:  s.Formality,
		Directness: s.Directness,
		Humor:      s.Humor,
		Empathy:    s.Empathy,
		Motivation: s.Motivation,
	}
}

// CreateAssistantRequest is the body of POST /assistants.
type CreateAssistantRequest struct {
	Name                 string        `json:"name" binding:"required"`
	Language             string        `json:"language"`
	AIModel              string        `json:"ai_model"`
	Style                *StylePayload `json:"style"`
	DialogueTemperature  *float64      `json:"dialogue_temperature"`
	IntentTemperature    *float64      `json:"intent_temperature"`
	CustomInstructions   string        `json:"custom_instructions"`
	RequiresConfirmation bool          `json:"requires_confirmation"`
	IsDefault            bool          `json:"is_default"`
	IsPublic             bool          `json:"is_public"`
}

// UpdateAssistantRequest is the body of PATCH /assistants/:id. Absent fields
// are left unchanged.
type UpdateAssistantRequest struct {
	Name                 *string       `json:"name"`
	Language             *string       `json:"language"`
	AIModel              *string       `json:"ai_model"`
	Style                *StylePayload `json:"style"`
	DialogueTemperature  *float64      `json:"dialogue_temperature"`
	IntentTemperature    *float64      `json:"intent_temperature"`
	CustomInstructions   *string       `json:"custom_instructions"`
	RequiresConfirmation *bool         `json:"requires_confirmation"`
	IsDefault            *bool         `json:"is_default"`
	IsPublic             *bool         `json:"is_public"`
}

// ShareRequest is the body of POST /assistants/:id/share.
type ShareRequest struct {
	TargetUserID    string     `json:"target_user_id" binding:"required"`
	PermissionLevel string     `json:"permission_level" binding:"required"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

// AssistantResponse is the wire form of a profile.
type AssistantResponse struct {
	ID                   string       `json:"id"`
	OwnerID              string       `json:"owner_id"`
	Name                 string       `json:"name"`
	Language             string       `json:"language"`
	AIModel              string       `json:"ai_model"`
	Style                StylePayload `json:"style"`
	DialogueTemperature  float64      `json:"dialogue_temperature"`
	IntentTemperature    float64      `json:"intent_temperature"`
	CustomInstructions   string       `json:"custom_instructions,omitempty"`
	RequiresConfirmation bool         `json:"requires_confirmation"`
	IsDefault            bool         `json:"is_default"`
	IsPublic             bool         `json:"is_public"`
	Version              int64        `json:"version"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// FromProfile converts a model to its wire form.
func FromProfile(p *models.Profile) AssistantResponse {
	return AssistantResponse{
		ID:       p.ID,
		OwnerID:  p.OwnerID,
		Name:     p.Name,
		Language: p.Language,
		AIModel:  p.AIModel,
		Style: StylePayload{
			Formality:  p.Style.Formality,
			Directness: p.Style.Directness,
			Humor:      p.Style.Humor,
			Empathy:    p.Style.Empathy,
			Motivation: p.Style.Motivation,
		},
		DialogueTemperature:  p.DialogueTemperature,
		IntentTemperature:    p.IntentTemperature,
		CustomInstructions:   p.CustomInstructions,
		RequiresConfirmation: p.RequiresConfirmation,
		IsDefault:            p.IsDefault,
		IsPublic:             p.IsPublic,
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// FromProfiles converts a slice of profiles.
func FromProfiles(profiles []*models.Profile) []AssistantResponse {
	out := make([]AssistantResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, FromProfile(p))
	}
	return out
}

// AssistantVersion pairs a profile id with its current sync version.
type AssistantVersion struct {
	AssistantID string `json:"assistant_id"`
	Version     int64  `json:"version"`
}

// PermissionResponse is the wire form of a grant.
type PermissionResponse struct {
	AssistantID string     `json:"assistant_id"`
	GranteeID   string     `json:"grantee_id"`
	Level       string     `json:"level"`
	GrantedBy   string     `json:"granted_by"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FromPermission converts a grant to its wire form.
func FromPermission(p *models.Permission) PermissionResponse {
	return PermissionResponse{
		AssistantID: p.AssistantID,
		GranteeID:   p.GranteeID,
		Level:       string(p.Level),
		GrantedBy:   p.GrantedBy,
		ExpiresAt:   p.ExpiresAt,
		CreatedAt:   p.CreatedAt,
	}
}

// FromPermissions converts a slice of grants.
func FromPermissions(perms []*models.Permission) []PermissionResponse {
	out := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, FromPermission(p))
	}
	return out
}
