// Package service implements assistant profile management and the permission
// model that shares profiles between users.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/assistant/models"
	"github.com/northstarhq/northstar/internal/assistant/store"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/events"
	"github.com/northstarhq/northstar/internal/events/bus"
	"github.com/northstarhq/northstar/internal/sync/version"
)

var (
	ErrEmptyName              = errors.New("assistant name must not be empty")
	ErrProfileLimit           = errors.New("assistant profile limit reached")
	ErrInvalidTemperature     = errors.New("temperature must be within [0.0, 2.0]")
	ErrInvalidStyle           = errors.New("style traits must be within [0, 100]")
	ErrInvalidLevel           = errors.New("invalid permission level")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrOwnerGrant             = errors.New("only the owner can grant owner level")
)

const (
	defaultLanguage            = "en"
	defaultStyleValue          = 50
	defaultDialogueTemperature = 0.7
	defaultIntentTemperature   = 0.1
)

// Service manages assistant profiles: CRUD, the single-default invariant,
// and sharing with other users.
type Service struct {
	store      store.Store
	clock      *version.Clock
	bus        bus.EventBus
	maxPerUser int
	logger     *logger.Logger
	now        func() time.Time
}

// NewService builds the assistant service. eventBus may be nil in tests.
func NewService(st store.Store, clock *version.Clock, eventBus bus.EventBus, maxPerUser int, log *logger.Logger) *Service {
	if maxPerUser <= 0 {
		maxPerUser = 5
	}
	return &Service{
		store:      st,
		clock:      clock,
		bus:        eventBus,
		maxPerUser: maxPerUser,
		logger:     log.WithFields(zap.String("component", "assistant-service")),
		now:        time.Now,
	}
}

// CreateProfileInput carries the caller-settable profile fields. Nil pointers
// take server defaults.
type CreateProfileInput struct {
	Name                 string
	Language             string
	AIModel              string
	Style                *models.StyleTraits
	DialogueTemperature  *float64
	IntentTemperature    *float64
	CustomInstructions   string
	RequiresConfirmation bool
	IsDefault            bool
	IsPublic             bool
}

// CreateProfile creates a profile for the owner. The first profile a user
// creates becomes their default regardless of the flag; owners are capped at
// a configured number of live profiles.
func (s *Service) CreateProfile(ctx context.Context, ownerID string, in CreateProfileInput) (*models.Profile, error) {
	if in.Name == "" {
		return nil, ErrEmptyName
	}
	if err := validateTemperature(in.DialogueTemperature); err != nil {
		return nil, err
	}
	if err := validateTemperature(in.IntentTemperature); err != nil {
		return nil, err
	}
	style := models.StyleTraits{
		Formality:  defaultStyleValue,
		Directness: defaultStyleValue,
		Humor:      defaultStyleValue,
		Empathy:    defaultStyleValue,
		Motivation: defaultStyleValue,
	}
	if in.Style != nil {
		style = *in.Style
	}
	if !style.InRange() {
		return nil, ErrInvalidStyle
	}

	count, err := s.store.CountOwned(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	if count >= s.maxPerUser {
		return nil, ErrProfileLimit
	}

	now := s.now().UTC()
	p := &models.Profile{
		ID:                   uuid.New().String(),
		OwnerID:              ownerID,
		Name:                 in.Name,
		Language:             orDefault(in.Language, defaultLanguage),
		AIModel:              in.AIModel,
		Style:                style,
		DialogueTemperature:  orDefaultFloat(in.DialogueTemperature, defaultDialogueTemperature),
		IntentTemperature:    orDefaultFloat(in.IntentTemperature, defaultIntentTemperature),
		CustomInstructions:   in.CustomInstructions,
		RequiresConfirmation: in.RequiresConfirmation,
		IsDefault:            in.IsDefault || count == 0,
		IsPublic:             in.IsPublic,
		Version:              s.clock.Next(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	if p.IsDefault {
		if err := s.store.SetDefault(ctx, ownerID, p.ID, p.Version); err != nil {
			return nil, fmt.Errorf("failed to set default profile: %w", err)
		}
	}
	s.publish(ctx, events.AssistantCreated, map[string]interface{}{
		"assistant_id": p.ID,
		"owner_id":     ownerID,
	})
	return p, nil
}

// GetProfile returns a profile the caller may read.
func (s *Service) GetProfile(ctx context.Context, userID, profileID string) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	ok, err := s.hasLevel(ctx, userID, p, models.LevelRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientPermission
	}
	return p, nil
}

// UpdateProfileInput patches a profile; nil fields are left unchanged.
type UpdateProfileInput struct {
	Name                 *string
	Language             *string
	AIModel              *string
	Style                *models.StyleTraits
	DialogueTemperature  *float64
	IntentTemperature    *float64
	CustomInstructions   *string
	RequiresConfirmation *bool
	IsDefault            *bool
	IsPublic             *bool
}

// UpdateProfile applies a patch. Edit access is enough for tuning fields;
// default and public flags are owner-only.
func (s *Service) UpdateProfile(ctx context.Context, userID, profileID string, in UpdateProfileInput) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	ok, err := s.hasLevel(ctx, userID, p, models.LevelEdit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientPermission
	}
	if (in.IsDefault != nil || in.IsPublic != nil) && p.OwnerID != userID {
		return nil, ErrInsufficientPermission
	}
	if err := validateTemperature(in.DialogueTemperature); err != nil {
		return nil, err
	}
	if err := validateTemperature(in.IntentTemperature); err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, ErrEmptyName
		}
		p.Name = *in.Name
	}
	if in.Language != nil {
		p.Language = *in.Language
	}
	if in.AIModel != nil {
		p.AIModel = *in.AIModel
	}
	if in.Style != nil {
		if !in.Style.InRange() {
			return nil, ErrInvalidStyle
		}
		p.Style = *in.Style
	}
	if in.DialogueTemperature != nil {
		p.DialogueTemperature = *in.DialogueTemperature
	}
	if in.IntentTemperature != nil {
		p.IntentTemperature = *in.IntentTemperature
	}
	if in.CustomInstructions != nil {
		p.CustomInstructions = *in.CustomInstructions
	}
	if in.RequiresConfirmation != nil {
		p.RequiresConfirmation = *in.RequiresConfirmation
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}

	p.Version = s.clock.Next()
	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if in.IsDefault != nil && *in.IsDefault {
		if err := s.store.SetDefault(ctx, p.OwnerID, p.ID, p.Version); err != nil {
			return nil, fmt.Errorf("failed to set default profile: %w", err)
		}
		p.IsDefault = true
	}

	s.publish(ctx, events.AssistantUpdated, map[string]interface{}{
		"assistant_id": p.ID,
		"owner_id":     p.OwnerID,
	})
	return p, nil
}

// DeleteProfile tombstones a profile. Owner only.
func (s *Service) DeleteProfile(ctx context.Context, userID, profileID string) error {
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if p.OwnerID != userID {
		return ErrInsufficientPermission
	}
	p.Deleted = true
	p.IsDefault = false
	p.Version = s.clock.Next()
	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	s.publish(ctx, events.AssistantDeleted, map[string]interface{}{
		"assistant_id": profileID,
		"owner_id":     userID,
	})
	return nil
}

// ListProfiles returns every profile the user can read: owned, public, and
// shared with them.
func (s *Service) ListProfiles(ctx context.Context, userID string) ([]*models.Profile, error) {
	return s.store.ListAccessible(ctx, userID, s.now().UTC())
}

// DefaultProfile returns the user's default profile, or store.ErrNotFound.
func (s *Service) DefaultProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.store.GetDefault(ctx, userID)
}

// ProfileVersions reports id -> version for the user's own profiles, letting
// clients detect stale local copies cheaply.
func (s *Service) ProfileVersions(ctx context.Context, userID string) (map[string]int64, error) {
	profiles, err := s.store.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(profiles))
	for _, p := range profiles {
		out[p.ID] = p.Version
	}
	return out, nil
}

func validateTemperature(t *float64) error {
	if t != nil && (*t < 0 || *t > 2.0) {
		return ErrInvalidTemperature
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func (s *Service) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, eventType, bus.NewEvent(eventType, "assistant-service", payload)); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}
