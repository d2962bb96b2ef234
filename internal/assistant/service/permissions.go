package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/northstar/internal/assistant/models"
	"github.com/northstarhq/northstar/internal/assistant/store"
	"github.com/northstarhq/northstar/internal/events"
)

// effectiveLevel resolves what access userID holds on the profile right now.
// Order of precedence: ownership, an unexpired explicit grant, then public
// read. Returns ok=false when the user has no access at all.
func (s *Service) effectiveLevel(ctx context.Context, userID string, p *models.Profile) (models.PermissionLevel, bool, error) {
	if p.OwnerID == userID {
		return models.LevelOwner, true, nil
	}
	perm, err := s.store.GetPermission(ctx, p.ID, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", false, err
	}
	if perm != nil && perm.Effective(s.now()) {
		return perm.Level, true, nil
	}
	if p.IsPublic {
		return models.LevelRead, true, nil
	}
	return "", false, nil
}

func (s *Service) hasLevel(ctx context.Context, userID string, p *models.Profile, required models.PermissionLevel) (bool, error) {
	level, ok, err := s.effectiveLevel(ctx, userID, p)
	if err != nil {
		return false, err
	}
	return ok && level.AtLeast(required), nil
}

// PermissionLevel reports the caller's effective level on a profile. ok is
// false when they hold none.
func (s *Service) PermissionLevel(ctx context.Context, userID, profileID string) (models.PermissionLevel, bool, error) {
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return "", false, err
	}
	return s.effectiveLevel(ctx, userID, p)
}

// CheckPermission reports whether userID holds at least the required level.
func (s *Service) CheckPermission(ctx context.Context, userID, profileID string, required models.PermissionLevel) (bool, error) {
	if !required.Valid() {
		return false, ErrInvalidLevel
	}
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return false, err
	}
	return s.hasLevel(ctx, userID, p, required)
}

// ShareInput describes a grant request.
type ShareInput struct {
	TargetUserID string
	Level        models.PermissionLevel
	ExpiresAt    *time.Time
}

// Share grants the target user access to a profile. The granter needs admin
// or better and may not grant above their own level: the owner can grant any
// level including owner, an admin tops out at admin. A repeated share for
// the same pair overwrites the previous grant. Every successful share bumps
// the profile version so clients resync.
func (s *Service) Share(ctx context.Context, granterID, profileID string, in ShareInput) (*models.Permission, error) {
	if !in.Level.Valid() {
		return nil, ErrInvalidLevel
	}
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if in.TargetUserID == p.OwnerID {
		// The owner already holds every level; a grant row would be noise.
		return nil, ErrOwnerGrant
	}
	granterLevel, ok, err := s.effectiveLevel(ctx, granterID, p)
	if err != nil {
		return nil, err
	}
	if !ok || !granterLevel.AtLeast(models.LevelAdmin) {
		return nil, ErrInsufficientPermission
	}
	if in.Level == models.LevelOwner && granterLevel != models.LevelOwner {
		return nil, ErrOwnerGrant
	}
	if in.Level.Rank() > granterLevel.Rank() {
		return nil, ErrInsufficientPermission
	}

	perm := &models.Permission{
		AssistantID: profileID,
		GranteeID:   in.TargetUserID,
		Level:       in.Level,
		GrantedBy:   granterID,
		ExpiresAt:   in.ExpiresAt,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.UpsertPermission(ctx, perm); err != nil {
		return nil, fmt.Errorf("failed to store grant: %w", err)
	}
	if err := s.bumpVersion(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, events.AssistantShared, map[string]interface{}{
		"assistant_id": profileID,
		"granted_by":   granterID,
		"grantee_id":   in.TargetUserID,
		"level":        string(in.Level),
	})
	return perm, nil
}

// Revoke removes the target user's grant. Admin or better required. Revoking
// a grant that does not exist returns store.ErrNotFound.
func (s *Service) Revoke(ctx context.Context, granterID, profileID, targetUserID string) error {
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	ok, err := s.hasLevel(ctx, granterID, p, models.LevelAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientPermission
	}
	removed, err := s.store.DeletePermission(ctx, profileID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	if !removed {
		return store.ErrNotFound
	}
	if err := s.bumpVersion(ctx, p); err != nil {
		return err
	}
	s.publish(ctx, events.AssistantRevoked, map[string]interface{}{
		"assistant_id": profileID,
		"revoked_by":   granterID,
		"grantee_id":   targetUserID,
	})
	return nil
}

// ListPermissions returns the grants on a profile. Admin or better required.
func (s *Service) ListPermissions(ctx context.Context, userID, profileID string) ([]*models.Permission, error) {
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	ok, err := s.hasLevel(ctx, userID, p, models.LevelAdmin)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientPermission
	}
	return s.store.ListPermissions(ctx, profileID)
}

// SweepExpired removes grants past their expiry and reports how many were
// removed. A second sweep right after removes zero.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.store.SweepExpired(ctx, s.now().UTC())
}

// bumpVersion advances the profile version after a permission change so the
// sync delta feed surfaces it.
func (s *Service) bumpVersion(ctx context.Context, p *models.Profile) error {
	p.Version = s.clock.Next()
	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return fmt.Errorf("failed to bump profile version: %w", err)
	}
	return nil
}
