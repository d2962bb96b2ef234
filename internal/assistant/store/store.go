// Package store persists assistant profiles and permission grants.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/northstarhq/northstar/internal/assistant/models"
)

// ErrNotFound is returned when a profile or permission does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract for assistant profiles and the grants
// that share them.
type Store interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	// GetProfileAny returns the profile even when tombstoned, for sync
	// version checks.
	GetProfileAny(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	UpsertProfile(ctx context.Context, p *models.Profile) error
	ListOwned(ctx context.Context, ownerID string) ([]*models.Profile, error)
	CountOwned(ctx context.Context, ownerID string) (int, error)
	// SetDefault marks one owned profile as the default and clears the flag
	// on every other profile of the same owner, atomically.
	SetDefault(ctx context.Context, ownerID, profileID string, version int64) error
	GetDefault(ctx context.Context, ownerID string) (*models.Profile, error)
	// ListAccessible returns the profiles a user may read: owned, public,
	// or granted via a non-expired permission.
	ListAccessible(ctx context.Context, userID string, now time.Time) ([]*models.Profile, error)
	// ProfilesSince feeds the sync delta stream with every profile the user
	// owns or can read (public, or granted and unexpired at now), tombstones
	// included. Share and revoke bump the profile version, so grantees see
	// the change here.
	ProfilesSince(ctx context.Context, userID string, now time.Time, since int64, limit int) ([]*models.Profile, error)

	UpsertPermission(ctx context.Context, perm *models.Permission) error
	GetPermission(ctx context.Context, assistantID, granteeID string) (*models.Permission, error)
	DeletePermission(ctx context.Context, assistantID, granteeID string) (bool, error)
	ListPermissions(ctx context.Context, assistantID string) ([]*models.Permission, error)
	// SweepExpired deletes every grant whose expiry has passed and reports
	// how many rows went away. Running it twice in a row removes nothing
	// the second time.
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	Close() error
}
