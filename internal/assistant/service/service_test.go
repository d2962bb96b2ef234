package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/northstar/internal/assistant/models"
	"github.com/northstarhq/northstar/internal/assistant/store"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/sync/version"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, version.NewClock(), nil, 5, logger.Default())
}

func createProfile(t *testing.T, svc *Service, ownerID, name string) *models.Profile {
	t.Helper()
	p, err := svc.CreateProfile(context.Background(), ownerID, CreateProfileInput{Name: name})
	require.NoError(t, err)
	return p
}

func TestCreateProfileDefaults(t *testing.T) {
	svc := newTestService(t)
	p := createProfile(t, svc, "owner", "Coach")

	assert.Equal(t, "en", p.Language)
	assert.Equal(t, 50, p.Style.Formality)
	assert.InDelta(t, 0.7, p.DialogueTemperature, 1e-9)
	assert.InDelta(t, 0.1, p.IntentTemperature, 1e-9)
	assert.True(t, p.IsDefault, "first profile becomes the default")
	assert.Positive(t, p.Version)
}

func TestCreateProfileValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProfile(ctx, "owner", CreateProfileInput{})
	assert.ErrorIs(t, err, ErrEmptyName)

	bad := 2.5
	_, err = svc.CreateProfile(ctx, "owner", CreateProfileInput{Name: "x", DialogueTemperature: &bad})
	assert.ErrorIs(t, err, ErrInvalidTemperature)

	_, err = svc.CreateProfile(ctx, "owner", CreateProfileInput{
		Name:  "x",
		Style: &models.StyleTraits{Formality: 120, Directness: 50, Humor: 50, Empathy: 50, Motivation: 50},
	})
	assert.ErrorIs(t, err, ErrInvalidStyle)
}

func TestCreateProfileLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateProfile(ctx, "owner", CreateProfileInput{Name: "p"})
		require.NoError(t, err)
	}
	_, err := svc.CreateProfile(ctx, "owner", CreateProfileInput{Name: "one too many"})
	assert.ErrorIs(t, err, ErrProfileLimit)
}

func TestSingleDefaultInvariant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := createProfile(t, svc, "owner", "First")
	second, err := svc.CreateProfile(ctx, "owner", CreateProfileInput{Name: "Second", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	def, err := svc.DefaultProfile(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	reloaded, err := svc.GetProfile(ctx, "owner", first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)

	// Patching the default flag swaps it back
	yes := true
	_, err = svc.UpdateProfile(ctx, "owner", first.ID, UpdateProfileInput{IsDefault: &yes})
	require.NoError(t, err)
	def, err = svc.DefaultProfile(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, first.ID, def.ID)
}

func TestUpdateProfileVersionAdvances(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := createProfile(t, svc, "owner", "Coach")

	name := "Renamed"
	updated, err := svc.UpdateProfile(ctx, "owner", p.ID, UpdateProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Greater(t, updated.Version, p.Version)
}

func TestDeleteProfileOwnerOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := createProfile(t, svc, "owner", "Coach")

	assert.ErrorIs(t, svc.DeleteProfile(ctx, "intruder", p.ID), ErrInsufficientPermission)
	require.NoError(t, svc.DeleteProfile(ctx, "owner", p.ID))

	_, err := svc.GetProfile(ctx, "owner", p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestShareGrantsAccess(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := createProfile(t, svc, "owner", "Coach")

	_, err := svc.GetProfile(ctx, "friend", p.ID)
	assert.ErrorIs(t, err, ErrInsufficientPermission)

	_, err = svc.Share(ctx, "owner", p.ID, ShareInput{TargetUserID: "friend", Level: models.LevelRead})
	require.NoError(t, err)

	got, err := svc.GetProfile(ctx, "friend", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	// A share bumps the version so sync clients pick it up
	assert.Greater(t, got.Version, p.Version)

	// Read access is not enough to edit
	name := "hijacked"
	_, err = svc.UpdateProfile(ctx, "friend", p.ID, UpdateProfileInput{Name: &name})
	assert.ErrorIs(t, err, ErrInsufficientPermission)
}

func TestShareTransitivity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := createProfile(t, svc, "owner", "Coach")

	// Owner grants admin to alice
	_, err := svc.Share(ctx, "owner", p.ID, ShareInput{TargetUserID: "alice", Level: models.LevelAdmin})
	require.NoError(t, err)

	// Alice holds admin, so she can grant edit to bob
	_, err = svc.Share(ctx, "alice", p.ID, ShareInput{TargetUserID: "bob", Level: models.LevelEdit})
	require.NoError(t, err)

	// But never owner, and never above her own level
	_, err = svc.Share(ctx, "alice", p.ID, ShareInput{TargetUserID: "bob", Level: models.LevelOwner})
	assert.ErrorIs(t, err, ErrOwnerGrant)

	// Bob holds edit, below admin, so he cannot share at all
	_, err = svc.Share(ctx, "bob", p.ID, ShareInput{TargetUserID: "carol", Level: models.LevelRead})
	assert.ErrorIs(t, err, ErrInsufficientPermission)

	level, ok, err := svc.PermissionLevel(ctx, "bob", p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.LevelEdit, level)
}

func TestOwnerCanGrantOwnerLevel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := createProfile(t, svc, "owner", "Coach")

	// The owner may grant any level, owner included
	perm, err := svc.Share(ctx, "owner", p.ID, ShareInput{TargetUserID: "heir", Level: models.LevelOwner})
	require.NoError(t, err)
	assert.Equal(t, models.LevelOwner, perm.Level)

	level, ok, err := svc.PermissionLevel(ctx, "heir", p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.LevelOwner, level)

	// Granting to the owner themselves stays rejected
	_, err = svc.Share(ctx, "owner", p.ID, ShareInput{TargetUserID: "owner", Level: models.LevelRead})
	assert.ErrorIs(t, err, ErrOwnerGrant)
}

func TestRevoke(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := createProfile(t, svc, "owner", "Coach")

	_, err := svc.Share(ctx, "owner", p.ID, ShareInput{TargetUserID: "friend", Level: models.LevelEdit})
	require.NoError(t, err)

	// Edit level cannot revoke
	assert.ErrorIs(t, svc.Revoke(ctx, "friend", p.ID, "friend"), ErrInsufficientPermission)

	require.NoError(t, svc.Revoke(ctx, "owner", p.ID, "friend"))
	_, err = svc.GetProfile(ctx, "friend", p.ID)
	assert.ErrorIs(t, err, ErrInsufficientPermission)

	// Revoking again finds nothing
	assert.ErrorIs(t, svc.Revoke(ctx, "owner", p.ID, "friend"), store.ErrNotFound)
}

func TestPublicProfileReadableByAnyone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProfile(ctx, "owner", CreateProfileInput{Name: "Open", IsPublic: true})
	require.NoError(t, err)

	profiles, err := svc.ListProfiles(ctx, "stranger")
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	level, ok, err := svc.PermissionLevel(ctx, "stranger", profiles[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.LevelRead, level)

	// Public grants read only
	name := "defaced"
	_, err = svc.UpdateProfile(ctx, "stranger", profiles[0].ID, UpdateProfileInput{Name: &name})
	assert.ErrorIs(t, err, ErrInsufficientPermission)
}

func TestExpiredGrantBehavesLikeAbsent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := createProfile(t, svc, "owner", "Coach")

	past := time.Now().Add(-time.Hour)
	_, err := svc.Share(ctx, "owner", p.ID, ShareInput{TargetUserID: "friend", Level: models.LevelAdmin, ExpiresAt: &past})
	require.NoError(t, err)

	_, ok, err := svc.PermissionLevel(ctx, "friend", p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Sweeping again removes nothing
	removed, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestProfileVersions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := createProfile(t, svc, "owner", "A")
	b := createProfile(t, svc, "owner", "B")

	versions, err := svc.ProfileVersions(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{a.ID: a.Version, b.ID: b.Version}, versions)
}

func TestActiveProfileResolution(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	src := NewProfileSource(svc)

	// No profile yet: defaults apply, not an error
	profile, err := src.ActiveProfile(ctx, "owner", "")
	require.NoError(t, err)
	assert.Nil(t, profile)

	created := createProfile(t, svc, "owner", "Coach")

	profile, err = src.ActiveProfile(ctx, "owner", "")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, created.ID, profile.ID)

	// A named assistant requires read access
	_, err = src.ActiveProfile(ctx, "stranger", created.ID)
	assert.Error(t, err)
}
