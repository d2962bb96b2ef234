package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assistantmodels "github.com/northstarhq/northstar/internal/assistant/models"
	assistantservice "github.com/northstarhq/northstar/internal/assistant/service"
	assistantstore "github.com/northstarhq/northstar/internal/assistant/store"
	"github.com/northstarhq/northstar/internal/common/logger"
	domainstore "github.com/northstarhq/northstar/internal/domain/store"
	"github.com/northstarhq/northstar/internal/sync/models"
	"github.com/northstarhq/northstar/internal/sync/version"
)

func newTestService(t *testing.T, deltaLimit int) *Service {
	t.Helper()
	dst, err := domainstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dst.Close() })

	ast, err := assistantstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ast.Close() })

	return NewService(version.NewClock(), nil, deltaLimit, logger.Default(),
		NewGoalHandler(dst),
		NewTaskHandler(dst),
		NewProjectHandler(dst),
		NewLifeRatingHandler(dst),
		NewPreferencesHandler(dst),
		NewOnboardingHandler(dst),
		NewAssistantHandler(ast),
	)
}

func op(objectID, objectType, operation string, data string, ifMatch *int64) models.Operation {
	o := models.Operation{
		ObjectID:       objectID,
		ObjectType:     objectType,
		Operation:      operation,
		IfMatchVersion: ifMatch,
	}
	if data != "" {
		o.Data = json.RawMessage(data)
	}
	return o
}

func applyOne(t *testing.T, svc *Service, userID string, o models.Operation) models.OperationResult {
	t.Helper()
	res, err := svc.ApplyBatch(context.Background(), userID, models.BatchRequest{
		ClientID:   "test-client",
		Operations: []models.Operation{o},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	return res.Results[0]
}

func TestApplyBatchCreateAssignsVersion(t *testing.T) {
	svc := newTestService(t, 0)

	r := applyOne(t, svc, "u1", op("g1", models.TypeGoal, models.OpCreate, `{"title":"Run a marathon"}`, nil))
	assert.Equal(t, models.StatusSuccess, r.Status)
	assert.Positive(t, r.NewVersion)
}

func TestApplyBatchStaleVersionConflicts(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	created := applyOne(t, svc, "u1", op("t1", models.TypeTask, models.OpCreate, `{"title":"original"}`, nil))
	require.Equal(t, models.StatusSuccess, created.Status)

	// First conditional update matches and wins
	updated := applyOne(t, svc, "u1",
		op("t1", models.TypeTask, models.OpUpdate, `{"title":"first edit"}`, &created.NewVersion))
	require.Equal(t, models.StatusSuccess, updated.Status)
	assert.Greater(t, updated.NewVersion, created.NewVersion)

	// Second client still holds the old version: conflict, object untouched
	stale := applyOne(t, svc, "u1",
		op("t1", models.TypeTask, models.OpUpdate, `{"title":"second edit"}`, &created.NewVersion))
	assert.Equal(t, models.StatusConflict, stale.Status)
	assert.Equal(t, updated.NewVersion, stale.NewVersion)
	assert.Contains(t, string(stale.ServerData), "first edit")

	delta, err := svc.Delta(ctx, "u1", 0, nil)
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.Contains(t, string(delta.Changes[0].Data), "first edit")
}

func TestApplyBatchUnconditionalUpdateProceeds(t *testing.T) {
	svc := newTestService(t, 0)

	created := applyOne(t, svc, "u1", op("t1", models.TypeTask, models.OpCreate, `{"title":"original"}`, nil))
	require.Equal(t, models.StatusSuccess, created.Status)

	// No if_match_version means last write wins
	r := applyOne(t, svc, "u1", op("t1", models.TypeTask, models.OpUpdate, `{"title":"overwritten"}`, nil))
	assert.Equal(t, models.StatusSuccess, r.Status)
	assert.Greater(t, r.NewVersion, created.NewVersion)
}

func TestApplyBatchUnknownTypeNeverAbortsBatch(t *testing.T) {
	svc := newTestService(t, 0)

	res, err := svc.ApplyBatch(context.Background(), "u1", models.BatchRequest{
		Operations: []models.Operation{
			op("x1", "widget", models.OpCreate, `{}`, nil),
			op("g1", models.TypeGoal, models.OpCreate, `{"title":"still applied"}`, nil),
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)

	assert.Equal(t, models.StatusError, res.Results[0].Status)
	assert.Contains(t, res.Results[0].ErrorMessage, "Unknown object type")
	assert.Equal(t, models.StatusSuccess, res.Results[1].Status)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Errors)
}

func TestApplyBatchDeleteWritesTombstone(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	created := applyOne(t, svc, "u1", op("g1", models.TypeGoal, models.OpCreate, `{"title":"done with this"}`, nil))
	deleted := applyOne(t, svc, "u1", op("g1", models.TypeGoal, models.OpDelete, "", &created.NewVersion))
	require.Equal(t, models.StatusSuccess, deleted.Status)

	delta, err := svc.Delta(ctx, "u1", 0, nil)
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.True(t, delta.Changes[0].Deleted)

	// Deleting again finds nothing... the object is still addressable
	// through its tombstone, so a repeat delete succeeds idempotently.
	again := applyOne(t, svc, "u1", op("g1", models.TypeGoal, models.OpDelete, "", nil))
	assert.Equal(t, models.StatusSuccess, again.Status)
}

func TestVersionsStrictlyIncrease(t *testing.T) {
	svc := newTestService(t, 0)

	var last int64
	for i := 0; i < 10; i++ {
		r := applyOne(t, svc, "u1", op("g1", models.TypeGoal, models.OpUpdate, `{"title":"tick"}`, nil))
		require.Equal(t, models.StatusSuccess, r.Status)
		assert.Greater(t, r.NewVersion, last)
		last = r.NewVersion
	}
}

func TestDeltaRoundTrip(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	created := applyOne(t, svc, "u1", op("g1", models.TypeGoal, models.OpCreate, `{"title":"Run a marathon","life_area":"Health"}`, nil))

	delta, err := svc.Delta(ctx, "u1", 0, nil)
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1, "object appears exactly once")
	assert.Equal(t, "g1", delta.Changes[0].ObjectID)
	assert.Equal(t, models.TypeGoal, delta.Changes[0].ObjectType)
	assert.Equal(t, created.NewVersion, delta.Changes[0].Version)
	assert.Equal(t, created.NewVersion, delta.CurrentTimestamp)
	assert.False(t, delta.HasMore)

	// Resuming from the cursor yields nothing new
	next, err := svc.Delta(ctx, "u1", delta.CurrentTimestamp, nil)
	require.NoError(t, err)
	assert.Empty(t, next.Changes)

	// Another user sees nothing
	other, err := svc.Delta(ctx, "u2", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, other.Changes)
}

func TestDeltaPagination(t *testing.T) {
	svc := newTestService(t, 2)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		r := applyOne(t, svc, "u1", op(id, models.TypeTask, models.OpCreate, `{"title":"item"}`, nil))
		require.Equal(t, models.StatusSuccess, r.Status)
	}

	page1, err := svc.Delta(ctx, "u1", 0, nil)
	require.NoError(t, err)
	assert.Len(t, page1.Changes, 2)
	assert.True(t, page1.HasMore)

	page2, err := svc.Delta(ctx, "u1", page1.CurrentTimestamp, nil)
	require.NoError(t, err)
	assert.Len(t, page2.Changes, 1)
	assert.False(t, page2.HasMore)
	assert.Equal(t, "t3", page2.Changes[0].ObjectID)
}

func TestDeltaTypeFilter(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	applyOne(t, svc, "u1", op("g1", models.TypeGoal, models.OpCreate, `{"title":"goal"}`, nil))
	applyOne(t, svc, "u1", op("t1", models.TypeTask, models.OpCreate, `{"title":"task"}`, nil))

	delta, err := svc.Delta(ctx, "u1", 0, []string{models.TypeTask})
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, models.TypeTask, delta.Changes[0].ObjectType)

	_, err = svc.Delta(ctx, "u1", 0, []string{"widget"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestResolveConflict(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	created := applyOne(t, svc, "u1", op("t1", models.TypeTask, models.OpCreate, `{"title":"theirs"}`, nil))

	res, err := svc.ResolveConflict(ctx, "u1", "t1", models.TypeTask, json.RawMessage(`{"title":"merged"}`))
	require.NoError(t, err)
	assert.Equal(t, "resolved", res.Status)
	assert.Greater(t, res.NewVersion, created.NewVersion)

	delta, err := svc.Delta(ctx, "u1", 0, nil)
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.Contains(t, string(delta.Changes[0].Data), "merged")
}

func TestStatusCounts(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	applyOne(t, svc, "u1", op("g1", models.TypeGoal, models.OpCreate, `{"title":"a"}`, nil))
	applyOne(t, svc, "u1", op("g2", models.TypeGoal, models.OpCreate, `{"title":"b"}`, nil))
	applyOne(t, svc, "u1", op("g2", models.TypeGoal, models.OpDelete, "", nil))

	status, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	goals := status[models.TypeGoal]
	assert.Equal(t, 1, goals.TotalObjects, "tombstones are not live objects")
	assert.Equal(t, 2, goals.RecentChanges)
	assert.Zero(t, status[models.TypeTask].TotalObjects)
}

func TestSyncAssistantProfiles(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	r := applyOne(t, svc, "u1", op("a1", models.TypeAssistantProfile, models.OpCreate,
		`{"name":"Coach","dialogue_temperature":0.9}`, nil))
	require.Equal(t, models.StatusSuccess, r.Status)

	delta, err := svc.Delta(ctx, "u1", 0, []string{models.TypeAssistantProfile})
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.Contains(t, string(delta.Changes[0].Data), "Coach")

	// Another user cannot touch it conditionally
	stale := applyOne(t, svc, "u2", op("a1", models.TypeAssistantProfile, models.OpUpdate, `{"name":"stolen"}`, &r.NewVersion))
	assert.Equal(t, models.StatusError, stale.Status)
}

func TestDeltaIncludesSharedAssistantProfiles(t *testing.T) {
	ast, err := assistantstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ast.Close() })

	clock := version.NewClock()
	profiles := assistantservice.NewService(ast, clock, nil, 5, logger.Default())
	svc := NewService(clock, nil, 0, logger.Default(), NewAssistantHandler(ast))
	ctx := context.Background()

	p, err := profiles.CreateProfile(ctx, "owner", assistantservice.CreateProfileInput{Name: "Coach"})
	require.NoError(t, err)

	// Before the share the grantee's feed is empty.
	delta, err := svc.Delta(ctx, "bob", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, delta.Changes)

	_, err = profiles.Share(ctx, "owner", p.ID, assistantservice.ShareInput{
		TargetUserID: "bob", Level: assistantmodels.LevelRead,
	})
	require.NoError(t, err)

	delta, err = svc.Delta(ctx, "bob", 0, nil)
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, p.ID, delta.Changes[0].ObjectID)
	assert.Contains(t, string(delta.Changes[0].Data), "Coach")

	// An unrelated user still sees nothing.
	delta, err = svc.Delta(ctx, "carol", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, delta.Changes)

	// Owner's own feed carries it too.
	delta, err = svc.Delta(ctx, "owner", 0, nil)
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
}

func TestSyncOnboardingState(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	r := applyOne(t, svc, "u1", op("u1", models.TypeOnboarding, models.OpCreate,
		`{"current_step":"first_goal"}`, nil))
	require.Equal(t, models.StatusSuccess, r.Status)

	// Completing onboarding is a conditional update on the same record.
	done := applyOne(t, svc, "u1", op("u1", models.TypeOnboarding, models.OpUpdate,
		`{"current_step":"done","completed":true,"first_goal_id":"g1"}`, &r.NewVersion))
	require.Equal(t, models.StatusSuccess, done.Status)
	assert.Greater(t, done.NewVersion, r.NewVersion)

	delta, err := svc.Delta(ctx, "u1", 0, []string{models.TypeOnboarding})
	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.Contains(t, string(delta.Changes[0].Data), "first_goal_id")
}
