package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/domain/models"
	"github.com/northstarhq/northstar/internal/domain/store"
	"github.com/northstarhq/northstar/internal/sync/version"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, version.NewClock(), nil, logger.Default())
}

func TestCreateGoal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGoal(ctx, "u1", CreateGoalInput{Title: "Get fit", LifeArea: "Health"})
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, models.GoalStatusActive, g.Status)
	assert.Equal(t, models.PriorityMedium, g.Priority)
	assert.Greater(t, g.Version, int64(0))

	goals, err := svc.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Get fit", goals[0].Title)

	// Other users never see it
	goals, err = svc.ListGoals(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestCreateGoalValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateGoal(ctx, "u1", CreateGoalInput{})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = svc.CreateGoal(ctx, "u1", CreateGoalInput{Title: "x", LifeArea: "Gardening"})
	assert.ErrorIs(t, err, ErrInvalidLifeArea)
}

func TestCreateTaskVersionsAreMonotonic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateTask(ctx, "u1", CreateTaskInput{Title: "buy groceries"})
	require.NoError(t, err)
	b, err := svc.CreateTask(ctx, "u1", CreateTaskInput{Title: "call dentist"})
	require.NoError(t, err)
	assert.Greater(t, b.Version, a.Version)
}

func TestRateLifeArea(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	r, err := svc.RateLifeArea(ctx, "u1", "Career", 7, "")
	require.NoError(t, err)
	assert.Equal(t, 7, r.Score)

	_, err = svc.RateLifeArea(ctx, "u1", "Career", 11, "")
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = svc.RateLifeArea(ctx, "u1", "NotAnArea", 5, "")
	assert.ErrorIs(t, err, ErrInvalidLifeArea)
}

func TestUpdateSettingsCreatesDefaultsThenPatches(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lang := "de"
	p, err := svc.UpdateSettings(ctx, "u1", UpdateSettingsInput{Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "de", p.Language)
	assert.Equal(t, "UTC", p.Timezone)
	firstVersion := p.Version

	tz := "Europe/Berlin"
	p, err = svc.UpdateSettings(ctx, "u1", UpdateSettingsInput{Timezone: &tz})
	require.NoError(t, err)
	assert.Equal(t, "de", p.Language)
	assert.Equal(t, "Europe/Berlin", p.Timezone)
	assert.Greater(t, p.Version, firstVersion)
}
