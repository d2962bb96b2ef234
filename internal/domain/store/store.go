package store

import (
	"context"
	"errors"

	"github.com/northstarhq/northstar/internal/domain/models"
)

// ErrNotFound is returned when a record does not exist or is soft-deleted.
var ErrNotFound = errors.New("record not found")

// Store is the persistence interface for goal-management records. Upsert
// methods write full rows and are used by both the action dispatcher and the
// sync batch path; Since methods feed the sync delta stream ordered by
// version.
type Store interface {
	CreateGoal(ctx context.Context, g *models.Goal) error
	GetGoal(ctx context.Context, userID, id string) (*models.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]*models.Goal, error)
	UpsertGoal(ctx context.Context, g *models.Goal) error
	GoalsSince(ctx context.Context, userID string, since int64, limit int) ([]*models.Goal, error)

	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, userID, id string) (*models.Task, error)
	ListTasks(ctx context.Context, userID string) ([]*models.Task, error)
	UpsertTask(ctx context.Context, t *models.Task) error
	TasksSince(ctx context.Context, userID string, since int64, limit int) ([]*models.Task, error)

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, userID, id string) (*models.Project, error)
	ListProjects(ctx context.Context, userID string) ([]*models.Project, error)
	UpsertProject(ctx context.Context, p *models.Project) error
	ProjectsSince(ctx context.Context, userID string, since int64, limit int) ([]*models.Project, error)

	CreateLifeRating(ctx context.Context, r *models.LifeRating) error
	GetLifeRating(ctx context.Context, userID, id string) (*models.LifeRating, error)
	ListLifeRatings(ctx context.Context, userID, lifeArea string) ([]*models.LifeRating, error)
	UpsertLifeRating(ctx context.Context, r *models.LifeRating) error
	LifeRatingsSince(ctx context.Context, userID string, since int64, limit int) ([]*models.LifeRating, error)

	GetPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	UpsertPreferences(ctx context.Context, p *models.Preferences) error
	PreferencesSince(ctx context.Context, userID string, since int64, limit int) ([]*models.Preferences, error)

	GetOnboarding(ctx context.Context, userID string) (*models.OnboardingState, error)
	UpsertOnboarding(ctx context.Context, o *models.OnboardingState) error
	OnboardingSince(ctx context.Context, userID string, since int64, limit int) ([]*models.OnboardingState, error)

	Close() error
}
