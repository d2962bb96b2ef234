package controller

import (
	"context"
	"time"

	"github.com/northstarhq/northstar/internal/domain/dto"
	"github.com/northstarhq/northstar/internal/domain/models"
	"github.com/northstarhq/northstar/internal/domain/service"
)

// Controller translates between wire DTOs and the domain service.
type Controller struct {
	svc *service.Service
}

// NewController creates the goal-management controller.
func NewController(svc *service.Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) CreateGoal(ctx context.Context, userID string, req dto.CreateGoalRequest) (dto.Goal, error) {
	g, err := c.svc.CreateGoal(ctx, userID, service.CreateGoalInput{
		Title:       req.Title,
		Description: req.Description,
		LifeArea:    req.LifeArea,
		Priority:    models.Priority(req.Priority),
		TargetDate:  normalizeDate(req.TargetDate),
	})
	if err != nil {
		return dto.Goal{}, err
	}
	return dto.FromGoal(g), nil
}

func (c *Controller) ListGoals(ctx context.Context, userID string) ([]dto.Goal, error) {
	goals, err := c.svc.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.FromGoals(goals), nil
}

func (c *Controller) CreateTask(ctx context.Context, userID string, req dto.CreateTaskRequest) (dto.Task, error) {
	t, err := c.svc.CreateTask(ctx, userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		GoalID:      req.GoalID,
		ProjectID:   req.ProjectID,
		Priority:    models.Priority(req.Priority),
		DueDate:     normalizeDate(req.DueDate),
		DurationMin: req.DurationMin,
	})
	if err != nil {
		return dto.Task{}, err
	}
	return dto.FromTask(t), nil
}

func (c *Controller) ListTasks(ctx context.Context, userID string) ([]dto.Task, error) {
	tasks, err := c.svc.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.FromTasks(tasks), nil
}

func (c *Controller) CreateProject(ctx context.Context, userID string, req dto.CreateProjectRequest) (dto.Project, error) {
	p, err := c.svc.CreateProject(ctx, userID, service.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		TargetDate:  normalizeDate(req.TargetDate),
	})
	if err != nil {
		return dto.Project{}, err
	}
	return dto.FromProject(p), nil
}

func (c *Controller) ListProjects(ctx context.Context, userID string) ([]dto.Project, error) {
	projects, err := c.svc.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.FromProjects(projects), nil
}

func (c *Controller) RateLifeArea(ctx context.Context, userID string, req dto.RateLifeAreaRequest) (dto.LifeRating, error) {
	r, err := c.svc.RateLifeArea(ctx, userID, req.LifeArea, req.Score, req.Note)
	if err != nil {
		return dto.LifeRating{}, err
	}
	return dto.FromLifeRating(r), nil
}

func (c *Controller) ListLifeRatings(ctx context.Context, userID, lifeArea string) ([]dto.LifeRating, error) {
	ratings, err := c.svc.ListLifeRatings(ctx, userID, lifeArea)
	if err != nil {
		return nil, err
	}
	return dto.FromLifeRatings(ratings), nil
}

func (c *Controller) GetPreferences(ctx context.Context, userID string) (dto.Preferences, error) {
	p, err := c.svc.GetPreferences(ctx, userID)
	if err != nil {
		return dto.Preferences{}, err
	}
	return dto.FromPreferences(p), nil
}

func (c *Controller) UpdatePreferences(ctx context.Context, userID string, req dto.UpdatePreferencesRequest) (dto.Preferences, error) {
	p, err := c.svc.UpdateSettings(ctx, userID, service.UpdateSettingsInput{
		Language:     req.Language,
		Timezone:     req.Timezone,
		Notification: req.Notification,
		WeekStart:    req.WeekStart,
	})
	if err != nil {
		return dto.Preferences{}, err
	}
	return dto.FromPreferences(p), nil
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
