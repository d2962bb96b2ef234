// Package service implements the goal-management operations behind both the
// REST surface and the conversation action dispatcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/domain/models"
	"github.com/northstarhq/northstar/internal/domain/store"
	"github.com/northstarhq/northstar/internal/events"
	"github.com/northstarhq/northstar/internal/events/bus"
	"github.com/northstarhq/northstar/internal/sync/version"
)

var (
	// ErrInvalidLifeArea is returned when a rating or goal names an unknown
	// life area.
	ErrInvalidLifeArea = errors.New("unknown life area")
	// ErrInvalidScore is returned when a rating score is outside 1-10.
	ErrInvalidScore = errors.New("score must be between 1 and 10")
	// ErrEmptyTitle is returned when a create operation has no title.
	ErrEmptyTitle = errors.New("title must not be empty")
)

// Service coordinates record writes: it assigns versions, persists and
// publishes domain events.
type Service struct {
	store  store.Store
	clock  *version.Clock
	bus    bus.EventBus
	logger *logger.Logger
}

// NewService creates the goal-management service.
func NewService(st store.Store, clock *version.Clock, eventBus bus.EventBus, log *logger.Logger) *Service {
	return &Service{
		store:  st,
		clock:  clock,
		bus:    eventBus,
		logger: log.WithFields(zap.String("component", "domain-service")),
	}
}

// CreateGoalInput carries the fields of a new goal.
type CreateGoalInput struct {
	Title       string
	Description string
	LifeArea    string
	Priority    models.Priority
	TargetDate  *time.Time
}

// CreateGoal validates and persists a new goal.
func (s *Service) CreateGoal(ctx context.Context, userID string, in CreateGoalInput) (*models.Goal, error) {
	if in.Title == "" {
		return nil, ErrEmptyTitle
	}
	if in.LifeArea != "" && !models.IsLifeArea(in.LifeArea) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLifeArea, in.LifeArea)
	}
	now := time.Now().UTC()
	g := &models.Goal{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		LifeArea:    in.LifeArea,
		Status:      models.GoalStatusActive,
		Priority:    priorityOrDefault(in.Priority),
		TargetDate:  in.TargetDate,
		Version:     s.clock.Next(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	s.publish(ctx, events.GoalCreated, map[string]interface{}{
		"goal_id": g.ID, "user_id": userID, "title": g.Title,
	})
	return g, nil
}

// GetGoal returns a goal by id.
func (s *Service) GetGoal(ctx context.Context, userID, id string) (*models.Goal, error) {
	return s.store.GetGoal(ctx, userID, id)
}

// ListGoals returns the user's live goals.
func (s *Service) ListGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	return s.store.ListGoals(ctx, userID)
}

// CreateTaskInput carries the fields of a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	GoalID      string
	ProjectID   string
	Priority    models.Priority
	DueDate     *time.Time
	DurationMin int
}

// CreateTask validates and persists a new task.
func (s *Service) CreateTask(ctx context.Context, userID string, in CreateTaskInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, ErrEmptyTitle
	}
	now := time.Now().UTC()
	t := &models.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		GoalID:      in.GoalID,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.TaskStatusPending,
		Priority:    priorityOrDefault(in.Priority),
		DueDate:     in.DueDate,
		DurationMin: in.DurationMin,
		Version:     s.clock.Next(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.publish(ctx, events.TaskCreated, map[string]interface{}{
		"task_id": t.ID, "user_id": userID, "title": t.Title,
	})
	return t, nil
}

// ListTasks returns the user's live tasks.
func (s *Service) ListTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	return s.store.ListTasks(ctx, userID)
}

// CreateProjectInput carries the fields of a new project.
type CreateProjectInput struct {
	Title       string
	Description string
	TargetDate  *time.Time
}

// CreateProject validates and persists a new project.
func (s *Service) CreateProject(ctx context.Context, userID string, in CreateProjectInput) (*models.Project, error) {
	if in.Title == "" {
		return nil, ErrEmptyTitle
	}
	now := time.Now().UTC()
	p := &models.Project{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.GoalStatusActive,
		TargetDate:  in.TargetDate,
		Version:     s.clock.Next(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	s.publish(ctx, events.ProjectCreated, map[string]interface{}{
		"project_id": p.ID, "user_id": userID, "title": p.Title,
	})
	return p, nil
}

// ListProjects returns the user's live projects.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]*models.Project, error) {
	return s.store.ListProjects(ctx, userID)
}

// RateLifeArea records a satisfaction score for a life area.
func (s *Service) RateLifeArea(ctx context.Context, userID, lifeArea string, score int, note string) (*models.LifeRating, error) {
	if !models.IsLifeArea(lifeArea) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLifeArea, lifeArea)
	}
	if score < 1 || score > 10 {
		return nil, ErrInvalidScore
	}
	now := time.Now().UTC()
	r := &models.LifeRating{
		ID:        uuid.New().String(),
		UserID:    userID,
		LifeArea:  lifeArea,
		Score:     score,
		Note:      note,
		RatedAt:   now,
		Version:   s.clock.Next(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateLifeRating(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to record life rating: %w", err)
	}
	s.publish(ctx, events.LifeRatingRecorded, map[string]interface{}{
		"rating_id": r.ID, "user_id": userID, "life_area": lifeArea, "score": score,
	})
	return r, nil
}

// ListLifeRatings returns ratings, optionally filtered to one life area.
func (s *Service) ListLifeRatings(ctx context.Context, userID, lifeArea string) ([]*models.LifeRating, error) {
	return s.store.ListLifeRatings(ctx, userID, lifeArea)
}

// UpdateSettingsInput carries partial preference changes; nil fields are left
// untouched.
type UpdateSettingsInput struct {
	Language     *string
	Timezone     *string
	Notification *bool
	WeekStart    *string
}

// UpdateSettings applies partial preference changes, creating the row with
// defaults on first write.
func (s *Service) UpdateSettings(ctx context.Context, userID string, in UpdateSettingsInput) (*models.Preferences, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		now := time.Now().UTC()
		prefs = &models.Preferences{
			UserID:       userID,
			Language:     "en",
			Timezone:     "UTC",
			Notification: true,
			WeekStart:    "monday",
			CreatedAt:    now,
		}
	} else if err != nil {
		return nil, err
	}

	if in.Language != nil {
		prefs.Language = *in.Language
	}
	if in.Timezone != nil {
		prefs.Timezone = *in.Timezone
	}
	if in.Notification != nil {
		prefs.Notification = *in.Notification
	}
	if in.WeekStart != nil {
		prefs.WeekStart = *in.WeekStart
	}
	prefs.Version = s.clock.Next()
	prefs.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertPreferences(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	s.publish(ctx, events.SettingsUpdated, map[string]interface{}{"user_id": userID})
	return prefs, nil
}

// GetPreferences returns the user's preferences, creating defaults on first
// read is left to UpdateSettings; a missing row surfaces store.ErrNotFound.
func (s *Service) GetPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	return s.store.GetPreferences(ctx, userID)
}

func priorityOrDefault(p models.Priority) models.Priority {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return p
	default:
		return models.PriorityMedium
	}
}

func (s *Service) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, eventType, bus.NewEvent(eventType, "domain-service", payload)); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}
