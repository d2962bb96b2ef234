// Package dto defines the wire representations of goal-management records.
package dto

import (
	"time"

	"github.com/northstarhq/northstar/internal/domain/models"
)

// Goal is the wire form of a goal.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	LifeArea    string     `json:"life_area,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FromGoal converts a model to its wire form.
func FromGoal(g *models.Goal) Goal {
	return Goal{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		LifeArea:    g.LifeArea,
		Status:      string(g.Status),
		Priority:    string(g.Priority),
		TargetDate:  g.TargetDate,
		Version:     g.Version,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// FromGoals converts a slice of goals.
func FromGoals(goals []*models.Goal) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		out = append(out, FromGoal(g))
	}
	return out
}

// Task is the wire form of a task.
type Task struct {
	ID          string     `json:"id"`
	GoalID      string     `json:"goal_id,omitempty"`
	ProjectID   string     `json:"project_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	DurationMin int        `json:"duration_min,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FromTask converts a model to its wire form.
func FromTask(t *models.Task) Task {
	return Task{
		ID:          t.ID,
		GoalID:      t.GoalID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		DurationMin: t.DurationMin,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// FromTasks converts a slice of tasks.
func FromTasks(tasks []*models.Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, FromTask(t))
	}
	return out
}

// Project is the wire form of a project.
type Project struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FromProject converts a model to its wire form.
func FromProject(p *models.Project) Project {
	return Project{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      string(p.Status),
		TargetDate:  p.TargetDate,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// FromProjects converts a slice of projects.
func FromProjects(projects []*models.Project) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, FromProject(p))
	}
	return out
}

// LifeRating is the wire form of a life-area rating.
type LifeRating struct {
	ID       string    `json:"id"`
	LifeArea string    `json:"life_area"`
	Score    int       `json:"score"`
	Note     string    `json:"note,omitempty"`
	RatedAt  time.Time `json:"rated_at"`
	Version  int64     `json:"version"`
}

// FromLifeRating converts a model to its wire form.
func FromLifeRating(r *models.LifeRating) LifeRating {
	return LifeRating{
		ID:       r.ID,
		LifeArea: r.LifeArea,
		Score:    r.Score,
		Note:     r.Note,
		RatedAt:  r.RatedAt,
		Version:  r.Version,
	}
}

// FromLifeRatings converts a slice of ratings.
func FromLifeRatings(ratings []*models.LifeRating) []LifeRating {
	out := make([]LifeRating, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, FromLifeRating(r))
	}
	return out
}

// Preferences is the wire form of user preferences.
type Preferences struct {
	Language     string    `json:"language"`
	Timezone     string    `json:"timezone"`
	Notification bool      `json:"notification"`
	WeekStart    string    `json:"week_start"`
	Version      int64     `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FromPreferences converts a model to its wire form.
func FromPreferences(p *models.Preferences) Preferences {
	return Preferences{
		Language:     p.Language,
		Timezone:     p.Timezone,
		Notification: p.Notification,
		WeekStart:    p.WeekStart,
		Version:      p.Version,
		UpdatedAt:    p.UpdatedAt,
	}
}

// CreateGoalRequest is the payload for POST /goals.
type CreateGoalRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	LifeArea    string     `json:"life_area"`
	Priority    string     `json:"priority"`
	TargetDate  *time.Time `json:"target_date"`
}

// CreateTaskRequest is the payload for POST /tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	GoalID      string     `json:"goal_id"`
	ProjectID   string     `json:"project_id"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	DurationMin int        `json:"duration_min"`
}

// CreateProjectRequest is the payload for POST /projects.
type CreateProjectRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"target_date"`
}

// RateLifeAreaRequest is the payload for POST /life-ratings.
type RateLifeAreaRequest struct {
	LifeArea string `json:"life_area" binding:"required"`
	Score    int    `json:"score" binding:"required"`
	Note     string `json:"note"`
}

// UpdatePreferencesRequest is the payload for PATCH /preferences.
type UpdatePreferencesRequest struct {
	Language     *string `json:"language,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
	Notification *bool   `json:"notification,omitempty"`
	WeekStart    *string `json:"week_start,omitempty"`
}
