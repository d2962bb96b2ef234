// Package models defines the core goal-management records: goals, tasks,
// projects, life-area ratings and user preferences. Every record carries a
// monotonic version used by the sync delta feed and optimistic concurrency.
package models

import "time"

// GoalStatus enumerates goal lifecycle states.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusArchived  GoalStatus = "archived"
)

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Priority levels shared by tasks and goals.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// LifeAreas is the canonical set of life areas a goal or rating can belong to.
var LifeAreas = []string{
	"Health", "Career", "Relationships", "Finance",
	"Personal", "Education", "Recreation", "Spiritual",
}

// IsLifeArea reports whether the name is one of the canonical life areas.
func IsLifeArea(name string) bool {
	for _, a := range LifeAreas {
		if a == name {
			return true
		}
	}
	return false
}

// Goal is a long-running objective, optionally tied to a life area.
type Goal struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	LifeArea    string     `db:"life_area" json:"life_area,omitempty"`
	Status      GoalStatus `db:"status" json:"status"`
	Priority    Priority   `db:"priority" json:"priority"`
	TargetDate  *time.Time `db:"target_date" json:"target_date,omitempty"`
	Version     int64      `db:"version" json:"version"`
	Deleted     bool       `db:"deleted" json:"deleted,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Task is a single actionable item, optionally attached to a goal or project.
type Task struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	GoalID      string     `db:"goal_id" json:"goal_id,omitempty"`
	ProjectID   string     `db:"project_id" json:"project_id,omitempty"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	Status      TaskStatus `db:"status" json:"status"`
	Priority    Priority   `db:"priority" json:"priority"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	DurationMin int        `db:"duration_min" json:"duration_min,omitempty"`
	Version     int64      `db:"version" json:"version"`
	Deleted     bool       `db:"deleted" json:"deleted,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Project groups related tasks under a shared outcome.
type Project struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	Status      GoalStatus `db:"status" json:"status"`
	TargetDate  *time.Time `db:"target_date" json:"target_date,omitempty"`
	Version     int64      `db:"version" json:"version"`
	Deleted     bool       `db:"deleted" json:"deleted,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// LifeRating is a user's 1-10 satisfaction score for a life area at a point
// in time.
type LifeRating struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	LifeArea  string    `db:"life_area" json:"life_area"`
	Score     int       `db:"score" json:"score"`
	Note      string    `db:"note" json:"note,omitempty"`
	RatedAt   time.Time `db:"rated_at" json:"rated_at"`
	Version   int64     `db:"version" json:"version"`
	Deleted   bool      `db:"deleted" json:"deleted,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OnboardingState tracks a user's progress through first-run setup. The
// first goal is referenced by id only; readers look it up when needed.
type OnboardingState struct {
	UserID      string     `db:"user_id" json:"user_id"`
	CurrentStep string     `db:"current_step" json:"current_step"`
	Completed   bool       `db:"completed" json:"completed"`
	FirstGoalID string     `db:"first_goal_id" json:"first_goal_id,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Version     int64      `db:"version" json:"version"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Preferences holds per-user settings touched by the update_settings action.
type Preferences struct {
	UserID       string    `db:"user_id" json:"user_id"`
	Language     string    `db:"language" json:"language"`
	Timezone     string    `db:"timezone" json:"timezone"`
	Notification bool      `db:"notification" json:"notification"`
	WeekStart    string    `db:"week_start" json:"week_start"`
	Version      int64     `db:"version" json:"version"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
