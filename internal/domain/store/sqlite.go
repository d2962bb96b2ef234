package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/northstarhq/northstar/internal/domain/models"
)

// SQLiteStore persists goal-management records in sqlite via sqlx.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// initializes the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	normalized := normalizeSQLitePath(dbPath)
	if err := ensureSQLiteDir(normalized); err != nil {
		return nil, fmt.Errorf("failed to prepare database path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_mode=rwc", normalized)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// NewSQLiteStoreFromDB wraps an already-open connection. Used by tests and by
// components sharing one database file.
func NewSQLiteStoreFromDB(db *sqlx.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func ensureSQLiteDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func normalizeSQLitePath(dbPath string) string {
	if dbPath == "" || dbPath == ":memory:" {
		return dbPath
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return dbPath
	}
	return abs
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		life_area TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		target_date DATETIME,
		version INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_user_version ON goals(user_id, version);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		goal_id TEXT NOT NULL DEFAULT '',
		project_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		due_date DATETIME,
		duration_min INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user_version ON tasks(user_id, version);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		target_date DATETIME,
		version INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_user_version ON projects(user_id, version);

	CREATE TABLE IF NOT EXISTS life_ratings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		life_area TEXT NOT NULL,
		score INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		rated_at DATETIME NOT NULL,
		version INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_life_ratings_user_version ON life_ratings(user_id, version);

	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT PRIMARY KEY,
		language TEXT NOT NULL DEFAULT 'en',
		timezone TEXT NOT NULL DEFAULT 'UTC',
		notification INTEGER NOT NULL DEFAULT 1,
		week_start TEXT NOT NULL DEFAULT 'monday',
		version INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_preferences_version ON preferences(user_id, version);

	CREATE TABLE IF NOT EXISTS onboarding (
		user_id TEXT PRIMARY KEY,
		current_step TEXT NOT NULL DEFAULT 'welcome',
		completed INTEGER NOT NULL DEFAULT 0,
		first_goal_id TEXT NOT NULL DEFAULT '',
		completed_at DATETIME,
		version INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_onboarding_version ON onboarding(user_id, version);
	`
	_, err := s.db.Exec(schema)
	return err
}

// DB exposes the underlying connection so sibling stores can share it.
func (s *SQLiteStore) DB() *sqlx.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

// --- goals ---

func (s *SQLiteStore) CreateGoal(ctx context.Context, g *models.Goal) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, description, life_area, status, priority, target_date, version, deleted, created_at, updated_at)
		VALUES (:id, :user_id, :title, :description, :life_area, :status, :priority, :target_date, :version, :deleted, :created_at, :updated_at)
	`, g)
	return err
}

func (s *SQLiteStore) GetGoal(ctx context.Context, userID, id string) (*models.Goal, error) {
	var g models.Goal
	err := s.db.GetContext(ctx, &g, `SELECT * FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *SQLiteStore) ListGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	out := []*models.Goal{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM goals WHERE user_id = ? AND deleted = 0 ORDER BY created_at DESC
	`, userID)
	return out, err
}

func (s *SQLiteStore) UpsertGoal(ctx context.Context, g *models.Goal) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, description, life_area, status, priority, target_date, version, deleted, created_at, updated_at)
		VALUES (:id, :user_id, :title, :description, :life_area, :status, :priority, :target_date, :version, :deleted, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			life_area = excluded.life_area,
			status = excluded.status,
			priority = excluded.priority,
			target_date = excluded.target_date,
			version = excluded.version,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
		WHERE goals.user_id = excluded.user_id
	`, g)
	return err
}

func (s *SQLiteStore) GoalsSince(ctx context.Context, userID string, since int64, limit int) ([]*models.Goal, error) {
	out := []*models.Goal{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM goals WHERE user_id = ? AND version > ? ORDER BY version ASC LIMIT ?
	`, userID, since, limit)
	return out, err
}

// --- tasks ---

func (s *SQLiteStore) CreateTask(ctx context.Context, t *models.Task) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tasks (id, user_id, goal_id, project_id, title, description, status, priority, due_date, duration_min, version, deleted, created_at, updated_at)
		VALUES (:id, :user_id, :goal_id, :project_id, :title, :description, :status, :priority, :due_date, :duration_min, :version, :deleted, :created_at, :updated_at)
	`, t)
	return err
}

func (s *SQLiteStore) GetTask(ctx context.Context, userID, id string) (*models.Task, error) {
	var t models.Task
	err := s.db.GetContext(ctx, &t, `SELECT * FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	out := []*models.Task{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM tasks WHERE user_id = ? AND deleted = 0 ORDER BY created_at DESC
	`, userID)
	return out, err
}

func (s *SQLiteStore) UpsertTask(ctx context.Context, t *models.Task) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tasks (id, user_id, goal_id, project_id, title, description, status, priority, due_date, duration_min, version, deleted, created_at, updated_at)
		VALUES (:id, :user_id, :goal_id, :project_id, :title, :description, :status, :priority, :due_date, :duration_min, :version, :deleted, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			goal_id = excluded.goal_id,
			project_id = excluded.project_id,
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			due_date = excluded.due_date,
			duration_min = excluded.duration_min,
			version = excluded.version,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
		WHERE tasks.user_id = excluded.user_id
	`, t)
	return err
}

func (s *SQLiteStore) TasksSince(ctx context.Context, userID string, since int64, limit int) ([]*models.Task, error) {
	out := []*models.Task{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM tasks WHERE user_id = ? AND version > ? ORDER BY version ASC LIMIT ?
	`, userID, since, limit)
	return out, err
}

// --- projects ---

func (s *SQLiteStore) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO projects (id, user_id, title, description, status, target_date, version, deleted, created_at, updated_at)
		VALUES (:id, :user_id, :title, :description, :status, :target_date, :version, :deleted, :created_at, :updated_at)
	`, p)
	return err
}

func (s *SQLiteStore) GetProject(ctx context.Context, userID, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.GetContext(ctx, &p, `SELECT * FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context, userID string) ([]*models.Project, error) {
	out := []*models.Project{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM projects WHERE user_id = ? AND deleted = 0 ORDER BY created_at DESC
	`, userID)
	return out, err
}

func (s *SQLiteStore) UpsertProject(ctx context.Context, p *models.Project) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO projects (id, user_id, title, description, status, target_date, version, deleted, created_at, updated_at)
		VALUES (:id, :user_id, :title, :description, :status, :target_date, :version, :deleted, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			target_date = excluded.target_date,
			version = excluded.version,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
		WHERE projects.user_id = excluded.user_id
	`, p)
	return err
}

func (s *SQLiteStore) ProjectsSince(ctx context.Context, userID string, since int64, limit int) ([]*models.Project, error) {
	out := []*models.Project{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM projects WHERE user_id = ? AND version > ? ORDER BY version ASC LIMIT ?
	`, userID, since, limit)
	return out, err
}

// --- life ratings ---

func (s *SQLiteStore) CreateLifeRating(ctx context.Context, r *models.LifeRating) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO life_ratings (id, user_id, life_area, score, note, rated_at, version, deleted, created_at, updated_at)
		VALUES (:id, :user_id, :life_area, :score, :note, :rated_at, :version, :deleted, :created_at, :updated_at)
	`, r)
	return err
}

func (s *SQLiteStore) GetLifeRating(ctx context.Context, userID, id string) (*models.LifeRating, error) {
	var r models.LifeRating
	err := s.db.GetContext(ctx, &r, `SELECT * FROM life_ratings WHERE id = ? AND user_id = ?`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) ListLifeRatings(ctx context.Context, userID, lifeArea string) ([]*models.LifeRating, error) {
	out := []*models.LifeRating{}
	if lifeArea != "" {
		err := s.db.SelectContext(ctx, &out, `
			SELECT * FROM life_ratings WHERE user_id = ? AND life_area = ? AND deleted = 0 ORDER BY rated_at DESC
		`, userID, lifeArea)
		return out, err
	}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM life_ratings WHERE user_id = ? AND deleted = 0 ORDER BY rated_at DESC
	`, userID)
	return out, err
}

func (s *SQLiteStore) UpsertLifeRating(ctx context.Context, r *models.LifeRating) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO life_ratings (id, user_id, life_area, score, note, rated_at, version, deleted, created_at, updated_at)
		VALUES (:id, :user_id, :life_area, :score, :note, :rated_at, :version, :deleted, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			life_area = excluded.life_area,
			score = excluded.score,
			note = excluded.note,
			rated_at = excluded.rated_at,
			version = excluded.version,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
		WHERE life_ratings.user_id = excluded.user_id
	`, r)
	return err
}

func (s *SQLiteStore) LifeRatingsSince(ctx context.Context, userID string, since int64, limit int) ([]*models.LifeRating, error) {
	out := []*models.LifeRating{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM life_ratings WHERE user_id = ? AND version > ? ORDER BY version ASC LIMIT ?
	`, userID, since, limit)
	return out, err
}

// --- preferences ---

func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	var p models.Preferences
	err := s.db.GetContext(ctx, &p, `SELECT * FROM preferences WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) UpsertPreferences(ctx context.Context, p *models.Preferences) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO preferences (user_id, language, timezone, notification, week_start, version, created_at, updated_at)
		VALUES (:user_id, :language, :timezone, :notification, :week_start, :version, :created_at, :updated_at)
		ON CONFLICT(user_id) DO UPDATE SET
			language = excluded.language,
			timezone = excluded.timezone,
			notification = excluded.notification,
			week_start = excluded.week_start,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, p)
	return err
}

func (s *SQLiteStore) PreferencesSince(ctx context.Context, userID string, since int64, limit int) ([]*models.Preferences, error) {
	out := []*models.Preferences{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM preferences WHERE user_id = ? AND version > ? ORDER BY version ASC LIMIT ?
	`, userID, since, limit)
	return out, err
}

// --- onboarding ---

func (s *SQLiteStore) GetOnboarding(ctx context.Context, userID string) (*models.OnboardingState, error) {
	var o models.OnboardingState
	err := s.db.GetContext(ctx, &o, `SELECT * FROM onboarding WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *SQLiteStore) UpsertOnboarding(ctx context.Context, o *models.OnboardingState) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO onboarding (user_id, current_step, completed, first_goal_id, completed_at, version, created_at, updated_at)
		VALUES (:user_id, :current_step, :completed, :first_goal_id, :completed_at, :version, :created_at, :updated_at)
		ON CONFLICT(user_id) DO UPDATE SET
			current_step = excluded.current_step,
			completed = excluded.completed,
			first_goal_id = excluded.first_goal_id,
			completed_at = excluded.completed_at,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, o)
	return err
}

func (s *SQLiteStore) OnboardingSince(ctx context.Context, userID string, since int64, limit int) ([]*models.OnboardingState, error) {
	out := []*models.OnboardingState{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM onboarding WHERE user_id = ? AND version > ? ORDER BY version ASC LIMIT ?
	`, userID, since, limit)
	return out, err
}
