package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/northstarhq/northstar/internal/conversation/models"
)

// SQLiteRepository persists conversation state in sqlite.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	normalized := normalizeSQLitePath(dbPath)
	if err := ensureSQLiteDir(normalized); err != nil {
		return nil, fmt.Errorf("failed to prepare database path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_mode=rwc", normalized)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return repo, nil
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

func (r *SQLiteRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversation_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_type TEXT NOT NULL DEFAULT 'chat',
		status TEXT NOT NULL,
		current_intent TEXT NOT NULL DEFAULT '',
		turn_count INTEGER NOT NULL DEFAULT 0,
		successful_intents INTEGER NOT NULL DEFAULT 0,
		failed_intents INTEGER NOT NULL DEFAULT 0,
		avg_confidence REAL NOT NULL DEFAULT 0,
		incomplete_entities TEXT NOT NULL DEFAULT '[]',
		context_data TEXT NOT NULL DEFAULT '{}',
		started_at DATETIME NOT NULL,
		last_activity DATETIME NOT NULL,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON conversation_sessions(user_id, last_activity);

	CREATE TABLE IF NOT EXISTS conversation_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		user_message TEXT NOT NULL,
		intent TEXT NOT NULL,
		confidence REAL NOT NULL,
		entities TEXT NOT NULL DEFAULT '{}',
		reasoning TEXT NOT NULL DEFAULT '',
		fallback_used INTEGER NOT NULL DEFAULT 0,
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		previous_intent TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_logs_session ON conversation_logs(session_id, turn_number);

	CREATE TABLE IF NOT EXISTS intent_feedback (
		id TEXT PRIMARY KEY,
		log_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		original_intent TEXT NOT NULL,
		original_confidence REAL NOT NULL,
		corrected_intent TEXT NOT NULL,
		feedback_type TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_user ON intent_feedback(user_id, created_at);
	`
	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) UpsertSession(ctx context.Context, s *models.Session) error {
	incomplete, err := json.Marshal(s.IncompleteEntities)
	if err != nil {
		return err
	}
	contextData, err := json.Marshal(s.ContextData)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversation_sessions
			(id, user_id, session_type, status, current_intent, turn_count, successful_intents,
			 failed_intents, avg_confidence, incomplete_entities, context_data, started_at, last_activity, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			current_intent = excluded.current_intent,
			turn_count = excluded.turn_count,
			successful_intents = excluded.successful_intents,
			failed_intents = excluded.failed_intents,
			avg_confidence = excluded.avg_confidence,
			incomplete_entities = excluded.incomplete_entities,
			context_data = excluded.context_data,
			last_activity = excluded.last_activity,
			completed_at = excluded.completed_at
	`, s.ID, s.UserID, s.SessionType, string(s.Status), s.CurrentIntent, s.TurnCount, s.SuccessfulIntents,
		s.FailedIntents, s.AvgConfidence, string(incomplete), string(contextData), s.StartedAt, s.LastActivity, s.CompletedAt)
	return err
}

func (r *SQLiteRepository) GetSession(ctx context.Context, userID, id string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_type, status, current_intent, turn_count, successful_intents,
		       failed_intents, avg_confidence, incomplete_entities, context_data, started_at, last_activity, completed_at
		FROM conversation_sessions WHERE id = ? AND user_id = ?
	`, id, userID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *SQLiteRepository) ListSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, session_type, status, current_intent, turn_count, successful_intents,
		       failed_intents, avg_confidence, incomplete_entities, context_data, started_at, last_activity, completed_at
		FROM conversation_sessions WHERE user_id = ? ORDER BY last_activity DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*models.Session, error) {
	s := &models.Session{}
	var status, incompleteRaw, contextRaw string
	var completedAt sql.NullTime
	if err := scanner.Scan(&s.ID, &s.UserID, &s.SessionType, &status, &s.CurrentIntent, &s.TurnCount,
		&s.SuccessfulIntents, &s.FailedIntents, &s.AvgConfidence, &incompleteRaw, &contextRaw,
		&s.StartedAt, &s.LastActivity, &completedAt); err != nil {
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(incompleteRaw), &s.IncompleteEntities); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(contextRaw), &s.ContextData); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLiteRepository) InsertLog(ctx context.Context, l *models.Log) error {
	entities, err := json.Marshal(l.Entities)
	if err != nil {
		return err
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversation_logs
			(id, user_id, session_id, turn_number, user_message, intent, confidence, entities,
			 reasoning, fallback_used, processing_time_ms, previous_intent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.UserID, l.SessionID, l.TurnNumber, l.UserMessage, l.Intent, l.Confidence, string(entities),
		l.Reasoning, l.FallbackUsed, l.ProcessingTimeMs, l.PreviousIntent, l.CreatedAt)
	return err
}

func (r *SQLiteRepository) GetLog(ctx context.Context, userID, id string) (*models.Log, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_id, turn_number, user_message, intent, confidence, entities,
		       reasoning, fallback_used, processing_time_ms, previous_intent, created_at
		FROM conversation_logs WHERE id = ? AND user_id = ?
	`, id, userID)
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

func (r *SQLiteRepository) ListLogs(ctx context.Context, userID, sessionID string) ([]*models.Log, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, turn_number, user_message, intent, confidence, entities,
		       reasoning, fallback_used, processing_time_ms, previous_intent, created_at
		FROM conversation_logs WHERE user_id = ? AND session_id = ? ORDER BY turn_number ASC
	`, userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLog(scanner interface{ Scan(dest ...any) error }) (*models.Log, error) {
	l := &models.Log{}
	var entitiesRaw string
	if err := scanner.Scan(&l.ID, &l.UserID, &l.SessionID, &l.TurnNumber, &l.UserMessage, &l.Intent,
		&l.Confidence, &entitiesRaw, &l.Reasoning, &l.FallbackUsed, &l.ProcessingTimeMs,
		&l.PreviousIntent, &l.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(entitiesRaw), &l.Entities); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *SQLiteRepository) InsertFeedback(ctx context.Context, f *models.Feedback) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO intent_feedback
			(id, log_id, user_id, original_intent, original_confidence, corrected_intent, feedback_type, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.LogID, f.UserID, f.OriginalIntent, f.OriginalConfidence, f.CorrectedIntent, string(f.FeedbackType), f.Comment, f.CreatedAt)
	return err
}

func (r *SQLiteRepository) ListFeedback(ctx context.Context, userID string) ([]*models.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, log_id, user_id, original_intent, original_confidence, corrected_intent, feedback_type, comment, created_at
		FROM intent_feedback WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Feedback
	for rows.Next() {
		f := &models.Feedback{}
		var feedbackType string
		if err := rows.Scan(&f.ID, &f.LogID, &f.UserID, &f.OriginalIntent, &f.OriginalConfidence,
			&f.CorrectedIntent, &feedbackType, &f.Comment, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.FeedbackType = models.FeedbackType(feedbackType)
		out = append(out, f)
	}
	return out, rows.Err()
}
