package store

import (
	"context"
	"errors"

	"github.com/northstarhq/northstar/internal/conversation/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository persists conversation sessions, turn logs and intent feedback.
type Repository interface {
	UpsertSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, userID, id string) (*models.Session, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error)

	InsertLog(ctx context.Context, l *models.Log) error
	GetLog(ctx context.Context, userID, id string) (*models.Log, error)
	ListLogs(ctx context.Context, userID, sessionID string) ([]*models.Log, error)

	InsertFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedback(ctx context.Context, userID string) ([]*models.Feedback, error)

	Close() error
}
