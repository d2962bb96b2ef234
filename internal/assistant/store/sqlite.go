package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/northstarhq/northstar/internal/assistant/models"
)

// SQLiteStore persists assistant profiles and permission grants via sqlx.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// initializes the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_mode=rwc", dbPath)
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

// NewSQLiteStoreFromDB wraps an already-open connection shared with the
// other stores.
func NewSQLiteStoreFromDB(db *sqlx.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assistant_profiles (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT 'en',
		ai_model TEXT NOT NULL DEFAULT '',
		style_formality INTEGER NOT NULL DEFAULT 50,
		style_directness INTEGER NOT NULL DEFAULT 50,
		style_humor INTEGER NOT NULL DEFAULT 50,
		style_empathy INTEGER NOT NULL DEFAULT 50,
		style_motivation INTEGER NOT NULL DEFAULT 50,
		dialogue_temperature REAL NOT NULL DEFAULT 0.7,
		intent_temperature REAL NOT NULL DEFAULT 0.1,
		custom_instructions TEXT NOT NULL DEFAULT '',
		requires_confirmation INTEGER NOT NULL DEFAULT 0,
		is_default INTEGER NOT NULL DEFAULT 0,
		is_public INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assistant_profiles_owner_version ON assistant_profiles(owner_id, version);

	CREATE TABLE IF NOT EXISTS assistant_permissions (
		assistant_id TEXT NOT NULL,
		grantee_id TEXT NOT NULL,
		level TEXT NOT NULL,
		granted_by TEXT NOT NULL,
		expires_at DATETIME,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (assistant_id, grantee_id)
	);
	CREATE INDEX IF NOT EXISTS idx_assistant_permissions_grantee ON assistant_permissions(grantee_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// profileRow flattens the style traits for sqlx column mapping.
type profileRow struct {
	ID                   string    `db:"id"`
	OwnerID              string    `db:"owner_id"`
	Name                 string    `db:"name"`
	Language             string    `db:"language"`
	AIModel              string    `db:"ai_model"`
	StyleFormality       int       `db:"style_formality"`
	StyleDirectness      int       `db:"style_directness"`
	StyleHumor           int       `db:"style_humor"`
	StyleEmpathy         int       `db:"style_empathy"`
	StyleMotivation      int       `db:"style_motivation"`
	DialogueTemperature  float64   `db:"dialogue_temperature"`
	IntentTemperature    float64   `db:"intent_temperature"`
	CustomInstructions   string    `db:"custom_instructions"`
	RequiresConfirmation bool      `db:"requires_confirmation"`
	IsDefault            bool      `db:"is_default"`
	IsPublic             bool      `db:"is_public"`
	Version              int64     `db:"version"`
	Deleted              bool      `db:"deleted"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func toRow(p *models.Profile) *profileRow {
	return &profileRow{
		ID:                   p.ID,
		OwnerID:              p.OwnerID,
		Name:                 p.Name,
		Language:             p.Language,
		AIModel:              p.AIModel,
		StyleFormality:       p.Style.Formality,
		StyleDirectness:      p.Style.Directness,
		StyleHumor:           p.Style.Humor,
		StyleEmpathy:         p.Style.Empathy,
		StyleMotivation:      p.Style.Motivation,
		DialogueTemperature:  p.DialogueTemperature,
		IntentTemperature:    p.IntentTemperature,
		CustomInstructions:   p.CustomInstructions,
		RequiresConfirmation: p.RequiresConfirmation,
		IsDefault:            p.IsDefault,
		IsPublic:             p.IsPublic,
		Version:              p.Version,
		Deleted:              p.Deleted,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func (r *profileRow) toModel() *models.Profile {
	return &models.Profile{
		ID:       r.ID,
		OwnerID:  r.OwnerID,
		Name:     r.Name,
		Language: r.Language,
		AIModel:  r.AIModel,
		Style: models.StyleTraits{
			Formality:  r.StyleFormality,
			Directness: r.StyleDirectness,
			Humor:      r.StyleHumor,
			Empathy:    r.StyleEmpathy,
			Motivation: r.StyleMotivation,
		},
		DialogueTemperature:  r.DialogueTemperature,
		IntentTemperature:    r.IntentTemperature,
		CustomInstructions:   r.CustomInstructions,
		RequiresConfirmation: r.RequiresConfirmation,
		IsDefault:            r.IsDefault,
		IsPublic:             r.IsPublic,
		Version:              r.Version,
		Deleted:              r.Deleted,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

const profileColumns = `id, owner_id, name, language, ai_model,
	style_formality, style_directness, style_humor, style_empathy, style_motivation,
	dialogue_temperature, intent_temperature, custom_instructions,
	requires_confirmation, is_default, is_public, version, deleted, created_at, updated_at`

const profileValues = `:id, :owner_id, :name, :language, :ai_model,
	:style_formality, :style_directness, :style_humor, :style_empathy, :style_motivation,
	:dialogue_temperature, :intent_temperature, :custom_instructions,
	:requires_confirmation, :is_default, :is_public, :version, :deleted, :created_at, :updated_at`

func (s *SQLiteStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO assistant_profiles (`+profileColumns+`)
		VALUES (`+profileValues+`)
	`, toRow(p))
	return err
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var r profileRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM assistant_profiles WHERE id = ? AND deleted = 0`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.toModel(), nil
}

func (s *SQLiteStore) GetProfileAny(ctx context.Context, id string) (*models.Profile, error) {
	var r profileRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM assistant_profiles WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.toModel(), nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, p *models.Profile) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE assistant_profiles SET
			name = :name,
			language = :language,
			ai_model = :ai_model,
			style_formality = :style_formality,
			style_directness = :style_directness,
			style_humor = :style_humor,
			style_empathy = :style_empathy,
			style_motivation = :style_motivation,
			dialogue_temperature = :dialogue_temperature,
			intent_temperature = :intent_temperature,
			custom_instructions = :custom_instructions,
			requires_confirmation = :requires_confirmation,
			is_default = :is_default,
			is_public = :is_public,
			version = :version,
			deleted = :deleted,
			updated_at = :updated_at
		WHERE id = :id
	`, toRow(p))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO assistant_profiles (`+profileColumns+`)
		VALUES (`+profileValues+`)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			language = excluded.language,
			ai_model = excluded.ai_model,
			style_formality = excluded.style_formality,
			style_directness = excluded.style_directness,
			style_humor = excluded.style_humor,
			style_empathy = excluded.style_empathy,
			style_motivation = excluded.style_motivation,
			dialogue_temperature = excluded.dialogue_temperature,
			intent_temperature = excluded.intent_temperature,
			custom_instructions = excluded.custom_instructions,
			requires_confirmation = excluded.requires_confirmation,
			is_default = excluded.is_default,
			is_public = excluded.is_public,
			version = excluded.version,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
		WHERE assistant_profiles.owner_id = excluded.owner_id
	`, toRow(p))
	return err
}

func (s *SQLiteStore) ListOwned(ctx context.Context, ownerID string) ([]*models.Profile, error) {
	rows := []profileRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM assistant_profiles WHERE owner_id = ? AND deleted = 0 ORDER BY created_at ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

func (s *SQLiteStore) CountOwned(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM assistant_profiles WHERE owner_id = ? AND deleted = 0
	`, ownerID)
	return n, err
}

func (s *SQLiteStore) SetDefault(ctx context.Context, ownerID, profileID string, version int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE assistant_profiles SET is_default = 0, updated_at = ?
		WHERE owner_id = ? AND is_default = 1 AND id != ?
	`, now, ownerID, profileID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE assistant_profiles SET is_default = 1, version = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND deleted = 0
	`, version, now, profileID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetDefault(ctx context.Context, ownerID string) (*models.Profile, error) {
	var r profileRow
	err := s.db.GetContext(ctx, &r, `
		SELECT * FROM assistant_profiles WHERE owner_id = ? AND is_default = 1 AND deleted = 0
	`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.toModel(), nil
}

func (s *SQLiteStore) ListAccessible(ctx context.Context, userID string, now time.Time) ([]*models.Profile, error) {
	rows := []profileRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT p.* FROM assistant_profiles p
		LEFT JOIN assistant_permissions perm
			ON perm.assistant_id = p.id AND perm.grantee_id = ?
		WHERE p.deleted = 0 AND (
			p.owner_id = ?
			OR p.is_public = 1
			OR (perm.grantee_id IS NOT NULL AND (perm.expires_at IS NULL OR perm.expires_at > ?))
		)
		ORDER BY p.created_at ASC
	`, userID, userID, now)
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

func (s *SQLiteStore) ProfilesSince(ctx context.Context, userID string, now time.Time, since int64, limit int) ([]*models.Profile, error) {
	rows := []profileRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT p.* FROM assistant_profiles p
		LEFT JOIN assistant_permissions perm
			ON perm.assistant_id = p.id AND perm.grantee_id = ?
		WHERE p.version > ? AND (
			p.owner_id = ?
			OR p.is_public = 1
			OR (perm.grantee_id IS NOT NULL AND (perm.expires_at IS NULL OR perm.expires_at > ?))
		)
		ORDER BY p.version ASC LIMIT ?
	`, userID, since, userID, now, limit)
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

func toModels(rows []profileRow) []*models.Profile {
	out := make([]*models.Profile, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out
}

// --- permissions ---

func (s *SQLiteStore) UpsertPermission(ctx context.Context, perm *models.Permission) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO assistant_permissions (assistant_id, grantee_id, level, granted_by, expires_at, created_at)
		VALUES (:assistant_id, :grantee_id, :level, :granted_by, :expires_at, :created_at)
		ON CONFLICT(assistant_id, grantee_id) DO UPDATE SET
			level = excluded.level,
			granted_by = excluded.granted_by,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`, perm)
	return err
}

func (s *SQLiteStore) GetPermission(ctx context.Context, assistantID, granteeID string) (*models.Permission, error) {
	var p models.Permission
	err := s.db.GetContext(ctx, &p, `
		SELECT * FROM assistant_permissions WHERE assistant_id = ? AND grantee_id = ?
	`, assistantID, granteeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) DeletePermission(ctx context.Context, assistantID, granteeID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM assistant_permissions WHERE assistant_id = ? AND grantee_id = ?
	`, assistantID, granteeID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListPermissions(ctx context.Context, assistantID string) ([]*models.Permission, error) {
	out := []*models.Permission{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM assistant_permissions WHERE assistant_id = ? ORDER BY created_at ASC
	`, assistantID)
	return out, err
}

func (s *SQLiteStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM assistant_permissions WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
