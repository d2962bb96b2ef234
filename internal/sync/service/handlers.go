package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	assistantmodels "github.com/northstarhq/northstar/internal/assistant/models"
	assistantstore "github.com/northstarhq/northstar/internal/assistant/store"
	domainmodels "github.com/northstarhq/northstar/internal/domain/models"
	domainstore "github.com/northstarhq/northstar/internal/domain/store"
	"github.com/northstarhq/northstar/internal/sync/models"
)

// ErrNotFound is returned by handlers when the object does not exist for
// the user.
var ErrNotFound = errors.New("object not found")

// Handler applies and reads one synchronized object type.
type Handler interface {
	Type() string
	Get(ctx context.Context, userID, objectID string) (*models.SyncObject, error)
	Apply(ctx context.Context, userID string, obj *models.SyncObject, now time.Time) error
	Since(ctx context.Context, userID string, since int64, limit int) ([]models.SyncObject, error)
}

// typedHandler adapts a store's typed record to the sync transport form.
type typedHandler[T any] struct {
	name    string
	get     func(ctx context.Context, userID, id string) (*T, error)
	upsert  func(ctx context.Context, rec *T) error
	since   func(ctx context.Context, userID string, since int64, limit int) ([]*T, error)
	stamp   func(rec *T, userID, objectID string, version int64, deleted bool, now time.Time)
	extract func(rec *T) (objectID string, version int64, deleted bool)
}

func (h *typedHandler[T]) Type() string { return h.name }

func (h *typedHandler[T]) toObject(rec *T) (models.SyncObject, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return models.SyncObject{}, fmt.Errorf("failed to encode %s: %w", h.name, err)
	}
	id, ver, deleted := h.extract(rec)
	return models.SyncObject{
		ObjectID:   id,
		ObjectType: h.name,
		Data:       data,
		Version:    ver,
		Deleted:    deleted,
	}, nil
}

func (h *typedHandler[T]) Get(ctx context.Context, userID, objectID string) (*models.SyncObject, error) {
	rec, err := h.get(ctx, userID, objectID)
	if err != nil {
		return nil, err
	}
	obj, err := h.toObject(rec)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (h *typedHandler[T]) Apply(ctx context.Context, userID string, obj *models.SyncObject, now time.Time) error {
	var rec T
	if len(obj.Data) > 0 {
		if err := json.Unmarshal(obj.Data, &rec); err != nil {
			return fmt.Errorf("invalid %s payload: %w", h.name, err)
		}
	}
	h.stamp(&rec, userID, obj.ObjectID, obj.Version, obj.Deleted, now)
	return h.upsert(ctx, &rec)
}

func (h *typedHandler[T]) Since(ctx context.Context, userID string, since int64, limit int) ([]models.SyncObject, error) {
	recs, err := h.since(ctx, userID, since, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.SyncObject, 0, len(recs))
	for _, rec := range recs {
		obj, err := h.toObject(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func mapDomainErr[T any](rec *T, err error) (*T, error) {
	if errors.Is(err, domainstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rec, err
}

// NewGoalHandler syncs goals against the domain store.
func NewGoalHandler(st domainstore.Store) Handler {
	return &typedHandler[domainmodels.Goal]{
		name: models.TypeGoal,
		get: func(ctx context.Context, userID, id string) (*domainmodels.Goal, error) {
			g, err := st.GetGoal(ctx, userID, id)
			return mapDomainErr(g, err)
		},
		upsert: st.UpsertGoal,
		since:  st.GoalsSince,
		stamp: func(g *domainmodels.Goal, userID, objectID string, version int64, deleted bool, now time.Time) {
			g.ID = objectID
			g.UserID = userID
			g.Version = version
			g.Deleted = deleted
			if g.Status == "" {
				g.Status = domainmodels.GoalStatusActive
			}
			if g.Priority == "" {
				g.Priority = domainmodels.PriorityMedium
			}
			if g.CreatedAt.IsZero() {
				g.CreatedAt = now
			}
			g.UpdatedAt = now
		},
		extract: func(g *domainmodels.Goal) (string, int64, bool) {
			return g.ID, g.Version, g.Deleted
		},
	}
}

// NewTaskHandler syncs tasks against the domain store.
func NewTaskHandler(st domainstore.Store) Handler {
	return &typedHandler[domainmodels.Task]{
		name: models.TypeTask,
		get: func(ctx context.Context, userID, id string) (*domainmodels.Task, error) {
			tk, err := st.GetTask(ctx, userID, id)
			return mapDomainErr(tk, err)
		},
		upsert: st.UpsertTask,
		since:  st.TasksSince,
		stamp: func(tk *domainmodels.Task, userID, objectID string, version int64, deleted bool, now time.Time) {
			tk.ID = objectID
			tk.UserID = userID
			tk.Version = version
			tk.Deleted = deleted
			if tk.Status == "" {
				tk.Status = domainmodels.TaskStatusPending
			}
			if tk.Priority == "" {
				tk.Priority = domainmodels.PriorityMedium
			}
			if tk.CreatedAt.IsZero() {
				tk.CreatedAt = now
			}
			tk.UpdatedAt = now
		},
		extract: func(tk *domainmodels.Task) (string, int64, bool) {
			return tk.ID, tk.Version, tk.Deleted
		},
	}
}

// NewProjectHandler syncs projects against the domain store.
func NewProjectHandler(st domainstore.Store) Handler {
	return &typedHandler[domainmodels.Project]{
		name: models.TypeProject,
		get: func(ctx context.Context, userID, id string) (*domainmodels.Project, error) {
			p, err := st.GetProject(ctx, userID, id)
			return mapDomainErr(p, err)
		},
		upsert: st.UpsertProject,
		since:  st.ProjectsSince,
		stamp: func(p *domainmodels.Project, userID, objectID string, version int64, deleted bool, now time.Time) {
			p.ID = objectID
			p.UserID = userID
			p.Version = version
			p.Deleted = deleted
			if p.Status == "" {
				p.Status = domainmodels.GoalStatusActive
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
			p.UpdatedAt = now
		},
		extract: func(p *domainmodels.Project) (string, int64, bool) {
			return p.ID, p.Version, p.Deleted
		},
	}
}

// NewLifeRatingHandler syncs life ratings against the domain store.
func NewLifeRatingHandler(st domainstore.Store) Handler {
	return &typedHandler[domainmodels.LifeRating]{
		name: models.TypeLifeRating,
		get: func(ctx context.Context, userID, id string) (*domainmodels.LifeRating, error) {
			r, err := st.GetLifeRating(ctx, userID, id)
			return mapDomainErr(r, err)
		},
		upsert: st.UpsertLifeRating,
		since:  st.LifeRatingsSince,
		stamp: func(r *domainmodels.LifeRating, userID, objectID string, version int64, deleted bool, now time.Time) {
			r.ID = objectID
			r.UserID = userID
			r.Version = version
			r.Deleted = deleted
			if r.RatedAt.IsZero() {
				r.RatedAt = now
			}
			if r.CreatedAt.IsZero() {
				r.CreatedAt = now
			}
			r.UpdatedAt = now
		},
		extract: func(r *domainmodels.LifeRating) (string, int64, bool) {
			return r.ID, r.Version, r.Deleted
		},
	}
}

// NewPreferencesHandler syncs the single per-user preferences record. The
// object id is the user id; preferences are never tombstoned.
func NewPreferencesHandler(st domainstore.Store) Handler {
	return &typedHandler[domainmodels.Preferences]{
		name: models.TypePreferences,
		get: func(ctx context.Context, userID, _ string) (*domainmodels.Preferences, error) {
			p, err := st.GetPreferences(ctx, userID)
			return mapDomainErr(p, err)
		},
		upsert: st.UpsertPreferences,
		since:  st.PreferencesSince,
		stamp: func(p *domainmodels.Preferences, userID, _ string, version int64, _ bool, now time.Time) {
			p.UserID = userID
			p.Version = version
			if p.Language == "" {
				p.Language = "en"
			}
			if p.Timezone == "" {
				p.Timezone = "UTC"
			}
			if p.WeekStart == "" {
				p.WeekStart = "monday"
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
			p.UpdatedAt = now
		},
		extract: func(p *domainmodels.Preferences) (string, int64, bool) {
			return p.UserID, p.Version, false
		},
	}
}

// NewOnboardingHandler syncs the single per-user onboarding record. Like
// preferences, the object id is the user id and the record is never
// tombstoned.
func NewOnboardingHandler(st domainstore.Store) Handler {
	return &typedHandler[domainmodels.OnboardingState]{
		name: models.TypeOnboarding,
		get: func(ctx context.Context, userID, _ string) (*domainmodels.OnboardingState, error) {
			o, err := st.GetOnboarding(ctx, userID)
			return mapDomainErr(o, err)
		},
		upsert: st.UpsertOnboarding,
		since:  st.OnboardingSince,
		stamp: func(o *domainmodels.OnboardingState, userID, _ string, version int64, _ bool, now time.Time) {
			o.UserID = userID
			o.Version = version
			if o.CurrentStep == "" {
				o.CurrentStep = "welcome"
			}
			if o.CreatedAt.IsZero() {
				o.CreatedAt = now
			}
			o.UpdatedAt = now
		},
		extract: func(o *domainmodels.OnboardingState) (string, int64, bool) {
			return o.UserID, o.Version, false
		},
	}
}

// NewAssistantHandler syncs assistant profiles. The delta feed covers every
// profile the caller can read (owned, public, or granted), tombstones
// included; writes remain owner-only.
func NewAssistantHandler(st assistantstore.Store) Handler {
	return &typedHandler[assistantmodels.Profile]{
		name: models.TypeAssistantProfile,
		get: func(ctx context.Context, userID, id string) (*assistantmodels.Profile, error) {
			p, err := st.GetProfileAny(ctx, id)
			if errors.Is(err, assistantstore.ErrNotFound) {
				return nil, ErrNotFound
			}
			if err != nil {
				return nil, err
			}
			if p.OwnerID != userID {
				return nil, ErrNotFound
			}
			return p, nil
		},
		upsert: st.UpsertProfile,
		since: func(ctx context.Context, userID string, since int64, limit int) ([]*assistantmodels.Profile, error) {
			return st.ProfilesSince(ctx, userID, time.Now().UTC(), since, limit)
		},
		stamp: func(p *assistantmodels.Profile, userID, objectID string, version int64, deleted bool, now time.Time) {
			p.ID = objectID
			p.OwnerID = userID
			p.Version = version
			p.Deleted = deleted
			if p.Name == "" {
				p.Name = "Assistant"
			}
			if p.Language == "" {
				p.Language = "en"
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
			p.UpdatedAt = now
		},
		extract: func(p *assistantmodels.Profile) (string, int64, bool) {
			return p.ID, p.Version, p.Deleted
		},
	}
}
