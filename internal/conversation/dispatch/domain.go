package dispatch

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/northstarhq/northstar/internal/domain/dto"
	"github.com/northstarhq/northstar/internal/domain/models"
	"github.com/northstarhq/northstar/internal/domain/service"
)

// ErrMissingScore is returned when a rate_life_area execution has no usable
// score entity.
var ErrMissingScore = errors.New("a score between 1 and 10 is required")

// DomainAdapter implements DomainService over the goal-management service,
// translating string entities into typed inputs.
type DomainAdapter struct {
	svc *service.Service
}

var _ DomainService = (*DomainAdapter)(nil)

// NewDomainAdapter wraps the goal-management service.
func NewDomainAdapter(svc *service.Service) *DomainAdapter {
	return &DomainAdapter{svc: svc}
}

func (a *DomainAdapter) CreateGoal(ctx context.Context, userID string, entities map[string]string) (any, error) {
	g, err := a.svc.CreateGoal(ctx, userID, service.CreateGoalInput{
		Title:      entities["title"],
		LifeArea:   entities["life_area"],
		Priority:   models.Priority(entities["priority"]),
		TargetDate: parseDate(entities["due_date"]),
	})
	if err != nil {
		return nil, err
	}
	return dto.FromGoal(g), nil
}

func (a *DomainAdapter) CreateTask(ctx context.Context, userID string, entities map[string]string) (any, error) {
	t, err := a.svc.CreateTask(ctx, userID, service.CreateTaskInput{
		Title:       entities["title"],
		Priority:    models.Priority(entities["priority"]),
		DueDate:     parseDate(entities["due_date"]),
		DurationMin: parseDurationMinutes(entities["duration"]),
	})
	if err != nil {
		return nil, err
	}
	return dto.FromTask(t), nil
}

func (a *DomainAdapter) CreateProject(ctx context.Context, userID string, entities map[string]string) (any, error) {
	p, err := a.svc.CreateProject(ctx, userID, service.CreateProjectInput{
		Title:      entities["title"],
		TargetDate: parseDate(entities["due_date"]),
	})
	if err != nil {
		return nil, err
	}
	return dto.FromProject(p), nil
}

func (a *DomainAdapter) UpdateSettings(ctx context.Context, userID string, entities map[string]string) (any, error) {
	var in service.UpdateSettingsInput
	if v, ok := entities["language"]; ok && v != "" {
		in.Language = &v
	}
	if v, ok := entities["timezone"]; ok && v != "" {
		in.Timezone = &v
	}
	if v, ok := entities["notification"]; ok && v != "" {
		enabled := v == "on" || v == "true" || v == "enabled"
		in.Notification = &enabled
	}
	if v, ok := entities["week_start"]; ok && v != "" {
		in.WeekStart = &v
	}
	p, err := a.svc.UpdateSettings(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	return dto.FromPreferences(p), nil
}

func (a *DomainAdapter) RateLifeArea(ctx context.Context, userID string, entities map[string]string) (any, error) {
	score, err := strconv.Atoi(entities["score"])
	if err != nil {
		return nil, ErrMissingScore
	}
	r, err := a.svc.RateLifeArea(ctx, userID, entities["life_area"], score, entities["note"])
	if err != nil {
		return nil, err
	}
	return dto.FromLifeRating(r), nil
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

var durationValueRe = regexp.MustCompile(`^(\d+) (minutes|hours|days)$`)

// parseDurationMinutes converts the extractor's "N unit" form to minutes.
func parseDurationMinutes(s string) int {
	m := durationValueRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "minutes":
		return n
	case "hours":
		return n * 60
	default:
		return n * 60 * 24
	}
}
