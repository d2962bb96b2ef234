package service

import (
	"context"
	"errors"

	convservice "github.com/northstarhq/northstar/internal/conversation/service"

	"github.com/northstarhq/northstar/internal/assistant/models"
	"github.com/northstarhq/northstar/internal/assistant/store"
)

// ProfileSource adapts the assistant service to the conversation engine's
// profile lookup. A named assistant needs read access; otherwise the user's
// default profile applies, and having none is not an error.
type ProfileSource struct {
	svc *Service
}

var _ convservice.ProfileProvider = (*ProfileSource)(nil)

func NewProfileSource(svc *Service) *ProfileSource {
	return &ProfileSource{svc: svc}
}

func (p *ProfileSource) ActiveProfile(ctx context.Context, userID, assistantID string) (*convservice.Profile, error) {
	var (
		profile *models.Profile
		err     error
	)
	if assistantID != "" {
		profile, err = p.svc.GetProfile(ctx, userID, assistantID)
	} else {
		profile, err = p.svc.DefaultProfile(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, err
	}
	dialogue := profile.DialogueTemperature
	intent := profile.IntentTemperature
	return &convservice.Profile{
		ID:                  profile.ID,
		Model:               profile.AIModel,
		DialogueTemperature: &dialogue,
		IntentTemperature:   &intent,
		CustomInstructions:  profile.CustomInstructions,
	}, nil
}
