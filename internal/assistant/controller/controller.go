package controller

import (
	"context"
	"sort"

	"github.com/northstarhq/northstar/internal/assistant/dto"
	"github.com/northstarhq/northstar/internal/assistant/models"
	"github.com/northstarhq/northstar/internal/assistant/service"
)

// Controller translates between wire DTOs and the assistant service.
type Controller struct {
	svc *service.Service
}

// NewController creates the assistant controller.
func NewController(svc *service.Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) Create(ctx context.Context, userID string, req dto.CreateAssistantRequest) (dto.AssistantResponse, error) {
	p, err := c.svc.CreateProfile(ctx, userID, service.CreateProfileInput{
		Name:                 req.Name,
		Language:             req.Language,
		AIModel:              req.AIModel,
		Style:                req.Style.ToModel(),
		DialogueTemperature:  req.DialogueTemperature,
		IntentTemperature:    req.IntentTemperature,
		CustomInstructions:   req.CustomInstructions,
		RequiresConfirmation: req.RequiresConfirmation,
		IsDefault:            req.IsDefault,
		IsPublic:             req.IsPublic,
	})
	if err != nil {
		return dto.AssistantResponse{}, err
	}
	return dto.FromProfile(p), nil
}

func (c *Controller) Get(ctx context.Context, userID, profileID string) (dto.AssistantResponse, error) {
	p, err := c.svc.GetProfile(ctx, userID, profileID)
	if err != nil {
		return dto.AssistantResponse{}, err
	}
	return dto.FromProfile(p), nil
}

func (c *Controller) Update(ctx context.Context, userID, profileID string, req dto.UpdateAssistantRequest) (dto.AssistantResponse, error) {
	p, err := c.svc.UpdateProfile(ctx, userID, profileID, service.UpdateProfileInput{
		Name:                 req.Name,
		Language:             req.Language,
		AIModel:              req.AIModel,
		Style:                req.Style.ToModel(),
		DialogueTemperature:  req.DialogueTemperature,
		IntentTemperature:    req.IntentTemperature,
		CustomInstructions:   req.CustomInstructions,
		RequiresConfirmation: req.RequiresConfirmation,
		IsDefault:            req.IsDefault,
		IsPublic:             req.IsPublic,
	})
	if err != nil {
		return dto.AssistantResponse{}, err
	}
	return dto.FromProfile(p), nil
}

func (c *Controller) Delete(ctx context.Context, userID, profileID string) error {
	return c.svc.DeleteProfile(ctx, userID, profileID)
}

func (c *Controller) List(ctx context.Context, userID string) ([]dto.AssistantResponse, error) {
	profiles, err := c.svc.ListProfiles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.FromProfiles(profiles), nil
}

// Versions returns the caller's profile versions, optionally filtered to the
// requested ids. Results are sorted by id unless an explicit order was asked
// for.
func (c *Controller) Versions(ctx context.Context, userID string, ids []string) ([]dto.AssistantVersion, error) {
	versions, err := c.svc.ProfileVersions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AssistantVersion, 0, len(versions))
	if len(ids) > 0 {
		for _, id := range ids {
			if v, ok := versions[id]; ok {
				out = append(out, dto.AssistantVersion{AssistantID: id, Version: v})
			}
		}
		return out, nil
	}
	for id, v := range versions {
		out = append(out, dto.AssistantVersion{AssistantID: id, Version: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssistantID < out[j].AssistantID })
	return out, nil
}

func (c *Controller) Share(ctx context.Context, userID, profileID string, req dto.ShareRequest) (dto.PermissionResponse, error) {
	perm, err := c.svc.Share(ctx, userID, profileID, service.ShareInput{
		TargetUserID: req.TargetUserID,
		Level:        models.PermissionLevel(req.PermissionLevel),
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		return dto.PermissionResponse{}, err
	}
	return dto.FromPermission(perm), nil
}

func (c *Controller) Revoke(ctx context.Context, userID, profileID, targetUserID string) error {
	return c.svc.Revoke(ctx, userID, profileID, targetUserID)
}

func (c *Controller) ListPermissions(ctx context.Context, userID, profileID string) ([]dto.PermissionResponse, error) {
	perms, err := c.svc.ListPermissions(ctx, userID, profileID)
	if err != nil {
		return nil, err
	}
	return dto.FromPermissions(perms), nil
}

func (c *Controller) PermissionLevel(ctx context.Context, userID, profileID string) (string, bool, error) {
	level, ok, err := c.svc.PermissionLevel(ctx, userID, profileID)
	return string(level), ok, err
}

func (c *Controller) SweepExpired(ctx context.Context) (int, error) {
	return c.svc.SweepExpired(ctx)
}
