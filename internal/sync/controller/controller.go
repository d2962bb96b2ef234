package controller

import (
	"context"
	"encoding/json"

	"github.com/northstarhq/northstar/internal/sync/models"
	"github.com/northstarhq/northstar/internal/sync/service"
)

// Controller fronts the sync engine for the HTTP layer.
type Controller struct {
	svc *service.Service
}

// NewController creates the sync controller.
func NewController(svc *service.Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) ApplyBatch(ctx context.Context, userID string, req models.BatchRequest) (*models.BatchResult, error) {
	return c.svc.ApplyBatch(ctx, userID, req)
}

func (c *Controller) Delta(ctx context.Context, userID string, since int64, types []string) (*models.DeltaResponse, error) {
	return c.svc.Delta(ctx, userID, since, types)
}

func (c *Controller) Status(ctx context.Context, userID string) (map[string]models.TypeStatus, error) {
	return c.svc.Status(ctx, userID)
}

func (c *Controller) ResolveConflict(ctx context.Context, userID, objectID, objectType string, data json.RawMessage) (*models.ResolveResult, error) {
	return c.svc.ResolveConflict(ctx, userID, objectID, objectType, data)
}
