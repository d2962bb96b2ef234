package controller

import (
	"context"

	"github.com/northstarhq/northstar/internal/conversation/dto"
	"github.com/northstarhq/northstar/internal/conversation/models"
	"github.com/northstarhq/northstar/internal/conversation/service"
)

// Controller translates between wire DTOs and the conversation service.
type Controller struct {
	svc *service.Service
}

// NewController creates the conversation controller.
func NewController(svc *service.Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) ProcessMessage(ctx context.Context, userID string, req dto.MessageRequest) (*service.TurnResult, error) {
	return c.svc.ProcessMessage(ctx, userID, service.MessageInput{
		Message:     req.Message,
		SessionID:   req.SessionID,
		AssistantID: req.AssistantID,
	})
}

func (c *Controller) Classify(ctx context.Context, userID string, req dto.ClassifyRequest) (models.Classification, error) {
	return c.svc.Classify(ctx, userID, req.Message)
}

func (c *Controller) AddFeedback(ctx context.Context, userID string, req dto.FeedbackRequest) (dto.FeedbackResponse, error) {
	f, err := c.svc.AddFeedback(ctx, userID, service.FeedbackInput{
		LogID:           req.LogID,
		CorrectedIntent: req.CorrectedIntent,
		FeedbackType:    models.FeedbackType(req.FeedbackType),
		Comment:         req.Comment,
	})
	if err != nil {
		return dto.FeedbackResponse{}, err
	}
	return dto.FromFeedback(f), nil
}

func (c *Controller) ListSessions(ctx context.Context, userID string, limit int) ([]dto.SessionSummary, error) {
	sessions, err := c.svc.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return dto.FromSessions(sessions), nil
}

func (c *Controller) ListLogs(ctx context.Context, userID, sessionID string) ([]dto.LogEntry, error) {
	logs, err := c.svc.ListLogs(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return dto.FromLogs(logs), nil
}

func (c *Controller) CompleteSession(ctx context.Context, userID, sessionID string) error {
	return c.svc.CompleteSession(ctx, userID, sessionID)
}
