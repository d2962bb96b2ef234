package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/common/httpmw"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/conversation/controller"
	"github.com/northstarhq/northstar/internal/conversation/dto"
	"github.com/northstarhq/northstar/internal/conversation/service"
	"github.com/northstarhq/northstar/internal/conversation/store"
)

type Handlers struct {
	controller *controller.Controller
	logger     *logger.Logger
}

func NewHandlers(ctrl *controller.Controller, log *logger.Logger) *Handlers {
	return &Handlers{
		controller: ctrl,
		logger:     log.WithFields(zap.String("component", "conversation-handlers")),
	}
}

// RegisterRoutes mounts the conversation surface under /api/v1/conversation.
func RegisterRoutes(router *gin.Engine, ctrl *controller.Controller, log *logger.Logger) {
	h := NewHandlers(ctrl, log)
	api := router.Group("/api/v1/conversation", httpmw.RequireUser())
	api.POST("/message", h.postMessage)
	api.POST("/classify", h.postClassify)
	api.POST("/feedback", h.postFeedback)
	api.GET("/sessions", h.listSessions)
	api.GET("/sessions/:id/logs", h.listLogs)
	api.POST("/sessions/:id/complete", h.completeSession)
}

func (h *Handlers) postMessage(c *gin.Context) {
	var req dto.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message is required"})
		return
	}
	resp, err := h.controller.ProcessMessage(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		h.logger.Error("failed to process message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to process message"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) postClassify(c *gin.Context) {
	var req dto.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message is required"})
		return
	}
	resp, err := h.controller.Classify(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		h.logger.Error("failed to classify message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to classify message"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) postFeedback(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "log_id is required"})
		return
	}
	resp, err := h.controller.AddFeedback(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "log not found"})
			return
		}
		h.logger.Error("failed to record feedback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handlers) listSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.controller.ListSessions(c.Request.Context(), httpmw.UserID(c), limit)
	if err != nil {
		h.logger.Error("failed to list sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

func (h *Handlers) listLogs(c *gin.Context) {
	resp, err := h.controller.ListLogs(c.Request.Context(), httpmw.UserID(c), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": resp})
}

func (h *Handlers) completeSession(c *gin.Context) {
	err := h.controller.CompleteSession(c.Request.Context(), httpmw.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "no active session with that id"})
			return
		}
		h.logger.Error("failed to complete session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to complete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
