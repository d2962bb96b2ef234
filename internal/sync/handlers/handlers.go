package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/common/httpmw"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/sync/controller"
	"github.com/northstarhq/northstar/internal/sync/models"
	"github.com/northstarhq/northstar/internal/sync/service"
)

type Handlers struct {
	controller *controller.Controller
	logger     *logger.Logger
}

func NewHandlers(ctrl *controller.Controller, log *logger.Logger) *Handlers {
	return &Handlers{
		controller: ctrl,
		logger:     log.WithFields(zap.String("component", "sync-handlers")),
	}
}

// RegisterRoutes mounts the sync surface under /api/v1/sync.
func RegisterRoutes(router *gin.Engine, ctrl *controller.Controller, log *logger.Logger) {
	h := NewHandlers(ctrl, log)
	api := router.Group("/api/v1/sync", httpmw.RequireUser())
	api.POST("/batch", h.batch)
	api.GET("/delta/:since", h.delta)
	api.GET("/status", h.status)
	api.POST("/resolve-conflict/:object_id", h.resolveConflict)
}

func (h *Handlers) batch(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "operations are required"})
		return
	}
	resp, err := h.controller.ApplyBatch(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		h.logger.Error("failed to apply batch", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to apply batch"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) delta(c *gin.Context) {
	since, err := strconv.ParseInt(c.Param("since"), 10, 64)
	if err != nil || since < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "since must be a non-negative timestamp"})
		return
	}
	var types []string
	if raw := c.Query("object_types"); raw != "" {
		types = strings.Split(raw, ",")
	}
	resp, err := h.controller.Delta(c.Request.Context(), httpmw.UserID(c), since, types)
	if err != nil {
		if errors.Is(err, service.ErrUnknownType) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		h.logger.Error("failed to read delta", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to read delta"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) status(c *gin.Context) {
	resp, err := h.controller.Status(c.Request.Context(), httpmw.UserID(c))
	if err != nil {
		h.logger.Error("failed to read sync status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to read sync status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": resp})
}

type resolveRequest struct {
	ObjectType string          `json:"object_type" binding:"required"`
	Data       json.RawMessage `json:"data" binding:"required"`
}

func (h *Handlers) resolveConflict(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "object_type and data are required"})
		return
	}
	resp, err := h.controller.ResolveConflict(c.Request.Context(), httpmw.UserID(c), c.Param("object_id"), req.ObjectType, req.Data)
	if err != nil {
		if errors.Is(err, service.ErrUnknownType) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		h.logger.Error("failed to resolve conflict", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to resolve conflict"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
