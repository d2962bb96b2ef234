package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/assistant/controller"
	"github.com/northstarhq/northstar/internal/assistant/dto"
	"github.com/northstarhq/northstar/internal/assistant/service"
	"github.com/northstarhq/northstar/internal/assistant/store"
	"github.com/northstarhq/northstar/internal/common/httpmw"
	"github.com/northstarhq/northstar/internal/common/logger"
)

type Handlers struct {
	controller *controller.Controller
	logger     *logger.Logger
}

func NewHandlers(ctrl *controller.Controller, log *logger.Logger) *Handlers {
	return &Handlers{
		controller: ctrl,
		logger:     log.WithFields(zap.String("component", "assistant-handlers")),
	}
}

// RegisterRoutes mounts the assistant surface under /api/v1.
func RegisterRoutes(router *gin.Engine, ctrl *controller.Controller, log *logger.Logger) {
	h := NewHandlers(ctrl, log)
	api := router.Group("/api/v1", httpmw.RequireUser())
	api.POST("/assistants", h.create)
	api.GET("/assistants", h.list)
	api.GET("/assistants/versions", h.versions)
	api.GET("/assistants/:id", h.get)
	api.PATCH("/assistants/:id", h.update)
	api.DELETE("/assistants/:id", h.delete)
	api.POST("/assistants/:id/share", h.share)
	api.GET("/assistants/:id/permissions", h.listPermissions)
	api.DELETE("/assistants/:id/permissions/:user_id", h.revoke)
	api.GET("/assistants/:id/permission-level", h.permissionLevel)
	api.POST("/permissions/cleanup", h.cleanup)
}

func (h *Handlers) create(c *gin.Context) {
	var req dto.CreateAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "name is required"})
		return
	}
	resp, err := h.controller.Create(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		h.writeError(c, "failed to create assistant", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handlers) list(c *gin.Context) {
	resp, err := h.controller.List(c.Request.Context(), httpmw.UserID(c))
	if err != nil {
		h.writeError(c, "failed to list assistants", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistants": resp})
}

func (h *Handlers) versions(c *gin.Context) {
	var ids []string
	if raw := c.Query("ids"); raw != "" {
		ids = strings.Split(raw, ",")
	}
	resp, err := h.controller.Versions(c.Request.Context(), httpmw.UserID(c), ids)
	if err != nil {
		h.writeError(c, "failed to list versions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": resp})
}

func (h *Handlers) get(c *gin.Context) {
	resp, err := h.controller.Get(c.Request.Context(), httpmw.UserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to get assistant", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) update(c *gin.Context) {
	var req dto.UpdateAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}
	resp, err := h.controller.Update(c.Request.Context(), httpmw.UserID(c), c.Param("id"), req)
	if err != nil {
		h.writeError(c, "failed to update assistant", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) delete(c *gin.Context) {
	if err := h.controller.Delete(c.Request.Context(), httpmw.UserID(c), c.Param("id")); err != nil {
		h.writeError(c, "failed to delete assistant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handlers) share(c *gin.Context) {
	var req dto.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "target_user_id and permission_level are required"})
		return
	}
	resp, err := h.controller.Share(c.Request.Context(), httpmw.UserID(c), c.Param("id"), req)
	if err != nil {
		h.writeError(c, "failed to share assistant", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handlers) listPermissions(c *gin.Context) {
	resp, err := h.controller.ListPermissions(c.Request.Context(), httpmw.UserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to list permissions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": resp})
}

func (h *Handlers) revoke(c *gin.Context) {
	err := h.controller.Revoke(c.Request.Context(), httpmw.UserID(c), c.Param("id"), c.Param("user_id"))
	if err != nil {
		h.writeError(c, "failed to revoke permission", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func (h *Handlers) permissionLevel(c *gin.Context) {
	level, ok, err := h.controller.PermissionLevel(c.Request.Context(), httpmw.UserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "failed to resolve permission level", err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"permission_level": "none"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"permission_level": level})
}

func (h *Handlers) cleanup(c *gin.Context) {
	removed, err := h.controller.SweepExpired(c.Request.Context())
	if err != nil {
		h.writeError(c, "failed to clean up permissions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handlers) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrInvalidTemperature),
		errors.Is(err, service.ErrInvalidStyle),
		errors.Is(err, service.ErrInvalidLevel),
		errors.Is(err, service.ErrOwnerGrant):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, service.ErrProfileLimit):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	case errors.Is(err, service.ErrInsufficientPermission):
		c.JSON(http.StatusForbidden, gin.H{"detail": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "assistant not found"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": msg})
	}
}
