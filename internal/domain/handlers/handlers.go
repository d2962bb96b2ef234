package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/common/httpmw"
	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/domain/controller"
	"github.com/northstarhq/northstar/internal/domain/dto"
	"github.com/northstarhq/northstar/internal/domain/service"
	"github.com/northstarhq/northstar/internal/domain/store"
)

type Handlers struct {
	controller *controller.Controller
	logger     *logger.Logger
}

func NewHandlers(ctrl *controller.Controller, log *logger.Logger) *Handlers {
	return &Handlers{
		controller: ctrl,
		logger:     log.WithFields(zap.String("component", "domain-handlers")),
	}
}

// RegisterRoutes mounts the goal-management REST surface under /api/v1.
func RegisterRoutes(router *gin.Engine, ctrl *controller.Controller, log *logger.Logger) {
	h := NewHandlers(ctrl, log)
	api := router.Group("/api/v1", httpmw.RequireUser())
	api.POST("/goals", h.createGoal)
	api.GET("/goals", h.listGoals)
	api.POST("/tasks", h.createTask)
	api.GET("/tasks", h.listTasks)
	api.POST("/projects", h.createProject)
	api.GET("/projects", h.listProjects)
	api.POST("/life-ratings", h.rateLifeArea)
	api.GET("/life-ratings", h.listLifeRatings)
	api.GET("/preferences", h.getPreferences)
	api.PATCH("/preferences", h.updatePreferences)
}

func (h *Handlers) createGoal(c *gin.Context) {
	var req dto.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}
	resp, err := h.controller.CreateGoal(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		h.writeError(c, "failed to create goal", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handlers) listGoals(c *gin.Context) {
	resp, err := h.controller.ListGoals(c.Request.Context(), httpmw.UserID(c))
	if err != nil {
		h.writeError(c, "failed to list goals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": resp})
}

func (h *Handlers) createTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}
	resp, err := h.controller.CreateTask(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		h.writeError(c, "failed to create task", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handlers) listTasks(c *gin.Context) {
	resp, err := h.controller.ListTasks(c.Request.Context(), httpmw.UserID(c))
	if err != nil {
		h.writeError(c, "failed to list tasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": resp})
}

func (h *Handlers) createProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}
	resp, err := h.controller.CreateProject(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		h.writeError(c, "failed to create project", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handlers) listProjects(c *gin.Context) {
	resp, err := h.controller.ListProjects(c.Request.Context(), httpmw.UserID(c))
	if err != nil {
		h.writeError(c, "failed to list projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": resp})
}

func (h *Handlers) rateLifeArea(c *gin.Context) {
	var req dto.RateLifeAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}
	resp, err := h.controller.RateLifeArea(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		h.writeError(c, "failed to record rating", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handlers) listLifeRatings(c *gin.Context) {
	resp, err := h.controller.ListLifeRatings(c.Request.Context(), httpmw.UserID(c), c.Query("life_area"))
	if err != nil {
		h.writeError(c, "failed to list ratings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": resp})
}

func (h *Handlers) getPreferences(c *gin.Context) {
	resp, err := h.controller.GetPreferences(c.Request.Context(), httpmw.UserID(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "preferences not set"})
		return
	}
	if err != nil {
		h.writeError(c, "failed to get preferences", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) updatePreferences(c *gin.Context) {
	var req dto.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}
	resp, err := h.controller.UpdatePreferences(c.Request.Context(), httpmw.UserID(c), req)
	if err != nil {
		h.writeError(c, "failed to update preferences", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyTitle),
		errors.Is(err, service.ErrInvalidLifeArea),
		errors.Is(err, service.ErrInvalidScore):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": msg})
	}
}
