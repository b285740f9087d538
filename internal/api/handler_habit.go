package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"habitflow/internal/apperr"
	"habitflow/internal/model"
	"habitflow/internal/service/habit"
	"habitflow/internal/service/subscription"
)

type HabitHandler struct {
	habitService *habit.Service
	hub          *subscription.Hub
}

func NewHabitHandler(habitService *habit.Service, hub *subscription.Hub) *HabitHandler {
	return &HabitHandler{
		habitService: habitService,
		hub:          hub,
	}
}

// List handles GET /habits
func (h *HabitHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	habits, err := h.habitService.List(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	if habits == nil {
		habits = []model.Habit{}
	}

	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

// Create handles POST /habits
func (h *HabitHandler) Create(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "habit name must not be empty"})
		return
	}

	created, err := h.habitService.Create(c.Request.Context(), uid, req.Name)
	if err != nil {
		if errors.Is(err, apperr.ErrEmptyInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "habit name must not be empty"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Track handles POST /habits/:id/track
func (h *HabitHandler) Track(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	updated, err := h.habitService.Track(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Progress handles GET /habits/progress
func (h *HabitHandler) Progress(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	points, err := h.habitService.Progress(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": points})
}

// Watch handles GET /habits/watch, streaming reconciled snapshots as
// server-sent events until the client disconnects.
func (h *HabitHandler) Watch(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	snapshots, cancel, err := h.hub.Watch(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snapshot, open := <-snapshots:
			if !open {
				return false
			}
			c.SSEvent("habits", snapshot)
			return true
		}
	})
}
