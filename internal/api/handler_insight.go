package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"habitflow/internal/service/habit"
	"habitflow/internal/service/insight"
)

type InsightHandler struct {
	insightService *insight.Service
	habitService   *habit.Service
}

func NewInsightHandler(insightService *insight.Service, habitService *habit.Service) *InsightHandler {
	return &InsightHandler{
		insightService: insightService,
		habitService:   habitService,
	}
}

// Request handles POST /insights
func (h *InsightHandler) Request(c *gin.Context) {
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

	ins, err := h.insightService.Request(c.Request.Context(), uid, habits)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ins)
}

// Latest handles GET /insights/latest
func (h *InsightHandler) Latest(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ins, at, ok := h.insightService.Latest(uid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no insight yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"insight":     ins,
		"generatedAt": at,
	})
}
