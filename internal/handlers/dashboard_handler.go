package handlers

import (
	"net/http"

	"chemtrack/internal/middleware"
	"chemtrack/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	service service.StatsService
}

func NewDashboardHandler(service service.StatsService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	claims, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}

	stats, err := h.service.Dashboard(ctx, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) Equipment(c *gin.Context) {
	ctx := c.Request.Context()

	claims, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}

	listing, err := h.service.LatestEquipment(ctx, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load equipment data"})
		return
	}

	if listing.BatchID == 0 {
		c.JSON(http.StatusOK, gin.H{"equipment_data": listing.EquipmentData})
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *DashboardHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	claims, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}

	summaries, err := h.service.History(ctx, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load batch history"})
		return
	}

	c.JSON(http.StatusOK, summaries)
}
