package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"chemtrack/internal/middleware"
	"chemtrack/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(service service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) PDF(c *gin.Context) {
	h.serve(c, h.service.GeneratePDF)
}

func (h *ReportHandler) Excel(c *gin.Context) {
	h.serve(c, h.service.GenerateExcel)
}

func (h *ReportHandler) serve(c *gin.Context, generate func(ctx context.Context, userID uint) (*service.ReportFile, error)) {
	ctx := c.Request.Context()

	claims, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}

	report, err := generate(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoBatch) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No data available for report generation"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Data)
}
