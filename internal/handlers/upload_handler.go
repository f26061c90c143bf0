package handlers

import (
	"errors"
	"net/http"

	"chemtrack/internal/middleware"
	"chemtrack/internal/service"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	service service.IngestService
}

func NewUploadHandler(service service.IngestService) *UploadHandler {
	return &UploadHandler{service: service}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	claims, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{"No file was submitted."}})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}
	defer file.Close()

	userID := claims.UserID
	result, err := h.service.IngestCSV(ctx, &userID, fileHeader.Filename, file)
	if err != nil {
		var fieldErrs service.FieldErrors
		if errors.As(err, &fieldErrs) {
			c.JSON(http.StatusBadRequest, fieldErrs)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":         "CSV uploaded successfully",
		"batch_id":        result.BatchID,
		"records_created": result.RecordsCreated,
	})
}
