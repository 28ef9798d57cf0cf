package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/yt-grab-go/internal/domain"
	"go.uber.org/zap"
)

// StatusForError maps domain errors to HTTP status codes
func StatusForError(err error) int {
	var (
		extractionErr *domain.ExtractionError
		searchErr     *domain.SearchError
		corruptErr    *domain.CorruptHistoryError
	)

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &extractionErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &searchErr):
		switch searchErr.Reason {
		case domain.SearchReasonInvalid:
			return http.StatusBadRequest
		case domain.SearchReasonAuth:
			return http.StatusUnauthorized
		case domain.SearchReasonQuota:
			return http.StatusTooManyRequests
		default:
			return http.StatusBadGateway
		}
	case errors.As(err, &corruptErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message} with the mapped status
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
