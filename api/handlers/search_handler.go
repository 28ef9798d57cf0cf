package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/yt-grab-go/internal/app"
	"github.com/yourusername/yt-grab-go/internal/domain"
	"go.uber.org/zap"
)

// SearchHandler handles YouTube search requests
type SearchHandler struct {
	downloadMgr *app.DownloadManager
	logger      *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(downloadMgr *app.DownloadManager, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		downloadMgr: downloadMgr,
		logger:      logger,
	}
}

// Search handles GET /api/v1/search?q=&max=
func (h *SearchHandler) Search(c *gin.Context) {
	var maxResults int64
	if maxStr := c.Query("max"); maxStr != "" {
		n, err := strconv.ParseInt(maxStr, 10, 64)
		if err != nil {
			respondError(c, h.logger, fmt.Errorf("%w: invalid max %q", domain.ErrInvalidRequest, maxStr))
			return
		}
		maxResults = n
	}

	results, err := h.downloadMgr.Search(c.Request.Context(), c.Query("q"), maxResults)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
