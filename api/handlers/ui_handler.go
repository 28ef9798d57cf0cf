package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/yt-grab-go/internal/app"
)

// UIHandler renders the browser front end
type UIHandler struct {
	downloadMgr *app.DownloadManager
}

// NewUIHandler creates a new UI handler
func NewUIHandler(downloadMgr *app.DownloadManager) *UIHandler {
	return &UIHandler{downloadMgr: downloadMgr}
}

// Index handles GET /
func (h *UIHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"DownloadsDir":  h.downloadMgr.DownloadsDir(),
		"SearchEnabled": h.downloadMgr.SearchEnabled(),
		"Version":       Version,
	})
}
