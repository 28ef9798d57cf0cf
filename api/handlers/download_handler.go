package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/yt-grab-go/internal/app"
	"github.com/yourusername/yt-grab-go/internal/domain"
	"go.uber.org/zap"
)

// FolderOpener shows a directory in the host's file manager
type FolderOpener interface {
	Open(dir string) error
}

// DownloadHandler handles metadata, download and history requests
type DownloadHandler struct {
	downloadMgr *app.DownloadManager
	opener      FolderOpener
	logger      *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(downloadMgr *app.DownloadManager, opener FolderOpener, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloadMgr: downloadMgr,
		opener:      opener,
		logger:      logger,
	}
}

// DownloadRequest is the body of POST /api/v1/downloads
type DownloadRequest struct {
	URL        string `json:"url" binding:"required"`
	Mode       string `json:"mode,omitempty"`       // video (default) or audio
	Resolution string `json:"resolution,omitempty"` // e.g. "720p"; empty = best
	Playlist   bool   `json:"playlist,omitempty"`
	JobID      string `json:"job_id,omitempty"` // correlates websocket progress
}

// BatchRequest is the body of POST /api/v1/downloads/batch
type BatchRequest struct {
	URLs       []string `json:"urls,omitempty"`
	Text       string   `json:"text,omitempty"` // newline-separated URLs
	Mode       string   `json:"mode,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
}

// GetInfo handles GET /api/v1/info?url=
func (h *DownloadHandler) GetInfo(c *gin.Context) {
	info, err := h.downloadMgr.FetchMetadata(c.Request.Context(), c.Query("url"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// AddDownload handles POST /api/v1/downloads. It blocks until the download
// finishes; a disconnecting client does not abort it.
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var body DownloadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := domain.NewDownloadRequest(body.URL, domain.Mode(body.Mode), body.Resolution, body.Playlist)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.downloadMgr.DownloadJob(ctx, body.JobID, req, nil)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// AddBatch handles POST /api/v1/downloads/batch
func (h *DownloadHandler) AddBatch(c *gin.Context) {
	var body BatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	urls := append(body.URLs, app.SplitBatchText(body.Text)...)
	if !hasURL(urls) {
		respondError(c, h.logger, fmt.Errorf("%w: no URLs given", domain.ErrInvalidRequest))
		return
	}

	mode := domain.Mode(body.Mode)
	if mode == "" {
		mode = domain.ModeVideo
	}
	if !domain.ValidateMode(mode) {
		respondError(c, h.logger, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidRequest, body.Mode))
		return
	}

	height, err := domain.ParseResolution(body.Resolution)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	items := h.downloadMgr.DownloadBatch(ctx, urls, mode, height, nil)

	c.JSON(http.StatusOK, items)
}

// GetHistory handles GET /api/v1/history
func (h *DownloadHandler) GetHistory(c *gin.Context) {
	records, err := h.downloadMgr.History()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/history/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.downloadMgr.HistoryStats()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RevealDownloads handles POST /api/v1/reveal
func (h *DownloadHandler) RevealDownloads(c *gin.Context) {
	dir := h.downloadMgr.DownloadsDir()
	if err := h.opener.Open(dir); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": dir})
}

func hasURL(urls []string) bool {
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			return true
		}
	}
	return false
}
