package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/yt-grab-go/internal/app"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // foreign origins are already rejected by the CORS middleware
	},
}

// ProgressWebSocketHandler streams download progress to browsers
type ProgressWebSocketHandler struct {
	hub    *app.ProgressHub
	logger *zap.Logger
}

// NewProgressWebSocketHandler creates a new progress stream handler
func NewProgressWebSocketHandler(hub *app.ProgressHub, log *zap.Logger) *ProgressWebSocketHandler {
	return &ProgressWebSocketHandler{
		hub:    hub,
		logger: log,
	}
}

// HandleWebSocket handles GET /api/v1/progress/ws. An optional job_id query
// parameter restricts the stream to one download.
func (h *ProgressWebSocketHandler) HandleWebSocket(c *gin.Context) {
	jobID := c.Query("job_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	h.logger.Debug("Progress client connected",
		zap.String("job_id", jobID),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Read messages from client so close frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if jobID != "" && event.JobID != jobID {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("Failed to send progress", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
