package api

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/yt-grab-go/api/handlers"
	"github.com/yourusername/yt-grab-go/api/middleware"
	"github.com/yourusername/yt-grab-go/internal/app"
	"github.com/yourusername/yt-grab-go/pkg/logger"
	"github.com/yourusername/yt-grab-go/web"
)

// RouterDeps are the services the HTTP layer is built on
type RouterDeps struct {
	DownloadMgr *app.DownloadManager
	Hub         *app.ProgressHub
	Extractor   handlers.ReadinessChecker
	Opener      handlers.FolderOpener
	LogAdapter  *logger.LoggerAdapter
	LogsDir     string
	CORSOrigins []string // extra origins allowed to call the API
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	log := deps.LogAdapter.General()

	// Middleware
	router.Use(middleware.Logger(deps.LogAdapter))
	router.Use(middleware.Recovery(deps.LogAdapter))
	router.Use(middleware.CORS(deps.CORSOrigins))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.Extractor)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(deps.DownloadMgr, deps.Opener, log)
		v1.GET("/info", downloadHandler.GetInfo)
		v1.POST("/reveal", downloadHandler.RevealDownloads)

		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.POST("/batch", downloadHandler.AddBatch)
		}

		history := v1.Group("/history")
		{
			history.GET("", downloadHandler.GetHistory)
			history.GET("/stats", downloadHandler.GetStats)
		}

		searchHandler := handlers.NewSearchHandler(deps.DownloadMgr, log)
		v1.GET("/search", searchHandler.Search)

		progressHandler := handlers.NewProgressWebSocketHandler(deps.Hub, log)
		v1.GET("/progress/ws", progressHandler.HandleWebSocket)

		logHandler := handlers.NewLogHandler(deps.LogsDir)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	// Embedded browser UI
	router.SetHTMLTemplate(template.Must(template.ParseFS(web.GetTemplatesFS(), "*.html")))
	router.StaticFS("/static", http.FS(web.GetStaticFS()))

	uiHandler := handlers.NewUIHandler(deps.DownloadMgr)
	router.GET("/", uiHandler.Index)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
