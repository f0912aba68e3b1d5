package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/api/handlers"
	"github.com/yourusername/pydown-go/api/middleware"
	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/domain"
	"github.com/yourusername/pydown-go/internal/observability"
	"github.com/yourusername/pydown-go/pkg/logger"
)

// SetupRouter sets up the HTTP router. logReader is nil when the log is not
// persisted; metrics may be nil.
func SetupRouter(
	jobs *app.JobManager,
	config *domain.Config,
	logReader *logger.LogReader,
	metrics *observability.Metrics,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics(metrics))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(config)
	router.GET("/health", healthHandler.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/formats", healthHandler.Formats)

		downloadHandler := handlers.NewDownloadHandler(jobs, log)
		eventHandler := handlers.NewEventWebSocketHandler(jobs, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.GET("/:id/events", eventHandler.HandleWebSocket)
		}

		logHandler := handlers.NewLogHandler(logReader)
		logStream := handlers.NewLogWebSocketHandler(logReader, log)
		logs := v1.Group("/logs")
		{
			logs.GET("", logHandler.GetLogs)
			logs.GET("/export", logHandler.ExportLogs)
			logs.GET("/stream", logStream.HandleWebSocket)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
