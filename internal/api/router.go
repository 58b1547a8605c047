package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/loginscraper/internal/api/handler"
	"github.com/timmy/loginscraper/internal/api/middleware"
	"github.com/timmy/loginscraper/internal/config"
	"github.com/timmy/loginscraper/internal/logger"
)

// RouterDeps are the services behind the HTTP surface.
// Archive is nil when the job archive is disabled.
type RouterDeps struct {
	Jobs    handler.JobService
	Archive handler.ArchiveReader
	Logger  *logger.Logger
}

// SetupRouter configures the Gin router with all routes.
// Parameters:
//   - cfg: server configuration (mode and CORS).
//   - deps: services backing the handlers.
// Returns:
//   - *gin.Engine: ready-to-serve engine.
func SetupRouter(cfg *config.ServerConfig, deps RouterDeps) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	scrapeHandler := handler.NewScrapeHandler(deps.Jobs)

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.Health)
		api.POST("/scrape", scrapeHandler.Scrape)
		api.GET("/jobs/:job_id", scrapeHandler.GetJob)

		if deps.Archive != nil {
			archiveHandler := handler.NewArchiveHandler(deps.Archive)
			api.GET("/archive", archiveHandler.List)
			api.GET("/archive/:job_id", archiveHandler.Get)
			api.GET("/archive/:job_id/html", archiveHandler.HTML)
		}
	}

	return r
}
