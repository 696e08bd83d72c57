package api

import (
	"github.com/gin-gonic/gin"

	"github.com/deniz/checklens/internal/api/handler"
	"github.com/deniz/checklens/internal/api/middleware"
	"github.com/deniz/checklens/internal/config"
	"github.com/deniz/checklens/internal/llm"
	"github.com/deniz/checklens/internal/logger"
	"github.com/deniz/checklens/internal/repository"
	"github.com/deniz/checklens/internal/service"
)

// SetupRouter configures the Gin router with all routes.
// Parameters:
//   - cfg: service configuration.
//   - log: base logger for request logging.
//   - analysis: analysis orchestrator.
//   - client: model-serving client.
//   - repo: analysis archive repository, nil when the database is disabled.
// Returns:
//   - *gin.Engine: configured router.
func SetupRouter(
	cfg *config.Config,
	log *logger.Logger,
	analysis *service.AnalysisService,
	client *llm.Client,
	repo *repository.AnalysisRepository,
) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.Server.CORS))

	healthHandler := handler.NewHealthHandler()
	modelsHandler := handler.NewModelsHandler(client, cfg.Ollama.ExtraDenylist)
	analyzeHandler := handler.NewAnalyzeHandler(analysis)
	progressHandler := handler.NewProgressHandler(analysis.Store())

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/models", modelsHandler.ListModels)

		v1.POST("/analyze", analyzeHandler.Analyze)
		v1.POST("/analyze/async", analyzeHandler.AnalyzeAsync)

		v1.GET("/analyze/progress/:session_id", progressHandler.GetProgress)
		v1.GET("/analyze/progress/:session_id/stream", progressHandler.StreamProgress)
		v1.GET("/analyze/progress/:session_id/ws", progressHandler.StreamProgressWS)

		// Archive endpoints are only registered when persistence is on
		if repo != nil {
			analysesHandler := handler.NewAnalysesHandler(repo)
			v1.GET("/analyses", analysesHandler.ListAnalyses)
			v1.GET("/analyses/:session_id", analysesHandler.GetAnalysis)
		}
	}

	return r
}
