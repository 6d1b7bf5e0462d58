package routers

import (
	"github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/middleware"
	"github.com/haierkeys/prompt-history/internal/routers/api_router"
	"github.com/haierkeys/prompt-history/pkg/limiter"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter 创建 HTTP API 路由
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {
	cfg := appContainer.Config()

	r := gin.New()
	r.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

	healthHandler := api_router.NewHealthHandler(appContainer)
	r.GET("/health", healthHandler.Check)

	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	{
		api.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header)) // Trace ID 中间件
		if cfg.RateLimit.Enabled {
			api.Use(middleware.RateLimiter(limiter.NewClientLimiter(limiter.BucketRule{
				FillInterval: cfg.GetRateLimitFillInterval(),
				Capacity:     cfg.RateLimit.Capacity,
				Quantum:      cfg.RateLimit.Quantum,
			})))
		}
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(appContainer.Logger()))

		api.GET("/health", healthHandler.Check)
		api.GET("/version", healthHandler.Version)

		revisionHandler := api_router.NewRevisionHandler(appContainer)
		branchHandler := api_router.NewBranchHandler(appContainer)
		historyHandler := api_router.NewHistoryHandler(appContainer)

		doc := api.Group("/documents/:" + api_router.DocumentParam)
		doc.POST("/revisions", revisionHandler.Create)
		doc.GET("/revisions", revisionHandler.List)
		doc.GET("/revisions/:number", revisionHandler.Get)

		doc.GET("/branches", branchHandler.List)
		doc.POST("/branches", branchHandler.Create)
		doc.GET("/branches/active", branchHandler.Active)
		doc.PUT("/branches/active", branchHandler.Switch)
		doc.DELETE("/branches/:branch", branchHandler.Delete)
		doc.GET("/branches/:branch/head", revisionHandler.Head)

		doc.GET("/diff", historyHandler.Diff)
		doc.POST("/rollback", historyHandler.Rollback)
		doc.POST("/merge", historyHandler.Merge)
		doc.GET("/compare", historyHandler.Compare)
	}

	r.NoRoute(middleware.NoFound())

	return r
}
