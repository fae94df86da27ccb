package api

import (
	"fmt"
	"time"

	"recipe-aggregator/internal/api/handlers/health"
	recipeHandler "recipe-aggregator/internal/api/handlers/recipe"
	"recipe-aggregator/internal/api/middleware"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/metrics"
	"recipe-aggregator/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services 路由需要的服務
type Services struct {
	Recipes recipeHandler.Dependencies
	Health  *health.Dependencies
	Metrics *metrics.Collector
	// Dedup 菜單產生的重複請求過濾，nil 時依 cfg.DedupWindow 建立
	Dedup *middleware.Deduplicator
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc *Services) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if svc == nil || svc.Recipes.Searcher == nil {
		return nil, fmt.Errorf("search service is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 基礎中間件
	var observer middleware.HTTPObserver
	if svc.Metrics != nil {
		observer = svc.Metrics
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(observer))
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	// 設置配置與健康檢查依賴
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Next()
	})
	if svc.Health != nil {
		router.Use(health.Inject(svc.Health))
	}

	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)
	if svc.Metrics != nil {
		router.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))
	}

	dedup := svc.Dedup
	if dedup == nil {
		dedup = middleware.NewDeduplicator(cfg.DedupWindow)
		svc.Dedup = dedup
	}

	svc.Recipes.Debug = cfg.App.Debug
	h := recipeHandler.NewHandler(svc.Recipes)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/recipes/search", h.HandleSearch)
		v1.GET("/recipes/:tier/:id", h.HandleDetail)

		v1.GET("/ingredients", h.HandleIngredients)
		v1.GET("/selections/:key", h.HandleGetSelection)
		v1.PUT("/selections/:key", h.HandlePutSelection)

		v1.POST("/shopping-list", h.HandleShoppingList)
		v1.POST("/meal-plans/generate", dedup.Handler(), h.HandleGenerateMealPlan)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("metrics", svc.Metrics != nil),
	)

	return router, nil
}
