package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-aggregator/internal/api"
	"recipe-aggregator/internal/api/handlers/health"
	recipeHandler "recipe-aggregator/internal/api/handlers/recipe"
	"recipe-aggregator/internal/core/cache"
	"recipe-aggregator/internal/core/matcher"
	"recipe-aggregator/internal/core/persistence"
	"recipe-aggregator/internal/core/planner"
	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/provider/local"
	"recipe-aggregator/internal/core/provider/mealdb"
	"recipe-aggregator/internal/core/provider/spoonacular"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/search"
	"recipe-aggregator/internal/core/shopping"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/metrics"
	"recipe-aggregator/internal/infrastructure/selection"
	"recipe-aggregator/internal/infrastructure/store"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（.env 由 LoadConfig 處理）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("free_enabled", cfg.Providers.Free.Enabled),
		zap.Bool("paid_enabled", cfg.Providers.Paid.Enabled),
		zap.String("paid_api_key", config.MaskAPIKey(cfg.Providers.Paid.APIKey)),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	// 資料庫
	db, err := store.Open(cfg.Store)
	if err != nil {
		common.LogFatal("Failed to open recipe store", zap.Error(err))
	}
	repo := store.NewRepository(db)
	defer repo.Close()

	// 食材選擇儲存；Redis 不可用時改用記憶體
	selections, err := selection.New(cfg.Redis)
	if err != nil {
		common.LogWarn("Selection store unavailable, falling back to memory", zap.Error(err))
		selections = selection.NewMemoryStore(cfg.Redis.TTL)
	}
	defer selections.Close()

	cacheManager := cache.NewManager(cfg.Cache)
	defer cacheManager.Close()

	collector := metrics.New()
	catalog := recipe.DefaultCatalog()

	// 依成本排列的來源
	providers := []provider.Provider{local.New(repo, cfg.Search.MaxResults)}
	var details planner.DetailSource
	if cfg.Providers.Free.Enabled {
		free := mealdb.NewClient(cfg.Providers.Free)
		providers = append(providers, free)
		details = free
	}
	if cfg.Providers.Paid.Enabled {
		providers = append(providers, spoonacular.NewClient(cfg.Providers.Paid))
	}
	registry := provider.NewRegistry(providers...)

	orchestrator := search.New(registry, matcher.New(catalog), catalog, search.Options{
		Threshold:     cfg.Search.SufficiencyThreshold,
		MaxResults:    cfg.Search.MaxResults,
		QuotaCooldown: cfg.Providers.Paid.QuotaCooldown,
		Metrics:       collector,
	})

	bridge := persistence.NewBridge(repo, persistence.Options{Metrics: collector})

	aggregator := shopping.NewAggregator(catalog, nil)
	generator := planner.NewGenerator(orchestrator, details, aggregator, planner.Options{
		CallInterval: cfg.Generator.CallInterval,
		Seed:         cfg.Generator.Seed,
		TopMatches:   cfg.Generator.TopMatches,
	})

	common.LogInfo("Services initialized",
		zap.Strings("tiers", tierNames(orchestrator.Tiers())),
		zap.Bool("cache_enabled", cacheManager.Enabled()),
		zap.Int("search_threshold", cfg.Search.SufficiencyThreshold),
	)

	services := &api.Services{
		Recipes: recipeHandler.Dependencies{
			Searcher:   orchestrator,
			Providers:  registry,
			Cache:      cacheManager,
			Persister:  bridge,
			Aggregator: aggregator,
			Planner:    generator,
			Catalog:    catalog,
			Selections: selections,
		},
		Health: &health.Dependencies{
			Store:      repo,
			Selections: selections,
			Tiers:      orchestrator.Tiers,
			Bridge:     bridge.Status,
			Cache:      cacheManager.Stats,
		},
		Metrics: collector,
	}

	router, err := api.SetupRouter(cfg, services)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}
	defer services.Dedup.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	// 等待背景回填完成後再關閉資料庫
	bridge.Close()
	common.LogInfo("Server exited", zap.Any("persistence", bridge.Status()))
}

func tierNames(tiers []recipe.Tier) []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = string(t)
	}
	return out
}
