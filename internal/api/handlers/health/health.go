package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"recipe-aggregator/internal/core/cache"
	"recipe-aggregator/internal/core/persistence"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextKey 健康檢查依賴在 gin context 中的鍵
const ContextKey = "health"

const pingTimeout = 3 * time.Second

// Pinger 可檢查連線狀態的依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies 健康檢查需要的服務，nil 欄位會被略過
type Dependencies struct {
	Store      Pinger
	Selections Pinger
	Tiers      func() []recipe.Tier
	Bridge     func() persistence.Status
	Cache      func() cache.Stats
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Version     string                 `json:"version"`
	Tiers       []recipe.Tier          `json:"tiers"`
	Persistence *persistence.Status    `json:"persistence,omitempty"`
	Cache       *cache.Stats           `json:"cache,omitempty"`
	Checks      map[string]string      `json:"checks"`
	Runtime     map[string]interface{} `json:"runtime"`
}

// Inject 將健康檢查依賴放入 context
func Inject(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKey, deps)
		c.Next()
	}
}

func lookup(c *gin.Context) (*config.Config, *Dependencies, bool) {
	raw, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Configuration not found"})
		return nil, nil, false
	}
	cfg, ok := raw.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid configuration type"})
		return nil, nil, false
	}

	deps := &Dependencies{}
	if raw, exists := c.Get(ContextKey); exists {
		if d, ok := raw.(*Dependencies); ok && d != nil {
			deps = d
		}
	}
	return cfg, deps, true
}

// checks 回傳各依賴的狀態，以及是否全部正常
func (d *Dependencies) checks(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	out := make(map[string]string, 2)
	healthy := true
	probe := func(name string, p Pinger, required bool) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			out[name] = "error: " + err.Error()
			if required {
				healthy = false
			}
			return
		}
		out[name] = "ok"
	}
	probe("store", d.Store, true)
	probe("selections", d.Selections, false)
	return out, healthy
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	cfg, deps, ok := lookup(c)
	if !ok {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	checks, healthy := deps.checks(c.Request.Context())
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   cfg.App.Version,
		Checks:    checks,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if !healthy {
		response.Status = "degraded"
	}
	if deps.Tiers != nil {
		response.Tiers = deps.Tiers()
	}
	if deps.Bridge != nil {
		s := deps.Bridge()
		response.Persistence = &s
	}
	if deps.Cache != nil {
		s := deps.Cache()
		response.Cache = &s
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("status", response.Status),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器；資料庫不可用時回傳 503
func ReadinessCheck(c *gin.Context) {
	_, deps, ok := lookup(c)
	if !ok {
		return
	}

	checks, healthy := deps.checks(c.Request.Context())
	if !healthy {
		common.LogWarn("Readiness check failed", zap.Any("checks", checks))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
