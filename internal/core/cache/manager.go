// Package cache 食譜詳情的記憶體快取，避免重複打開同一份食譜時再次呼叫計量來源
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// Manager 快取管理器
type Manager struct {
	cfg   config.CacheConfig
	mu    sync.Mutex
	store map[string]*entry
	stats Stats
	done  chan struct{}
	once  sync.Once
	now   func() time.Time
}

type entry struct {
	value       recipe.Recipe
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Stats 快取統計
type Stats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
}

// NewManager 建立快取管理器；停用時 Get 一律回傳 ErrCacheDisabled
func NewManager(cfg config.CacheConfig) *Manager {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	m := &Manager{
		cfg:   cfg,
		store: make(map[string]*entry),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	if !cfg.Enabled {
		common.LogInfo("食譜快取已停用")
		return m
	}

	if cfg.CleanupInterval > 0 {
		go m.startCleanup()
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("max_size", cfg.MaxSize),
		zap.Duration("ttl", cfg.TTL),
		zap.Duration("cleanup_interval", cfg.CleanupInterval),
	)
	return m
}

// Key 以層級與來源 id 組成快取鍵
func Key(tier recipe.Tier, id string) string {
	return string(tier) + ":" + id
}

// Get 取得快取的食譜
func (m *Manager) Get(_ context.Context, tier recipe.Tier, id string) (*recipe.Recipe, error) {
	if !m.cfg.Enabled {
		return nil, common.ErrCacheDisabled
	}
	key := Key(tier, id)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.store[key]
	if !ok {
		m.stats.Misses++
		common.LogCacheMiss("recipe", key)
		return nil, common.ErrCacheMiss
	}
	if m.now().After(e.expiresAt) {
		delete(m.store, key)
		m.stats.Evictions++
		m.stats.Misses++
		common.LogCacheMiss("recipe", key)
		return nil, common.ErrCacheMiss
	}

	e.lastAccess = m.now()
	e.accessCount++
	m.stats.Hits++
	common.LogCacheHit("recipe", key)

	r := e.value
	return &r, nil
}

// Set 寫入快取；容量已滿時先清除過期項目，再淘汰最少使用的項目
func (m *Manager) Set(_ context.Context, r *recipe.Recipe) error {
	if !m.cfg.Enabled || r == nil {
		return nil
	}
	key := Key(r.SourceTier, r.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.cfg.MaxSize {
		m.cleanup()
		if len(m.store) >= m.cfg.MaxSize {
			m.evictLRU()
		}
	}

	now := m.now()
	m.store[key] = &entry{
		value:      *r,
		expiresAt:  now.Add(m.cfg.TTL),
		lastAccess: now,
	}
	return nil
}

// startCleanup 定期清除過期項目
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// cleanup 呼叫端需持有鎖
func (m *Manager) cleanup() int {
	now := m.now()
	count := 0
	for key, e := range m.store {
		if now.After(e.expiresAt) {
			delete(m.store, key)
			count++
		}
	}
	if count > 0 {
		m.stats.Evictions += int64(count)
		common.LogDebug("已清除過期快取",
			zap.Int("count", count),
			zap.Int("remaining", len(m.store)),
		)
	}
	return count
}

// evictLRU 淘汰存取次數最少、最久未使用的項目；呼叫端需持有鎖
func (m *Manager) evictLRU() {
	var (
		oldestKey   string
		oldest      time.Time
		lowestCount int
	)
	for key, e := range m.store {
		if oldestKey == "" ||
			e.accessCount < lowestCount ||
			(e.accessCount == lowestCount && e.lastAccess.Before(oldest)) {
			oldestKey = key
			oldest = e.lastAccess
			lowestCount = e.accessCount
		}
	}
	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.Evictions++
		common.LogDebug("快取已淘汰(LRU)", zap.String("key", oldestKey))
	}
}

// Stats 取得快取統計
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.store)
	s.MaxSize = m.cfg.MaxSize
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}

// Enabled 是否啟用
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// Close 停止清理並清空快取
func (m *Manager) Close() error {
	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]*entry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("hits", m.stats.Hits),
		zap.Int64("misses", m.stats.Misses),
		zap.Int64("evictions", m.stats.Evictions),
	)
	return nil
}
