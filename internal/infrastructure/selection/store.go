// Package selection 保存使用者目前選擇的食材（依裝置或使用者鍵）
package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// ErrNotFound 鍵不存在
var ErrNotFound = errors.New("selection not found")

const keyPrefix = "recipe-aggregator:selection:"

// Store 鍵值儲存
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// New 依設定建立 Redis 儲存；未啟用時使用記憶體儲存
func New(cfg config.RedisConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("Redis 未啟用，食材選擇使用記憶體儲存")
		return NewMemoryStore(cfg.TTL), nil
	}
	return NewRedisStore(cfg)
}

// RedisStore Redis 儲存
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 建立 Redis 儲存並測試連線
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 已連線", zap.String("addr", cfg.Addr))
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// Get 讀取值
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get selection: %w", err)
	}
	return value, nil
}

// Set 寫入值；ttl 為 0 時不過期
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set selection: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore 記憶體儲存，重啟後資料消失
type MemoryStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]memoryValue
	now  func() time.Time
}

type memoryValue struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore 建立記憶體儲存
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:  ttl,
		data: make(map[string]memoryValue),
		now:  time.Now,
	}
}

// Get 讀取值
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	if !ok || (!v.expiresAt.IsZero() && s.now().After(v.expiresAt)) {
		return "", ErrNotFound
	}
	return v.value, nil
}

// Set 寫入值
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	v := memoryValue{value: value}
	if s.ttl > 0 {
		v.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
	return nil
}

// Ping 記憶體儲存永遠可用
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close 無資源需要釋放
func (s *MemoryStore) Close() error { return nil }

// Ingredients 使用者選擇的食材 id
type Ingredients struct {
	IDs       []string  `json:"ingredients"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveIngredients 正規化後以 JSON 保存
func SaveIngredients(ctx context.Context, s Store, key string, ids []string) (*Ingredients, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, common.NewValidationError("selection key is required")
	}
	sel := &Ingredients{IDs: common.UniqueStrings(lower(ids)), UpdatedAt: time.Now().UTC()}
	data, err := common.ToJSON(sel)
	if err != nil {
		return nil, err
	}
	if err := s.Set(ctx, key, data); err != nil {
		return nil, err
	}
	return sel, nil
}

// LoadIngredients 讀取保存的食材選擇
func LoadIngredients(ctx context.Context, s Store, key string) (*Ingredients, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, common.NewValidationError("selection key is required")
	}
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var sel Ingredients
	if err := common.ParseJSONBytes([]byte(data), &sel); err != nil {
		return nil, fmt.Errorf("failed to decode selection %q: %w", key, err)
	}
	if sel.IDs == nil {
		sel.IDs = []string{}
	}
	return &sel, nil
}

func lower(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
