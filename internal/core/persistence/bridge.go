// Package persistence 將使用者開啟的外部食譜寫回內部資料庫（讀取時回填）
package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// Store 回填所需的資料庫操作
type Store interface {
	InsertIfAbsent(ctx context.Context, r *recipe.Recipe) (key string, created bool, err error)
}

// Metrics 記錄回填結果
type Metrics interface {
	ObservePersistence(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) ObservePersistence(string) {}

// 回填結果
const (
	OutcomeCreated = "created"
	OutcomeExists  = "exists"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// Options 回填設定
type Options struct {
	// Timeout 單筆寫入逾時
	Timeout time.Duration
	// MaxInFlight 同時進行中的寫入上限，超過時直接放棄
	MaxInFlight int
	Metrics     Metrics
}

// Status 回填狀態
type Status struct {
	InFlight int   `json:"in_flight"`
	Created  int64 `json:"created"`
	Existing int64 `json:"existing"`
	Failed   int64 `json:"failed"`
	Dropped  int64 `json:"dropped"`
}

// Bridge 回填橋接器
type Bridge struct {
	store Store
	opts  Options
	slots chan struct{}
	wg    sync.WaitGroup

	// mu 保護 closed，並讓 wg.Add 與 Close 的 Wait 不會交錯
	mu     sync.Mutex
	closed bool

	created int64
	exists  int64
	failed  int64
	dropped int64
}

// NewBridge 建立回填橋接器
func NewBridge(store Store, opts Options) *Bridge {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 32
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &Bridge{
		store: store,
		opts:  opts,
		slots: make(chan struct{}, opts.MaxInFlight),
	}
}

// EnsurePersisted 在背景寫入外部食譜；不阻塞呼叫端，錯誤只記錄
func (b *Bridge) EnsurePersisted(r recipe.Recipe) {
	if r.SourceTier == recipe.TierInternal || r.SourceTier == "" || r.ID == "" {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.record(OutcomeDropped)
		return
	}
	select {
	case b.slots <- struct{}{}:
	default:
		b.mu.Unlock()
		b.record(OutcomeDropped)
		common.LogWarn("回填佇列已滿，略過",
			zap.String("tier", string(r.SourceTier)),
			zap.String("source_id", r.ID),
		)
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer func() { <-b.slots }()
		b.persist(r)
	}()
}

func (b *Bridge) persist(r recipe.Recipe) {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	r.ImportedFrom = r.SourceTier
	r.StoreKey = ""
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	key, created, err := b.store.InsertIfAbsent(ctx, &r)
	switch {
	case err != nil:
		b.record(OutcomeFailed)
		common.LogError("食譜回填失敗",
			zap.String("tier", string(r.SourceTier)),
			zap.String("source_id", r.ID),
			zap.Error(err),
		)
	case created:
		b.record(OutcomeCreated)
		common.LogInfo("食譜已回填",
			zap.String("tier", string(r.SourceTier)),
			zap.String("source_id", r.ID),
			zap.String("key", key),
		)
	default:
		b.record(OutcomeExists)
		common.LogDebug("食譜已存在",
			zap.String("source_id", r.ID),
			zap.String("key", key),
		)
	}
}

func (b *Bridge) record(outcome string) {
	switch outcome {
	case OutcomeCreated:
		atomic.AddInt64(&b.created, 1)
	case OutcomeExists:
		atomic.AddInt64(&b.exists, 1)
	case OutcomeFailed:
		atomic.AddInt64(&b.failed, 1)
	case OutcomeDropped:
		atomic.AddInt64(&b.dropped, 1)
	}
	b.opts.Metrics.ObservePersistence(outcome)
}

// Wait 等待所有進行中的寫入完成
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// Close 停止接受新的寫入並等待進行中的寫入
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

// Status 取得回填狀態
func (b *Bridge) Status() Status {
	return Status{
		InFlight: len(b.slots),
		Created:  atomic.LoadInt64(&b.created),
		Existing: atomic.LoadInt64(&b.exists),
		Failed:   atomic.LoadInt64(&b.failed),
		Dropped:  atomic.LoadInt64(&b.dropped),
	}
}
