// Package search 依成本由低到高查詢各層級來源，達到足夠數量即停止，
// 之後合併、去重並排序結果。
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"recipe-aggregator/internal/core/matcher"
	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// ErrSearchFailed 所有嘗試的層級都失敗
var ErrSearchFailed = errors.New("search failed")

// DefaultThreshold 預設足夠數量
const DefaultThreshold = 10

// Metrics 記錄各層級呼叫結果
type Metrics interface {
	ObserveTierCall(tier string, outcome string, duration time.Duration, results int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTierCall(string, string, time.Duration, int) {}

// Options 協調器設定
type Options struct {
	// Threshold 累積筆數達到此值後不再查詢更昂貴的層級
	Threshold int
	// MaxResults 單次回傳上限，0 表示不限制
	MaxResults int
	// QuotaCooldown 付費層級額度用盡後停用的時間
	QuotaCooldown time.Duration
	Metrics       Metrics
}

// Orchestrator 搜尋協調器
type Orchestrator struct {
	providers []provider.Provider
	matcher   *matcher.Matcher
	catalog   *recipe.Catalog
	opts      Options

	mu                sync.Mutex
	paidDisabledUntil time.Time
	now               func() time.Time
}

// New 建立搜尋協調器
func New(registry *provider.Registry, m *matcher.Matcher, catalog *recipe.Catalog, opts Options) *Orchestrator {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.QuotaCooldown <= 0 {
		opts.QuotaCooldown = time.Hour
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if catalog == nil {
		catalog = recipe.DefaultCatalog()
	}
	if m == nil {
		m = matcher.New(catalog)
	}
	return &Orchestrator{
		providers: registry.Ordered(),
		matcher:   m,
		catalog:   catalog,
		opts:      opts,
		now:       time.Now,
	}
}

// Request 一次搜尋的完整輸入
type Request struct {
	Query recipe.Query `json:"query"`
	// SelectedIngredients 食材目錄 id；有值時依使用/缺少數排序
	SelectedIngredients []string             `json:"selected_ingredients,omitempty"`
	Filters             recipe.SearchFilters `json:"filters"`
	// Tiers 限制查詢的層級，空值代表全部
	Tiers []recipe.Tier `json:"tiers,omitempty"`
	Limit int           `json:"limit,omitempty"`
}

// Validate 驗證請求
func (r Request) Validate() error {
	if err := r.Filters.Validate(); err != nil {
		return err
	}
	for _, t := range r.Tiers {
		if !t.Valid() {
			return common.NewValidationError(fmt.Sprintf("unknown tier %q", t))
		}
	}
	if r.Limit < 0 {
		return common.NewValidationError("limit must not be negative")
	}
	return nil
}

func (r Request) allows(tier recipe.Tier) bool {
	if len(r.Tiers) == 0 {
		return true
	}
	for _, t := range r.Tiers {
		if t == tier {
			return true
		}
	}
	return false
}

// Hit 搜尋結果中的一筆食譜與比對分數
type Hit struct {
	recipe.Recipe
	UsedIngredientCount   int `json:"used_ingredient_count"`
	MissedIngredientCount int `json:"missed_ingredient_count"`
}

// TierError 單一層級的錯誤，供呼叫端顯示
type TierError struct {
	Tier    recipe.Tier        `json:"tier"`
	Kind    provider.ErrorKind `json:"kind"`
	Message string             `json:"message"`
}

// Result 搜尋結果
type Result struct {
	Results    []Hit               `json:"results"`
	TierCounts map[recipe.Tier]int `json:"tier_counts"`
	TierErrors []TierError         `json:"tier_errors,omitempty"`
	// Degraded 付費層級因額度用盡暫停
	Degraded bool `json:"degraded"`
}

// Search 執行分層搜尋
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := o.effectiveQuery(req)
	res := &Result{TierCounts: make(map[recipe.Tier]int)}

	var collected []recipe.Recipe
	// distinct 與 Dedup 相同的鍵，門檻以去重後的數量計算
	distinct := make(map[string]struct{})
	attempted, failed := 0, 0

	for _, p := range o.providers {
		tier := p.Tier()
		if !req.allows(tier) {
			continue
		}
		if tier != recipe.TierInternal && len(distinct) >= o.opts.Threshold {
			common.LogDebug("結果已足夠，略過後續層級",
				zap.String("tier", string(tier)),
				zap.Int("collected", len(distinct)),
				zap.Int("threshold", o.opts.Threshold),
			)
			break
		}
		if tier == recipe.TierPaid && o.PaidDegraded() {
			res.Degraded = true
			o.opts.Metrics.ObserveTierCall(string(tier), "skipped", 0, 0)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempted++
		start := time.Now()
		results, err := p.Search(ctx, query, req.Filters)
		elapsed := time.Since(start)
		if err != nil {
			failed++
			res.TierCounts[tier] = 0
			res.TierErrors = append(res.TierErrors, TierError{
				Tier:    tier,
				Kind:    provider.KindOf(err),
				Message: err.Error(),
			})
			o.opts.Metrics.ObserveTierCall(string(tier), "error", elapsed, 0)
			o.NoteProviderError(tier, err)
			common.LogWarn("來源層級搜尋失敗，繼續下一層",
				zap.String("tier", string(tier)),
				zap.Error(err),
			)
			continue
		}

		res.TierCounts[tier] = len(results)
		o.opts.Metrics.ObserveTierCall(string(tier), "ok", elapsed, len(results))
		collected = append(collected, results...)
		for i := range results {
			if key := results[i].NormalizedTitle(); key != "" {
				distinct[key] = struct{}{}
			}
		}
	}

	if attempted > 0 && failed == attempted {
		msgs := make([]string, 0, len(res.TierErrors))
		for _, te := range res.TierErrors {
			msgs = append(msgs, te.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, strings.Join(msgs, "; "))
	}

	res.Results = o.rank(Dedup(collected), req, query)

	limit := req.Limit
	if o.opts.MaxResults > 0 && (limit == 0 || limit > o.opts.MaxResults) {
		limit = o.opts.MaxResults
	}
	if limit > 0 && len(res.Results) > limit {
		res.Results = res.Results[:limit]
	}

	common.LogDebug("搜尋完成",
		zap.Int("results", len(res.Results)),
		zap.Int("attempted_tiers", attempted),
		zap.Int("failed_tiers", failed),
	)
	return res, nil
}

// effectiveQuery 沒有查詢條件但有選擇食材時，以食材名稱查詢
func (o *Orchestrator) effectiveQuery(req Request) recipe.Query {
	q := req.Query
	if q.IsEmpty() && len(req.SelectedIngredients) > 0 {
		q.Ingredients = o.catalog.Names(req.SelectedIngredients)
	}
	return q
}

// rank 有食材條件時依比對分數排序，否則依要求的排序方式
func (o *Orchestrator) rank(recipes []recipe.Recipe, req Request, query recipe.Query) []Hit {
	requested := req.SelectedIngredients
	if len(requested) == 0 && query.IsIngredientQuery() {
		requested = query.Ingredients
	}

	if len(requested) > 0 {
		ranked := o.matcher.Rank(recipes, requested)
		hits := make([]Hit, len(ranked))
		for i, r := range ranked {
			hits[i] = Hit{
				Recipe:                r.Recipe,
				UsedIngredientCount:   r.Score.Used,
				MissedIngredientCount: r.Score.Missed,
			}
		}
		return hits
	}

	hits := make([]Hit, len(recipes))
	for i := range recipes {
		hits[i] = Hit{Recipe: recipes[i]}
	}
	sortHits(hits, req.Filters.Sort)
	return hits
}

// Dedup 以正規化標題去重，保留第一次出現（最便宜層級）的食譜
func Dedup(recipes []recipe.Recipe) []recipe.Recipe {
	seen := make(map[string]struct{}, len(recipes))
	out := make([]recipe.Recipe, 0, len(recipes))
	for _, r := range recipes {
		key := r.NormalizedTitle()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// sortHits 未知的時間或價格排在最後；popularity 保留來源順序
func sortHits(hits []Hit, by recipe.Sort) {
	switch by {
	case recipe.SortTime:
		sort.SliceStable(hits, func(i, j int) bool {
			return lessKnown(float64(hits[i].ReadyMinutes), float64(hits[j].ReadyMinutes))
		})
	case recipe.SortPrice:
		sort.SliceStable(hits, func(i, j int) bool {
			return lessKnown(hits[i].PricePerServingCents, hits[j].PricePerServingCents)
		})
	case recipe.SortTitle:
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].NormalizedTitle() < hits[j].NormalizedTitle()
		})
	}
}

func lessKnown(a, b float64) bool {
	switch {
	case a <= 0:
		return false
	case b <= 0:
		return true
	default:
		return a < b
	}
}

// NoteProviderError 付費層級額度用盡時進入降級狀態
func (o *Orchestrator) NoteProviderError(tier recipe.Tier, err error) {
	if tier != recipe.TierPaid || !provider.IsKind(err, provider.KindQuotaExceeded) {
		return
	}
	o.mu.Lock()
	o.paidDisabledUntil = o.now().Add(o.opts.QuotaCooldown)
	until := o.paidDisabledUntil
	o.mu.Unlock()

	common.LogWarn("付費來源額度用盡，暫停使用",
		zap.Time("until", until),
	)
}

// PaidDegraded 付費層級是否暫停中
func (o *Orchestrator) PaidDegraded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now().Before(o.paidDisabledUntil)
}

// Tiers 已註冊的層級（依成本排序）
func (o *Orchestrator) Tiers() []recipe.Tier {
	out := make([]recipe.Tier, 0, len(o.providers))
	for _, p := range o.providers {
		out = append(out, p.Tier())
	}
	return out
}
