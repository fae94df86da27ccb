// Package planner 依天數、每日餐數、食材與菜系偏好自動產生菜單
package planner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/search"
	"recipe-aggregator/internal/core/shopping"
	"recipe-aggregator/internal/pkg/common"
)

// Searcher 分層搜尋
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Result, error)
}

// DetailSource 補齊摘要缺少的食材
type DetailSource interface {
	FetchDetail(ctx context.Context, id string) (*recipe.Recipe, error)
}

// 預設值
const (
	DefaultCallInterval = 300 * time.Millisecond
	DefaultTopMatches   = 3
	maxSubsetSize       = 2
)

// Options 產生器設定
type Options struct {
	// CallInterval 外部呼叫之間的最短間隔
	CallInterval time.Duration
	// Seed 亂數種子，0 代表以目前時間為種子
	Seed int64
	// TopMatches 從排名前幾名中挑選
	TopMatches int
}

// Request 產生菜單的條件
type Request struct {
	Days           int      `json:"days"`
	MealsPerDay    int      `json:"meals_per_day"`
	IngredientPool []string `json:"ingredient_pool,omitempty"`
	Cuisines       []string `json:"cuisines,omitempty"`
	Portions       int      `json:"portions,omitempty"`
	// Seed 指定時可重現同樣的菜單
	Seed int64 `json:"seed,omitempty"`
}

// Validate 驗證請求
func (r Request) Validate() error {
	switch r.Days {
	case 3, 5, 7:
	default:
		return common.NewValidationError(fmt.Sprintf("days must be 3, 5 or 7, got %d", r.Days))
	}
	if _, ok := mealTypes[r.MealsPerDay]; !ok {
		return common.NewValidationError(fmt.Sprintf("meals_per_day must be 2, 3 or 4, got %d", r.MealsPerDay))
	}
	if r.Portions < 0 {
		return common.NewValidationError("portions must not be negative")
	}
	return nil
}

var mealTypes = map[int][]recipe.MealType{
	2: {recipe.Breakfast, recipe.Dinner},
	3: {recipe.Breakfast, recipe.Lunch, recipe.Dinner},
	4: {recipe.Breakfast, recipe.Lunch, recipe.Dinner, recipe.Snack},
}

// Slot 菜單中的一格
type Slot struct {
	Day      recipe.Day      `json:"day"`
	MealType recipe.MealType `json:"meal_type"`
}

// Plan 產生結果；項目數可能少於格數
type Plan struct {
	Items        []recipe.MealPlanItem `json:"items"`
	EmptySlots   []Slot                `json:"empty_slots"`
	ShoppingList *shopping.List        `json:"shopping_list"`
	Seed         int64                 `json:"seed"`
}

// Generator 菜單產生器
type Generator struct {
	searcher   Searcher
	free       DetailSource
	aggregator *shopping.Aggregator
	pacer      *rate.Limiter
	topMatches int

	mu    sync.Mutex
	seeds *rand.Rand
}

// NewGenerator 建立菜單產生器；free 可為 nil
func NewGenerator(searcher Searcher, free DetailSource, aggregator *shopping.Aggregator, opts Options) *Generator {
	if opts.CallInterval <= 0 {
		opts.CallInterval = DefaultCallInterval
	}
	if opts.TopMatches <= 0 {
		opts.TopMatches = DefaultTopMatches
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if aggregator == nil {
		aggregator = shopping.NewAggregator(nil, nil)
	}
	return &Generator{
		searcher:   searcher,
		free:       free,
		aggregator: aggregator,
		pacer:      rate.NewLimiter(rate.Every(opts.CallInterval), 1),
		topMatches: opts.TopMatches,
		seeds:      rand.New(rand.NewSource(opts.Seed)),
	}
}

// run 單次產生的狀態
type run struct {
	req   Request
	rng   *rand.Rand
	used  map[string]bool
	cell  int
	items []recipe.MealPlanItem
}

// Generate 依天（星期一起）與餐別順序逐格填入，填不到的格子留空
func (g *Generator) Generate(ctx context.Context, req Request) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Portions == 0 {
		req.Portions = 1
	}
	seed := req.Seed
	if seed == 0 {
		g.mu.Lock()
		seed = g.seeds.Int63()
		g.mu.Unlock()
	}

	r := &run{
		req:  req,
		rng:  rand.New(rand.NewSource(seed)),
		used: make(map[string]bool),
	}
	plan := &Plan{Seed: seed, EmptySlots: []Slot{}}

	for _, day := range recipe.Week[:req.Days] {
		for _, meal := range mealTypes[req.MealsPerDay] {
			picked, err := g.fillCell(ctx, r)
			if err != nil {
				return nil, err
			}
			r.cell++
			if picked == nil {
				plan.EmptySlots = append(plan.EmptySlots, Slot{Day: day, MealType: meal})
				continue
			}
			r.used[picked.NormalizedTitle()] = true
			r.items = append(r.items, recipe.MealPlanItem{
				Day:       day,
				MealType:  meal,
				Recipe:    *picked,
				Portions:  req.Portions,
				CreatedAt: time.Now(),
			})
		}
	}

	plan.Items = r.items
	if plan.Items == nil {
		plan.Items = []recipe.MealPlanItem{}
	}
	list, err := g.aggregator.Build(plan.Items)
	if err != nil {
		return nil, err
	}
	plan.ShoppingList = list

	common.LogInfo("菜單產生完成",
		zap.Int("days", req.Days),
		zap.Int("meals_per_day", req.MealsPerDay),
		zap.Int("filled", len(plan.Items)),
		zap.Int("empty", len(plan.EmptySlots)),
		zap.Int64("seed", seed),
	)
	return plan, nil
}

// fillCell 先查內部資料庫，再查免費來源；都沒有結果時回傳 nil
func (g *Generator) fillCell(ctx context.Context, r *run) (*recipe.Recipe, error) {
	internal, err := g.search(ctx, search.Request{
		SelectedIngredients: subset(r.req.IngredientPool, r.cell),
		Tiers:               []recipe.Tier{recipe.TierInternal},
	})
	if err != nil {
		return nil, err
	}
	if picked := g.pick(r, internal); picked != nil {
		return picked, nil
	}

	var filters recipe.SearchFilters
	if len(r.req.Cuisines) > 0 {
		filters.Cuisine = r.req.Cuisines[r.rng.Intn(len(r.req.Cuisines))]
	}
	if err := g.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	external, err := g.search(ctx, search.Request{
		Filters: filters,
		Tiers:   []recipe.Tier{recipe.TierFree},
	})
	if err != nil {
		return nil, err
	}
	picked := g.pick(r, external)
	if picked == nil || picked.HasIngredients() || g.free == nil {
		return picked, nil
	}

	if err := g.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	detail, err := g.free.FetchDetail(ctx, picked.ID)
	if err != nil {
		common.LogWarn("取得食譜詳情失敗，使用摘要",
			zap.String("id", picked.ID),
			zap.Error(err),
		)
		return picked, nil
	}
	return detail, nil
}

// search 單一層級失敗視為沒有結果，只有取消才回傳錯誤
func (g *Generator) search(ctx context.Context, req search.Request) ([]search.Hit, error) {
	res, err := g.searcher.Search(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		common.LogWarn("菜單格子搜尋失敗",
			zap.Strings("tiers", tierNames(req.Tiers)),
			zap.Error(err),
		)
		return nil, nil
	}
	return res.Results, nil
}

// pick 從前幾名中隨機挑選，優先挑菜單中還沒出現的標題
func (g *Generator) pick(r *run, hits []search.Hit) *recipe.Recipe {
	if len(hits) == 0 {
		return nil
	}
	top := hits
	if len(top) > g.topMatches {
		top = top[:g.topMatches]
	}
	fresh := make([]search.Hit, 0, len(top))
	for _, h := range top {
		if !r.used[h.NormalizedTitle()] {
			fresh = append(fresh, h)
		}
	}
	if len(fresh) > 0 {
		top = fresh
	}
	chosen := top[r.rng.Intn(len(top))].Recipe
	return &chosen
}

// subset 每一格輪替使用食材池中最多兩項
func subset(pool []string, cell int) []string {
	n := len(pool)
	if n == 0 {
		return nil
	}
	size := maxSubsetSize
	if n < size {
		size = n
	}
	out := make([]string, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, pool[(cell*size+i)%n])
	}
	return out
}

func tierNames(tiers []recipe.Tier) []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = string(t)
	}
	return out
}
