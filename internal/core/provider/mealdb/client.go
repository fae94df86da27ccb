// Package mealdb 免費社群食譜來源（TheMealDB 格式），有速率限制
package mealdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

const (
	// 每次食材搜尋最多查詢的食材數
	maxIngredientQueries = 3
	// 食材欄位數量 strIngredient1..20
	maxIngredientFields = 20
)

// Client 免費來源客戶端
type Client struct {
	client           *resty.Client
	limiter          *rate.Limiter
	maxDetailFetches int
}

var _ provider.Provider = (*Client)(nil)

// NewClient 建立免費來源客戶端
func NewClient(cfg config.FreeProviderConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "recipe-aggregator")

	return &Client{
		client:           client,
		limiter:          rate.NewLimiter(limit, burst),
		maxDetailFetches: cfg.MaxDetailFetches,
	}
}

// Tier 來源層級
func (c *Client) Tier() recipe.Tier {
	return recipe.TierFree
}

// Search 優先使用來源原生的地區/分類/食材篩選端點
func (c *Client) Search(ctx context.Context, q recipe.Query, f recipe.SearchFilters) ([]recipe.Recipe, error) {
	start := time.Now()
	results, err := c.search(ctx, q, f)
	common.LogProviderCall(string(recipe.TierFree), "search", time.Since(start), len(results), err)
	return results, err
}

func (c *Client) search(ctx context.Context, q recipe.Query, f recipe.SearchFilters) ([]recipe.Recipe, error) {
	category := categoryFor(f)

	switch {
	case q.IsIngredientQuery():
		summaries, err := c.byIngredients(ctx, q.Ingredients)
		if err != nil {
			return nil, err
		}
		summaries, err = c.narrow(ctx, summaries, f.Cuisine, category)
		if err != nil {
			return nil, err
		}
		return c.enrich(ctx, summaries, f), nil

	case strings.TrimSpace(q.Text) != "":
		meals, err := c.get(ctx, "/search.php", map[string]string{"s": strings.TrimSpace(q.Text)})
		if err != nil {
			return nil, err
		}
		return filterRecipes(meals, f), nil

	case f.Cuisine != "" || category != "":
		var summaries []recipe.Recipe
		var err error
		if f.Cuisine != "" {
			summaries, err = c.get(ctx, "/filter.php", map[string]string{"a": titleCase(f.Cuisine)})
			if err != nil {
				return nil, err
			}
			summaries, err = c.narrow(ctx, summaries, "", category)
		} else {
			summaries, err = c.get(ctx, "/filter.php", map[string]string{"c": category})
		}
		if err != nil {
			return nil, err
		}
		return summaries, nil

	default:
		meals, err := c.get(ctx, "/random.php", nil)
		if err != nil {
			return nil, err
		}
		return filterRecipes(meals, f), nil
	}
}

// FetchDetail 取得完整食譜
func (c *Client) FetchDetail(ctx context.Context, id string) (*recipe.Recipe, error) {
	start := time.Now()
	meals, err := c.get(ctx, "/lookup.php", map[string]string{"i": id})
	common.LogProviderCall(string(recipe.TierFree), "detail", time.Since(start), len(meals), err)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, provider.NewError(recipe.TierFree, provider.KindNotFound, fmt.Errorf("recipe %s not found", id))
	}
	return &meals[0], nil
}

// byIngredients 每個食材各查一次，合併並保留順序
func (c *Client) byIngredients(ctx context.Context, ingredients []string) ([]recipe.Recipe, error) {
	seen := map[string]bool{}
	var out []recipe.Recipe
	var lastErr error
	succeeded := 0

	for i, name := range common.UniqueStrings(ingredients) {
		if i >= maxIngredientQueries {
			break
		}
		param := strings.ReplaceAll(strings.ToLower(name), " ", "_")
		meals, err := c.get(ctx, "/filter.php", map[string]string{"i": param})
		if err != nil {
			lastErr = err
			continue
		}
		succeeded++
		for _, m := range meals {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}

	if succeeded == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// narrow 以原生篩選端點取交集（摘要沒有地區與分類資訊）
func (c *Client) narrow(ctx context.Context, summaries []recipe.Recipe, cuisine, category string) ([]recipe.Recipe, error) {
	if len(summaries) == 0 {
		return summaries, nil
	}
	if cuisine != "" {
		allowed, err := c.get(ctx, "/filter.php", map[string]string{"a": titleCase(cuisine)})
		if err != nil {
			return nil, err
		}
		summaries = intersect(summaries, allowed)
	}
	if category != "" && len(summaries) > 0 {
		allowed, err := c.get(ctx, "/filter.php", map[string]string{"c": category})
		if err != nil {
			return nil, err
		}
		summaries = intersect(summaries, allowed)
	}
	return summaries, nil
}

// enrich 為前幾筆摘要補上食材，供比對排序使用；失敗時保留摘要
func (c *Client) enrich(ctx context.Context, summaries []recipe.Recipe, f recipe.SearchFilters) []recipe.Recipe {
	out := make([]recipe.Recipe, 0, len(summaries))
	fetched := 0
	for _, s := range summaries {
		if s.HasIngredients() || fetched >= c.maxDetailFetches {
			out = append(out, s)
			continue
		}
		fetched++
		meals, err := c.get(ctx, "/lookup.php", map[string]string{"i": s.ID})
		if err != nil || len(meals) == 0 {
			common.LogDebug("補充食譜內容失敗",
				zap.String("tier", string(recipe.TierFree)),
				zap.String("id", s.ID),
				zap.Error(err),
			)
			out = append(out, s)
			continue
		}
		if f.Matches(&meals[0]) {
			out = append(out, meals[0])
		}
	}
	return out
}

// get 送出請求並解析 meals 陣列
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]recipe.Recipe, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, provider.NewError(recipe.TierFree, provider.KindUnavailable, err)
	}

	req := c.client.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, provider.NewError(recipe.TierFree, provider.KindUnavailable, fmt.Errorf("request %s: %w", path, err))
	}
	if kind := provider.KindFromStatus(resp.StatusCode()); kind != "" {
		return nil, provider.NewError(recipe.TierFree, kind, fmt.Errorf("%s returned status %d", path, resp.StatusCode()))
	}
	if resp.StatusCode() == http.StatusNoContent {
		return nil, nil
	}

	var payload mealsResponse
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return nil, provider.NewError(recipe.TierFree, provider.KindMalformedResponse, fmt.Errorf("decode %s: %w", path, err))
	}

	out := make([]recipe.Recipe, 0, len(payload.Meals))
	for _, m := range payload.Meals {
		r, ok := mapMeal(m)
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// categoryFor 將餐點類型或飲食標籤轉為來源分類
func categoryFor(f recipe.SearchFilters) string {
	if f.Type != "" {
		return titleCase(f.Type)
	}
	for _, tag := range f.DietTags {
		switch strings.ToLower(strings.TrimSpace(tag)) {
		case "vegan":
			return "Vegan"
		case "vegetarian":
			return "Vegetarian"
		}
	}
	return ""
}

func filterRecipes(rs []recipe.Recipe, f recipe.SearchFilters) []recipe.Recipe {
	out := make([]recipe.Recipe, 0, len(rs))
	for i := range rs {
		if f.Matches(&rs[i]) {
			out = append(out, rs[i])
		}
	}
	return out
}

func intersect(rs, allowed []recipe.Recipe) []recipe.Recipe {
	ids := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ids[a.ID] = true
	}
	out := rs[:0:0]
	for _, r := range rs {
		if ids[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
