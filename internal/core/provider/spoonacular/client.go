// Package spoonacular 付費計量食譜來源
package spoonacular

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// Client 付費來源客戶端
type Client struct {
	client *resty.Client
	number int
}

var _ provider.Provider = (*Client)(nil)

// NewClient 建立付費來源客戶端；API key 放在標頭，避免出現在錯誤訊息的 URL 中
func NewClient(cfg config.PaidProviderConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	number := cfg.ResultsNumber
	if number <= 0 {
		number = 10
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("x-api-key", cfg.APIKey)

	return &Client{
		client: client,
		number: number,
	}
}

// Tier 來源層級
func (c *Client) Tier() recipe.Tier {
	return recipe.TierPaid
}

// Search 沒有過濾條件的食材搜尋使用 findByIngredients，其餘使用 complexSearch
func (c *Client) Search(ctx context.Context, q recipe.Query, f recipe.SearchFilters) ([]recipe.Recipe, error) {
	start := time.Now()
	var (
		results []recipe.Recipe
		err     error
	)
	if q.IsIngredientQuery() && isUnfiltered(f) {
		results, err = c.findByIngredients(ctx, q.Ingredients)
	} else {
		results, err = c.complexSearch(ctx, q, f)
	}
	common.LogProviderCall(string(recipe.TierPaid), "search", time.Since(start), len(results), err)
	return results, err
}

// FetchDetail 取得完整食譜（含營養資訊）
func (c *Client) FetchDetail(ctx context.Context, id string) (*recipe.Recipe, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, provider.NewError(recipe.TierPaid, provider.KindNotFound, fmt.Errorf("invalid recipe id %q", id))
	}

	start := time.Now()
	var info recipeInfo
	err := c.get(ctx, "/recipes/"+id+"/information", map[string]string{"includeNutrition": "true"}, &info)
	common.LogProviderCall(string(recipe.TierPaid), "detail", time.Since(start), 1, err)
	if err != nil {
		return nil, err
	}
	if info.ID == 0 {
		return nil, provider.NewError(recipe.TierPaid, provider.KindMalformedResponse, fmt.Errorf("recipe %s has no id", id))
	}
	r := mapRecipe(info)
	return &r, nil
}

func (c *Client) complexSearch(ctx context.Context, q recipe.Query, f recipe.SearchFilters) ([]recipe.Recipe, error) {
	params := map[string]string{
		"number":               strconv.Itoa(c.number),
		"addRecipeInformation": "true",
		"addRecipeNutrition":   "true",
		"fillIngredients":      "true",
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		params["query"] = text
	}
	if q.IsIngredientQuery() {
		params["includeIngredients"] = strings.Join(q.Ingredients, ",")
		params["sort"] = "max-used-ingredients"
	}
	if f.Cuisine != "" {
		params["cuisine"] = f.Cuisine
	}
	if len(f.DietTags) > 0 {
		params["diet"] = strings.Join(f.DietTags, ",")
	}
	if f.Type != "" {
		params["type"] = strings.ToLower(f.Type)
	}
	if f.MaxReadyMinutes > 0 {
		params["maxReadyTime"] = strconv.Itoa(f.MaxReadyMinutes)
	}
	if _, ok := params["sort"]; !ok {
		switch f.Sort {
		case recipe.SortTime:
			params["sort"] = "time"
		case recipe.SortPrice:
			params["sort"] = "price"
		case recipe.SortPopularity:
			params["sort"] = "popularity"
		}
	}

	var payload searchResponse
	if err := c.get(ctx, "/recipes/complexSearch", params, &payload); err != nil {
		return nil, err
	}

	out := make([]recipe.Recipe, 0, len(payload.Results))
	for _, info := range payload.Results {
		r := mapRecipe(info)
		// 來源沒有價格篩選參數
		if !f.Matches(&r) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) findByIngredients(ctx context.Context, ingredients []string) ([]recipe.Recipe, error) {
	params := map[string]string{
		"ingredients":  strings.Join(ingredients, ","),
		"number":       strconv.Itoa(c.number),
		"ranking":      "1",
		"ignorePantry": "true",
	}

	var items []byIngredientsItem
	if err := c.get(ctx, "/recipes/findByIngredients", params, &items); err != nil {
		return nil, err
	}

	out := make([]recipe.Recipe, 0, len(items))
	for _, item := range items {
		out = append(out, mapByIngredients(item))
	}
	return out, nil
}

// get 送出請求並將回應解析到 out
func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return provider.NewError(recipe.TierPaid, provider.KindUnavailable, fmt.Errorf("request %s: %w", path, err))
	}
	if kind := provider.KindFromStatus(resp.StatusCode()); kind != "" {
		return provider.NewError(recipe.TierPaid, kind, fmt.Errorf("%s returned status %d", path, resp.StatusCode()))
	}
	if err := common.ParseJSONBytes(resp.Body(), out); err != nil {
		return provider.NewError(recipe.TierPaid, provider.KindMalformedResponse, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func isUnfiltered(f recipe.SearchFilters) bool {
	return len(f.DietTags) == 0 && f.Type == "" && f.Cuisine == "" && f.MaxPriceCents == 0 && f.MaxReadyMinutes == 0
}
