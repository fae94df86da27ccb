// Package local 以內部食譜資料庫作為零成本的第一層來源
package local

import (
	"context"
	"errors"
	"time"

	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/store"
	"recipe-aggregator/internal/pkg/common"
)

// Store 內部來源需要的資料庫操作
type Store interface {
	Query(ctx context.Context, filter store.Filter) ([]recipe.Recipe, error)
	FindByKey(ctx context.Context, key string) (*recipe.Recipe, error)
}

// Provider 內部資料庫來源
type Provider struct {
	store Store
	limit int
}

var _ provider.Provider = (*Provider)(nil)

// New 建立內部來源；limit <= 0 表示不限制筆數
func New(s Store, limit int) *Provider {
	return &Provider{store: s, limit: limit}
}

// Tier 來源層級
func (p *Provider) Tier() recipe.Tier {
	return recipe.TierInternal
}

// Search 以食材原文子字串或標題搜尋，再套用過濾條件
func (p *Provider) Search(ctx context.Context, q recipe.Query, f recipe.SearchFilters) ([]recipe.Recipe, error) {
	start := time.Now()

	filter := store.Filter{}
	if q.IsIngredientQuery() {
		filter.IngredientTerms = q.Ingredients
	} else {
		filter.Text = q.Text
	}

	rows, err := p.store.Query(ctx, filter)
	if err != nil {
		err = provider.NewError(recipe.TierInternal, provider.KindUnavailable, err)
		common.LogProviderCall(string(recipe.TierInternal), "search", time.Since(start), 0, err)
		return nil, err
	}

	out := make([]recipe.Recipe, 0, len(rows))
	for i := range rows {
		if !f.Matches(&rows[i]) {
			continue
		}
		out = append(out, rows[i])
		if p.limit > 0 && len(out) >= p.limit {
			break
		}
	}

	common.LogProviderCall(string(recipe.TierInternal), "search", time.Since(start), len(out), nil)
	return out, nil
}

// FetchDetail 以資料庫鍵取得完整食譜
func (p *Provider) FetchDetail(ctx context.Context, id string) (*recipe.Recipe, error) {
	rec, err := p.store.FindByKey(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, provider.NewError(recipe.TierInternal, provider.KindNotFound, err)
		}
		return nil, provider.NewError(recipe.TierInternal, provider.KindUnavailable, err)
	}
	return rec, nil
}
