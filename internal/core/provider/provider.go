package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"recipe-aggregator/internal/core/recipe"
)

// Provider 定義食譜來源介面，每個來源負責把自己的格式轉成 recipe.Recipe
type Provider interface {
	// Tier 來源層級
	Tier() recipe.Tier

	// Search 依文字或食材搜尋，回傳的摘要可能沒有食材清單
	Search(ctx context.Context, q recipe.Query, f recipe.SearchFilters) ([]recipe.Recipe, error)

	// FetchDetail 取得單一食譜的完整內容
	FetchDetail(ctx context.Context, id string) (*recipe.Recipe, error)
}

// ErrorKind 來源錯誤類別
type ErrorKind string

const (
	KindUnavailable       ErrorKind = "unavailable"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindNotFound          ErrorKind = "not_found"
)

// Error 來源層級的錯誤
type Error struct {
	Tier recipe.Tier
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s provider: %s", e.Tier, e.Kind)
	}
	return fmt.Sprintf("%s provider: %s: %v", e.Tier, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 建立來源錯誤
func NewError(tier recipe.Tier, kind ErrorKind, err error) *Error {
	return &Error{Tier: tier, Kind: kind, Err: err}
}

// KindOf 取出錯誤類別；非來源錯誤視為 unavailable
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnavailable
}

// IsKind 判斷錯誤類別
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// KindFromStatus 將 HTTP 狀態碼對應到錯誤類別，2xx 回傳空字串
func KindFromStatus(status int) ErrorKind {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status == http.StatusPaymentRequired, status == http.StatusTooManyRequests:
		return KindQuotaExceeded
	case status == http.StatusNotFound:
		return KindNotFound
	default:
		return KindUnavailable
	}
}

// Registry 依層級管理來源
type Registry struct {
	byTier map[recipe.Tier]Provider
}

// NewRegistry 建立來源註冊表，nil 來源會被忽略
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byTier: make(map[recipe.Tier]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.byTier[p.Tier()] = p
	}
	return r
}

// Get 取得指定層級的來源
func (r *Registry) Get(tier recipe.Tier) (Provider, bool) {
	p, ok := r.byTier[tier]
	return p, ok
}

// Ordered 依成本由低到高排列
func (r *Registry) Ordered() []Provider {
	out := make([]Provider, 0, len(r.byTier))
	for _, p := range r.byTier {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Tier().Rank() < out[j].Tier().Rank()
	})
	return out
}
