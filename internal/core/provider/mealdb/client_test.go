package mealdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
)

const teriyakiMeal = `{
	"idMeal": "52772",
	"strMeal": "Teriyaki Chicken Casserole",
	"strCategory": "Chicken",
	"strArea": "Japanese",
	"strInstructions": "Preheat oven.",
	"strMealThumb": "https://example.com/teriyaki.jpg",
	"strTags": "Meat,Casserole",
	"strIngredient1": "soy sauce",
	"strIngredient2": "water",
	"strIngredient3": "chicken breasts",
	"strIngredient4": "",
	"strIngredient5": null,
	"strMeasure1": "3/4 cup",
	"strMeasure2": "1/2 cup",
	"strMeasure3": "2",
	"strMeasure4": "",
	"strMeasure5": null
}`

type fakeMealDB struct {
	mu    sync.Mutex
	calls []string
	reply func(r *http.Request) (int, string)
}

func (f *fakeMealDB) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.URL.Path+"?"+r.URL.RawQuery)
	f.mu.Unlock()
	status, body := f.reply(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, reply func(r *http.Request) (int, string)) (*Client, *fakeMealDB) {
	t.Helper()
	fake := &fakeMealDB{reply: reply}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	c := NewClient(config.FreeProviderConfig{
		Enabled:           true,
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
		Burst:             10,
		MaxDetailFetches:  5,
	})
	return c, fake
}

func TestFetchDetailMapsMeal(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"meals":[` + teriyakiMeal + `]}`
	})

	got, err := c.FetchDetail(context.Background(), "52772")
	require.NoError(t, err)

	assert.Equal(t, []string{"/lookup.php?i=52772"}, fake.calls)
	assert.Equal(t, "52772", got.ID)
	assert.Equal(t, recipe.TierFree, got.SourceTier)
	assert.Equal(t, "Teriyaki Chicken Casserole", got.Title)
	assert.Equal(t, []string{"Japanese"}, got.Cuisines)
	assert.Equal(t, []string{"Chicken", "Meat", "Casserole"}, got.DishTypes)
	require.Len(t, got.Ingredients, 3)
	assert.Equal(t, "soy sauce", got.Ingredients[0].Name)
	assert.InDelta(t, 0.75, got.Ingredients[0].Amount, 1e-9)
	assert.Equal(t, "cup", got.Ingredients[0].Unit)
	assert.InDelta(t, 2, got.Ingredients[2].Amount, 1e-9)
	assert.Nil(t, got.Nutrition)
	assert.Zero(t, got.PricePerServingCents)
}

func TestFetchDetailNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"meals":null}`
	})

	_, err := c.FetchDetail(context.Background(), "1")
	assert.True(t, provider.IsKind(err, provider.KindNotFound))
}

func TestSearchTextFiltersByCuisine(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) (int, string) {
		other := `{"idMeal":"2","strMeal":"Chicken Parm","strArea":"Italian","strCategory":"Chicken"}`
		return http.StatusOK, `{"meals":[` + teriyakiMeal + `,` + other + `]}`
	})

	got, err := c.Search(context.Background(), recipe.Query{Text: "chicken"}, recipe.SearchFilters{Cuisine: "italian"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Chicken Parm", got[0].Title)
	assert.Equal(t, []string{"/search.php?s=chicken"}, fake.calls)
}

func TestSearchIngredientsUsesNativeFiltersAndEnriches(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) (int, string) {
		q := r.URL.Query()
		switch {
		case r.URL.Path == "/filter.php" && q.Get("i") == "chicken_breast":
			return http.StatusOK, `{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole"},{"idMeal":"9","strMeal":"Chicken Curry"}]}`
		case r.URL.Path == "/filter.php" && q.Get("a") == "Japanese":
			return http.StatusOK, `{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole"}]}`
		case r.URL.Path == "/lookup.php":
			return http.StatusOK, `{"meals":[` + teriyakiMeal + `]}`
		}
		return http.StatusOK, `{"meals":null}`
	})

	got, err := c.Search(context.Background(),
		recipe.Query{Ingredients: []string{"chicken breast"}},
		recipe.SearchFilters{Cuisine: "japanese"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "52772", got[0].ID)
	assert.True(t, got[0].HasIngredients())
	assert.Equal(t, []string{
		"/filter.php?i=chicken_breast",
		"/filter.php?a=Japanese",
		"/lookup.php?i=52772",
	}, fake.calls)
}

func TestSearchCuisineOnlyUsesAreaFilter(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"meals":[{"idMeal":"1","strMeal":"Sushi"}]}`
	})

	got, err := c.Search(context.Background(), recipe.Query{}, recipe.SearchFilters{Cuisine: "Japanese"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].HasIngredients())
	assert.Equal(t, []string{"/filter.php?a=Japanese"}, fake.calls)
}

func TestSearchUnfilteredUsesRandom(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{"meals":[` + teriyakiMeal + `]}`
	})

	got, err := c.Search(context.Background(), recipe.Query{}, recipe.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"/random.php?"}, fake.calls)
}

func TestSearchErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   provider.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, provider.KindQuotaExceeded},
		{"server error", http.StatusBadGateway, `oops`, provider.KindUnavailable},
		{"malformed", http.StatusOK, `{"meals":"Invalid ID"}`, provider.KindMalformedResponse},
		{"not json", http.StatusOK, `<html></html>`, provider.KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(r *http.Request) (int, string) {
				return tt.status, tt.body
			})
			_, err := c.Search(context.Background(), recipe.Query{Text: "x"}, recipe.SearchFilters{})
			require.Error(t, err)
			assert.True(t, provider.IsKind(err, tt.kind), fmt.Sprintf("got %v", err))
		})
	}
}

func TestSearchUnreachable(t *testing.T) {
	c := NewClient(config.FreeProviderConfig{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 100})
	_, err := c.Search(context.Background(), recipe.Query{Text: "x"}, recipe.SearchFilters{})
	assert.True(t, provider.IsKind(err, provider.KindUnavailable))
}

func TestLimiterHonoursCancelledContext(t *testing.T) {
	c := NewClient(config.FreeProviderConfig{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	// 消耗唯一的 token
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchDetail(ctx, "1")
	assert.True(t, provider.IsKind(err, provider.KindUnavailable))
}
