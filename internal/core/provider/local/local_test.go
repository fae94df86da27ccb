package local

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/core/provider"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/store"
)

type fakeStore struct {
	rows      []recipe.Recipe
	err       error
	gotFilter store.Filter
}

func (f *fakeStore) Query(_ context.Context, filter store.Filter) ([]recipe.Recipe, error) {
	f.gotFilter = filter
	return f.rows, f.err
}

func (f *fakeStore) FindByKey(_ context.Context, key string) (*recipe.Recipe, error) {
	for i := range f.rows {
		if f.rows[i].StoreKey == key {
			return &f.rows[i], nil
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, store.ErrNotFound
}

func TestSearchPassesIngredientTerms(t *testing.T) {
	fs := &fakeStore{rows: []recipe.Recipe{
		{ID: "1", Title: "Omelette", Cuisines: []string{"French"}},
		{ID: "2", Title: "Frittata", Cuisines: []string{"Italian"}},
	}}
	p := New(fs, 0)

	got, err := p.Search(context.Background(),
		recipe.Query{Ingredients: []string{"egg"}},
		recipe.SearchFilters{Cuisine: "italian"})
	require.NoError(t, err)

	assert.Equal(t, []string{"egg"}, fs.gotFilter.IngredientTerms)
	require.Len(t, got, 1)
	assert.Equal(t, "Frittata", got[0].Title)
	assert.Equal(t, recipe.TierInternal, p.Tier())
}

func TestSearchTextQueryAndLimit(t *testing.T) {
	fs := &fakeStore{rows: []recipe.Recipe{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}, {ID: "3", Title: "C"}}}
	p := New(fs, 2)

	got, err := p.Search(context.Background(), recipe.Query{Text: "soup"}, recipe.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, "soup", fs.gotFilter.Text)
	assert.Len(t, got, 2)
}

func TestSearchStoreFailureIsTyped(t *testing.T) {
	p := New(&fakeStore{err: errors.New("disk on fire")}, 0)

	_, err := p.Search(context.Background(), recipe.Query{Text: "x"}, recipe.SearchFilters{})
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindUnavailable))
}

func TestFetchDetailNotFound(t *testing.T) {
	p := New(&fakeStore{}, 0)

	_, err := p.FetchDetail(context.Background(), "missing")
	assert.True(t, provider.IsKind(err, provider.KindNotFound))
}
