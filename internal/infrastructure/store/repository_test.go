package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(config.StoreConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	repo := NewRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleRecipe(tier recipe.Tier, id, title string, raws ...string) *recipe.Recipe {
	r := &recipe.Recipe{
		ID:                   id,
		SourceTier:           tier,
		Title:                title,
		Servings:             2,
		PricePerServingCents: 180,
		Cuisines:             []string{"Italian"},
		Instructions:         "Cook it.",
		Nutrition:            &recipe.Nutrition{Calories: 420, ProteinG: 20},
	}
	for _, raw := range raws {
		r.Ingredients = append(r.Ingredients, recipe.ParseIngredientLine(raw))
	}
	return r
}

func TestInsertIfAbsentIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	rec := sampleRecipe(recipe.TierPaid, "716429", "Pasta with Garlic", "8 oz pasta", "2 cloves garlic")

	key1, created, err := repo.InsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	changed := *rec
	changed.Title = "Different Title"
	key2, created, err := repo.InsertIfAbsent(ctx, &changed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, key1, key2)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stored, err := repo.FindBySource(ctx, recipe.TierPaid, "716429")
	require.NoError(t, err)
	assert.Equal(t, "Pasta with Garlic", stored.Title)
	assert.Equal(t, recipe.TierInternal, stored.SourceTier)
	assert.Equal(t, recipe.TierPaid, stored.ImportedFrom)
	assert.Equal(t, key1, stored.StoreKey)
	require.NotNil(t, stored.Nutrition)
	assert.InDelta(t, 420, stored.Nutrition.Calories, 1e-9)
	require.Len(t, stored.Ingredients, 2)
	assert.Equal(t, "pasta", stored.Ingredients[0].Name)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestInsertIfAbsentConcurrentWriters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.InsertIfAbsent(ctx, sampleRecipe(recipe.TierFree, "52772", "Teriyaki Chicken", "1 lb chicken"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSameSourceIDDifferentTiers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, _, err := repo.InsertIfAbsent(ctx, sampleRecipe(recipe.TierFree, "100", "A"))
	require.NoError(t, err)
	_, _, err = repo.InsertIfAbsent(ctx, sampleRecipe(recipe.TierPaid, "100", "B"))
	require.NoError(t, err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestQueryByIngredientTerms(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, sampleRecipe(recipe.TierInternal, "", "Omelette", "3 Eggs", "1 tbsp butter"))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, sampleRecipe(recipe.TierInternal, "", "Fried Rice", "2 cups rice", "2 eggs"))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, sampleRecipe(recipe.TierInternal, "", "Salad", "1 lettuce"))
	require.NoError(t, err)

	got, err := repo.Query(ctx, Filter{IngredientTerms: []string{"EGG"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Omelette", got[0].Title)
	assert.Equal(t, "Fried Rice", got[1].Title)

	got, err = repo.Query(ctx, Filter{IngredientTerms: []string{"lettuce", "rice"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.Query(ctx, Filter{Text: "rice"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Fried Rice", got[0].Title)

	got, err = repo.Query(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpsertOverwritesAndDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := sampleRecipe(recipe.TierInternal, "house-1", "Soup")
	key, err := repo.Upsert(ctx, rec)
	require.NoError(t, err)

	rec.Title = "Better Soup"
	key2, err := repo.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, key, key2)

	got, err := repo.FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Better Soup", got.Title)

	require.NoError(t, repo.Delete(ctx, key))
	_, err = repo.FindByKey(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, key), ErrNotFound)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
