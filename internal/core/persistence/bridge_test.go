package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/store"
)

func newRepository(t *testing.T) *store.Repository {
	t.Helper()
	db, err := store.Open(config.StoreConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	repo := store.NewRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func external() recipe.Recipe {
	return recipe.Recipe{
		ID:                   "52772",
		SourceTier:           recipe.TierFree,
		Title:                "Teriyaki Chicken Casserole",
		Servings:             4,
		PricePerServingCents: 210,
		Ingredients: []recipe.IngredientLine{
			recipe.ParseIngredientLine("3/4 cup soy sauce"),
			recipe.ParseIngredientLine("2 chicken breasts"),
		},
		Instructions: "Preheat oven.",
		Nutrition:    &recipe.Nutrition{Calories: 512},
	}
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *countingMetrics) ObservePersistence(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

func TestEnsurePersistedIsIdempotent(t *testing.T) {
	repo := newRepository(t)
	metrics := &countingMetrics{}
	b := NewBridge(repo, Options{Metrics: metrics})

	b.EnsurePersisted(external())
	b.Wait()
	b.EnsurePersisted(external())
	b.Wait()

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindBySource(context.Background(), recipe.TierFree, "52772")
	require.NoError(t, err)
	assert.Equal(t, recipe.TierFree, stored.ImportedFrom)
	assert.Equal(t, "Teriyaki Chicken Casserole", stored.Title)
	assert.Len(t, stored.Ingredients, 2)
	require.NotNil(t, stored.Nutrition)
	assert.False(t, stored.CreatedAt.IsZero())

	assert.Equal(t, 1, metrics.outcomes[OutcomeCreated])
	assert.Equal(t, 1, metrics.outcomes[OutcomeExists])
	assert.Equal(t, int64(1), b.Status().Created)
}

func TestEnsurePersistedConcurrentCallers(t *testing.T) {
	repo := newRepository(t)
	b := NewBridge(repo, Options{})

	for i := 0; i < 8; i++ {
		b.EnsurePersisted(external())
	}
	b.Wait()

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEnsurePersistedNeverOverwrites(t *testing.T) {
	repo := newRepository(t)
	b := NewBridge(repo, Options{})

	b.EnsurePersisted(external())
	b.Wait()

	edited := external()
	edited.Title = "Renamed"
	b.EnsurePersisted(edited)
	b.Wait()

	stored, err := repo.FindBySource(context.Background(), recipe.TierFree, "52772")
	require.NoError(t, err)
	assert.Equal(t, "Teriyaki Chicken Casserole", stored.Title)
}

func TestInternalRecipesAreSkipped(t *testing.T) {
	repo := newRepository(t)
	b := NewBridge(repo, Options{})

	r := external()
	r.SourceTier = recipe.TierInternal
	b.EnsurePersisted(r)
	b.Wait()

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

type failingStore struct{}

func (failingStore) InsertIfAbsent(context.Context, *recipe.Recipe) (string, bool, error) {
	return "", false, errors.New("disk full")
}

func TestWriteFailuresAreSwallowed(t *testing.T) {
	metrics := &countingMetrics{}
	b := NewBridge(failingStore{}, Options{Metrics: metrics})

	assert.NotPanics(t, func() {
		b.EnsurePersisted(external())
		b.Wait()
	})
	assert.Equal(t, 1, metrics.outcomes[OutcomeFailed])
	assert.Equal(t, int64(1), b.Status().Failed)
}

type blockingStore struct {
	release chan struct{}
}

func (s blockingStore) InsertIfAbsent(context.Context, *recipe.Recipe) (string, bool, error) {
	<-s.release
	return "k", true, nil
}

func TestFullBridgeDropsInsteadOfBlocking(t *testing.T) {
	s := blockingStore{release: make(chan struct{})}
	b := NewBridge(s, Options{MaxInFlight: 1})

	b.EnsurePersisted(external())
	b.EnsurePersisted(external())
	assert.Equal(t, int64(1), b.Status().Dropped)

	close(s.release)
	b.Wait()
	assert.Equal(t, int64(1), b.Status().Created)
}

func TestClosedBridgeDropsWrites(t *testing.T) {
	repo := newRepository(t)
	b := NewBridge(repo, Options{})
	b.Close()

	b.EnsurePersisted(external())
	b.Wait()

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, int64(1), b.Status().Dropped)
}

type countingStore struct {
	calls int64
}

func (s *countingStore) InsertIfAbsent(context.Context, *recipe.Recipe) (string, bool, error) {
	atomic.AddInt64(&s.calls, 1)
	return "k", true, nil
}

func TestCloseWaitsForWritesAcceptedConcurrently(t *testing.T) {
	const callers = 200
	s := &countingStore{}
	b := NewBridge(s, Options{MaxInFlight: callers})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			r := external()
			r.ID = fmt.Sprintf("id-%d", i)
			b.EnsurePersisted(r)
		}(i)
	}

	close(start)
	b.Close()
	// Close 回傳時所有已接受的寫入都已完成
	written := atomic.LoadInt64(&s.calls)
	wg.Wait()

	status := b.Status()
	assert.Equal(t, written, atomic.LoadInt64(&s.calls))
	assert.Equal(t, written, status.Created)
	assert.Equal(t, int64(callers), status.Created+status.Dropped)
	assert.Zero(t, status.InFlight)
}
