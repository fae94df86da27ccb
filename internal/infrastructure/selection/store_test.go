package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	_, err := s.Get(ctx, "device-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Set(ctx, "device-1", "v1"))
	require.NoError(t, s.Set(ctx, "device-1", "v2"))
	got, err := s.Get(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", "v"))
	now = now.Add(59 * time.Minute)
	_, err := s.Get(ctx, "k")
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIngredientsRoundTripNormalizes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	saved, err := SaveIngredients(ctx, s, "device-1", []string{"Chicken", " rice ", "chicken", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"chicken", "rice"}, saved.IDs)

	loaded, err := LoadIngredients(ctx, s, "device-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"chicken", "rice"}, loaded.IDs)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestIngredientsValidationAndMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	_, err := SaveIngredients(ctx, s, "  ", []string{"egg"})
	assert.True(t, common.IsValidationError(err))

	_, err = LoadIngredients(ctx, s, "unknown")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Set(ctx, "broken", "not json"))
	_, err = LoadIngredients(ctx, s, "broken")
	assert.Error(t, err)
}

func TestNewFallsBackToMemory(t *testing.T) {
	s, err := New(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
}

func TestRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
