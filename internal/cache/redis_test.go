package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/beatstore/internal/config"
	"github.com/magabrotheeeer/beatstore/internal/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	wav := "https://cdn/a.wav"
	beat := models.Beat{ID: "b1", Title: "Night Drive", Audio: "https://cdn/a.mp3", WAV: &wav}
	require.NoError(t, cache.Set(ctx, "beat:b1", beat, time.Minute))

	var got models.Beat
	found, err := cache.Get(ctx, "beat:b1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, beat.Title, got.Title)
	require.NotNil(t, got.WAV)
	assert.Equal(t, wav, *got.WAV)
	assert.Nil(t, got.Stems)
}

func TestGetMissingKey(t *testing.T) {
	cache, _ := setupTestCache(t)

	var got models.Beat
	found, err := cache.Get(context.Background(), "beat:none", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, mr := setupTestCache(t)
	require.NoError(t, mr.Set("beat:bad", "{not json"))

	var got models.Beat
	_, err := cache.Get(context.Background(), "beat:bad", &got)
	assert.Error(t, err)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", 1, time.Second))
	mr.FastForward(2 * time.Second)

	var v int
	found, err := cache.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestInitServer_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := InitServer(context.Background(), config.RedisConnection{AddressRedis: addr, DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	cache, mr := setupTestCache(t)
	require.NoError(t, cache.Ping(context.Background()))

	mr.Close()
	assert.Error(t, cache.Ping(context.Background()))
}
