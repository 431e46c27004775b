package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Zero(t, store.Len())
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "report:a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "report:b", []byte("2"), 0))
	require.NoError(t, store.Set(ctx, "other", []byte("3"), 0))

	require.NoError(t, store.DeletePrefix(ctx, "report:"))
	assert.Equal(t, 1, store.Len())
	_, err := store.Get(ctx, "other")
	assert.NoError(t, err)
}

type sample struct {
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

func TestReportCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	rc := NewReportCache(NewMemoryStore(), time.Minute)

	var out sample
	hit, err := rc.Get(ctx, "f1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, rc.Put(ctx, "f1", sample{Name: "x", Total: 900}))
	hit, err = rc.Get(ctx, "f1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sample{Name: "x", Total: 900}, out)

	require.NoError(t, rc.Invalidate(ctx))
	hit, err = rc.Get(ctx, "f1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestReportCacheWithoutStore(t *testing.T) {
	rc := NewReportCache(nil, time.Minute)
	require.NoError(t, rc.Put(context.Background(), "k", sample{}))
	hit, err := rc.Get(context.Background(), "k", &sample{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, rc.Ping(context.Background()))
}

func TestRedisStoreKeyNamespace(t *testing.T) {
	s := &RedisStore{namespace: "affiliatedesk"}
	assert.Equal(t, "affiliatedesk:report:x", s.key("report:x"))
}
