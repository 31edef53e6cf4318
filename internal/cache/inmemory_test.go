package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/subsync/subsync/internal/config"
)

func newCache(enabled bool) *InMemoryCache {
	return NewInMemoryCache(&config.Configuration{
		Cache: config.CacheConfig{Enabled: enabled, TTL: time.Minute},
	})
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := newCache(true)

	key := GenerateKey(PrefixPlan, "plan_1")
	assert.Equal(t, "plan:v1:plan_1", key)

	c.Set(ctx, key, "pro", 0)
	v, ok := c.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, "pro", v)

	c.Delete(ctx, key)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestInMemoryCache_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := newCache(true)

	c.Set(ctx, GenerateKey(PrefixPlan, "a"), 1, 0)
	c.Set(ctx, GenerateKey(PrefixPlan, "b"), 2, 0)
	c.Set(ctx, GenerateKey(PrefixPlanByPrice, "price_1"), 3, 0)

	c.DeleteByPrefix(ctx, PrefixPlan)

	_, ok := c.Get(ctx, GenerateKey(PrefixPlan, "a"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, GenerateKey(PrefixPlanByPrice, "price_1"))
	assert.True(t, ok)
}

func TestInMemoryCache_Disabled(t *testing.T) {
	ctx := context.Background()
	c := newCache(false)

	c.Set(ctx, "k", "v", 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
