//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: GASKET_REDIS_ADDR=localhost:6379 go test -tags integration ./pkg/cache
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("GASKET_REDIS_ADDR")
	if addr == "" {
		t.Skip("GASKET_REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer c.Close()

	keyer := NewScopedKeyer(nil, "test:"+uuid.NewString()+":")
	key := keyer.GasketKey("abc", 2)

	_, hit, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, key, []byte("payload"), time.Minute))
	data, hit, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, c.Delete(ctx, key))
	_, hit, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit)
}
