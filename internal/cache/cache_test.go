package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("mc", 0)

	_, err := c.Get(ctx, "k")
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", 0)
	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.True(t, IsNotFound(err))
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), Config{Driver: "memory"})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())

	_, err = New(context.Background(), Config{Driver: "etcd"})
	require.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, Config{Driver: "redis", Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
