package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/auth"
	"github.com/dropDatabas3/meshconsole/internal/cache"
)

func testKey() *[32]byte {
	var k [32]byte
	copy(k[:], "0123456789abcdef0123456789abcdef")
	return &k
}

func TestCacheStoreRoundTrip(t *testing.T) {
	for name, key := range map[string]*[32]byte{"plain": nil, "sealed": testKey()} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := NewCacheStore(cache.NewMemory("mc:", time.Hour), time.Hour, key)

			got, err := st.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)

			in := auth.Session{
				Username:    "alice",
				ExpiresOn:   t0.Add(time.Hour),
				ClusterInfo: &api.ClusterInfo{Name: "east"},
			}
			require.NoError(t, st.Save(ctx, in))

			got, err = st.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "alice", got.Username)
			assert.True(t, in.ExpiresOn.Equal(got.ExpiresOn))
			assert.Equal(t, "east", got.ClusterInfo.Name)

			require.NoError(t, st.Clear(ctx))
			got, err = st.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestCacheStoreSealedPayloadIsOpaque(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory("", time.Hour)
	st := NewCacheStore(c, time.Hour, testKey())
	require.NoError(t, st.Save(ctx, auth.Session{Username: "alice", ExpiresOn: t0}))

	raw, err := c.Get(ctx, sessionKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, "alice")
}

func TestCacheStoreWrongKeyFails(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory("", time.Hour)
	require.NoError(t, NewCacheStore(c, time.Hour, testKey()).Save(ctx, auth.Session{Username: "alice", ExpiresOn: t0}))

	var other [32]byte
	_, err := NewCacheStore(c, time.Hour, &other).Load(ctx)
	assert.ErrorIs(t, err, errSealedPayload)
}
