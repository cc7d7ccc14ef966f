package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/credential"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

// setupRedis connects to TEST_REDIS_ADDR, skipping when it is unset
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())

	t.Cleanup(func() { client.Close() })
	return client
}

func TestStore_Lifecycle(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := NewStore(client, fmt.Sprintf("wsignplay:test:%d", time.Now().UnixNano()))
	t.Cleanup(func() { store.Clear(ctx) })

	_, err := store.Load(ctx)
	assert.True(t, werrors.IsNotFound(err))

	require.NoError(t, store.Save(ctx, &credential.Credential{Token: "tok-r", PairedAt: time.Now().UTC()}))

	cred, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-r", cred.Token)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.True(t, werrors.IsNotFound(err))
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	store := NewStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	err := store.Save(context.Background(), &credential.Credential{})
	assert.True(t, werrors.IsInvalidInput(err))
}
