package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*RedisRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisRegistry(client, 15*time.Minute), mr
}

func TestRegistryCreateAndValidate(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := registry.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	valid, err := registry.Validate(ctx, "user-1", id)
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = registry.Validate(ctx, "user-1", "some-other-id")
	require.NoError(t, err)
	require.False(t, valid)

	valid, err = registry.Validate(ctx, "user-2", id)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestRegistryCreateOverwrites(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := registry.Create(ctx, "user-1")
	require.NoError(t, err)

	second, err := registry.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	valid, err := registry.Validate(ctx, "user-1", first)
	require.NoError(t, err)
	require.False(t, valid, "previous session must no longer validate")

	valid, err = registry.Validate(ctx, "user-1", second)
	require.NoError(t, err)
	require.True(t, valid)
}

func TestRegistryExpiry(t *testing.T) {
	registry, mr := newTestRegistry(t)
	ctx := context.Background()

	id, err := registry.Create(ctx, "user-1")
	require.NoError(t, err)

	mr.FastForward(16 * time.Minute)

	valid, err := registry.Validate(ctx, "user-1", id)
	require.NoError(t, err)
	require.False(t, valid, "expired record must read as absent")
}

func TestRegistryDeleteIdempotent(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := registry.Create(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, registry.Delete(ctx, "user-1"))
	require.NoError(t, registry.Delete(ctx, "user-1"))

	valid, err := registry.Validate(ctx, "user-1", id)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestRegistryValidateEmptyInputs(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	valid, err := registry.Validate(ctx, "", "id")
	require.NoError(t, err)
	require.False(t, valid)

	valid, err = registry.Validate(ctx, "user-1", "")
	require.NoError(t, err)
	require.False(t, valid)
}
