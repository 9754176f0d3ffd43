package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/canopy/pkg/adapters/redis"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunTreeStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	store, mr := newTestStore(t, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	_, err := store.Save(ctx, &domain.TreeDefinition{
		ID:   "patrol",
		Root: domain.TreeNodeDefinition{ID: "root", Type: "constant", Params: map[string]any{"status": "SUCCESS"}},
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:tree:patrol:def:1"))
	assert.True(t, mr.Exists("custom:app:tree:patrol:versions"))
	assert.True(t, mr.Exists("custom:app:index"))

	list, err := store.List(ctx, ports.TreeFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "patrol", list[0].ID)
}

func TestRedisStore_ImmutableAcrossClients(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	def := &domain.TreeDefinition{
		ID:       "shared",
		Metadata: domain.TreeMetadata{Version: "7"},
		Root:     domain.TreeNodeDefinition{ID: "root", Type: "constant", Params: map[string]any{"status": "SUCCESS"}},
	}
	_, err := store.Save(ctx, def)
	require.NoError(t, err)

	// A second client against the same backend sees the same guard.
	other := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	_, err = other.Save(ctx, def)
	assert.ErrorIs(t, err, domain.ErrVersionExists)

	loaded, err := other.Load(ctx, "shared", "7")
	require.NoError(t, err)
	assert.Equal(t, "shared", loaded.ID)
}
