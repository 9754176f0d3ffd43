package ports

import (
	"context"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTreeStoreContract runs a suite of tests to verify that a TreeStore
// implementation adheres to the port's semantics. Adapters call it from
// their own test files against a fresh, empty store.
func RunTreeStoreContract(t *testing.T, store TreeStore) {
	ctx := context.Background()

	newDef := func(id, version string) *domain.TreeDefinition {
		return &domain.TreeDefinition{
			ID: id,
			Metadata: domain.TreeMetadata{
				Name:    "contract " + id,
				Version: version,
				Tags:    []string{"contract"},
			},
			Root: domain.TreeNodeDefinition{
				ID:     "root",
				Type:   "constant",
				Params: map[string]any{"status": "SUCCESS"},
			},
		}
	}

	t.Run("SaveAssignsVersions", func(t *testing.T) {
		v1, err := store.Save(ctx, newDef("contract-a", ""))
		require.NoError(t, err)
		assert.Equal(t, "1", v1)

		v2, err := store.Save(ctx, newDef("contract-a", ""))
		require.NoError(t, err)
		assert.Equal(t, "2", v2)

		versions, err := store.Versions(ctx, "contract-a")
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, versions)
	})

	t.Run("LoadLatestAndExplicit", func(t *testing.T) {
		loaded, err := store.Load(ctx, "contract-a", "")
		require.NoError(t, err)
		assert.Equal(t, "2", loaded.Metadata.Version)

		loaded, err = store.Load(ctx, "contract-a", "1")
		require.NoError(t, err)
		assert.Equal(t, "1", loaded.Metadata.Version)
		assert.Equal(t, "root", loaded.Root.ID)
	})

	t.Run("VersionsAreImmutable", func(t *testing.T) {
		_, err := store.Save(ctx, newDef("contract-a", "1"))
		assert.ErrorIs(t, err, domain.ErrVersionExists)
	})

	t.Run("LoadedCopiesAreIsolated", func(t *testing.T) {
		first, err := store.Load(ctx, "contract-a", "1")
		require.NoError(t, err)
		first.Root.Params["status"] = "FAILURE"

		second, err := store.Load(ctx, "contract-a", "1")
		require.NoError(t, err)
		assert.Equal(t, "SUCCESS", second.Root.Params["status"])
	})

	t.Run("UnknownTreeAndVersion", func(t *testing.T) {
		_, err := store.Load(ctx, "contract-missing", "")
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)

		_, err = store.Load(ctx, "contract-a", "99")
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)

		_, err = store.Versions(ctx, "contract-missing")
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)
	})

	t.Run("ListAndFilter", func(t *testing.T) {
		other := newDef("other-b", "")
		other.Metadata.Tags = []string{"patrol"}
		_, err := store.Save(ctx, other)
		require.NoError(t, err)

		all, err := store.List(ctx, TreeFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "contract-a", all[0].ID)
		assert.Equal(t, "2", all[0].LatestVersion)
		assert.Equal(t, 2, all[0].VersionCount)
		assert.Equal(t, "other-b", all[1].ID)

		byPrefix, err := store.List(ctx, TreeFilter{IDPrefix: "contract-"})
		require.NoError(t, err)
		require.Len(t, byPrefix, 1)
		assert.Equal(t, "contract-a", byPrefix[0].ID)

		byTag, err := store.List(ctx, TreeFilter{Tag: "patrol"})
		require.NoError(t, err)
		require.Len(t, byTag, 1)
		assert.Equal(t, "other-b", byTag[0].ID)
	})
}
