package compiler

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafDef(id string) domain.TreeNodeDefinition {
	return domain.TreeNodeDefinition{
		ID:     id,
		Type:   node.TypeConstant,
		Params: map[string]any{"status": "SUCCESS"},
	}
}

func docWith(root domain.TreeNodeDefinition) *domain.TreeDefinition {
	return &domain.TreeDefinition{ID: "test-doc", Root: root}
}

// sampleFor builds a minimal valid definition exercising the given type.
func sampleFor(typeName string) domain.TreeNodeDefinition {
	child := []domain.TreeNodeDefinition{leafDef("leaf")}
	switch typeName {
	case node.TypeSequence, node.TypeSelector:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params:   map[string]any{"memory": true},
			Children: []domain.TreeNodeDefinition{leafDef("leaf-a"), leafDef("leaf-b")}}
	case node.TypeParallel:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params:   map[string]any{"policy": "success-on-selected", "threshold": 2},
			Children: []domain.TreeNodeDefinition{leafDef("leaf-a"), leafDef("leaf-b"), leafDef("leaf-c")}}
	case node.TypeRetry:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"num_attempts": 3}, Children: child}
	case node.TypeRepeat:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"num_success": 2}, Children: child}
	case node.TypeTimeout:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"duration": "150ms"}, Children: child}
	case node.TypeEternalGuard, node.TypeWaitCondition:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"condition": "battery > 20"}, Children: child}
	case node.TypeStatusToBlackboard, node.TypeBlackboardToStatus:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"key": "mirror"}, Children: child}
	case node.TypeInverter, node.TypeOneShot, node.TypeCount:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName, Children: child}
	case node.TypeConstant:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"status": "RUNNING"}}
	case node.TypeTickCounter:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"ticks": 4}}
	case node.TypeSuccessEveryN:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"period": 3}}
	case node.TypeProbabilistic:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"weights": map[string]any{"SUCCESS": 0.7, "FAILURE": 0.3}, "seed": 11}}
	case node.TypeBlackboardExists, node.TypeBlackboardUnset:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"key": "target"}}
	case node.TypeBlackboardSet:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"key": "target", "value": "pos-1"}}
	case node.TypeWaitForBlackboard:
		return domain.TreeNodeDefinition{ID: "n", Type: typeName,
			Params: map[string]any{"key": "battery", "op": ">=", "value": 50}}
	default:
		// Converter family and anything else taking one child, no params.
		return domain.TreeNodeDefinition{ID: "n", Type: typeName, Children: child}
	}
}

func TestRoundTrip_AllBuiltinTypes(t *testing.T) {
	reg := registry.Builtins()
	c := New(reg, nil)
	ctx := context.Background()

	var names []string
	for _, s := range reg.Schemas() {
		names = append(names, s.Name)
	}
	require.NotEmpty(t, names)

	for _, typeName := range names {
		t.Run(typeName, func(t *testing.T) {
			doc := docWith(sampleFor(typeName))

			first, err := c.Translate(ctx, doc)
			require.NoError(t, err)
			assert.Equal(t, "n", first.Root.ID())
			assert.Equal(t, typeName, first.Root.Type())

			extracted, warnings := c.Extract(first.Root)
			assert.Empty(t, warnings)
			assert.Equal(t, typeName, extracted.Type)

			// The law: a document that went through translate/extract
			// once is a fixed point of the pair.
			second, err := c.Translate(ctx, docWith(extracted))
			require.NoError(t, err)
			reExtracted, warnings := c.Extract(second.Root)
			assert.Empty(t, warnings)
			assert.Equal(t, extracted, reExtracted)
		})
	}
}

func TestTranslate_BuildsIndex(t *testing.T) {
	c := New(registry.Builtins(), nil)
	res, err := c.Translate(context.Background(), docWith(domain.TreeNodeDefinition{
		ID:   "root",
		Type: node.TypeSequence,
		Children: []domain.TreeNodeDefinition{
			leafDef("check"),
			{ID: "inv", Type: node.TypeInverter,
				Children: []domain.TreeNodeDefinition{leafDef("inner")}},
		},
	}))
	require.NoError(t, err)

	assert.Len(t, res.Index, 4)
	for _, id := range []string{"root", "check", "inv", "inner"} {
		assert.Contains(t, res.Index, id)
	}
	assert.Same(t, res.Root, res.Index["root"])
}

func TestTranslate_CollectsAllViolations(t *testing.T) {
	c := New(registry.Builtins(), nil)
	_, err := c.Translate(context.Background(), docWith(domain.TreeNodeDefinition{
		ID:   "root",
		Type: node.TypeSequence,
		Children: []domain.TreeNodeDefinition{
			{ID: "a", Type: "teleport"},
			{ID: "a", Type: node.TypeConstant, Params: map[string]any{"status": "SUCCESS"}},
			{ID: "b", Type: node.TypeRetry, Children: []domain.TreeNodeDefinition{leafDef("leaf")}},
			{ID: "c", Type: node.TypeInverter},
		},
	}))
	require.Error(t, err)

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Len(t, schemaErr.Violations, 4, "unknown type, duplicate id, missing param, missing child")
}

func TestTranslate_SubtreeExpansion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	c := New(registry.Builtins(), store)

	_, err := store.Save(ctx, &domain.TreeDefinition{
		ID: "greet",
		Root: domain.TreeNodeDefinition{
			ID:   "seq",
			Type: node.TypeSequence,
			Children: []domain.TreeNodeDefinition{
				leafDef("wave"), leafDef("speak"),
			},
		},
	})
	require.NoError(t, err)

	res, err := c.Translate(ctx, docWith(domain.TreeNodeDefinition{
		ID:   "root",
		Type: node.TypeSelector,
		Children: []domain.TreeNodeDefinition{
			{ID: "hello", Type: node.TypeSequence, // overridden by the subtree
				Subtree: &domain.SubtreeRef{TreeID: "greet"}},
			leafDef("fallback"),
		},
	}))
	require.NoError(t, err)

	// The referencing node keeps its own id; inlined descendants are
	// namespaced under it.
	assert.Contains(t, res.Index, "hello")
	assert.Contains(t, res.Index, "hello/wave")
	assert.Contains(t, res.Index, "hello/speak")
	assert.Equal(t, node.TypeSequence, res.Index["hello"].Type())
	assert.Len(t, res.Index, 5)
}

func TestTranslate_SubtreeCycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	c := New(registry.Builtins(), store)

	_, err := store.Save(ctx, &domain.TreeDefinition{
		ID: "a",
		Root: domain.TreeNodeDefinition{ID: "a-root", Type: node.TypeInverter,
			Children: []domain.TreeNodeDefinition{
				{ID: "to-b", Subtree: &domain.SubtreeRef{TreeID: "b"}},
			}},
	})
	require.NoError(t, err)
	_, err = store.Save(ctx, &domain.TreeDefinition{
		ID: "b",
		Root: domain.TreeNodeDefinition{ID: "b-root", Type: node.TypeInverter,
			Children: []domain.TreeNodeDefinition{
				{ID: "to-a", Subtree: &domain.SubtreeRef{TreeID: "a"}},
			}},
	})
	require.NoError(t, err)

	doc, err := store.Load(ctx, "a", "")
	require.NoError(t, err)
	_, err = c.Translate(ctx, doc)

	var refErr *domain.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "reference cycle", refErr.Reason)
}

func TestTranslate_SubtreeDepthLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	c := New(registry.Builtins(), store)

	last := MaxSubtreeDepth + 2
	for i := last; i >= 0; i-- {
		root := leafDef("leaf")
		if i < last {
			root = domain.TreeNodeDefinition{
				ID:      "ref",
				Subtree: &domain.SubtreeRef{TreeID: fmt.Sprintf("chain-%d", i+1)},
			}
		}
		_, err := store.Save(ctx, &domain.TreeDefinition{
			ID:   fmt.Sprintf("chain-%d", i),
			Root: root,
		})
		require.NoError(t, err)
	}

	doc, err := store.Load(ctx, "chain-0", "")
	require.NoError(t, err)
	_, err = c.Translate(ctx, doc)

	var refErr *domain.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Contains(t, refErr.Reason, "depth limit")
}

func TestTranslate_MissingReference(t *testing.T) {
	c := New(registry.Builtins(), memory.NewStore())
	_, err := c.Translate(context.Background(), docWith(domain.TreeNodeDefinition{
		ID:      "root",
		Subtree: &domain.SubtreeRef{TreeID: "nowhere", Version: "3"},
	}))

	var refErr *domain.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "nowhere", refErr.TreeID)
}
