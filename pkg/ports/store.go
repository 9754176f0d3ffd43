package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// TreeFilter narrows a List call. Zero value matches everything.
type TreeFilter struct {
	// IDPrefix keeps only trees whose id starts with the prefix.
	IDPrefix string
	// Tag keeps only trees carrying the tag in their latest version.
	Tag string
}

// TreeSummary describes one stored tree without its node payload.
type TreeSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	LatestVersion string   `json:"latest_version"`
	VersionCount  int      `json:"version_count"`
}

// TreeStore defines the interface for persisting versioned tree
// definitions. Versions are immutable: saving over an existing
// id+version pair is an error, and edits land as a new version.
type TreeStore interface {
	// Save persists a definition. When def.Metadata.Version is empty the
	// store assigns the next version ("1", "2", ...) and returns it;
	// when it is set, the pair must not exist yet or the store returns
	// domain.ErrVersionExists.
	Save(ctx context.Context, def *domain.TreeDefinition) (string, error)

	// Load retrieves a definition. Version "" means the latest saved
	// version. Returns domain.ErrTreeNotFound when the id, or the
	// requested version of it, does not exist.
	Load(ctx context.Context, id, version string) (*domain.TreeDefinition, error)

	// Versions returns the stored versions of a tree in save order.
	// Returns domain.ErrTreeNotFound for an unknown id.
	Versions(ctx context.Context, id string) ([]string, error)

	// List returns summaries of the trees matching the filter, sorted
	// by id.
	List(ctx context.Context, filter TreeFilter) ([]TreeSummary, error)
}
