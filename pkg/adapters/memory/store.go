// Package memory provides in-process adapters, useful for tests and
// single-binary deployments.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Store implements ports.TreeStore in memory.
// Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	trees map[string]*entry
}

type entry struct {
	// versions in save order; defs keyed by version.
	versions []string
	defs     map[string]*domain.TreeDefinition
}

// NewStore creates a new in-memory tree store.
func NewStore() *Store {
	return &Store{trees: make(map[string]*entry)}
}

// Save stores a deep copy of the definition so later mutations by the
// caller cannot leak in.
func (s *Store) Save(ctx context.Context, def *domain.TreeDefinition) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.trees[def.ID]
	if !ok {
		e = &entry{defs: make(map[string]*domain.TreeDefinition)}
		s.trees[def.ID] = e
	}

	version := def.Metadata.Version
	if version == "" {
		version = nextVersion(e.versions)
	} else if _, exists := e.defs[version]; exists {
		return "", domain.ErrVersionExists
	}

	stored := def.Clone()
	stored.Metadata.Version = version
	e.defs[version] = stored
	e.versions = append(e.versions, version)
	return version, nil
}

// Load returns a deep copy; version "" resolves to the latest save.
func (s *Store) Load(ctx context.Context, id, version string) (*domain.TreeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.trees[id]
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	if version == "" {
		version = e.versions[len(e.versions)-1]
	}
	def, ok := e.defs[version]
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	return def.Clone(), nil
}

// Versions returns the saved versions in order.
func (s *Store) Versions(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.trees[id]
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	return append([]string(nil), e.versions...), nil
}

// List summarizes stored trees, filtered and sorted by id.
func (s *Store) List(ctx context.Context, filter ports.TreeFilter) ([]ports.TreeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.TreeSummary, 0, len(s.trees))
	for id, e := range s.trees {
		latest := e.defs[e.versions[len(e.versions)-1]]
		sum := ports.TreeSummary{
			ID:            id,
			Name:          latest.Metadata.Name,
			Description:   latest.Metadata.Description,
			Tags:          append([]string(nil), latest.Metadata.Tags...),
			LatestVersion: latest.Metadata.Version,
			VersionCount:  len(e.versions),
		}
		if matches(filter, sum) {
			out = append(out, sum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matches(f ports.TreeFilter, sum ports.TreeSummary) bool {
	if f.IDPrefix != "" && !strings.HasPrefix(sum.ID, f.IDPrefix) {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, tag := range sum.Tags {
			if tag == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// nextVersion assigns one past the highest numeric version seen, so
// explicit non-numeric versions never collide with assigned ones.
func nextVersion(versions []string) string {
	max := 0
	for _, v := range versions {
		if n, err := strconv.Atoi(v); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
