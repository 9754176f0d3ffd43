// Package redis persists tree definitions in Redis, one immutable JSON
// blob per version.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "canopy:"

// Store implements ports.TreeStore on a Redis backend.
//
// Key layout:
//
//	<prefix>index                    set of tree ids
//	<prefix>tree:<id>:versions       list of versions in save order
//	<prefix>tree:<id>:def:<version>  JSON document, written once (SETNX)
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures the store.
type Option func(*Store)

// WithPrefix overrides the default "canopy:" key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) indexKey() string               { return s.prefix + "index" }
func (s *Store) versionsKey(id string) string   { return s.prefix + "tree:" + id + ":versions" }
func (s *Store) defKey(id, version string) string { return s.prefix + "tree:" + id + ":def:" + version }

// Save writes the definition under its version. The SETNX on the
// definition key is what enforces immutability, also across processes.
func (s *Store) Save(ctx context.Context, def *domain.TreeDefinition) (string, error) {
	version := def.Metadata.Version
	explicit := version != ""
	if !explicit {
		versions, err := s.client.LRange(ctx, s.versionsKey(def.ID), 0, -1).Result()
		if err != nil {
			return "", fmt.Errorf("redis error listing versions: %w", err)
		}
		version = nextVersion(versions)
	}

	stored := def.Clone()
	stored.Metadata.Version = version
	payload, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encoding tree %s: %w", def.ID, err)
	}

	ok, err := s.client.SetNX(ctx, s.defKey(def.ID, version), payload, 0).Result()
	if err != nil {
		return "", fmt.Errorf("redis error saving tree: %w", err)
	}
	if !ok {
		if explicit {
			return "", domain.ErrVersionExists
		}
		// Another writer grabbed the assigned version; too unusual to
		// retry silently.
		return "", fmt.Errorf("version %s of tree %s: %w", version, def.ID, domain.ErrVersionExists)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.versionsKey(def.ID), version)
	pipe.SAdd(ctx, s.indexKey(), def.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis error indexing tree: %w", err)
	}
	return version, nil
}

// Load fetches one version; "" resolves to the latest.
func (s *Store) Load(ctx context.Context, id, version string) (*domain.TreeDefinition, error) {
	if version == "" {
		latest, err := s.client.LRange(ctx, s.versionsKey(id), -1, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error resolving latest version: %w", err)
		}
		if len(latest) == 0 {
			return nil, domain.ErrTreeNotFound
		}
		version = latest[0]
	}

	payload, err := s.client.Get(ctx, s.defKey(id, version)).Bytes()
	if err == backend.Nil {
		return nil, domain.ErrTreeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error loading tree: %w", err)
	}

	var def domain.TreeDefinition
	if err := json.Unmarshal(payload, &def); err != nil {
		return nil, fmt.Errorf("decoding tree %s@%s: %w", id, version, err)
	}
	return &def, nil
}

// Versions returns the version list in save order.
func (s *Store) Versions(ctx context.Context, id string) ([]string, error) {
	versions, err := s.client.LRange(ctx, s.versionsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, domain.ErrTreeNotFound
	}
	return versions, nil
}

// List walks the id index and summarizes each tree's latest version.
func (s *Store) List(ctx context.Context, filter ports.TreeFilter) ([]ports.TreeSummary, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing trees: %w", err)
	}

	out := make([]ports.TreeSummary, 0, len(ids))
	for _, id := range ids {
		versions, err := s.Versions(ctx, id)
		if err == domain.ErrTreeNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		latest, err := s.Load(ctx, id, versions[len(versions)-1])
		if err != nil {
			return nil, err
		}
		sum := ports.TreeSummary{
			ID:            id,
			Name:          latest.Metadata.Name,
			Description:   latest.Metadata.Description,
			Tags:          latest.Metadata.Tags,
			LatestVersion: latest.Metadata.Version,
			VersionCount:  len(versions),
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

func nextVersion(versions []string) string {
	max := 0
	for _, v := range versions {
		if n, err := strconv.Atoi(v); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
