// Package facets loads and caches the search facet catalog: the entity and
// topic lists that feed the dashboard's dropdowns. The upstream extraction
// pipelines refresh these tables rarely, so the catalog is cached in
// process with a TTL instead of being re-queried on every page render.
package facets

import (
	"context"
	"fmt"
	"sync"
	"time"

	db "github.com/benjlis/covid19-search/internal/storage"
)

// Source is the storage surface the cache loads from.
type Source interface {
	ListEntities(ctx context.Context, types ...string) ([]string, error)
	ListTopics(ctx context.Context) ([]db.Topic, error)
}

// Catalog holds the facet lists for the search form.
type Catalog struct {
	Persons   []string
	Orgs      []string
	Locations []string
	Topics    []db.Topic
}

// TopicLabels returns just the labels, for the topic dropdown.
func (c *Catalog) TopicLabels() []string {
	labels := make([]string, len(c.Topics))
	for i, t := range c.Topics {
		labels[i] = t.Label
	}

	return labels
}

// Cache is a single-entry TTL cache over the facet catalog. Loads are
// serialized under the mutex so an expired entry is refreshed once, not
// once per concurrent request.
type Cache struct {
	source Source
	ttl    time.Duration

	mu       sync.Mutex
	catalog  *Catalog
	loadedAt time.Time

	now func() time.Time
}

// NewCache creates a facet cache with the given TTL.
func NewCache(source Source, ttl time.Duration) *Cache {
	return &Cache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached catalog, reloading it when the TTL has lapsed.
func (c *Cache) Get(ctx context.Context) (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.catalog, nil
	}

	catalog, err := c.load(ctx)
	if err != nil {
		// Serve the stale catalog rather than an empty form when the
		// database hiccups and we still have one.
		if c.catalog != nil {
			return c.catalog, nil
		}

		return nil, err
	}

	c.catalog = catalog
	c.loadedAt = c.now()

	return catalog, nil
}

// Invalidate drops the cached catalog so the next Get reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = nil
}

func (c *Cache) load(ctx context.Context) (*Catalog, error) {
	persons, err := c.source.ListEntities(ctx, db.EntityTypePerson)
	if err != nil {
		return nil, fmt.Errorf("load person facet: %w", err)
	}

	orgs, err := c.source.ListEntities(ctx, db.EntityTypeOrg)
	if err != nil {
		return nil, fmt.Errorf("load org facet: %w", err)
	}

	locations, err := c.source.ListEntities(ctx, db.LocationEntityTypes...)
	if err != nil {
		return nil, fmt.Errorf("load location facet: %w", err)
	}

	topics, err := c.source.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load topic facet: %w", err)
	}

	return &Catalog{
		Persons:   persons,
		Orgs:      orgs,
		Locations: locations,
		Topics:    topics,
	}, nil
}
