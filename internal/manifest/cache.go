package manifest

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc retrieves the manifest from its source of truth.
type FetchFunc func(ctx context.Context) (*Manifest, error)

// Cache is the shared configuration slot. The bootstrapper and the import
// map initializer hold the same instance so concurrent callers observe a
// single manifest fetch per session: a resolved value is returned
// immediately, an in-flight fetch is joined, and only the first caller
// performs the request.
type Cache struct {
	mu    sync.RWMutex
	value *Manifest
	group singleflight.Group
}

// NewCache creates an empty configuration cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached manifest, if resolved.
func (c *Cache) Get() (*Manifest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.value != nil
}

// Set stores a resolved manifest. Used when a collaborator obtained the
// manifest out of band and publishes it for the rest of the session.
func (c *Cache) Set(m *Manifest) {
	c.mu.Lock()
	c.value = m
	c.mu.Unlock()
}

// GetOrFetch returns the cached manifest, joining an in-flight fetch when
// one exists and starting one otherwise. The in-flight call is registered
// before any suspension point, so N concurrent callers produce exactly one
// request. Failed fetches are not cached; a later call may retry.
func (c *Cache) GetOrFetch(ctx context.Context, fetch FetchFunc) (*Manifest, error) {
	if m, ok := c.Get(); ok {
		return m, nil
	}

	v, err, _ := c.group.Do("manifest", func() (interface{}, error) {
		if m, ok := c.Get(); ok {
			return m, nil
		}
		m, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Manifest), nil
}
