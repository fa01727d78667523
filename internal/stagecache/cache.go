// Package stagecache memoizes pipeline stage names for the life of the process.
package stagecache

import (
	"context"
	"fmt"
	"sync"

	"callcard-relay/internal/model"
)

// Lister fetches the full stage list from the CRM.
type Lister interface {
	ListStages(ctx context.Context) ([]model.Stage, error)
}

// Cache maps stage ids to names. Entries are never evicted. A miss triggers a
// bulk refresh that stores every returned stage; concurrent misses may refresh
// more than once, which only rewrites identical entries.
type Cache struct {
	lister Lister

	mu    sync.RWMutex
	names map[int]string
}

// New creates an empty Cache backed by lister.
func New(lister Lister) *Cache {
	return &Cache{lister: lister, names: make(map[int]string)}
}

// Resolve returns the name of stage id. It returns "" without error when the
// stage is still unknown after a refresh.
func (c *Cache) Resolve(ctx context.Context, id int) (string, error) {
	if name, ok := c.lookup(id); ok {
		return name, nil
	}

	stages, err := c.lister.ListStages(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh stages: %w", err)
	}

	c.mu.Lock()
	for _, s := range stages {
		c.names[s.ID] = s.Name
	}
	name := c.names[id]
	c.mu.Unlock()

	return name, nil
}

// Len reports how many stages are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

func (c *Cache) lookup(id int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[id]
	return name, ok
}
