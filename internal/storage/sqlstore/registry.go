package sqlstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/leengari/tablestore/internal/domain/schema"
)

type loadFunc func(ctx context.Context, name string) (*schema.PhysicalTable, error)

// handleRegistry caches physical table handles by name. Misses are filled by
// load, and concurrent misses for the same name share one load.
type handleRegistry struct {
	cache *lru.Cache[string, *schema.PhysicalTable]
	group singleflight.Group
	load  loadFunc
}

func newHandleRegistry(size int, load loadFunc) (*handleRegistry, error) {
	cache, err := lru.New[string, *schema.PhysicalTable](size)
	if err != nil {
		return nil, err
	}
	return &handleRegistry{cache: cache, load: load}, nil
}

// Get returns the cached handle or loads it.
func (r *handleRegistry) Get(ctx context.Context, name string) (*schema.PhysicalTable, error) {
	if p, ok := r.cache.Get(name); ok {
		return p, nil
	}
	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		if p, ok := r.cache.Get(name); ok {
			return p, nil
		}
		p, err := r.load(ctx, name)
		if err != nil {
			return nil, err
		}
		r.cache.Add(name, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.PhysicalTable), nil
}

func (r *handleRegistry) Contains(name string) bool {
	return r.cache.Contains(name)
}

func (r *handleRegistry) Put(p *schema.PhysicalTable) {
	r.cache.Add(p.Name, p)
}

func (r *handleRegistry) Forget(name string) {
	r.group.Forget(name)
	r.cache.Remove(name)
}

func (r *handleRegistry) Len() int {
	return r.cache.Len()
}
