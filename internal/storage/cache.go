package storage

import (
	"context"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"ammEngine/internal/model"
)

const defaultCacheSize = 1024

// Cached fronts a PoolStore with an LRU of recently read pools.
type Cached struct {
	store PoolStore
	cache *lru.Cache[common.Hash, model.Pool]

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewCached(store PoolStore, size int) (*Cached, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[common.Hash, model.Pool](size)
	if err != nil {
		return nil, err
	}
	return &Cached{store: store, cache: cache}, nil
}

func (c *Cached) Get(ctx context.Context, id common.Hash) (model.Pool, error) {
	if pool, ok := c.cache.Get(id); ok {
		c.hits.Add(1)
		return pool, nil
	}
	c.misses.Add(1)

	pool, err := c.store.Get(ctx, id)
	if err != nil {
		return model.Pool{}, err
	}
	c.cache.Add(id, pool)
	return pool, nil
}

func (c *Cached) Create(ctx context.Context, pool model.Pool) error {
	if err := c.store.Create(ctx, pool); err != nil {
		return err
	}
	c.cache.Add(pool.ID, pool)
	return nil
}

func (c *Cached) Update(ctx context.Context, pool model.Pool) error {
	c.cache.Remove(pool.ID)
	if err := c.store.Update(ctx, pool); err != nil {
		return err
	}
	c.cache.Add(pool.ID, pool)
	return nil
}

// Stats returns cache hit and miss counts.
func (c *Cached) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
