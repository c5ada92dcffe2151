package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/model"
)

// Memory keeps pool records in a map.
type Memory struct {
	mu    sync.RWMutex
	pools map[common.Hash]model.Pool
}

func NewMemory() *Memory {
	return &Memory{pools: make(map[common.Hash]model.Pool)}
}

func (m *Memory) Get(ctx context.Context, id common.Hash) (model.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool, ok := m.pools[id]
	if !ok {
		return model.Pool{}, fmt.Errorf("%w: %s", ErrPoolNotFound, id.Hex())
	}
	return pool, nil
}

func (m *Memory) Create(ctx context.Context, pool model.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[pool.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPoolExists, pool.ID.Hex())
	}
	m.pools[pool.ID] = pool
	return nil
}

func (m *Memory) Update(ctx context.Context, pool model.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[pool.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, pool.ID.Hex())
	}
	m.pools[pool.ID] = pool
	return nil
}
