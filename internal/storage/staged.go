package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/model"
)

// Staged buffers pool writes over a PoolStore until Commit.
type Staged struct {
	base    PoolStore
	created map[common.Hash]model.Pool
	updated map[common.Hash]model.Pool
	order   []common.Hash
}

func NewStaged(base PoolStore) *Staged {
	return &Staged{
		base:    base,
		created: make(map[common.Hash]model.Pool),
		updated: make(map[common.Hash]model.Pool),
	}
}

func (s *Staged) Get(ctx context.Context, id common.Hash) (model.Pool, error) {
	if pool, ok := s.updated[id]; ok {
		return pool, nil
	}
	if pool, ok := s.created[id]; ok {
		return pool, nil
	}
	return s.base.Get(ctx, id)
}

func (s *Staged) Create(ctx context.Context, pool model.Pool) error {
	if _, ok := s.created[pool.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPoolExists, pool.ID.Hex())
	}
	_, err := s.base.Get(ctx, pool.ID)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrPoolExists, pool.ID.Hex())
	}
	if !errors.Is(err, ErrPoolNotFound) {
		return err
	}
	s.created[pool.ID] = pool
	s.order = append(s.order, pool.ID)
	return nil
}

func (s *Staged) Update(ctx context.Context, pool model.Pool) error {
	if _, ok := s.created[pool.ID]; ok {
		s.created[pool.ID] = pool
		return nil
	}
	if _, err := s.base.Get(ctx, pool.ID); err != nil {
		return err
	}
	if _, ok := s.updated[pool.ID]; !ok {
		s.order = append(s.order, pool.ID)
	}
	s.updated[pool.ID] = pool
	return nil
}

// Dirty reports whether any write is buffered.
func (s *Staged) Dirty() bool {
	return len(s.order) > 0
}

// Commit writes buffered pools to the base store in staging order.
func (s *Staged) Commit(ctx context.Context) error {
	for _, id := range s.order {
		if pool, ok := s.created[id]; ok {
			if err := s.base.Create(ctx, pool); err != nil {
				return err
			}
			continue
		}
		if err := s.base.Update(ctx, s.updated[id]); err != nil {
			return err
		}
	}
	s.order = nil
	return nil
}
