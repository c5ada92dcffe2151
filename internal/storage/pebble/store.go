package pebble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ugorji/go/codec"

	"ammEngine/internal/model"
	"ammEngine/internal/storage"
)

var ErrDBClosed = errors.New("database is closed")

var poolPrefix = []byte("pool/")

// Store keeps msgpack encoded pool records in a pebble database.
type Store struct {
	db *pebble.DB
	mh codec.MsgpackHandle

	// serializes Create's existence check with the write
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("pebble path is required")
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func poolKey(id common.Hash) []byte {
	key := make([]byte, 0, len(poolPrefix)+common.HashLength)
	key = append(key, poolPrefix...)
	return append(key, id.Bytes()...)
}

func (s *Store) Get(ctx context.Context, id common.Hash) (model.Pool, error) {
	if s.db == nil {
		return model.Pool{}, ErrDBClosed
	}

	val, closer, err := s.db.Get(poolKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return model.Pool{}, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, id.Hex())
		}
		return model.Pool{}, err
	}
	defer closer.Close()

	var pool model.Pool
	if err := codec.NewDecoderBytes(val, &s.mh).Decode(&pool); err != nil {
		return model.Pool{}, fmt.Errorf("decode pool %s: %w", id.Hex(), err)
	}
	return pool, nil
}

func (s *Store) Create(ctx context.Context, pool model.Pool) error {
	if s.db == nil {
		return ErrDBClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, closer, err := s.db.Get(poolKey(pool.ID))
	if err == nil {
		closer.Close()
		return fmt.Errorf("%w: %s", storage.ErrPoolExists, pool.ID.Hex())
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}
	return s.put(pool)
}

func (s *Store) Update(ctx context.Context, pool model.Pool) error {
	if s.db == nil {
		return ErrDBClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, closer, err := s.db.Get(poolKey(pool.ID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrPoolNotFound, pool.ID.Hex())
		}
		return err
	}
	closer.Close()
	return s.put(pool)
}

// PutPools writes pools in a single batch, overwriting existing records.
func (s *Store) PutPools(ctx context.Context, pools []model.Pool) error {
	if s.db == nil {
		return ErrDBClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, pool := range pools {
		val, err := s.encode(pool)
		if err != nil {
			return err
		}
		if err := batch.Set(poolKey(pool.ID), val, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// Pools returns every stored pool in key order.
func (s *Store) Pools(ctx context.Context) ([]model.Pool, error) {
	if s.db == nil {
		return nil, ErrDBClosed
	}
	upper := append([]byte(nil), poolPrefix...)
	upper[len(upper)-1]++

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: poolPrefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var pools []model.Pool
	for iter.First(); iter.Valid(); iter.Next() {
		var pool model.Pool
		if err := codec.NewDecoderBytes(iter.Value(), &s.mh).Decode(&pool); err != nil {
			return nil, fmt.Errorf("decode pool: %w", err)
		}
		pools = append(pools, pool)
	}
	return pools, iter.Error()
}

func (s *Store) put(pool model.Pool) error {
	val, err := s.encode(pool)
	if err != nil {
		return err
	}
	return s.db.Set(poolKey(pool.ID), val, pebble.Sync)
}

func (s *Store) encode(pool model.Pool) ([]byte, error) {
	var val []byte
	if err := codec.NewEncoderBytes(&val, &s.mh).Encode(pool); err != nil {
		return nil, fmt.Errorf("encode pool %s: %w", pool.ID.Hex(), err)
	}
	return val, nil
}
