package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/model"
)

var (
	ErrPoolNotFound = errors.New("pool not found")
	ErrPoolExists   = errors.New("pool already exists")
)

// PoolStore persists pool records keyed by their derived id. Create enforces
// at most one record per key.
type PoolStore interface {
	Get(ctx context.Context, id common.Hash) (model.Pool, error)
	Create(ctx context.Context, pool model.Pool) error
	Update(ctx context.Context, pool model.Pool) error
}

// Journal is a sink for operation records.
type Journal interface {
	PutRecords(ctx context.Context, records []model.OperationRecord) error
}
