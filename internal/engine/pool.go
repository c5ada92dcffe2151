package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/authority"
	"ammEngine/internal/host"
	"ammEngine/internal/model"
	"ammEngine/internal/storage"
)

type InitializePoolRequest struct {
	AssetA     common.Hash
	AssetB     common.Hash
	ShareAsset common.Hash
}

// InitializePool creates the record for an unordered asset pair. The record
// key is the pair's derived pool authority, so a second pool for the same
// pair collides and is rejected.
func (e *Engine) InitializePool(ctx context.Context, req InitializePoolRequest) (model.Pool, error) {
	if req.AssetA == req.AssetB {
		return model.Pool{}, fmt.Errorf("%w: %s", ErrSameAsset, req.AssetA.Hex())
	}
	if req.ShareAsset == req.AssetA || req.ShareAsset == req.AssetB {
		return model.Pool{}, fmt.Errorf("%w: share asset %s is a pool asset", ErrSameAsset, req.ShareAsset.Hex())
	}
	auth, err := authority.PoolAuthority(e.programID, req.AssetA, req.AssetB)
	if err != nil {
		return model.Pool{}, fmt.Errorf("derive pool authority: %w", err)
	}

	pool := model.Pool{
		ID:         auth.Address,
		Nonce:      auth.Nonce,
		AssetA:     req.AssetA,
		AssetB:     req.AssetB,
		ShareAsset: req.ShareAsset,
		State:      model.PoolBaseInitialized,
	}
	err = e.run(ctx, model.OpInitializePool, []common.Hash{pool.ID}, func(ctx context.Context, uow *host.UnitOfWork) error {
		for _, id := range []common.Hash{req.AssetA, req.AssetB} {
			if _, err := uow.Ledger.Asset(ctx, id); err != nil {
				return err
			}
		}
		share, err := uow.Ledger.Asset(ctx, req.ShareAsset)
		if err != nil {
			return err
		}
		if share.MintAuthority != pool.ID {
			return fmt.Errorf("%w: %s mints as %s", ErrShareAuthority, share.ID.Hex(), share.MintAuthority.Hex())
		}

		if err := uow.Pools.Create(ctx, pool); err != nil {
			if errors.Is(err, storage.ErrPoolExists) {
				return fmt.Errorf("%w: %s", ErrPoolExists, pool.ID.Hex())
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Pool{}, err
	}
	return pool, nil
}

type InitializePoolReservesRequest struct {
	Pool common.Hash
	// Zero reserve ids default to the pool's derived reserve accounts.
	ReserveA common.Hash
	ReserveB common.Hash
}

// InitializePoolReserves binds the two reserve accounts to a base-initialized
// pool and makes it operational.
func (e *Engine) InitializePoolReserves(ctx context.Context, req InitializePoolReservesRequest) (model.Pool, error) {
	var pool model.Pool
	err := e.run(ctx, model.OpInitializePoolReserves, []common.Hash{req.Pool}, func(ctx context.Context, uow *host.UnitOfWork) error {
		var err error
		pool, err = loadPool(ctx, uow.Pools, req.Pool)
		if err != nil {
			return err
		}
		if pool.State != model.PoolBaseInitialized {
			return fmt.Errorf("%w: pool %s is %s", ErrInvalidPoolState, pool.ID.Hex(), pool.State)
		}

		reserveA, err := e.reserveID(req.ReserveA, pool.AssetA, pool.ID)
		if err != nil {
			return err
		}
		reserveB, err := e.reserveID(req.ReserveB, pool.AssetB, pool.ID)
		if err != nil {
			return err
		}
		if reserveA == reserveB {
			return fmt.Errorf("%w: both reserves are %s", ErrReserveAssetMismatch, reserveA.Hex())
		}

		for _, r := range []struct{ id, asset common.Hash }{{reserveA, pool.AssetA}, {reserveB, pool.AssetB}} {
			acct, err := uow.Ledger.Account(ctx, r.id)
			if err != nil {
				return err
			}
			if acct.Asset != r.asset {
				return fmt.Errorf("%w: %s holds %s", ErrReserveAssetMismatch, r.id.Hex(), acct.Asset.Hex())
			}
			if acct.Owner != pool.ID {
				return fmt.Errorf("%w: %s owned by %s", ErrReserveAuthorityMismatch, r.id.Hex(), acct.Owner.Hex())
			}
		}

		pool.ReserveA = reserveA
		pool.ReserveB = reserveB
		pool.State = model.PoolReservesInitialized
		return uow.Pools.Update(ctx, pool)
	})
	if err != nil {
		return model.Pool{}, err
	}
	return pool, nil
}

func (e *Engine) reserveID(given, asset, pool common.Hash) (common.Hash, error) {
	if given != (common.Hash{}) {
		return given, nil
	}
	auth, err := authority.ReserveAuthority(e.programID, asset, pool)
	if err != nil {
		return common.Hash{}, fmt.Errorf("derive reserve: %w", err)
	}
	return auth.Address, nil
}

// Pool returns the pool record for id.
func (e *Engine) Pool(ctx context.Context, id common.Hash) (model.Pool, error) {
	var pool model.Pool
	err := e.host.Execute(ctx, []common.Hash{id}, func(ctx context.Context, uow *host.UnitOfWork) error {
		var err error
		pool, err = loadPool(ctx, uow.Pools, id)
		return err
	})
	return pool, err
}

// PoolForPair returns the pool record of an unordered asset pair.
func (e *Engine) PoolForPair(ctx context.Context, assetA, assetB common.Hash) (model.Pool, error) {
	auth, err := authority.PoolAuthority(e.programID, assetA, assetB)
	if err != nil {
		return model.Pool{}, fmt.Errorf("derive pool authority: %w", err)
	}
	return e.Pool(ctx, auth.Address)
}

// Reserves returns the live reserve balances and share supply of a pool.
func (e *Engine) Reserves(ctx context.Context, id common.Hash) (model.ReserveSnapshot, error) {
	var snap model.ReserveSnapshot
	err := e.host.Execute(ctx, []common.Hash{id}, func(ctx context.Context, uow *host.UnitOfWork) error {
		pool, err := loadPool(ctx, uow.Pools, id)
		if err != nil {
			return err
		}
		snap, err = snapshot(ctx, uow.Ledger, pool)
		return err
	})
	return snap, err
}
