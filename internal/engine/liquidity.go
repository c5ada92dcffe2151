package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/amm"
	"ammEngine/internal/host"
	"ammEngine/internal/ledger"
	"ammEngine/internal/model"
)

// AddLiquidityRequest deposits AmountA and AmountB from the caller's UserA and
// UserB accounts and mints shares into UserShares.
type AddLiquidityRequest struct {
	Caller     common.Hash
	Pool       common.Hash
	ReserveA   common.Hash
	ReserveB   common.Hash
	ShareAsset common.Hash
	UserA      common.Hash
	UserB      common.Hash
	UserShares common.Hash
	AmountA    uint64
	AmountB    uint64
}

func (r AddLiquidityRequest) keys() []common.Hash {
	return []common.Hash{r.Pool, r.ReserveA, r.ReserveB, r.UserA, r.UserB, r.UserShares}
}

// RemoveLiquidityRequest redeems the caller's whole share balance.
type RemoveLiquidityRequest struct {
	Caller     common.Hash
	Pool       common.Hash
	ReserveA   common.Hash
	ReserveB   common.Hash
	ShareAsset common.Hash
	UserA      common.Hash
	UserB      common.Hash
	UserShares common.Hash
}

func (r RemoveLiquidityRequest) keys() []common.Hash {
	return []common.Hash{r.Pool, r.ReserveA, r.ReserveB, r.UserA, r.UserB, r.UserShares}
}

// LiquidityResult is the outcome of a deposit or redemption.
type LiquidityResult struct {
	Pool    common.Hash
	AmountA uint64
	AmountB uint64
	Shares  uint64
	After   model.ReserveSnapshot
}

// AddLiquidity moves both deposit legs into the reserves and mints shares
// under the pool authority. Every check runs before the first ledger call.
func (e *Engine) AddLiquidity(ctx context.Context, req AddLiquidityRequest) (LiquidityResult, error) {
	if req.AmountA == 0 || req.AmountB == 0 {
		return LiquidityResult{}, fmt.Errorf("%w: deposit %d:%d", ErrZeroAmount, req.AmountA, req.AmountB)
	}

	var result LiquidityResult
	err := e.run(ctx, model.OpAddLiquidity, req.keys(), func(ctx context.Context, uow *host.UnitOfWork) error {
		pool, err := loadOperational(ctx, uow.Pools, req.Pool)
		if err != nil {
			return err
		}
		if err := checkReserves(pool, req.ReserveA, req.ReserveB); err != nil {
			return err
		}
		if _, err := checkShareAccount(ctx, uow.Ledger, pool, req.ShareAsset, req.UserShares); err != nil {
			return err
		}

		before, err := snapshot(ctx, uow.Ledger, pool)
		if err != nil {
			return err
		}
		if err := amm.CheckDepositRatio(req.AmountA, req.AmountB, before.ReserveA, before.ReserveB, before.ShareSupply); err != nil {
			return err
		}
		share, err := uow.Ledger.Asset(ctx, pool.ShareAsset)
		if err != nil {
			return err
		}
		shares, err := amm.SharesForDeposit(req.AmountA, req.AmountB, before.ReserveA, before.ReserveB, before.ShareSupply, share.Decimals)
		if err != nil {
			return err
		}
		if shares == 0 {
			return fmt.Errorf("%w: deposit %d:%d", ErrNoSharesMinted, req.AmountA, req.AmountB)
		}

		caller := ledger.CallerSigner(req.Caller)
		if err := uow.Ledger.Transfer(ctx, pool.AssetA, req.UserA, pool.ReserveA, req.AmountA, caller); err != nil {
			return fmt.Errorf("deposit asset a: %w", err)
		}
		if err := uow.Ledger.Transfer(ctx, pool.AssetB, req.UserB, pool.ReserveB, req.AmountB, caller); err != nil {
			return fmt.Errorf("deposit asset b: %w", err)
		}
		if err := uow.Ledger.Mint(ctx, pool.ShareAsset, req.UserShares, shares, e.poolSigner(pool)); err != nil {
			return fmt.Errorf("mint shares: %w", err)
		}

		after, err := snapshot(ctx, uow.Ledger, pool)
		if err != nil {
			return err
		}
		result = LiquidityResult{Pool: pool.ID, AmountA: req.AmountA, AmountB: req.AmountB, Shares: shares, After: after}
		return nil
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	e.metrics.sharesMoved.WithLabelValues("minted").Add(float64(result.Shares))
	return result, nil
}

// RemoveLiquidity burns the caller's entire share balance and pays out the
// pro-rata reserves, rounded down, under the pool authority.
func (e *Engine) RemoveLiquidity(ctx context.Context, req RemoveLiquidityRequest) (LiquidityResult, error) {
	var result LiquidityResult
	err := e.run(ctx, model.OpRemoveLiquidity, req.keys(), func(ctx context.Context, uow *host.UnitOfWork) error {
		pool, err := loadOperational(ctx, uow.Pools, req.Pool)
		if err != nil {
			return err
		}
		if err := checkReserves(pool, req.ReserveA, req.ReserveB); err != nil {
			return err
		}
		holding, err := checkShareAccount(ctx, uow.Ledger, pool, req.ShareAsset, req.UserShares)
		if err != nil {
			return err
		}
		if holding.Balance == 0 {
			return fmt.Errorf("%w: account %s", ErrNoLiquidityPoolTokens, req.UserShares.Hex())
		}

		before, err := snapshot(ctx, uow.Ledger, pool)
		if err != nil {
			return err
		}
		burned := holding.Balance
		owedA, err := amm.Entitlement(before.ReserveA, burned, before.ShareSupply)
		if err != nil {
			return err
		}
		owedB, err := amm.Entitlement(before.ReserveB, burned, before.ShareSupply)
		if err != nil {
			return err
		}

		if err := uow.Ledger.Burn(ctx, pool.ShareAsset, req.UserShares, burned, ledger.CallerSigner(req.Caller)); err != nil {
			return fmt.Errorf("burn shares: %w", err)
		}
		signer := e.poolSigner(pool)
		if err := uow.Ledger.Transfer(ctx, pool.AssetA, pool.ReserveA, req.UserA, owedA, signer); err != nil {
			return fmt.Errorf("withdraw asset a: %w", err)
		}
		if err := uow.Ledger.Transfer(ctx, pool.AssetB, pool.ReserveB, req.UserB, owedB, signer); err != nil {
			return fmt.Errorf("withdraw asset b: %w", err)
		}

		after, err := snapshot(ctx, uow.Ledger, pool)
		if err != nil {
			return err
		}
		result = LiquidityResult{Pool: pool.ID, AmountA: owedA, AmountB: owedB, Shares: burned, After: after}
		return nil
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	e.metrics.sharesMoved.WithLabelValues("burned").Add(float64(result.Shares))
	return result, nil
}
