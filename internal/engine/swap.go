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

// SwapRequest trades AmountIn from UserIn for the opposite asset paid into
// UserOut. MinAmountOut of zero disables the slippage bound.
type SwapRequest struct {
	Caller       common.Hash
	Pool         common.Hash
	ReserveA     common.Hash
	ReserveB     common.Hash
	UserIn       common.Hash
	UserOut      common.Hash
	Direction    model.Direction
	AmountIn     uint64
	MinAmountOut uint64
}

// SwapResult is a committed swap.
type SwapResult struct {
	Pool      common.Hash
	Direction model.Direction
	Quote     amm.Quote
	After     model.ReserveSnapshot
}

// Swap prices AmountIn on the constant-product curve with the fixed fee, then
// moves the input into the pool and the output out under the pool authority.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (SwapResult, error) {
	if req.AmountIn == 0 {
		return SwapResult{}, fmt.Errorf("%w: swap input", ErrZeroAmount)
	}

	var result SwapResult
	keys := []common.Hash{req.Pool, req.ReserveA, req.ReserveB, req.UserIn, req.UserOut}
	err := e.run(ctx, model.OpSwap, keys, func(ctx context.Context, uow *host.UnitOfWork) error {
		pool, err := loadOperational(ctx, uow.Pools, req.Pool)
		if err != nil {
			return err
		}
		if err := checkReserves(pool, req.ReserveA, req.ReserveB); err != nil {
			return err
		}

		before, err := snapshot(ctx, uow.Ledger, pool)
		if err != nil {
			return err
		}
		inBal, outBal := before.ReserveA, before.ReserveB
		if req.Direction == model.BToA {
			inBal, outBal = outBal, inBal
		}
		quote, err := amm.AmountOut(req.AmountIn, inBal, outBal)
		if err != nil {
			return err
		}
		if quote.AmountOut == 0 {
			return fmt.Errorf("%w: %d in against %d/%d", ErrZeroSwapOutput, req.AmountIn, inBal, outBal)
		}
		if quote.AmountOut < req.MinAmountOut {
			return fmt.Errorf("%w: %d < %d", ErrSlippageExceeded, quote.AmountOut, req.MinAmountOut)
		}

		assetIn, assetOut := pool.Assets(req.Direction)
		reserveIn, reserveOut := pool.Reserves(req.Direction)
		if err := uow.Ledger.Transfer(ctx, assetIn, req.UserIn, reserveIn, req.AmountIn, ledger.CallerSigner(req.Caller)); err != nil {
			return fmt.Errorf("swap input: %w", err)
		}
		if err := uow.Ledger.Transfer(ctx, assetOut, reserveOut, req.UserOut, quote.AmountOut, e.poolSigner(pool)); err != nil {
			return fmt.Errorf("swap output: %w", err)
		}

		after, err := snapshot(ctx, uow.Ledger, pool)
		if err != nil {
			return err
		}
		result = SwapResult{Pool: pool.ID, Direction: req.Direction, Quote: quote, After: after}
		return nil
	})
	if err != nil {
		return SwapResult{}, err
	}
	e.metrics.swapVolume.WithLabelValues(req.Direction.String()).Add(float64(req.AmountIn))
	return result, nil
}
