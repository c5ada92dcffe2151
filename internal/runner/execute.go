package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/authority"
	"ammEngine/internal/engine"
	"ammEngine/internal/model"
)

// Admin bootstraps assets, accounts and balances for a script.
type Admin interface {
	CreateAsset(ctx context.Context, id common.Hash, decimals uint8, mintAuthority common.Hash) error
	CreateAccount(ctx context.Context, id, asset, owner common.Hash) error
	Fund(ctx context.Context, id common.Hash, amount uint64) error
}

func (r *Runner) execute(ctx context.Context, instr *model.Instruction) (outcome, error) {
	var p hashParser
	caller := p.optional("caller", instr.Caller)
	if p.err != nil {
		return outcome{}, p.err
	}

	switch instr.Op {
	case model.OpCreateAsset:
		return r.createAsset(ctx, instr)
	case model.OpCreateAccount:
		return r.createAccount(ctx, instr)
	case model.OpFund:
		id := p.hash("account", instr.Account)
		amount := p.amount("amount", instr.Amount)
		if p.err != nil {
			return outcome{}, p.err
		}
		return outcome{amountIn: amount}, r.admin.Fund(ctx, id, amount)

	case model.OpInitializePool:
		req := engine.InitializePoolRequest{
			AssetA:     p.hash("asset_a", instr.AssetA),
			AssetB:     p.hash("asset_b", instr.AssetB),
			ShareAsset: p.hash("share_asset", instr.ShareAsset),
		}
		if p.err != nil {
			return outcome{}, p.err
		}
		pool, err := r.engine.InitializePool(ctx, req)
		return outcome{pool: pool.ID, caller: caller}, err

	case model.OpInitializePoolReserves:
		poolID, err := r.poolID(instr)
		if err != nil {
			return outcome{}, err
		}
		req := engine.InitializePoolReservesRequest{
			Pool:     poolID,
			ReserveA: p.optional("reserve_a", instr.ReserveA),
			ReserveB: p.optional("reserve_b", instr.ReserveB),
		}
		if p.err != nil {
			return outcome{}, p.err
		}
		_, err = r.engine.InitializePoolReserves(ctx, req)
		return outcome{pool: poolID, caller: caller}, err

	case model.OpAddLiquidity:
		pool, err := r.pool(ctx, instr)
		if err != nil {
			return outcome{}, err
		}
		req := engine.AddLiquidityRequest{
			Caller:     caller,
			Pool:       pool.ID,
			ReserveA:   reserveOr(&p, "reserve_a", instr.ReserveA, pool.ReserveA),
			ReserveB:   reserveOr(&p, "reserve_b", instr.ReserveB, pool.ReserveB),
			ShareAsset: p.optional("share_asset", instr.ShareAsset),
			UserA:      p.hash("user_a", instr.UserA),
			UserB:      p.hash("user_b", instr.UserB),
			UserShares: p.hash("user_shares", instr.UserShares),
			AmountA:    p.amount("amount_a", instr.AmountA),
			AmountB:    p.amount("amount_b", instr.AmountB),
		}
		if p.err != nil {
			return outcome{pool: pool.ID, caller: caller}, p.err
		}
		res, err := r.engine.AddLiquidity(ctx, req)
		if err != nil {
			return outcome{pool: pool.ID, caller: caller}, err
		}
		return liquidityOutcome(caller, res, true), nil

	case model.OpRemoveLiquidity:
		pool, err := r.pool(ctx, instr)
		if err != nil {
			return outcome{}, err
		}
		req := engine.RemoveLiquidityRequest{
			Caller:     caller,
			Pool:       pool.ID,
			ReserveA:   reserveOr(&p, "reserve_a", instr.ReserveA, pool.ReserveA),
			ReserveB:   reserveOr(&p, "reserve_b", instr.ReserveB, pool.ReserveB),
			ShareAsset: p.optional("share_asset", instr.ShareAsset),
			UserA:      p.hash("user_a", instr.UserA),
			UserB:      p.hash("user_b", instr.UserB),
			UserShares: p.hash("user_shares", instr.UserShares),
		}
		if p.err != nil {
			return outcome{pool: pool.ID, caller: caller}, p.err
		}
		res, err := r.engine.RemoveLiquidity(ctx, req)
		if err != nil {
			return outcome{pool: pool.ID, caller: caller}, err
		}
		return liquidityOutcome(caller, res, false), nil

	case model.OpSwap:
		pool, err := r.pool(ctx, instr)
		if err != nil {
			return outcome{}, err
		}
		dir, err := model.ParseDirection(instr.Direction)
		if err != nil {
			return outcome{pool: pool.ID, caller: caller}, err
		}
		req := engine.SwapRequest{
			Caller:       caller,
			Pool:         pool.ID,
			ReserveA:     reserveOr(&p, "reserve_a", instr.ReserveA, pool.ReserveA),
			ReserveB:     reserveOr(&p, "reserve_b", instr.ReserveB, pool.ReserveB),
			UserIn:       p.hash("user_in", instr.UserIn),
			UserOut:      p.hash("user_out", instr.UserOut),
			Direction:    dir,
			AmountIn:     p.amount("amount_in", instr.AmountIn),
			MinAmountOut: p.amount("min_out", instr.MinOut),
		}
		if p.err != nil {
			return outcome{pool: pool.ID, caller: caller}, p.err
		}
		res, err := r.engine.Swap(ctx, req)
		if err != nil {
			return outcome{pool: pool.ID, caller: caller, direction: dir.String()}, err
		}
		return swapOutcome(caller, res), nil

	default:
		return outcome{}, fmt.Errorf("unknown op %q", instr.Op)
	}
}

func (r *Runner) createAsset(ctx context.Context, instr *model.Instruction) (outcome, error) {
	var p hashParser
	id := p.hash("asset", instr.Asset)
	if p.err != nil {
		return outcome{}, p.err
	}
	owner, err := r.owner(instr)
	if err != nil {
		return outcome{}, err
	}
	return outcome{}, r.admin.CreateAsset(ctx, id, instr.Decimals, owner)
}

func (r *Runner) createAccount(ctx context.Context, instr *model.Instruction) (outcome, error) {
	var p hashParser
	asset := p.hash("asset", instr.Asset)
	if p.err != nil {
		return outcome{}, p.err
	}
	owner, err := r.owner(instr)
	if err != nil {
		return outcome{}, err
	}

	var id common.Hash
	if instr.ReserveFor != "" {
		reserveAsset := p.hash("reserve_for", instr.ReserveFor)
		if p.err != nil {
			return outcome{}, p.err
		}
		pool, err := r.poolID(instr)
		if err != nil {
			return outcome{}, err
		}
		auth, err := authority.ReserveAuthority(r.engine.ProgramID(), reserveAsset, pool)
		if err != nil {
			return outcome{}, fmt.Errorf("derive reserve: %w", err)
		}
		id = auth.Address
	} else {
		id = p.hash("account", instr.Account)
		if p.err != nil {
			return outcome{}, p.err
		}
	}
	return outcome{}, r.admin.CreateAccount(ctx, id, asset, owner)
}

// owner resolves an instruction's owner, which is either an explicit key or
// the derived authority of the (asset_a, asset_b) pool.
func (r *Runner) owner(instr *model.Instruction) (common.Hash, error) {
	if instr.PoolAuthority {
		return r.poolID(instr)
	}
	var p hashParser
	owner := p.hash("owner", instr.Owner)
	return owner, p.err
}

// poolID is the instruction's explicit pool or the pool derived from its asset pair.
func (r *Runner) poolID(instr *model.Instruction) (common.Hash, error) {
	var p hashParser
	if instr.Pool != "" {
		id := p.hash("pool", instr.Pool)
		return id, p.err
	}
	assetA := p.hash("asset_a", instr.AssetA)
	assetB := p.hash("asset_b", instr.AssetB)
	if p.err != nil {
		return common.Hash{}, p.err
	}
	auth, err := authority.PoolAuthority(r.engine.ProgramID(), assetA, assetB)
	if err != nil {
		return common.Hash{}, fmt.Errorf("derive pool: %w", err)
	}
	return auth.Address, nil
}

func (r *Runner) pool(ctx context.Context, instr *model.Instruction) (model.Pool, error) {
	id, err := r.poolID(instr)
	if err != nil {
		return model.Pool{}, err
	}
	return r.engine.Pool(ctx, id)
}

// reserveOr parses an explicit reserve id or falls back to the pool's own.
func reserveOr(p *hashParser, field, input string, recorded common.Hash) common.Hash {
	if input == "" {
		return recorded
	}
	return p.hash(field, input)
}
