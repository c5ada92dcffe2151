package runner

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/engine"
	"ammEngine/internal/model"
)

// acceptReplayed resolves pool initializations re-run from an interrupted
// batch. Pool records are durable as soon as they commit while the ledger is
// only snapshotted per batch, so the store can already hold what the line
// asks for. The original error stands unless the stored pool matches.
func (r *Runner) acceptReplayed(ctx context.Context, instr *model.Instruction, out outcome, opErr error) (outcome, error) {
	var p hashParser
	switch instr.Op {
	case model.OpInitializePool:
		if !errors.Is(opErr, engine.ErrPoolExists) {
			return out, opErr
		}
		assetA := p.hash("asset_a", instr.AssetA)
		assetB := p.hash("asset_b", instr.AssetB)
		share := p.hash("share_asset", instr.ShareAsset)
		if p.err != nil {
			return out, opErr
		}
		pool, err := r.engine.PoolForPair(ctx, assetA, assetB)
		if err != nil || pool.ShareAsset != share {
			return out, opErr
		}
		out.pool = pool.ID
		return out, nil

	case model.OpInitializePoolReserves:
		if !errors.Is(opErr, engine.ErrInvalidPoolState) {
			return out, opErr
		}
		reserveA := p.optional("reserve_a", instr.ReserveA)
		reserveB := p.optional("reserve_b", instr.ReserveB)
		if p.err != nil {
			return out, opErr
		}
		pool, err := r.engine.Pool(ctx, out.pool)
		if err != nil || !pool.Operational() {
			return out, opErr
		}
		if (reserveA != (common.Hash{}) && reserveA != pool.ReserveA) || (reserveB != (common.Hash{}) && reserveB != pool.ReserveB) {
			return out, opErr
		}
		return out, nil
	}
	return out, opErr
}
