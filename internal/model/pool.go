package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PoolState is the lifecycle stage of a pool record.
type PoolState uint8

const (
	PoolUninitialized PoolState = iota
	PoolBaseInitialized
	PoolReservesInitialized
)

func (s PoolState) String() string {
	switch s {
	case PoolUninitialized:
		return "uninitialized"
	case PoolBaseInitialized:
		return "base_initialized"
	case PoolReservesInitialized:
		return "reserves_initialized"
	default:
		return fmt.Sprintf("pool_state(%d)", uint8(s))
	}
}

// Pool is the durable record for one unordered asset pair. ID doubles as the
// pool's custody authority on the ledger.
type Pool struct {
	ID         common.Hash `json:"id" codec:"id"`
	Nonce      uint8       `json:"nonce" codec:"nonce"`
	AssetA     common.Hash `json:"asset_a" codec:"asset_a"`
	AssetB     common.Hash `json:"asset_b" codec:"asset_b"`
	ReserveA   common.Hash `json:"reserve_a" codec:"reserve_a"`
	ReserveB   common.Hash `json:"reserve_b" codec:"reserve_b"`
	ShareAsset common.Hash `json:"share_asset" codec:"share_asset"`
	State      PoolState   `json:"state" codec:"state"`
}

// Operational reports whether the pool accepts liquidity and swaps.
func (p Pool) Operational() bool {
	return p.State == PoolReservesInitialized
}

// Reserves returns the reserve ids ordered for a swap direction.
func (p Pool) Reserves(dir Direction) (in common.Hash, out common.Hash) {
	if dir == BToA {
		return p.ReserveB, p.ReserveA
	}
	return p.ReserveA, p.ReserveB
}

// Assets returns the asset ids ordered for a swap direction.
func (p Pool) Assets(dir Direction) (in common.Hash, out common.Hash) {
	if dir == BToA {
		return p.AssetB, p.AssetA
	}
	return p.AssetA, p.AssetB
}
