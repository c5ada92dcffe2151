package model

// ReserveSnapshot is the live ledger view of a pool's balances.
type ReserveSnapshot struct {
	ReserveA    uint64 `json:"reserve_a"`
	ReserveB    uint64 `json:"reserve_b"`
	ShareSupply uint64 `json:"share_supply"`
}
