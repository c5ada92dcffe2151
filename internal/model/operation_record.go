package model

import "encoding/json"

// Operation names as they appear in journals and scripts.
const (
	OpCreateAsset            = "create_asset"
	OpCreateAccount          = "create_account"
	OpFund                   = "fund"
	OpInitializePool         = "initialize_pool"
	OpInitializePoolReserves = "initialize_pool_reserves"
	OpAddLiquidity           = "add_liquidity"
	OpRemoveLiquidity        = "remove_liquidity"
	OpSwap                   = "swap"
)

// OperationRecord is the journal entry for one committed or rejected operation.
// Amounts are base-10 strings so journals never truncate.
// Sequence is the script line, unique together with Script.
type OperationRecord struct {
	Script       string `json:"script,omitempty"`
	Sequence     uint64 `json:"sequence"`
	Operation    string `json:"operation"`
	Pool         string `json:"pool,omitempty"`
	Caller       string `json:"caller,omitempty"`
	Direction    string `json:"direction,omitempty"`
	AmountA      string `json:"amount_a,omitempty"`
	AmountB      string `json:"amount_b,omitempty"`
	AmountIn     string `json:"amount_in,omitempty"`
	AmountOut    string `json:"amount_out,omitempty"`
	Fee          string `json:"fee,omitempty"`
	SharesMinted string `json:"shares_minted,omitempty"`
	SharesBurned string `json:"shares_burned,omitempty"`
	ReserveA     string `json:"reserve_a,omitempty"`
	ReserveB     string `json:"reserve_b,omitempty"`
	ShareSupply  string `json:"share_supply,omitempty"`
	Error        string `json:"error,omitempty"`
	Timestamp    uint64 `json:"timestamp"`
	RecordedAt   string `json:"recorded_at"`
}

// Failed reports whether the operation was rejected.
func (r OperationRecord) Failed() bool {
	return r.Error != ""
}

// MarshalJSON keeps field names stable for journal consumers.
func (r OperationRecord) MarshalJSON() ([]byte, error) {
	type Alias OperationRecord
	return json.Marshal(Alias(r))
}
