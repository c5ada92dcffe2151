package model

// Instruction is one scripted operation. Identifier fields are 0x-hex; amounts
// are base-10 strings.
type Instruction struct {
	Op         string `json:"op"`
	Caller     string `json:"caller,omitempty"`
	Asset      string `json:"asset,omitempty"`
	Account    string `json:"account,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Decimals   uint8  `json:"decimals,omitempty"`
	Amount     string `json:"amount,omitempty"`
	AssetA     string `json:"asset_a,omitempty"`
	AssetB     string `json:"asset_b,omitempty"`
	ShareAsset string `json:"share_asset,omitempty"`
	Pool       string `json:"pool,omitempty"`
	ReserveA   string `json:"reserve_a,omitempty"`
	ReserveB   string `json:"reserve_b,omitempty"`
	UserA      string `json:"user_a,omitempty"`
	UserB      string `json:"user_b,omitempty"`
	UserShares string `json:"user_shares,omitempty"`
	UserIn     string `json:"user_in,omitempty"`
	UserOut    string `json:"user_out,omitempty"`
	AmountA    string `json:"amount_a,omitempty"`
	AmountB    string `json:"amount_b,omitempty"`
	AmountIn   string `json:"amount_in,omitempty"`
	MinOut     string `json:"min_out,omitempty"`
	Direction  string `json:"direction,omitempty"`
	// PoolAuthority makes create_asset/create_account use the derived pool
	// authority of (asset_a, asset_b) as owner.
	PoolAuthority bool `json:"pool_authority,omitempty"`
	// ReserveFor makes create_account derive its id as the reserve of the
	// given asset for the pool of (asset_a, asset_b).
	ReserveFor string `json:"reserve_for,omitempty"`
	// Timestamp overrides the record time in unix seconds.
	Timestamp uint64 `json:"ts,omitempty"`
}
