package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/authority"
)

// Asset is a fungible asset type tracked by the ledger.
type Asset struct {
	ID            common.Hash `json:"id"`
	Decimals      uint8       `json:"decimals"`
	MintAuthority common.Hash `json:"mint_authority"`
	Supply        uint64      `json:"supply"`
}

// Account holds a balance of one asset. Owner is the only key allowed to move
// or burn the balance.
type Account struct {
	ID      common.Hash `json:"id"`
	Asset   common.Hash `json:"asset"`
	Owner   common.Hash `json:"owner"`
	Balance uint64      `json:"balance"`
}

// Signer authorizes a ledger call either as a caller key or as a derived
// authority whose seeds the ledger re-derives.
type Signer struct {
	Key     common.Hash
	Derived *authority.Authority
}

// CallerSigner authorizes with the invoking caller's own key.
func CallerSigner(key common.Hash) Signer {
	return Signer{Key: key}
}

// DerivedSigner authorizes with a program-derived authority.
func DerivedSigner(auth authority.Authority) Signer {
	return Signer{Key: auth.Address, Derived: &auth}
}

// Reader exposes ledger lookups.
type Reader interface {
	Asset(ctx context.Context, id common.Hash) (Asset, error)
	Account(ctx context.Context, id common.Hash) (Account, error)
}

// Ledger is the custody service the engine drives.
type Ledger interface {
	Reader
	Transfer(ctx context.Context, asset, from, to common.Hash, amount uint64, signer Signer) error
	Mint(ctx context.Context, asset, to common.Hash, amount uint64, signer Signer) error
	Burn(ctx context.Context, asset, from common.Hash, amount uint64, signer Signer) error
}

// Backend is a ledger that can absorb the writes of a staged view.
type Backend interface {
	Reader
	ProgramID() common.Hash
	Apply(ctx context.Context, accounts []Account, assets []Asset) error
}
