package authority

import (
	"bytes"
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds is the maximum number of seeds accepted by CreateAddress, nonce included.
	MaxSeeds = 16
	// MaxSeedLen is the maximum length of a single seed.
	MaxSeedLen = 32
)

var (
	PoolSeed    = []byte("pool")
	ReserveSeed = []byte("reserves")

	derivedMarker = []byte("DerivedAuthority")
)

var (
	ErrTooManySeeds   = errors.New("too many seeds")
	ErrSeedTooLong    = errors.New("seed exceeds max length")
	ErrOnCurve        = errors.New("derived address is a valid public key")
	ErrNonceExhausted = errors.New("no off-curve address for seeds")
)

// Authority is a signing capability reconstructable from public seed material.
// The ledger re-derives Address from Seeds to accept it as a signer.
type Authority struct {
	Address common.Hash
	Seeds   [][]byte
	Nonce   uint8
}

// SignerSeeds returns the full seed list including the nonce byte.
func (a Authority) SignerSeeds() [][]byte {
	out := make([][]byte, 0, len(a.Seeds)+1)
	out = append(out, a.Seeds...)
	return append(out, []byte{a.Nonce})
}

// Verify reports whether the authority's seeds derive its address under programID.
func (a Authority) Verify(programID common.Hash) bool {
	addr, err := CreateAddress(programID, a.SignerSeeds()...)
	if err != nil {
		return false
	}
	return addr == a.Address
}

// CreateAddress hashes seeds with the program id and rejects results that lie
// on the secp256k1 curve, so no private key can ever control them.
func CreateAddress(programID common.Hash, seeds ...[]byte) (common.Hash, error) {
	if len(seeds) > MaxSeeds {
		return common.Hash{}, ErrTooManySeeds
	}
	parts := make([][]byte, 0, len(seeds)+2)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return common.Hash{}, ErrSeedTooLong
		}
		parts = append(parts, seed)
	}
	parts = append(parts, programID.Bytes(), derivedMarker)

	addr := common.BytesToHash(crypto.Keccak256(parts...))
	if onCurve(addr) {
		return common.Hash{}, ErrOnCurve
	}
	return addr, nil
}

// FindAddress searches nonces from 255 down to 0 and returns the first
// off-curve address for seeds.
func FindAddress(programID common.Hash, seeds ...[]byte) (common.Hash, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return common.Hash{}, 0, ErrTooManySeeds
	}
	withNonce := make([][]byte, len(seeds)+1)
	copy(withNonce, seeds)

	for nonce := 255; nonce >= 0; nonce-- {
		withNonce[len(seeds)] = []byte{byte(nonce)}
		addr, err := CreateAddress(programID, withNonce...)
		if err == nil {
			return addr, uint8(nonce), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return common.Hash{}, 0, err
		}
	}
	return common.Hash{}, 0, ErrNonceExhausted
}

// Derive is FindAddress returning an Authority.
func Derive(programID common.Hash, seeds ...[]byte) (Authority, error) {
	addr, nonce, err := FindAddress(programID, seeds...)
	if err != nil {
		return Authority{}, err
	}
	copied := make([][]byte, len(seeds))
	for i, seed := range seeds {
		copied[i] = append([]byte(nil), seed...)
	}
	return Authority{Address: addr, Seeds: copied, Nonce: nonce}, nil
}

// PoolAuthority derives the pool record key and custody authority for an
// unordered asset pair.
func PoolAuthority(programID, assetA, assetB common.Hash) (Authority, error) {
	lo, hi := CanonicalPair(assetA, assetB)
	return Derive(programID, PoolSeed, lo.Bytes(), hi.Bytes())
}

// PoolSigner rebuilds the authority of a stored pool from its recorded nonce
// without repeating the search. The ledger still verifies it.
func PoolSigner(address, assetA, assetB common.Hash, nonce uint8) Authority {
	lo, hi := CanonicalPair(assetA, assetB)
	return Authority{
		Address: address,
		Seeds:   [][]byte{PoolSeed, lo.Bytes(), hi.Bytes()},
		Nonce:   nonce,
	}
}

// ReserveAuthority derives the reserve account id for asset held by pool.
func ReserveAuthority(programID, asset, pool common.Hash) (Authority, error) {
	return Derive(programID, ReserveSeed, asset.Bytes(), pool.Bytes())
}

// CanonicalPair orders two identifiers byte-wise.
func CanonicalPair(a, b common.Hash) (common.Hash, common.Hash) {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return a, b
	}
	return b, a
}

// OnCurve reports whether key is the x-coordinate of a secp256k1 public key,
// i.e. whether a private key can exist for it.
func OnCurve(key common.Hash) bool {
	return onCurve(key)
}

// UserKey returns the identifier of a real key pair: its public x-coordinate.
func UserKey(pub *ecdsa.PublicKey) common.Hash {
	return common.BigToHash(pub.X)
}

func onCurve(addr common.Hash) bool {
	compressed := make([]byte, 0, 33)
	compressed = append(compressed, 0x02)
	compressed = append(compressed, addr.Bytes()...)
	_, err := crypto.DecompressPubkey(compressed)
	return err == nil
}
