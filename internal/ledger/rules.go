package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/authority"
)

// entries is the storage a set of ledger rules runs against.
type entries interface {
	getAsset(id common.Hash) (Asset, error)
	getAccount(id common.Hash) (Account, error)
	putAsset(asset Asset)
	putAccount(account Account)
}

func authorize(programID common.Hash, signer Signer, owner common.Hash) error {
	if signer.Key != owner {
		return fmt.Errorf("%w: %s is not %s", ErrUnauthorized, signer.Key.Hex(), owner.Hex())
	}
	if signer.Derived != nil {
		if signer.Derived.Address != signer.Key || !signer.Derived.Verify(programID) {
			return fmt.Errorf("%w: derived authority %s does not verify", ErrUnauthorized, signer.Key.Hex())
		}
		return nil
	}
	// only a real key pair can sign as a caller
	if !authority.OnCurve(signer.Key) {
		return fmt.Errorf("%w: %s has no key pair", ErrUnauthorized, signer.Key.Hex())
	}
	return nil
}

func accountOf(e entries, id, asset common.Hash) (Account, error) {
	acct, err := e.getAccount(id)
	if err != nil {
		return Account{}, err
	}
	if acct.Asset != asset {
		return Account{}, fmt.Errorf("%w: account %s holds %s not %s", ErrAssetMismatch, id.Hex(), acct.Asset.Hex(), asset.Hex())
	}
	return acct, nil
}

func transfer(e entries, programID, asset, from, to common.Hash, amount uint64, signer Signer) error {
	if _, err := e.getAsset(asset); err != nil {
		return err
	}
	src, err := accountOf(e, from, asset)
	if err != nil {
		return err
	}
	dst, err := accountOf(e, to, asset)
	if err != nil {
		return err
	}
	if err := authorize(programID, signer, src.Owner); err != nil {
		return err
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: account %s has %d, needs %d", ErrInsufficientFunds, from.Hex(), src.Balance, amount)
	}
	if from == to {
		return nil
	}
	if dst.Balance+amount < dst.Balance {
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, to.Hex())
	}

	src.Balance -= amount
	dst.Balance += amount
	e.putAccount(src)
	e.putAccount(dst)
	return nil
}

func mint(e entries, programID, asset, to common.Hash, amount uint64, signer Signer) error {
	a, err := e.getAsset(asset)
	if err != nil {
		return err
	}
	dst, err := accountOf(e, to, asset)
	if err != nil {
		return err
	}
	if err := authorize(programID, signer, a.MintAuthority); err != nil {
		return err
	}
	if a.Supply+amount < a.Supply || dst.Balance+amount < dst.Balance {
		return fmt.Errorf("%w: mint %d of %s", ErrBalanceOverflow, amount, asset.Hex())
	}

	a.Supply += amount
	dst.Balance += amount
	e.putAsset(a)
	e.putAccount(dst)
	return nil
}

func burn(e entries, programID, asset, from common.Hash, amount uint64, signer Signer) error {
	a, err := e.getAsset(asset)
	if err != nil {
		return err
	}
	src, err := accountOf(e, from, asset)
	if err != nil {
		return err
	}
	if err := authorize(programID, signer, src.Owner); err != nil {
		return err
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: account %s has %d, burning %d", ErrInsufficientFunds, from.Hex(), src.Balance, amount)
	}
	if a.Supply < amount {
		return fmt.Errorf("%w: supply of %s below burn", ErrInsufficientFunds, asset.Hex())
	}

	a.Supply -= amount
	src.Balance -= amount
	e.putAsset(a)
	e.putAccount(src)
	return nil
}
