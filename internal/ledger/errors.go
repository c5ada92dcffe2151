package ledger

import "errors"

var (
	ErrAssetNotFound     = errors.New("asset not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAssetExists       = errors.New("asset already exists")
	ErrAccountExists     = errors.New("account already exists")
	ErrAssetMismatch     = errors.New("account asset mismatch")
	ErrUnauthorized      = errors.New("signer not authorized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrStagedClosed      = errors.New("staged view already closed")
)
