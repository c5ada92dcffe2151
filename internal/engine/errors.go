package engine

import (
	"errors"

	"ammEngine/internal/amm"
)

var (
	ErrSameAsset                 = errors.New("pool assets must differ")
	ErrPoolExists                = errors.New("pool already exists for pair")
	ErrPoolNotFound              = errors.New("pool not found")
	ErrShareAuthority            = errors.New("share asset mint authority is not the pool authority")
	ErrInvalidPoolState          = errors.New("invalid pool state")
	ErrReserveAssetMismatch      = errors.New("reserve account asset does not match pool asset")
	ErrReserveAuthorityMismatch  = errors.New("reserve account owner is not the pool authority")
	ErrIncorrectPoolTokenAccount = errors.New("incorrect pool token account")
	ErrIncorrectLPTokenAccount   = errors.New("incorrect lp token account")
	ErrNoLiquidityPoolTokens     = errors.New("no liquidity pool tokens to redeem")
	ErrZeroAmount                = errors.New("amount must be positive")
	ErrNoSharesMinted            = errors.New("deposit too small to mint shares")
	ErrZeroSwapOutput            = errors.New("swap output rounds to zero")
	ErrSlippageExceeded          = errors.New("swap output below minimum")

	ErrIncorrectLiquidityRatio = amm.ErrIncorrectLiquidityRatio
	ErrNoLiquidityInPool       = amm.ErrNoLiquidityInPool
	ErrMathOverflow            = amm.ErrMathOverflow
)
