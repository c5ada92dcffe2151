package amm

import "errors"

var (
	ErrMathOverflow            = errors.New("arithmetic overflow")
	ErrDivisionByZero          = errors.New("division by zero")
	ErrIncorrectLiquidityRatio = errors.New("incorrect liquidity ratio")
	ErrNoLiquidityInPool       = errors.New("no liquidity in pool")
)
