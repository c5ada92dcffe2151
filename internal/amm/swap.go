package amm

import "github.com/holiman/uint256"

const (
	FeeNumerator   = 3
	FeeDenominator = 1000
)

// Quote describes a priced swap.
type Quote struct {
	AmountIn    uint64
	EffectiveIn uint64
	Fee         uint64
	AmountOut   uint64
}

// EffectiveInput is amountIn net of the pool fee, computed as
// amountIn*(FeeDenominator-FeeNumerator)/FeeDenominator.
func EffectiveInput(amountIn uint64) (uint64, error) {
	return mulDiv(amountIn, FeeDenominator-FeeNumerator, FeeDenominator)
}

// AmountOut prices a swap against the constant-product curve. The output is
// floored, so reserveIn*reserveOut never decreases across the trade.
func AmountOut(amountIn, reserveIn, reserveOut uint64) (Quote, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return Quote{}, ErrNoLiquidityInPool
	}
	effective, err := EffectiveInput(amountIn)
	if err != nil {
		return Quote{}, err
	}

	numerator, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(effective), uint256.NewInt(reserveOut))
	if overflow {
		return Quote{}, ErrMathOverflow
	}
	denominator := new(uint256.Int).Add(uint256.NewInt(reserveIn), uint256.NewInt(effective))
	out := numerator.Div(numerator, denominator)
	if !out.IsUint64() {
		return Quote{}, ErrMathOverflow
	}

	return Quote{
		AmountIn:    amountIn,
		EffectiveIn: effective,
		Fee:         amountIn - effective,
		AmountOut:   out.Uint64(),
	}, nil
}

// ProductHolds reports whether the post-trade reserve product is at least the
// pre-trade product.
func ProductHolds(inBefore, outBefore, inAfter, outAfter uint64) bool {
	before := new(uint256.Int).Mul(uint256.NewInt(inBefore), uint256.NewInt(outBefore))
	after := new(uint256.Int).Mul(uint256.NewInt(inAfter), uint256.NewInt(outAfter))
	return after.Cmp(before) >= 0
}
