package amm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountOutReferenceScenario(t *testing.T) {
	quote, err := AmountOut(100, 1000, 1000)
	require.NoError(t, err)

	assert.Equal(t, uint64(99), quote.EffectiveIn)
	assert.Equal(t, uint64(1), quote.Fee)
	// floor(99*1000/1099) = 90; the output is rounded toward the pool.
	// 91 from floor(1000*1000/1099) would leave 1100*909 < 1000*1000.
	assert.Equal(t, uint64(90), quote.AmountOut)
	assert.True(t, ProductHolds(1000, 1000, 1000+100, 1000-quote.AmountOut))
}

func TestAmountOutMatchesUniswapFormula(t *testing.T) {
	// amountOut = amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)
	quote, err := AmountOut(1_000, 1_000_000, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(996), quote.AmountOut)
}

func TestAmountOutNoLiquidity(t *testing.T) {
	_, err := AmountOut(100, 0, 1000)
	require.ErrorIs(t, err, ErrNoLiquidityInPool)

	_, err = AmountOut(100, 1000, 0)
	require.ErrorIs(t, err, ErrNoLiquidityInPool)
}

func TestAmountOutTinyTrade(t *testing.T) {
	quote, err := AmountOut(1, 1_000_000, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), quote.EffectiveIn)
	assert.Equal(t, uint64(0), quote.AmountOut)
}

func TestAmountOutProductNeverShrinks(t *testing.T) {
	reserves := [][2]uint64{
		{1, 1},
		{1000, 1000},
		{7, 1_000_000_007},
		{123_456_789, 987_654_321},
		{math.MaxUint64 / 4, math.MaxUint64 / 8},
	}
	inputs := []uint64{1, 2, 10, 999, 1_000_003, math.MaxUint32}

	for _, r := range reserves {
		for _, in := range inputs {
			if r[0] > math.MaxUint64-in {
				continue
			}
			quote, err := AmountOut(in, r[0], r[1])
			require.NoError(t, err)
			require.Less(t, quote.AmountOut, r[1])
			require.True(t, ProductHolds(r[0], r[1], r[0]+in, r[1]-quote.AmountOut),
				"product shrank for reserves %v in %d out %d", r, in, quote.AmountOut)
		}
	}
}

func TestEffectiveInputLarge(t *testing.T) {
	eff, err := EffectiveInput(math.MaxUint64)
	require.NoError(t, err)
	assert.Less(t, eff, uint64(math.MaxUint64))
}
