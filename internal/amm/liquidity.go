package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// CheckDepositRatio validates that a deposit matches the current reserve ratio.
// A pool with no shares outstanding or an empty reserve is bootstrapping and
// requires a 1:1 deposit whatever was donated into its reserves.
func CheckDepositRatio(amountA, amountB, reserveA, reserveB, totalShares uint64) error {
	if Bootstrapping(reserveA, reserveB, totalShares) {
		if amountA != amountB {
			return fmt.Errorf("%w: bootstrap deposit %d:%d must be 1:1", ErrIncorrectLiquidityRatio, amountA, amountB)
		}
		return nil
	}
	if !crossEqual(amountA, reserveB, amountB, reserveA) {
		return fmt.Errorf("%w: deposit %d:%d vs reserves %d:%d", ErrIncorrectLiquidityRatio, amountA, amountB, reserveA, reserveB)
	}
	return nil
}

// Bootstrapping reports whether a deposit skips the reserve ratio check.
func Bootstrapping(reserveA, reserveB, totalShares uint64) bool {
	return totalShares == 0 || reserveA == 0 || reserveB == 0
}

// SharesForDeposit returns the share amount minted for a deposit measured
// against the reserves before the deposit lands. Rounds down.
func SharesForDeposit(amountA, amountB, reserveA, reserveB, totalShares uint64, shareDecimals uint8) (uint64, error) {
	combinedReserves, err := add(reserveA, reserveB)
	if err != nil {
		return 0, err
	}
	if combinedReserves == 0 || totalShares == 0 {
		return Pow10(shareDecimals)
	}

	deposit := new(uint256.Int).Add(uint256.NewInt(amountA), uint256.NewInt(amountB))
	numerator, overflow := new(uint256.Int).MulOverflow(deposit, uint256.NewInt(totalShares))
	if overflow {
		return 0, ErrMathOverflow
	}
	shares := numerator.Div(numerator, uint256.NewInt(combinedReserves))
	if !shares.IsUint64() {
		return 0, ErrMathOverflow
	}
	return shares.Uint64(), nil
}

// Entitlement is the reserve amount owed for burning shares out of totalShares.
// Multiplies before dividing and rounds down.
func Entitlement(reserve, burned, totalShares uint64) (uint64, error) {
	if burned > totalShares {
		return 0, fmt.Errorf("%w: burn %d exceeds supply %d", ErrMathOverflow, burned, totalShares)
	}
	return mulDiv(reserve, burned, totalShares)
}
