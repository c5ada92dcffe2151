package amm

import "github.com/holiman/uint256"

// mulDiv returns floor(x*y/d) and fails if the result does not fit in uint64.
func mulDiv(x, y, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(x), uint256.NewInt(y))
	if overflow {
		return 0, ErrMathOverflow
	}
	quo := new(uint256.Int).Div(product, uint256.NewInt(d))
	if !quo.IsUint64() {
		return 0, ErrMathOverflow
	}
	return quo.Uint64(), nil
}

func add(x, y uint64) (uint64, error) {
	sum := x + y
	if sum < x {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

func crossEqual(a1, b2, a2, b1 uint64) bool {
	left := new(uint256.Int).Mul(uint256.NewInt(a1), uint256.NewInt(b2))
	right := new(uint256.Int).Mul(uint256.NewInt(a2), uint256.NewInt(b1))
	return left.Eq(right)
}

// Pow10 returns 10^exp as a uint64.
func Pow10(exp uint8) (uint64, error) {
	if exp > 19 {
		return 0, ErrMathOverflow
	}
	result := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(exp)))
	return result.Uint64(), nil
}
