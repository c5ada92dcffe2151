package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatAmount(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func optionalAmount(value *big.Int) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}

func computeFeeRates(feeA, feeB, tvlA, tvlB *big.Int) (*string, *string) {
	var feeRateA, feeRateB *string
	if rate := computeRateFromInt(feeA, tvlA); rate != "" {
		feeRateA = &rate
	}
	if rate := computeRateFromInt(feeB, tvlB); rate != "" {
		feeRateB = &rate
	}
	return feeRateA, feeRateB
}

func computeRateFromInt(fee, tvl *big.Int) string {
	if fee == nil || fee.Sign() == 0 || tvl == nil || tvl.Sign() == 0 {
		return ""
	}
	return new(big.Rat).SetFrac(fee, tvl).FloatString(ratioScale)
}

// computeAPR annualizes the sum of the per-asset window fee rates.
func computeAPR(feeRateA, feeRateB *string, windowSeconds uint64) *string {
	if windowSeconds == 0 || (feeRateA == nil && feeRateB == nil) {
		return nil
	}

	total := new(big.Rat)
	for _, rate := range []*string{feeRateA, feeRateB} {
		if rate == nil {
			continue
		}
		r, ok := new(big.Rat).SetString(*rate)
		if !ok {
			return nil
		}
		total.Add(total, r)
	}

	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	apr := new(big.Rat).Mul(total, yearSeconds)
	apr.Quo(apr, big.NewRat(int64(windowSeconds), 1))
	val := apr.FloatString(ratioScale)
	return &val
}
