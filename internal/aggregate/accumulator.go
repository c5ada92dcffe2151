package aggregate

import (
	"fmt"
	"math/big"

	"ammEngine/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolAddress string
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	Deposits    uint64
	Withdrawals uint64
	VolumeA     *big.Int
	VolumeB     *big.Int
	FeeA        *big.Int
	FeeB        *big.Int
	// reserves after the latest operation seen in the window
	ReserveA *big.Int
	ReserveB *big.Int
	LastTS   uint64
}

func NewAccumulator(pool string, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolAddress: pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeA:     big.NewInt(0),
		VolumeB:     big.NewInt(0),
		FeeA:        big.NewInt(0),
		FeeB:        big.NewInt(0),
	}
}

// AddRecord folds one committed operation into the window.
func (a *Accumulator) AddRecord(record model.OperationRecord) error {
	switch record.Operation {
	case model.OpSwap:
		if err := a.applySwap(record); err != nil {
			return err
		}
	case model.OpAddLiquidity:
		a.Deposits++
	case model.OpRemoveLiquidity:
		a.Withdrawals++
	default:
		return nil
	}

	if record.Timestamp >= a.LastTS && record.ReserveA != "" && record.ReserveB != "" {
		reserveA, err := parseBigInt(record.ReserveA)
		if err != nil {
			return err
		}
		reserveB, err := parseBigInt(record.ReserveB)
		if err != nil {
			return err
		}
		a.ReserveA, a.ReserveB = reserveA, reserveB
		a.LastTS = record.Timestamp
	}
	return nil
}

func (a *Accumulator) applySwap(record model.OperationRecord) error {
	amountIn, err := parseBigInt(record.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseBigInt(record.AmountOut)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(record.Fee)
	if err != nil {
		return err
	}

	dir, err := model.ParseDirection(record.Direction)
	if err != nil {
		return err
	}
	if dir == model.AToB {
		a.VolumeA.Add(a.VolumeA, amountIn)
		a.VolumeB.Add(a.VolumeB, amountOut)
		a.FeeA.Add(a.FeeA, fee)
	} else {
		a.VolumeB.Add(a.VolumeB, amountIn)
		a.VolumeA.Add(a.VolumeA, amountOut)
		a.FeeB.Add(a.FeeB, fee)
	}
	a.SwapCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}
