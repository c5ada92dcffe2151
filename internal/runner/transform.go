package runner

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/engine"
	"ammEngine/internal/model"
)

// outcome is what executing one instruction produced, before it becomes a
// journal record.
type outcome struct {
	pool      common.Hash
	caller    common.Hash
	direction string
	amountA   uint64
	amountB   uint64
	amountIn  uint64
	amountOut uint64
	fee       uint64
	minted    uint64
	burned    uint64
	after     *model.ReserveSnapshot
}

func liquidityOutcome(caller common.Hash, res engine.LiquidityResult, minted bool) outcome {
	out := outcome{
		pool:    res.Pool,
		caller:  caller,
		amountA: res.AmountA,
		amountB: res.AmountB,
		after:   &res.After,
	}
	if minted {
		out.minted = res.Shares
	} else {
		out.burned = res.Shares
	}
	return out
}

func swapOutcome(caller common.Hash, res engine.SwapResult) outcome {
	return outcome{
		pool:      res.Pool,
		caller:    caller,
		direction: res.Direction.String(),
		amountIn:  res.Quote.AmountIn,
		amountOut: res.Quote.AmountOut,
		fee:       res.Quote.Fee,
		after:     &res.After,
	}
}

func buildRecord(seq uint64, op string, out outcome, opErr error, timestamp uint64, recordedAt time.Time) model.OperationRecord {
	record := model.OperationRecord{
		Sequence:   seq,
		Operation:  op,
		Direction:  out.direction,
		Timestamp:  timestamp,
		RecordedAt: recordedAt.UTC().Format(time.RFC3339Nano),
	}
	if out.pool != (common.Hash{}) {
		record.Pool = out.pool.Hex()
	}
	if out.caller != (common.Hash{}) {
		record.Caller = out.caller.Hex()
	}
	if opErr != nil {
		record.Error = opErr.Error()
		return record
	}

	record.AmountA = amountString(out.amountA)
	record.AmountB = amountString(out.amountB)
	record.AmountIn = amountString(out.amountIn)
	record.AmountOut = amountString(out.amountOut)
	record.Fee = amountString(out.fee)
	record.SharesMinted = amountString(out.minted)
	record.SharesBurned = amountString(out.burned)
	if out.after != nil {
		record.ReserveA = strconv.FormatUint(out.after.ReserveA, 10)
		record.ReserveB = strconv.FormatUint(out.after.ReserveB, 10)
		record.ShareSupply = strconv.FormatUint(out.after.ShareSupply, 10)
	}
	return record
}

func amountString(v uint64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatUint(v, 10)
}
