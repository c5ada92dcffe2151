package model

import "time"

// PoolWindowMetrics stores aggregated swap metrics for a pool window.
type PoolWindowMetrics struct {
	PoolAddress    string
	WindowSizeSecs int64
	WindowStart    time.Time
	WindowEnd      time.Time
	SwapCount      uint64
	VolumeA        string
	VolumeB        string
	FeeA           string
	FeeB           string
	FeeRateA       *string
	FeeRateB       *string
	TVLA           *string
	TVLB           *string
	APR            *string
	Deposits       uint64
	Withdrawals    uint64
}
