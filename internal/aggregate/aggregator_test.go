package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/model"
)

const testPool = "0x00000000000000000000000000000000000000000000000000000000000000AB"

type memorySink struct {
	calls   int
	metrics []model.PoolWindowMetrics
}

func (s *memorySink) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	s.calls++
	s.metrics = append(s.metrics, metrics...)
	return nil
}

func (s *memorySink) sorted() []model.PoolWindowMetrics {
	out := append([]model.PoolWindowMetrics(nil), s.metrics...)
	sort.Slice(out, func(i, j int) bool { return out[i].WindowStart.Before(out[j].WindowStart) })
	return out
}

func writeJournal(t *testing.T, records []model.OperationRecord, extra ...string) string {
	t.Helper()
	var buf bytes.Buffer
	for _, rec := range records {
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		buf.Write(data)
		buf.WriteByte('\n')
	}
	for _, line := range extra {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "operations.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func journalRecords() []model.OperationRecord {
	return []model.OperationRecord{
		{Sequence: 1, Operation: model.OpCreateAsset, Timestamp: 50},
		{Sequence: 2, Operation: model.OpSwap, Pool: testPool, Direction: "a_to_b", AmountIn: "100", AmountOut: "90", Fee: "1", ReserveA: "1100", ReserveB: "910", Timestamp: 100},
		{Sequence: 3, Operation: model.OpAddLiquidity, Pool: testPool, AmountA: "900", AmountB: "690", ReserveA: "2000", ReserveB: "1600", Timestamp: 200},
		{Sequence: 4, Operation: model.OpSwap, Pool: testPool, Direction: "a_to_b", Error: "engine: swap output rounds to zero", Timestamp: 300},
		{Sequence: 5, Operation: model.OpSwap, Pool: testPool, Direction: "b_to_a", AmountIn: "50", AmountOut: "40", Fee: "1", ReserveA: "1960", ReserveB: "2500", Timestamp: 3700},
		{Sequence: 6, Operation: model.OpRemoveLiquidity, Pool: testPool, AmountA: "10", AmountB: "12", ReserveA: "1950", ReserveB: "2488", Timestamp: 3650},
	}
}

func TestAggregatorWindows(t *testing.T) {
	ctx := context.Background()
	path := writeJournal(t, journalRecords(), "{not json")
	sink := &memorySink{}

	agg := NewAggregator(Config{WindowSeconds: 3600}, sink, nil)
	require.NoError(t, agg.Run(ctx, path))

	windows := sink.sorted()
	require.Len(t, windows, 2)

	first := windows[0]
	assert.Equal(t, strings.ToLower(testPool), first.PoolAddress)
	assert.Equal(t, int64(3600), first.WindowSizeSecs)
	assert.Equal(t, int64(0), first.WindowStart.Unix())
	assert.Equal(t, int64(3600), first.WindowEnd.Unix())
	assert.Equal(t, uint64(1), first.SwapCount)
	assert.Equal(t, uint64(1), first.Deposits)
	assert.Equal(t, uint64(0), first.Withdrawals)
	assert.Equal(t, "100", first.VolumeA)
	assert.Equal(t, "90", first.VolumeB)
	assert.Equal(t, "1", first.FeeA)
	assert.Equal(t, "0", first.FeeB)
	require.NotNil(t, first.TVLA)
	assert.Equal(t, "2000", *first.TVLA)
	require.NotNil(t, first.FeeRateA)
	assert.Equal(t, "0.000500000000000000", *first.FeeRateA)
	assert.Nil(t, first.FeeRateB)
	require.NotNil(t, first.APR)
	assert.Equal(t, "4.380000000000000000", *first.APR)

	second := windows[1]
	assert.Equal(t, int64(3600), second.WindowStart.Unix())
	assert.Equal(t, uint64(1), second.SwapCount)
	assert.Equal(t, uint64(1), second.Withdrawals)
	assert.Equal(t, "40", second.VolumeA)
	assert.Equal(t, "50", second.VolumeB)
	assert.Equal(t, "1", second.FeeB)
	// the latest timestamp wins even when records arrive out of order
	require.NotNil(t, second.TVLB)
	assert.Equal(t, "2500", *second.TVLB)
	require.NotNil(t, second.FeeRateB)
	assert.Equal(t, "0.000400000000000000", *second.FeeRateB)
}

func TestAggregatorResumesFromState(t *testing.T) {
	ctx := context.Background()
	path := writeJournal(t, journalRecords())
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state", "aggregate.json")}

	sink := &memorySink{}
	require.NoError(t, NewAggregator(Config{WindowSeconds: 3600, StateStore: state}, sink, nil).Run(ctx, path))
	require.Len(t, sink.metrics, 2)

	last, ok, err := state.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(3700), last)

	again := &memorySink{}
	require.NoError(t, NewAggregator(Config{WindowSeconds: 3600, StateStore: state}, again, nil).Run(ctx, path))
	assert.Zero(t, again.calls)
}

func TestAggregatorRecomputeFrom(t *testing.T) {
	ctx := context.Background()
	path := writeJournal(t, journalRecords())
	sink := &memorySink{}

	require.NoError(t, NewAggregator(Config{WindowSeconds: 3600, RecomputeFrom: 3600}, sink, nil).Run(ctx, path))
	require.Len(t, sink.metrics, 1)
	assert.Equal(t, int64(3600), sink.metrics[0].WindowStart.Unix())
}

func TestAggregatorConfigErrors(t *testing.T) {
	ctx := context.Background()
	require.Error(t, NewAggregator(Config{WindowSeconds: 3600}, nil, nil).Run(ctx, "unused"))
	require.Error(t, NewAggregator(Config{}, &memorySink{}, nil).Run(ctx, "unused"))
	require.Error(t, NewAggregator(Config{WindowSeconds: 60}, &memorySink{}, nil).Run(ctx, filepath.Join(t.TempDir(), "missing.jsonl")))
}

func TestAccumulatorRejectsBadRecords(t *testing.T) {
	acc := NewAccumulator(testPool, 0, 60)
	require.Error(t, acc.AddRecord(model.OperationRecord{Operation: model.OpSwap, Direction: "sideways", AmountIn: "1"}))
	require.Error(t, acc.AddRecord(model.OperationRecord{Operation: model.OpSwap, AmountIn: "-5"}))
	require.NoError(t, acc.AddRecord(model.OperationRecord{Operation: model.OpInitializePool}))
	assert.Zero(t, acc.SwapCount)
	assert.Nil(t, acc.ReserveA)
}

func TestWindowHelpers(t *testing.T) {
	assert.Equal(t, uint64(3600), windowStart(3601, 3600))
	assert.Equal(t, uint64(0), windowStart(3599, 3600))

	accs := map[string]*Accumulator{
		"a": NewAccumulator("a", 7200, 10800),
		"b": NewAccumulator("b", 3600, 7200),
		"c": nil,
	}
	assert.Equal(t, uint64(3600), minOpenWindowStart(accs))
}

func TestComputeAPR(t *testing.T) {
	assert.Nil(t, computeAPR(nil, nil, 3600))

	rate := "0.001"
	apr := computeAPR(&rate, &rate, 86400)
	require.NotNil(t, apr)
	assert.Equal(t, "0.730000000000000000", *apr)

	assert.Empty(t, computeRateFromInt(nil, nil))
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)
	require.NoError(t, sink.UpsertWindowMetrics(context.Background(), []model.PoolWindowMetrics{
		{PoolAddress: "p1", SwapCount: 2},
		{PoolAddress: "p2"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"PoolAddress":"p1"`)
}

func TestFileStateStoreNames(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	minute := &FileStateStore{Path: path, Name: "aggregator:60"}
	hour := &FileStateStore{Path: path, Name: "aggregator:3600"}

	_, ok, err := minute.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, minute.Save(ctx, 120))
	require.NoError(t, hour.Save(ctx, 7200))

	ts, ok, err := minute.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(120), ts)

	ts, _, err = hour.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7200), ts)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, _, err = minute.Load(ctx)
	require.Error(t, err)
}
