package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/engine"
	"ammEngine/internal/host"
	"ammEngine/internal/ledger"
	"ammEngine/internal/model"
	"ammEngine/internal/storage"
)

var (
	testProgram = common.HexToHash("0x4a4d4d0000000000000000000000000000000000000000000000000000000001")
	alice       = common.HexToHash("0x79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
)

const scriptTemplate = `{"op":"create_asset","asset":"0xa1","decimals":6,"owner":"ALICE"}
{"op":"create_asset","asset":"0xb1","decimals":6,"owner":"ALICE"}
{"op":"create_asset","asset":"0x5a","decimals":6,"pool_authority":true,"asset_a":"0xa1","asset_b":"0xb1"}
{"op":"create_account","account":"0x0a01","asset":"0xa1","owner":"ALICE"}
{"op":"create_account","account":"0x0a02","asset":"0xb1","owner":"ALICE"}
{"op":"create_account","account":"0x0a03","asset":"0x5a","owner":"ALICE"}
{"op":"create_account","asset":"0xa1","reserve_for":"0xa1","pool_authority":true,"asset_a":"0xa1","asset_b":"0xb1"}
{"op":"create_account","asset":"0xb1","reserve_for":"0xb1","pool_authority":true,"asset_a":"0xa1","asset_b":"0xb1"}
{"op":"fund","account":"0x0a01","amount":"5000"}
{"op":"fund","account":"0x0a02","amount":"5000"}
# pool lifecycle
{"op":"initialize_pool","caller":"ALICE","asset_a":"0xa1","asset_b":"0xb1","share_asset":"0x5a"}
{"op":"initialize_pool_reserves","asset_a":"0xb1","asset_b":"0xa1"}
{"op":"add_liquidity","caller":"ALICE","asset_a":"0xa1","asset_b":"0xb1","user_a":"0x0a01","user_b":"0x0a02","user_shares":"0x0a03","amount_a":"1000","amount_b":"1000"}
{"op":"swap","caller":"ALICE","asset_a":"0xa1","asset_b":"0xb1","user_in":"0x0a01","user_out":"0x0a02","amount_in":"100","direction":"a_to_b","ts":1700000000}
{"op":"swap","caller":"ALICE","asset_a":"0xa1","asset_b":"0xb1","user_in":"0x0a01","user_out":"0x0a02","amount_in":"1"}
{"op":"remove_liquidity","caller":"ALICE","asset_a":"0xa1","asset_b":"0xb1","user_a":"0x0a01","user_b":"0x0a02","user_shares":"0x0a03"}
`

type harness struct {
	dir     string
	script  string
	journal string
	ledger  *ledger.Memory
	pools   *storage.Memory
	engine  *engine.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "script.jsonl")
	content := strings.ReplaceAll(scriptTemplate, "ALICE", alice.Hex())
	require.NoError(t, os.WriteFile(script, []byte(content), 0o644))

	h := &harness{
		dir:     dir,
		script:  script,
		journal: filepath.Join(dir, "ops.jsonl"),
		pools:   storage.NewMemory(),
	}
	h.restartLedger()
	return h
}

// restartLedger drops the ledger and keeps the pool store, the state after a
// crash that lost ledger writes made since the last snapshot.
func (h *harness) restartLedger() {
	h.ledger = ledger.NewMemory(testProgram)
	h.engine = engine.New(host.New(h.ledger, h.pools, nil), engine.Config{})
}

func (h *harness) runner(cfg RunConfig) *Runner {
	cfg.ScriptPath = h.script
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 4
	}
	journal := storage.NewJsonlJournal(h.journal)
	r := NewRunner(cfg, h.engine, h.ledger, []storage.Journal{journal}, nil)
	r.clock = func() time.Time { return time.Unix(1600000000, 0) }
	return r
}

func readRecords(t *testing.T, path string) map[uint64]model.OperationRecord {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records := make(map[uint64]model.OperationRecord)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.OperationRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records[record.Sequence] = record
	}
	require.NoError(t, scanner.Err())
	return records
}

func balance(t *testing.T, l *ledger.Memory, id string) uint64 {
	t.Helper()
	acct, err := l.Account(context.Background(), common.HexToHash(id))
	require.NoError(t, err)
	return acct.Balance
}

func TestRunScript(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	summary, err := h.runner(RunConfig{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Executed: 16, Failed: 1, Skipped: 1}, summary)

	records := readRecords(t, h.journal)
	require.Len(t, records, 16)

	pool, err := h.engine.PoolForPair(ctx, common.HexToHash("0xa1"), common.HexToHash("0xb1"))
	require.NoError(t, err)
	assert.Equal(t, model.PoolReservesInitialized, pool.State)

	assert.Equal(t, "script.jsonl", records[11].Script)

	add := records[14]
	assert.Equal(t, model.OpAddLiquidity, add.Operation)
	assert.Equal(t, pool.ID.Hex(), add.Pool)
	assert.Equal(t, "1000000", add.SharesMinted)

	swap := records[15]
	assert.Empty(t, swap.Error)
	assert.Equal(t, "100", swap.AmountIn)
	assert.Equal(t, "90", swap.AmountOut)
	assert.Equal(t, "1", swap.Fee)
	assert.Equal(t, "1100", swap.ReserveA)
	assert.Equal(t, "910", swap.ReserveB)
	assert.Equal(t, uint64(1700000000), swap.Timestamp)

	tiny := records[16]
	assert.True(t, tiny.Failed())
	assert.Contains(t, tiny.Error, engine.ErrZeroSwapOutput.Error())
	assert.Equal(t, uint64(1600000000), tiny.Timestamp)

	remove := records[17]
	assert.Equal(t, "1100", remove.AmountA)
	assert.Equal(t, "910", remove.AmountB)
	assert.Equal(t, "1000000", remove.SharesBurned)
	assert.Equal(t, "0", remove.ShareSupply)

	assert.Equal(t, uint64(5000), balance(t, h.ledger, "0x0a01"))
	assert.Equal(t, uint64(5000), balance(t, h.ledger, "0x0a02"))
}

func TestRunStopOnErrorAndResume(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cfg := RunConfig{
		CheckpointPath:    filepath.Join(h.dir, "state", "checkpoint.json"),
		CheckpointEnabled: true,
		StopOnError:       true,
	}

	summary, err := h.runner(cfg).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 16")
	assert.Equal(t, uint64(1), summary.Failed)

	cp, ok, err := NewCheckpointStore(cfg.CheckpointPath, true).Load("script.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(16), cp.LastProcessedLine)

	cfg.StopOnError = false
	summary, err = h.runner(cfg).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Executed: 1}, summary)

	records := readRecords(t, h.journal)
	require.Len(t, records, 16)
	assert.Equal(t, "1000000", records[17].SharesBurned)

	// a finished script has nothing left to run
	summary, err = h.runner(cfg).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestRunSavesLedgerSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	path := filepath.Join(h.dir, "ledger.json")

	_, err := h.runner(RunConfig{BatchSize: 100}).WithSnapshot(h.ledger, path).Run(ctx)
	require.NoError(t, err)

	restored, err := ledger.LoadSnapshot(path, testProgram)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), balance(t, restored, "0x0a01"))
}

type flakyJournal struct {
	failures int
	calls    int
	records  int
}

func (f *flakyJournal) PutRecords(ctx context.Context, records []model.OperationRecord) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("unavailable")
	}
	f.records += len(records)
	return nil
}

func TestRunRetriesJournalWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	journal := &flakyJournal{failures: 2}

	cfg := RunConfig{ScriptPath: h.script, BatchSize: 100, MaxRetries: 3, RetryBackoff: time.Millisecond}
	_, err := NewRunner(cfg, h.engine, h.ledger, []storage.Journal{journal}, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, journal.calls)
	assert.Equal(t, 16, journal.records)
}

func TestRunUnknownOpIsRecorded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.script, []byte(`{"op":"teleport"}`+"\n"), 0o644))

	summary, err := h.runner(RunConfig{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), summary.Failed)
	assert.Contains(t, readRecords(t, h.journal)[1].Error, "unknown op")
}

func TestCheckpointRejectsOtherScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	store := NewCheckpointStore(path, true)
	require.NoError(t, store.Save("a.jsonl", 3))

	_, _, err := store.Load("b.jsonl")
	require.Error(t, err)

	disabled := NewCheckpointStore(path, false)
	_, ok, err := disabled.Load("b.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunReplaysInterruptedBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cpPath := filepath.Join(h.dir, "checkpoint.json")
	cfg := RunConfig{BatchSize: 100, CheckpointPath: cpPath, CheckpointEnabled: true}

	_, err := h.runner(RunConfig{BatchSize: 100}).Run(ctx)
	require.NoError(t, err)

	// the batch started but never finished: pools are durable, the ledger is not
	h.restartLedger()
	require.NoError(t, NewCheckpointStore(cpPath, true).Begin("script.jsonl", 0, 17))

	summary, err := h.runner(cfg).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Executed: 16, Failed: 1, Skipped: 1}, summary)

	records := readRecords(t, h.journal)
	assert.False(t, records[12].Failed(), records[12].Error)
	assert.False(t, records[13].Failed(), records[13].Error)
	assert.NotEmpty(t, records[12].Pool)
	assert.Equal(t, "1000000", records[14].SharesMinted)
	assert.Equal(t, uint64(5000), balance(t, h.ledger, "0x0a01"))

	cp, ok, err := NewCheckpointStore(cpPath, true).Load("script.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(17), cp.LastProcessedLine)
	assert.Zero(t, cp.PendingLine)

	// outside an interrupted batch a second initialization is still rejected
	h.restartLedger()
	require.NoError(t, NewCheckpointStore(cpPath, true).Save("script.jsonl", 0))
	summary, err = h.runner(cfg).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), summary.Failed)
	assert.Contains(t, readRecords(t, h.journal)[12].Error, engine.ErrPoolExists.Error())
}
