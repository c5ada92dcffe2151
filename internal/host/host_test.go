package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ammEngine/internal/ledger"
	"ammEngine/internal/model"
	"ammEngine/internal/storage"
)

var (
	testProgram = common.HexToHash("0x4a4d4d0000000000000000000000000000000000000000000000000000000001")
	alice       = common.HexToHash("0x79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	bob         = common.HexToHash("0xc6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5")

	token  = common.HexToHash("0xa1")
	aliceA = common.HexToHash("0x0a01")
	bobA   = common.HexToHash("0x0b01")
)

func newTestHost(t *testing.T) (*Host, *ledger.Memory, *storage.Memory) {
	t.Helper()
	ctx := context.Background()
	backend := ledger.NewMemory(testProgram)
	require.NoError(t, backend.CreateAsset(ctx, token, 6, alice))
	require.NoError(t, backend.CreateAccount(ctx, aliceA, token, alice))
	require.NoError(t, backend.CreateAccount(ctx, bobA, token, bob))
	require.NoError(t, backend.Fund(ctx, aliceA, 100))
	pools := storage.NewMemory()
	return New(backend, pools, nil), backend, pools
}

func balance(t *testing.T, r ledger.Reader, id common.Hash) uint64 {
	t.Helper()
	acct, err := r.Account(context.Background(), id)
	require.NoError(t, err)
	return acct.Balance
}

func TestExecuteCommits(t *testing.T) {
	ctx := context.Background()
	h, backend, pools := newTestHost(t)
	pool := model.Pool{ID: common.HexToHash("0x01"), State: model.PoolBaseInitialized}

	err := h.Execute(ctx, []common.Hash{pool.ID, aliceA, bobA}, func(ctx context.Context, uow *UnitOfWork) error {
		if err := uow.Pools.Create(ctx, pool); err != nil {
			return err
		}
		return uow.Ledger.Transfer(ctx, token, aliceA, bobA, 40, ledger.CallerSigner(alice))
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(60), balance(t, backend, aliceA))
	assert.Equal(t, uint64(40), balance(t, backend, bobA))
	_, err = pools.Get(ctx, pool.ID)
	require.NoError(t, err)
	assert.Zero(t, h.locks.size())
}

func TestExecuteDiscardsOnFailure(t *testing.T) {
	ctx := context.Background()
	h, backend, pools := newTestHost(t)
	pool := model.Pool{ID: common.HexToHash("0x01")}

	err := h.Execute(ctx, []common.Hash{pool.ID, aliceA, bobA}, func(ctx context.Context, uow *UnitOfWork) error {
		if err := uow.Pools.Create(ctx, pool); err != nil {
			return err
		}
		if err := uow.Ledger.Transfer(ctx, token, aliceA, bobA, 40, ledger.CallerSigner(alice)); err != nil {
			return err
		}
		// second leg overdraws and voids the first
		return uow.Ledger.Transfer(ctx, token, aliceA, bobA, 100, ledger.CallerSigner(alice))
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, uint64(100), balance(t, backend, aliceA))
	assert.Equal(t, uint64(0), balance(t, backend, bobA))
	_, err = pools.Get(ctx, pool.ID)
	require.ErrorIs(t, err, storage.ErrPoolNotFound)
}

func TestExecuteCancelled(t *testing.T) {
	h, backend, _ := newTestHost(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := h.Execute(ctx, []common.Hash{aliceA, bobA}, func(ctx context.Context, uow *UnitOfWork) error {
		if err := uow.Ledger.Transfer(ctx, token, aliceA, bobA, 10, ledger.CallerSigner(alice)); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(100), balance(t, backend, aliceA))

	err = h.Execute(ctx, nil, func(ctx context.Context, uow *UnitOfWork) error {
		return errors.New("must not run")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecuteSerializesSharedKeys(t *testing.T) {
	ctx := context.Background()
	h, backend, _ := newTestHost(t)

	// read-modify-write of aliceA from many goroutines; no transfer may be lost
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.Execute(ctx, []common.Hash{bobA, aliceA}, func(ctx context.Context, uow *UnitOfWork) error {
				return uow.Ledger.Transfer(ctx, token, aliceA, bobA, 5, ledger.CallerSigner(alice))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(0), balance(t, backend, aliceA))
	assert.Equal(t, uint64(100), balance(t, backend, bobA))
	assert.Zero(t, h.locks.size())
}

func TestExecuteLogsCommit(t *testing.T) {
	ctx := context.Background()
	_, backend, pools := newTestHost(t)
	core, logs := observer.New(zapcore.DebugLevel)
	h := New(backend, pools, zap.New(core))

	err := h.Execute(ctx, []common.Hash{aliceA, bobA}, func(ctx context.Context, uow *UnitOfWork) error {
		if err := uow.Ledger.Transfer(ctx, token, aliceA, bobA, 10, ledger.CallerSigner(alice)); err != nil {
			return err
		}
		return uow.Ledger.Transfer(ctx, token, aliceA, bobA, 5, ledger.CallerSigner(alice))
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("unit of work committed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(2), fields["keys"])
	assert.Equal(t, int64(2), fields["ledger_calls"])
	assert.Equal(t, false, fields["pools_written"])
}

func TestExecuteStopsWaitingWhenContextEnds(t *testing.T) {
	h, backend, _ := newTestHost(t)

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = h.Execute(context.Background(), []common.Hash{aliceA}, func(ctx context.Context, uow *UnitOfWork) error {
			close(holding)
			<-done
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// aliceA sorts first and stays held past the deadline
	err := h.Execute(ctx, []common.Hash{aliceA, bobA}, func(ctx context.Context, uow *UnitOfWork) error {
		return errors.New("must not run")
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(done)
	assert.Eventually(t, func() bool { return h.locks.size() == 0 }, time.Second, 5*time.Millisecond)

	err = h.Execute(context.Background(), []common.Hash{aliceA, bobA}, func(ctx context.Context, uow *UnitOfWork) error {
		return uow.Ledger.Transfer(ctx, token, aliceA, bobA, 1, ledger.CallerSigner(alice))
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), balance(t, backend, bobA))
}

func TestNormalizeKeys(t *testing.T) {
	a := common.HexToHash("0x02")
	b := common.HexToHash("0x01")
	got := normalizeKeys([]common.Hash{a, b, a, {}})
	assert.Equal(t, []common.Hash{b, a}, got)
}
