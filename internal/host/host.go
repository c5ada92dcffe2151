package host

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/ledger"
	"ammEngine/internal/storage"
)

// UnitOfWork is the staged view one operation reads and writes through.
// Nothing written here is visible outside until the host commits it.
type UnitOfWork struct {
	Ledger ledger.Ledger
	Pools  storage.PoolStore
}

// Host serializes operations over the keys they touch and commits or
// discards each operation's writes as a whole.
type Host struct {
	ledger ledger.Backend
	pools  storage.PoolStore
	locks  *keyLocks
	logger *zap.Logger
}

func New(backend ledger.Backend, pools storage.PoolStore, logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{
		ledger: backend,
		pools:  pools,
		locks:  newKeyLocks(),
		logger: logger,
	}
}

// ProgramID returns the program id the ledger verifies derived authorities against.
func (h *Host) ProgramID() common.Hash {
	return h.ledger.ProgramID()
}

// Execute runs fn with exclusive access to keys. fn's ledger and pool writes
// are committed together when it returns nil and dropped otherwise. Waiting
// for a contended key ends with ctx's error once ctx is done.
func (h *Host) Execute(ctx context.Context, keys []common.Hash, fn func(ctx context.Context, uow *UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := h.locks.lock(ctx, keys)
	if err != nil {
		return err
	}
	defer unlock()

	stagedLedger := ledger.NewStaged(ctx, h.ledger)
	stagedPools := storage.NewStaged(h.pools)
	uow := &UnitOfWork{Ledger: stagedLedger, Pools: stagedPools}

	if err := fn(ctx, uow); err != nil {
		stagedLedger.Discard()
		return err
	}
	if err := ctx.Err(); err != nil {
		stagedLedger.Discard()
		return err
	}

	poolsWritten := stagedPools.Dirty()
	if poolsWritten {
		if err := stagedPools.Commit(ctx); err != nil {
			stagedLedger.Discard()
			return fmt.Errorf("commit pools: %w", err)
		}
	}
	if err := stagedLedger.Commit(ctx); err != nil {
		h.logger.Error("ledger commit failed after pool commit", zap.Error(err))
		return fmt.Errorf("commit ledger: %w", err)
	}
	h.logger.Debug("unit of work committed",
		zap.Int("keys", len(keys)),
		zap.Int("ledger_calls", stagedLedger.Calls()),
		zap.Bool("pools_written", poolsWritten),
	)
	return nil
}
