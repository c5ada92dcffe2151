package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ammEngine/internal/authority"
	"ammEngine/internal/host"
	"ammEngine/internal/ledger"
	"ammEngine/internal/model"
	"ammEngine/internal/storage"
)

// Config configures an Engine.
type Config struct {
	Registry prometheus.Registerer
	Logger   *zap.Logger
}

// Engine runs pool operations, each inside one host unit of work.
type Engine struct {
	host      *host.Host
	programID common.Hash
	metrics   *Metrics
	logger    *zap.Logger
}

func New(h *host.Host, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		host:      h,
		programID: h.ProgramID(),
		metrics:   NewMetrics(cfg.Registry),
		logger:    logger,
	}
}

// ProgramID returns the program id authorities are derived under.
func (e *Engine) ProgramID() common.Hash {
	return e.programID
}

func (e *Engine) run(ctx context.Context, op string, keys []common.Hash, fn func(ctx context.Context, uow *host.UnitOfWork) error) error {
	timer := prometheus.NewTimer(e.metrics.duration.WithLabelValues(op))
	err := e.host.Execute(ctx, keys, fn)
	timer.ObserveDuration()
	e.metrics.observe(op, err)

	if err != nil {
		e.logger.Info("operation rejected", zap.String("operation", op), zap.Error(err))
		return err
	}
	e.logger.Debug("operation committed", zap.String("operation", op))
	return nil
}

func loadPool(ctx context.Context, pools storage.PoolStore, id common.Hash) (model.Pool, error) {
	pool, err := pools.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrPoolNotFound) {
			return model.Pool{}, fmt.Errorf("%w: %s", ErrPoolNotFound, id.Hex())
		}
		return model.Pool{}, fmt.Errorf("load pool: %w", err)
	}
	return pool, nil
}

func loadOperational(ctx context.Context, pools storage.PoolStore, id common.Hash) (model.Pool, error) {
	pool, err := loadPool(ctx, pools, id)
	if err != nil {
		return model.Pool{}, err
	}
	if !pool.Operational() {
		return model.Pool{}, fmt.Errorf("%w: pool %s is %s", ErrInvalidPoolState, id.Hex(), pool.State)
	}
	return pool, nil
}

// checkReserves rejects caller-supplied reserve ids that differ from the pool record.
func checkReserves(pool model.Pool, reserveA, reserveB common.Hash) error {
	if reserveA != pool.ReserveA || reserveB != pool.ReserveB {
		return fmt.Errorf("%w: got %s/%s, pool has %s/%s", ErrIncorrectPoolTokenAccount,
			reserveA.Hex(), reserveB.Hex(), pool.ReserveA.Hex(), pool.ReserveB.Hex())
	}
	return nil
}

// checkShareAccount verifies that account holds the pool's share asset.
func checkShareAccount(ctx context.Context, l ledger.Reader, pool model.Pool, shareAsset, account common.Hash) (ledger.Account, error) {
	if shareAsset != (common.Hash{}) && shareAsset != pool.ShareAsset {
		return ledger.Account{}, fmt.Errorf("%w: share asset %s, pool has %s", ErrIncorrectLPTokenAccount, shareAsset.Hex(), pool.ShareAsset.Hex())
	}
	acct, err := l.Account(ctx, account)
	if err != nil {
		return ledger.Account{}, err
	}
	if acct.Asset != pool.ShareAsset {
		return ledger.Account{}, fmt.Errorf("%w: account %s holds %s", ErrIncorrectLPTokenAccount, account.Hex(), acct.Asset.Hex())
	}
	return acct, nil
}

func snapshot(ctx context.Context, l ledger.Reader, pool model.Pool) (model.ReserveSnapshot, error) {
	var snap model.ReserveSnapshot
	if pool.Operational() {
		a, err := l.Account(ctx, pool.ReserveA)
		if err != nil {
			return snap, err
		}
		b, err := l.Account(ctx, pool.ReserveB)
		if err != nil {
			return snap, err
		}
		snap.ReserveA = a.Balance
		snap.ReserveB = b.Balance
	}
	share, err := l.Asset(ctx, pool.ShareAsset)
	if err != nil {
		return snap, err
	}
	snap.ShareSupply = share.Supply
	return snap, nil
}

func (e *Engine) poolSigner(pool model.Pool) ledger.Signer {
	return ledger.DerivedSigner(authority.PoolSigner(pool.ID, pool.AssetA, pool.AssetB, pool.Nonce))
}
