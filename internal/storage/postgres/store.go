package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammEngine/internal/model"
	"ammEngine/internal/storage"
)

// Store provides Postgres persistence for pools, journals and metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id common.Hash) (model.Pool, error) {
	var (
		pool                               model.Pool
		assetA, assetB, reserveA, reserveB string
		shareAsset                         string
		nonce, state                       int16
	)
	row := s.pool.QueryRow(ctx, `
		SELECT nonce, asset_a, asset_b, reserve_a, reserve_b, share_asset, state
		FROM pools WHERE pool_id=$1
	`, id.Hex())
	if err := row.Scan(&nonce, &assetA, &assetB, &reserveA, &reserveB, &shareAsset, &state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, id.Hex())
		}
		return model.Pool{}, err
	}

	pool.ID = id
	pool.Nonce = uint8(nonce)
	pool.AssetA = common.HexToHash(assetA)
	pool.AssetB = common.HexToHash(assetB)
	pool.ReserveA = common.HexToHash(reserveA)
	pool.ReserveB = common.HexToHash(reserveB)
	pool.ShareAsset = common.HexToHash(shareAsset)
	pool.State = model.PoolState(state)
	return pool, nil
}

// Create inserts a pool record. The primary key on pool_id rejects a second
// record for the same pair.
func (s *Store) Create(ctx context.Context, pool model.Pool) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			pool_id, nonce, asset_a, asset_b, reserve_a, reserve_b, share_asset, state, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (pool_id) DO NOTHING
	`,
		pool.ID.Hex(),
		int16(pool.Nonce),
		pool.AssetA.Hex(),
		pool.AssetB.Hex(),
		pool.ReserveA.Hex(),
		pool.ReserveB.Hex(),
		pool.ShareAsset.Hex(),
		int16(pool.State),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrPoolExists, pool.ID.Hex())
	}
	return nil
}

func (s *Store) Update(ctx context.Context, pool model.Pool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pools SET
			reserve_a = $2,
			reserve_b = $3,
			state = $4,
			updated_at = now()
		WHERE pool_id = $1
	`,
		pool.ID.Hex(),
		pool.ReserveA.Hex(),
		pool.ReserveB.Hex(),
		int16(pool.State),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrPoolNotFound, pool.ID.Hex())
	}
	return nil
}

// PutRecords appends operation records to the operations table. A record
// already stored for the same script line is kept, so a replayed batch does
// not duplicate rows.
func (s *Store) PutRecords(ctx context.Context, records []model.OperationRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO operations (
				script, sequence, operation, pool_id, caller, direction,
				amount_a, amount_b, amount_in, amount_out, fee,
				shares_minted, shares_burned, reserve_a, reserve_b, share_supply,
				error, ts, recorded_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			ON CONFLICT (script, sequence) DO NOTHING
		`,
			r.Script,
			int64(r.Sequence),
			r.Operation,
			nullable(r.Pool),
			nullable(r.Caller),
			nullable(r.Direction),
			nullable(r.AmountA),
			nullable(r.AmountB),
			nullable(r.AmountIn),
			nullable(r.AmountOut),
			nullable(r.Fee),
			nullable(r.SharesMinted),
			nullable(r.SharesBurned),
			nullable(r.ReserveA),
			nullable(r.ReserveB),
			nullable(r.ShareSupply),
			nullable(r.Error),
			int64(r.Timestamp),
			r.RecordedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_id, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, volume_a, volume_b, fee_a, fee_b, fee_rate_a, fee_rate_b,
				tvl_a, tvl_b, apr, deposits, withdrawals, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			ON CONFLICT (pool_id, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				volume_a = EXCLUDED.volume_a,
				volume_b = EXCLUDED.volume_b,
				fee_a = EXCLUDED.fee_a,
				fee_b = EXCLUDED.fee_b,
				fee_rate_a = EXCLUDED.fee_rate_a,
				fee_rate_b = EXCLUDED.fee_rate_b,
				tvl_a = EXCLUDED.tvl_a,
				tvl_b = EXCLUDED.tvl_b,
				apr = EXCLUDED.apr,
				deposits = EXCLUDED.deposits,
				withdrawals = EXCLUDED.withdrawals,
				updated_at = now()
		`,
			m.PoolAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			m.VolumeA,
			m.VolumeB,
			m.FeeA,
			m.FeeB,
			m.FeeRateA,
			m.FeeRateB,
			m.TVLA,
			m.TVLB,
			m.APR,
			int64(m.Deposits),
			int64(m.Withdrawals),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM aggregate_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO aggregate_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
