package postgres

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id     TEXT PRIMARY KEY,
	nonce       SMALLINT NOT NULL,
	asset_a     TEXT NOT NULL,
	asset_b     TEXT NOT NULL,
	reserve_a   TEXT NOT NULL,
	reserve_b   TEXT NOT NULL,
	share_asset TEXT NOT NULL,
	state       SMALLINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS operations (
	script        TEXT NOT NULL DEFAULT '',
	sequence      BIGINT NOT NULL,
	operation     TEXT NOT NULL,
	pool_id       TEXT,
	caller        TEXT,
	direction     TEXT,
	amount_a      NUMERIC,
	amount_b      NUMERIC,
	amount_in     NUMERIC,
	amount_out    NUMERIC,
	fee           NUMERIC,
	shares_minted NUMERIC,
	shares_burned NUMERIC,
	reserve_a     NUMERIC,
	reserve_b     NUMERIC,
	share_supply  NUMERIC,
	error         TEXT,
	ts            BIGINT NOT NULL,
	recorded_at   TEXT NOT NULL,
	PRIMARY KEY (script, sequence)
);

CREATE INDEX IF NOT EXISTS operations_pool_ts ON operations (pool_id, ts);

CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_id             TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	swap_count          BIGINT NOT NULL,
	volume_a            NUMERIC NOT NULL,
	volume_b            NUMERIC NOT NULL,
	fee_a               NUMERIC NOT NULL,
	fee_b               NUMERIC NOT NULL,
	fee_rate_a          NUMERIC,
	fee_rate_b          NUMERIC,
	tvl_a               NUMERIC,
	tvl_b               NUMERIC,
	apr                 NUMERIC,
	deposits            BIGINT NOT NULL,
	withdrawals         BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pool_id, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS aggregate_state (
	name              TEXT PRIMARY KEY,
	last_processed_ts BIGINT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
`
