package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammEngine/internal/config"
	"ammEngine/internal/engine"
	"ammEngine/internal/host"
	"ammEngine/internal/ledger"
	"ammEngine/internal/runner"
	"ammEngine/internal/storage"
	"ammEngine/internal/storage/pebble"
	"ammEngine/internal/storage/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ammctl",
		Short:        "Constant-product pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute an instruction script",
		RunE:  runScript,
	}

	runCmd.Flags().String("program-id", config.DefaultProgramID, "program id the authorities derive under")
	runCmd.Flags().String("in", "", "input instruction script JSONL")
	runCmd.Flags().String("out", "./data/operations.jsonl", "operations journal JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().String("ledger-state", "./data/ledger.json", "ledger snapshot path")
	runCmd.Flags().String("store", config.StorePebble, "pool store (memory, pebble, postgres)")
	runCmd.Flags().String("pebble-path", "./data/pools", "pebble directory for the pool store")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (pool store and operations journal)")
	runCmd.Flags().Uint64("batch-size", 100, "instructions per batch")
	runCmd.Flags().Int("cache-size", 1024, "pool record cache entries")
	runCmd.Flags().Int("max-retries", 5, "maximum journal write attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Bool("stop-on-error", false, "stop at the first rejected instruction")
	runCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)
	root.AddCommand(newDeriveCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newPoolsCmd())

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate an operations journal into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "", "input operations journal JSONL")
	aggregateCmd.Flags().String("out", "", "write window metrics as JSONL instead of Postgres")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)
	return root
}

func runScript(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	programID, err := runner.ParseHash(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("parse program id: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	book, err := ledger.LoadSnapshot(cfg.LedgerState, programID)
	if err != nil {
		return err
	}

	journals := []storage.Journal{storage.NewJsonlJournal(cfg.Out)}

	var pg *postgres.Store
	if cfg.PGDSN != "" {
		pg, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		journals = append(journals, pg)
	}

	var pools storage.PoolStore
	switch cfg.Store {
	case config.StorePebble:
		db, err := pebble.Open(cfg.PebblePath)
		if err != nil {
			return err
		}
		defer db.Close()
		pools = db
	case config.StorePostgres:
		pools = pg
	default:
		pools = storage.NewMemory()
	}

	cached, err := storage.NewCached(pools, cfg.CacheSize)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	eng := engine.New(host.New(book, cached, logger), engine.Config{
		Registry: registry,
		Logger:   logger,
	})

	r := runner.NewRunner(runner.RunConfig{
		ScriptPath:        cfg.In,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		StopOnError:       cfg.StopOnError,
	}, eng, book, journals, logger)
	if cfg.LedgerState != "" {
		r.WithSnapshot(book, cfg.LedgerState)
	}

	logger.Info("run start",
		zap.String("program_id", programID.Hex()),
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("store", cfg.Store),
		zap.Bool("postgres_journal", pg != nil),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.Bool("stop_on_error", cfg.StopOnError),
	)

	summary, runErr := r.Run(ctx)

	hits, misses := cached.Stats()
	logger.Info("run finished",
		zap.Uint64("executed", summary.Executed),
		zap.Uint64("failed", summary.Failed),
		zap.Uint64("skipped", summary.Skipped),
		zap.Uint64("pool_cache_hits", hits),
		zap.Uint64("pool_cache_misses", misses),
	)

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, registry); err != nil {
			logger.Warn("write metrics file", zap.Error(err), zap.String("path", cfg.MetricsFile))
		}
	}
	return runErr
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
