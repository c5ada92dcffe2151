package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ammEngine/internal/engine"
	"ammEngine/internal/model"
	"ammEngine/internal/storage"
)

// RunConfig holds runtime settings for a script run.
type RunConfig struct {
	ScriptPath        string
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	StopOnError       bool
}

// Snapshotter persists ledger state after each batch.
type Snapshotter interface {
	SaveSnapshot(path string) error
}

// Summary counts what a run did.
type Summary struct {
	Executed uint64
	Failed   uint64
	Skipped  uint64
}

// Runner executes a JSONL instruction script against the engine and journals
// one record per instruction.
type Runner struct {
	cfg        RunConfig
	engine     *engine.Engine
	admin      Admin
	journals   []storage.Journal
	logger     *zap.Logger
	checkpoint *CheckpointStore
	clock      func() time.Time

	snapshot     Snapshotter
	snapshotPath string
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, eng *engine.Engine, admin Admin, journals []storage.Journal, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		engine:     eng,
		admin:      admin,
		journals:   journals,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		clock:      time.Now,
	}
}

// WithSnapshot saves the ledger to path after every batch.
func (r *Runner) WithSnapshot(s Snapshotter, path string) *Runner {
	r.snapshot = s
	r.snapshotPath = path
	return r
}

// Run executes the script from the line after the checkpoint to the end.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if r.engine == nil {
		return summary, fmt.Errorf("engine is nil")
	}
	if r.admin == nil {
		return summary, fmt.Errorf("ledger admin is nil")
	}
	if r.cfg.BatchSize == 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}

	lines, err := ReadScript(r.cfg.ScriptPath)
	if err != nil {
		return summary, err
	}
	if len(lines) == 0 {
		r.logger.Info("empty script", zap.String("script", r.cfg.ScriptPath))
		return summary, nil
	}
	script := filepath.Base(r.cfg.ScriptPath)

	from := uint64(1)
	to := uint64(len(lines))
	cp, ok, err := r.checkpoint.Load(script)
	if err != nil {
		return summary, err
	}
	var replayTo uint64
	if ok && cp.LastProcessedLine >= from {
		from = cp.LastProcessedLine + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedLine), zap.Uint64("from", from))
	}
	if ok && cp.PendingLine >= from {
		replayTo = cp.PendingLine
		r.logger.Info("replaying interrupted batch", zap.Uint64("from", from), zap.Uint64("to", replayTo))
	}
	if from > to {
		r.logger.Info("nothing to run", zap.Uint64("from", from), zap.Uint64("to", to))
		return summary, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, batch := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if err := r.checkpoint.Begin(script, batch.From-1, batch.To); err != nil {
			return summary, err
		}

		records := make([]model.OperationRecord, 0, batch.To-batch.From+1)
		var stopErr error
		last := batch.To
		for line := batch.From; line <= batch.To; line++ {
			instr := lines[line-1]
			if instr == nil {
				summary.Skipped++
				continue
			}

			record := r.apply(ctx, script, line, instr, line <= replayTo)
			records = append(records, record)
			summary.Executed++
			if record.Failed() {
				summary.Failed++
				if r.cfg.StopOnError {
					stopErr = fmt.Errorf("line %d %s: %s", line, instr.Op, record.Error)
					last = line
					break
				}
			}
		}

		if err := r.flush(ctx, records); err != nil {
			return summary, fmt.Errorf("write journals: %w", err)
		}
		if r.snapshot != nil && r.snapshotPath != "" {
			if err := r.snapshot.SaveSnapshot(r.snapshotPath); err != nil {
				return summary, fmt.Errorf("save ledger snapshot: %w", err)
			}
		}
		if err := r.checkpoint.Save(script, last); err != nil {
			return summary, err
		}

		r.logger.Info("batch complete", zap.Int("records", len(records)), zap.Uint64("from", batch.From), zap.Uint64("to", last))
		if stopErr != nil {
			return summary, stopErr
		}
	}

	return summary, nil
}

func (r *Runner) apply(ctx context.Context, script string, line uint64, instr *model.Instruction, replay bool) model.OperationRecord {
	now := r.clock()
	ts := instr.Timestamp
	if ts == 0 {
		ts = uint64(now.Unix())
	}

	out, err := r.execute(ctx, instr)
	if err != nil && replay {
		out, err = r.acceptReplayed(ctx, instr, out, err)
		if err == nil {
			r.logger.Info("pool initialization already durable", zap.Uint64("line", line), zap.String("op", instr.Op))
		}
	}
	if err != nil {
		r.logger.Warn("instruction failed", zap.Uint64("line", line), zap.String("op", instr.Op), zap.Error(err))
	}
	record := buildRecord(line, instr.Op, out, err, ts, now)
	record.Script = script
	return record
}

// flush writes records to every journal in parallel.
func (r *Runner) flush(ctx context.Context, records []model.OperationRecord) error {
	if len(records) == 0 || len(r.journals) == 0 {
		return nil
	}
	retry := newBackoff(r.cfg.MaxRetries, r.cfg.RetryBackoff)
	retry.onRetry = func(attempt int, wait time.Duration, err error) {
		r.logger.Warn("journal write failed",
			zap.Error(err),
			zap.Int("records", len(records)),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, journal := range r.journals {
		journal := journal
		g.Go(func() error {
			return retry.do(gctx, func(ctx context.Context) error {
				return journal.PutRecords(ctx, records)
			})
		})
	}
	return g.Wait()
}
