package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint tracks the last script line whose effects are durable.
// PendingLine is the end of a batch that was started but not finished; pool
// records written by that batch may already be durable.
type Checkpoint struct {
	Script            string `json:"script"`
	LastProcessedLine uint64 `json:"last_processed_line"`
	PendingLine       uint64 `json:"pending_line,omitempty"`
	UpdatedAt         string `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

// Load returns the stored checkpoint. A checkpoint written for another
// script is an error rather than a silent restart.
func (c *CheckpointStore) Load(script string) (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Script != "" && cp.Script != script {
		return Checkpoint{}, false, fmt.Errorf("checkpoint belongs to %s, not %s", cp.Script, script)
	}
	return cp, true, nil
}

// Save marks every line up to lastProcessed as done.
func (c *CheckpointStore) Save(script string, lastProcessed uint64) error {
	return c.write(Checkpoint{Script: script, LastProcessedLine: lastProcessed})
}

// Begin records that lines up to pending are about to run.
func (c *CheckpointStore) Begin(script string, lastProcessed, pending uint64) error {
	return c.write(Checkpoint{Script: script, LastProcessedLine: lastProcessed, PendingLine: pending})
}

func (c *CheckpointStore) write(cp Checkpoint) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
