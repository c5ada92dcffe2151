package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type snapshot struct {
	ProgramID common.Hash `json:"program_id"`
	Assets    []Asset     `json:"assets"`
	Accounts  []Account   `json:"accounts"`
	UpdatedAt string      `json:"updated_at"`
}

// SaveSnapshot writes the ledger state to path atomically.
func (m *Memory) SaveSnapshot(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	assets, accounts := m.Entries()
	data, err := json.Marshal(snapshot{
		ProgramID: m.programID,
		Assets:    assets,
		Accounts:  accounts,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores a ledger from path. A missing file yields an empty
// ledger for programID.
func LoadSnapshot(path string, programID common.Hash) (*Memory, error) {
	m := NewMemory(programID)
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.ProgramID != programID {
		return nil, fmt.Errorf("snapshot program %s does not match %s", snap.ProgramID.Hex(), programID.Hex())
	}
	for _, a := range snap.Assets {
		m.assets[a.ID] = a
	}
	for _, a := range snap.Accounts {
		m.accounts[a.ID] = a
	}
	return m, nil
}
