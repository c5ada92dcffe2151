package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Memory is an in-process reference ledger.
type Memory struct {
	programID common.Hash

	mu       sync.RWMutex
	assets   map[common.Hash]Asset
	accounts map[common.Hash]Account
}

func NewMemory(programID common.Hash) *Memory {
	return &Memory{
		programID: programID,
		assets:    make(map[common.Hash]Asset),
		accounts:  make(map[common.Hash]Account),
	}
}

func (m *Memory) ProgramID() common.Hash {
	return m.programID
}

// CreateAsset registers a new asset with zero supply.
func (m *Memory) CreateAsset(ctx context.Context, id common.Hash, decimals uint8, mintAuthority common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[id]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, id.Hex())
	}
	m.assets[id] = Asset{ID: id, Decimals: decimals, MintAuthority: mintAuthority}
	return nil
}

// CreateAccount opens an empty account for asset owned by owner.
func (m *Memory) CreateAccount(ctx context.Context, id, asset, owner common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, id.Hex())
	}
	if _, ok := m.assets[asset]; !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, asset.Hex())
	}
	m.accounts[id] = Account{ID: id, Asset: asset, Owner: owner}
	return nil
}

// Fund credits an account outside any mint authority, for genesis balances.
func (m *Memory) Fund(ctx context.Context, id common.Hash, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, err := m.getAccount(id)
	if err != nil {
		return err
	}
	asset, err := m.getAsset(acct.Asset)
	if err != nil {
		return err
	}
	if acct.Balance+amount < acct.Balance || asset.Supply+amount < asset.Supply {
		return fmt.Errorf("%w: fund %s", ErrBalanceOverflow, id.Hex())
	}
	acct.Balance += amount
	asset.Supply += amount
	m.accounts[id] = acct
	m.assets[asset.ID] = asset
	return nil
}

func (m *Memory) Asset(ctx context.Context, id common.Hash) (Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAsset(id)
}

func (m *Memory) Account(ctx context.Context, id common.Hash) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccount(id)
}

func (m *Memory) Transfer(ctx context.Context, asset, from, to common.Hash, amount uint64, signer Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return transfer(m, m.programID, asset, from, to, amount, signer)
}

func (m *Memory) Mint(ctx context.Context, asset, to common.Hash, amount uint64, signer Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mint(m, m.programID, asset, to, amount, signer)
}

func (m *Memory) Burn(ctx context.Context, asset, from common.Hash, amount uint64, signer Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return burn(m, m.programID, asset, from, amount, signer)
}

// Apply writes a staged view's entries in one critical section.
func (m *Memory) Apply(ctx context.Context, accounts []Account, assets []Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acct := range accounts {
		if _, ok := m.accounts[acct.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, acct.ID.Hex())
		}
	}
	for _, asset := range assets {
		if _, ok := m.assets[asset.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, asset.ID.Hex())
		}
	}
	for _, acct := range accounts {
		m.accounts[acct.ID] = acct
	}
	for _, asset := range assets {
		m.assets[asset.ID] = asset
	}
	return nil
}

// Entries returns all assets and accounts sorted by id.
func (m *Memory) Entries() ([]Asset, []Account) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assets := make([]Asset, 0, len(m.assets))
	for _, a := range m.assets {
		assets = append(assets, a)
	}
	accounts := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID.Cmp(assets[j].ID) < 0 })
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID.Cmp(accounts[j].ID) < 0 })
	return assets, accounts
}

func (m *Memory) getAsset(id common.Hash) (Asset, error) {
	a, ok := m.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id.Hex())
	}
	return a, nil
}

func (m *Memory) getAccount(id common.Hash) (Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id.Hex())
	}
	return a, nil
}

func (m *Memory) putAsset(asset Asset) {
	m.assets[asset.ID] = asset
}

func (m *Memory) putAccount(account Account) {
	m.accounts[account.ID] = account
}
