package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Staged buffers ledger writes over a backend until Commit. Reads see the
// buffered state first. A Staged view is single-use.
type Staged struct {
	ctx     context.Context
	backend Backend

	mu       sync.Mutex
	closed   bool
	assets   map[common.Hash]Asset
	accounts map[common.Hash]Account
	calls    int
}

func NewStaged(ctx context.Context, backend Backend) *Staged {
	return &Staged{
		ctx:      ctx,
		backend:  backend,
		assets:   make(map[common.Hash]Asset),
		accounts: make(map[common.Hash]Account),
	}
}

func (s *Staged) Asset(ctx context.Context, id common.Hash) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAsset(id)
}

func (s *Staged) Account(ctx context.Context, id common.Hash) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccount(id)
}

func (s *Staged) Transfer(ctx context.Context, asset, from, to common.Hash, amount uint64, signer Signer) error {
	return s.write(ctx, func() error {
		return transfer(s, s.backend.ProgramID(), asset, from, to, amount, signer)
	})
}

func (s *Staged) Mint(ctx context.Context, asset, to common.Hash, amount uint64, signer Signer) error {
	return s.write(ctx, func() error {
		return mint(s, s.backend.ProgramID(), asset, to, amount, signer)
	})
}

func (s *Staged) Burn(ctx context.Context, asset, from common.Hash, amount uint64, signer Signer) error {
	return s.write(ctx, func() error {
		return burn(s, s.backend.ProgramID(), asset, from, amount, signer)
	})
}

// Calls returns the number of successful write calls staged so far.
func (s *Staged) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Commit applies every buffered entry to the backend.
func (s *Staged) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStagedClosed
	}
	s.closed = true
	if err := ctx.Err(); err != nil {
		return err
	}

	accounts := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	assets := make([]Asset, 0, len(s.assets))
	for _, a := range s.assets {
		assets = append(assets, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID.Cmp(accounts[j].ID) < 0 })
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID.Cmp(assets[j].ID) < 0 })

	return s.backend.Apply(ctx, accounts, assets)
}

// Discard drops every buffered entry.
func (s *Staged) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.assets = nil
	s.accounts = nil
}

func (s *Staged) write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStagedClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	s.calls++
	return nil
}

func (s *Staged) getAsset(id common.Hash) (Asset, error) {
	if a, ok := s.assets[id]; ok {
		return a, nil
	}
	return s.backend.Asset(s.ctx, id)
}

func (s *Staged) getAccount(id common.Hash) (Account, error) {
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return s.backend.Account(s.ctx, id)
}

func (s *Staged) putAsset(asset Asset) {
	s.assets[asset.ID] = asset
}

func (s *Staged) putAccount(account Account) {
	s.accounts[account.ID] = account
}
