package host

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type lockEntry struct {
	// holds one token while the key is locked
	slot chan struct{}
	refs int
}

// keyLocks hands out one exclusive lock per key. Entries are dropped once no
// holder or waiter references them.
type keyLocks struct {
	mu      sync.Mutex
	entries map[common.Hash]*lockEntry
}

func newKeyLocks() *keyLocks {
	return &keyLocks{entries: make(map[common.Hash]*lockEntry)}
}

// lock acquires every key in byte order and returns the release func. It
// gives up with ctx's error, releasing what it already holds, when ctx ends
// first.
func (l *keyLocks) lock(ctx context.Context, keys []common.Hash) (func(), error) {
	ordered := normalizeKeys(keys)
	held := make([]*lockEntry, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].slot
			l.unref(ordered[i])
		}
	}

	for _, key := range ordered {
		entry := l.ref(key)
		select {
		case entry.slot <- struct{}{}:
			held = append(held, entry)
		case <-ctx.Done():
			l.unref(key)
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func (l *keyLocks) ref(key common.Hash) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{slot: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *keyLocks) unref(key common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *keyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func normalizeKeys(keys []common.Hash) []common.Hash {
	out := make([]common.Hash, 0, len(keys))
	seen := make(map[common.Hash]struct{}, len(keys))
	for _, key := range keys {
		if key == (common.Hash{}) {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
