package store

import (
	"sync"

	"github.com/septivank/greenmove-rewards/internal/address"
)

// Locker hands out per-address mutexes. Transitions touching disjoint
// address sets never block each other.
type Locker struct {
	mu    sync.Mutex
	locks map[address.Address]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[address.Address]*lockEntry)}
}

// Lock acquires every key in bytewise order and returns the release func.
func (l *Locker) Lock(keys []address.Address) func() {
	ordered := sortedUnique(keys)
	entries := make([]*lockEntry, len(ordered))

	l.mu.Lock()
	for i, k := range ordered {
		e, ok := l.locks[k]
		if !ok {
			e = &lockEntry{}
			l.locks[k] = e
		}
		e.refs++
		entries[i] = e
	}
	l.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
		l.mu.Lock()
		for i, k := range ordered {
			entries[i].refs--
			if entries[i].refs == 0 {
				delete(l.locks, k)
			}
		}
		l.mu.Unlock()
	}
}

// held reports the number of addresses with outstanding lock references.
func (l *Locker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
