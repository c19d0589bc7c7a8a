// Package store persists ledger accounts by address.
//
// A state transition runs through Update: the addresses it touches are
// locked for its duration, reads see the transition's own pending writes,
// and the writes commit atomically only when the transition returns nil.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/septivank/greenmove-rewards/internal/address"
	"lukechampine.com/blake3"
)

var (
	ErrNotFound         = errors.New("store: account not found")
	ErrAlreadyProcessed = errors.New("store: instruction already processed")
)

// Tx is the view of the ledger inside one transition.
type Tx interface {
	Get(addr address.Address) ([]byte, error)
	Exists(addr address.Address) (bool, error)
	Put(addr address.Address, data []byte)
	// MarkProcessed records an instruction id; it fails with
	// ErrAlreadyProcessed when the id was committed before.
	MarkProcessed(id string) error
}

// Store runs transitions against persisted accounts.
type Store interface {
	Update(ctx context.Context, keys []address.Address, fn func(Tx) error) error
	Get(ctx context.Context, addr address.Address) ([]byte, error)
	Close() error
}

// InstructionKey is the lock key for an instruction id, so that concurrent
// deliveries of the same instruction serialize.
func InstructionKey(id string) address.Address {
	return address.Address(blake3.Sum256([]byte("instruction:" + id)))
}

// sortedUnique returns keys ordered bytewise without duplicates. Locks are
// always acquired in this order.
func sortedUnique(keys []address.Address) []address.Address {
	out := make([]address.Address, len(keys))
	copy(out, keys)
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}

// pending buffers a transition's writes in order.
type pending struct {
	writes map[address.Address][]byte
	order  []address.Address
}

func newPending() *pending {
	return &pending{writes: make(map[address.Address][]byte)}
}

func (p *pending) put(addr address.Address, data []byte) {
	if _, ok := p.writes[addr]; !ok {
		p.order = append(p.order, addr)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	p.writes[addr] = buf
}

func (p *pending) get(addr address.Address) ([]byte, bool) {
	data, ok := p.writes[addr]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}
