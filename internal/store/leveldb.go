package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var (
	accountPrefix     = []byte("acct/")
	instructionPrefix = []byte("ix/")
)

// LevelDB is an embedded account store. Address locking is done in process
// and each transition commits as a single write batch.
type LevelDB struct {
	db    *leveldb.DB
	locks *Locker
	sync  bool
}

// OpenLevelDB creates or opens a LevelDB database at path. With syncWrites
// every commit is fsynced before Update returns.
func OpenLevelDB(path string, syncWrites bool) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("[LEVELDB] failed to open %s: %w", path, err)
	}
	return &LevelDB{db: db, locks: NewLocker(), sync: syncWrites}, nil
}

// NewMemory returns a LevelDB store backed by memory, for tests and dry runs.
func NewMemory() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("[LEVELDB] failed to open memory storage: %w", err)
	}
	return &LevelDB{db: db, locks: NewLocker()}, nil
}

func accountKey(addr address.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr[:]...)
}

func instructionKey(id string) []byte {
	return append(append([]byte{}, instructionPrefix...), id...)
}

// Update runs fn with the keys locked and commits its writes in one batch.
func (s *LevelDB) Update(ctx context.Context, keys []address.Address, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.Lock(keys)
	defer unlock()

	tx := &levelTx{db: s.db, pending: newPending(), processed: map[string]bool{}}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.pending.order) == 0 && len(tx.processed) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	for _, addr := range tx.pending.order {
		batch.Put(accountKey(addr), tx.pending.writes[addr])
	}
	for id := range tx.processed {
		batch.Put(instructionKey(id), []byte{1})
	}
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: s.sync}); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}
	return nil
}

func (s *LevelDB) Get(ctx context.Context, addr address.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return getAccount(s.db, addr)
}

func (s *LevelDB) Close() error {
	return s.db.Close()
}

func getAccount(db *leveldb.DB, addr address.Address) ([]byte, error) {
	data, err := db.Get(accountKey(addr), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", addr, err)
	}
	return data, nil
}

type levelTx struct {
	db        *leveldb.DB
	pending   *pending
	processed map[string]bool
}

func (tx *levelTx) Get(addr address.Address) ([]byte, error) {
	if data, ok := tx.pending.get(addr); ok {
		return data, nil
	}
	return getAccount(tx.db, addr)
}

func (tx *levelTx) Exists(addr address.Address) (bool, error) {
	if _, ok := tx.pending.writes[addr]; ok {
		return true, nil
	}
	ok, err := tx.db.Has(accountKey(addr), nil)
	if err != nil {
		return false, fmt.Errorf("failed to check account %s: %w", addr, err)
	}
	return ok, nil
}

func (tx *levelTx) Put(addr address.Address, data []byte) {
	tx.pending.put(addr, data)
}

func (tx *levelTx) MarkProcessed(id string) error {
	if tx.processed[id] {
		return ErrAlreadyProcessed
	}
	seen, err := tx.db.Has(instructionKey(id), nil)
	if err != nil {
		return fmt.Errorf("failed to check instruction %s: %w", id, err)
	}
	if seen {
		return ErrAlreadyProcessed
	}
	tx.processed[id] = true
	return nil
}
