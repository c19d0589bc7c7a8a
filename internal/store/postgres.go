package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/db"
)

// Postgres stores accounts in the ledger_accounts table. Each transition is
// one database transaction holding transaction-scoped advisory locks on the
// touched addresses.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new PostgreSQL-backed store
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// advisoryKey folds an address into the bigint space of pg advisory locks.
func advisoryKey(addr address.Address) int64 {
	return int64(binary.BigEndian.Uint64(addr[:8]))
}

// Update runs fn inside a transaction and commits its writes.
func (s *Postgres) Update(ctx context.Context, keys []address.Address, fn func(Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, k := range sortedUnique(keys) {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey(k)); err != nil {
			return fmt.Errorf("failed to lock account %s: %w", k, err)
		}
	}

	ptx := &pgTx{ctx: ctx, tx: tx, pending: newPending()}
	if err := fn(ptx); err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_accounts (address, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (address) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	for _, addr := range ptx.pending.order {
		row := db.AccountRow{Address: addr.Bytes(), Data: ptx.pending.writes[addr]}
		if _, err := tx.Exec(ctx, query, row.Address, row.Data); err != nil {
			return fmt.Errorf("failed to write account %s: %w", addr, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get reads the committed state of one account.
func (s *Postgres) Get(ctx context.Context, addr address.Address) ([]byte, error) {
	return selectAccount(ctx, s.pool, addr)
}

// Close is a no-op; the pool is closed by its own lifecycle hook.
func (s *Postgres) Close() error {
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func selectAccount(ctx context.Context, q querier, addr address.Address) ([]byte, error) {
	query := `
		SELECT address, data, updated_at
		FROM ledger_accounts
		WHERE address = $1
	`
	var row db.AccountRow
	err := q.QueryRow(ctx, query, addr.Bytes()).Scan(&row.Address, &row.Data, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account %s: %w", addr, err)
	}
	return row.Data, nil
}

type pgTx struct {
	ctx     context.Context
	tx      pgx.Tx
	pending *pending
}

func (t *pgTx) Get(addr address.Address) ([]byte, error) {
	if data, ok := t.pending.get(addr); ok {
		return data, nil
	}
	return selectAccount(t.ctx, t.tx, addr)
}

func (t *pgTx) Exists(addr address.Address) (bool, error) {
	if _, ok := t.pending.writes[addr]; ok {
		return true, nil
	}
	var exists bool
	err := t.tx.QueryRow(t.ctx, `SELECT EXISTS (SELECT 1 FROM ledger_accounts WHERE address = $1)`, addr.Bytes()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account %s: %w", addr, err)
	}
	return exists, nil
}

func (t *pgTx) Put(addr address.Address, data []byte) {
	t.pending.put(addr, data)
}

func (t *pgTx) MarkProcessed(id string) error {
	tag, err := t.tx.Exec(t.ctx, `
		INSERT INTO processed_instructions (id, processed_at)
		VALUES ($1, now())
		ON CONFLICT (id) DO NOTHING
	`, id)
	if err != nil {
		return fmt.Errorf("failed to record instruction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}
