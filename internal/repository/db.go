package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	pool *sql.DB
}

func NewDB(pool *sql.DB) *DB {
	return &DB{pool: pool}
}

func (d *DB) Conn() *sql.DB {
	return d.pool
}

func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := d.pool.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	return tx, nil
}

// Do runs fn inside one database transaction. The scope is detached from
// the caller's cancellation: once started it runs to commit or rollback.
func (d *DB) Do(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	ctx = context.WithoutCancel(ctx)

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Do: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newPgTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Do: commit: %w", err)
	}
	return nil
}

type pgTx struct {
	wallets      *WalletRepository
	transactions *TransactionRepository
	ledger       *LedgerRepository
	users        *UserRepository
}

func newPgTx(tx *sql.Tx) *pgTx {
	return &pgTx{
		wallets:      &WalletRepository{q: tx},
		transactions: &TransactionRepository{q: tx},
		ledger:       &LedgerRepository{q: tx},
		users:        &UserRepository{q: tx},
	}
}

func (t *pgTx) LockWallets(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	locked := make(map[uuid.UUID]*domain.Wallet, len(ids))
	for _, id := range store.LockOrder(ids) {
		w, err := t.wallets.getForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("LockWallets: %w", err)
		}
		locked[id] = w
	}
	return locked, nil
}

func (t *pgTx) Wallets() store.WalletStore           { return t.wallets }
func (t *pgTx) Transactions() store.TransactionStore { return t.transactions }
func (t *pgTx) Ledger() store.LedgerStore            { return t.ledger }
func (t *pgTx) Users() store.UserStore               { return t.users }

// jsonArg passes JSON to a jsonb column as text; lib/pq would otherwise
// send []byte as bytea.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
