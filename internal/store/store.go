// Package store declares the storage ports the ledger engine runs against.
// Mutations happen only through a Tx obtained from a UnitOfWork.
package store

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

type WalletStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Create(ctx context.Context, wallet *domain.Wallet) error
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

type TransactionStore interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	// UpdateStatus moves a pending transaction to a terminal status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error
}

type LedgerStore interface {
	Create(ctx context.Context, entry *domain.LedgerEntry) error
	Totals(ctx context.Context, walletID uuid.UUID) (domain.LedgerTotals, error)
}

type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Tx is one atomic scope. Wallet rows are locked only through LockWallets,
// which always locks in ascending id order.
type Tx interface {
	LockWallets(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error)
	Wallets() WalletStore
	Transactions() TransactionStore
	Ledger() LedgerStore
	Users() UserStore
}

// UnitOfWork commits when fn returns nil and rolls back otherwise,
// including when fn panics.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// LockOrder de-duplicates ids and sorts them ascending. Every LockWallets
// implementation acquires locks in this order.
func LockOrder(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	sorted := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})
	return sorted
}
