// Package memory is an in-process implementation of the storage ports.
// Wallet row locks are per-wallet mutexes; writes made inside a unit of
// work are journaled and applied on commit or discarded on rollback.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

// Op names a write that a test can make fail with SetFault.
type Op string

const (
	OpCreateTransaction Op = "transactions.create"
	OpUpdateStatus      Op = "transactions.update_status"
	OpUpdateBalance     Op = "wallets.update_balance"
	OpCreateLedgerEntry Op = "ledger.create"
	OpCreateActivityLog Op = "activity_logs.create"
)

type snapshotKey struct {
	walletID uuid.UUID
	date     string
}

type Store struct {
	mu sync.Mutex

	users        map[uuid.UUID]domain.User
	wallets      map[uuid.UUID]domain.Wallet
	transactions map[uuid.UUID]domain.Transaction
	entries      []domain.LedgerEntry
	snapshots    map[snapshotKey]domain.BalanceSnapshot
	activity     []domain.ActivityLog

	// Unique indexes. A key is claimed as soon as an in-flight scope
	// inserts it and released again if that scope rolls back.
	keys         map[string]uuid.UUID
	emails       map[string]uuid.UUID
	walletOwners map[uuid.UUID]uuid.UUID

	rowLocks map[uuid.UUID]*sync.Mutex
	faults   map[Op]error
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]domain.User),
		wallets:      make(map[uuid.UUID]domain.Wallet),
		transactions: make(map[uuid.UUID]domain.Transaction),
		snapshots:    make(map[snapshotKey]domain.BalanceSnapshot),
		keys:         make(map[string]uuid.UUID),
		emails:       make(map[string]uuid.UUID),
		walletOwners: make(map[uuid.UUID]uuid.UUID),
		rowLocks:     make(map[uuid.UUID]*sync.Mutex),
		faults:       make(map[Op]error),
	}
}

// SetFault makes every subsequent op fail with err until cleared with a
// nil err.
func (s *Store) SetFault(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faults[op]
}

// PutUser and PutWallet insert committed rows directly, bypassing any unit
// of work. They exist for seeding.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.emails[emailKey(u.Email)] = u.ID
}

func (s *Store) PutWallet(w domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.ID] = w
	s.walletOwners[w.UserID] = w.ID
}

func (s *Store) rowLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[id] = l
	}
	return l
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx := newMemTx(s)

	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
		tx.unlockAll()
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	tx.commit()
	committed = true
	return nil
}

func (s *Store) Wallets() *WalletRepository           { return &WalletRepository{s: s} }
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s: s} }
func (s *Store) Ledger() *LedgerRepository            { return &LedgerRepository{s: s} }
func (s *Store) Users() *UserRepository               { return &UserRepository{s: s} }
func (s *Store) Snapshots() *SnapshotRepository       { return &SnapshotRepository{s: s} }
func (s *Store) ActivityLogs() *ActivityLogRepository { return &ActivityLogRepository{s: s} }

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
