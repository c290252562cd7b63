package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

type memTx struct {
	s *Store

	held   []*sync.Mutex
	locked map[uuid.UUID]bool

	balances      map[uuid.UUID]decimal.Decimal
	newUsers      []domain.User
	newWallets    []domain.Wallet
	newTxns       []domain.Transaction
	statusChanges map[uuid.UUID]domain.TransactionStatus
	newEntries    []domain.LedgerEntry

	claimedKeys   []string
	claimedEmails []string
	claimedOwners []uuid.UUID
}

func newMemTx(s *Store) *memTx {
	return &memTx{
		s:             s,
		locked:        make(map[uuid.UUID]bool),
		balances:      make(map[uuid.UUID]decimal.Decimal),
		statusChanges: make(map[uuid.UUID]domain.TransactionStatus),
	}
}

func (t *memTx) LockWallets(_ context.Context, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	for _, id := range store.LockOrder(ids) {
		if t.locked[id] {
			continue
		}
		l := t.s.rowLock(id)
		l.Lock()
		t.held = append(t.held, l)
		t.locked[id] = true
	}

	locked := make(map[uuid.UUID]*domain.Wallet, len(ids))
	for _, id := range ids {
		w, ok := t.wallet(id)
		if !ok {
			return nil, fmt.Errorf("LockWallets: %w", domain.ErrNotFound)
		}
		locked[id] = w
	}
	return locked, nil
}

func (t *memTx) Wallets() store.WalletStore           { return txWallets{t} }
func (t *memTx) Transactions() store.TransactionStore { return txTransactions{t} }
func (t *memTx) Ledger() store.LedgerStore            { return txLedger{t} }
func (t *memTx) Users() store.UserStore               { return txUsers{t} }

// wallet returns the row as this scope sees it: committed state with the
// scope's own writes applied.
func (t *memTx) wallet(id uuid.UUID) (*domain.Wallet, bool) {
	t.s.mu.Lock()
	w, ok := t.s.wallets[id]
	t.s.mu.Unlock()

	if !ok {
		for _, nw := range t.newWallets {
			if nw.ID == id {
				w, ok = nw, true
				break
			}
		}
	}
	if !ok {
		return nil, false
	}
	if b, changed := t.balances[id]; changed {
		w.Balance = b
	}
	return &w, true
}

func (t *memTx) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range t.newUsers {
		s.users[u.ID] = u
	}
	for _, w := range t.newWallets {
		s.wallets[w.ID] = w
	}
	for id, b := range t.balances {
		w := s.wallets[id]
		w.Balance = b
		s.wallets[id] = w
	}
	for _, txn := range t.newTxns {
		s.transactions[txn.ID] = txn
	}
	for id, status := range t.statusChanges {
		txn := s.transactions[id]
		txn.Status = status
		s.transactions[id] = txn
	}
	s.entries = append(s.entries, t.newEntries...)
}

func (t *memTx) rollback() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range t.claimedKeys {
		delete(s.keys, k)
	}
	for _, e := range t.claimedEmails {
		delete(s.emails, e)
	}
	for _, o := range t.claimedOwners {
		delete(s.walletOwners, o)
	}
}

func (t *memTx) unlockAll() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

type txWallets struct{ t *memTx }

func (w txWallets) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	wallet, ok := w.t.wallet(id)
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	return wallet, nil
}

func (w txWallets) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	for _, nw := range w.t.newWallets {
		if nw.UserID == userID {
			return w.GetByID(ctx, nw.ID)
		}
	}

	w.t.s.mu.Lock()
	id, ok := w.t.s.walletOwners[userID]
	_, committed := w.t.s.wallets[id]
	w.t.s.mu.Unlock()
	if !ok || !committed {
		return nil, fmt.Errorf("GetByUserID: %w", domain.ErrNotFound)
	}
	return w.GetByID(ctx, id)
}

func (w txWallets) Create(_ context.Context, wallet *domain.Wallet) error {
	s := w.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.walletOwners[wallet.UserID]; taken {
		return fmt.Errorf("Create: wallet already exists for user %s", wallet.UserID)
	}
	s.walletOwners[wallet.UserID] = wallet.ID
	w.t.claimedOwners = append(w.t.claimedOwners, wallet.UserID)
	w.t.newWallets = append(w.t.newWallets, *wallet)
	return nil
}

func (w txWallets) UpdateBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if err := w.t.s.fault(OpUpdateBalance); err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}
	if !w.t.locked[id] {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrWalletNotLocked)
	}
	if balance.IsNegative() {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrInsufficientBalance)
	}
	w.t.balances[id] = balance
	return nil
}

type txTransactions struct{ t *memTx }

func (r txTransactions) Create(_ context.Context, txn *domain.Transaction) error {
	if err := r.t.s.fault(OpCreateTransaction); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.keys[txn.IdempotencyKey]; taken {
		return fmt.Errorf("Create: %w", domain.ErrDuplicateIdempotencyKey)
	}
	s.keys[txn.IdempotencyKey] = txn.ID
	r.t.claimedKeys = append(r.t.claimedKeys, txn.IdempotencyKey)
	r.t.newTxns = append(r.t.newTxns, *txn)
	return nil
}

func (r txTransactions) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	for _, txn := range r.t.newTxns {
		if txn.IdempotencyKey == key {
			if status, ok := r.t.statusChanges[txn.ID]; ok {
				txn.Status = status
			}
			return &txn, nil
		}
	}
	return r.t.s.Transactions().GetByIdempotencyKey(ctx, key)
}

func (r txTransactions) UpdateStatus(_ context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	if err := r.t.s.fault(OpUpdateStatus); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	current, ok := r.t.status(id)
	if !ok {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	if current != domain.TransactionStatusPending {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrTransactionTerminal)
	}
	r.t.statusChanges[id] = status
	return nil
}

func (t *memTx) status(id uuid.UUID) (domain.TransactionStatus, bool) {
	if st, ok := t.statusChanges[id]; ok {
		return st, true
	}
	for _, txn := range t.newTxns {
		if txn.ID == id {
			return txn.Status, true
		}
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	txn, ok := t.s.transactions[id]
	return txn.Status, ok
}

type txLedger struct{ t *memTx }

func (l txLedger) Create(_ context.Context, entry *domain.LedgerEntry) error {
	if err := l.t.s.fault(OpCreateLedgerEntry); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if !entry.Amount.IsPositive() || entry.BalanceAfter.IsNegative() {
		return fmt.Errorf("Create: invalid ledger entry amount %s balance_after %s", entry.Amount, entry.BalanceAfter)
	}
	l.t.newEntries = append(l.t.newEntries, *entry)
	return nil
}

func (l txLedger) Totals(ctx context.Context, walletID uuid.UUID) (domain.LedgerTotals, error) {
	t, err := l.t.s.Ledger().Totals(ctx, walletID)
	if err != nil {
		return domain.LedgerTotals{}, err
	}
	for _, e := range l.t.newEntries {
		if e.WalletID != walletID {
			continue
		}
		switch e.Type {
		case domain.EntryTypeCredit:
			t.Credits = t.Credits.Add(e.Amount)
		case domain.EntryTypeDebit:
			t.Debits = t.Debits.Add(e.Amount)
		case domain.EntryTypeFee:
			t.Fees = t.Fees.Add(e.Amount)
		}
	}
	return t, nil
}

type txUsers struct{ t *memTx }

func (u txUsers) Create(_ context.Context, user *domain.User) error {
	s := u.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, taken := s.emails[key]; taken {
		return fmt.Errorf("Create: %w", domain.ErrEmailTaken)
	}
	s.emails[key] = user.ID
	u.t.claimedEmails = append(u.t.claimedEmails, key)
	u.t.newUsers = append(u.t.newUsers, *user)
	return nil
}

func (u txUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, nu := range u.t.newUsers {
		if emailKey(nu.Email) == emailKey(email) {
			found := nu
			return &found, nil
		}
	}
	return u.t.s.Users().GetByEmail(ctx, email)
}
