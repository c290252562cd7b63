package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

type WalletRepository struct{ s *Store }

func (r *WalletRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	return &w, nil
}

func (r *WalletRepository) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[r.s.walletOwners[userID]]
	if !ok {
		return nil, fmt.Errorf("GetByUserID: %w", domain.ErrNotFound)
	}
	return &w, nil
}

func (r *WalletRepository) List(_ context.Context) ([]domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wallets := make([]domain.Wallet, 0, len(r.s.wallets))
	for _, w := range r.s.wallets {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool {
		if !wallets[i].CreatedAt.Equal(wallets[j].CreatedAt) {
			return wallets[i].CreatedAt.Before(wallets[j].CreatedAt)
		}
		return wallets[i].ID.String() < wallets[j].ID.String()
	})
	return wallets, nil
}

// SetStatus changes a committed wallet's status.
func (r *WalletRepository) SetStatus(_ context.Context, id uuid.UUID, status domain.WalletStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return fmt.Errorf("SetStatus: %w", domain.ErrNotFound)
	}
	w.Status = status
	r.s.wallets[id] = w
	return nil
}

type TransactionRepository struct{ s *Store }

func (r *TransactionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (r *TransactionRepository) GetByIdempotencyKey(_ context.Context, key string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[r.s.keys[key]]
	if !ok {
		return nil, fmt.Errorf("GetByIdempotencyKey: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (r *TransactionRepository) Count(_ context.Context) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.transactions)
}

func (r *TransactionRepository) ListByWallet(_ context.Context, walletID uuid.UUID, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	f = f.Normalize()
	matched := r.matching(walletID, f)

	sort.Slice(matched, func(i, j int) bool {
		c := compareBy(f.SortBy, matched[i], matched[j])
		if c == 0 {
			c = compareStrings(matched[i].ID.String(), matched[j].ID.String())
		}
		if f.SortDirection == "asc" {
			return c < 0
		}
		return c > 0
	})

	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.PerPage, total)
	return matched[start:end], total, nil
}

func (r *TransactionRepository) Summarize(_ context.Context, walletID uuid.UUID, f domain.TransactionFilter) (*domain.TransactionSummary, error) {
	s := domain.TransactionSummary{
		TotalReceived: decimal.Zero,
		TotalSent:     decimal.Zero,
		TotalFees:     decimal.Zero,
	}
	for _, t := range r.matching(walletID, f) {
		s.TotalCount++
		switch t.Status {
		case domain.TransactionStatusCompleted:
			s.CompletedCount++
		case domain.TransactionStatusPending:
			s.PendingCount++
		case domain.TransactionStatusFailed:
			s.FailedCount++
		}
		switch t.Type {
		case domain.TransactionTypeDeposit:
			s.DepositCount++
		case domain.TransactionTypeWithdrawal:
			s.WithdrawalCount++
		case domain.TransactionTypeTransfer:
			s.TransferCount++
		}
		if t.Status != domain.TransactionStatusCompleted {
			continue
		}
		if t.ToWalletID != nil && *t.ToWalletID == walletID {
			s.TotalReceived = s.TotalReceived.Add(t.Amount)
		}
		if t.FromWalletID != nil && *t.FromWalletID == walletID {
			s.TotalSent = s.TotalSent.Add(t.Amount)
			s.TotalFees = s.TotalFees.Add(t.FeeAmount)
		}
	}
	return &s, nil
}

func (r *TransactionRepository) matching(walletID uuid.UUID, f domain.TransactionFilter) []domain.Transaction {
	start, end := f.Window()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Transaction
	for _, t := range r.s.transactions {
		involved := (t.FromWalletID != nil && *t.FromWalletID == walletID) ||
			(t.ToWalletID != nil && *t.ToWalletID == walletID)
		if !involved {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if start != nil && t.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && !t.CreatedAt.Before(*end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func compareBy(column string, a, b domain.Transaction) int {
	switch column {
	case "amount":
		return a.Amount.Cmp(b.Amount)
	case "status":
		return compareStrings(string(a.Status), string(b.Status))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type LedgerRepository struct{ s *Store }

func (r *LedgerRepository) GetByTransactionID(_ context.Context, transactionID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range r.s.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetByWalletID pages entries newest first.
func (r *LedgerRepository) GetByWalletID(_ context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].WalletID == walletID {
			all = append(all, r.s.entries[i])
		}
	}
	total := len(all)
	start := min(offset, total)
	end := min(start+limit, total)
	return all[start:end], total, nil
}

func (r *LedgerRepository) Totals(_ context.Context, walletID uuid.UUID) (domain.LedgerTotals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := domain.LedgerTotals{Credits: decimal.Zero, Debits: decimal.Zero, Fees: decimal.Zero}
	for _, e := range r.s.entries {
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

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[r.s.emails[emailKey(email)]]
	if !ok {
		return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
	}
	return &u, nil
}

type SnapshotRepository struct{ s *Store }

func (r *SnapshotRepository) Save(_ context.Context, snap *domain.BalanceSnapshot, overwrite bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := snapshotKey{walletID: snap.WalletID, date: snap.SnapshotDate.Format(time.DateOnly)}
	if _, exists := r.s.snapshots[k]; exists && !overwrite {
		return false, nil
	}
	r.s.snapshots[k] = *snap
	return true, nil
}

func (r *SnapshotRepository) GetByWalletAndDate(_ context.Context, walletID uuid.UUID, date time.Time) (*domain.BalanceSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	snap, ok := r.s.snapshots[snapshotKey{walletID: walletID, date: date.Format(time.DateOnly)}]
	if !ok {
		return nil, fmt.Errorf("GetByWalletAndDate: %w", domain.ErrNotFound)
	}
	return &snap, nil
}

func (r *SnapshotRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	limit := cutoff.Format(time.DateOnly)
	var n int64
	for k := range r.s.snapshots {
		if k.date < limit {
			delete(r.s.snapshots, k)
			n++
		}
	}
	return n, nil
}

type ActivityLogRepository struct{ s *Store }

func (r *ActivityLogRepository) Create(_ context.Context, log *domain.ActivityLog) error {
	if err := r.s.fault(OpCreateActivityLog); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.activity = append(r.s.activity, *log)
	return nil
}

func (r *ActivityLogRepository) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]domain.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ActivityLog
	for i := len(r.s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		l := r.s.activity[i]
		if l.UserID != nil && *l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListByAction returns every log with the action, oldest first.
func (r *ActivityLogRepository) ListByAction(_ context.Context, action domain.ActivityAction) []domain.ActivityLog {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ActivityLog
	for _, l := range r.s.activity {
		if l.Action == action {
			out = append(out, l)
		}
	}
	return out
}
