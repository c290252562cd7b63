package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

func seedWallet(s *Store, balance string) domain.Wallet {
	w := domain.Wallet{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Balance: decimal.RequireFromString(balance),
		Status:  domain.WalletStatusActive,
	}
	s.PutWallet(w)
	return w
}

func pendingTxn(key string) *domain.Transaction {
	return &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: key,
		Type:           domain.TransactionTypeDeposit,
		Amount:         decimal.RequireFromString("1.00"),
		Status:         domain.TransactionStatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestDo_CommitsOnNil(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	w := seedWallet(s, "10.00")

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.LockWallets(ctx, w.ID); err != nil {
			return err
		}
		if err := tx.Transactions().Create(ctx, pendingTxn("k")); err != nil {
			return err
		}
		return tx.Wallets().UpdateBalance(ctx, w.ID, decimal.RequireFromString("11.00"))
	})
	require.NoError(t, err)

	got, err := s.Wallets().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("11.00")))
	assert.Equal(t, 1, s.Transactions().Count(ctx))
}

func TestDo_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	w := seedWallet(s, "10.00")
	boom := errors.New("boom")

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.LockWallets(ctx, w.ID); err != nil {
			return err
		}
		if err := tx.Transactions().Create(ctx, pendingTxn("k")); err != nil {
			return err
		}
		if err := tx.Wallets().UpdateBalance(ctx, w.ID, decimal.Zero); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Wallets().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("10.00")))
	assert.Zero(t, s.Transactions().Count(ctx))

	// Rolled-back keys are free again.
	err = s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Transactions().Create(ctx, pendingTxn("k"))
	})
	require.NoError(t, err)
}

func TestDo_RollsBackAndUnlocksOnPanic(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	w := seedWallet(s, "10.00")

	require.Panics(t, func() {
		_ = s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
			if _, err := tx.LockWallets(ctx, w.ID); err != nil {
				return err
			}
			if err := tx.Wallets().UpdateBalance(ctx, w.ID, decimal.Zero); err != nil {
				return err
			}
			panic("unexpected")
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
			locked, err := tx.LockWallets(ctx, w.ID)
			if err != nil {
				return err
			}
			if !locked[w.ID].Balance.Equal(decimal.RequireFromString("10.00")) {
				return errors.New("balance leaked from panicked scope")
			}
			return nil
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("wallet lock was not released after panic")
	}
}

func TestUpdateBalance_RequiresLock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	w := seedWallet(s, "10.00")

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Wallets().UpdateBalance(ctx, w.ID, decimal.Zero)
	})
	require.ErrorIs(t, err, domain.ErrWalletNotLocked)
}

func TestUpdateBalance_RejectsNegative(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	w := seedWallet(s, "10.00")

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.LockWallets(ctx, w.ID); err != nil {
			return err
		}
		return tx.Wallets().UpdateBalance(ctx, w.ID, decimal.RequireFromString("-0.01"))
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestCreateTransaction_DuplicateKeyAcrossScopes(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	holding := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Transactions().Create(ctx, pendingTxn("contested")); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding
	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Transactions().Create(ctx, pendingTxn("contested"))
	})
	require.ErrorIs(t, err, domain.ErrDuplicateIdempotencyKey)

	close(release)
	wg.Wait()
	assert.Equal(t, 1, s.Transactions().Count(ctx))
}

func TestUpdateStatus_TerminalIsImmutable(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	txn := pendingTxn("k")

	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return err
		}
		return tx.Transactions().UpdateStatus(ctx, txn.ID, domain.TransactionStatusCompleted)
	}))

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Transactions().UpdateStatus(ctx, txn.ID, domain.TransactionStatusFailed)
	})
	require.ErrorIs(t, err, domain.ErrTransactionTerminal)
}

func TestLedgerTotals_IncludeScopeEntries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	w := seedWallet(s, "0.00")

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, e := range []domain.LedgerEntry{
			{ID: uuid.New(), WalletID: w.ID, Type: domain.EntryTypeCredit, Amount: decimal.RequireFromString("50.00"), BalanceAfter: decimal.RequireFromString("50.00")},
			{ID: uuid.New(), WalletID: w.ID, Type: domain.EntryTypeDebit, Amount: decimal.RequireFromString("20.00"), BalanceAfter: decimal.RequireFromString("30.00")},
			{ID: uuid.New(), WalletID: w.ID, Type: domain.EntryTypeFee, Amount: decimal.RequireFromString("2.50"), BalanceAfter: decimal.RequireFromString("27.50")},
		} {
			if err := tx.Ledger().Create(ctx, &e); err != nil {
				return err
			}
		}
		totals, err := tx.Ledger().Totals(ctx, w.ID)
		if err != nil {
			return err
		}
		assert.True(t, totals.Balance().Equal(decimal.RequireFromString("27.50")))
		return nil
	})
	require.NoError(t, err)

	committed, err := s.Ledger().Totals(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, committed.Fees.Equal(decimal.RequireFromString("2.50")))
}

func TestCreateUser_EmailUniqueIgnoringCase(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Create(ctx, &domain.User{ID: uuid.New(), Email: "Ada@Example.com"})
	}))
	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Create(ctx, &domain.User{ID: uuid.New(), Email: "ada@example.com"})
	})
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	u, err := s.Users().GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada@Example.com", u.Email)
}
