package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

// Reconcile compares the stored balance of a wallet with the balance its
// ledger entries reproduce. The wallet is locked while both are read so
// an in-flight movement cannot split them.
func (s *Service) Reconcile(ctx context.Context, walletID uuid.UUID) (*domain.Reconciliation, error) {
	var rec domain.Reconciliation
	err := s.uow.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockWallets(ctx, walletID)
		if err != nil {
			return err
		}
		totals, err := tx.Ledger().Totals(ctx, walletID)
		if err != nil {
			return err
		}

		stored := locked[walletID].Balance
		derived := totals.Balance()
		rec = domain.Reconciliation{
			WalletID:      walletID,
			StoredBalance: stored,
			LedgerBalance: derived,
			Credits:       totals.Credits,
			Debits:        totals.Debits,
			Fees:          totals.Fees,
			Consistent:    stored.Equal(derived),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}
	return &rec, nil
}

func (s *Service) ReconcileForUser(ctx context.Context, userID uuid.UUID) (*domain.Reconciliation, error) {
	wallet, err := s.walletForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ReconcileForUser: %w", err)
	}
	return s.Reconcile(ctx, wallet.ID)
}
