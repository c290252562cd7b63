package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/activity"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/idempotency"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/money"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

type DepositRequest struct {
	Actor          domain.Actor
	Amount         decimal.Decimal
	IdempotencyKey string
}

type DepositResult struct {
	Transaction     *domain.Transaction
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

func (s *Service) Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	log := logging.FromContext(ctx)

	if err := s.validateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	if err := idempotency.ValidateKey(req.IdempotencyKey); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	reservation, err := s.reserve(ctx, req.Actor, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	defer reservation.Release(ctx)

	wallet, err := s.walletForUser(ctx, req.Actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	var result DepositResult
	err = s.uow.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockWallets(ctx, wallet.ID)
		if err != nil {
			return err
		}
		w := locked[wallet.ID]
		if !w.IsActive() {
			return domain.ErrWalletInactive
		}

		metadata, err := json.Marshal(domain.DepositMetadata{
			DepositMethod: "manual",
			UserID:        req.Actor.UserID,
			Description:   "Wallet deposit",
		})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}

		now := s.now()
		txn := &domain.Transaction{
			ID:             uuid.New(),
			IdempotencyKey: req.IdempotencyKey,
			ToWalletID:     &w.ID,
			Type:           domain.TransactionTypeDeposit,
			Amount:         req.Amount,
			FeeAmount:      decimal.Zero,
			Status:         domain.TransactionStatusPending,
			Metadata:       metadata,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return err
		}

		newBalance := money.Round(w.Balance.Add(req.Amount))
		if err := s.applyEntry(ctx, tx, ledgerLine{
			wallet:       w.ID,
			txn:          txn.ID,
			kind:         domain.EntryTypeCredit,
			amount:       req.Amount,
			balanceAfter: newBalance,
			description:  "Deposit to wallet",
		}); err != nil {
			return err
		}

		if err := s.complete(ctx, tx, txn); err != nil {
			return err
		}

		result = DepositResult{Transaction: txn, PreviousBalance: w.Balance, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", s.unitError(ctx, req.Actor, req.IdempotencyKey, err))
	}

	log.Info("deposit completed",
		"transaction_id", result.Transaction.ID,
		"wallet_id", wallet.ID,
		"amount", money.Format(req.Amount),
		"new_balance", money.Format(result.NewBalance),
	)
	s.activity.Record(ctx, req.Actor, activity.Event{
		Action:     domain.ActivityWalletDeposit,
		EntityType: entityTransaction,
		EntityID:   result.Transaction.ID,
		Fields: map[string]string{
			"amount":           money.Format(req.Amount),
			"previous_balance": money.Format(result.PreviousBalance),
			"new_balance":      money.Format(result.NewBalance),
		},
	})
	s.recordCompleted(ctx, result.Transaction)

	return &result, nil
}

type ledgerLine struct {
	wallet       uuid.UUID
	txn          uuid.UUID
	kind         domain.EntryType
	amount       decimal.Decimal
	balanceAfter decimal.Decimal
	description  string
}

// applyEntry persists the wallet's new balance and the ledger entry that
// explains it. The wallet must already be locked by tx.
func (s *Service) applyEntry(ctx context.Context, tx store.Tx, e ledgerLine) error {
	if err := tx.Wallets().UpdateBalance(ctx, e.wallet, e.balanceAfter); err != nil {
		return err
	}
	return tx.Ledger().Create(ctx, &domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      e.wallet,
		TransactionID: e.txn,
		Type:          e.kind,
		Amount:        e.amount,
		BalanceAfter:  e.balanceAfter,
		Description:   e.description,
		CreatedAt:     s.now(),
	})
}

func (s *Service) complete(ctx context.Context, tx store.Tx, txn *domain.Transaction) error {
	if err := tx.Transactions().UpdateStatus(ctx, txn.ID, domain.TransactionStatusCompleted); err != nil {
		return err
	}
	txn.Status = domain.TransactionStatusCompleted
	return nil
}
