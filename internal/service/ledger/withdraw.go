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

type WithdrawRequest struct {
	Actor          domain.Actor
	Amount         decimal.Decimal
	IdempotencyKey string
}

type WithdrawResult struct {
	Transaction     *domain.Transaction
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	WithdrawnAmount decimal.Decimal
}

// Withdraw debits the actor's wallet. When the balance cannot cover the
// amount a failed transaction is still committed for audit and
// domain.ErrInsufficientBalance is returned.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	log := logging.FromContext(ctx)

	if err := s.validateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	if err := idempotency.ValidateKey(req.IdempotencyKey); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	reservation, err := s.reserve(ctx, req.Actor, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	defer reservation.Release(ctx)

	wallet, err := s.walletForUser(ctx, req.Actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	var (
		result    WithdrawResult
		shortfall bool
	)
	err = s.uow.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockWallets(ctx, wallet.ID)
		if err != nil {
			return err
		}
		w := locked[wallet.ID]
		if !w.IsActive() {
			return domain.ErrWalletInactive
		}

		meta := domain.WithdrawalMetadata{
			WithdrawalMethod: "manual",
			UserID:           req.Actor.UserID,
			Description:      "Wallet withdrawal",
		}
		now := s.now()
		txn := &domain.Transaction{
			ID:             uuid.New(),
			IdempotencyKey: req.IdempotencyKey,
			FromWalletID:   &w.ID,
			Type:           domain.TransactionTypeWithdrawal,
			Amount:         req.Amount,
			FeeAmount:      decimal.Zero,
			Status:         domain.TransactionStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if !w.CanDebit(req.Amount) {
			requested, available := req.Amount, w.Balance
			missing := req.Amount.Sub(w.Balance)
			meta.FailureReason = "insufficient_balance"
			meta.RequestedAmount = &requested
			meta.AvailableBalance = &available
			meta.Shortfall = &missing

			txn.Status = domain.TransactionStatusFailed
			if txn.Metadata, err = json.Marshal(meta); err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			if err := tx.Transactions().Create(ctx, txn); err != nil {
				return err
			}
			shortfall = true
			result = WithdrawResult{Transaction: txn, PreviousBalance: w.Balance, NewBalance: w.Balance}
			return nil
		}

		if txn.Metadata, err = json.Marshal(meta); err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return err
		}

		newBalance := money.Round(w.Balance.Sub(req.Amount))
		if err := s.applyEntry(ctx, tx, ledgerLine{
			wallet:       w.ID,
			txn:          txn.ID,
			kind:         domain.EntryTypeDebit,
			amount:       req.Amount,
			balanceAfter: newBalance,
			description:  "Withdrawal from wallet",
		}); err != nil {
			return err
		}

		if err := s.complete(ctx, tx, txn); err != nil {
			return err
		}

		result = WithdrawResult{
			Transaction:     txn,
			PreviousBalance: w.Balance,
			NewBalance:      newBalance,
			WithdrawnAmount: req.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", s.unitError(ctx, req.Actor, req.IdempotencyKey, err))
	}

	if shortfall {
		log.Warn("withdrawal rejected",
			"transaction_id", result.Transaction.ID,
			"wallet_id", wallet.ID,
			"amount", money.Format(req.Amount),
			"balance", money.Format(result.PreviousBalance),
		)
		s.activity.Record(ctx, req.Actor, activity.Event{
			Action:     domain.ActivityWalletWithdrawalFailed,
			EntityType: entityTransaction,
			EntityID:   result.Transaction.ID,
			Fields: map[string]string{
				"amount":            money.Format(req.Amount),
				"available_balance": money.Format(result.PreviousBalance),
				"reason":            "insufficient balance",
			},
		})
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInsufficientBalance)
	}

	log.Info("withdrawal completed",
		"transaction_id", result.Transaction.ID,
		"wallet_id", wallet.ID,
		"amount", money.Format(req.Amount),
		"new_balance", money.Format(result.NewBalance),
	)
	s.activity.Record(ctx, req.Actor, activity.Event{
		Action:     domain.ActivityWalletWithdrawal,
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
