package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/activity"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/idempotency"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/money"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

const defaultTransferDescription = "P2P Transfer"

type TransferRequest struct {
	Actor          domain.Actor
	RecipientEmail string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

type TransferResult struct {
	Transaction         *domain.Transaction
	SenderWalletID      uuid.UUID
	RecipientWalletID   uuid.UUID
	SenderNewBalance    decimal.Decimal
	RecipientNewBalance decimal.Decimal
	Amount              decimal.Decimal
	Fee                 decimal.Decimal
	TotalDeducted       decimal.Decimal
	// Reference is the client's idempotency key.
	Reference string
}

type transferParties struct {
	recipient       *domain.User
	senderWallet    uuid.UUID
	recipientWallet uuid.UUID
}

func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	log := logging.FromContext(ctx)

	if err := s.validateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	if err := idempotency.ValidateKey(req.IdempotencyKey); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultTransferDescription
	}

	reservation, err := s.reserve(ctx, req.Actor, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	defer reservation.Release(ctx)

	parties, err := s.resolveParties(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	breakdown := s.fees.Calculate(req.Amount)
	totalDeduction := req.Amount.Add(breakdown.TotalFee)

	var result TransferResult
	err = s.uow.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockWallets(ctx, parties.senderWallet, parties.recipientWallet)
		if err != nil {
			return err
		}
		sender, recipient := locked[parties.senderWallet], locked[parties.recipientWallet]

		if !sender.IsActive() {
			return domain.ErrSenderWalletInactive
		}
		if !recipient.IsActive() {
			return domain.ErrRecipientWalletInactive
		}
		if !sender.CanDebit(totalDeduction) {
			return domain.ErrInsufficientBalance
		}

		afterDebit := money.Round(sender.Balance.Sub(req.Amount))
		senderAfter := money.Round(afterDebit.Sub(breakdown.TotalFee))
		recipientAfter := money.Round(recipient.Balance.Add(req.Amount))

		metadata, err := json.Marshal(domain.TransferMetadata{
			TransferType:           "p2p",
			SenderID:               req.Actor.UserID,
			SenderEmail:            req.Actor.Email,
			RecipientID:            parties.recipient.ID,
			RecipientEmail:         parties.recipient.Email,
			Description:            description,
			SenderBalanceBefore:    sender.Balance,
			SenderBalanceAfter:     senderAfter,
			RecipientBalanceBefore: recipient.Balance,
			RecipientBalanceAfter:  recipientAfter,
			Fee:                    breakdown,
		})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}

		now := s.now()
		txn := &domain.Transaction{
			ID:             uuid.New(),
			IdempotencyKey: req.IdempotencyKey,
			FromWalletID:   &sender.ID,
			ToWalletID:     &recipient.ID,
			Type:           domain.TransactionTypeTransfer,
			Amount:         req.Amount,
			FeeAmount:      breakdown.TotalFee,
			Status:         domain.TransactionStatusCompleted,
			Metadata:       metadata,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return err
		}

		entries := []ledgerLine{
			{
				wallet:       sender.ID,
				txn:          txn.ID,
				kind:         domain.EntryTypeDebit,
				amount:       req.Amount,
				balanceAfter: afterDebit,
				description:  "Transfer to " + parties.recipient.Email,
			},
			{
				wallet:       recipient.ID,
				txn:          txn.ID,
				kind:         domain.EntryTypeCredit,
				amount:       req.Amount,
				balanceAfter: recipientAfter,
				description:  "Transfer from " + req.Actor.Email,
			},
		}
		if breakdown.FeeApplied {
			entries = append(entries, ledgerLine{
				wallet:       sender.ID,
				txn:          txn.ID,
				kind:         domain.EntryTypeFee,
				amount:       breakdown.TotalFee,
				balanceAfter: senderAfter,
				description:  "Transfer fee",
			})
		}
		for _, e := range entries {
			if err := s.applyEntry(ctx, tx, e); err != nil {
				return err
			}
		}

		result = TransferResult{
			Transaction:         txn,
			SenderWalletID:      sender.ID,
			RecipientWalletID:   recipient.ID,
			SenderNewBalance:    senderAfter,
			RecipientNewBalance: recipientAfter,
			Amount:              req.Amount,
			Fee:                 breakdown.TotalFee,
			TotalDeducted:       totalDeduction,
			Reference:           req.IdempotencyKey,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", s.unitError(ctx, req.Actor, req.IdempotencyKey, err))
	}

	log.Info("transfer completed",
		"transaction_id", result.Transaction.ID,
		"sender_wallet", result.SenderWalletID,
		"recipient_wallet", result.RecipientWalletID,
		"amount", money.Format(result.Amount),
		"fee", money.Format(result.Fee),
	)

	s.activity.Record(ctx, req.Actor, activity.Event{
		Action:     domain.ActivityTransferSent,
		EntityType: entityTransaction,
		EntityID:   result.Transaction.ID,
		Fields: map[string]string{
			"amount":          money.Format(result.Amount),
			"fee":             money.Format(result.Fee),
			"total_deducted":  money.Format(result.TotalDeducted),
			"recipient_email": parties.recipient.Email,
		},
	})
	s.activity.Record(ctx, domain.Actor{UserID: parties.recipient.ID, Email: parties.recipient.Email}, activity.Event{
		Action:     domain.ActivityTransferReceived,
		EntityType: entityTransaction,
		EntityID:   result.Transaction.ID,
		Fields: map[string]string{
			"amount":       money.Format(result.Amount),
			"sender_email": req.Actor.Email,
		},
	})
	s.recordCompleted(ctx, result.Transaction)

	return &result, nil
}

func (s *Service) resolveParties(ctx context.Context, req TransferRequest) (*transferParties, error) {
	recipient, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.RecipientEmail))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolveParties: %w", domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("resolveParties: %w", err)
	}
	if recipient.ID == req.Actor.UserID {
		return nil, fmt.Errorf("resolveParties: %w", domain.ErrSelfTransferNotAllowed)
	}

	senderWallet, err := s.wallets.GetByUserID(ctx, req.Actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolveParties: %w", domain.ErrSenderWalletInactive)
		}
		return nil, fmt.Errorf("resolveParties: %w", err)
	}
	recipientWallet, err := s.wallets.GetByUserID(ctx, recipient.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolveParties: %w", domain.ErrRecipientWalletInactive)
		}
		return nil, fmt.Errorf("resolveParties: %w", err)
	}

	return &transferParties{
		recipient:       recipient,
		senderWallet:    senderWallet.ID,
		recipientWallet: recipientWallet.ID,
	}, nil
}
