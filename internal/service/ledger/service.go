// Package ledger implements the wallet money movements. Every mutation
// runs inside one store.UnitOfWork holding the row locks of the wallets it
// touches; every balance change is mirrored by append-only ledger entries.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/activity"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/fee"
	"github.com/josh-kwaku/wallet-ledger/internal/idempotency"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/money"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

type walletReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
}

type userReader interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type transactionReader interface {
	ListByWallet(ctx context.Context, walletID uuid.UUID, f domain.TransactionFilter) ([]domain.Transaction, int, error)
	Summarize(ctx context.Context, walletID uuid.UUID, f domain.TransactionFilter) (*domain.TransactionSummary, error)
}

type idempotencyGuard interface {
	CheckAndReserve(ctx context.Context, key string) (*idempotency.Reservation, *domain.Transaction, error)
}

type activitySink interface {
	Record(ctx context.Context, actor domain.Actor, ev activity.Event)
}

type Limits struct {
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{
		MinAmount: decimal.RequireFromString("0.01"),
		MaxAmount: decimal.RequireFromString("999999.99"),
	}
}

type Service struct {
	uow          store.UnitOfWork
	wallets      walletReader
	users        userReader
	transactions transactionReader
	guard        idempotencyGuard
	activity     activitySink
	fees         fee.Policy
	limits       Limits
	now          func() time.Time
}

func NewService(
	uow store.UnitOfWork,
	wallets walletReader,
	users userReader,
	transactions transactionReader,
	guard idempotencyGuard,
	activity activitySink,
	fees fee.Policy,
	limits Limits,
) *Service {
	return &Service{
		uow:          uow,
		wallets:      wallets,
		users:        users,
		transactions: transactions,
		guard:        guard,
		activity:     activity,
		fees:         fees,
		limits:       limits,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !money.HasValidScale(amount) {
		return fmt.Errorf("validateAmount: %s: %w", amount, domain.ErrInvalidAmount)
	}
	if amount.LessThan(s.limits.MinAmount) {
		return fmt.Errorf("validateAmount: %s below minimum %s: %w", amount, s.limits.MinAmount, domain.ErrInvalidAmount)
	}
	if amount.GreaterThan(s.limits.MaxAmount) {
		return fmt.Errorf("validateAmount: %s above maximum %s: %w", amount, s.limits.MaxAmount, domain.ErrAmountLimitExceeded)
	}
	return nil
}

func (s *Service) walletForUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("walletForUser: %w", domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("walletForUser: %w", err)
	}
	return w, nil
}

// reserve runs the idempotency pre-check. Callers must Release the
// returned reservation once their unit of work has finished.
func (s *Service) reserve(ctx context.Context, actor domain.Actor, key string) (*idempotency.Reservation, error) {
	res, existing, err := s.guard.CheckAndReserve(ctx, key)
	if existing != nil {
		s.recordDuplicate(ctx, actor, key, existing.ID)
		return nil, fmt.Errorf("reserve: %w", domain.ErrDuplicateTransaction)
	}
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			s.recordDuplicate(ctx, actor, key, uuid.Nil)
		}
		return nil, fmt.Errorf("reserve: %w", err)
	}
	return res, nil
}

func (s *Service) recordDuplicate(ctx context.Context, actor domain.Actor, key string, existingID uuid.UUID) {
	logging.FromContext(ctx).Warn("duplicate request blocked",
		"idempotency_key", key,
		"existing_transaction_id", existingID,
		"user_id", actor.UserID,
	)
	s.activity.Record(ctx, actor, activity.Event{
		Action:     domain.ActivityDuplicateBlocked,
		EntityType: entityTransaction,
		EntityID:   existingID,
		Fields:     map[string]string{"idempotency_key": key},
	})
}

// unitError maps a failed unit of work to the error the caller sees. A
// unique-key violation means a concurrent request with the same key won.
func (s *Service) unitError(ctx context.Context, actor domain.Actor, key string, err error) error {
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		s.recordDuplicate(ctx, actor, key, uuid.Nil)
		return domain.ErrDuplicateTransaction
	}
	return err
}

const entityTransaction = "transaction"

func (s *Service) recordCompleted(ctx context.Context, txn *domain.Transaction) {
	s.activity.Record(ctx, domain.Actor{}, activity.Event{
		Action:     domain.ActivityTransactionCompleted,
		EntityType: entityTransaction,
		EntityID:   txn.ID,
		Fields: map[string]string{
			"transaction_type": string(txn.Type),
			"amount":           money.Format(txn.Amount),
		},
	})
}
