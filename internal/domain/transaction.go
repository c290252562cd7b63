package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

type Transaction struct {
	ID             uuid.UUID
	IdempotencyKey string
	FromWalletID   *uuid.UUID
	ToWalletID     *uuid.UUID
	Type           TransactionType
	Amount         decimal.Decimal
	FeeAmount      decimal.Decimal
	Status         TransactionStatus
	Metadata       json.RawMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TotalDebited is what the source wallet pays for this transaction.
func (t *Transaction) TotalDebited() decimal.Decimal {
	return t.Amount.Add(t.FeeAmount)
}

type DepositMetadata struct {
	DepositMethod string    `json:"deposit_method"`
	UserID        uuid.UUID `json:"user_id"`
	Description   string    `json:"description"`
}

type WithdrawalMetadata struct {
	WithdrawalMethod string           `json:"withdrawal_method"`
	UserID           uuid.UUID        `json:"user_id"`
	Description      string           `json:"description"`
	FailureReason    string           `json:"failure_reason,omitempty"`
	RequestedAmount  *decimal.Decimal `json:"requested_amount,omitempty"`
	AvailableBalance *decimal.Decimal `json:"available_balance,omitempty"`
	Shortfall        *decimal.Decimal `json:"shortfall,omitempty"`
}

type FeeBreakdown struct {
	BaseFee       decimal.Decimal `json:"base_fee"`
	PercentageFee decimal.Decimal `json:"percentage_fee"`
	TotalFee      decimal.Decimal `json:"total_fee"`
	FeeApplied    bool            `json:"fee_applied"`
}

type TransferMetadata struct {
	TransferType           string          `json:"transfer_type"`
	SenderID               uuid.UUID       `json:"sender_id"`
	SenderEmail            string          `json:"sender_email"`
	RecipientID            uuid.UUID       `json:"recipient_id"`
	RecipientEmail         string          `json:"recipient_email"`
	Description            string          `json:"description"`
	SenderBalanceBefore    decimal.Decimal `json:"sender_balance_before"`
	SenderBalanceAfter     decimal.Decimal `json:"sender_balance_after"`
	RecipientBalanceBefore decimal.Decimal `json:"recipient_balance_before"`
	RecipientBalanceAfter  decimal.Decimal `json:"recipient_balance_after"`
	Fee                    FeeBreakdown    `json:"fee_breakdown"`
}

// TransactionFilter narrows a wallet's transaction history. Zero values
// mean "no constraint"; Normalize fills paging and sort defaults.
type TransactionFilter struct {
	Type          TransactionType
	Status        TransactionStatus
	From          *time.Time
	To            *time.Time
	Page          int
	PerPage       int
	SortBy        string
	SortDirection string
}

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

var sortableColumns = map[string]bool{
	"created_at": true,
	"amount":     true,
	"status":     true,
}

func (f TransactionFilter) Normalize() TransactionFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	if !sortableColumns[f.SortBy] {
		f.SortBy = "created_at"
	}
	if f.SortDirection != "asc" {
		f.SortDirection = "desc"
	}
	return f
}

// Window returns the half-open [start, end) creation-time interval implied
// by From and To, both of which name whole days.
func (f TransactionFilter) Window() (start, end *time.Time) {
	if f.From != nil {
		s := truncateDay(*f.From)
		start = &s
	}
	if f.To != nil {
		e := truncateDay(*f.To).AddDate(0, 0, 1)
		end = &e
	}
	return start, end
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (f TransactionFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

type TransactionSummary struct {
	TotalCount      int
	CompletedCount  int
	PendingCount    int
	FailedCount     int
	DepositCount    int
	WithdrawalCount int
	TransferCount   int
	TotalReceived   decimal.Decimal
	TotalSent       decimal.Decimal
	TotalFees       decimal.Decimal
}

func (s TransactionSummary) Net() decimal.Decimal {
	return s.TotalReceived.Sub(s.TotalSent).Sub(s.TotalFees)
}
