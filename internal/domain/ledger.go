package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeCredit EntryType = "credit"
	EntryTypeDebit  EntryType = "debit"
	EntryTypeFee    EntryType = "fee"
)

// LedgerEntry is append-only. BalanceAfter is the wallet balance
// immediately after the entry was applied.
type LedgerEntry struct {
	ID            uuid.UUID
	WalletID      uuid.UUID
	TransactionID uuid.UUID
	Type          EntryType
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	CreatedAt     time.Time
}

type LedgerTotals struct {
	Credits decimal.Decimal
	Debits  decimal.Decimal
	Fees    decimal.Decimal
}

// Balance is the wallet balance implied by the entries.
func (t LedgerTotals) Balance() decimal.Decimal {
	return t.Credits.Sub(t.Debits).Sub(t.Fees)
}
