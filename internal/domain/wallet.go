package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusSuspended WalletStatus = "suspended"
	WalletStatusClosed    WalletStatus = "closed"
)

func (s WalletStatus) IsValid() bool {
	switch s {
	case WalletStatusActive, WalletStatusSuspended, WalletStatusClosed:
		return true
	}
	return false
}

type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   decimal.Decimal
	Status    WalletStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

type BalanceSnapshot struct {
	ID           uuid.UUID
	WalletID     uuid.UUID
	Balance      decimal.Decimal
	SnapshotDate time.Time
	CreatedAt    time.Time
}

// Reconciliation compares a wallet's stored balance with the balance
// reproduced from its ledger entries.
type Reconciliation struct {
	WalletID      uuid.UUID
	StoredBalance decimal.Decimal
	LedgerBalance decimal.Decimal
	Credits       decimal.Decimal
	Debits        decimal.Decimal
	Fees          decimal.Decimal
	Consistent    bool
}
