package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionSelf     Direction = "self"
)

type HistoryRequest struct {
	UserID uuid.UUID
	Filter domain.TransactionFilter
}

type Counterparty struct {
	UserID uuid.UUID
	Email  string
}

type HistoryItem struct {
	Transaction   domain.Transaction
	Direction     Direction
	DisplayAmount decimal.Decimal
	Description   string
	Counterparty  *Counterparty
}

type Pagination struct {
	Page     int
	PerPage  int
	Total    int
	LastPage int
}

type History struct {
	WalletID   uuid.UUID
	Balance    decimal.Decimal
	Items      []HistoryItem
	Pagination Pagination
	Summary    domain.TransactionSummary
}

// GetHistory returns one page of the owner's transactions, annotated from
// the wallet's point of view, with a summary over the whole filtered set.
// It never writes.
func (s *Service) GetHistory(ctx context.Context, req HistoryRequest) (*History, error) {
	wallet, err := s.walletForUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}

	f := req.Filter.Normalize()
	txns, total, err := s.transactions.ListByWallet(ctx, wallet.ID, f)
	if err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}
	summary, err := s.transactions.Summarize(ctx, wallet.ID, f)
	if err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}

	items := make([]HistoryItem, 0, len(txns))
	for _, t := range txns {
		items = append(items, annotate(wallet.ID, t))
	}

	lastPage := (total + f.PerPage - 1) / f.PerPage
	if lastPage < 1 {
		lastPage = 1
	}

	return &History{
		WalletID: wallet.ID,
		Balance:  wallet.Balance,
		Items:    items,
		Pagination: Pagination{
			Page:     f.Page,
			PerPage:  f.PerPage,
			Total:    total,
			LastPage: lastPage,
		},
		Summary: *summary,
	}, nil
}

func annotate(walletID uuid.UUID, t domain.Transaction) HistoryItem {
	from := t.FromWalletID != nil && *t.FromWalletID == walletID
	to := t.ToWalletID != nil && *t.ToWalletID == walletID

	item := HistoryItem{Transaction: t}
	switch {
	case from && to:
		item.Direction = DirectionSelf
		item.DisplayAmount = t.Amount
	case from:
		item.Direction = DirectionOutgoing
		item.DisplayAmount = t.TotalDebited().Neg()
	default:
		item.Direction = DirectionIncoming
		item.DisplayAmount = t.Amount
	}

	item.Description = describe(t)
	if t.Type == domain.TransactionTypeTransfer {
		var meta domain.TransferMetadata
		if err := json.Unmarshal(t.Metadata, &meta); err == nil {
			if item.Direction == DirectionOutgoing {
				item.Counterparty = &Counterparty{UserID: meta.RecipientID, Email: meta.RecipientEmail}
			} else {
				item.Counterparty = &Counterparty{UserID: meta.SenderID, Email: meta.SenderEmail}
			}
			if meta.Description != "" {
				item.Description = meta.Description
			}
		}
	}
	return item
}

func describe(t domain.Transaction) string {
	var meta struct {
		Description string `json:"description"`
	}
	if len(t.Metadata) > 0 && json.Unmarshal(t.Metadata, &meta) == nil && meta.Description != "" {
		return meta.Description
	}
	switch t.Type {
	case domain.TransactionTypeDeposit:
		return "Wallet deposit"
	case domain.TransactionTypeWithdrawal:
		return "Wallet withdrawal"
	default:
		return defaultTransferDescription
	}
}
