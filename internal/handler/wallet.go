package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/auth"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/money"
	"github.com/josh-kwaku/wallet-ledger/internal/service/ledger"
)

const idempotencyKeyHeader = "Idempotency-Key"

type ledgerService interface {
	Deposit(ctx context.Context, req ledger.DepositRequest) (*ledger.DepositResult, error)
	Withdraw(ctx context.Context, req ledger.WithdrawRequest) (*ledger.WithdrawResult, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error)
	GetHistory(ctx context.Context, req ledger.HistoryRequest) (*ledger.History, error)
	ReconcileForUser(ctx context.Context, userID uuid.UUID) (*domain.Reconciliation, error)
}

type walletGetter interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
}

type WalletHandler struct {
	ledger  ledgerService
	wallets walletGetter
}

func NewWalletHandler(ledger ledgerService, wallets walletGetter) *WalletHandler {
	return &WalletHandler{ledger: ledger, wallets: wallets}
}

type amountRequest struct {
	Amount         *decimal.Decimal `json:"amount"`
	IdempotencyKey string           `json:"idempotency_key"`
}

func (r amountRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount == nil {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}
	return errs
}

type transferRequest struct {
	RecipientEmail string           `json:"recipient_email"`
	Amount         *decimal.Decimal `json:"amount"`
	Description    string           `json:"description"`
	IdempotencyKey string           `json:"idempotency_key"`
}

func (r transferRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.RecipientEmail) == "" {
		errs = append(errs, FieldError{Field: "recipient_email", Message: "required"})
	}
	if r.Amount == nil {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}
	if len(r.Description) > 255 {
		errs = append(errs, FieldError{Field: "description", Message: "must be at most 255 characters"})
	}
	return errs
}

type walletDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   string    `json:"balance"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toWalletDTO(w *domain.Wallet) walletDTO {
	return walletDTO{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   money.Format(w.Balance),
		Status:    string(w.Status),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

type transactionDTO struct {
	ID           uuid.UUID       `json:"id"`
	Reference    string          `json:"reference"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	FromWalletID *uuid.UUID      `json:"from_wallet_id"`
	ToWalletID   *uuid.UUID      `json:"to_wallet_id"`
	Amount       string          `json:"amount"`
	Fee          string          `json:"fee"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:           t.ID,
		Reference:    t.IdempotencyKey,
		Type:         string(t.Type),
		Status:       string(t.Status),
		FromWalletID: t.FromWalletID,
		ToWalletID:   t.ToWalletID,
		Amount:       money.Format(t.Amount),
		Fee:          money.Format(t.FeeAmount),
		Metadata:     t.Metadata,
		CreatedAt:    t.CreatedAt,
	}
}

type balanceChangeDTO struct {
	Transaction     transactionDTO `json:"transaction"`
	PreviousBalance string         `json:"previous_balance"`
	NewBalance      string         `json:"new_balance"`
}

type transferDTO struct {
	Transaction         transactionDTO `json:"transaction"`
	Reference           string         `json:"reference"`
	SenderWalletID      uuid.UUID      `json:"sender_wallet_id"`
	RecipientWalletID   uuid.UUID      `json:"recipient_wallet_id"`
	Amount              string         `json:"amount"`
	Fee                 string         `json:"fee"`
	TotalDeducted       string         `json:"total_deducted"`
	SenderNewBalance    string         `json:"sender_new_balance"`
	RecipientNewBalance string         `json:"recipient_new_balance"`
}

type counterpartyDTO struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

type historyItemDTO struct {
	ID            uuid.UUID        `json:"id"`
	Reference     string           `json:"reference"`
	Type          string           `json:"type"`
	Status        string           `json:"status"`
	Direction     string           `json:"direction"`
	Amount        string           `json:"amount"`
	Fee           string           `json:"fee"`
	DisplayAmount string           `json:"display_amount"`
	Description   string           `json:"description"`
	Counterparty  *counterpartyDTO `json:"counterparty"`
	CreatedAt     time.Time        `json:"created_at"`
}

type paginationDTO struct {
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

type summaryDTO struct {
	TotalCount     int            `json:"total_count"`
	CompletedCount int            `json:"completed_count"`
	PendingCount   int            `json:"pending_count"`
	FailedCount    int            `json:"failed_count"`
	ByType         map[string]int `json:"by_type"`
	TotalReceived  string         `json:"total_received"`
	TotalSent      string         `json:"total_sent"`
	TotalFees      string         `json:"total_fees"`
	Net            string         `json:"net"`
}

type historyDTO struct {
	WalletID     uuid.UUID        `json:"wallet_id"`
	Balance      string           `json:"balance"`
	Transactions []historyItemDTO `json:"transactions"`
	Pagination   paginationDTO    `json:"pagination"`
	Summary      summaryDTO       `json:"summary"`
}

func toHistoryDTO(h *ledger.History) historyDTO {
	items := make([]historyItemDTO, 0, len(h.Items))
	for _, it := range h.Items {
		dto := historyItemDTO{
			ID:            it.Transaction.ID,
			Reference:     it.Transaction.IdempotencyKey,
			Type:          string(it.Transaction.Type),
			Status:        string(it.Transaction.Status),
			Direction:     string(it.Direction),
			Amount:        money.Format(it.Transaction.Amount),
			Fee:           money.Format(it.Transaction.FeeAmount),
			DisplayAmount: money.Format(it.DisplayAmount),
			Description:   it.Description,
			CreatedAt:     it.Transaction.CreatedAt,
		}
		if it.Counterparty != nil {
			dto.Counterparty = &counterpartyDTO{UserID: it.Counterparty.UserID, Email: it.Counterparty.Email}
		}
		items = append(items, dto)
	}

	s := h.Summary
	return historyDTO{
		WalletID:     h.WalletID,
		Balance:      money.Format(h.Balance),
		Transactions: items,
		Pagination: paginationDTO{
			Page:     h.Pagination.Page,
			PerPage:  h.Pagination.PerPage,
			Total:    h.Pagination.Total,
			LastPage: h.Pagination.LastPage,
		},
		Summary: summaryDTO{
			TotalCount:     s.TotalCount,
			CompletedCount: s.CompletedCount,
			PendingCount:   s.PendingCount,
			FailedCount:    s.FailedCount,
			ByType: map[string]int{
				string(domain.TransactionTypeDeposit):    s.DepositCount,
				string(domain.TransactionTypeWithdrawal): s.WithdrawalCount,
				string(domain.TransactionTypeTransfer):   s.TransferCount,
			},
			TotalReceived: money.Format(s.TotalReceived),
			TotalSent:     money.Format(s.TotalSent),
			TotalFees:     money.Format(s.TotalFees),
			Net:           money.Format(s.Net()),
		},
	}
}

type reconciliationDTO struct {
	WalletID      uuid.UUID `json:"wallet_id"`
	StoredBalance string    `json:"stored_balance"`
	LedgerBalance string    `json:"ledger_balance"`
	Credits       string    `json:"total_credits"`
	Debits        string    `json:"total_debits"`
	Fees          string    `json:"total_fees"`
	Consistent    bool      `json:"consistent"`
}

// idempotencyKey prefers the body field and falls back to the header.
func idempotencyKey(r *http.Request, fromBody string) string {
	if key := strings.TrimSpace(fromBody); key != "" {
		return key
	}
	return strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("wallet lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.ledger.Deposit(r.Context(), ledger.DepositRequest{
		Actor:          actorFromRequest(r),
		Amount:         *req.Amount,
		IdempotencyKey: idempotencyKey(r, req.IdempotencyKey),
	})
	if err != nil {
		log.Warn("deposit failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, balanceChangeDTO{
		Transaction:     toTransactionDTO(res.Transaction),
		PreviousBalance: money.Format(res.PreviousBalance),
		NewBalance:      money.Format(res.NewBalance),
	})
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.ledger.Withdraw(r.Context(), ledger.WithdrawRequest{
		Actor:          actorFromRequest(r),
		Amount:         *req.Amount,
		IdempotencyKey: idempotencyKey(r, req.IdempotencyKey),
	})
	if err != nil {
		log.Warn("withdrawal failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, balanceChangeDTO{
		Transaction:     toTransactionDTO(res.Transaction),
		PreviousBalance: money.Format(res.PreviousBalance),
		NewBalance:      money.Format(res.NewBalance),
	})
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.ledger.Transfer(r.Context(), ledger.TransferRequest{
		Actor:          actorFromRequest(r),
		RecipientEmail: req.RecipientEmail,
		Amount:         *req.Amount,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey(r, req.IdempotencyKey),
	})
	if err != nil {
		log.Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, transferDTO{
		Transaction:         toTransactionDTO(res.Transaction),
		Reference:           res.Reference,
		SenderWalletID:      res.SenderWalletID,
		RecipientWalletID:   res.RecipientWalletID,
		Amount:              money.Format(res.Amount),
		Fee:                 money.Format(res.Fee),
		TotalDeducted:       money.Format(res.TotalDeducted),
		SenderNewBalance:    money.Format(res.SenderNewBalance),
		RecipientNewBalance: money.Format(res.RecipientNewBalance),
	})
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	filter, fields := parseTransactionFilter(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	history, err := h.ledger.GetHistory(r.Context(), ledger.HistoryRequest{UserID: userID, Filter: filter})
	if err != nil {
		logging.FromContext(r.Context()).Warn("history lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toHistoryDTO(history))
}

func (h *WalletHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	rec, err := h.ledger.ReconcileForUser(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("reconciliation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, reconciliationDTO{
		WalletID:      rec.WalletID,
		StoredBalance: money.Format(rec.StoredBalance),
		LedgerBalance: money.Format(rec.LedgerBalance),
		Credits:       money.Format(rec.Credits),
		Debits:        money.Format(rec.Debits),
		Fees:          money.Format(rec.Fees),
		Consistent:    rec.Consistent,
	})
}

const dateLayout = "2006-01-02"

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, []FieldError) {
	q := r.URL.Query()
	var (
		f    domain.TransactionFilter
		errs []FieldError
	)

	if v := q.Get("type"); v != "" {
		f.Type = domain.TransactionType(v)
		if !f.Type.IsValid() {
			errs = append(errs, FieldError{Field: "type", Message: "must be deposit, withdrawal, or transfer"})
		}
	}
	if v := q.Get("status"); v != "" {
		f.Status = domain.TransactionStatus(v)
		if !f.Status.IsValid() {
			errs = append(errs, FieldError{Field: "status", Message: "must be pending, completed, or failed"})
		}
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			errs = append(errs, FieldError{Field: "from", Message: "must be a YYYY-MM-DD date"})
		} else {
			f.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			errs = append(errs, FieldError{Field: "to", Message: "must be a YYYY-MM-DD date"})
		} else {
			f.To = &t
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		errs = append(errs, FieldError{Field: "to", Message: "must not be before from"})
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, FieldError{Field: "page", Message: "must be a positive integer"})
		}
		f.Page = n
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > domain.MaxPerPage {
			errs = append(errs, FieldError{Field: "per_page", Message: "must be between 1 and 100"})
		}
		f.PerPage = n
	}
	if v := q.Get("sort_by"); v != "" {
		switch v {
		case "created_at", "amount", "status":
			f.SortBy = v
		default:
			errs = append(errs, FieldError{Field: "sort_by", Message: "must be created_at, amount, or status"})
		}
	}
	if v := q.Get("sort_direction"); v != "" {
		switch v {
		case "asc", "desc":
			f.SortDirection = v
		default:
			errs = append(errs, FieldError{Field: "sort_direction", Message: "must be asc or desc"})
		}
	}

	return f, errs
}
