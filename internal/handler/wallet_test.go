package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/money"
	"github.com/josh-kwaku/wallet-ledger/internal/service/ledger"
)

type fakeLedger struct {
	deposit  ledger.DepositRequest
	withdraw ledger.WithdrawRequest
	transfer ledger.TransferRequest
	history  ledger.HistoryRequest
	err      error
}

func (f *fakeLedger) Deposit(_ context.Context, req ledger.DepositRequest) (*ledger.DepositResult, error) {
	f.deposit = req
	if f.err != nil {
		return nil, f.err
	}
	return &ledger.DepositResult{
		Transaction:     testTxn(domain.TransactionTypeDeposit, req.Amount, req.IdempotencyKey),
		PreviousBalance: money.MustParse("10.00"),
		NewBalance:      money.MustParse("10.00").Add(req.Amount),
	}, nil
}

func (f *fakeLedger) Withdraw(_ context.Context, req ledger.WithdrawRequest) (*ledger.WithdrawResult, error) {
	f.withdraw = req
	if f.err != nil {
		return nil, f.err
	}
	return &ledger.WithdrawResult{
		Transaction:     testTxn(domain.TransactionTypeWithdrawal, req.Amount, req.IdempotencyKey),
		PreviousBalance: money.MustParse("100.00"),
		NewBalance:      money.MustParse("100.00").Sub(req.Amount),
		WithdrawnAmount: req.Amount,
	}, nil
}

func (f *fakeLedger) Transfer(_ context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error) {
	f.transfer = req
	if f.err != nil {
		return nil, f.err
	}
	fee := money.MustParse("7.50")
	txn := testTxn(domain.TransactionTypeTransfer, req.Amount, req.IdempotencyKey)
	txn.FeeAmount = fee
	return &ledger.TransferResult{
		Transaction:         txn,
		SenderWalletID:      uuid.New(),
		RecipientWalletID:   uuid.New(),
		SenderNewBalance:    money.MustParse("42.50"),
		RecipientNewBalance: req.Amount,
		Amount:              req.Amount,
		Fee:                 fee,
		TotalDeducted:       req.Amount.Add(fee),
		Reference:           req.IdempotencyKey,
	}, nil
}

func (f *fakeLedger) GetHistory(_ context.Context, req ledger.HistoryRequest) (*ledger.History, error) {
	f.history = req
	if f.err != nil {
		return nil, f.err
	}
	txn := testTxn(domain.TransactionTypeTransfer, money.MustParse("50.00"), "k1")
	txn.FeeAmount = money.MustParse("7.50")
	return &ledger.History{
		WalletID: uuid.New(),
		Balance:  money.MustParse("42.50"),
		Items: []ledger.HistoryItem{{
			Transaction:   *txn,
			Direction:     ledger.DirectionOutgoing,
			DisplayAmount: money.MustParse("-57.50"),
			Description:   "rent",
			Counterparty:  &ledger.Counterparty{UserID: uuid.New(), Email: "bob@example.com"},
		}},
		Pagination: ledger.Pagination{Page: 1, PerPage: 15, Total: 1, LastPage: 1},
		Summary: domain.TransactionSummary{
			TotalCount:     2,
			CompletedCount: 2,
			DepositCount:   1,
			TransferCount:  1,
			TotalReceived:  money.MustParse("100.00"),
			TotalSent:      money.MustParse("50.00"),
			TotalFees:      money.MustParse("7.50"),
		},
	}, nil
}

func (f *fakeLedger) ReconcileForUser(_ context.Context, _ uuid.UUID) (*domain.Reconciliation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Reconciliation{
		WalletID:      uuid.New(),
		StoredBalance: money.MustParse("42.50"),
		LedgerBalance: money.MustParse("42.50"),
		Credits:       money.MustParse("100.00"),
		Debits:        money.MustParse("50.00"),
		Fees:          money.MustParse("7.50"),
		Consistent:    true,
	}, nil
}

type fakeWallets struct {
	wallet *domain.Wallet
	err    error
}

func (f *fakeWallets) GetWallet(_ context.Context, _ uuid.UUID) (*domain.Wallet, error) {
	return f.wallet, f.err
}

func testTxn(kind domain.TransactionType, amount decimal.Decimal, key string) *domain.Transaction {
	return &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: key,
		Type:           kind,
		Amount:         amount,
		FeeAmount:      decimal.Zero,
		Status:         domain.TransactionStatusCompleted,
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:5555"
	req = req.WithContext(logging.WithRequestID(req.Context(), "req-123"))
	return withClaims(req, uuid.MustParse("6f1c1a0e-2a4b-4f43-9a55-3c8f1f0c2d11"), "alice@example.com")
}

func TestDeposit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		header     string
		svcErr     error
		wantStatus int
		wantCode   string
		wantKey    string
	}{
		{name: "body key", body: `{"amount":"25.50","idempotency_key":"dep-1"}`, wantStatus: http.StatusCreated, wantKey: "dep-1"},
		{name: "numeric amount with header key", body: `{"amount":25.5}`, header: "dep-2", wantStatus: http.StatusCreated, wantKey: "dep-2"},
		{name: "body key wins over header", body: `{"amount":"1.00","idempotency_key":"body"}`, header: "header", wantStatus: http.StatusCreated, wantKey: "body"},
		{name: "missing amount", body: `{"idempotency_key":"dep-3"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "malformed amount", body: `{"amount":"ten","idempotency_key":"dep-4"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "missing key", body: `{"amount":"5.00"}`, svcErr: fmt.Errorf("Deposit: %w", domain.ErrMissingIdempotencyKey), wantStatus: http.StatusBadRequest, wantCode: "MISSING_IDEMPOTENCY_KEY"},
		{name: "duplicate", body: `{"amount":"5.00","idempotency_key":"dup"}`, svcErr: fmt.Errorf("Deposit: %w", domain.ErrDuplicateTransaction), wantStatus: http.StatusConflict, wantCode: "DUPLICATE_TRANSACTION"},
		{name: "inactive wallet", body: `{"amount":"5.00","idempotency_key":"k"}`, svcErr: domain.ErrWalletInactive, wantStatus: http.StatusUnprocessableEntity, wantCode: "WALLET_INACTIVE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeLedger{err: tc.svcErr}
			h := NewWalletHandler(svc, &fakeWallets{})

			req := authedRequest(http.MethodPost, "/api/v1/wallet/deposit", tc.body)
			if tc.header != "" {
				req.Header.Set(idempotencyKeyHeader, tc.header)
			}
			rr := httptest.NewRecorder()

			h.Deposit(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp := decodeEnvelope(t, rr)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}

			assert.Equal(t, tc.wantKey, svc.deposit.IdempotencyKey)
			assert.Equal(t, "req-123", svc.deposit.Actor.RequestID)
			assert.Equal(t, "203.0.113.7", svc.deposit.Actor.IPAddress)
			assert.Equal(t, "alice@example.com", svc.deposit.Actor.Email)
			assert.Equal(t, http.MethodPost, svc.deposit.Actor.Method)

			data := resp.Data.(map[string]any)
			txn := data["transaction"].(map[string]any)
			assert.Equal(t, money.Format(svc.deposit.Amount), txn["amount"])
			assert.Equal(t, tc.wantKey, txn["reference"])
		})
	}
}

func TestDeposit_Unauthenticated(t *testing.T) {
	h := NewWalletHandler(&fakeLedger{}, &fakeWallets{})
	rr := httptest.NewRecorder()

	h.Deposit(rr, httptest.NewRequest(http.MethodPost, "/api/v1/wallet/deposit", strings.NewReader(`{"amount":"1.00"}`)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWithdraw(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeLedger{}
		h := NewWalletHandler(svc, &fakeWallets{})
		rr := httptest.NewRecorder()

		h.Withdraw(rr, authedRequest(http.MethodPost, "/api/v1/wallet/withdraw", `{"amount":"30.00","idempotency_key":"wd-1"}`))

		require.Equal(t, http.StatusCreated, rr.Code)
		data := decodeEnvelope(t, rr).Data.(map[string]any)
		assert.Equal(t, "100.00", data["previous_balance"])
		assert.Equal(t, "70.00", data["new_balance"])
		assert.True(t, svc.withdraw.Amount.Equal(money.MustParse("30.00")))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		h := NewWalletHandler(&fakeLedger{err: fmt.Errorf("Withdraw: %w", domain.ErrInsufficientBalance)}, &fakeWallets{})
		rr := httptest.NewRecorder()

		h.Withdraw(rr, authedRequest(http.MethodPost, "/api/v1/wallet/withdraw", `{"amount":"500.00","idempotency_key":"wd-2"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "INSUFFICIENT_BALANCE", decodeEnvelope(t, rr).Error.Code)
	})
}

func TestTransfer(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"success", `{"recipient_email":"bob@example.com","amount":"50.00","description":"rent","idempotency_key":"t-1"}`, nil, http.StatusCreated, ""},
		{"missing recipient", `{"amount":"50.00","idempotency_key":"t-2"}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"description too long", `{"recipient_email":"bob@example.com","amount":"5.00","idempotency_key":"t-3","description":"` + strings.Repeat("x", 256) + `"}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"recipient not found", `{"recipient_email":"ghost@example.com","amount":"5.00","idempotency_key":"t-4"}`, domain.ErrRecipientNotFound, http.StatusUnprocessableEntity, "RECIPIENT_NOT_FOUND"},
		{"self transfer", `{"recipient_email":"alice@example.com","amount":"5.00","idempotency_key":"t-5"}`, domain.ErrSelfTransferNotAllowed, http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED"},
		{"recipient inactive", `{"recipient_email":"bob@example.com","amount":"5.00","idempotency_key":"t-6"}`, domain.ErrRecipientWalletInactive, http.StatusUnprocessableEntity, "RECIPIENT_WALLET_INACTIVE"},
		{"limit exceeded", `{"recipient_email":"bob@example.com","amount":"1000000.00","idempotency_key":"t-7"}`, domain.ErrAmountLimitExceeded, http.StatusBadRequest, "AMOUNT_LIMIT_EXCEEDED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeLedger{err: tc.svcErr}
			h := NewWalletHandler(svc, &fakeWallets{})
			rr := httptest.NewRecorder()

			h.Transfer(rr, authedRequest(http.MethodPost, "/api/v1/wallet/transfer", tc.body))

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp := decodeEnvelope(t, rr)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}

			assert.Equal(t, "bob@example.com", svc.transfer.RecipientEmail)
			assert.Equal(t, "rent", svc.transfer.Description)
			data := resp.Data.(map[string]any)
			assert.Equal(t, "50.00", data["amount"])
			assert.Equal(t, "7.50", data["fee"])
			assert.Equal(t, "57.50", data["total_deducted"])
			assert.Equal(t, "t-1", data["reference"])
		})
	}
}

func TestTransactions(t *testing.T) {
	t.Run("filters are passed through", func(t *testing.T) {
		svc := &fakeLedger{}
		h := NewWalletHandler(svc, &fakeWallets{})
		rr := httptest.NewRecorder()

		target := "/api/v1/wallet/transactions?type=transfer&status=completed&from=2026-03-01&to=2026-03-31&page=2&per_page=10&sort_by=amount&sort_direction=asc"
		h.Transactions(rr, authedRequest(http.MethodGet, target, ""))

		require.Equal(t, http.StatusOK, rr.Code)
		f := svc.history.Filter
		assert.Equal(t, domain.TransactionTypeTransfer, f.Type)
		assert.Equal(t, domain.TransactionStatusCompleted, f.Status)
		require.NotNil(t, f.From)
		require.NotNil(t, f.To)
		assert.Equal(t, "2026-03-31", f.To.Format(dateLayout))
		assert.Equal(t, 2, f.Page)
		assert.Equal(t, 10, f.PerPage)
		assert.Equal(t, "amount", f.SortBy)
		assert.Equal(t, "asc", f.SortDirection)

		var resp struct {
			Data historyDTO `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Transactions, 1)
		item := resp.Data.Transactions[0]
		assert.Equal(t, "outgoing", item.Direction)
		assert.Equal(t, "-57.50", item.DisplayAmount)
		require.NotNil(t, item.Counterparty)
		assert.Equal(t, "bob@example.com", item.Counterparty.Email)
		assert.Equal(t, "42.50", resp.Data.Summary.Net)
		assert.Equal(t, 1, resp.Data.Summary.ByType["deposit"])
	})

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"bad type", "type=refund", "type"},
		{"bad status", "status=reversed", "status"},
		{"bad from", "from=03-01-2026", "from"},
		{"to before from", "from=2026-03-10&to=2026-03-01", "to"},
		{"zero page", "page=0", "page"},
		{"per page too large", "per_page=101", "per_page"},
		{"bad sort", "sort_by=fee", "sort_by"},
		{"bad direction", "sort_direction=up", "sort_direction"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWalletHandler(&fakeLedger{}, &fakeWallets{})
			rr := httptest.NewRecorder()

			h.Transactions(rr, authedRequest(http.MethodGet, "/api/v1/wallet/transactions?"+tc.query, ""))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			var resp struct {
				Error struct {
					Code    string       `json:"code"`
					Details []FieldError `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
			require.NotEmpty(t, resp.Error.Details)
			assert.Equal(t, tc.field, resp.Error.Details[0].Field)
		})
	}
}

func TestGetWallet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		wallet := &domain.Wallet{ID: uuid.New(), UserID: uuid.New(), Balance: money.MustParse("12.30"), Status: domain.WalletStatusActive}
		h := NewWalletHandler(&fakeLedger{}, &fakeWallets{wallet: wallet})
		rr := httptest.NewRecorder()

		h.Get(rr, authedRequest(http.MethodGet, "/api/v1/wallet", ""))

		require.Equal(t, http.StatusOK, rr.Code)
		data := decodeEnvelope(t, rr).Data.(map[string]any)
		assert.Equal(t, "12.30", data["balance"])
		assert.Equal(t, "active", data["status"])
	})

	t.Run("missing", func(t *testing.T) {
		h := NewWalletHandler(&fakeLedger{}, &fakeWallets{err: domain.ErrWalletNotFound})
		rr := httptest.NewRecorder()

		h.Get(rr, authedRequest(http.MethodGet, "/api/v1/wallet", ""))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "WALLET_NOT_FOUND", decodeEnvelope(t, rr).Error.Code)
	})
}

func TestReconciliation(t *testing.T) {
	h := NewWalletHandler(&fakeLedger{}, &fakeWallets{})
	rr := httptest.NewRecorder()

	h.Reconciliation(rr, authedRequest(http.MethodGet, "/api/v1/wallet/reconciliation", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	data := decodeEnvelope(t, rr).Data.(map[string]any)
	assert.Equal(t, true, data["consistent"])
	assert.Equal(t, "42.50", data["ledger_balance"])
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.2:4000"
	assert.Equal(t, "198.51.100.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
