package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

const TestPassword = "password123"

func SeedTestUser(t *testing.T, db *sql.DB, email, name string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Status, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

// SeedTestWallet inserts a wallet for userID. A non-zero balance is booked
// as a completed opening deposit with its credit entry, so the wallet
// reconciles against the ledger from the start.
func SeedTestWallet(t *testing.T, db *sql.DB, userID uuid.UUID, balance string, status domain.WalletStatus) *domain.Wallet {
	t.Helper()

	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.RequireFromString(balance),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin seed wallet for %s: %v", userID, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO wallets (id, user_id, balance, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.UserID, w.Balance, w.Status, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed test wallet for %s: %v", userID, err)
	}

	if w.Balance.IsPositive() {
		txnID := uuid.New()
		_, err = tx.Exec(
			`INSERT INTO transactions (id, idempotency_key, to_wallet_id, type, amount, fee_amount, status, metadata, created_at, updated_at)
			 VALUES ($1, $2, $3, 'deposit', $4, 0, 'completed', '{"deposit_method":"opening"}', $5, $5)`,
			txnID, "opening-"+w.ID.String(), w.ID, w.Balance, now,
		)
		if err != nil {
			t.Fatalf("seed opening deposit for %s: %v", w.ID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO ledger_entries (id, wallet_id, transaction_id, type, amount, balance_after, description, created_at)
			 VALUES ($1, $2, $3, 'credit', $4, $4, 'Opening balance', $5)`,
			uuid.New(), w.ID, txnID, w.Balance, now,
		)
		if err != nil {
			t.Fatalf("seed opening entry for %s: %v", w.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit seed wallet for %s: %v", userID, err)
	}
	return w
}

// SeedParty creates a user with an active wallet holding balance.
func SeedParty(t *testing.T, db *sql.DB, email, balance string) (*domain.User, *domain.Wallet) {
	t.Helper()
	u := SeedTestUser(t, db, email, email)
	return u, SeedTestWallet(t, db, u.ID, balance, domain.WalletStatusActive)
}

func GetWalletBalance(t *testing.T, db *sql.DB, walletID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance)
	if err != nil {
		t.Fatalf("get wallet balance %s: %v", walletID, err)
	}
	return balance
}

func SetWalletStatus(t *testing.T, db *sql.DB, walletID uuid.UUID, status domain.WalletStatus) {
	t.Helper()

	if _, err := db.Exec(`UPDATE wallets SET status = $1 WHERE id = $2`, status, walletID); err != nil {
		t.Fatalf("set wallet status %s: %v", walletID, err)
	}
}

func CountLedgerEntries(t *testing.T, db *sql.DB, transactionID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE transaction_id = $1`, transactionID).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for transaction %s: %v", transactionID, err)
	}
	return count
}

func CountTransactions(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return count
}
