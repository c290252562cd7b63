package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

const transactionColumns = `id, idempotency_key, from_wallet_id, to_wallet_id, type,
	amount, fee_amount, status, metadata, created_at, updated_at`

type TransactionRepository struct {
	q querier
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{q: db}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO transactions (
			id, idempotency_key, from_wallet_id, to_wallet_id, type,
			amount, fee_amount, status, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		txn.ID, txn.IdempotencyKey, txn.FromWalletID, txn.ToWalletID, txn.Type,
		txn.Amount, txn.FeeAmount, txn.Status, jsonArg(txn.Metadata),
		txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateIdempotencyKey)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIdempotencyKey: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByIdempotencyKey: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET status = $1, updated_at = now()
		WHERE id = $2 AND status = 'pending'`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrTransactionTerminal)
	}
	return nil
}

// ListByWallet returns one page of the wallet's transactions, as source or
// destination, plus the total number matching the filter.
func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	f = f.Normalize()
	where, args := historyWhere(walletID, f)

	var total int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: count: %w", err)
	}

	// SortBy and SortDirection are whitelisted by Normalize.
	query := fmt.Sprintf(
		`SELECT %s FROM transactions WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		transactionColumns, where, f.SortBy, f.SortDirection, f.SortDirection, len(args)+1, len(args)+2,
	)
	rows, err := r.q.QueryContext(ctx, query, append(args, f.PerPage, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByWallet: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: rows: %w", err)
	}
	return txns, total, nil
}

// Summarize aggregates every transaction matching the filter, ignoring
// paging. Money totals count completed transactions only.
func (r *TransactionRepository) Summarize(ctx context.Context, walletID uuid.UUID, f domain.TransactionFilter) (*domain.TransactionSummary, error) {
	where, args := historyWhere(walletID, f)

	var s domain.TransactionSummary
	err := r.q.QueryRowContext(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE type = 'deposit'),
			COUNT(*) FILTER (WHERE type = 'withdrawal'),
			COUNT(*) FILTER (WHERE type = 'transfer'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed' AND to_wallet_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed' AND from_wallet_id = $1), 0),
			COALESCE(SUM(fee_amount) FILTER (WHERE status = 'completed' AND from_wallet_id = $1), 0)
		FROM transactions WHERE `+where, args...,
	).Scan(
		&s.TotalCount, &s.CompletedCount, &s.PendingCount, &s.FailedCount,
		&s.DepositCount, &s.WithdrawalCount, &s.TransferCount,
		&s.TotalReceived, &s.TotalSent, &s.TotalFees,
	)
	if err != nil {
		return nil, fmt.Errorf("Summarize: %w", err)
	}
	return &s, nil
}

func historyWhere(walletID uuid.UUID, f domain.TransactionFilter) (string, []any) {
	clauses := []string{"(from_wallet_id = $1 OR to_wallet_id = $1)"}
	args := []any{walletID}

	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	start, end := f.Window()
	if start != nil {
		add("created_at >= $%d", *start)
	}
	if end != nil {
		add("created_at < $%d", *end)
	}

	return strings.Join(clauses, " AND "), args
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var fromWalletID, toWalletID uuid.NullUUID
	var metadata *[]byte

	err := s.Scan(
		&t.ID, &t.IdempotencyKey, &fromWalletID, &toWalletID, &t.Type,
		&t.Amount, &t.FeeAmount, &t.Status, &metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if fromWalletID.Valid {
		t.FromWalletID = &fromWalletID.UUID
	}
	if toWalletID.Valid {
		t.ToWalletID = &toWalletID.UUID
	}
	if metadata != nil {
		t.Metadata = *metadata
	}

	return &t, nil
}
