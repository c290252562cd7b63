package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

type BalanceSnapshotRepository struct {
	db *sql.DB
}

func NewBalanceSnapshotRepository(db *sql.DB) *BalanceSnapshotRepository {
	return &BalanceSnapshotRepository{db: db}
}

// Save stores a snapshot for the wallet and day. An existing snapshot for
// the same day is kept unless overwrite is set. It reports whether a row
// was written.
func (r *BalanceSnapshotRepository) Save(ctx context.Context, snap *domain.BalanceSnapshot, overwrite bool) (bool, error) {
	query := `INSERT INTO balance_snapshots (id, wallet_id, balance, snapshot_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet_id, snapshot_date) DO NOTHING`
	if overwrite {
		query = `INSERT INTO balance_snapshots (id, wallet_id, balance, snapshot_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet_id, snapshot_date) DO UPDATE SET balance = EXCLUDED.balance, created_at = EXCLUDED.created_at`
	}

	res, err := r.db.ExecContext(ctx, query,
		snap.ID, snap.WalletID, snap.Balance, snap.SnapshotDate.Format(time.DateOnly), snap.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("Save: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Save: rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *BalanceSnapshotRepository) GetByWalletAndDate(ctx context.Context, walletID uuid.UUID, date time.Time) (*domain.BalanceSnapshot, error) {
	var s domain.BalanceSnapshot
	err := r.db.QueryRowContext(ctx,
		`SELECT id, wallet_id, balance, snapshot_date, created_at FROM balance_snapshots
		WHERE wallet_id = $1 AND snapshot_date = $2`,
		walletID, date.Format(time.DateOnly),
	).Scan(&s.ID, &s.WalletID, &s.Balance, &s.SnapshotDate, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByWalletAndDate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByWalletAndDate: %w", err)
	}
	return &s, nil
}

func (r *BalanceSnapshotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM balance_snapshots WHERE snapshot_date < $1`, cutoff.Format(time.DateOnly),
	)
	if err != nil {
		return 0, fmt.Errorf("DeleteBefore: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteBefore: rows affected: %w", err)
	}
	return n, nil
}
