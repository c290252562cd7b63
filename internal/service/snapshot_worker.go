package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

type SnapshotReport struct {
	Date         time.Time
	Created      int
	Skipped      int
	Inconsistent int
	Purged       int64
}

// SnapshotWorker records one balance snapshot per wallet per day,
// reconciles each wallet against its ledger and purges snapshots that fall
// outside the retention window.
type SnapshotWorker struct {
	wallets   walletRepository
	snapshots snapshotRepository
	ledger    reconciler
	logger    *slog.Logger
	interval  time.Duration
	retention int
	now       func() time.Time
}

func NewSnapshotWorker(
	wallets walletRepository,
	snapshots snapshotRepository,
	ledger reconciler,
	logger *slog.Logger,
	interval time.Duration,
	retentionDays int,
) *SnapshotWorker {
	return &SnapshotWorker{
		wallets:   wallets,
		snapshots: snapshots,
		ledger:    ledger,
		logger:    logger,
		interval:  interval,
		retention: retentionDays,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (w *SnapshotWorker) Start(ctx context.Context) {
	w.logger.Info("snapshot worker started", "interval", w.interval, "retention_days", w.retention)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("snapshot worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx, w.now(), false); err != nil {
				w.logger.Error("snapshot run failed", "error", err)
			}
		}
	}
}

// RunOnce snapshots every wallet for date. Existing snapshots for the date
// are kept unless force is set.
func (w *SnapshotWorker) RunOnce(ctx context.Context, date time.Time, force bool) (*SnapshotReport, error) {
	started := w.now()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	report := &SnapshotReport{Date: day}

	wallets, err := w.wallets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("RunOnce: list wallets: %w", err)
	}

	for _, wallet := range wallets {
		if err := w.snapshotWallet(ctx, wallet.ID, day, force, report); err != nil {
			w.logger.Error("wallet snapshot failed", "wallet_id", wallet.ID, "error", err)
		}
	}

	if w.retention > 0 {
		cutoff := day.AddDate(0, 0, -w.retention)
		purged, err := w.snapshots.DeleteBefore(ctx, cutoff)
		if err != nil {
			return report, fmt.Errorf("RunOnce: purge: %w", err)
		}
		report.Purged = purged
	}

	w.logger.Info("balance snapshots complete",
		"date", day.Format(time.DateOnly),
		"created", report.Created,
		"skipped", report.Skipped,
		"inconsistent", report.Inconsistent,
		"purged", report.Purged,
		"duration_ms", w.now().Sub(started).Milliseconds(),
	)
	return report, nil
}

// snapshotWallet records the balance as reconciliation read it, under the
// wallet's row lock.
func (w *SnapshotWorker) snapshotWallet(ctx context.Context, walletID uuid.UUID, day time.Time, force bool, report *SnapshotReport) error {
	rec, err := w.ledger.Reconcile(ctx, walletID)
	if err != nil {
		return fmt.Errorf("snapshotWallet: %w", err)
	}
	if !rec.Consistent {
		report.Inconsistent++
		w.logger.Error("wallet balance does not match ledger",
			"wallet_id", walletID,
			"stored_balance", rec.StoredBalance.StringFixed(2),
			"ledger_balance", rec.LedgerBalance.StringFixed(2),
		)
	}

	created, err := w.snapshots.Save(ctx, &domain.BalanceSnapshot{
		ID:           uuid.New(),
		WalletID:     walletID,
		Balance:      rec.StoredBalance,
		SnapshotDate: day,
		CreatedAt:    w.now(),
	}, force)
	if err != nil {
		return fmt.Errorf("snapshotWallet: %w", err)
	}
	if created {
		report.Created++
	} else {
		report.Skipped++
	}
	return nil
}
