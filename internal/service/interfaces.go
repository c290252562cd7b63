package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/activity"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

type walletRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	List(ctx context.Context) ([]domain.Wallet, error)
}

type snapshotRepository interface {
	Save(ctx context.Context, snap *domain.BalanceSnapshot, overwrite bool) (bool, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, walletID uuid.UUID) (*domain.Reconciliation, error)
}

type activitySink interface {
	Record(ctx context.Context, actor domain.Actor, ev activity.Event)
}
