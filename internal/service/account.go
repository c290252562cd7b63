package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/wallet-ledger/internal/activity"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/store"
)

const minPasswordLen = 8

type RegisterRequest struct {
	Email    string
	Name     string
	Password string
	Actor    domain.Actor
}

type Registration struct {
	User   *domain.User
	Wallet *domain.Wallet
}

// AccountService provisions users. Every user owns exactly one wallet,
// created in the same unit of work as the user.
type AccountService struct {
	uow        store.UnitOfWork
	wallets    walletRepository
	activity   activitySink
	bcryptCost int
}

func NewAccountService(uow store.UnitOfWork, wallets walletRepository, activity activitySink, bcryptCost int) *AccountService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{uow: uow, wallets: wallets, activity: activity, bcryptCost: bcryptCost}
}

func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	log := logging.FromContext(ctx)

	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("Register: invalid email: %w", domain.ErrInvalidRequest)
	}
	if name == "" {
		return nil, fmt.Errorf("Register: name is required: %w", domain.ErrInvalidRequest)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("Register: password shorter than %d characters: %w", minPasswordLen, domain.ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
	}
	wallet := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    user.ID,
		Balance:   decimal.Zero,
		Status:    domain.WalletStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Wallets().Create(ctx, wallet)
	})
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	log.Info("user registered",
		"user_id", user.ID,
		"wallet_id", wallet.ID,
	)

	actor := req.Actor
	actor.UserID, actor.Email = user.ID, user.Email
	s.activity.Record(ctx, actor, activity.Event{
		Action:     domain.ActivityUserRegistered,
		EntityType: "user",
		EntityID:   user.ID,
		Fields:     map[string]string{"email": user.Email, "name": user.Name},
	})
	s.activity.Record(ctx, actor, activity.Event{
		Action:     domain.ActivityWalletCreated,
		EntityType: "wallet",
		EntityID:   wallet.ID,
		Fields:     map[string]string{"initial_balance": "0.00"},
	})

	return &Registration{User: user, Wallet: wallet}, nil
}

func (s *AccountService) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("GetWallet: %w", domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("GetWallet: %w", err)
	}
	return w, nil
}
