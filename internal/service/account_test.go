package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/wallet-ledger/internal/activity"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/repository/memory"
)

func newAccountService(st *memory.Store) *AccountService {
	return NewAccountService(st, st.Wallets(), activity.NewRecorder(st.ActivityLogs()), bcrypt.MinCost)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	svc := newAccountService(st)

	reg, err := svc.Register(ctx, RegisterRequest{
		Email:    " ada@example.com ",
		Name:     "Ada Lovelace",
		Password: "analytical-engine",
		Actor:    domain.Actor{IPAddress: "10.0.0.1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.NotEqual(t, "analytical-engine", reg.User.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(reg.User.PasswordHash), []byte("analytical-engine")))

	assert.Equal(t, reg.User.ID, reg.Wallet.UserID)
	assert.Equal(t, domain.WalletStatusActive, reg.Wallet.Status)
	assert.True(t, reg.Wallet.Balance.IsZero())

	w, err := svc.GetWallet(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.Wallet.ID, w.ID)

	registered := st.ActivityLogs().ListByAction(ctx, domain.ActivityUserRegistered)
	require.Len(t, registered, 1)
	assert.Equal(t, "10.0.0.1", registered[0].IPAddress)
	require.NotNil(t, registered[0].UserID)
	assert.Equal(t, reg.User.ID, *registered[0].UserID)
	assert.Len(t, st.ActivityLogs().ListByAction(ctx, domain.ActivityWalletCreated), 1)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	svc := newAccountService(st)

	_, err := svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Name: "Ada", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Email: "ADA@example.com", Name: "Other Ada", Password: "password2"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	wallets, err := st.Wallets().List(ctx)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "bad email", req: RegisterRequest{Email: "not-an-email", Name: "A", Password: "password1"}},
		{name: "missing name", req: RegisterRequest{Email: "a@example.com", Name: "  ", Password: "password1"}},
		{name: "short password", req: RegisterRequest{Email: "a@example.com", Name: "A", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.NewStore()
			_, err := newAccountService(st).Register(context.Background(), tt.req)
			require.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestGetWallet_Missing(t *testing.T) {
	st := memory.NewStore()
	_, err := newAccountService(st).GetWallet(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}
