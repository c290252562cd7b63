package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/wallet-ledger/internal/auth"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/service"
)

const testJWTSecret = "handler-test-secret"

type fakeUsers struct {
	byEmail map[string]*domain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := f.byEmail[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

type fakeRegistrar struct {
	got service.RegisterRequest
	err error
}

func (f *fakeRegistrar) Register(_ context.Context, req service.RegisterRequest) (*service.Registration, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	u := &domain.User{ID: uuid.New(), Email: req.Email, Name: req.Name, Status: domain.UserStatusActive}
	return &service.Registration{
		User:   u,
		Wallet: &domain.Wallet{ID: uuid.New(), UserID: u.ID, Balance: decimal.Zero, Status: domain.WalletStatusActive},
	}, nil
}

func newTestUser(t *testing.T, email, password string, status domain.UserStatus) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{ID: uuid.New(), Email: email, Name: "Test", PasswordHash: string(hash), Status: status}
}

func TestLogin(t *testing.T) {
	active := newTestUser(t, "alice@example.com", "correct-horse", domain.UserStatusActive)
	suspended := newTestUser(t, "sam@example.com", "correct-horse", domain.UserStatusSuspended)
	users := &fakeUsers{byEmail: map[string]*domain.User{
		active.Email:    active,
		suspended.Email: suspended,
	}}
	h := NewAuthHandler(users, &fakeRegistrar{}, testJWTSecret, time.Hour)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"valid credentials", `{"email":"alice@example.com","password":"correct-horse"}`, http.StatusOK, ""},
		{"wrong password", `{"email":"alice@example.com","password":"nope-nope"}`, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unknown email", `{"email":"ghost@example.com","password":"correct-horse"}`, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"suspended user", `{"email":"sam@example.com","password":"correct-horse"}`, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"missing fields", `{}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"invalid JSON", `not-json`, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.Login(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp := decodeEnvelope(t, rr)
			if tc.wantCode == "" {
				require.True(t, resp.Success)
				data := resp.Data.(map[string]any)
				claims, err := auth.ValidateToken(data["token"].(string), testJWTSecret)
				require.NoError(t, err)
				assert.Equal(t, active.ID, claims.UserID)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		regErr     error
		wantStatus int
		wantCode   string
	}{
		{"created", `{"email":"new@example.com","name":"New","password":"long-enough"}`, nil, http.StatusCreated, ""},
		{"short password", `{"email":"new@example.com","name":"New","password":"short"}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing name", `{"email":"new@example.com","password":"long-enough"}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"email taken", `{"email":"new@example.com","name":"New","password":"long-enough"}`, domain.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
		{"service rejects email", `{"email":"not-an-email","name":"New","password":"long-enough"}`, domain.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg := &fakeRegistrar{err: tc.regErr}
			h := NewAuthHandler(&fakeUsers{}, reg, testJWTSecret, time.Hour)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tc.body))
			req.Header.Set("User-Agent", "handler-test")
			rr := httptest.NewRecorder()

			h.Register(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp := decodeEnvelope(t, rr)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}

			require.True(t, resp.Success)
			data := resp.Data.(map[string]any)
			assert.NotEmpty(t, data["token"])
			wallet := data["wallet"].(map[string]any)
			assert.Equal(t, "0.00", wallet["balance"])
			assert.Equal(t, "handler-test", reg.got.Actor.UserAgent)
			assert.Equal(t, "/api/v1/auth/register", reg.got.Actor.Endpoint)
		})
	}
}

func TestMe(t *testing.T) {
	u := newTestUser(t, "alice@example.com", "correct-horse", domain.UserStatusActive)
	h := NewAuthHandler(&fakeUsers{byEmail: map[string]*domain.User{u.Email: u}}, &fakeRegistrar{}, testJWTSecret, time.Hour)

	t.Run("authenticated", func(t *testing.T) {
		req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), u.ID, u.Email)
		rr := httptest.NewRecorder()

		h.Me(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		data := decodeEnvelope(t, rr).Data.(map[string]any)
		assert.Equal(t, u.ID.String(), data["id"])
		assert.NotContains(t, data, "password_hash")
	})

	t.Run("no claims", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.Me(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func withClaims(r *http.Request, userID uuid.UUID, email string) *http.Request {
	ctx := auth.ContextWithClaims(r.Context(), &auth.Claims{UserID: userID, Email: email, ExpiresAt: time.Now().Add(time.Hour)})
	return r.WithContext(ctx)
}
