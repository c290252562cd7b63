package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(userID, "owner@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func signRaw(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestValidateToken_Rejects(t *testing.T) {
	userID := uuid.New()
	valid, err := GenerateToken(userID, "owner@example.com", testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken(userID, "owner@example.com", testSecret, -time.Hour)
	require.NoError(t, err)

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name      string
		token     string
		secret    string
		wantErrIs error
	}{
		{name: "expired", token: expired, secret: testSecret, wantErrIs: jwt.ErrTokenExpired},
		{name: "wrong secret", token: valid, secret: "other", wantErrIs: jwt.ErrTokenSignatureInvalid},
		{name: "malformed", token: "not.a.jwt", secret: testSecret, wantErrIs: jwt.ErrTokenMalformed},
		{name: "empty", token: "", secret: testSecret, wantErrIs: jwt.ErrTokenMalformed},
		{
			name: "foreign issuer",
			token: signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), tokenClaims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String(), Issuer: "someone-else", ExpiresAt: future},
			}),
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenInvalidIssuer,
		},
		{
			name: "no expiry",
			token: signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), tokenClaims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String(), Issuer: Issuer},
			}),
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenRequiredClaimMissing,
		},
		{
			name: "none algorithm",
			token: signRaw(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, tokenClaims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String(), Issuer: Issuer, ExpiresAt: future},
			}),
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenSignatureInvalid,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateToken(tc.token, tc.secret)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErrIs)
		})
	}
}

func TestValidateToken_BadSubject(t *testing.T) {
	token := signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err := ValidateToken(token, testSecret)
	require.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	ctx := ContextWithClaims(context.Background(), &Claims{UserID: id, Email: "a@example.com"})

	got, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)

	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", claims.Email)
}
