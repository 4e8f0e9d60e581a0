package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, sub string, expires time.Time, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Sub: sub,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runRequest(t *testing.T, authHeader string) (*httptest.ResponseRecorder, int64, bool) {
	t.Helper()
	m := NewJWTMiddleware(testSecret)

	var gotOwner int64
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, gotOK = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	m.Authenticate(next).ServeHTTP(rec, req)
	return rec, gotOwner, gotOK
}

func TestAuthenticateValidToken(t *testing.T) {
	token := signToken(t, "42", time.Now().Add(time.Hour), testSecret)
	rec, owner, ok := runRequest(t, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.Equal(t, int64(42), owner)
}

func TestAuthenticateMissingToken(t *testing.T) {
	rec, _, ok := runRequest(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, ok)
}

func TestAuthenticateWrongSecret(t *testing.T) {
	token := signToken(t, "42", time.Now().Add(time.Hour), "other-secret")
	rec, _, ok := runRequest(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, ok)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	token := signToken(t, "42", time.Now().Add(-time.Hour), testSecret)
	rec, _, ok := runRequest(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, ok)
}

func TestAuthenticateNonNumericSubject(t *testing.T) {
	token := signToken(t, "alice", time.Now().Add(time.Hour), testSecret)
	rec, _, ok := runRequest(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, ok)
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	rec, _, ok := runRequest(t, "Token abc123")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, ok)
}
