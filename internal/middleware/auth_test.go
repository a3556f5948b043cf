package middleware

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emify/backend/internal/auth"
	"github.com/emify/backend/internal/model"
	"github.com/emify/backend/internal/weberr"
)

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	keys := &auth.KeyPair{Private: priv, Public: &priv.PublicKey}
	return auth.NewTokenService(keys, "emify-backend", time.Hour, 7*24*time.Hour)
}

// echoHandler reports whether claims were present in the request context.
func echoHandler(t *testing.T) (http.Handler, *struct {
	Called bool
	Claims *auth.PrimaryClaims
}) {
	t.Helper()
	state := &struct {
		Called bool
		Claims *auth.PrimaryClaims
	}{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state.Called = true
		state.Claims, _ = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}), state
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestBearerAuth_Required_NoHeader(t *testing.T) {
	tokens := newTokenService(t)
	next, state := echoHandler(t)
	handler := BearerAuth(tokens, Required)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, weberr.CodeAuthHeaderMissing, errorCode(t, rec))
	assert.False(t, state.Called)
}

func TestBearerAuth_Optional_NoHeader(t *testing.T) {
	tokens := newTokenService(t)
	next, state := echoHandler(t)
	handler := BearerAuth(tokens, Optional)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, state.Called)
	assert.Nil(t, state.Claims, "optional mode without header must not attach an identity")
}

func TestBearerAuth_EmptyTokenSegment(t *testing.T) {
	tokens := newTokenService(t)
	next, state := echoHandler(t)
	handler := BearerAuth(tokens, Required)(next)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, weberr.CodeTokenMissing, errorCode(t, rec))
	assert.False(t, state.Called)
}

func TestBearerAuth_InvalidToken(t *testing.T) {
	tokens := newTokenService(t)
	next, state := echoHandler(t)
	handler := BearerAuth(tokens, Required)(next)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, weberr.CodeTokenVerificationFailed, errorCode(t, rec))
	assert.False(t, state.Called)
}

func TestBearerAuth_TokenSignedByOtherKey(t *testing.T) {
	tokens := newTokenService(t)
	other := newTokenService(t)
	signed, err := other.SignPrimary(model.AuthCredential{UserID: uuid.New(), Mobile: "9876543210"})
	require.NoError(t, err)

	next, state := echoHandler(t)
	handler := BearerAuth(tokens, Required)(next)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, weberr.CodeTokenVerificationFailed, errorCode(t, rec))
	assert.False(t, state.Called)
}

func TestBearerAuth_RefreshTokenRejected(t *testing.T) {
	tokens := newTokenService(t)
	signed, err := tokens.SignRefresh(uuid.New(), "install-1", uuid.New())
	require.NoError(t, err)

	next, state := echoHandler(t)
	handler := BearerAuth(tokens, Required)(next)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, weberr.CodeTokenVerificationFailed, errorCode(t, rec))
	assert.False(t, state.Called, "a long-lived refresh token must not open protected routes")
}

func TestBearerAuth_ValidToken(t *testing.T) {
	tokens := newTokenService(t)
	userID := uuid.New()
	signed, err := tokens.SignPrimary(model.AuthCredential{UserID: userID, Mobile: "9876543210"})
	require.NoError(t, err)

	next, state := echoHandler(t)
	handler := BearerAuth(tokens, Required)(next)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, state.Called)
	require.NotNil(t, state.Claims)
	assert.Equal(t, userID.String(), state.Claims.UserID)
	assert.Equal(t, "9876543210", state.Claims.Mobile)
}
