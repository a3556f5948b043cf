package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emify/backend/internal/model"
)

const testIssuer = "emify-backend"

func newTestKeyPair(t *testing.T) *KeyPair {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &KeyPair{Private: priv, Public: &priv.PublicKey}
}

func testCredential() model.AuthCredential {
	email := "user@example.com"
	return model.AuthCredential{
		UserID:   uuid.New(),
		Mobile:   "9876543210",
		Email:    &email,
		Disabled: false,
	}
}

func TestPrimaryToken_RoundTrip(t *testing.T) {
	svc := NewTokenService(newTestKeyPair(t), testIssuer, time.Hour, 7*24*time.Hour)
	cred := testCredential()

	signed, err := svc.SignPrimary(cred)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.VerifyPrimary(signed)
	require.NoError(t, err)
	assert.Equal(t, cred.UserID.String(), claims.UserID)
	assert.Equal(t, cred.Mobile, claims.Mobile)
	require.NotNil(t, claims.Email)
	assert.Equal(t, *cred.Email, *claims.Email)
	assert.False(t, claims.Disabled)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestPrimaryToken_RejectedAfterExpiry(t *testing.T) {
	svc := NewTokenService(newTestKeyPair(t), testIssuer, -time.Minute, 7*24*time.Hour)

	signed, err := svc.SignPrimary(testCredential())
	require.NoError(t, err)

	_, err = svc.VerifyPrimary(signed)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestPrimaryToken_RejectedWithDifferentKeyPair(t *testing.T) {
	signer := NewTokenService(newTestKeyPair(t), testIssuer, time.Hour, 7*24*time.Hour)
	verifier := NewTokenService(newTestKeyPair(t), testIssuer, time.Hour, 7*24*time.Hour)

	signed, err := signer.SignPrimary(testCredential())
	require.NoError(t, err)

	_, err = verifier.VerifyPrimary(signed)
	require.Error(t, err)
}

func TestPrimaryToken_RejectedWithWrongIssuer(t *testing.T) {
	keys := newTestKeyPair(t)
	signer := NewTokenService(keys, "some-other-service", time.Hour, 7*24*time.Hour)
	verifier := NewTokenService(keys, testIssuer, time.Hour, 7*24*time.Hour)

	signed, err := signer.SignPrimary(testCredential())
	require.NoError(t, err)

	_, err = verifier.VerifyPrimary(signed)
	require.Error(t, err)
}

func TestRefreshToken_RoundTripAndClaimShape(t *testing.T) {
	svc := NewTokenService(newTestKeyPair(t), testIssuer, time.Hour, 7*24*time.Hour)
	userID := uuid.New()
	sessionID := uuid.New()

	signed, err := svc.SignRefresh(userID, "install-1", sessionID)
	require.NoError(t, err)

	claims, err := svc.VerifyRefresh(signed)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "install-1", claims.FBInstallationID)
	assert.Equal(t, sessionID.String(), claims.SessionID)

	// Refresh tokens must not carry account state or contact info: the
	// refresher re-reads those from storage.
	parsed, _, err := jwt.NewParser().ParseUnverified(signed, jwt.MapClaims{})
	require.NoError(t, err)
	raw := parsed.Claims.(jwt.MapClaims)
	assert.NotContains(t, raw, "disabled")
	assert.NotContains(t, raw, "mobile")
	assert.NotContains(t, raw, "email")
}

func TestVerifyPrimary_RejectsRefreshToken(t *testing.T) {
	svc := NewTokenService(newTestKeyPair(t), testIssuer, time.Hour, 7*24*time.Hour)

	// Same key, same issuer: only the purpose tag separates the two kinds.
	refresh, err := svc.SignRefresh(uuid.New(), "install-1", uuid.New())
	require.NoError(t, err)

	_, err = svc.VerifyPrimary(refresh)
	require.Error(t, err, "a refresh token must never pass as a bearer credential")
}

func TestVerifyRefresh_RejectsPrimaryToken(t *testing.T) {
	svc := NewTokenService(newTestKeyPair(t), testIssuer, time.Hour, 7*24*time.Hour)

	primary, err := svc.SignPrimary(testCredential())
	require.NoError(t, err)

	_, err = svc.VerifyRefresh(primary)
	require.Error(t, err, "a primary token must not be redeemable for a new pair")
}

func TestRefreshToken_ExpiryDistinguishable(t *testing.T) {
	svc := NewTokenService(newTestKeyPair(t), testIssuer, time.Hour, -time.Minute)

	signed, err := svc.SignRefresh(uuid.New(), "install-1", uuid.New())
	require.NoError(t, err)

	_, err = svc.VerifyRefresh(signed)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
