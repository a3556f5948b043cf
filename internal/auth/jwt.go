package auth

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/emify/backend/internal/model"
)

// Token purposes, carried in the typ claim. Each verifier accepts only its
// own purpose: both token kinds share the key and issuer, so without the tag
// a long-lived refresh token would decode as a bearer credential and skip
// the storage re-validation the refresher exists for.
const (
	tokenTypePrimary = "primary"
	tokenTypeRefresh = "refresh"
)

// PrimaryClaims is the fixed-shape payload of a primary (access) token.
type PrimaryClaims struct {
	UserID    string  `json:"id"`
	Mobile    string  `json:"mobile"`
	Email     *string `json:"email"`
	Disabled  bool    `json:"disabled"`
	TokenType string  `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the fixed-shape payload of a refresh token. It carries
// only what is needed to re-derive a primary token after re-validating
// current state from storage; never the disabled flag or contact info.
type RefreshClaims struct {
	UserID           string `json:"id"`
	FBInstallationID string `json:"fb_installation_id"`
	SessionID        string `json:"session_id"`
	TokenType        string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies ES256 tokens. It performs no storage
// access; verification is purely cryptographic.
type TokenService struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	issuer     string
	primaryTTL time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a new token service
func NewTokenService(keys *KeyPair, issuer string, primaryTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		privateKey: keys.Private,
		publicKey:  keys.Public,
		issuer:     issuer,
		primaryTTL: primaryTTL,
		refreshTTL: refreshTTL,
	}
}

// PublicKey returns the verification key, e.g. for handing to resource servers.
func (s *TokenService) PublicKey() *ecdsa.PublicKey { return s.publicKey }

// SignPrimary mints a short-lived primary token from a credential snapshot.
func (s *TokenService) SignPrimary(cred model.AuthCredential) (string, error) {
	now := time.Now()
	claims := &PrimaryClaims{
		UserID:    cred.UserID.String(),
		Mobile:    cred.Mobile,
		Email:     cred.Email,
		Disabled:  cred.Disabled,
		TokenType: tokenTypePrimary,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.primaryTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign primary token: %w", err)
	}
	return signed, nil
}

// SignRefresh mints a long-lived refresh token bound to a device session.
func (s *TokenService) SignRefresh(userID uuid.UUID, fbInstallationID string, sessionID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		UserID:           userID.String(),
		FBInstallationID: fbInstallationID,
		SessionID:        sessionID.String(),
		TokenType:        tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyPrimary verifies signature, algorithm and issuer of a primary token.
func (s *TokenService) VerifyPrimary(tokenString string) (*PrimaryClaims, error) {
	claims := &PrimaryClaims{}
	if err := s.verify(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypePrimary {
		return nil, fmt.Errorf("token is not a primary token")
	}
	return claims, nil
}

// VerifyRefresh verifies signature, algorithm and issuer of a refresh token.
// Expiry surfaces as jwt.ErrTokenExpired in the error chain so callers can
// distinguish it from other cryptographic failures.
func (s *TokenService) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.verify(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, fmt.Errorf("token is not a refresh token")
	}
	return claims, nil
}

func (s *TokenService) verify(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
