package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/emify/backend/internal/model"
	"github.com/emify/backend/internal/repo"
	"github.com/emify/backend/internal/weberr"
)

// TokenPair is a freshly minted primary + refresh token pair.
type TokenPair struct {
	PrimaryToken string
	RefreshToken string
}

// AuthService orchestrates OTP issuance, redemption and token refresh.
// Domain failures are returned as weberr errors carrying the stable client
// error codes; anything else is a storage/internal failure.
type AuthService struct {
	otpRepo     repo.OtpRepo
	userRepo    repo.UserRepo
	sessionRepo repo.SessionRepo
	tokens      *TokenService
	otpTTL      time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	otpRepo repo.OtpRepo,
	userRepo repo.UserRepo,
	sessionRepo repo.SessionRepo,
	tokens *TokenService,
	otpTTL time.Duration,
) *AuthService {
	return &AuthService{
		otpRepo:     otpRepo,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		otpTTL:      otpTTL,
	}
}

// InitiateLogin issues a fresh OTP challenge for a mobile number, onboarding
// the identity on first contact. The code is returned to the caller because
// the SMS channel is mocked; a real channel would deliver it out-of-band.
func (s *AuthService) InitiateLogin(ctx context.Context, mobile string) (uuid.UUID, string, error) {
	code, err := GenerateOTPCode()
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("generate OTP: %w", err)
	}

	result, err := s.otpRepo.IssueChallenge(ctx, mobile, code, time.Now().Add(s.otpTTL))
	if err != nil {
		if errors.Is(err, repo.ErrCredentialDisabled) {
			return uuid.Nil, "", weberr.New(http.StatusForbidden, weberr.CodeAccountDisabled, "account disabled")
		}
		return uuid.Nil, "", fmt.Errorf("issue challenge: %w", err)
	}

	return result.UserID, code, nil
}

// ValidateOTP redeems a challenge, creates the device session and issues the
// first token pair. The challenge is consumed exactly once; wrong code,
// expired code and unknown identity are deliberately indistinguishable.
func (s *AuthService) ValidateOTP(ctx context.Context, userID uuid.UUID, code string, device repo.DeviceParams) (TokenPair, error) {
	redeemed, err := s.otpRepo.RedeemChallenge(ctx, userID, code, device)
	if err != nil {
		if errors.Is(err, repo.ErrChallengeNotFound) {
			return TokenPair{}, weberr.New(http.StatusForbidden, weberr.CodeInvalidOTP, "invalid OTP")
		}
		return TokenPair{}, fmt.Errorf("redeem challenge: %w", err)
	}

	return s.signPair(redeemed.Credential, device.FBInstallationID, redeemed.Session.ID)
}

// RefreshTokens validates a refresh token plus its session binding and
// re-mints both tokens from the freshly read credential state, so a
// disablement since the last issue is reflected immediately.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken, fbInstallationID string, sessionID uuid.UUID) (TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPair{}, weberr.Wrap(http.StatusForbidden, weberr.CodeRefreshTokenExpired, "refresh token expired", err)
		}
		return TokenPair{}, weberr.Wrap(http.StatusForbidden, weberr.CodeInvalidRefreshToken, "invalid refresh token", err)
	}

	if claims.FBInstallationID != fbInstallationID || claims.SessionID != sessionID.String() || claims.UserID == "" {
		return TokenPair{}, weberr.New(http.StatusForbidden, weberr.CodeInvalidRefreshToken, "invalid refresh token")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return TokenPair{}, weberr.Wrap(http.StatusForbidden, weberr.CodeInvalidRefreshToken, "invalid refresh token", err)
	}

	var (
		user       model.User
		session    model.DeviceSession
		cred       model.AuthCredential
		userErr    error
		sessionErr error
		credErr    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, userErr = s.userRepo.GetByID(gctx, userID)
		if userErr != nil && !errors.Is(userErr, repo.ErrUserNotFound) {
			return userErr
		}
		return nil
	})
	g.Go(func() error {
		session, sessionErr = s.sessionRepo.GetByIDAndInstallation(gctx, sessionID, fbInstallationID)
		if sessionErr != nil && !errors.Is(sessionErr, repo.ErrSessionNotFound) {
			return sessionErr
		}
		return nil
	})
	g.Go(func() error {
		cred, credErr = s.userRepo.GetCredentialByID(gctx, userID)
		if credErr != nil && !errors.Is(credErr, repo.ErrUserNotFound) {
			return credErr
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return TokenPair{}, fmt.Errorf("fetch refresh state: %w", err)
	}

	if userErr != nil || sessionErr != nil || credErr != nil || session.UserID != user.ID {
		return TokenPair{}, weberr.New(http.StatusForbidden, weberr.CodeInvalidRefreshToken, "invalid refresh token")
	}
	if cred.Disabled {
		return TokenPair{}, weberr.New(http.StatusForbidden, weberr.CodeUserDisabled, "user is disabled")
	}
	if session.Expired {
		return TokenPair{}, weberr.New(http.StatusForbidden, weberr.CodeSessionExpired, "session expired")
	}

	return s.signPair(cred, fbInstallationID, sessionID)
}

func (s *AuthService) signPair(cred model.AuthCredential, fbInstallationID string, sessionID uuid.UUID) (TokenPair, error) {
	primary, err := s.tokens.SignPrimary(cred)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign primary token: %w", err)
	}
	refresh, err := s.tokens.SignRefresh(cred.UserID, fbInstallationID, sessionID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{PrimaryToken: primary, RefreshToken: refresh}, nil
}
