package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emify/backend/internal/model"
)

// Sentinel errors for domain conditions detected inside repository
// transactions. Services map these onto the client-facing error taxonomy.
var (
	ErrCredentialDisabled = errors.New("credential is disabled")
	ErrChallengeNotFound  = errors.New("challenge not found")
)

// IssueResult reports the outcome of an atomic challenge issue.
type IssueResult struct {
	UserID    uuid.UUID
	Onboarded bool
}

// RedeemResult carries everything the token issuer needs after a successful
// redemption: the freshly created session and the credential snapshot read
// in the same transaction.
type RedeemResult struct {
	Session    model.DeviceSession
	Credential model.AuthCredential
}

// DeviceParams is the device metadata supplied on OTP validation.
type DeviceParams struct {
	FBInstallationID string
	DeviceName       string
	FCMToken         string
}

// OtpRepo owns the OTP challenge lifecycle. Both operations are single
// transactions so no partial onboarding or double redemption can be observed.
type OtpRepo interface {
	IssueChallenge(ctx context.Context, mobile, code string, expiresAt time.Time) (IssueResult, error)
	RedeemChallenge(ctx context.Context, userID uuid.UUID, code string, device DeviceParams) (RedeemResult, error)
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a new OtpRepo instance
func NewOtpRepo(db *sql.DB) OtpRepo {
	return &otpRepo{db: db}
}

// IssueChallenge runs the full initiate-login transition atomically:
// supersede any outstanding challenge, onboard the identity if the mobile is
// unknown, then persist the new challenge. An advisory lock keyed on the
// mobile serializes concurrent initiations for the same number, so two
// callers can never both leave a live challenge behind.
func (r *otpRepo) IssueChallenge(ctx context.Context, mobile, code string, expiresAt time.Time) (IssueResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return IssueResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Blocks until we hold the lock; released on COMMIT/ROLLBACK.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(1, hashtext($1))`, mobile); err != nil {
		return IssueResult{}, fmt.Errorf("advisory lock: %w", err)
	}

	var (
		userID   uuid.UUID
		disabled bool
		result   IssueResult
	)
	var idStr string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, disabled FROM user_authentications WHERE mobile = $1
	`, mobile).Scan(&idStr, &disabled)
	switch {
	case err == nil:
		if disabled {
			return IssueResult{}, ErrCredentialDisabled
		}
		userID, err = uuid.Parse(idStr)
		if err != nil {
			return IssueResult{}, fmt.Errorf("parse user ID: %w", err)
		}
		// Supersede: a fresh initiation invalidates any outstanding code.
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_auth_otps WHERE user_id = $1`, userID); err != nil {
			return IssueResult{}, fmt.Errorf("delete existing challenge: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// Onboard: possession of the mobile is the whole signup.
		userID = uuid.New()
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id) VALUES ($1)`, userID); err != nil {
			return IssueResult{}, fmt.Errorf("insert user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_authentications (user_id, mobile, email, disabled)
			VALUES ($1, $2, NULL, FALSE)
		`, userID, mobile); err != nil {
			return IssueResult{}, fmt.Errorf("insert credential: %w", err)
		}
		result.Onboarded = true
	default:
		return IssueResult{}, fmt.Errorf("query credential: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_auth_otps (user_id, code, created_at, expires_at)
		VALUES ($1, $2, now(), $3)
	`, userID, code, expiresAt); err != nil {
		return IssueResult{}, fmt.Errorf("insert challenge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return IssueResult{}, fmt.Errorf("commit: %w", err)
	}

	result.UserID = userID
	return result, nil
}

// RedeemChallenge consumes a challenge exactly once: the row-locked lookup,
// session insert and challenge delete share one transaction, so of two
// concurrent redemptions with the same code the loser finds no row. Expired
// challenges are treated as not found.
func (r *otpRepo) RedeemChallenge(ctx context.Context, userID uuid.UUID, code string, device DeviceParams) (RedeemResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var challengeUserID string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id FROM user_auth_otps
		WHERE user_id = $1 AND code = $2 AND expires_at > now()
		FOR UPDATE
	`, userID, code).Scan(&challengeUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RedeemResult{}, ErrChallengeNotFound
		}
		return RedeemResult{}, fmt.Errorf("query challenge: %w", err)
	}

	var res RedeemResult
	sessionID := uuid.New()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_device_sessions (id, user_id, fb_installation_id, device_name, fcm_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, sessionID, userID, device.FBInstallationID, device.DeviceName, device.FCMToken).Scan(
		&res.Session.CreatedAt,
		&res.Session.UpdatedAt,
	)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("insert session: %w", err)
	}
	res.Session.ID = sessionID
	res.Session.UserID = userID
	res.Session.FBInstallationID = device.FBInstallationID
	res.Session.DeviceName = device.DeviceName
	res.Session.FCMToken = device.FCMToken

	// Single-use guarantee.
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_auth_otps WHERE user_id = $1`, userID); err != nil {
		return RedeemResult{}, fmt.Errorf("delete challenge: %w", err)
	}

	var uidStr string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, mobile, email, disabled, created_at
		FROM user_authentications
		WHERE user_id = $1
	`, userID).Scan(
		&uidStr,
		&res.Credential.Mobile,
		&res.Credential.Email,
		&res.Credential.Disabled,
		&res.Credential.CreatedAt,
	)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("query credential: %w", err)
	}
	res.Credential.UserID, err = uuid.Parse(uidStr)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("parse user ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RedeemResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
