package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/emify/backend/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepo defines the interface for device session repository operations
type SessionRepo interface {
	GetByIDAndInstallation(ctx context.Context, sessionID uuid.UUID, fbInstallationID string) (model.DeviceSession, error)
	MarkExpired(ctx context.Context, sessionID, userID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.DeviceSession, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

// GetByIDAndInstallation retrieves a session keyed by both session id and the
// device-installation id that requested it. A refresh token is only honored
// when both match.
func (r *sessionRepo) GetByIDAndInstallation(ctx context.Context, sessionID uuid.UUID, fbInstallationID string) (model.DeviceSession, error) {
	var s model.DeviceSession
	var idStr, userIDStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, fb_installation_id, device_name, fcm_token, expired, created_at, updated_at
		FROM user_device_sessions
		WHERE id = $1 AND fb_installation_id = $2
	`, sessionID, fbInstallationID).Scan(
		&idStr,
		&userIDStr,
		&s.FBInstallationID,
		&s.DeviceName,
		&s.FCMToken,
		&s.Expired,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DeviceSession{}, ErrSessionNotFound
		}
		return model.DeviceSession{}, fmt.Errorf("query session: %w", err)
	}
	s.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.DeviceSession{}, fmt.Errorf("parse session ID: %w", err)
	}
	s.UserID, err = uuid.Parse(userIDStr)
	if err != nil {
		return model.DeviceSession{}, fmt.Errorf("parse user ID: %w", err)
	}
	return s, nil
}

// MarkExpired flags a session so refresh tokens bound to it are rejected.
// The user id is part of the predicate so a caller can only revoke its own
// sessions; a foreign session id is indistinguishable from a missing one.
func (r *sessionRepo) MarkExpired(ctx context.Context, sessionID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE user_device_sessions SET expired = TRUE, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListByUser returns all device sessions belonging to a user, newest first.
func (r *sessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.DeviceSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, fb_installation_id, device_name, fcm_token, expired, created_at, updated_at
		FROM user_device_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.DeviceSession
	for rows.Next() {
		var s model.DeviceSession
		var idStr, userIDStr string
		if err := rows.Scan(
			&idStr,
			&userIDStr,
			&s.FBInstallationID,
			&s.DeviceName,
			&s.FCMToken,
			&s.Expired,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse session ID: %w", err)
		}
		s.UserID, err = uuid.Parse(userIDStr)
		if err != nil {
			return nil, fmt.Errorf("parse user ID: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
