package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/emify/backend/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

// ProfileUpdate carries the mutable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Email         *string
	ProfileImgURL *string
}

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetCredentialByID(ctx context.Context, userID uuid.UUID) (model.AuthCredential, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var user model.User
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, profile_img_url, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(
		&idStr,
		&user.FirstName,
		&user.LastName,
		&user.ProfileImgURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to parse user ID: %w", err)
	}
	return user, nil
}

// GetCredentialByID retrieves the auth credential linked to a user
func (r *userRepo) GetCredentialByID(ctx context.Context, userID uuid.UUID) (model.AuthCredential, error) {
	var cred model.AuthCredential
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, mobile, email, disabled, created_at
		FROM user_authentications
		WHERE user_id = $1
	`, userID).Scan(
		&idStr,
		&cred.Mobile,
		&cred.Email,
		&cred.Disabled,
		&cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AuthCredential{}, ErrUserNotFound
		}
		return model.AuthCredential{}, fmt.Errorf("failed to query credential: %w", err)
	}
	cred.UserID, err = uuid.Parse(idStr)
	if err != nil {
		return model.AuthCredential{}, fmt.Errorf("failed to parse user ID: %w", err)
	}
	return cred, nil
}

// UpdateProfile updates profile image and credential email in one transaction.
func (r *userRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE users
		SET profile_img_url = COALESCE($2, profile_img_url), updated_at = now()
		WHERE id = $1
	`, userID, update.ProfileImgURL)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}

	if update.Email != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_authentications SET email = $2 WHERE user_id = $1
		`, userID, *update.Email); err != nil {
			return fmt.Errorf("update credential email: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
