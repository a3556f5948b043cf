package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an identity in the system. At most one exists per mobile number.
type User struct {
	ID            uuid.UUID
	FirstName     *string
	LastName      *string
	ProfileImgURL *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AuthCredential is the authentication record linked 1:1 with a User.
// Mobile is the immutable business key; Disabled blocks all authentication
// for the identity until manually cleared.
type AuthCredential struct {
	UserID    uuid.UUID
	Mobile    string
	Email     *string
	Disabled  bool
	CreatedAt time.Time
}

// OTPChallenge is a single-use, time-boxed login code. The user_auth_otps
// primary key is the owning user id, so at most one challenge can exist per
// identity at any time. Rows are inserted and deleted, never updated.
type OTPChallenge struct {
	UserID    uuid.UUID
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// DeviceSession anchors a refresh token to one logged-in device install.
type DeviceSession struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	FBInstallationID string
	DeviceName       string
	FCMToken         string
	Expired          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
