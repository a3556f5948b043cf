package weberr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes. Clients branch on these, so they must
// never change once released.
const (
	CodeValidationFailed        = "ValidationFailed"
	CodeAccountDisabled         = "AccountDisabled"
	CodeInvalidOTP              = "InvalidOTP"
	CodeInvalidRefreshToken     = "InvalidRefreshToken"
	CodeRefreshTokenExpired     = "RefreshTokenExpired"
	CodeUserDisabled            = "UserDisabled"
	CodeSessionExpired          = "SessionExpired"
	CodeAuthHeaderMissing       = "AuthHeaderMissing"
	CodeTokenMissing            = "TokenMissing"
	CodeTokenVerificationFailed = "TokenVerificationFailed"
	CodeUnauthorized            = "Unauthorized"
	CodeUserNotFound            = "UserNotFound"
	CodeSessionNotFound         = "SessionNotFound"
	CodeInternalError           = "InternalError"
)

// Error is a domain failure carrying an HTTP status, a stable code and a
// message safe to echo to the caller. The wrapped cause is for server-side
// logs only.
type Error struct {
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with no underlying cause.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap attaches an underlying cause to a domain error. The cause is never
// serialized to the client.
func Wrap(status int, code, message string, cause error) *Error {
	return &Error{Status: status, Code: code, Message: message, cause: cause}
}

// Internal wraps an unexpected failure as an opaque 500.
func Internal(cause error) *Error {
	return Wrap(http.StatusInternalServerError, CodeInternalError, "internal server error", cause)
}

// From extracts the *Error from err's chain, or wraps err as an opaque
// internal error so no storage/crypto detail leaks to the caller.
func From(err error) *Error {
	var we *Error
	if errors.As(err, &we) {
		return we
	}
	return Internal(err)
}

// Response is the wire envelope of every failed request. Both handlers and
// middleware serialize through it, so the error format cannot drift.
type Response struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON sends e as the canonical error envelope.
func WriteJSON(w http.ResponseWriter, e *Error) {
	writeResponse(w, e.Status, Response{Error: e.Code, Message: e.Message})
}

// WriteValidation sends a 400 ValidationFailed envelope with field-level detail.
func WriteValidation(w http.ResponseWriter, fields map[string]string) {
	writeResponse(w, http.StatusBadRequest, Response{
		Error:   CodeValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	})
}

func writeResponse(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
