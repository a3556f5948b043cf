package weberr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_DomainError(t *testing.T) {
	orig := New(http.StatusForbidden, CodeInvalidOTP, "invalid OTP")
	wrapped := fmt.Errorf("validate otp: %w", orig)

	got := From(wrapped)
	assert.Equal(t, CodeInvalidOTP, got.Code)
	assert.Equal(t, http.StatusForbidden, got.Status)
}

func TestFrom_UnknownErrorBecomesInternal(t *testing.T) {
	got := From(errors.New("pq: connection refused"))
	assert.Equal(t, CodeInternalError, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "internal server error", got.Message, "storage detail must not reach the client message")
}

func TestWrap_PreservesCauseForLogs(t *testing.T) {
	cause := errors.New("signature is invalid")
	err := Wrap(http.StatusUnauthorized, CodeTokenVerificationFailed, "token verification failed", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "signature is invalid")
}

func TestWriteJSON_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, New(http.StatusForbidden, CodeInvalidOTP, "invalid OTP"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeInvalidOTP, body.Error)
	assert.Equal(t, "invalid OTP", body.Message)
	assert.Empty(t, body.Fields)
}

func TestWriteValidation_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidation(rec, map[string]string{"mobile": "must be a 10-digit numeric string"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeValidationFailed, body.Error)
	assert.Contains(t, body.Fields, "mobile")
}
