package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/emify/backend/internal/auth"
	"github.com/emify/backend/internal/repo"
	"github.com/emify/backend/internal/weberr"
)

var (
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
	otpPattern    = regexp.MustCompile(`^\d{6}$`)
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// initiateRequest is the request body for POST /v1/auth/initiate
type initiateRequest struct {
	Mobile string `json:"mobile"`
}

// initiateResponse echoes the OTP because the SMS channel is mocked.
type initiateResponse struct {
	UserID string `json:"user_id"`
	OTP    string `json:"otp"`
}

// validateOTPRequest is the request body for POST /v1/auth/validate-otp
type validateOTPRequest struct {
	Code             string `json:"code"`
	UserID           string `json:"user_id"`
	FBInstallationID string `json:"fb_installation_id"`
	FCMToken         string `json:"fcm_token"`
	DeviceName       string `json:"device_name"`
}

// tokenPairResponse is the JSON response for validate-otp and refresh-tokens
type tokenPairResponse struct {
	PrimaryToken string `json:"primary_token"`
	RefreshToken string `json:"refresh_token"`
}

// refreshRequest is the request body for POST /v1/auth/refresh-tokens
type refreshRequest struct {
	RefreshToken     string `json:"refresh_token"`
	FBInstallationID string `json:"fb_installation_id"`
	SessionID        string `json:"session_id"`
}

// HandleInitiate handles POST /v1/auth/initiate
func (h *AuthHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithValidationError(w, map[string]string{"body": "invalid JSON"})
		return
	}

	req.Mobile = strings.TrimSpace(req.Mobile)
	if !mobilePattern.MatchString(req.Mobile) {
		respondWithValidationError(w, map[string]string{"mobile": "must be a 10-digit numeric string"})
		return
	}

	userID, code, err := h.authService.InitiateLogin(r.Context(), req.Mobile)
	if err != nil {
		logMaskedMobile(req.Mobile, "failed to initiate login", err)
		respondWithError(w, weberr.From(err))
		return
	}

	respondJSON(w, http.StatusOK, initiateResponse{UserID: userID.String(), OTP: code})
}

// HandleValidateOTP handles POST /v1/auth/validate-otp
func (h *AuthHandler) HandleValidateOTP(w http.ResponseWriter, r *http.Request) {
	var req validateOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithValidationError(w, map[string]string{"body": "invalid JSON"})
		return
	}

	fields := map[string]string{}
	req.Code = strings.TrimSpace(req.Code)
	if !otpPattern.MatchString(req.Code) {
		fields["code"] = "must be a 6-digit numeric string"
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		fields["user_id"] = "must be a valid UUID"
	}
	if req.FBInstallationID == "" {
		fields["fb_installation_id"] = "is required"
	}
	if req.FCMToken == "" {
		fields["fcm_token"] = "is required"
	}
	if req.DeviceName == "" {
		fields["device_name"] = "is required"
	}
	if len(fields) > 0 {
		respondWithValidationError(w, fields)
		return
	}

	pair, err := h.authService.ValidateOTP(r.Context(), userID, req.Code, repo.DeviceParams{
		FBInstallationID: req.FBInstallationID,
		DeviceName:       req.DeviceName,
		FCMToken:         req.FCMToken,
	})
	if err != nil {
		log.Printf("failed to validate OTP for user %s: %v", userID, err)
		respondWithError(w, weberr.From(err))
		return
	}

	respondJSON(w, http.StatusOK, tokenPairResponse{
		PrimaryToken: pair.PrimaryToken,
		RefreshToken: pair.RefreshToken,
	})
}

// HandleRefreshTokens handles POST /v1/auth/refresh-tokens
func (h *AuthHandler) HandleRefreshTokens(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithValidationError(w, map[string]string{"body": "invalid JSON"})
		return
	}

	fields := map[string]string{}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		fields["refresh_token"] = "is required"
	}
	if req.FBInstallationID == "" {
		fields["fb_installation_id"] = "is required"
	}
	sessionID, err := uuid.Parse(strings.TrimSpace(req.SessionID))
	if err != nil {
		fields["session_id"] = "must be a valid UUID"
	}
	if len(fields) > 0 {
		respondWithValidationError(w, fields)
		return
	}

	pair, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken, req.FBInstallationID, sessionID)
	if err != nil {
		log.Printf("failed to refresh tokens for session %s: %v", sessionID, err)
		respondWithError(w, weberr.From(err))
		return
	}

	respondJSON(w, http.StatusOK, tokenPairResponse{
		PrimaryToken: pair.PrimaryToken,
		RefreshToken: pair.RefreshToken,
	})
}

// logMaskedMobile logs a message with masked mobile number
func logMaskedMobile(mobile, msg string, err error) {
	log.Printf("mobile %s: %s: %v", maskMobile(mobile), msg, err)
}

// maskMobile masks a mobile number for logging (e.g. 98******10)
func maskMobile(mobile string) string {
	if len(mobile) <= 4 {
		return "****"
	}
	return mobile[:2] + strings.Repeat("*", len(mobile)-4) + mobile[len(mobile)-2:]
}
