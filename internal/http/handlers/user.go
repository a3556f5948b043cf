package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emify/backend/internal/middleware"
	"github.com/emify/backend/internal/repo"
	"github.com/emify/backend/internal/weberr"
)

// UserHandler handles protected profile endpoints. The owner check here is
// the downstream consumer of the decoded identity the bearer middleware
// puts in context.
type UserHandler struct {
	userRepo    repo.UserRepo
	sessionRepo repo.SessionRepo
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo repo.UserRepo, sessionRepo repo.SessionRepo) *UserHandler {
	return &UserHandler{userRepo: userRepo, sessionRepo: sessionRepo}
}

// profileResponse is the JSON response for GET /v1/user/{user_id}/profile
type profileResponse struct {
	ID            string            `json:"id"`
	FirstName     *string           `json:"first_name"`
	LastName      *string           `json:"last_name"`
	ProfileImgURL *string           `json:"profile_img_url"`
	Mobile        string            `json:"mobile"`
	Email         *string           `json:"email"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Sessions      []sessionResponse `json:"device_sessions"`
}

type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"device_name"`
	Expired    bool      `json:"expired"`
	CreatedAt  time.Time `json:"created_at"`
}

// updateProfileRequest is the request body for PATCH /v1/user/{user_id}/profile
type updateProfileRequest struct {
	Email         *string `json:"email"`
	ProfileImgURL *string `json:"profile_img_url"`
}

// authorizeOwner ensures the bearer identity matches the user_id path param.
func authorizeOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respondWithError(w, weberr.New(http.StatusUnauthorized, weberr.CodeAuthHeaderMissing, "no authorization header found"))
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		respondWithValidationError(w, map[string]string{"user_id": "must be a valid UUID"})
		return uuid.Nil, false
	}

	if claims.UserID != userID.String() {
		respondWithError(w, weberr.New(http.StatusForbidden, weberr.CodeUnauthorized, "not authorized to access this profile"))
		return uuid.Nil, false
	}
	return userID, true
}

// HandleGetProfile handles GET /v1/user/{user_id}/profile
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := authorizeOwner(w, r)
	if !ok {
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			respondWithError(w, weberr.New(http.StatusNotFound, weberr.CodeUserNotFound, "user not found"))
			return
		}
		log.Printf("failed to get profile for user %s: %v", userID, err)
		respondWithError(w, weberr.From(err))
		return
	}

	cred, err := h.userRepo.GetCredentialByID(r.Context(), userID)
	if err != nil {
		log.Printf("failed to get credential for user %s: %v", userID, err)
		respondWithError(w, weberr.From(err))
		return
	}

	sessions, err := h.sessionRepo.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("failed to list sessions for user %s: %v", userID, err)
		respondWithError(w, weberr.From(err))
		return
	}

	resp := profileResponse{
		ID:            user.ID.String(),
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		ProfileImgURL: user.ProfileImgURL,
		Mobile:        cred.Mobile,
		Email:         cred.Email,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
		Sessions:      make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, sessionResponse{
			ID:         s.ID.String(),
			DeviceName: s.DeviceName,
			Expired:    s.Expired,
			CreatedAt:  s.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// HandleRevokeSession handles DELETE /v1/user/{user_id}/sessions/{session_id}.
// The session is marked expired, not deleted, so it still shows up in the
// profile's session list and any refresh token bound to it is rejected with
// SessionExpired from then on.
func (h *UserHandler) HandleRevokeSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := authorizeOwner(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		respondWithValidationError(w, map[string]string{"session_id": "must be a valid UUID"})
		return
	}

	if err := h.sessionRepo.MarkExpired(r.Context(), sessionID, userID); err != nil {
		if errors.Is(err, repo.ErrSessionNotFound) {
			respondWithError(w, weberr.New(http.StatusNotFound, weberr.CodeSessionNotFound, "session not found"))
			return
		}
		log.Printf("failed to revoke session %s for user %s: %v", sessionID, userID, err)
		respondWithError(w, weberr.From(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateProfile handles PATCH /v1/user/{user_id}/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := authorizeOwner(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithValidationError(w, map[string]string{"body": "invalid JSON"})
		return
	}
	if req.Email == nil && req.ProfileImgURL == nil {
		respondWithValidationError(w, map[string]string{"body": "at least one of email, profile_img_url is required"})
		return
	}
	if req.Email != nil {
		if _, err := mail.ParseAddress(strings.TrimSpace(*req.Email)); err != nil {
			respondWithValidationError(w, map[string]string{"email": "must be a valid email address"})
			return
		}
	}

	err := h.userRepo.UpdateProfile(r.Context(), userID, repo.ProfileUpdate{
		Email:         req.Email,
		ProfileImgURL: req.ProfileImgURL,
	})
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			respondWithError(w, weberr.New(http.StatusNotFound, weberr.CodeUserNotFound, "user not found"))
			return
		}
		log.Printf("failed to update profile for user %s: %v", userID, err)
		respondWithError(w, weberr.From(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
