package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/emify/backend/internal/auth"
	"github.com/emify/backend/internal/http/handlers"
	"github.com/emify/backend/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(authHandler *handlers.AuthHandler, userHandler *handlers.UserHandler, tokens *auth.TokenService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/initiate", authHandler.HandleInitiate)
		r.Post("/validate-otp", authHandler.HandleValidateOTP)
		r.Post("/refresh-tokens", authHandler.HandleRefreshTokens)
	})

	// Protected routes (require a valid primary token)
	r.Route("/v1/user", func(r chi.Router) {
		r.Use(middleware.BearerAuth(tokens, middleware.Required))
		r.Get("/{user_id}/profile", userHandler.HandleGetProfile)
		r.Patch("/{user_id}/profile", userHandler.HandleUpdateProfile)
		r.Delete("/{user_id}/sessions/{session_id}", userHandler.HandleRevokeSession)
	})

	return r
}
