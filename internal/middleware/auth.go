package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/emify/backend/internal/auth"
	"github.com/emify/backend/internal/weberr"
)

// Mode controls whether a protected route tolerates a missing token.
type Mode string

const (
	Required Mode = "required"
	Optional Mode = "optional"
)

type contextKey string

const claimsKey contextKey = "primary_claims"

// BearerAuth verifies the primary token on every protected request. It is
// purely cryptographic and local; no storage access occurs here. In Optional
// mode a request without an Authorization header proceeds with no decoded
// identity in context.
func BearerAuth(tokens *auth.TokenService, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if mode == Required {
					weberr.WriteJSON(w, weberr.New(http.StatusUnauthorized, weberr.CodeAuthHeaderMissing, "no authorization header found"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
				weberr.WriteJSON(w, weberr.New(http.StatusUnauthorized, weberr.CodeTokenMissing, "authorization header does not contain a token"))
				return
			}

			claims, err := tokens.VerifyPrimary(strings.TrimSpace(parts[1]))
			if err != nil {
				// Crypto detail goes to the log, never to the caller.
				log.Printf("token verification failed: %v", err)
				weberr.WriteJSON(w, weberr.New(http.StatusUnauthorized, weberr.CodeTokenVerificationFailed, "token verification failed"))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the decoded primary token claims set by BearerAuth.
func GetClaims(ctx context.Context) (*auth.PrimaryClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.PrimaryClaims)
	return claims, ok
}
