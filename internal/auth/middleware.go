package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/policy"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

const (
	// AuthorizationHeader is the HTTP header carrying the bearer token.
	AuthorizationHeader = "Authorization"

	// BearerPrefix is the scheme prefix of the Authorization header.
	BearerPrefix = "Bearer "
)

// Middleware resolves the bearer token into an actor and stores it in the
// request context. Requests without an Authorization header pass through as
// anonymous; whether anonymous access is enough is the handlers' decision.
// A present but invalid token is rejected outright.
//
// The user is looked up on every request, so a role change or deactivation
// takes effect immediately regardless of the token's claims.
func Middleware(tokens TokenManager, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(AuthorizationHeader)
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), policy.Anonymous())))
				return
			}

			if !strings.HasPrefix(header, BearerPrefix) {
				writeAuthError(w, "invalid authorization header")
				return
			}

			claims, err := tokens.Validate(strings.TrimPrefix(header, BearerPrefix))
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
				writeAuthError(w, "invalid or expired token")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					writeAuthError(w, "invalid or expired token")
					return
				}
				log.Error().Err(err).Int64("user_id", claims.UserID).Msg("failed to resolve token user")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			if !user.Active {
				writeAuthError(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), policy.FromUser(user))))
		})
	}
}

// writeAuthError writes a 401 response in the API's error envelope.
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
